package notifications

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/gitdev-app/backend/internal/mail"
	"github.com/gitdev-app/backend/internal/models"
	"github.com/gitdev-app/backend/internal/queue"
)

type fakeStore struct {
	created []*models.Notification
	queried []primitive.ObjectID
}

func (f *fakeStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	f.created = append(f.created, n)
	return nil
}

func (f *fakeStore) GetNotifications(ctx context.Context, receiver primitive.ObjectID, skip, limit int64) ([]models.Notification, error) {
	f.queried = append(f.queried, receiver)
	out := make([]models.Notification, 0, len(f.created))
	for _, n := range f.created {
		if n.ReceiverID == receiver {
			out = append(out, *n)
		}
	}
	return out, nil
}

type fakePrefs struct {
	prefs models.NotificationPrefs
}

func (f *fakePrefs) GetNotificationPrefs(ctx context.Context, id primitive.ObjectID) (models.NotificationPrefs, error) {
	return f.prefs, nil
}

type fakeReceivers struct {
	user *models.AuthUser
}

func (f *fakeReceivers) GetAuthUserByUserID(userID string) (*models.AuthUser, error) {
	return f.user, nil
}

type fakeHub struct {
	events []string
	users  []string
}

func (f *fakeHub) EmitToUser(namespace, userID, event string, payload any) {
	f.events = append(f.events, event)
	f.users = append(f.users, userID)
}

type fakeEnqueuer struct {
	jobs     []string
	payloads []any
}

func (f *fakeEnqueuer) Enqueue(ctx context.Context, jobName string, payload any) error {
	f.jobs = append(f.jobs, jobName)
	f.payloads = append(f.payloads, payload)
	return nil
}

func testNotification(sender, receiver primitive.ObjectID) *models.Notification {
	return &models.Notification{
		SenderID:   sender,
		ReceiverID: receiver,
		EntityType: "follow",
		EntityID:   sender,
		Message:    "alice followed you",
	}
}

func testNotifier(store *fakeStore, prefs models.NotificationPrefs, hub *fakeHub, emails *fakeEnqueuer) *Notifier {
	receivers := &fakeReceivers{user: &models.AuthUser{Username: "bob", Email: "bob@example.com"}}
	return NewNotifier(store, &fakePrefs{prefs: prefs}, receivers, hub, emails, "https://gitdev.app", zerolog.Nop())
}

func TestNotifySkipsSelf(t *testing.T) {
	store := &fakeStore{}
	hub := &fakeHub{}
	emails := &fakeEnqueuer{}
	n := testNotifier(store, models.DefaultNotificationPrefs(), hub, emails)

	me := primitive.NewObjectID()
	if err := n.Notify(context.Background(), CategoryFollows, testNotification(me, me), "/profile/x"); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(store.created) != 0 || len(hub.events) != 0 || len(emails.jobs) != 0 {
		t.Fatalf("expected nothing on self-notification")
	}
}

func TestNotifyPersistsAndBroadcasts(t *testing.T) {
	store := &fakeStore{}
	hub := &fakeHub{}
	emails := &fakeEnqueuer{}
	n := testNotifier(store, models.DefaultNotificationPrefs(), hub, emails)

	sender := primitive.NewObjectID()
	receiver := primitive.NewObjectID()
	if err := n.Notify(context.Background(), CategoryFollows, testNotification(sender, receiver), "/profile/"+sender.Hex()); err != nil {
		t.Fatalf("notify: %v", err)
	}

	if len(store.created) != 1 {
		t.Fatalf("created = %d, want 1", len(store.created))
	}
	if len(hub.events) != 1 || hub.events[0] != "notifications" {
		t.Fatalf("unexpected events %v", hub.events)
	}
	// The refreshed badge list goes to the acting user, keyed by their id.
	if hub.users[0] != sender.Hex() {
		t.Errorf("broadcast to %q, want sender", hub.users[0])
	}
	if len(store.queried) != 1 || store.queried[0] != sender {
		t.Errorf("refresh queried %v, want sender list", store.queried)
	}

	if len(emails.jobs) != 1 || emails.jobs[0] != queue.JobEmailSend {
		t.Fatalf("unexpected jobs %v", emails.jobs)
	}
	email, ok := emails.payloads[0].(mail.Email)
	if !ok {
		t.Fatalf("unexpected payload type %T", emails.payloads[0])
	}
	if email.To != "bob@example.com" {
		t.Errorf("to = %q", email.To)
	}
	if email.Subject != "[GitDev] alice followed you" {
		t.Errorf("subject = %q", email.Subject)
	}
	if !strings.Contains(email.HTML, "https://gitdev.app/profile/"+sender.Hex()) {
		t.Errorf("email body missing link")
	}
}

func TestNotifyEmailGatedByPrefs(t *testing.T) {
	store := &fakeStore{}
	hub := &fakeHub{}
	emails := &fakeEnqueuer{}
	prefs := models.DefaultNotificationPrefs()
	prefs.Follows = false
	n := testNotifier(store, prefs, hub, emails)

	if err := n.Notify(context.Background(), CategoryFollows, testNotification(primitive.NewObjectID(), primitive.NewObjectID()), "/x"); err != nil {
		t.Fatalf("notify: %v", err)
	}

	// The in-app record and realtime push still happen, only the email is
	// suppressed.
	if len(store.created) != 1 {
		t.Fatalf("created = %d, want 1", len(store.created))
	}
	if len(hub.events) != 1 {
		t.Fatalf("events = %d, want 1", len(hub.events))
	}
	if len(emails.jobs) != 0 {
		t.Fatalf("expected no email, got %v", emails.jobs)
	}
}

func TestEmailEnabled(t *testing.T) {
	prefs := models.NotificationPrefs{Messages: true, Reactions: true}
	cases := []struct {
		category Category
		want     bool
	}{
		{CategoryMessages, true},
		{CategoryFollows, false},
		{CategoryReactions, true},
		{CategoryComments, false},
		{Category("unknown"), false},
	}
	for _, tc := range cases {
		if got := emailEnabled(prefs, tc.category); got != tc.want {
			t.Errorf("emailEnabled(%s) = %v, want %v", tc.category, got, tc.want)
		}
	}
}
