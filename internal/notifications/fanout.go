// Package notifications turns social actions (follows, reactions, comments,
// chat messages) into in-app notifications, realtime pushes and optional
// emails.
package notifications

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"github.com/rs/zerolog"

	"github.com/gitdev-app/backend/internal/mail"
	"github.com/gitdev-app/backend/internal/models"
	"github.com/gitdev-app/backend/internal/queue"
	"github.com/gitdev-app/backend/internal/realtime"
)

// Category selects which preference flag gates the email leg.
type Category string

const (
	CategoryMessages  Category = "messages"
	CategoryFollows   Category = "follows"
	CategoryReactions Category = "reactions"
	CategoryComments  Category = "comments"
)

// Store is the slice of the notification repository the notifier needs.
type Store interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	GetNotifications(ctx context.Context, receiver primitive.ObjectID, skip, limit int64) ([]models.Notification, error)
}

// PrefsLookup resolves a receiver's email preference flags.
type PrefsLookup interface {
	GetNotificationPrefs(ctx context.Context, id primitive.ObjectID) (models.NotificationPrefs, error)
}

// Receivers resolves the receiver's address for the email leg.
type Receivers interface {
	GetAuthUserByUserID(userID string) (*models.AuthUser, error)
}

// Broadcaster pushes refreshed notification lists to connected clients.
type Broadcaster interface {
	EmitToUser(namespace, userID, event string, payload any)
}

// Enqueuer hands rendered emails to the email queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, jobName string, payload any) error
}

// Notifier performs notification fan-out.
type Notifier struct {
	store     Store
	prefs     PrefsLookup
	receivers Receivers
	hub       Broadcaster
	emails    Enqueuer
	clientURL string
	log       zerolog.Logger
}

func NewNotifier(store Store, prefs PrefsLookup, receivers Receivers, hub Broadcaster, emails Enqueuer, clientURL string, log zerolog.Logger) *Notifier {
	return &Notifier{
		store:     store,
		prefs:     prefs,
		receivers: receivers,
		hub:       hub,
		emails:    emails,
		clientURL: clientURL,
		log:       log.With().Str("component", "notifier").Logger(),
	}
}

// Notify runs the full fan-out: persist the record, refresh the sender's
// recent notification list and push it to the sender's listeners on the
// notifications namespace, and when the receiver's preference for the
// category is on, render and enqueue an email. Actions on one's own content
// are skipped entirely. The in-app record is never gated by the email
// preference.
func (n *Notifier) Notify(ctx context.Context, category Category, notification *models.Notification, link string) error {
	if notification.SenderID == notification.ReceiverID {
		return nil
	}

	if err := n.store.CreateNotification(ctx, notification); err != nil {
		return err
	}

	recent, err := n.store.GetNotifications(ctx, notification.SenderID, 0, 20)
	if err != nil {
		n.log.Error().Err(err).Msg("failed to fetch notifications for broadcast")
	} else {
		n.hub.EmitToUser(realtime.NamespaceNotifications, notification.SenderID.Hex(), "notifications", recent)
	}

	prefs, err := n.prefs.GetNotificationPrefs(ctx, notification.ReceiverID)
	if err != nil {
		n.log.Warn().Err(err).Str("receiver", notification.ReceiverID.Hex()).Msg("failed to load notification prefs")
		return nil
	}
	if !emailEnabled(prefs, category) {
		return nil
	}

	receiver, err := n.receivers.GetAuthUserByUserID(notification.ReceiverID.Hex())
	if err != nil {
		n.log.Warn().Err(err).Str("receiver", notification.ReceiverID.Hex()).Msg("failed to resolve receiver email")
		return nil
	}

	html, err := mail.Render("notification.html", mail.TemplateData{
		Username: receiver.Username,
		Message:  notification.Message,
		Link:     n.clientURL + link,
	})
	if err != nil {
		n.log.Error().Err(err).Msg("failed to render notification email")
		return nil
	}

	email := mail.Email{
		To:      receiver.Email,
		Subject: "[GitDev] " + notification.Message,
		HTML:    html,
	}
	if err := n.emails.Enqueue(ctx, queue.JobEmailSend, email); err != nil {
		n.log.Error().Err(err).Str("to", receiver.Email).Msg("failed to enqueue email")
	}
	return nil
}

func emailEnabled(prefs models.NotificationPrefs, category Category) bool {
	switch category {
	case CategoryMessages:
		return prefs.Messages
	case CategoryFollows:
		return prefs.Follows
	case CategoryReactions:
		return prefs.Reactions
	case CategoryComments:
		return prefs.Comments
	}
	return false
}
