package workers

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/gitdev-app/backend/internal/apperr"
	"github.com/gitdev-app/backend/internal/cache"
	"github.com/gitdev-app/backend/internal/models"
	"github.com/gitdev-app/backend/internal/notifications"
	"github.com/gitdev-app/backend/internal/queue"
	"github.com/gitdev-app/backend/internal/repositories"
)

type followCall struct {
	follower  primitive.ObjectID
	following primitive.ObjectID
}

type stubFollowRepo struct {
	repositories.FollowRepository
	followed   []followCall
	unfollowed []followCall
}

func (s *stubFollowRepo) Follow(ctx context.Context, follower, following primitive.ObjectID) error {
	s.followed = append(s.followed, followCall{follower, following})
	return nil
}

func (s *stubFollowRepo) Unfollow(ctx context.Context, follower, following primitive.ObjectID) error {
	s.unfollowed = append(s.unfollowed, followCall{follower, following})
	return nil
}

type stubUserRepo struct {
	repositories.UserRepository
}

func (s *stubUserRepo) GetUserRef(ctx context.Context, id primitive.ObjectID) (*models.UserRef, error) {
	return nil, apperr.NotFound("UserNotFound", "user not found")
}

type stubAuthRepo struct {
	repositories.AuthRepository
}

func (s *stubAuthRepo) GetAuthUserByUserID(userID string) (*models.AuthUser, error) {
	return nil, apperr.NotFound("UserNotFound", "user not found")
}

type capturingStore struct {
	created []*models.Notification
}

func (c *capturingStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	c.created = append(c.created, n)
	return nil
}

func (c *capturingStore) GetNotifications(ctx context.Context, receiver primitive.ObjectID, skip, limit int64) ([]models.Notification, error) {
	return nil, nil
}

type mutePrefs struct{}

func (mutePrefs) GetNotificationPrefs(ctx context.Context, id primitive.ObjectID) (models.NotificationPrefs, error) {
	return models.NotificationPrefs{}, nil
}

type noopHub struct{}

func (noopHub) EmitToUser(namespace, userID, event string, payload any) {}

type noopQueue struct{}

func (noopQueue) Enqueue(ctx context.Context, jobName string, payload any) error { return nil }

type followFixture struct {
	workers *Workers
	follows *stubFollowRepo
	store   *capturingStore
	cache   *cache.UserCache
}

func newFollowFixture(t *testing.T) *followFixture {
	t.Helper()
	s := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { rdb.Close() })

	client := cache.New(rdb, zerolog.Nop())
	userCache := cache.NewUserCache(client)
	lookup := repositories.NewUserLookup(userCache, &stubUserRepo{}, &stubAuthRepo{}, zerolog.Nop())

	store := &capturingStore{}
	notifier := notifications.NewNotifier(store, mutePrefs{}, &stubAuthRepo{}, noopHub{}, noopQueue{}, "https://gitdev.app", zerolog.Nop())

	follows := &stubFollowRepo{}
	w := New(nil, follows, nil, nil, nil, lookup, notifier, zerolog.Nop())
	return &followFixture{workers: w, follows: follows, store: store, cache: userCache}
}

func followJob(t *testing.T, name string, follower, following primitive.ObjectID) *queue.Job {
	t.Helper()
	payload, err := json.Marshal(queue.FollowJob{Follower: follower.Hex(), Following: following.Hex()})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return &queue.Job{ID: "job-1", Name: name, Payload: payload}
}

func TestHandleFollowCreate(t *testing.T) {
	f := newFollowFixture(t)

	follower := primitive.NewObjectID()
	following := primitive.NewObjectID()

	// Seed the sender so the notification carries the username.
	if err := f.cache.Save(context.Background(), "users", follower.Hex(), 1, map[string]any{
		"_id":      follower,
		"username": "alice",
	}); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	job := followJob(t, queue.JobFollowCreate, follower, following)
	if err := f.workers.handleFollowCreate(context.Background(), job); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if len(f.follows.followed) != 1 {
		t.Fatalf("follow calls = %d, want 1", len(f.follows.followed))
	}
	if f.follows.followed[0] != (followCall{follower, following}) {
		t.Errorf("unexpected edge %+v", f.follows.followed[0])
	}

	if len(f.store.created) != 1 {
		t.Fatalf("notifications = %d, want 1", len(f.store.created))
	}
	n := f.store.created[0]
	if n.Message != "alice followed you" {
		t.Errorf("message = %q", n.Message)
	}
	if n.ReceiverID != following || n.SenderID != follower {
		t.Errorf("unexpected parties %+v", n)
	}
}

func TestHandleFollowCreateUnknownSender(t *testing.T) {
	f := newFollowFixture(t)

	follower := primitive.NewObjectID()
	following := primitive.NewObjectID()

	job := followJob(t, queue.JobFollowCreate, follower, following)
	if err := f.workers.handleFollowCreate(context.Background(), job); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if len(f.store.created) != 1 {
		t.Fatalf("notifications = %d, want 1", len(f.store.created))
	}
	if f.store.created[0].Message != "You have a new follower" {
		t.Errorf("message = %q", f.store.created[0].Message)
	}
}

func TestHandleFollowDelete(t *testing.T) {
	f := newFollowFixture(t)

	follower := primitive.NewObjectID()
	following := primitive.NewObjectID()

	job := followJob(t, queue.JobFollowDelete, follower, following)
	if err := f.workers.handleFollowDelete(context.Background(), job); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(f.follows.unfollowed) != 1 {
		t.Fatalf("unfollow calls = %d, want 1", len(f.follows.unfollowed))
	}
	if len(f.store.created) != 0 {
		t.Fatalf("unfollow must not notify")
	}
}

func TestDecodeFollowJobRejectsBadIDs(t *testing.T) {
	payload, _ := json.Marshal(queue.FollowJob{Follower: "nope", Following: "nope"})
	job := &queue.Job{ID: "job-2", Name: queue.JobFollowCreate, Payload: payload}

	if _, _, err := decodeFollowJob(job); err == nil {
		t.Fatalf("expected error for malformed ids")
	}
}
