package workers

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/gitdev-app/backend/internal/models"
	"github.com/gitdev-app/backend/internal/notifications"
	"github.com/gitdev-app/backend/internal/queue"
)

func (w *Workers) followHandlers() map[string]queue.HandlerFunc {
	return map[string]queue.HandlerFunc{
		queue.JobFollowCreate: w.handleFollowCreate,
		queue.JobFollowDelete: w.handleFollowDelete,
	}
}

func (w *Workers) handleFollowCreate(ctx context.Context, job *queue.Job) error {
	follower, following, err := decodeFollowJob(job)
	if err != nil {
		return err
	}

	if err := w.follows.Follow(ctx, follower, following); err != nil {
		return err
	}

	message := "You have a new follower"
	if ref := w.lookup.Ref(ctx, follower); ref != nil && ref.Username != "" {
		message = ref.Username + " followed you"
	}
	return w.notifier.Notify(ctx, notifications.CategoryFollows, &models.Notification{
		SenderID:   follower,
		ReceiverID: following,
		EntityType: "follow",
		EntityID:   follower,
		Message:    message,
	}, "/profile/"+follower.Hex())
}

func (w *Workers) handleFollowDelete(ctx context.Context, job *queue.Job) error {
	follower, following, err := decodeFollowJob(job)
	if err != nil {
		return err
	}
	return w.follows.Unfollow(ctx, follower, following)
}

func decodeFollowJob(job *queue.Job) (follower, following primitive.ObjectID, err error) {
	var payload queue.FollowJob
	if err = job.Decode(&payload); err != nil {
		return
	}
	if follower, err = primitive.ObjectIDFromHex(payload.Follower); err != nil {
		return
	}
	following, err = primitive.ObjectIDFromHex(payload.Following)
	return
}
