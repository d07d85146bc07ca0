package workers

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/gitdev-app/backend/internal/models"
	"github.com/gitdev-app/backend/internal/notifications"
	"github.com/gitdev-app/backend/internal/queue"
)

func (w *Workers) reactionHandlers() map[string]queue.HandlerFunc {
	return map[string]queue.HandlerFunc{
		queue.JobReactionCreate: w.handleReactionCreate,
		queue.JobReactionDelete: w.handleReactionDelete,
	}
}

func (w *Workers) handleReactionCreate(ctx context.Context, job *queue.Job) error {
	var reaction models.Reaction
	if err := job.Decode(&reaction); err != nil {
		return err
	}

	if err := w.reactions.SaveReaction(ctx, &reaction); err != nil {
		return err
	}

	post, err := w.posts.GetPostByID(ctx, reaction.PostID.Hex())
	if err != nil {
		w.log.Warn().Err(err).Str("post", reaction.PostID.Hex()).Msg("post gone before reaction notification")
		return nil
	}

	message := "Someone reacted to your post"
	if ref := w.lookup.Ref(ctx, reaction.UserID); ref != nil && ref.Username != "" {
		message = ref.Username + " reacted with " + reaction.Kind + " to your post"
	}
	return w.notifier.Notify(ctx, notifications.CategoryReactions, &models.Notification{
		SenderID:          reaction.UserID,
		ReceiverID:        post.UserID,
		EntityType:        "reaction",
		EntityID:          reaction.ID,
		RelatedEntityType: "post",
		RelatedEntityID:   post.ID,
		Message:           message,
	}, "/posts/"+post.ID.Hex())
}

func (w *Workers) handleReactionDelete(ctx context.Context, job *queue.Job) error {
	var payload queue.ReactionDeleteJob
	if err := job.Decode(&payload); err != nil {
		return err
	}

	postID, err := primitive.ObjectIDFromHex(payload.PostID)
	if err != nil {
		return err
	}
	userID, err := primitive.ObjectIDFromHex(payload.UserID)
	if err != nil {
		return err
	}
	return w.reactions.DeleteReaction(ctx, postID, userID, payload.Kind)
}
