package workers

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/gitdev-app/backend/internal/models"
	"github.com/gitdev-app/backend/internal/notifications"
	"github.com/gitdev-app/backend/internal/queue"
)

func (w *Workers) commentHandlers() map[string]queue.HandlerFunc {
	return map[string]queue.HandlerFunc{
		queue.JobCommentCreate: w.handleCommentCreate,
		queue.JobCommentUpdate: w.handleCommentUpdate,
		queue.JobCommentDelete: w.handleCommentDelete,
		queue.JobCommentVote:   w.handleCommentVote,
	}
}

// handleCommentCreate persists the comment and notifies the post owner
// and, for a reply, the parent comment's owner.
func (w *Workers) handleCommentCreate(ctx context.Context, job *queue.Job) error {
	var comment models.Comment
	if err := job.Decode(&comment); err != nil {
		return err
	}

	if err := w.comments.SaveComment(ctx, &comment); err != nil {
		return err
	}

	message := "Someone commented on your post"
	if ref := w.lookup.Ref(ctx, comment.UserID); ref != nil && ref.Username != "" {
		message = ref.Username + " commented on your post"
	}
	link := "/posts/" + comment.PostID.Hex()

	post, err := w.posts.GetPostByID(ctx, comment.PostID.Hex())
	if err != nil {
		w.log.Warn().Err(err).Str("post", comment.PostID.Hex()).Msg("post gone before comment notification")
		return nil
	}

	if err := w.notifier.Notify(ctx, notifications.CategoryComments, &models.Notification{
		SenderID:          comment.UserID,
		ReceiverID:        post.UserID,
		EntityType:        "comment",
		EntityID:          comment.ID,
		RelatedEntityType: "post",
		RelatedEntityID:   post.ID,
		Message:           message,
	}, link); err != nil {
		return err
	}

	if comment.ParentCommentID == nil {
		return nil
	}
	parent, err := w.comments.GetCommentByID(ctx, comment.ParentCommentID.Hex())
	if err != nil {
		w.log.Warn().Err(err).Str("comment", comment.ParentCommentID.Hex()).Msg("parent gone before reply notification")
		return nil
	}
	// skip a duplicate when the post owner replied to their own thread
	if parent.UserID == post.UserID {
		return nil
	}
	replyMessage := "Someone replied to your comment"
	if ref := w.lookup.Ref(ctx, comment.UserID); ref != nil && ref.Username != "" {
		replyMessage = ref.Username + " replied to your comment"
	}
	return w.notifier.Notify(ctx, notifications.CategoryComments, &models.Notification{
		SenderID:          comment.UserID,
		ReceiverID:        parent.UserID,
		EntityType:        "comment",
		EntityID:          comment.ID,
		RelatedEntityType: "comment",
		RelatedEntityID:   parent.ID,
		Message:           replyMessage,
	}, link)
}

func (w *Workers) handleCommentUpdate(ctx context.Context, job *queue.Job) error {
	var payload queue.CommentUpdateJob
	if err := job.Decode(&payload); err != nil {
		return err
	}
	id, err := primitive.ObjectIDFromHex(payload.CommentID)
	if err != nil {
		return err
	}
	return w.comments.UpdateComment(ctx, id, payload.Content)
}

func (w *Workers) handleCommentDelete(ctx context.Context, job *queue.Job) error {
	var comment models.Comment
	if err := job.Decode(&comment); err != nil {
		return err
	}
	return w.comments.DeleteComment(ctx, &comment)
}

func (w *Workers) handleCommentVote(ctx context.Context, job *queue.Job) error {
	var payload queue.CommentVoteJob
	if err := job.Decode(&payload); err != nil {
		return err
	}

	commentID, err := primitive.ObjectIDFromHex(payload.CommentID)
	if err != nil {
		return err
	}
	userID, err := primitive.ObjectIDFromHex(payload.UserID)
	if err != nil {
		return err
	}
	_, err = w.comments.VoteComment(ctx, commentID, userID, payload.Value)
	return err
}
