package workers

import (
	"context"

	"github.com/gitdev-app/backend/internal/models"
	"github.com/gitdev-app/backend/internal/queue"
)

func (w *Workers) postHandlers() map[string]queue.HandlerFunc {
	return map[string]queue.HandlerFunc{
		queue.JobPostCreate: w.handlePostCreate,
		queue.JobPostUpdate: w.handlePostUpdate,
		queue.JobPostDelete: w.handlePostDelete,
	}
}

func (w *Workers) handlePostCreate(ctx context.Context, job *queue.Job) error {
	var post models.Post
	if err := job.Decode(&post); err != nil {
		return err
	}
	return w.posts.SavePost(ctx, &post)
}

func (w *Workers) handlePostUpdate(ctx context.Context, job *queue.Job) error {
	var post models.Post
	if err := job.Decode(&post); err != nil {
		return err
	}
	return w.posts.UpdatePost(ctx, &post)
}

func (w *Workers) handlePostDelete(ctx context.Context, job *queue.Job) error {
	var post models.Post
	if err := job.Decode(&post); err != nil {
		return err
	}
	return w.posts.DeletePost(ctx, post.ID.Hex())
}
