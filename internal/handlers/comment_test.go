package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/gitdev-app/backend/internal/apperr"
	"github.com/gitdev-app/backend/internal/models"
	"github.com/gitdev-app/backend/internal/queue"
	"github.com/gitdev-app/backend/internal/repositories"
)

type stubCommentRepo struct {
	repositories.CommentRepository
	comments map[string]*models.Comment
}

func (s *stubCommentRepo) GetCommentByID(ctx context.Context, id string) (*models.Comment, error) {
	if comment, ok := s.comments[id]; ok {
		return comment, nil
	}
	return nil, apperr.NotFound("CommentNotFound", "comment not found")
}

func newCommentHandler(env *testEnv, comments *stubCommentRepo, posts *stubPostRepo) *CommentHandler {
	return NewCommentHandler(comments, posts, env.lookup, env.hub, env.jobs, zerolog.Nop())
}

func TestCreateComment(t *testing.T) {
	env := newTestEnv(t)
	post := &models.Post{ID: primitive.NewObjectID(), UserID: primitive.NewObjectID(), CommentsEnabled: true}
	h := newCommentHandler(env,
		&stubCommentRepo{comments: map[string]*models.Comment{}},
		&stubPostRepo{posts: map[string]*models.Post{post.ID.Hex(): post}})

	c, rec := env.request(t, http.MethodPost, "/comments",
		`{"postId":"`+post.ID.Hex()+`","content":"nice write-up"}`)
	if err := h.CreateComment(c); err != nil {
		t.Fatalf("create comment: %v", err)
	}
	requireStatus(t, rec, http.StatusCreated)

	if len(env.jobs.jobs) != 1 || env.jobs.jobs[0].Name != queue.JobCommentCreate {
		t.Fatalf("unexpected jobs %+v", env.jobs.jobs)
	}
	comment, ok := env.jobs.jobs[0].Payload.(*models.Comment)
	if !ok {
		t.Fatalf("unexpected payload type %T", env.jobs.jobs[0].Payload)
	}
	if comment.ID.IsZero() {
		t.Errorf("expected id assigned before enqueue")
	}
	if comment.User == nil || comment.User.Username != "alice" {
		t.Errorf("author not joined: %+v", comment.User)
	}
	if len(env.hub.emitted) != 1 || env.hub.emitted[0].Event != "comment" {
		t.Fatalf("unexpected emissions %+v", env.hub.emitted)
	}
}

func TestCreateCommentDisabled(t *testing.T) {
	env := newTestEnv(t)
	post := &models.Post{ID: primitive.NewObjectID(), CommentsEnabled: false}
	h := newCommentHandler(env,
		&stubCommentRepo{comments: map[string]*models.Comment{}},
		&stubPostRepo{posts: map[string]*models.Post{post.ID.Hex(): post}})

	c, _ := env.request(t, http.MethodPost, "/comments",
		`{"postId":"`+post.ID.Hex()+`","content":"hello"}`)
	err := h.CreateComment(c)
	requireAPIError(t, err, http.StatusForbidden)

	if len(env.jobs.jobs) != 0 || len(env.hub.emitted) != 0 {
		t.Fatalf("disabled post must not produce side effects")
	}
}

func TestCreateCommentReplyAcrossPosts(t *testing.T) {
	env := newTestEnv(t)
	post := &models.Post{ID: primitive.NewObjectID(), CommentsEnabled: true}
	parent := &models.Comment{ID: primitive.NewObjectID(), PostID: primitive.NewObjectID()}
	h := newCommentHandler(env,
		&stubCommentRepo{comments: map[string]*models.Comment{parent.ID.Hex(): parent}},
		&stubPostRepo{posts: map[string]*models.Post{post.ID.Hex(): post}})

	c, _ := env.request(t, http.MethodPost, "/comments",
		`{"postId":"`+post.ID.Hex()+`","content":"hi","parentCommentId":"`+parent.ID.Hex()+`"}`)
	err := h.CreateComment(c)
	requireAPIError(t, err, http.StatusBadRequest)
}

func TestUpdateCommentRejectsForeignComment(t *testing.T) {
	env := newTestEnv(t)
	comment := &models.Comment{ID: primitive.NewObjectID(), UserID: primitive.NewObjectID()}
	h := newCommentHandler(env,
		&stubCommentRepo{comments: map[string]*models.Comment{comment.ID.Hex(): comment}},
		&stubPostRepo{posts: map[string]*models.Post{}})

	c, _ := env.request(t, http.MethodPut, "/comments/"+comment.ID.Hex(), `{"content":"edited"}`)
	c.SetParamNames("commentId")
	c.SetParamValues(comment.ID.Hex())

	err := h.UpdateComment(c)
	requireAPIError(t, err, http.StatusForbidden)
	if len(env.jobs.jobs) != 0 {
		t.Fatalf("nothing should be enqueued, got %+v", env.jobs.jobs)
	}
}

func TestVoteComment(t *testing.T) {
	env := newTestEnv(t)
	comment := &models.Comment{ID: primitive.NewObjectID(), UserID: primitive.NewObjectID()}
	h := newCommentHandler(env,
		&stubCommentRepo{comments: map[string]*models.Comment{comment.ID.Hex(): comment}},
		&stubPostRepo{posts: map[string]*models.Post{}})

	c, rec := env.request(t, http.MethodPost, "/comments/"+comment.ID.Hex()+"/vote", `{"value":-1}`)
	c.SetParamNames("commentId")
	c.SetParamValues(comment.ID.Hex())

	if err := h.VoteComment(c); err != nil {
		t.Fatalf("vote: %v", err)
	}
	requireStatus(t, rec, http.StatusOK)

	if len(env.jobs.jobs) != 1 || env.jobs.jobs[0].Name != queue.JobCommentVote {
		t.Fatalf("unexpected jobs %+v", env.jobs.jobs)
	}
	payload, ok := env.jobs.jobs[0].Payload.(queue.CommentVoteJob)
	if !ok {
		t.Fatalf("unexpected payload type %T", env.jobs.jobs[0].Payload)
	}
	if payload.CommentID != comment.ID.Hex() || payload.UserID != env.userID.Hex() || payload.Value != -1 {
		t.Errorf("unexpected payload %+v", payload)
	}
}
