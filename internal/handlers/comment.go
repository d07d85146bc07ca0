package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/gitdev-app/backend/internal/apperr"
	"github.com/gitdev-app/backend/internal/cache"
	"github.com/gitdev-app/backend/internal/models"
	"github.com/gitdev-app/backend/internal/queue"
	"github.com/gitdev-app/backend/internal/realtime"
	"github.com/gitdev-app/backend/internal/repositories"
)

// CommentPageSize is the number of comments returned per page.
const CommentPageSize = 10

// CommentHandler serves the comment endpoints. Reads go straight to the
// store; writes are broadcast and handed to the queue.
type CommentHandler struct {
	comments repositories.CommentRepository
	posts    repositories.PostRepository
	lookup   *repositories.UserLookup
	hub      Broadcaster
	jobs     Enqueuer
	log      zerolog.Logger
}

// NewCommentHandler creates a new CommentHandler.
func NewCommentHandler(comments repositories.CommentRepository, posts repositories.PostRepository, lookup *repositories.UserLookup, hub Broadcaster, jobs Enqueuer, log zerolog.Logger) *CommentHandler {
	return &CommentHandler{
		comments: comments,
		posts:    posts,
		lookup:   lookup,
		hub:      hub,
		jobs:     jobs,
		log:      log.With().Str("component", "comments").Logger(),
	}
}

// RegisterRoutes registers comment endpoints.
func (h *CommentHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/comments", h.CreateComment)
	g.GET("/comments/post/:postId/:page", h.GetComments)
	g.PUT("/comments/:commentId", h.UpdateComment)
	g.DELETE("/comments/:commentId", h.DeleteComment)
	g.POST("/comments/:commentId/vote", h.VoteComment)
}

// CreateComment adds a comment or a reply to a post.
func (h *CommentHandler) CreateComment(c echo.Context) error {
	user := currentUser(c)

	var req models.CreateCommentRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	postID, err := primitive.ObjectIDFromHex(req.PostID)
	if err != nil {
		return apperr.Validation("invalid post ID format")
	}

	ctx := c.Request().Context()
	post, err := h.posts.GetPostByID(ctx, req.PostID)
	if err != nil {
		return err
	}
	if !post.CommentsEnabled {
		return apperr.Forbidden("comments are disabled on this post")
	}

	now := time.Now()
	comment := &models.Comment{
		ID:        primitive.NewObjectID(),
		PostID:    postID,
		UserID:    user.ObjectID(),
		Content:   req.Content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.ParentCommentID != "" {
		parent, err := h.comments.GetCommentByID(ctx, req.ParentCommentID)
		if err != nil {
			return err
		}
		if parent.PostID != postID {
			return apperr.Validation("parent comment belongs to another post")
		}
		comment.ParentCommentID = &parent.ID
	}

	comment.User = h.lookup.Ref(ctx, comment.UserID)
	h.hub.Emit(realtime.NamespacePosts, "comment", comment)

	if err := h.jobs.Enqueue(ctx, queue.JobCommentCreate, comment); err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "comment created successfully", comment)
}

// GetComments pages through a post's comments, newest first, with the
// requesting user's active vote joined onto each one.
func (h *CommentHandler) GetComments(c echo.Context) error {
	user := currentUser(c)

	postID, err := primitive.ObjectIDFromHex(c.Param("postId"))
	if err != nil {
		return apperr.Validation("invalid post ID format")
	}
	page, err := strconv.Atoi(c.Param("page"))
	if err != nil || page < 1 {
		return apperr.Validation("invalid page number")
	}

	ctx := c.Request().Context()
	skip, limit, _ := cache.PageRange(page, CommentPageSize)

	comments, err := h.comments.GetComments(ctx, postID, user.ObjectID(), skip, limit)
	if err != nil {
		return err
	}
	total, err := h.comments.CountComments(ctx, postID)
	if err != nil {
		return err
	}

	for i := range comments {
		comments[i].User = h.lookup.Ref(ctx, comments[i].UserID)
	}

	return respond(c, http.StatusOK, "comments retrieved successfully", echo.Map{
		"comments": comments,
		"total":    total,
	})
}

// UpdateComment edits the caller's comment.
func (h *CommentHandler) UpdateComment(c echo.Context) error {
	var req models.UpdateCommentRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	comment, err := h.ownedComment(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	comment.Content = req.Content
	comment.UpdatedAt = time.Now()
	h.hub.Emit(realtime.NamespacePosts, "update-comment", comment)

	if err := h.jobs.Enqueue(ctx, queue.JobCommentUpdate, queue.CommentUpdateJob{
		CommentID: comment.ID.Hex(),
		Content:   req.Content,
	}); err != nil {
		return err
	}
	return respond(c, http.StatusOK, "comment updated successfully", nil)
}

// DeleteComment removes the caller's comment, its votes and, for a root
// comment, its replies.
func (h *CommentHandler) DeleteComment(c echo.Context) error {
	comment, err := h.ownedComment(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	h.hub.Emit(realtime.NamespacePosts, "delete-comment", echo.Map{
		"commentId": comment.ID.Hex(),
		"postId":    comment.PostID.Hex(),
	})

	if err := h.jobs.Enqueue(ctx, queue.JobCommentDelete, comment); err != nil {
		return err
	}
	return respond(c, http.StatusOK, "comment deleted successfully", nil)
}

// VoteComment applies the caller's vote. Repeating the stored value
// toggles the vote off, the opposite value flips it in place.
func (h *CommentHandler) VoteComment(c echo.Context) error {
	user := currentUser(c)

	var req models.VoteCommentRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	comment, err := h.comments.GetCommentByID(ctx, c.Param("commentId"))
	if err != nil {
		return err
	}

	h.hub.Emit(realtime.NamespacePosts, "vote-comment", echo.Map{
		"commentId": comment.ID.Hex(),
		"userId":    user.UserID,
		"value":     req.Value,
	})

	if err := h.jobs.Enqueue(ctx, queue.JobCommentVote, queue.CommentVoteJob{
		CommentID: comment.ID.Hex(),
		UserID:    user.UserID,
		Value:     req.Value,
	}); err != nil {
		return err
	}
	return respond(c, http.StatusOK, "vote recorded successfully", nil)
}

// ownedComment loads the comment from the path and checks the caller
// owns it.
func (h *CommentHandler) ownedComment(c echo.Context) (*models.Comment, error) {
	user := currentUser(c)

	comment, err := h.comments.GetCommentByID(c.Request().Context(), c.Param("commentId"))
	if err != nil {
		return nil, err
	}
	if comment.UserID != user.ObjectID() {
		return nil, apperr.Forbidden("you do not own this comment")
	}
	return comment, nil
}
