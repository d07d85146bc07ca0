package handlers

import (
	"net/http"
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

// ReactionHandler serves the post reaction endpoints.
type ReactionHandler struct {
	cache     *cache.ReactionCache
	reactions repositories.ReactionRepository
	lookup    *repositories.UserLookup
	hub       Broadcaster
	jobs      Enqueuer
	log       zerolog.Logger
}

// NewReactionHandler creates a new ReactionHandler.
func NewReactionHandler(reactionCache *cache.ReactionCache, reactions repositories.ReactionRepository, lookup *repositories.UserLookup, hub Broadcaster, jobs Enqueuer, log zerolog.Logger) *ReactionHandler {
	return &ReactionHandler{
		cache:     reactionCache,
		reactions: reactions,
		lookup:    lookup,
		hub:       hub,
		jobs:      jobs,
		log:       log.With().Str("component", "reactions").Logger(),
	}
}

// RegisterRoutes registers reaction endpoints.
func (h *ReactionHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/reactions", h.CreateReaction)
	g.DELETE("/reactions/:postId/:kind", h.DeleteReaction)
	g.GET("/reactions/:postId", h.GetPostReactions)
	g.GET("/reactions/:postId/user/:userId", h.GetPostReactionByUser)
	g.GET("/reactions/user/:userId", h.GetReactionsByUser)
}

// CreateReaction reacts to a post. Re-sending the stored kind is a no-op,
// a different kind swaps the counters in one step.
func (h *ReactionHandler) CreateReaction(c echo.Context) error {
	user := currentUser(c)

	var req models.CreateReactionRequest
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

	now := time.Now()
	reaction := &models.Reaction{
		ID:        primitive.NewObjectID(),
		PostID:    postID,
		UserID:    user.ObjectID(),
		Kind:      req.Kind,
		CreatedAt: now,
		UpdatedAt: now,
	}

	ctx := c.Request().Context()
	if err := h.cache.Save(ctx, reaction); err != nil {
		return err
	}

	reaction.User = h.lookup.Ref(ctx, reaction.UserID)
	h.hub.Emit(realtime.NamespacePosts, "reaction", reaction)

	if err := h.jobs.Enqueue(ctx, queue.JobReactionCreate, reaction); err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "reaction added successfully", nil)
}

// DeleteReaction removes the caller's reaction of the given kind.
func (h *ReactionHandler) DeleteReaction(c echo.Context) error {
	user := currentUser(c)
	postID := c.Param("postId")
	kind := c.Param("kind")

	if !models.ValidReactionKind(kind) {
		return apperr.Validation("unknown reaction type " + kind)
	}

	ctx := c.Request().Context()
	if err := h.cache.Delete(ctx, postID, user.UserID, kind); err != nil {
		return err
	}

	h.hub.Emit(realtime.NamespacePosts, "remove-reaction", echo.Map{
		"postId": postID,
		"userId": user.UserID,
		"type":   kind,
	})

	if err := h.jobs.Enqueue(ctx, queue.JobReactionDelete, queue.ReactionDeleteJob{
		PostID: postID,
		UserID: user.UserID,
		Kind:   kind,
	}); err != nil {
		return err
	}
	return respond(c, http.StatusOK, "reaction deleted successfully", nil)
}

// GetPostReactions lists a post's reactions, cache first.
func (h *ReactionHandler) GetPostReactions(c echo.Context) error {
	postID := c.Param("postId")
	ctx := c.Request().Context()

	reactions, total, err := h.cache.Get(ctx, postID)
	if err != nil {
		return err
	}
	if total == 0 {
		objID, err := primitive.ObjectIDFromHex(postID)
		if err != nil {
			return apperr.Validation("invalid post ID format")
		}
		var dbTotal int64
		reactions, dbTotal, err = h.reactions.GetPostReactions(ctx, objID)
		if err != nil {
			return err
		}
		total = int(dbTotal)
	}

	for i := range reactions {
		reactions[i].User = h.lookup.Ref(ctx, reactions[i].UserID)
	}

	return respond(c, http.StatusOK, "reactions retrieved successfully", echo.Map{
		"reactions": reactions,
		"total":     total,
	})
}

// GetPostReactionByUser fetches one user's reaction on a post.
func (h *ReactionHandler) GetPostReactionByUser(c echo.Context) error {
	postID := c.Param("postId")
	userID := c.Param("userId")
	ctx := c.Request().Context()

	reaction, err := h.cache.GetByUser(ctx, postID, userID)
	if err != nil {
		return err
	}
	if reaction == nil {
		postObjID, err := primitive.ObjectIDFromHex(postID)
		if err != nil {
			return apperr.Validation("invalid post ID format")
		}
		userObjID, err := primitive.ObjectIDFromHex(userID)
		if err != nil {
			return apperr.Validation("invalid user ID format")
		}
		reaction, err = h.reactions.GetPostReactionByUser(ctx, postObjID, userObjID)
		if err != nil {
			return err
		}
	}
	if reaction == nil {
		return respond(c, http.StatusOK, "no reaction found", nil)
	}

	reaction.User = h.lookup.Ref(ctx, reaction.UserID)
	return respond(c, http.StatusOK, "reaction retrieved successfully", reaction)
}

// GetReactionsByUser lists every reaction one user has made.
func (h *ReactionHandler) GetReactionsByUser(c echo.Context) error {
	userID := c.Param("userId")
	ctx := c.Request().Context()

	reactions, err := h.cache.GetAllByUser(ctx, userID)
	if err != nil {
		return err
	}
	if len(reactions) == 0 {
		objID, err := primitive.ObjectIDFromHex(userID)
		if err != nil {
			return apperr.Validation("invalid user ID format")
		}
		reactions, _, err = h.reactions.GetReactionsByUser(ctx, objID)
		if err != nil {
			return err
		}
	}

	for i := range reactions {
		reactions[i].User = h.lookup.Ref(ctx, reactions[i].UserID)
	}

	return respond(c, http.StatusOK, "reactions retrieved successfully", echo.Map{
		"reactions": reactions,
		"total":     len(reactions),
	})
}
