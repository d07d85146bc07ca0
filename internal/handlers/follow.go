package handlers

import (
	"net/http"
	"strconv"

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

// FollowPageSize is the number of follow edges returned per page.
const FollowPageSize = 10

// FollowHandler serves the follow graph endpoints.
type FollowHandler struct {
	cache   *cache.FollowCache
	follows repositories.FollowRepository
	users   repositories.UserRepository
	lookup  *repositories.UserLookup
	hub     Broadcaster
	jobs    Enqueuer
	log     zerolog.Logger
}

// NewFollowHandler creates a new FollowHandler.
func NewFollowHandler(followCache *cache.FollowCache, follows repositories.FollowRepository, users repositories.UserRepository, lookup *repositories.UserLookup, hub Broadcaster, jobs Enqueuer, log zerolog.Logger) *FollowHandler {
	return &FollowHandler{
		cache:   followCache,
		follows: follows,
		users:   users,
		lookup:  lookup,
		hub:     hub,
		jobs:    jobs,
		log:     log.With().Str("component", "follows").Logger(),
	}
}

// RegisterRoutes registers follow endpoints.
func (h *FollowHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/follows/:followingId", h.Follow)
	g.DELETE("/follows/:followingId", h.Unfollow)
	g.GET("/follows/:type/:userId/:page", h.GetFollows)
}

// Follow makes the caller follow another user.
func (h *FollowHandler) Follow(c echo.Context) error {
	user := currentUser(c)
	followingID := c.Param("followingId")

	if followingID == user.UserID {
		return apperr.Validation("you cannot follow yourself")
	}
	if _, err := primitive.ObjectIDFromHex(followingID); err != nil {
		return apperr.Validation("invalid user ID format")
	}

	ctx := c.Request().Context()
	if _, err := h.users.GetUserByID(ctx, followingID); err != nil {
		return err
	}

	if err := h.cache.Follow(ctx, user.UserID, followingID); err != nil {
		return err
	}

	h.hub.EmitToUser(realtime.NamespaceFollows, followingID, "follow", echo.Map{
		"follower":  user.UserID,
		"following": followingID,
	})

	if err := h.jobs.Enqueue(ctx, queue.JobFollowCreate, queue.FollowJob{
		Follower:  user.UserID,
		Following: followingID,
	}); err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "followed successfully", nil)
}

// Unfollow removes the caller's follow edge to another user.
func (h *FollowHandler) Unfollow(c echo.Context) error {
	user := currentUser(c)
	followingID := c.Param("followingId")

	if _, err := primitive.ObjectIDFromHex(followingID); err != nil {
		return apperr.Validation("invalid user ID format")
	}

	ctx := c.Request().Context()
	if err := h.cache.Unfollow(ctx, user.UserID, followingID); err != nil {
		return err
	}

	h.hub.EmitToUser(realtime.NamespaceFollows, followingID, "unfollow", echo.Map{
		"follower":  user.UserID,
		"following": followingID,
	})

	if err := h.jobs.Enqueue(ctx, queue.JobFollowDelete, queue.FollowJob{
		Follower:  user.UserID,
		Following: followingID,
	}); err != nil {
		return err
	}
	return respond(c, http.StatusOK, "unfollowed successfully", nil)
}

// GetFollows pages through a user's followers or following list, cache
// first with a store fallback.
func (h *FollowHandler) GetFollows(c echo.Context) error {
	followType := c.Param("type")
	userID := c.Param("userId")

	if followType != models.FollowTypeFollowers && followType != models.FollowTypeFollowing {
		return apperr.Validation("follow type must be followers or following")
	}
	page, err := strconv.Atoi(c.Param("page"))
	if err != nil || page < 1 {
		return apperr.Validation("invalid page number")
	}
	userObjID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return apperr.Validation("invalid user ID format")
	}

	ctx := c.Request().Context()
	skip, limit, r := cache.PageRange(page, FollowPageSize)

	refs, err := h.cache.GetRange(ctx, followType+":"+userID, r)
	if err != nil {
		return err
	}

	if len(refs) == 0 {
		edges, err := h.follows.GetFollows(ctx, userObjID, followType, skip, limit)
		if err != nil {
			return err
		}
		for _, edge := range edges {
			other := edge.Follower
			if followType == models.FollowTypeFollowing {
				other = edge.Following
			}
			if ref := h.lookup.Ref(ctx, other); ref != nil {
				refs = append(refs, *ref)
			}
		}
	} else {
		// Cache range carries id and avatar only, join the usernames.
		for i := range refs {
			if ref := h.lookup.Ref(ctx, refs[i].ID); ref != nil {
				refs[i] = *ref
			}
		}
	}

	return respond(c, http.StatusOK, "follows retrieved successfully", echo.Map{
		"users": refs,
		"total": len(refs),
	})
}
