package handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/gitdev-app/backend/internal/apperr"
	"github.com/gitdev-app/backend/internal/cache"
	"github.com/gitdev-app/backend/internal/models"
	"github.com/gitdev-app/backend/internal/realtime"
	"github.com/gitdev-app/backend/internal/repositories"
)

// UserHandler serves the profile endpoints. Profiles are read cache first
// and written straight through, the profile store is small enough that no
// background job is involved.
type UserHandler struct {
	cache *cache.UserCache
	users repositories.UserRepository
	auth  repositories.AuthRepository
	hub   Broadcaster
	log   zerolog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userCache *cache.UserCache, users repositories.UserRepository, auth repositories.AuthRepository, hub Broadcaster, log zerolog.Logger) *UserHandler {
	return &UserHandler{
		cache: userCache,
		users: users,
		auth:  auth,
		hub:   hub,
		log:   log.With().Str("component", "users").Logger(),
	}
}

// RegisterRoutes registers user endpoints.
func (h *UserHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/users/me", h.GetMe)
	g.GET("/users/search", h.SearchUsers)
	g.GET("/users/:id", h.GetUser)
	g.PUT("/users/me", h.UpdateProfile)
	g.PUT("/users/me/notifications", h.UpdateNotificationPrefs)
}

// GetMe returns the caller's own profile.
func (h *UserHandler) GetMe(c echo.Context) error {
	user := currentUser(c)
	return h.getProfile(c, user.UserID)
}

// GetUser returns another user's profile.
func (h *UserHandler) GetUser(c echo.Context) error {
	id := c.Param("id")
	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return apperr.Validation("invalid user ID format")
	}
	return h.getProfile(c, id)
}

// UpdateProfile updates the caller's profile fields and refreshes the
// cached projection.
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	user := currentUser(c)

	var req models.UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	updated, err := h.users.UpdateProfile(ctx, user.UserID, &req)
	if err != nil {
		return err
	}
	updated.Username = user.Username

	if err := h.cache.Save(ctx, "users", user.UserID, user.RedisID, updated); err != nil {
		h.log.Warn().Err(err).Str("user", user.UserID).Msg("failed refreshing profile cache")
	}

	if req.Avatar != "" {
		h.hub.Emit(realtime.NamespaceUsers, "avatar", echo.Map{
			"userId": user.UserID,
			"avatar": req.Avatar,
		})
	}

	return respond(c, http.StatusOK, "profile updated successfully", updated)
}

// UpdateNotificationPrefs merges the request's set flags onto the caller's
// stored email preferences.
func (h *UserHandler) UpdateNotificationPrefs(c echo.Context) error {
	user := currentUser(c)

	var req models.NotificationPrefsRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request payload")
	}

	ctx := c.Request().Context()
	prefs, err := h.users.GetNotificationPrefs(ctx, user.ObjectID())
	if err != nil {
		return err
	}

	if req.Messages != nil {
		prefs.Messages = *req.Messages
	}
	if req.Follows != nil {
		prefs.Follows = *req.Follows
	}
	if req.Reactions != nil {
		prefs.Reactions = *req.Reactions
	}
	if req.Comments != nil {
		prefs.Comments = *req.Comments
	}

	if err := h.users.UpdateNotificationPrefs(ctx, user.UserID, prefs); err != nil {
		return err
	}
	return respond(c, http.StatusOK, "notification preferences updated", prefs)
}

// SearchUsers looks up usernames by prefix and joins the matching profiles.
func (h *UserHandler) SearchUsers(c echo.Context) error {
	term := strings.TrimSpace(c.QueryParam("q"))
	if term == "" {
		return apperr.Validation("search term is required")
	}

	authUsers, err := h.auth.SearchAuthUsers(term, 20)
	if err != nil {
		return err
	}
	if len(authUsers) == 0 {
		return respond(c, http.StatusOK, "users retrieved successfully", []models.User{})
	}

	usernames := make(map[primitive.ObjectID]string, len(authUsers))
	ids := make([]primitive.ObjectID, 0, len(authUsers))
	for _, au := range authUsers {
		id, err := primitive.ObjectIDFromHex(au.UserID)
		if err != nil {
			continue
		}
		ids = append(ids, id)
		usernames[id] = au.Username
	}

	users, err := h.users.GetUsersByIDs(c.Request().Context(), ids)
	if err != nil {
		return err
	}
	for i := range users {
		users[i].Username = usernames[users[i].ID]
	}

	return respond(c, http.StatusOK, "users retrieved successfully", users)
}

// getProfile reads the cached profile, falling back to the store with a
// username join, and refills the cache on a miss.
func (h *UserHandler) getProfile(c echo.Context, id string) error {
	ctx := c.Request().Context()

	var user models.User
	found, err := h.cache.Get(ctx, "users", id, &user)
	if err != nil {
		return err
	}
	if found {
		return respond(c, http.StatusOK, "user retrieved successfully", user)
	}

	fromDB, err := h.users.GetUserByID(ctx, id)
	if err != nil {
		return err
	}
	authUser, err := h.auth.GetAuthUserByUserID(id)
	if err == nil {
		fromDB.Username = authUser.Username
	}

	if err := h.cache.Save(ctx, "users", id, int64(fromDB.AuthUserID), fromDB); err != nil {
		h.log.Warn().Err(err).Str("user", id).Msg("failed refilling profile cache")
	}
	return respond(c, http.StatusOK, "user retrieved successfully", fromDB)
}
