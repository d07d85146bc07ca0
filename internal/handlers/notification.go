package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/gitdev-app/backend/internal/apperr"
	"github.com/gitdev-app/backend/internal/cache"
	"github.com/gitdev-app/backend/internal/realtime"
	"github.com/gitdev-app/backend/internal/repositories"
)

// NotificationPageSize is the number of notifications returned per page.
const NotificationPageSize = 10

// NotificationHandler serves the in-app notification endpoints.
type NotificationHandler struct {
	notifications repositories.NotificationRepository
	lookup        *repositories.UserLookup
	hub           Broadcaster
	log           zerolog.Logger
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(notifications repositories.NotificationRepository, lookup *repositories.UserLookup, hub Broadcaster, log zerolog.Logger) *NotificationHandler {
	return &NotificationHandler{
		notifications: notifications,
		lookup:        lookup,
		hub:           hub,
		log:           log.With().Str("component", "notifications").Logger(),
	}
}

// RegisterRoutes registers notification endpoints.
func (h *NotificationHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/notifications/:page", h.GetNotifications)
	g.PUT("/notifications/:id/read", h.MarkAsRead)
	g.DELETE("/notifications/:id", h.DeleteNotification)
}

// GetNotifications pages through the caller's notifications, newest first.
func (h *NotificationHandler) GetNotifications(c echo.Context) error {
	user := currentUser(c)

	page, err := strconv.Atoi(c.Param("page"))
	if err != nil || page < 1 {
		return apperr.Validation("invalid page number")
	}

	ctx := c.Request().Context()
	skip, limit, _ := cache.PageRange(page, NotificationPageSize)

	notifications, err := h.notifications.GetNotifications(ctx, user.ObjectID(), skip, limit)
	if err != nil {
		return err
	}
	for i := range notifications {
		notifications[i].Sender = h.lookup.Ref(ctx, notifications[i].SenderID)
	}

	return respond(c, http.StatusOK, "notifications retrieved successfully", notifications)
}

// MarkAsRead flags one notification as read.
func (h *NotificationHandler) MarkAsRead(c echo.Context) error {
	user := currentUser(c)
	id := c.Param("id")

	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return apperr.Validation("invalid notification ID format")
	}

	if err := h.notifications.MarkAsRead(c.Request().Context(), id); err != nil {
		return err
	}

	h.hub.EmitToUser(realtime.NamespaceNotifications, user.UserID, "notification", echo.Map{
		"_id":  id,
		"read": true,
	})
	return respond(c, http.StatusOK, "notification marked as read", nil)
}

// DeleteNotification removes one notification.
func (h *NotificationHandler) DeleteNotification(c echo.Context) error {
	user := currentUser(c)
	id := c.Param("id")

	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return apperr.Validation("invalid notification ID format")
	}

	if err := h.notifications.DeleteNotification(c.Request().Context(), id); err != nil {
		return err
	}

	h.hub.EmitToUser(realtime.NamespaceNotifications, user.UserID, "notification", echo.Map{
		"_id":     id,
		"deleted": true,
	})
	return respond(c, http.StatusOK, "notification deleted successfully", nil)
}
