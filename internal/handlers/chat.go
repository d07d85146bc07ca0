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

// ChatHandler serves the direct-message endpoints.
type ChatHandler struct {
	cache  *cache.ChatCache
	chats  repositories.ChatRepository
	lookup *repositories.UserLookup
	hub    Broadcaster
	jobs   Enqueuer
	log    zerolog.Logger
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(chatCache *cache.ChatCache, chats repositories.ChatRepository, lookup *repositories.UserLookup, hub Broadcaster, jobs Enqueuer, log zerolog.Logger) *ChatHandler {
	return &ChatHandler{
		cache:  chatCache,
		chats:  chats,
		lookup: lookup,
		hub:    hub,
		jobs:   jobs,
		log:    log.With().Str("component", "chat").Logger(),
	}
}

// RegisterRoutes registers chat endpoints.
func (h *ChatHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/chat/messages/:to", h.SendMessage)
	g.GET("/chat/dms", h.GetUserDMs)
	g.GET("/chat/messages/:to", h.GetMessages)
	g.PUT("/chat/messages/read/:to", h.ReadMessages)
	g.DELETE("/chat/messages/:to/:messageId/:deletionType", h.DeleteMessage)
	g.POST("/chat/messages/:messageId/reactions", h.ReactToMessage)
	g.POST("/chat/users", h.AddChatUsers)
	g.DELETE("/chat/users", h.RemoveChatUsers)
}

// SendMessage stores a message in the thread with :to, creating the thread
// on the first message.
func (h *ChatHandler) SendMessage(c echo.Context) error {
	user := currentUser(c)
	to := c.Param("to")

	toObjID, err := primitive.ObjectIDFromHex(to)
	if err != nil {
		return apperr.Validation("invalid user ID format")
	}
	if to == user.UserID {
		return apperr.Validation("you cannot message yourself")
	}

	var req models.SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	chatID := primitive.NewObjectID()
	if req.ChatID != "" {
		chatID, err = primitive.ObjectIDFromHex(req.ChatID)
		if err != nil {
			return apperr.Validation("invalid chat ID format")
		}
	}

	now := time.Now()
	msg := &models.ChatMessage{
		ID:        primitive.NewObjectID(),
		ChatID:    chatID,
		From:      user.ObjectID(),
		To:        toObjID,
		Body:      req.Message,
		IsRead:    req.IsRead,
		CreatedAt: now,
		UpdatedAt: now,
	}

	ctx := c.Request().Context()
	if err := h.cache.AddChatList(ctx, user.UserID, to, chatID.Hex()); err != nil {
		return err
	}
	if err := h.cache.AddChatList(ctx, to, user.UserID, chatID.Hex()); err != nil {
		return err
	}
	if err := h.cache.SaveMessage(ctx, chatID.Hex(), msg); err != nil {
		return err
	}

	msg.FromUser = h.lookup.Ref(ctx, msg.From)
	msg.ToUser = h.lookup.Ref(ctx, msg.To)
	h.hub.EmitToUser(realtime.NamespaceChat, to, "message", msg)
	h.hub.EmitToUser(realtime.NamespaceChat, to, "dms", msg)
	h.hub.EmitToUser(realtime.NamespaceChat, user.UserID, "dms", msg)

	if err := h.jobs.Enqueue(ctx, queue.JobChatMessageSave, msg); err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "message sent successfully", msg)
}

// GetUserDMs lists the latest message of each of the caller's threads.
func (h *ChatHandler) GetUserDMs(c echo.Context) error {
	user := currentUser(c)
	ctx := c.Request().Context()

	messages, err := h.cache.GetUserDMs(ctx, user.UserID)
	if err != nil {
		return err
	}
	if len(messages) == 0 {
		messages, err = h.chats.GetUserDMs(ctx, user.ObjectID())
		if err != nil {
			return err
		}
	}

	h.joinUsers(c, messages)
	return respond(c, http.StatusOK, "dms retrieved successfully", messages)
}

// GetMessages returns the full thread between the caller and :to.
func (h *ChatHandler) GetMessages(c echo.Context) error {
	user := currentUser(c)
	to := c.Param("to")

	toObjID, err := primitive.ObjectIDFromHex(to)
	if err != nil {
		return apperr.Validation("invalid user ID format")
	}

	ctx := c.Request().Context()
	messages, err := h.cache.GetMessages(ctx, user.UserID, to)
	if err != nil {
		return err
	}
	if len(messages) == 0 {
		messages, err = h.chats.GetMessages(ctx, user.ObjectID(), toObjID)
		if err != nil {
			return err
		}
	}

	h.joinUsers(c, messages)
	return respond(c, http.StatusOK, "messages retrieved successfully", messages)
}

// ReadMessages marks every message from :to as read.
func (h *ChatHandler) ReadMessages(c echo.Context) error {
	user := currentUser(c)
	to := c.Param("to")

	if _, err := primitive.ObjectIDFromHex(to); err != nil {
		return apperr.Validation("invalid user ID format")
	}

	ctx := c.Request().Context()
	last, err := h.cache.ReadMessages(ctx, user.UserID, to)
	if err != nil {
		return err
	}

	h.hub.EmitToUser(realtime.NamespaceChat, to, "read_messages", echo.Map{
		"from": user.UserID,
		"to":   to,
	})
	if last != nil {
		h.hub.EmitToUser(realtime.NamespaceChat, to, "dms", last)
		h.hub.EmitToUser(realtime.NamespaceChat, user.UserID, "dms", last)
	}

	if err := h.jobs.Enqueue(ctx, queue.JobChatMessageRead, queue.ChatReadJob{
		From: user.UserID,
		To:   to,
	}); err != nil {
		return err
	}
	return respond(c, http.StatusOK, "messages marked as read", nil)
}

// DeleteMessage soft-deletes one message per the deletion mode.
func (h *ChatHandler) DeleteMessage(c echo.Context) error {
	user := currentUser(c)
	to := c.Param("to")
	messageID := c.Param("messageId")
	deletionType := c.Param("deletionType")

	if deletionType != models.DeletionForMe && deletionType != models.DeletionForEveryone {
		return apperr.Validation("deletion type must be forMe or forEveryone")
	}
	if _, err := primitive.ObjectIDFromHex(messageID); err != nil {
		return apperr.Validation("invalid message ID format")
	}

	ctx := c.Request().Context()
	msg, err := h.cache.DeleteMessage(ctx, user.UserID, to, messageID, deletionType)
	if err != nil {
		return err
	}

	if deletionType == models.DeletionForEveryone {
		h.hub.EmitToUser(realtime.NamespaceChat, to, "delete_message", echo.Map{
			"messageId": messageID,
			"from":      user.UserID,
		})
		if msg != nil {
			h.hub.EmitToUser(realtime.NamespaceChat, to, "dms", msg)
		}
	}

	if err := h.jobs.Enqueue(ctx, queue.JobChatMessageDelete, queue.ChatDeleteJob{
		MessageID:    messageID,
		DeletionType: deletionType,
	}); err != nil {
		return err
	}
	return respond(c, http.StatusOK, "message deleted successfully", nil)
}

// ReactToMessage toggles the caller's emoji on a message. The thread partner
// comes from the "to" query parameter.
func (h *ChatHandler) ReactToMessage(c echo.Context) error {
	user := currentUser(c)
	messageID := c.Param("messageId")
	to := c.QueryParam("to")

	if _, err := primitive.ObjectIDFromHex(messageID); err != nil {
		return apperr.Validation("invalid message ID format")
	}
	if _, err := primitive.ObjectIDFromHex(to); err != nil {
		return apperr.Validation("invalid user ID format")
	}

	var req models.MessageReactionRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	msg, err := h.cache.ReactToMessage(ctx, user.UserID, to, messageID, req.Reaction)
	if err != nil {
		return err
	}

	if msg != nil {
		h.hub.EmitToUser(realtime.NamespaceChat, to, "message_reaction", msg)
		h.hub.EmitToUser(realtime.NamespaceChat, to, "dms", msg)
	}

	if err := h.jobs.Enqueue(ctx, queue.JobChatMessageReact, queue.ChatReactJob{
		MessageID: messageID,
		From:      user.UserID,
		Reaction:  req.Reaction,
	}); err != nil {
		return err
	}
	return respond(c, http.StatusOK, "reaction updated successfully", nil)
}

// AddChatUsers adds the caller's open conversation with :to to the shared
// roster and broadcasts the updated roster.
func (h *ChatHandler) AddChatUsers(c echo.Context) error {
	user := currentUser(c)

	var req models.ChatUsersRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	roster, err := h.cache.AddChatUsers(c.Request().Context(), cache.ChatUsers{
		From: user.UserID,
		To:   req.To,
	})
	if err != nil {
		return err
	}

	h.hub.Emit(realtime.NamespaceChat, "add_chat", roster)
	return respond(c, http.StatusOK, "chat users updated successfully", roster)
}

// RemoveChatUsers drops the caller's open conversation with :to from the
// shared roster and broadcasts the updated roster.
func (h *ChatHandler) RemoveChatUsers(c echo.Context) error {
	user := currentUser(c)

	var req models.ChatUsersRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	roster, err := h.cache.RemoveChatUsers(c.Request().Context(), cache.ChatUsers{
		From: user.UserID,
		To:   req.To,
	})
	if err != nil {
		return err
	}

	h.hub.Emit(realtime.NamespaceChat, "remove_chat", roster)
	return respond(c, http.StatusOK, "chat users updated successfully", roster)
}

func (h *ChatHandler) joinUsers(c echo.Context, messages []models.ChatMessage) {
	ctx := c.Request().Context()
	for i := range messages {
		messages[i].FromUser = h.lookup.Ref(ctx, messages[i].From)
		messages[i].ToUser = h.lookup.Ref(ctx, messages[i].To)
	}
}
