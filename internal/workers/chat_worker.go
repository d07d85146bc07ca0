package workers

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/gitdev-app/backend/internal/models"
	"github.com/gitdev-app/backend/internal/notifications"
	"github.com/gitdev-app/backend/internal/queue"
)

func (w *Workers) chatHandlers() map[string]queue.HandlerFunc {
	return map[string]queue.HandlerFunc{
		queue.JobChatMessageSave:   w.handleChatMessageSave,
		queue.JobChatMessageDelete: w.handleChatMessageDelete,
		queue.JobChatMessageRead:   w.handleChatMessageRead,
		queue.JobChatMessageReact:  w.handleChatMessageReact,
	}
}

// handleChatMessageSave persists the message and, when the receiver has
// not read it yet, notifies them.
func (w *Workers) handleChatMessageSave(ctx context.Context, job *queue.Job) error {
	var msg models.ChatMessage
	if err := job.Decode(&msg); err != nil {
		return err
	}

	if err := w.chats.SaveMessage(ctx, &msg); err != nil {
		return err
	}
	if msg.IsRead {
		return nil
	}

	message := "You have a new message"
	if ref := w.lookup.Ref(ctx, msg.From); ref != nil && ref.Username != "" {
		message = ref.Username + " sent you a message"
	}
	return w.notifier.Notify(ctx, notifications.CategoryMessages, &models.Notification{
		SenderID:   msg.From,
		ReceiverID: msg.To,
		EntityType: "message",
		EntityID:   msg.ID,
		Message:    message,
	}, "/chat/"+msg.From.Hex())
}

func (w *Workers) handleChatMessageDelete(ctx context.Context, job *queue.Job) error {
	var payload queue.ChatDeleteJob
	if err := job.Decode(&payload); err != nil {
		return err
	}
	id, err := primitive.ObjectIDFromHex(payload.MessageID)
	if err != nil {
		return err
	}
	return w.chats.DeleteMessage(ctx, id, payload.DeletionType)
}

func (w *Workers) handleChatMessageRead(ctx context.Context, job *queue.Job) error {
	var payload queue.ChatReadJob
	if err := job.Decode(&payload); err != nil {
		return err
	}
	from, err := primitive.ObjectIDFromHex(payload.From)
	if err != nil {
		return err
	}
	to, err := primitive.ObjectIDFromHex(payload.To)
	if err != nil {
		return err
	}
	return w.chats.ReadMessages(ctx, from, to)
}

func (w *Workers) handleChatMessageReact(ctx context.Context, job *queue.Job) error {
	var payload queue.ChatReactJob
	if err := job.Decode(&payload); err != nil {
		return err
	}
	messageID, err := primitive.ObjectIDFromHex(payload.MessageID)
	if err != nil {
		return err
	}
	from, err := primitive.ObjectIDFromHex(payload.From)
	if err != nil {
		return err
	}
	return w.chats.ReactToMessage(ctx, messageID, from, payload.Reaction)
}
