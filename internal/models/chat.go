package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message content types.
const (
	MessageTypeText  = "text"
	MessageTypeImage = "image"
	MessageTypeFile  = "file"
	MessageTypeGif   = "gif"
)

// Message deletion modes. Deleting "for everyone" also implies "for me".
const (
	DeletionForMe       = "forMe"
	DeletionForEveryone = "forEveryone"
)

// Chat is a direct-message thread between two users.
type Chat struct {
	ID        primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	From      primitive.ObjectID `json:"from" bson:"from"`
	To        primitive.ObjectID `json:"to" bson:"to"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
}

// MessageBody is the typed content of a chat message.
type MessageBody struct {
	Type    string `json:"type" bson:"type"`
	Content string `json:"content" bson:"content"`
}

// MessageReaction is a per-user emoji reaction on a message.
type MessageReaction struct {
	From     primitive.ObjectID `json:"from" bson:"from"`
	Reaction string             `json:"reaction" bson:"reaction"`
}

// ChatMessage is one message in a thread. Soft-delete flags are independent
// per the deletion mode; DeletedForEveryone always sets DeletedForMe too.
type ChatMessage struct {
	ID                 primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	ChatID             primitive.ObjectID `json:"chatId" bson:"chat"`
	From               primitive.ObjectID `json:"from" bson:"from"`
	To                 primitive.ObjectID `json:"to" bson:"to"`
	Body               MessageBody        `json:"message" bson:"message"`
	IsRead             bool               `json:"isRead" bson:"isRead"`
	Reactions          []MessageReaction  `json:"reactions" bson:"reactions"`
	DeletedForMe       bool               `json:"deleteForMe" bson:"deleteForMe"`
	DeletedForEveryone bool               `json:"deleteForEveryone" bson:"deleteForEveryone"`
	CreatedAt          time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt          time.Time          `json:"updatedAt" bson:"updatedAt"`

	FromUser *UserRef `json:"fromUser,omitempty" bson:"-"`
	ToUser   *UserRef `json:"toUser,omitempty" bson:"-"`
}

// SendMessageRequest defines the request body for sending a chat message.
// ChatID is empty on the first message of a new thread.
type SendMessageRequest struct {
	ChatID  string      `json:"chatId" validate:"omitempty,len=24,hexadecimal"`
	IsRead  bool        `json:"isRead"`
	Message MessageBody `json:"message" validate:"required"`
}

// ChatUsersRequest adds or removes an open-conversation roster entry.
type ChatUsersRequest struct {
	To string `json:"to" validate:"required,len=24,hexadecimal"`
}

// MessageReactionRequest defines the request body for reacting to a message.
type MessageReactionRequest struct {
	Reaction string `json:"reaction" validate:"required,min=1,max=16"`
}
