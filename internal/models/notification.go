package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationRetention is the window after which the TTL index purges a
// notification record.
const NotificationRetention = 7 * 24 * time.Hour

// Notification is an in-app notification derived from a social action.
// Records auto-expire through a TTL index on ExpiresAt.
type Notification struct {
	ID                primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	SenderID          primitive.ObjectID `json:"senderId" bson:"sender"`
	ReceiverID        primitive.ObjectID `json:"receiverId" bson:"receiver"`
	EntityType        string             `json:"entityType" bson:"entityType"`
	EntityID          primitive.ObjectID `json:"entityId" bson:"entityId"`
	RelatedEntityType string             `json:"relatedEntityType" bson:"relatedEntityType"`
	RelatedEntityID   primitive.ObjectID `json:"relatedEntityId" bson:"relatedEntityId"`
	Message           string             `json:"message" bson:"message"`
	Read              bool               `json:"read" bson:"read"`
	ExpiresAt         time.Time          `json:"expiresAt" bson:"expiresAt"`
	CreatedAt         time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt         time.Time          `json:"updatedAt" bson:"updatedAt"`

	Sender *UserRef `json:"sender,omitempty" bson:"-"`
}
