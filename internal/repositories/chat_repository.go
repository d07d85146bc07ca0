package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/gitdev-app/backend/internal/apperr"
	"github.com/gitdev-app/backend/internal/models"
)

// ChatRepository defines the interface for chat thread and message data
// operations.
type ChatRepository interface {
	SaveMessage(ctx context.Context, msg *models.ChatMessage) error
	GetUserDMs(ctx context.Context, userID primitive.ObjectID) ([]models.ChatMessage, error)
	GetMessages(ctx context.Context, from, to primitive.ObjectID) ([]models.ChatMessage, error)
	DeleteMessage(ctx context.Context, messageID primitive.ObjectID, deletionType string) error
	ReadMessages(ctx context.Context, from, to primitive.ObjectID) error
	ReactToMessage(ctx context.Context, messageID, from primitive.ObjectID, reaction string) error
}

// MongoChatRepository implements ChatRepository for MongoDB.
type MongoChatRepository struct {
	chats    *mongo.Collection
	messages *mongo.Collection
}

// NewMongoChatRepository creates a new MongoChatRepository.
func NewMongoChatRepository(db *mongo.Database) *MongoChatRepository {
	return &MongoChatRepository{
		chats:    db.Collection("chats"),
		messages: db.Collection("messages"),
	}
}

// SaveMessage persists a message, creating its thread document on first
// contact. Both ids were assigned at cache-write time so replays replace
// instead of duplicating.
func (r *MongoChatRepository) SaveMessage(ctx context.Context, msg *models.ChatMessage) error {
	chat := bson.M{"$setOnInsert": models.Chat{
		ID:        msg.ChatID,
		From:      msg.From,
		To:        msg.To,
		CreatedAt: time.Now(),
	}}
	_, err := r.chats.UpdateOne(ctx, bson.M{"_id": msg.ChatID}, chat, options.Update().SetUpsert(true))
	if err != nil {
		return err
	}

	_, err = r.messages.ReplaceOne(ctx, bson.M{"_id": msg.ID}, msg, options.Replace().SetUpsert(true))
	return err
}

// GetUserDMs returns the latest message of every thread the user is part
// of, newest thread first.
func (r *MongoChatRepository) GetUserDMs(ctx context.Context, userID primitive.ObjectID) ([]models.ChatMessage, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"$or": bson.A{bson.M{"from": userID}, bson.M{"to": userID}}}}},
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}}}},
		{{Key: "$group", Value: bson.M{"_id": "$chat", "message": bson.M{"$first": "$$ROOT"}}}},
		{{Key: "$replaceRoot", Value: bson.M{"newRoot": "$message"}}},
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}}}},
	}

	cursor, err := r.messages.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var messages []models.ChatMessage
	if err = cursor.All(ctx, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// GetMessages returns the full conversation between two users, oldest
// first.
func (r *MongoChatRepository) GetMessages(ctx context.Context, from, to primitive.ObjectID) ([]models.ChatMessage, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := r.messages.Find(ctx, betweenUsers(from, to), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var messages []models.ChatMessage
	if err = cursor.All(ctx, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// DeleteMessage soft-deletes a message. Deleting for everyone marks both
// flags.
func (r *MongoChatRepository) DeleteMessage(ctx context.Context, messageID primitive.ObjectID, deletionType string) error {
	set := bson.M{"deleteForMe": true, "updatedAt": time.Now()}
	if deletionType == models.DeletionForEveryone {
		set["deleteForEveryone"] = true
	}

	res, err := r.messages.UpdateOne(ctx, bson.M{"_id": messageID}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("MessageNotFound", "message not found")
	}
	return nil
}

// ReadMessages marks every unread message between two users as read.
func (r *MongoChatRepository) ReadMessages(ctx context.Context, from, to primitive.ObjectID) error {
	filter := betweenUsers(from, to)
	filter["isRead"] = false
	_, err := r.messages.UpdateMany(ctx, filter, bson.M{"$set": bson.M{"isRead": true}})
	return err
}

// ReactToMessage applies one user's emoji to a message: same emoji again
// removes it, a different one replaces it, otherwise it is appended.
func (r *MongoChatRepository) ReactToMessage(ctx context.Context, messageID, from primitive.ObjectID, reaction string) error {
	var msg models.ChatMessage
	err := r.messages.FindOne(ctx, bson.M{"_id": messageID, "reactions.from": from}).Decode(&msg)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			_, err = r.messages.UpdateOne(ctx, bson.M{"_id": messageID},
				bson.M{"$push": bson.M{"reactions": models.MessageReaction{From: from, Reaction: reaction}}})
			return err
		}
		return err
	}

	for _, existing := range msg.Reactions {
		if existing.From != from {
			continue
		}
		if existing.Reaction == reaction {
			_, err = r.messages.UpdateOne(ctx, bson.M{"_id": messageID},
				bson.M{"$pull": bson.M{"reactions": bson.M{"from": from}}})
			return err
		}
		_, err = r.messages.UpdateOne(ctx, bson.M{"_id": messageID, "reactions.from": from},
			bson.M{"$set": bson.M{"reactions.$.reaction": reaction}})
		return err
	}
	return nil
}

// betweenUsers matches messages in either direction of a pair.
func betweenUsers(a, b primitive.ObjectID) bson.M {
	return bson.M{"$or": bson.A{
		bson.M{"from": a, "to": b},
		bson.M{"from": b, "to": a},
	}}
}
