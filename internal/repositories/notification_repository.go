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

// NotificationRepository defines the interface for notification data
// operations.
type NotificationRepository interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	GetNotifications(ctx context.Context, receiver primitive.ObjectID, skip, limit int64) ([]models.Notification, error)
	MarkAsRead(ctx context.Context, id string) error
	DeleteNotification(ctx context.Context, id string) error
	EnsureTTLIndex(ctx context.Context) error
}

// MongoNotificationRepository implements NotificationRepository for MongoDB.
type MongoNotificationRepository struct {
	collection *mongo.Collection
}

// NewMongoNotificationRepository creates a new MongoNotificationRepository.
func NewMongoNotificationRepository(db *mongo.Database) *MongoNotificationRepository {
	return &MongoNotificationRepository{collection: db.Collection("notifications")}
}

// CreateNotification inserts a record stamped to expire after the
// retention window.
func (r *MongoNotificationRepository) CreateNotification(ctx context.Context, n *models.Notification) error {
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	n.CreatedAt = time.Now()
	n.UpdatedAt = n.CreatedAt
	n.ExpiresAt = n.CreatedAt.Add(models.NotificationRetention)
	_, err := r.collection.InsertOne(ctx, n)
	return err
}

// GetNotifications lists a receiver's notifications newest first.
func (r *MongoNotificationRepository) GetNotifications(ctx context.Context, receiver primitive.ObjectID, skip, limit int64) ([]models.Notification, error) {
	opts := options.Find().SetSkip(skip).SetLimit(limit).SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"receiver": receiver}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var notifications []models.Notification
	if err = cursor.All(ctx, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

// MarkAsRead flags one notification as read.
func (r *MongoNotificationRepository) MarkAsRead(ctx context.Context, id string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return apperr.Validation("invalid notification ID format")
	}

	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": objID}, bson.M{"$set": bson.M{
		"read":      true,
		"updatedAt": time.Now(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("NotificationNotFound", "notification not found")
	}
	return nil
}

// DeleteNotification removes one notification.
func (r *MongoNotificationRepository) DeleteNotification(ctx context.Context, id string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return apperr.Validation("invalid notification ID format")
	}
	_, err = r.collection.DeleteOne(ctx, bson.M{"_id": objID})
	return err
}

// EnsureTTLIndex creates the expiry index on expiresAt so Mongo purges old
// records itself.
func (r *MongoNotificationRepository) EnsureTTLIndex(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expiresAt", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	return err
}
