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

// FollowRepository defines the interface for follow edge data operations.
type FollowRepository interface {
	Follow(ctx context.Context, follower, following primitive.ObjectID) error
	Unfollow(ctx context.Context, follower, following primitive.ObjectID) error
	IsFollowing(ctx context.Context, follower, following primitive.ObjectID) (bool, error)
	GetFollows(ctx context.Context, userID primitive.ObjectID, followType string, skip, limit int64) ([]models.Follow, error)
}

// MongoFollowRepository implements FollowRepository for MongoDB.
type MongoFollowRepository struct {
	collection *mongo.Collection
	users      UserRepository
}

// NewMongoFollowRepository creates a new MongoFollowRepository.
func NewMongoFollowRepository(db *mongo.Database, users UserRepository) *MongoFollowRepository {
	return &MongoFollowRepository{collection: db.Collection("follows"), users: users}
}

// Follow records an edge and bumps both users' counters. The edge is
// upserted so a replayed job cannot double count.
func (r *MongoFollowRepository) Follow(ctx context.Context, follower, following primitive.ObjectID) error {
	filter := bson.M{"follower": follower, "following": following}
	update := bson.M{"$setOnInsert": models.Follow{
		ID:        primitive.NewObjectID(),
		Follower:  follower,
		Following: following,
		CreatedAt: time.Now(),
	}}
	res, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return err
	}
	if res.UpsertedCount == 0 {
		return nil
	}
	return r.users.AdjustFollowCounts(ctx, follower, following, 1)
}

// Unfollow deletes the edge and reverses the counters. A missing edge is
// NotFollowing.
func (r *MongoFollowRepository) Unfollow(ctx context.Context, follower, following primitive.ObjectID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"follower": follower, "following": following})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return apperr.New("NotFollowing", 400, "you are not following this user")
	}
	return r.users.AdjustFollowCounts(ctx, follower, following, -1)
}

// IsFollowing reports whether the edge exists.
func (r *MongoFollowRepository) IsFollowing(ctx context.Context, follower, following primitive.ObjectID) (bool, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"follower": follower, "following": following})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetFollows lists the edges of one side. For followers the match is on
// the following field, for following on the follower field.
func (r *MongoFollowRepository) GetFollows(ctx context.Context, userID primitive.ObjectID, followType string, skip, limit int64) ([]models.Follow, error) {
	matchField := "follower"
	if followType == models.FollowTypeFollowers {
		matchField = "following"
	}

	opts := options.Find().SetSkip(skip).SetLimit(limit).SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{matchField: userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var follows []models.Follow
	if err = cursor.All(ctx, &follows); err != nil {
		return nil, err
	}
	return follows, nil
}
