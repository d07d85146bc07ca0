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

// ReactionRepository defines the interface for authoritative reaction data
// operations.
type ReactionRepository interface {
	SaveReaction(ctx context.Context, reaction *models.Reaction) error
	DeleteReaction(ctx context.Context, postID, userID primitive.ObjectID, kind string) error
	GetPostReactions(ctx context.Context, postID primitive.ObjectID) ([]models.Reaction, int64, error)
	GetPostReactionByUser(ctx context.Context, postID, userID primitive.ObjectID) (*models.Reaction, error)
	GetReactionsByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Reaction, int64, error)
}

// MongoReactionRepository implements ReactionRepository for MongoDB.
type MongoReactionRepository struct {
	collection *mongo.Collection
	posts      *mongo.Collection
}

// NewMongoReactionRepository creates a new MongoReactionRepository.
func NewMongoReactionRepository(db *mongo.Database) *MongoReactionRepository {
	return &MongoReactionRepository{
		collection: db.Collection("reactions"),
		posts:      db.Collection("posts"),
	}
}

// SaveReaction replaces the (post, user) reaction and adjusts the post's
// per-kind counters: the previous kind (if any) is decremented and the new
// kind incremented in one update. Re-creating the same kind leaves the
// counters unchanged.
func (r *MongoReactionRepository) SaveReaction(ctx context.Context, reaction *models.Reaction) error {
	filter := bson.M{"postId": reaction.PostID, "user": reaction.UserID}

	var previous models.Reaction
	previousKind := ""
	err := r.collection.FindOne(ctx, filter).Decode(&previous)
	if err != nil && err != mongo.ErrNoDocuments {
		return err
	}
	if err == nil {
		previousKind = previous.Kind
	}

	if previousKind == reaction.Kind {
		return nil
	}

	reaction.UpdatedAt = time.Now()
	if _, err := r.collection.ReplaceOne(ctx, filter, reaction, options.Replace().SetUpsert(true)); err != nil {
		return err
	}

	inc := bson.M{"reactions." + reaction.Kind: 1}
	if previousKind != "" {
		inc["reactions."+previousKind] = -1
	}
	_, err = r.posts.UpdateOne(ctx, bson.M{"_id": reaction.PostID}, bson.M{"$inc": inc})
	return err
}

// DeleteReaction removes the (post, user) reaction of the given kind and
// decrements its counter. Deleting an absent reaction is ReactionNotFound,
// a different stored kind is ReactionTypeMismatch.
func (r *MongoReactionRepository) DeleteReaction(ctx context.Context, postID, userID primitive.ObjectID, kind string) error {
	filter := bson.M{"postId": postID, "user": userID}

	var reaction models.Reaction
	err := r.collection.FindOne(ctx, filter).Decode(&reaction)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return apperr.NotFound("ReactionNotFound", "reaction not found")
		}
		return err
	}
	if reaction.Kind != kind {
		return apperr.New("ReactionTypeMismatch", 400, "reaction type does not match")
	}

	if _, err := r.collection.DeleteOne(ctx, filter); err != nil {
		return err
	}
	_, err = r.posts.UpdateOne(ctx, bson.M{"_id": postID}, bson.M{"$inc": bson.M{"reactions." + kind: -1}})
	return err
}

// GetPostReactions lists every reaction on a post with the total.
func (r *MongoReactionRepository) GetPostReactions(ctx context.Context, postID primitive.ObjectID) ([]models.Reaction, int64, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"postId": postID}, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var reactions []models.Reaction
	if err = cursor.All(ctx, &reactions); err != nil {
		return nil, 0, err
	}
	return reactions, int64(len(reactions)), nil
}

// GetPostReactionByUser fetches one user's reaction on a post, nil when
// there is none.
func (r *MongoReactionRepository) GetPostReactionByUser(ctx context.Context, postID, userID primitive.ObjectID) (*models.Reaction, error) {
	var reaction models.Reaction
	err := r.collection.FindOne(ctx, bson.M{"postId": postID, "user": userID}).Decode(&reaction)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &reaction, nil
}

// GetReactionsByUser lists every reaction a user has made.
func (r *MongoReactionRepository) GetReactionsByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Reaction, int64, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"user": userID})
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var reactions []models.Reaction
	if err = cursor.All(ctx, &reactions); err != nil {
		return nil, 0, err
	}
	return reactions, int64(len(reactions)), nil
}
