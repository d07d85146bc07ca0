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

// PostRepository defines the interface for authoritative post data
// operations. Writes arrive from job workers, so they must be idempotent:
// ids are assigned at cache-write time and persisted with replace-by-id.
type PostRepository interface {
	SavePost(ctx context.Context, post *models.Post) error
	GetPostByID(ctx context.Context, id string) (*models.Post, error)
	GetPosts(ctx context.Context, skip, limit int64) ([]models.Post, error)
	CountPosts(ctx context.Context) (int64, error)
	UpdatePost(ctx context.Context, post *models.Post) error
	DeletePost(ctx context.Context, id string) error
	AdjustCommentsCount(ctx context.Context, postID primitive.ObjectID, delta int) error
}

// MongoPostRepository implements PostRepository for MongoDB.
type MongoPostRepository struct {
	collection *mongo.Collection
	users      UserRepository
}

// NewMongoPostRepository creates a new MongoPostRepository.
func NewMongoPostRepository(db *mongo.Database, users UserRepository) *MongoPostRepository {
	return &MongoPostRepository{collection: db.Collection("posts"), users: users}
}

// SavePost persists a post under its preassigned id and bumps the author's
// post counter. Replayed jobs replace the same document without a second
// counter bump.
func (r *MongoPostRepository) SavePost(ctx context.Context, post *models.Post) error {
	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": post.ID}, post, options.Replace().SetUpsert(true))
	if err != nil {
		return err
	}
	if res.UpsertedCount > 0 {
		return r.users.IncPostsCount(ctx, post.UserID, 1)
	}
	return nil
}

// GetPostByID retrieves a post by ID.
func (r *MongoPostRepository) GetPostByID(ctx context.Context, id string) (*models.Post, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperr.Validation("invalid post ID format")
	}

	var post models.Post
	err = r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&post)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperr.NotFound("PostNotFound", "post not found")
		}
		return nil, err
	}
	return &post, nil
}

// GetPosts retrieves posts newest first with pagination. It serves reads
// when the cache window misses.
func (r *MongoPostRepository) GetPosts(ctx context.Context, skip, limit int64) ([]models.Post, error) {
	opts := options.Find().SetSkip(skip).SetLimit(limit).SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var posts []models.Post
	if err = cursor.All(ctx, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// CountPosts counts every stored post.
func (r *MongoPostRepository) CountPosts(ctx context.Context) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.D{})
}

// UpdatePost applies the editable fields of an existing post.
func (r *MongoPostRepository) UpdatePost(ctx context.Context, post *models.Post) error {
	update := bson.M{"$set": bson.M{
		"title":           post.Title,
		"content":         post.Content,
		"tags":            post.Tags,
		"privacy":         post.Privacy,
		"commentsEnabled": post.CommentsEnabled,
		"updatedAt":       time.Now(),
	}}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": post.ID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("PostNotFound", "post not found")
	}
	return nil
}

// DeletePost removes a post and decrements the author's post counter.
func (r *MongoPostRepository) DeletePost(ctx context.Context, id string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return apperr.Validation("invalid post ID format")
	}

	var post models.Post
	err = r.collection.FindOneAndDelete(ctx, bson.M{"_id": objID}).Decode(&post)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			// already gone, a replayed delete is a no-op
			return nil
		}
		return err
	}
	return r.users.IncPostsCount(ctx, post.UserID, -1)
}

// AdjustCommentsCount bumps a post's comment counter.
func (r *MongoPostRepository) AdjustCommentsCount(ctx context.Context, postID primitive.ObjectID, delta int) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": postID}, bson.M{"$inc": bson.M{"commentsCount": delta}})
	return err
}
