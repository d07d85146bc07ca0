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

// UserRepository defines the interface for profile data operations.
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserRef(ctx context.Context, id primitive.ObjectID) (*models.UserRef, error)
	UpdateProfile(ctx context.Context, id string, req *models.UpdateProfileRequest) (*models.User, error)
	UpdateNotificationPrefs(ctx context.Context, id string, prefs models.NotificationPrefs) error
	GetNotificationPrefs(ctx context.Context, id primitive.ObjectID) (models.NotificationPrefs, error)
	GetUsersByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
	IncPostsCount(ctx context.Context, id primitive.ObjectID, delta int) error
	AdjustFollowCounts(ctx context.Context, follower, following primitive.ObjectID, delta int) error
}

// MongoUserRepository implements UserRepository for MongoDB.
type MongoUserRepository struct {
	collection *mongo.Collection
}

// NewMongoUserRepository creates a new MongoUserRepository.
func NewMongoUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{collection: db.Collection("users")}
}

// CreateUser inserts a new profile document. The caller may preassign the
// ID (signup does, so the auth row can reference it).
func (r *MongoUserRepository) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	_, err := r.collection.InsertOne(ctx, user)
	return err
}

// GetUserByID retrieves a profile by ID.
func (r *MongoUserRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperr.Validation("invalid user ID format")
	}

	var user models.User
	err = r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperr.NotFound("UserNotFound", "user not found")
		}
		return nil, err
	}
	return &user, nil
}

// GetUserRef fetches the reference projection (id, avatar) used when
// joining users onto posts, reactions, comments and messages. The username
// is joined from the auth store by the caller.
func (r *MongoUserRepository) GetUserRef(ctx context.Context, id primitive.ObjectID) (*models.UserRef, error) {
	var ref models.UserRef
	opts := options.FindOne().SetProjection(bson.M{"_id": 1, "avatar": 1})
	err := r.collection.FindOne(ctx, bson.M{"_id": id}, opts).Decode(&ref)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperr.NotFound("UserNotFound", "user not found")
		}
		return nil, err
	}
	return &ref, nil
}

// UpdateProfile applies the editable profile fields and returns the
// updated document.
func (r *MongoUserRepository) UpdateProfile(ctx context.Context, id string, req *models.UpdateProfileRequest) (*models.User, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperr.Validation("invalid user ID format")
	}

	set := bson.M{
		"bio":       req.Bio,
		"avatar":    req.Avatar,
		"website":   req.Website,
		"company":   req.Company,
		"location":  req.Location,
		"social":    req.Social,
		"updatedAt": time.Now(),
	}

	var user models.User
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err = r.collection.FindOneAndUpdate(ctx, bson.M{"_id": objID}, bson.M{"$set": set}, opts).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperr.NotFound("UserNotFound", "user not found")
		}
		return nil, err
	}
	return &user, nil
}

// UpdateNotificationPrefs replaces the per-category email preference flags.
func (r *MongoUserRepository) UpdateNotificationPrefs(ctx context.Context, id string, prefs models.NotificationPrefs) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return apperr.Validation("invalid user ID format")
	}

	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": objID}, bson.M{"$set": bson.M{
		"notifications": prefs,
		"updatedAt":     time.Now(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("UserNotFound", "user not found")
	}
	return nil
}

// GetNotificationPrefs reads just the preference flags of one user.
func (r *MongoUserRepository) GetNotificationPrefs(ctx context.Context, id primitive.ObjectID) (models.NotificationPrefs, error) {
	var doc struct {
		Notifications models.NotificationPrefs `bson:"notifications"`
	}
	opts := options.FindOne().SetProjection(bson.M{"notifications": 1})
	err := r.collection.FindOne(ctx, bson.M{"_id": id}, opts).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return models.DefaultNotificationPrefs(), apperr.NotFound("UserNotFound", "user not found")
		}
		return models.DefaultNotificationPrefs(), err
	}
	return doc.Notifications, nil
}

// GetUsersByIDs fetches profile documents for a set of ids, used to join
// profiles onto username search results.
func (r *MongoUserRepository) GetUsersByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err = cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// IncPostsCount adjusts the author's post counter.
func (r *MongoUserRepository) IncPostsCount(ctx context.Context, id primitive.ObjectID, delta int) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"postsCount": delta}})
	return err
}

// AdjustFollowCounts bumps both sides of a follow edge in one bulk write.
func (r *MongoUserRepository) AdjustFollowCounts(ctx context.Context, follower, following primitive.ObjectID, delta int) error {
	ops := []mongo.WriteModel{
		mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": follower}).
			SetUpdate(bson.M{"$inc": bson.M{"followingCount": delta}}),
		mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": following}).
			SetUpdate(bson.M{"$inc": bson.M{"followersCount": delta}}),
	}
	_, err := r.collection.BulkWrite(ctx, ops)
	return err
}
