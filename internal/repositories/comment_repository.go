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

// CommentRepository defines the interface for comment and comment-vote data
// operations.
type CommentRepository interface {
	SaveComment(ctx context.Context, comment *models.Comment) error
	GetCommentByID(ctx context.Context, id string) (*models.Comment, error)
	GetComments(ctx context.Context, postID primitive.ObjectID, viewer primitive.ObjectID, skip, limit int64) ([]models.Comment, error)
	CountComments(ctx context.Context, postID primitive.ObjectID) (int64, error)
	UpdateComment(ctx context.Context, id primitive.ObjectID, content string) error
	DeleteComment(ctx context.Context, comment *models.Comment) error
	VoteComment(ctx context.Context, commentID, userID primitive.ObjectID, value int) (bool, error)
}

// MongoCommentRepository implements CommentRepository for MongoDB.
type MongoCommentRepository struct {
	comments *mongo.Collection
	votes    *mongo.Collection
	posts    PostRepository
}

// NewMongoCommentRepository creates a new MongoCommentRepository.
func NewMongoCommentRepository(db *mongo.Database, posts PostRepository) *MongoCommentRepository {
	return &MongoCommentRepository{
		comments: db.Collection("comments"),
		votes:    db.Collection("comment_votes"),
		posts:    posts,
	}
}

// SaveComment persists a comment under its preassigned id, links it into
// its parent's children and bumps the post's comment counter. Replays
// replace the same document without a second bump.
func (r *MongoCommentRepository) SaveComment(ctx context.Context, comment *models.Comment) error {
	res, err := r.comments.ReplaceOne(ctx, bson.M{"_id": comment.ID}, comment, options.Replace().SetUpsert(true))
	if err != nil {
		return err
	}
	if res.UpsertedCount == 0 {
		return nil
	}

	if comment.ParentCommentID != nil {
		_, err = r.comments.UpdateOne(ctx,
			bson.M{"_id": *comment.ParentCommentID},
			bson.M{"$push": bson.M{"childrenComments": comment.ID}})
		if err != nil {
			return err
		}
	}
	return r.posts.AdjustCommentsCount(ctx, comment.PostID, 1)
}

// GetCommentByID retrieves a comment by ID.
func (r *MongoCommentRepository) GetCommentByID(ctx context.Context, id string) (*models.Comment, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperr.Validation("invalid comment ID format")
	}

	var comment models.Comment
	err = r.comments.FindOne(ctx, bson.M{"_id": objID}).Decode(&comment)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperr.NotFound("CommentNotFound", "comment not found")
		}
		return nil, err
	}
	return &comment, nil
}

// GetComments lists a post's comments newest first. Each comment carries
// its derived vote count and, when the viewer has voted on it, that vote.
func (r *MongoCommentRepository) GetComments(ctx context.Context, postID primitive.ObjectID, viewer primitive.ObjectID, skip, limit int64) ([]models.Comment, error) {
	opts := options.Find().SetSkip(skip).SetLimit(limit).SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.comments.Find(ctx, bson.M{"postId": postID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var comments []models.Comment
	if err = cursor.All(ctx, &comments); err != nil {
		return nil, err
	}
	if len(comments) == 0 {
		return comments, nil
	}

	ids := make([]primitive.ObjectID, len(comments))
	for i := range comments {
		ids[i] = comments[i].ID
		comments[i].VotesCount = len(comments[i].Votes)
	}

	if !viewer.IsZero() {
		voteCursor, err := r.votes.Find(ctx, bson.M{"commentId": bson.M{"$in": ids}, "user": viewer})
		if err != nil {
			return nil, err
		}
		defer voteCursor.Close(ctx)

		var viewerVotes []models.CommentVote
		if err = voteCursor.All(ctx, &viewerVotes); err != nil {
			return nil, err
		}

		byComment := make(map[primitive.ObjectID]*models.CommentVote, len(viewerVotes))
		for i := range viewerVotes {
			byComment[viewerVotes[i].CommentID] = &viewerVotes[i]
		}
		for i := range comments {
			comments[i].Voted = byComment[comments[i].ID]
		}
	}
	return comments, nil
}

// CountComments counts the comments on a post.
func (r *MongoCommentRepository) CountComments(ctx context.Context, postID primitive.ObjectID) (int64, error) {
	return r.comments.CountDocuments(ctx, bson.M{"postId": postID})
}

// UpdateComment replaces a comment's content.
func (r *MongoCommentRepository) UpdateComment(ctx context.Context, id primitive.ObjectID, content string) error {
	res, err := r.comments.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"content":   content,
		"updatedAt": time.Now(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("CommentNotFound", "comment not found")
	}
	return nil
}

// DeleteComment removes a comment, its votes and either unlinks it from its
// parent (for a reply) or cascades to its replies (for a root comment),
// then lowers the post's comment counter accordingly.
func (r *MongoCommentRepository) DeleteComment(ctx context.Context, comment *models.Comment) error {
	removed := int64(1)

	if _, err := r.comments.DeleteOne(ctx, bson.M{"_id": comment.ID}); err != nil {
		return err
	}
	if _, err := r.votes.DeleteMany(ctx, bson.M{"commentId": comment.ID}); err != nil {
		return err
	}

	if comment.ParentCommentID != nil {
		_, err := r.comments.UpdateOne(ctx,
			bson.M{"_id": *comment.ParentCommentID},
			bson.M{"$pull": bson.M{"childrenComments": comment.ID}})
		if err != nil {
			return err
		}
	} else {
		res, err := r.comments.DeleteMany(ctx, bson.M{"parentCommentId": comment.ID})
		if err != nil {
			return err
		}
		removed += res.DeletedCount
	}

	return r.posts.AdjustCommentsCount(ctx, comment.PostID, int(-removed))
}

// VoteTransition describes what a vote request does to the stored state.
type VoteTransition int

const (
	// VoteCreate records a first vote.
	VoteCreate VoteTransition = iota
	// VoteRemove toggles off an identical vote.
	VoteRemove
	// VoteUpdate flips an opposite vote in place.
	VoteUpdate
)

// ResolveVote maps the stored vote (nil for none) and the requested value
// onto a transition. Same value toggles off, opposite value updates.
func ResolveVote(existing *models.CommentVote, value int) VoteTransition {
	switch {
	case existing == nil:
		return VoteCreate
	case existing.Value == value:
		return VoteRemove
	default:
		return VoteUpdate
	}
}

// VoteComment applies one user's vote to a comment. It returns whether a
// vote is active after the call.
func (r *MongoCommentRepository) VoteComment(ctx context.Context, commentID, userID primitive.ObjectID, value int) (bool, error) {
	filter := bson.M{"commentId": commentID, "user": userID}

	var existing models.CommentVote
	found := &existing
	err := r.votes.FindOne(ctx, filter).Decode(&existing)
	if err != nil {
		if err != mongo.ErrNoDocuments {
			return false, err
		}
		found = nil
	}

	switch ResolveVote(found, value) {
	case VoteCreate:
		vote := models.CommentVote{
			ID:        primitive.NewObjectID(),
			CommentID: commentID,
			UserID:    userID,
			Value:     value,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
		if _, err := r.votes.InsertOne(ctx, vote); err != nil {
			return false, err
		}
		_, err := r.comments.UpdateOne(ctx, bson.M{"_id": commentID}, bson.M{"$push": bson.M{"votes": vote.ID}})
		return true, err

	case VoteRemove:
		if _, err := r.votes.DeleteOne(ctx, filter); err != nil {
			return false, err
		}
		_, err := r.comments.UpdateOne(ctx, bson.M{"_id": commentID}, bson.M{"$pull": bson.M{"votes": existing.ID}})
		return false, err

	default: // VoteUpdate
		_, err := r.votes.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"count": value, "updatedAt": time.Now()}})
		return true, err
	}
}
