package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Post privacy levels.
const (
	PrivacyPublic    = "public"
	PrivacyPrivate   = "private"
	PrivacyFollowers = "followers"
)

// ReactionKinds is the closed set of reaction counters every post carries.
// Cache and store both reject kinds outside this set.
var ReactionKinds = []string{"upvote", "downvote", "smile", "celebrate", "insightful", "love", "rocket", "eyes"}

// ReactionCounts maps reaction kind to its non-negative counter.
type ReactionCounts map[string]int

// NewReactionCounts returns a counter map with every known kind at zero.
func NewReactionCounts() ReactionCounts {
	counts := make(ReactionCounts, len(ReactionKinds))
	for _, kind := range ReactionKinds {
		counts[kind] = 0
	}
	return counts
}

// ValidReactionKind reports whether kind belongs to the closed set.
func ValidReactionKind(kind string) bool {
	for _, k := range ReactionKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Post is the authoritative post document stored in MongoDB. The same shape,
// field by field, is mirrored into the Redis projection.
type Post struct {
	ID              primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	UserID          primitive.ObjectID `json:"userId" bson:"user"`
	Title           string             `json:"title" bson:"title"`
	Content         string             `json:"content" bson:"content"`
	Tags            []string           `json:"tags" bson:"tags"`
	Privacy         string             `json:"privacy" bson:"privacy"`
	CommentsEnabled bool               `json:"commentsEnabled" bson:"commentsEnabled"`
	CommentsCount   int                `json:"commentsCount" bson:"commentsCount"`
	Reactions       ReactionCounts     `json:"reactions" bson:"reactions"`
	CreatedAt       time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt" bson:"updatedAt"`

	// User carries the joined author identity (username, avatar) on reads.
	// It is never persisted; UserID is the stored reference.
	User *UserRef `json:"user,omitempty" bson:"-"`
}

// CreatePostRequest defines the request body for creating a post.
type CreatePostRequest struct {
	Title           string   `json:"title" validate:"required,min=1,max=150"`
	Content         string   `json:"content" validate:"required,min=1"`
	Tags            []string `json:"tags" validate:"omitempty,dive,min=1,max=30"`
	Privacy         string   `json:"privacy" validate:"omitempty,oneof=public private followers"`
	CommentsEnabled *bool    `json:"commentsEnabled"`
}

// UpdatePostRequest defines the request body for updating a post.
type UpdatePostRequest struct {
	Title           string   `json:"title" validate:"omitempty,min=1,max=150"`
	Content         string   `json:"content" validate:"omitempty,min=1"`
	Tags            []string `json:"tags" validate:"omitempty,dive,min=1,max=30"`
	Privacy         string   `json:"privacy" validate:"omitempty,oneof=public private followers"`
	CommentsEnabled *bool    `json:"commentsEnabled"`
}
