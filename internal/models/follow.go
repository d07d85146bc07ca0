package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Follow types for ranged reads.
const (
	FollowTypeFollowers = "followers"
	FollowTypeFollowing = "following"
)

// Follow is a directed follow edge. The (follower, following) pair is unique
// and self-follows are rejected before the edge reaches cache or store.
type Follow struct {
	ID        primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Follower  primitive.ObjectID `json:"follower" bson:"follower"`
	Following primitive.ObjectID `json:"following" bson:"following"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
}

// Reaction records a single user's reaction on a post. At most one active
// reaction exists per (post, user); a second create replaces the stored kind.
type Reaction struct {
	ID        primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	PostID    primitive.ObjectID `json:"postId" bson:"postId"`
	UserID    primitive.ObjectID `json:"userId" bson:"user"`
	Kind      string             `json:"type" bson:"type"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`

	User *UserRef `json:"user,omitempty" bson:"-"`
}

// CreateReactionRequest defines the request body for reacting to a post.
type CreateReactionRequest struct {
	PostID string `json:"postId" validate:"required,len=24,hexadecimal"`
	Kind   string `json:"type" validate:"required,oneof=upvote downvote smile celebrate insightful love rocket eyes"`
}
