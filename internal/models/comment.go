package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Comment is a post comment. Replies form a tree through ParentCommentID and
// the parent's ChildrenComments list. Votes holds the ids of CommentVote
// records; the visible count is derived from its length.
type Comment struct {
	ID               primitive.ObjectID   `json:"_id" bson:"_id,omitempty"`
	PostID           primitive.ObjectID   `json:"postId" bson:"postId"`
	UserID           primitive.ObjectID   `json:"userId" bson:"user"`
	Content          string               `json:"content" bson:"content"`
	ParentCommentID  *primitive.ObjectID  `json:"parentCommentId,omitempty" bson:"parentCommentId,omitempty"`
	ChildrenComments []primitive.ObjectID `json:"childrenComments" bson:"childrenComments"`
	Votes            []primitive.ObjectID `json:"-" bson:"votes"`
	CreatedAt        time.Time            `json:"createdAt" bson:"createdAt"`
	UpdatedAt        time.Time            `json:"updatedAt" bson:"updatedAt"`

	VotesCount int      `json:"votesCount" bson:"-"`
	User       *UserRef `json:"user,omitempty" bson:"-"`
	// Voted is the requesting user's active vote on this comment, if any.
	Voted *CommentVote `json:"voted,omitempty" bson:"-"`
}

// CommentVote is one user's vote (+1 or -1) on a comment. Unique per
// (comment, user); re-voting the same value deletes the record (toggle-off).
type CommentVote struct {
	ID        primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	CommentID primitive.ObjectID `json:"commentId" bson:"commentId"`
	UserID    primitive.ObjectID `json:"userId" bson:"user"`
	Value     int                `json:"count" bson:"count"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// CreateCommentRequest defines the request body for commenting on a post.
type CreateCommentRequest struct {
	PostID          string `json:"postId" validate:"required,len=24,hexadecimal"`
	Content         string `json:"content" validate:"required,min=1,max=2000"`
	ParentCommentID string `json:"parentCommentId" validate:"omitempty,len=24,hexadecimal"`
}

// UpdateCommentRequest defines the request body for editing a comment.
type UpdateCommentRequest struct {
	Content string `json:"content" validate:"required,min=1,max=2000"`
}

// VoteCommentRequest defines the request body for voting on a comment.
type VoteCommentRequest struct {
	Value int `json:"value" validate:"required,oneof=-1 1"`
}
