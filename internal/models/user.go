package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserRef is the joined identity projection nested under "user" on posts,
// comments, reactions, follows and chat messages.
type UserRef struct {
	ID       primitive.ObjectID `json:"_id" bson:"_id"`
	Username string             `json:"username,omitempty" bson:"username,omitempty"`
	Avatar   string             `json:"avatar,omitempty" bson:"avatar,omitempty"`
}

// SocialLink is an external profile link (site name + URL).
type SocialLink struct {
	Name string `json:"name" bson:"name"`
	URL  string `json:"url" bson:"url"`
}

// NotificationPrefs gates the email leg of notification fan-out per category.
// The in-app notification record is created regardless of these flags.
type NotificationPrefs struct {
	Messages  bool `json:"messages" bson:"messages"`
	Follows   bool `json:"follows" bson:"follows"`
	Reactions bool `json:"reactions" bson:"reactions"`
	Comments  bool `json:"comments" bson:"comments"`
}

// DefaultNotificationPrefs enables every email category, matching the
// defaults applied when a profile is first created.
func DefaultNotificationPrefs() NotificationPrefs {
	return NotificationPrefs{Messages: true, Follows: true, Reactions: true, Comments: true}
}

// User is the MongoDB profile document. Credentials live in the relational
// AuthUser row; the two are linked through AuthUserID.
type User struct {
	ID             primitive.ObjectID   `json:"_id" bson:"_id,omitempty"`
	AuthUserID     uint                 `json:"authUserId" bson:"authUserId"`
	Bio            string               `json:"bio" bson:"bio"`
	Avatar         string               `json:"avatar" bson:"avatar"`
	Website        string               `json:"website" bson:"website"`
	Company        string               `json:"company" bson:"company"`
	Location       string               `json:"location" bson:"location"`
	PostsCount     int                  `json:"postsCount" bson:"postsCount"`
	FollowersCount int                  `json:"followersCount" bson:"followersCount"`
	FollowingCount int                  `json:"followingCount" bson:"followingCount"`
	Blocked        []primitive.ObjectID `json:"blocked" bson:"blocked"`
	BlockedBy      []primitive.ObjectID `json:"blockedBy" bson:"blockedBy"`
	Social         []SocialLink         `json:"social" bson:"social"`
	Notifications  NotificationPrefs    `json:"notifications" bson:"notifications"`
	CreatedAt      time.Time            `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time            `json:"updatedAt" bson:"updatedAt"`

	// Username is joined from the auth store on reads.
	Username string `json:"username,omitempty" bson:"-"`
}

// UpdateProfileRequest defines the request body for profile updates.
type UpdateProfileRequest struct {
	Bio      string       `json:"bio" validate:"omitempty,max=160"`
	Avatar   string       `json:"avatar" validate:"omitempty,url"`
	Website  string       `json:"website" validate:"omitempty,url"`
	Company  string       `json:"company" validate:"omitempty,max=100"`
	Location string       `json:"location" validate:"omitempty,max=100"`
	Social   []SocialLink `json:"social" validate:"omitempty,dive"`
}

// NotificationPrefsRequest toggles the per-category email preferences.
type NotificationPrefsRequest struct {
	Messages  *bool `json:"messages"`
	Follows   *bool `json:"follows"`
	Reactions *bool `json:"reactions"`
	Comments  *bool `json:"comments"`
}
