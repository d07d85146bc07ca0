package models

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AuthUser holds credentials and identity in PostgreSQL. The Mongo profile
// document is linked through UserID (the profile's hex object id). The
// numeric primary key doubles as the user's score in ordered cache indexes.
type AuthUser struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Username     string    `json:"username" gorm:"size:40;uniqueIndex"`
	Email        string    `json:"email" gorm:"size:255;uniqueIndex"`
	PasswordHash string    `json:"-" gorm:"size:100"`
	UserID       string    `json:"userId" gorm:"size:24;uniqueIndex"`
	Provider     string    `json:"provider" gorm:"size:20;default:local"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// AuthToken is a refresh-token rotation record. A signout or rotation
// deletes the row, invalidating the old refresh token.
type AuthToken struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	AuthUserID uint      `json:"authUserId" gorm:"index"`
	Token      string    `json:"-" gorm:"size:512;index"`
	ExpiresAt  time.Time `json:"expiresAt"`
	CreatedAt  time.Time `json:"createdAt"`
}

// JwtCustomClaims is the payload of both access and refresh tokens.
type JwtCustomClaims struct {
	UserID     string `json:"userId"`
	AuthUserID uint   `json:"authUserId"`
	Username   string `json:"username"`
	RedisID    int64  `json:"redisId"`
	jwt.RegisteredClaims
}

// ObjectID parses the claims' profile id. The zero ObjectID is returned for
// malformed claims; protected routes never issue those.
func (c *JwtCustomClaims) ObjectID() primitive.ObjectID {
	id, _ := primitive.ObjectIDFromHex(c.UserID)
	return id
}

// SignupRequest defines the request body for local account creation.
type SignupRequest struct {
	Username string `json:"username" validate:"required,min=3,max=40,alphanum"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// SigninRequest defines the request body for local sign-in.
type SigninRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SocialSigninRequest carries a Firebase ID token for social sign-in.
type SocialSigninRequest struct {
	IDToken string `json:"idToken" validate:"required"`
}
