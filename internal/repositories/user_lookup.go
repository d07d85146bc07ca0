package repositories

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"github.com/rs/zerolog"

	"github.com/gitdev-app/backend/internal/cache"
	"github.com/gitdev-app/backend/internal/models"
)

// UserLookup resolves user references for display, cache first with a
// database fallback. Read paths call it once per referenced user.
type UserLookup struct {
	cache *cache.UserCache
	users UserRepository
	auth  AuthRepository
	log   zerolog.Logger
}

func NewUserLookup(userCache *cache.UserCache, users UserRepository, auth AuthRepository, log zerolog.Logger) *UserLookup {
	return &UserLookup{
		cache: userCache,
		users: users,
		auth:  auth,
		log:   log.With().Str("component", "user-lookup").Logger(),
	}
}

// Ref returns the reference projection for one user. A cache miss falls
// back to the database; a missing user yields nil without error so a
// dangling reference does not fail the whole read.
func (l *UserLookup) Ref(ctx context.Context, id primitive.ObjectID) *models.UserRef {
	if id.IsZero() {
		return nil
	}

	var user models.User
	found, err := l.cache.Get(ctx, "users", id.Hex(), &user)
	if err != nil {
		l.log.Warn().Err(err).Str("user", id.Hex()).Msg("user cache read failed")
	}
	if found {
		return &models.UserRef{ID: user.ID, Username: user.Username, Avatar: user.Avatar}
	}

	ref, err := l.users.GetUserRef(ctx, id)
	if err != nil {
		l.log.Warn().Err(err).Str("user", id.Hex()).Msg("user lookup failed")
		return nil
	}
	if authUser, err := l.auth.GetAuthUserByUserID(id.Hex()); err == nil {
		ref.Username = authUser.Username
	}
	return ref
}
