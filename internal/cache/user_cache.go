package cache

import (
	"context"

	"github.com/gitdev-app/backend/internal/apperr"
)

// UserCache keeps profile projections under "users:{id}" plus an ordered
// collection index scored by the user's numeric auth id.
type UserCache struct {
	c *Client
}

func NewUserCache(c *Client) *UserCache { return &UserCache{c: c} }

// Save upserts a projection into the named collection. Existing counter
// fields written by HINCRBY are overwritten with the entity's values, which
// is intended: the authoritative document wins on a full save.
func (uc *UserCache) Save(ctx context.Context, collection, key string, redisID int64, entity any) error {
	pipe := uc.c.rdb.TxPipeline()
	pipe.ZAdd(ctx, collection, zMember(float64(redisID), key))
	if err := hsetEntity(ctx, pipe, collection+":"+key, entity); err != nil {
		return apperr.Redis()
	}
	if _, err := pipe.Exec(ctx); err != nil {
		uc.c.log.Error().Err(err).Str("key", key).Msg("failed saving user to cache")
		return apperr.Redis()
	}
	return nil
}

// Get reads a projection into dest, reporting false on a miss.
func (uc *UserCache) Get(ctx context.Context, collection, key string, dest any) (bool, error) {
	found, err := uc.c.hgetEntity(ctx, collection+":"+key, dest)
	if err != nil {
		uc.c.log.Error().Err(err).Str("key", key).Msg("failed reading user from cache")
		return false, apperr.Redis()
	}
	return found, nil
}
