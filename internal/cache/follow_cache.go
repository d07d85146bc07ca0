package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gitdev-app/backend/internal/apperr"
	"github.com/gitdev-app/backend/internal/models"
	"github.com/redis/go-redis/v9"
)

// FollowCache keeps the follow-edge read model: per-user "followers:{id}"
// and "following:{id}" ZSETs scored by edge time, and the denormalized
// follower/following counters on the user hashes.
type FollowCache struct {
	c *Client
}

func NewFollowCache(c *Client) *FollowCache { return &FollowCache{c: c} }

// Follow records the edge in both directions and bumps both counters.
// A pair that already exists returns early before any increment, so
// repeated identical requests cannot double-count.
func (fc *FollowCache) Follow(ctx context.Context, follower, following string) error {
	_, err := fc.c.rdb.ZScore(ctx, "following:"+follower, following).Result()
	if err == nil {
		return nil
	}
	if err != redis.Nil {
		fc.c.log.Error().Err(err).Msg("failed checking follow edge in cache")
		return apperr.Redis()
	}

	now := float64(time.Now().UnixMilli())
	pipe := fc.c.rdb.TxPipeline()
	pipe.ZAdd(ctx, "followers:"+following, zMember(now, follower))
	pipe.ZAdd(ctx, "following:"+follower, zMember(now, following))
	pipe.HIncrBy(ctx, "users:"+follower, "followingCount", 1)
	pipe.HIncrBy(ctx, "users:"+following, "followersCount", 1)

	if _, err := pipe.Exec(ctx); err != nil {
		fc.c.log.Error().Err(err).Msg("failed saving follow edge to cache")
		return apperr.Redis()
	}
	return nil
}

// Unfollow removes the edge and decrements both counters; a missing edge is
// a no-op.
func (fc *FollowCache) Unfollow(ctx context.Context, follower, following string) error {
	_, err := fc.c.rdb.ZScore(ctx, "following:"+follower, following).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		fc.c.log.Error().Err(err).Msg("failed checking follow edge in cache")
		return apperr.Redis()
	}

	pipe := fc.c.rdb.TxPipeline()
	pipe.ZRem(ctx, "followers:"+following, follower)
	pipe.ZRem(ctx, "following:"+follower, following)
	pipe.HIncrBy(ctx, "users:"+follower, "followingCount", -1)
	pipe.HIncrBy(ctx, "users:"+following, "followersCount", -1)

	if _, err := pipe.Exec(ctx); err != nil {
		fc.c.log.Error().Err(err).Msg("failed removing follow edge from cache")
		return apperr.Redis()
	}
	return nil
}

// GetRange returns partial user refs (id + avatar) for the edge index named
// by key ("followers:{id}" or "following:{id}"), newest first. Usernames are
// joined by the caller through the user lookup.
func (fc *FollowCache) GetRange(ctx context.Context, key string, r Range) ([]models.UserRef, error) {
	ids, err := fc.c.rdb.ZRevRange(ctx, key, r.Start, r.End).Result()
	if err != nil {
		fc.c.log.Error().Err(err).Str("key", key).Msg("failed reading follow index from cache")
		return nil, apperr.Redis()
	}
	if len(ids) == 0 {
		return nil, nil
	}

	refs := make([]models.UserRef, 0, len(ids))
	for _, id := range ids {
		values, err := fc.c.rdb.HMGet(ctx, "users:"+id, "_id", "avatar").Result()
		if err != nil {
			fc.c.log.Error().Err(err).Str("user", id).Msg("failed reading user fields from cache")
			return nil, apperr.Redis()
		}

		var ref models.UserRef
		if s, ok := values[0].(string); ok {
			_ = json.Unmarshal([]byte(s), &ref.ID)
		}
		if s, ok := values[1].(string); ok {
			_ = json.Unmarshal([]byte(s), &ref.Avatar)
		}
		if ref.ID.IsZero() {
			continue
		}
		refs = append(refs, ref)
	}
	return refs, nil
}
