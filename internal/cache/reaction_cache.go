package cache

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/gitdev-app/backend/internal/apperr"
	"github.com/gitdev-app/backend/internal/models"
	"github.com/redis/go-redis/v9"
)

// ReactionCache keeps per-post reaction records in "reactions:{postId}"
// hashes (field "{postId}:{userId}" -> JSON reaction) and maintains the
// post projection's reaction-count map.
//
// State machine per (post, user): creating a reaction of a new kind swaps
// the counters in one visible step (old kind -1, new kind +1); re-creating
// the stored kind is a no-op.
type ReactionCache struct {
	c *Client
}

func NewReactionCache(c *Client) *ReactionCache { return &ReactionCache{c: c} }

// Save upserts the (post, user) reaction and adjusts the post counters.
func (rc *ReactionCache) Save(ctx context.Context, reaction *models.Reaction) error {
	postID := reaction.PostID.Hex()
	userID := reaction.UserID.Hex()
	field := postID + ":" + userID

	prev, err := rc.getByField(ctx, postID, field)
	if err != nil {
		return err
	}

	if prev != nil {
		if prev.Kind == reaction.Kind {
			return nil
		}
		if err := rc.adjustPostCounts(ctx, postID, map[string]int{prev.Kind: -1, reaction.Kind: +1}); err != nil {
			return err
		}
	} else {
		if err := rc.adjustPostCounts(ctx, postID, map[string]int{reaction.Kind: +1}); err != nil {
			return err
		}
	}

	raw, err := json.Marshal(reaction)
	if err != nil {
		return apperr.Redis()
	}
	if err := rc.c.rdb.HSet(ctx, "reactions:"+postID, field, string(raw)).Err(); err != nil {
		rc.c.log.Error().Err(err).Str("post", postID).Msg("failed saving reaction to cache")
		return apperr.Redis()
	}
	return nil
}

// Delete removes the (post, user) reaction. Deleting with a kind that does
// not match the stored one is ReactionTypeMismatch; deleting when nothing is
// stored is ReactionNotFound.
func (rc *ReactionCache) Delete(ctx context.Context, postID, userID, kind string) error {
	field := postID + ":" + userID

	prev, err := rc.getByField(ctx, postID, field)
	if err != nil {
		return err
	}
	if prev == nil {
		return apperr.NotFound("ReactionNotFound", "no reaction found for this post")
	}
	if prev.Kind != kind {
		return apperr.New("ReactionTypeMismatch", 400, "reaction type does not match")
	}

	if err := rc.c.rdb.HDel(ctx, "reactions:"+postID, field).Err(); err != nil {
		rc.c.log.Error().Err(err).Str("post", postID).Msg("failed deleting reaction from cache")
		return apperr.Redis()
	}
	return rc.adjustPostCounts(ctx, postID, map[string]int{kind: -1})
}

// Get returns every cached reaction on a post plus their count.
func (rc *ReactionCache) Get(ctx context.Context, postID string) ([]models.Reaction, int, error) {
	raw, err := rc.c.rdb.HGetAll(ctx, "reactions:"+postID).Result()
	if err != nil {
		rc.c.log.Error().Err(err).Str("post", postID).Msg("failed reading reactions from cache")
		return nil, 0, apperr.Redis()
	}

	reactions := make([]models.Reaction, 0, len(raw))
	for _, value := range raw {
		var reaction models.Reaction
		if err := json.Unmarshal([]byte(value), &reaction); err != nil {
			continue
		}
		reactions = append(reactions, reaction)
	}
	return reactions, len(reactions), nil
}

// GetByUser returns the user's cached reaction on a post, or nil.
func (rc *ReactionCache) GetByUser(ctx context.Context, postID, userID string) (*models.Reaction, error) {
	return rc.getByField(ctx, postID, postID+":"+userID)
}

// GetAllByUser scans every post's reaction hash for this user's entries.
func (rc *ReactionCache) GetAllByUser(ctx context.Context, userID string) ([]models.Reaction, error) {
	keys, err := rc.c.rdb.Keys(ctx, "reactions:*").Result()
	if err != nil {
		rc.c.log.Error().Err(err).Msg("failed listing reaction keys in cache")
		return nil, apperr.Redis()
	}

	var reactions []models.Reaction
	for _, key := range keys {
		postID := strings.TrimPrefix(key, "reactions:")
		reaction, err := rc.getByField(ctx, postID, postID+":"+userID)
		if err != nil {
			return nil, err
		}
		if reaction != nil {
			reactions = append(reactions, *reaction)
		}
	}
	return reactions, nil
}

func (rc *ReactionCache) getByField(ctx context.Context, postID, field string) (*models.Reaction, error) {
	raw, err := rc.c.rdb.HGet(ctx, "reactions:"+postID, field).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		rc.c.log.Error().Err(err).Str("post", postID).Msg("failed reading reaction from cache")
		return nil, apperr.Redis()
	}

	var reaction models.Reaction
	if err := json.Unmarshal([]byte(raw), &reaction); err != nil {
		return nil, apperr.Redis()
	}
	return &reaction, nil
}

// adjustPostCounts applies kind deltas to the post projection's reaction
// map as a single write, so a swap is never observable as two steps.
func (rc *ReactionCache) adjustPostCounts(ctx context.Context, postID string, deltas map[string]int) error {
	raw, err := rc.c.rdb.HGet(ctx, "posts:"+postID, "reactions").Result()
	if err != nil && err != redis.Nil {
		rc.c.log.Error().Err(err).Str("post", postID).Msg("failed reading post reactions from cache")
		return apperr.Redis()
	}

	counts := models.NewReactionCounts()
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &counts); err != nil {
			return apperr.Redis()
		}
	}

	for kind, delta := range deltas {
		counts[kind] += delta
		if counts[kind] < 0 {
			counts[kind] = 0
		}
	}

	updated, err := json.Marshal(counts)
	if err != nil {
		return apperr.Redis()
	}
	if err := rc.c.rdb.HSet(ctx, "posts:"+postID, "reactions", string(updated)).Err(); err != nil {
		rc.c.log.Error().Err(err).Str("post", postID).Msg("failed updating post reactions in cache")
		return apperr.Redis()
	}
	return nil
}
