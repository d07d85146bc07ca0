package cache

import (
	"context"
	"time"

	"github.com/gitdev-app/backend/internal/apperr"
	"github.com/gitdev-app/backend/internal/models"
)

// Range addresses an inclusive slice of an ordered index, newest first.
type Range struct {
	Start int64
	End   int64
}

// PageRange converts a 1-indexed page into the skip/limit pair and the cache
// index range used across every paginated read. The limit deliberately grows
// with the page number (limit = page*size, not a constant window); the range
// and total-count semantics downstream depend on this exact arithmetic.
func PageRange(page int, pageSize int) (skip int64, limit int64, r Range) {
	if page < 1 {
		page = 1
	}
	skip = int64((page - 1) * pageSize)
	limit = int64(page * pageSize)

	start := skip
	if skip != 0 {
		start = skip + 1
	}
	return skip, limit, Range{Start: start, End: limit}
}

// PostCache keeps the post projections: a ZSET feed index ("posts", scored
// by the author's numeric id) plus one hash per post, and maintains the
// author's denormalized post counter.
type PostCache struct {
	c *Client
}

func NewPostCache(c *Client) *PostCache { return &PostCache{c: c} }

// Save upserts the projection and its feed-index entry and bumps the
// author's postsCount. All writes go through one MULTI so a reader never
// observes the index entry without the hash.
func (pc *PostCache) Save(ctx context.Context, redisID int64, post *models.Post) error {
	key := post.ID.Hex()

	pipe := pc.c.rdb.TxPipeline()
	pipe.ZAdd(ctx, "posts", zMember(float64(redisID), key))
	if err := hsetEntity(ctx, pipe, "posts:"+key, post); err != nil {
		return apperr.Redis()
	}
	pipe.HIncrBy(ctx, "users:"+post.UserID.Hex(), "postsCount", 1)

	if _, err := pipe.Exec(ctx); err != nil {
		pc.c.log.Error().Err(err).Str("post", key).Msg("failed saving post to cache")
		return apperr.Redis()
	}
	return nil
}

// GetRange returns posts in the index range, newest first. Evicted hashes
// are skipped rather than surfaced as partial entries.
func (pc *PostCache) GetRange(ctx context.Context, r Range) ([]models.Post, error) {
	ids, err := pc.c.rdb.ZRevRange(ctx, "posts", r.Start, r.End).Result()
	if err != nil {
		pc.c.log.Error().Err(err).Msg("failed reading post index from cache")
		return nil, apperr.Redis()
	}
	if len(ids) == 0 {
		return nil, nil
	}

	posts := make([]models.Post, 0, len(ids))
	for _, id := range ids {
		var post models.Post
		found, err := pc.c.hgetEntity(ctx, "posts:"+id, &post)
		if err != nil {
			pc.c.log.Error().Err(err).Str("post", id).Msg("failed reading post from cache")
			return nil, apperr.Redis()
		}
		if found {
			posts = append(posts, post)
		}
	}
	return posts, nil
}

// Get returns a single post projection, or nil on a miss.
func (pc *PostCache) Get(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	found, err := pc.c.hgetEntity(ctx, "posts:"+id, &post)
	if err != nil {
		pc.c.log.Error().Err(err).Str("post", id).Msg("failed reading post from cache")
		return nil, apperr.Redis()
	}
	if !found {
		return nil, nil
	}
	return &post, nil
}

// Count returns the size of the feed index.
func (pc *PostCache) Count(ctx context.Context) (int64, error) {
	n, err := pc.c.rdb.ZCard(ctx, "posts").Result()
	if err != nil {
		return 0, apperr.Redis()
	}
	return n, nil
}

// Delete removes the projection, its index entry and the author's counter
// contribution.
func (pc *PostCache) Delete(ctx context.Context, id, userID string) error {
	pipe := pc.c.rdb.TxPipeline()
	pipe.ZRem(ctx, "posts", id)
	pipe.Del(ctx, "posts:"+id)
	pipe.HIncrBy(ctx, "users:"+userID, "postsCount", -1)

	if _, err := pipe.Exec(ctx); err != nil {
		pc.c.log.Error().Err(err).Str("post", id).Msg("failed deleting post from cache")
		return apperr.Redis()
	}
	return nil
}

// Update rewrites the projection fields, stamps updatedAt and returns the
// resulting cached post.
func (pc *PostCache) Update(ctx context.Context, id string, post *models.Post) (*models.Post, error) {
	post.UpdatedAt = time.Now()

	pipe := pc.c.rdb.TxPipeline()
	if err := hsetEntity(ctx, pipe, "posts:"+id, post); err != nil {
		return nil, apperr.Redis()
	}
	if _, err := pipe.Exec(ctx); err != nil {
		pc.c.log.Error().Err(err).Str("post", id).Msg("failed updating post in cache")
		return nil, apperr.Redis()
	}

	return pc.Get(ctx, id)
}
