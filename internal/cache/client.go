// Package cache holds the Redis read models: denormalized, rebuildable
// projections of posts, users, follow edges, reactions and chat threads.
// The document store remains the source of truth; every structure here can
// be evicted and rebuilt from it.
package cache

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/gitdev-app/backend/internal/apperr"
)

// Client wraps the shared Redis connection with the hash-projection helpers
// every entity cache uses.
type Client struct {
	rdb *redis.Client
	log zerolog.Logger
}

// New builds a cache client on an established Redis connection.
func New(rdb *redis.Client, log zerolog.Logger) *Client {
	return &Client{rdb: rdb, log: log.With().Str("component", "cache").Logger()}
}

// Redis exposes the underlying connection for pub/sub bridging.
func (c *Client) Redis() *redis.Client { return c.rdb }

// hsetEntity writes an entity into a Redis hash, one field per struct field,
// each value JSON-encoded. Field-level storage lets counters such as the
// reactions map be swapped without rewriting the whole projection.
func hsetEntity(ctx context.Context, pipe redis.Pipeliner, key string, entity any) error {
	fields, err := entityFields(entity)
	if err != nil {
		return err
	}
	for field, value := range fields {
		pipe.HSet(ctx, key, field, string(value))
	}
	return nil
}

// hgetEntity reads a hash written by hsetEntity back into dest. Returns
// false when the key holds no fields (cache miss or evicted projection).
func (c *Client) hgetEntity(ctx context.Context, key string, dest any) (bool, error) {
	raw, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if len(raw) == 0 {
		return false, nil
	}
	return true, decodeFields(raw, dest)
}

func zMember(score float64, member string) redis.Z {
	return redis.Z{Score: score, Member: member}
}

func parseObjectID(hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, apperr.Validation("invalid id format")
	}
	return id, nil
}

func entityFields(entity any) (map[string]json.RawMessage, error) {
	b, err := json.Marshal(entity)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

func decodeFields(raw map[string]string, dest any) error {
	fields := make(map[string]json.RawMessage, len(raw))
	for field, value := range raw {
		fields[field] = json.RawMessage(value)
	}
	b, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dest)
}
