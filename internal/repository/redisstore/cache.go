package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Cache backs the read-cache coordinator. Entries are keyed by
// (view, user, page) and every key is registered in a per-user set so
// a single invalidation call can drop all of that user's entries.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewCache(rdb *redis.Client, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, ttl: ttl}
}

func cacheKey(view string, userID uuid.UUID, page string) string {
	return fmt.Sprintf("spark:cache:%s:%s:%s", view, userID, page)
}

func registryKey(userID uuid.UUID) string {
	return "spark:cache:keys:" + userID.String()
}

func (c *Cache) Get(ctx context.Context, userID uuid.UUID, view, page string) ([]byte, bool, error) {
	val, err := c.rdb.Get(ctx, cacheKey(view, userID, page)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (c *Cache) Set(ctx context.Context, userID uuid.UUID, view, page string, value []byte) error {
	key := cacheKey(view, userID, page)
	pipe := c.rdb.TxPipeline()
	pipe.Set(ctx, key, value, c.ttl)
	pipe.SAdd(ctx, registryKey(userID), key)
	// Registry outlives entries slightly so invalidation still sees
	// keys that expired on their own.
	pipe.Expire(ctx, registryKey(userID), 2*c.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// InvalidateUser removes every cache entry registered for the user.
// Explicit key removal, not a version bump: the next read recomputes
// from the source tables.
func (c *Cache) InvalidateUser(ctx context.Context, userID uuid.UUID) error {
	reg := registryKey(userID)
	keys, err := c.rdb.SMembers(ctx, reg).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}

	pipe := c.rdb.TxPipeline()
	if len(keys) > 0 {
		pipe.Del(ctx, keys...)
	}
	pipe.Del(ctx, reg)
	_, err = pipe.Exec(ctx)
	return err
}
