package redisstore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Presence is the ephemeral TTL key-value store behind the presence
// and typing tracker. Losing it on restart is acceptable; nothing
// durable depends on it.
type Presence struct {
	rdb *redis.Client
}

func NewPresence(rdb *redis.Client) *Presence {
	return &Presence{rdb: rdb}
}

func (p *Presence) SetTTL(ctx context.Context, key, value string, ttl time.Duration) error {
	return p.rdb.Set(ctx, key, value, ttl).Err()
}

func (p *Presence) Set(ctx context.Context, key, value string) error {
	return p.rdb.Set(ctx, key, value, 0).Err()
}

func (p *Presence) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := p.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (p *Presence) Del(ctx context.Context, key string) error {
	return p.rdb.Del(ctx, key).Err()
}
