package usercache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/sessionauth/internal/model"
)

// Redis is a distributed Cache storing JSON snapshots with SET EX.  All
// instances sharing the Redis server observe an eviction immediately.
type Redis struct {
	client redis.Cmdable
}

// NewRedis creates a Redis-backed cache.
func NewRedis(client redis.Cmdable) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Get(ctx context.Context, key string) (*model.User, error) {
	bs, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	var u model.User
	if err := json.Unmarshal(bs, &u); err != nil {
		// Corrupt entry: treat as a miss, the next Set overwrites it.
		return nil, nil
	}
	return &u, nil
}

func (r *Redis) Set(ctx context.Context, key string, u *model.User, ttl time.Duration) error {
	bs, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode user snapshot: %w", err)
	}
	if err := r.client.Set(ctx, key, bs, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}
