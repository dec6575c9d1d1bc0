package revocation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces revocation keys.
const DefaultRedisPrefix = "revoked:"

// Redis stores revocation records as keys whose value is the revocation
// instant in nanoseconds.  Key expiry does the garbage collection.
type Redis struct {
	client redis.Cmdable
	prefix string
	now    func() time.Time
}

// NewRedis creates a Redis-backed store.
func NewRedis(client redis.Cmdable, prefix string, now func() time.Time) *Redis {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	if now == nil {
		now = time.Now
	}
	return &Redis{client: client, prefix: prefix, now: now}
}

func (r *Redis) Revoke(ctx context.Context, id string, until time.Time) error {
	if id == "" {
		return errors.New("revocation id cannot be empty")
	}
	now := r.now()
	ttl := until.Sub(now)
	if ttl <= 0 {
		return nil
	}
	// A repeated revocation never shortens an existing record.
	key := r.prefix + id
	if cur, err := r.client.PTTL(ctx, key).Result(); err == nil && cur > ttl {
		ttl = cur
	}
	if err := r.client.Set(ctx, key, strconv.FormatInt(now.UnixNano(), 10), ttl).Err(); err != nil {
		return fmt.Errorf("redis revoke %s: %w", id, err)
	}
	return nil
}

func (r *Redis) IsRevoked(ctx context.Context, id string, issuedAt time.Time) (bool, error) {
	v, err := r.client.Get(ctx, r.prefix+id).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis revocation lookup %s: %w", id, err)
	}
	ns, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		// Unreadable record: fail closed.
		return true, nil
	}
	return covers(time.Unix(0, ns), issuedAt), nil
}

// Prune is a no-op; Redis expires the keys itself.
func (r *Redis) Prune(context.Context) (int, error) { return 0, nil }
