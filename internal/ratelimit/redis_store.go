package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/allisson/keycore/internal/errors"
)

// RedisStore implements Store on Redis so limits are shared across
// application instances. The key TTL is the window: set on the first request,
// never refreshed, so the counter disappears exactly at the boundary.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis-backed rate limit store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) Check(ctx context.Context, key string, config Config) (Decision, error) {
	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, config.Window)
		ttl = pipe.PTTL(ctx, key)
		return nil
	})
	if err != nil {
		return Decision{}, apperrors.Wrap(err, "failed to check rate limit")
	}

	count := int(incr.Val())
	if count <= config.Limit {
		return Decision{Allowed: true, Remaining: config.Limit - count}, nil
	}

	retryAfter := ttl.Val()
	if retryAfter <= 0 {
		retryAfter = time.Second
	}
	return Decision{Allowed: false, RetryAfter: retryAfter}, nil
}
