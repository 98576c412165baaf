package detector

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/allisson/keycore/internal/errors"
)

// RedisCounterStore implements CounterStore on Redis so detector state is
// shared across application instances.
type RedisCounterStore struct {
	client *redis.Client
}

// NewRedisCounterStore creates a new Redis-backed counter store.
func NewRedisCounterStore(client *redis.Client) *RedisCounterStore {
	return &RedisCounterStore{client: client}
}

func (r *RedisCounterStore) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	var incr *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, window)
		return nil
	})
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to increment counter")
	}
	return incr.Val(), nil
}

func (r *RedisCounterStore) Reset(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return apperrors.Wrap(err, "failed to reset counter")
	}
	return nil
}

func (r *RedisCounterStore) SetFlag(ctx context.Context, key string, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, "1", ttl).Err(); err != nil {
		return apperrors.Wrap(err, "failed to set flag")
	}
	return nil
}

func (r *RedisCounterStore) HasFlag(ctx context.Context, key string) (bool, error) {
	exists, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to check flag")
	}
	return exists == 1, nil
}

func (r *RedisCounterStore) AddDistinct(ctx context.Context, key, member string, window time.Duration) (int64, error) {
	var card *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, key, member)
		pipe.ExpireNX(ctx, key, window)
		card = pipe.SCard(ctx, key)
		return nil
	})
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to add distinct member")
	}
	return card.Val(), nil
}
