package cart

import (
	"context"
	"errors"
	"time"

	"github.com/smartdot/storefront-backend/pkg/redis"
)

type redisKV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CartKey(slotKey string) string
}

// RedisSlot stores snapshots under the namespaced cart keys of the shared redis client.
type RedisSlot struct {
	client redisKV
}

// NewRedisSlot wraps a redis client as a cart slot.
func NewRedisSlot(client redisKV) (*RedisSlot, error) {
	if client == nil {
		return nil, errors.New("redis client required")
	}
	return &RedisSlot{client: client}, nil
}

func (r *RedisSlot) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := r.client.Get(ctx, r.client.CartKey(key))
	if err != nil {
		if redis.IsNil(err) {
			return "", false, nil
		}
		return "", false, err
	}
	return value, true, nil
}

func (r *RedisSlot) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, r.client.CartKey(key), value, ttl)
}

func (r *RedisSlot) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.client.CartKey(key))
}
