package cart

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "cart:"

// Carts are abandoned far more often than checked out; let them lapse.
const cartTTL = 30 * 24 * time.Hour

// RedisBackend persists carts in Redis, one key per device token.
type RedisBackend struct {
	client *redis.Client
}

// NewRedisBackend creates a redis cart backend.
func NewRedisBackend(client *redis.Client) *RedisBackend {
	return &RedisBackend{client: client}
}

// Load returns the serialized cart, or nil when absent.
func (b *RedisBackend) Load(ctx context.Context, token string) ([]byte, error) {
	data, err := b.client.Get(ctx, keyPrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return data, err
}

// Save writes the serialized cart, refreshing the TTL.
func (b *RedisBackend) Save(ctx context.Context, token string, data []byte) error {
	return b.client.Set(ctx, keyPrefix+token, data, cartTTL).Err()
}

// Delete removes the cart.
func (b *RedisBackend) Delete(ctx context.Context, token string) error {
	return b.client.Del(ctx, keyPrefix+token).Err()
}
