package cache

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned by Backend.Get when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

// Backend is a string-keyed byte store without expiry.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// RedisBackend stores values in Redis. The go-redis client is safe for
// concurrent use, so one instance is shared by all requests.
type RedisBackend struct {
	client redis.UniversalClient
}

// NewRedisBackend wraps a go-redis client.
func NewRedisBackend(client redis.UniversalClient) *RedisBackend {
	return &RedisBackend{client: client}
}

func (b *RedisBackend) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := b.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

// Set writes value with no expiration.
func (b *RedisBackend) Set(ctx context.Context, key string, value []byte) error {
	return b.client.Set(ctx, key, value, 0).Err()
}
