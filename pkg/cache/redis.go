package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/matzehuels/algoviz/pkg/errors"
)

// RedisCache stores entries as plain Redis strings under a prefix, with
// the TTL enforced by Redis.
type RedisCache struct {
	client *redis.Client
	prefix string
	owned  bool
}

// NewRedisCache wraps an existing client. The client is not closed by Close.
func NewRedisCache(client *redis.Client, prefix string) (*RedisCache, error) {
	if err := apperrors.ValidateKeyPrefix(prefix); err != nil {
		return nil, err
	}
	return &RedisCache{client: client, prefix: prefix}, nil
}

// DialRedisCache connects to the server at url and verifies the connection.
func DialRedisCache(ctx context.Context, url, prefix string) (*RedisCache, error) {
	if err := apperrors.ValidateKeyPrefix(prefix); err != nil {
		return nil, err
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidConfig, err, "parse redis url")
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, apperrors.Wrap(apperrors.ErrCodeState, err, "connect to redis")
	}
	return &RedisCache{client: client, prefix: prefix, owned: true}, nil
}

func (c *RedisCache) key(k string) string {
	return c.prefix + ":cache:" + k
}

// Get retrieves a value.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Set stores a value.
func (c *RedisCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return c.client.Set(ctx, c.key(key), data, ttl).Err()
}

// Delete removes a value.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.key(key)).Err()
}

// Close closes the client if the cache dialed it.
func (c *RedisCache) Close() error {
	if c.owned {
		return c.client.Close()
	}
	return nil
}

var _ Cache = (*RedisCache)(nil)
