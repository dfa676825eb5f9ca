package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oggyb/amica/internal/config"
	"github.com/redis/go-redis/v9"
)

// MatchTTL bounds how long a cached latest-match snapshot may live
// without being invalidated by a mutation.
const MatchTTL = time.Hour

type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache initializes Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return &RedisCache{Client: redis.NewClient(opts)}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.Client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	return c.Client.Get(ctx, key).Result()
}

func (c *RedisCache) Del(ctx context.Context, keys ...string) error {
	return c.Client.Del(ctx, keys...).Err()
}

// KeyForLatestMatch generates the Redis key caching a user's latest match row.
func (c *RedisCache) KeyForLatestMatch(userID string) string {
	return fmt.Sprintf("match:latest:%s", userID)
}

// GetLatestMatch returns the cached latest-match JSON for a user, or
// ("", false, nil) on a cache miss.
func (c *RedisCache) GetLatestMatch(ctx context.Context, userID string) (string, bool, error) {
	val, err := c.Client.Get(ctx, c.KeyForLatestMatch(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil // cache miss
	} else if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// SetLatestMatch caches the latest-match JSON for a user with the standard TTL.
func (c *RedisCache) SetLatestMatch(ctx context.Context, userID, payload string) error {
	return c.Client.Set(ctx, c.KeyForLatestMatch(userID), payload, MatchTTL).Err()
}

// InvalidateLatestMatch drops the cached snapshots of both parties after a
// match mutation.
func (c *RedisCache) InvalidateLatestMatch(ctx context.Context, userIDs ...string) error {
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, c.KeyForLatestMatch(id))
	}
	if len(keys) == 0 {
		return nil
	}
	return c.Client.Del(ctx, keys...).Err()
}
