package paymode

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "paymode:"

// RedisCache is the production Cache backed by go-redis.
type RedisCache struct {
	rdb *redis.Client
}

func NewRedisCache(rdb *redis.Client) *RedisCache { return &RedisCache{rdb: rdb} }

func (c *RedisCache) Get(ctx context.Context, tenantID string) (Mode, bool, error) {
	v, err := c.rdb.Get(ctx, cacheKeyPrefix+tenantID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, err
	}
	m := Mode(v)
	if !m.Valid() {
		return "", false, nil
	}
	return m, true, nil
}

func (c *RedisCache) Set(ctx context.Context, tenantID string, m Mode, ttl time.Duration) error {
	return c.rdb.Set(ctx, cacheKeyPrefix+tenantID, string(m), ttl).Err()
}

func (c *RedisCache) Del(ctx context.Context, tenantID string) error {
	return c.rdb.Del(ctx, cacheKeyPrefix+tenantID).Err()
}
