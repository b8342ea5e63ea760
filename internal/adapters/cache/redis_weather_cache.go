package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"route-weather-service/internal/ports"
	"time"

	"github.com/redis/go-redis/v9"
)

const weatherKeyPrefix = "weather:zip:"

// RedisWeatherCache shares zip weather lookups across service instances.
type RedisWeatherCache struct {
	rdb *redis.Client
}

func NewRedisWeatherCache(rdb *redis.Client) *RedisWeatherCache {
	return &RedisWeatherCache{rdb: rdb}
}

// OpenRedis parses a redis:// URL and verifies the server answers.
func OpenRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("open redis: parse url: %w", err)
	}

	rdb := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("open redis: ping: %w", err)
	}
	return rdb, nil
}

func (c *RedisWeatherCache) Get(ctx context.Context, zip string) (ports.Conditions, bool, error) {
	b, err := c.rdb.Get(ctx, weatherKeyPrefix+zip).Bytes()
	if errors.Is(err, redis.Nil) {
		return ports.Conditions{}, false, nil
	}
	if err != nil {
		return ports.Conditions{}, false, fmt.Errorf("redis weather cache get %s: %w", zip, err)
	}

	var cond ports.Conditions
	if err := json.Unmarshal(b, &cond); err != nil {
		return ports.Conditions{}, false, fmt.Errorf("redis weather cache decode %s: %w", zip, err)
	}
	return cond, true, nil
}

func (c *RedisWeatherCache) Set(ctx context.Context, zip string, cond ports.Conditions, ttl time.Duration) error {
	b, err := json.Marshal(cond)
	if err != nil {
		return fmt.Errorf("redis weather cache encode %s: %w", zip, err)
	}
	if err := c.rdb.Set(ctx, weatherKeyPrefix+zip, b, ttl).Err(); err != nil {
		return fmt.Errorf("redis weather cache set %s: %w", zip, err)
	}
	return nil
}

func (c *RedisWeatherCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
