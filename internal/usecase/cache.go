package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/example/viewlulu/internal/repository"
)

const (
	lastDetectionKey = "viewlulu:detection:last"
	lastDetectionTTL = 24 * time.Hour
)

// Cache holds short-lived detection results. Get reports a missing key as redis.Nil.
type Cache interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string) (string, error)
}

// RedisCache backs Cache with any go-redis client: single node, cluster or ring.
type RedisCache struct {
	client redis.Cmdable
}

func NewRedisCache(client redis.Cmdable) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return c.client.Set(ctx, key, value, expiration).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	return c.client.Get(ctx, key).Result()
}

func storeLastDetection(ctx context.Context, cache Cache, log *repository.DetectionLog) error {
	payload, err := json.Marshal(log)
	if err != nil {
		return fmt.Errorf("encode detection: %w", err)
	}
	return cache.Set(ctx, lastDetectionKey, string(payload), lastDetectionTTL)
}

// loadLastDetection returns found=false on a cache miss.
func loadLastDetection(ctx context.Context, cache Cache) (*repository.DetectionLog, bool, error) {
	raw, err := cache.Get(ctx, lastDetectionKey)
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var log repository.DetectionLog
	if err := json.Unmarshal([]byte(raw), &log); err != nil {
		return nil, false, fmt.Errorf("decode cached detection: %w", err)
	}
	return &log, true, nil
}
