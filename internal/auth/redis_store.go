package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/example/viewlulu/internal/logging"
)

// DefaultRedisKey is where RedisTokenStore keeps the access token.
const DefaultRedisKey = "viewlulu:access_token"

// redisClient is the subset of redis.Cmdable the store uses, so tests can stub it.
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisTokenStore shares the token between processes on one device profile.
type RedisTokenStore struct {
	client redisClient
	key    string
	ttl    time.Duration
}

// NewRedisTokenStore constructs a Redis-backed token store. A zero ttl keeps the token until cleared.
func NewRedisTokenStore(client redis.Cmdable, key string, ttl time.Duration) *RedisTokenStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisTokenStore{client: client, key: key, ttl: ttl}
}

func (s *RedisTokenStore) Token(ctx context.Context) (string, error) {
	token, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrTokenMissing
	}
	if err != nil {
		return "", logging.NewOperationError("auth.redis_store.get", "", err)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrTokenMissing
	}
	return token, nil
}

func (s *RedisTokenStore) SetToken(ctx context.Context, token string) error {
	err := s.client.Set(ctx, s.key, strings.TrimSpace(token), s.ttl).Err()
	return logging.NewOperationError("auth.redis_store.set", "", err)
}

func (s *RedisTokenStore) Clear(ctx context.Context) error {
	err := s.client.Del(ctx, s.key).Err()
	return logging.NewOperationError("auth.redis_store.del", "", err)
}
