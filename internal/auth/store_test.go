package auth

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/viewlulu/internal/logging"
)

func TestMemoryTokenStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryTokenStore("")

	_, err := store.Token(ctx)
	assert.ErrorIs(t, err, ErrTokenMissing)

	require.NoError(t, store.SetToken(ctx, " abc "))
	token, err := store.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc", token)

	require.NoError(t, store.Clear(ctx))
	_, err = store.Token(ctx)
	assert.ErrorIs(t, err, ErrTokenMissing)
}

func TestFileTokenStorePersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "token")

	_, err := NewFileTokenStore(path).Token(ctx)
	assert.ErrorIs(t, err, ErrTokenMissing)

	require.NoError(t, NewFileTokenStore(path).SetToken(ctx, "tok-1\n"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	token, err := NewFileTokenStore(path).Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)

	store := NewFileTokenStore(path)
	require.NoError(t, store.Clear(ctx))
	require.NoError(t, store.Clear(ctx))
	_, err = store.Token(ctx)
	assert.ErrorIs(t, err, ErrTokenMissing)
}

func TestFileTokenStoreEmptyFileIsMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	require.NoError(t, os.WriteFile(path, []byte("  \n"), 0o600))

	_, err := NewFileTokenStore(path).Token(context.Background())
	assert.ErrorIs(t, err, ErrTokenMissing)
}

type stubRedis struct {
	getValue string
	getErr   error
	setErr   error
	setKeys  []string
	setTTL   time.Duration
	delKeys  []string
}

func (s *stubRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	return redis.NewStringResult(s.getValue, s.getErr)
}

func (s *stubRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	s.setKeys = append(s.setKeys, key)
	s.setTTL = expiration
	return redis.NewStatusResult("OK", s.setErr)
}

func (s *stubRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	s.delKeys = append(s.delKeys, keys...)
	return redis.NewIntResult(1, nil)
}

func TestRedisTokenStore(t *testing.T) {
	ctx := context.Background()
	client := &stubRedis{getErr: redis.Nil}
	store := &RedisTokenStore{client: client, key: DefaultRedisKey, ttl: time.Hour}

	_, err := store.Token(ctx)
	assert.ErrorIs(t, err, ErrTokenMissing)

	require.NoError(t, store.SetToken(ctx, "tok"))
	assert.Equal(t, []string{DefaultRedisKey}, client.setKeys)
	assert.Equal(t, time.Hour, client.setTTL)

	client.getErr = nil
	client.getValue = "tok"
	token, err := store.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok", token)

	require.NoError(t, store.Clear(ctx))
	assert.Equal(t, []string{DefaultRedisKey}, client.delKeys)
}

func TestRedisTokenStoreWrapsFailures(t *testing.T) {
	client := &stubRedis{getErr: errors.New("connection refused"), setErr: errors.New("readonly")}
	store := &RedisTokenStore{client: client, key: "k"}

	_, err := store.Token(context.Background())
	op, ok := logging.OperationOf(err)
	require.True(t, ok)
	assert.Equal(t, "auth.redis_store.get", op)
	assert.NotErrorIs(t, err, ErrTokenMissing)

	err = store.SetToken(context.Background(), "tok")
	op, _ = logging.OperationOf(err)
	assert.Equal(t, "auth.redis_store.set", op)
}

func TestInspect(t *testing.T) {
	expires := time.Now().Add(-time.Minute).Truncate(time.Second)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-7",
		ExpiresAt: jwt.NewNumericDate(expires),
	}).SignedString([]byte("unknown-to-client"))
	require.NoError(t, err)

	claims, err := Inspect(signed)
	require.NoError(t, err)
	assert.Equal(t, "user-7", claims.Subject)
	assert.True(t, claims.ExpiresAt.Equal(expires))
	assert.True(t, claims.Expired(time.Now()))
	assert.False(t, claims.Expired(expires.Add(-time.Second)))

	assert.False(t, Claims{}.Expired(time.Now()))

	_, err = Inspect("not-a-jwt")
	assert.Error(t, err)
}
