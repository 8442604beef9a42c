package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsehub/channel-pulse/internal/logging"
)

// setupRedis skips when no local Redis is reachable.
func setupRedis(t *testing.T) *Redis {
	t.Helper()
	store, err := NewRedis(RedisOptions{
		Addr:   "localhost:6379",
		Prefix: "channelpulse-test",
	}, logging.WithComponent("test"))
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	t.Cleanup(func() {
		store.Clear(context.Background())
		store.Close()
	})
	return store
}

func TestRedisSetGet(t *testing.T) {
	store := setupRedis(t)
	ctx := context.Background()

	store.Set(ctx, "k", []byte("v"), time.Minute)
	val, ok := store.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), val)
}

func TestRedisMissingKey(t *testing.T) {
	store := setupRedis(t)
	_, ok := store.Get(context.Background(), "nope")
	assert.False(t, ok)
}

func TestRedisDelete(t *testing.T) {
	store := setupRedis(t)
	ctx := context.Background()

	store.Set(ctx, "k", []byte("v"), time.Minute)
	store.Delete(ctx, "k")
	_, ok := store.Get(ctx, "k")
	assert.False(t, ok)
}

func TestRedisConstructorFailsFast(t *testing.T) {
	_, err := NewRedis(RedisOptions{Addr: "127.0.0.1:1"}, logging.WithComponent("test"))
	assert.Error(t, err)
}
