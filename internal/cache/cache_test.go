package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySetGet(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	m.Set(ctx, "k", []byte("v"), time.Minute)
	val, ok := m.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), val)
}

func TestMemoryExpiry(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	now := time.Now()
	m.now = func() time.Time { return now }

	m.Set(ctx, "k", []byte("v"), 10*time.Second)

	// Still fresh just before expiry
	now = now.Add(9 * time.Second)
	_, ok := m.Get(ctx, "k")
	assert.True(t, ok)

	// Past expiry: absent, and the read evicts
	now = now.Add(2 * time.Second)
	_, ok = m.Get(ctx, "k")
	assert.False(t, ok)
	assert.Equal(t, 0, m.Len())
}

func TestMemoryOverwriteResetsTTL(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	now := time.Now()
	m.now = func() time.Time { return now }

	m.Set(ctx, "k", []byte("old"), 10*time.Second)
	now = now.Add(8 * time.Second)
	m.Set(ctx, "k", []byte("new"), 10*time.Second)

	now = now.Add(5 * time.Second)
	val, ok := m.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, []byte("new"), val)
}

func TestMemoryDelete(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	m.Set(ctx, "k", []byte("v"), time.Minute)
	m.Delete(ctx, "k")
	_, ok := m.Get(ctx, "k")
	assert.False(t, ok)
}

func TestMemoryClear(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	m.Set(ctx, "a", []byte("1"), time.Minute)
	m.Set(ctx, "b", []byte("2"), time.Minute)
	m.Clear(ctx)
	assert.Equal(t, 0, m.Len())
}

func TestMemorySweep(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	now := time.Now()
	m.now = func() time.Time { return now }

	m.Set(ctx, "expired", []byte("1"), 5*time.Second)
	m.Set(ctx, "live", []byte("2"), time.Hour)

	now = now.Add(10 * time.Second)
	dropped := m.Sweep()
	assert.Equal(t, 1, dropped)
	assert.Equal(t, 1, m.Len())

	_, ok := m.Get(ctx, "live")
	assert.True(t, ok)
}
