package ratelimit

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckAllowsUpToMax(t *testing.T) {
	l := New()

	var resetAt time.Time
	for i := 1; i <= 10; i++ {
		res := l.Check("client-1", 10, time.Minute)
		require.True(t, res.Allowed, "request %d should be allowed", i)
		assert.Equal(t, 10-i, res.Remaining)
		if i == 1 {
			resetAt = res.ResetAt
		} else {
			assert.Equal(t, resetAt, res.ResetAt)
		}
	}

	// The 11th request in the same window is denied with the same resetAt
	res := l.Check("client-1", 10, time.Minute)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.Equal(t, resetAt, res.ResetAt)
}

func TestCheckDeniedDoesNotConsume(t *testing.T) {
	l := New()
	now := time.Now()
	l.now = func() time.Time { return now }

	l.Check("c", 1, time.Minute)
	for i := 0; i < 5; i++ {
		res := l.Check("c", 1, time.Minute)
		assert.False(t, res.Allowed)
	}

	// After reset the window is fresh despite the denied attempts
	now = now.Add(time.Minute)
	res := l.Check("c", 1, time.Minute)
	assert.True(t, res.Allowed)
}

func TestCheckFreshWindowAtExactReset(t *testing.T) {
	l := New()
	now := time.Now()
	l.now = func() time.Time { return now }

	first := l.Check("c", 5, time.Minute)
	require.True(t, first.Allowed)

	// Exhaust the window
	for i := 0; i < 4; i++ {
		l.Check("c", 5, time.Minute)
	}
	assert.False(t, l.Check("c", 5, time.Minute).Allowed)

	// A request arriving exactly at resetAt starts a new window
	now = first.ResetAt
	res := l.Check("c", 5, time.Minute)
	assert.True(t, res.Allowed)
	assert.Equal(t, 4, res.Remaining)
	assert.Equal(t, now.Add(time.Minute), res.ResetAt)
}

func TestIndependentIdentities(t *testing.T) {
	l := New()

	assert.True(t, l.Check("a", 1, time.Minute).Allowed)
	assert.False(t, l.Check("a", 1, time.Minute).Allowed)
	assert.True(t, l.Check("b", 1, time.Minute).Allowed)
}

func TestSweepDropsExpiredWindows(t *testing.T) {
	l := New()
	now := time.Now()
	l.now = func() time.Time { return now }

	for i := 0; i < 50; i++ {
		l.Check(fmt.Sprintf("short-%d", i), 10, time.Second)
	}
	l.Check("long", 10, time.Hour)
	require.Equal(t, 51, l.Len())

	now = now.Add(2 * time.Second)
	dropped := l.Sweep()
	assert.Equal(t, 50, dropped)
	assert.Equal(t, 1, l.Len())
}
