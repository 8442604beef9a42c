// Package cache provides the shared memoization store for provider calls.
// Caching here is a performance optimization only: a failing backend must
// look like a miss, never like an error.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/pulsehub/channel-pulse/internal/metrics"
)

// Store is the key/value contract shared by the in-memory and Redis backends.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Delete(ctx context.Context, key string)
	Clear(ctx context.Context)
}

type entry struct {
	value     []byte
	expiresAt time.Time
}

// Memory is a process-local Store with per-entry expiry.
// Reads past expiry evict lazily; Sweep bounds memory for keys never re-read.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Get returns the value for key, treating expired entries as absent.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		metrics.CacheHits.WithLabelValues("memory", "miss").Inc()
		return nil, false
	}
	if !m.now().Before(e.expiresAt) {
		m.mu.Lock()
		// Re-check under the write lock; a Set may have replaced the entry.
		if cur, still := m.entries[key]; still && !m.now().Before(cur.expiresAt) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		metrics.CacheHits.WithLabelValues("memory", "miss").Inc()
		return nil, false
	}
	metrics.CacheHits.WithLabelValues("memory", "hit").Inc()
	return e.value, true
}

// Set stores value under key, overwriting unconditionally and resetting TTL.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	m.mu.Lock()
	m.entries[key] = entry{value: value, expiresAt: m.now().Add(ttl)}
	m.mu.Unlock()
}

// Delete removes key if present.
func (m *Memory) Delete(_ context.Context, key string) {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
}

// Clear drops every entry.
func (m *Memory) Clear(_ context.Context) {
	m.mu.Lock()
	m.entries = make(map[string]entry)
	m.mu.Unlock()
}

// Sweep removes expired entries and reports how many were dropped.
// Called periodically by the maintenance scheduler.
func (m *Memory) Sweep() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()

	dropped := 0
	for k, e := range m.entries {
		if !now.Before(e.expiresAt) {
			delete(m.entries, k)
			dropped++
		}
	}
	return dropped
}

// Len reports the number of live entries, expired or not.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
