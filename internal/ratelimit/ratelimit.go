// Package ratelimit implements fixed-window request counting.
// Windows reset at discrete boundaries; a burst of up to 2x the maximum is
// possible across a boundary and is accepted behavior.
package ratelimit

import (
	"sync"
	"time"
)

// Result is the outcome of a single rate check.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

type window struct {
	count   int
	resetAt time.Time
}

// Limiter tracks fixed windows keyed by caller or resource identity.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

// New creates an empty limiter.
func New() *Limiter {
	return &Limiter{
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// Check consumes one slot for identity if the current window has capacity.
// A request arriving exactly at the reset instant starts a fresh window.
// Denied requests do not consume a slot.
func (l *Limiter) Check(identity string, max int, windowLen time.Duration) Result {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[identity]
	if !ok || !now.Before(w.resetAt) {
		w = &window{count: 1, resetAt: now.Add(windowLen)}
		l.windows[identity] = w
		return Result{Allowed: true, Remaining: max - 1, ResetAt: w.resetAt}
	}

	if w.count >= max {
		return Result{Allowed: false, Remaining: 0, ResetAt: w.resetAt}
	}

	w.count++
	return Result{Allowed: true, Remaining: max - w.count, ResetAt: w.resetAt}
}

// Sweep drops windows whose reset instant has passed and reports the count.
func (l *Limiter) Sweep() int {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	dropped := 0
	for k, w := range l.windows {
		if !now.Before(w.resetAt) {
			delete(l.windows, k)
			dropped++
		}
	}
	return dropped
}

// Len reports the number of tracked windows, expired or not.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}
