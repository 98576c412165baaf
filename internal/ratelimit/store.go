// Package ratelimit implements a fixed-window request counter keyed by client
// IP or principal. The window starts at the first request for a key and the
// counter resets exactly at the window boundary; idle keys expire so the store
// does not grow without bound.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Config holds the rate limit policy.
type Config struct {
	// Limit is the maximum number of requests allowed per window. Must be > 0.
	Limit int
	// Window is the fixed window duration. Must be > 0.
	Window time.Duration
}

// Decision is the outcome of a rate limit check.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Store counts requests per key within fixed windows.
type Store interface {
	// Check consumes one request slot for key and reports whether it was
	// within the limit. RetryAfter is set only on denial.
	Check(ctx context.Context, key string, config Config) (Decision, error)
}

type window struct {
	count int
	endAt time.Time
}

// MemoryStore implements Store with an in-memory map.
// Thread-safe for concurrent access.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*window
}

// NewMemoryStore creates a new in-memory rate limit store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{windows: make(map[string]*window)}
}

func (m *MemoryStore) Check(_ context.Context, key string, config Config) (Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	w, ok := m.windows[key]
	if !ok || !now.Before(w.endAt) {
		m.windows[key] = &window{count: 1, endAt: now.Add(config.Window)}
		return Decision{Allowed: true, Remaining: config.Limit - 1}, nil
	}

	if w.count < config.Limit {
		w.count++
		return Decision{Allowed: true, Remaining: config.Limit - w.count}, nil
	}

	retryAfter := w.endAt.Sub(now)
	if retryAfter <= 0 {
		retryAfter = time.Second
	}
	return Decision{Allowed: false, RetryAfter: retryAfter}, nil
}

// Cleanup removes expired windows. Call periodically in long-running
// processes.
func (m *MemoryStore) Cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for key, w := range m.windows {
		if !now.Before(w.endAt) {
			delete(m.windows, key)
		}
	}
}
