// Package detector evaluates security log entries against abuse patterns and
// raises alerts. Detectors keep their sliding-window state in a CounterStore
// so the same logic runs against the in-memory store or Redis.
package detector

import (
	"context"
	"sync"
	"time"
)

// CounterStore holds windowed counters, distinct-member sets and boolean flags
// with expiry. Counters use fixed-window semantics: the first increment starts
// the window and the key expires when it ends.
type CounterStore interface {
	// Increment adds one to the counter at key and returns the new value.
	// The window TTL is set only when the counter is created.
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)

	// Reset removes the counter at key.
	Reset(ctx context.Context, key string) error

	// SetFlag raises a boolean flag that expires after ttl.
	SetFlag(ctx context.Context, key string, ttl time.Duration) error

	// HasFlag reports whether the flag at key is currently raised.
	HasFlag(ctx context.Context, key string) (bool, error)

	// AddDistinct adds member to the set at key and returns the set's
	// cardinality. The window TTL is set only when the set is created.
	AddDistinct(ctx context.Context, key, member string, window time.Duration) (int64, error)
}

type counterEntry struct {
	count     int64
	members   map[string]struct{}
	expiresAt time.Time
}

// MemoryCounterStore implements CounterStore with an in-memory map.
// Thread-safe for concurrent access.
type MemoryCounterStore struct {
	mu      sync.Mutex
	entries map[string]*counterEntry
}

// NewMemoryCounterStore creates a new in-memory counter store.
func NewMemoryCounterStore() *MemoryCounterStore {
	return &MemoryCounterStore{entries: make(map[string]*counterEntry)}
}

// live returns the entry at key, discarding it first when expired.
func (m *MemoryCounterStore) live(key string, now time.Time) *counterEntry {
	entry, ok := m.entries[key]
	if !ok {
		return nil
	}
	if now.After(entry.expiresAt) {
		delete(m.entries, key)
		return nil
	}
	return entry
}

func (m *MemoryCounterStore) Increment(_ context.Context, key string, window time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	entry := m.live(key, now)
	if entry == nil {
		entry = &counterEntry{expiresAt: now.Add(window)}
		m.entries[key] = entry
	}
	entry.count++
	return entry.count, nil
}

func (m *MemoryCounterStore) Reset(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, key)
	return nil
}

func (m *MemoryCounterStore) SetFlag(_ context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = &counterEntry{count: 1, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (m *MemoryCounterStore) HasFlag(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.live(key, time.Now()) != nil, nil
}

func (m *MemoryCounterStore) AddDistinct(_ context.Context, key, member string, window time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	entry := m.live(key, now)
	if entry == nil {
		entry = &counterEntry{
			members:   make(map[string]struct{}),
			expiresAt: now.Add(window),
		}
		m.entries[key] = entry
	}
	entry.members[member] = struct{}{}
	return int64(len(entry.members)), nil
}

// Cleanup removes expired entries so idle keys do not accumulate.
// Call periodically in long-running processes.
func (m *MemoryCounterStore) Cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for key, entry := range m.entries {
		if now.After(entry.expiresAt) {
			delete(m.entries, key)
		}
	}
}
