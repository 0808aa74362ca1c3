// internal/cache/idempotency.go
package cache

import (
	"context"
	"sync"
	"time"
)

// pendingMarker is stored while the first request holding a key is still
// being processed.
const pendingMarker = "pending"

// IdempotencyStore remembers which result a client-supplied key produced.
type IdempotencyStore interface {
	// Reserve claims key. When the key was already claimed it returns the
	// stored value and reserved=false; the value is "" while the first
	// request is still in flight.
	Reserve(ctx context.Context, key string, ttl time.Duration) (existing string, reserved bool, err error)
	// Complete stores the result for a reserved key.
	Complete(ctx context.Context, key, value string, ttl time.Duration) error
	// Release frees a reserved key whose request failed.
	Release(ctx context.Context, key string) error
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryStore is an in-process IdempotencyStore for single-replica
// deployments and tests.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (m *MemoryStore) Reserve(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if e, ok := m.entries[key]; ok && now.Before(e.expiresAt) {
		return visible(e.value), false, nil
	}

	m.entries[key] = memoryEntry{value: pendingMarker, expiresAt: now.Add(ttl)}
	return "", true, nil
}

func (m *MemoryStore) Complete(ctx context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = memoryEntry{value: value, expiresAt: m.now().Add(ttl)}
	return nil
}

func (m *MemoryStore) Release(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, key)
	return nil
}

func visible(value string) string {
	if value == pendingMarker {
		return ""
	}
	return value
}
