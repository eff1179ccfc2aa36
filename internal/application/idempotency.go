package application

import (
	"context"
	"sync"
	"time"
)

// IdempotencyStore handles short-lived de-duplication of notifications.
type IdempotencyStore interface {
	// TryReserve returns true if key was absent and is now reserved.
	// Returns false if the key already exists (duplicate).
	TryReserve(ctx context.Context, key string) (bool, error)
}

// NoopIdempotency always succeeds; useful for tests/dev when Redis is disabled.
type NoopIdempotency struct{}

func (NoopIdempotency) TryReserve(context.Context, string) (bool, error) { return true, nil }

// MemoryIdempotency keeps reservations in process memory for ttl.
type MemoryIdempotency struct {
	TTL   time.Duration
	Clock Clock

	mu   sync.Mutex
	keys map[string]time.Time
}

func NewMemoryIdempotency(ttl time.Duration) *MemoryIdempotency {
	return &MemoryIdempotency{TTL: ttl}
}

func (m *MemoryIdempotency) TryReserve(_ context.Context, key string) (bool, error) {
	clock := m.Clock
	if clock == nil {
		clock = realClock{}
	}
	now := clock.Now()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys == nil {
		m.keys = map[string]time.Time{}
	}
	for k, exp := range m.keys {
		if !now.Before(exp) {
			delete(m.keys, k)
		}
	}
	if _, ok := m.keys[key]; ok {
		return false, nil
	}
	m.keys[key] = now.Add(m.TTL)
	return true, nil
}
