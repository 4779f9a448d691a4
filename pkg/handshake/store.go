package handshake

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// StateStore keeps pending handshake nonces.
type StateStore interface {
	StoreState(ctx context.Context, state string, expiresAt time.Time) error
	// ConsumeState atomically checks that state exists and has not expired,
	// then removes it. Returns ErrStateNotFound otherwise.
	ConsumeState(ctx context.Context, state string) error
}

// MemoryStore is an in-process StateStore. Expired entries are swept on write.
type MemoryStore struct {
	mu     sync.Mutex
	clock  clockwork.Clock
	states map[string]time.Time
}

// NewMemoryStore creates a store reading time from clock (nil means real time).
func NewMemoryStore(clock clockwork.Clock) *MemoryStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryStore{clock: clock, states: map[string]time.Time{}}
}

func (m *MemoryStore) StoreState(_ context.Context, state string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	for s, exp := range m.states {
		if !now.Before(exp) {
			delete(m.states, s)
		}
	}
	m.states[state] = expiresAt
	return nil
}

func (m *MemoryStore) ConsumeState(_ context.Context, state string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	exp, ok := m.states[state]
	if !ok {
		return ErrStateNotFound
	}
	delete(m.states, state)
	if !m.clock.Now().Before(exp) {
		return ErrStateNotFound
	}
	return nil
}

// Len returns the number of stored states, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.states)
}

// Clear drops every pending state.
func (m *MemoryStore) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.states)
}
