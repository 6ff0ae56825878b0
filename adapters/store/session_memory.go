package store

import (
	"context"
	"sync"
	"time"

	"github.com/zkpersona/zkpersona/ports"
)

// MemorySessionStore is an in-memory session registry. An entry past its
// expiry is inert for IsLive regardless of when it is physically removed.
type MemorySessionStore struct {
	mu       sync.RWMutex
	clock    ports.Clock
	sessions map[string]time.Time
}

// NewMemorySessionStore creates a new in-memory session registry
func NewMemorySessionStore(clock ports.Clock) *MemorySessionStore {
	return &MemorySessionStore{
		clock:    clock,
		sessions: make(map[string]time.Time),
	}
}

// Register marks the refresh id as live for the given TTL.
func (s *MemorySessionStore) Register(ctx context.Context, refreshID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[refreshID] = s.clock.Now().Add(ttl)
	return nil
}

// Revoke removes the refresh id from the registry.
func (s *MemorySessionStore) Revoke(ctx context.Context, refreshID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, refreshID)
	return nil
}

// IsLive reports whether the refresh id is registered and unexpired.
func (s *MemorySessionStore) IsLive(ctx context.Context, refreshID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expiry, ok := s.sessions[refreshID]
	if !ok {
		return false, nil
	}
	return s.clock.Now().Before(expiry), nil
}

// Sweep removes expired entries. Runs under the lock but only touches the
// registry map, never blocking on I/O.
func (s *MemorySessionStore) Sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, expiry := range s.sessions {
		if now.After(expiry) {
			delete(s.sessions, id)
		}
	}
}

var _ ports.SessionStore = (*MemorySessionStore)(nil)
