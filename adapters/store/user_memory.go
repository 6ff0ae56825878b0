package store

import (
	"context"
	"sync"

	"github.com/zkpersona/zkpersona/core"
	"github.com/zkpersona/zkpersona/ports"
)

// MemoryUserStore keeps the authenticated-wallet registry in memory.
type MemoryUserStore struct {
	mu    sync.RWMutex
	users map[string]*core.User
}

// NewMemoryUserStore creates a new in-memory user store
func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{
		users: make(map[string]*core.User),
	}
}

// Get retrieves a user by wallet address.
func (s *MemoryUserStore) Get(ctx context.Context, address string) (*core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[address]
	if !ok {
		return nil, core.ErrUserNotFound
	}
	cp := *user
	return &cp, nil
}

// Upsert creates or replaces the user record.
func (s *MemoryUserStore) Upsert(ctx context.Context, user *core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *user
	s.users[user.Address] = &cp
	return nil
}

var _ ports.UserStore = (*MemoryUserStore)(nil)
