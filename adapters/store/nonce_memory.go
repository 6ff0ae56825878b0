package store

import (
	"context"
	"sync"
	"time"

	"github.com/zkpersona/zkpersona/core"
	"github.com/zkpersona/zkpersona/ports"
)

// MemoryNonceStore keeps pending challenges in a mutex-guarded map. One
// pending challenge per address; issuing replaces the previous one, which
// makes the earlier message unusable.
type MemoryNonceStore struct {
	mu     sync.Mutex
	nonces map[string]*core.Nonce
}

// NewMemoryNonceStore creates a new in-memory nonce store
func NewMemoryNonceStore() *MemoryNonceStore {
	return &MemoryNonceStore{
		nonces: make(map[string]*core.Nonce),
	}
}

// Issue stores the challenge, overwriting any pending one for the address.
func (s *MemoryNonceStore) Issue(ctx context.Context, nonce *core.Nonce) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *nonce
	s.nonces[nonce.Address] = &cp
	return nil
}

// Consume atomically removes and returns the pending challenge. Expired
// entries are evicted on access.
func (s *MemoryNonceStore) Consume(ctx context.Context, address, presented string, now time.Time) (*core.Nonce, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nonce, ok := s.nonces[address]
	if !ok {
		return nil, core.ErrNonceNotFound
	}
	if nonce.Expired(now) {
		delete(s.nonces, address)
		return nil, core.ErrNonceExpired
	}
	if presented != "" && presented != nonce.Message() {
		return nil, core.ErrNonceMismatch
	}

	delete(s.nonces, address)
	consumed := *nonce
	consumed.Consumed = true
	return &consumed, nil
}

// Sweep evicts every challenge past its expiry. Intended to run on a
// periodic cadence from the caller.
func (s *MemoryNonceStore) Sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for address, nonce := range s.nonces {
		if nonce.Expired(now) {
			delete(s.nonces, address)
		}
	}
}

var _ ports.NonceStore = (*MemoryNonceStore)(nil)
