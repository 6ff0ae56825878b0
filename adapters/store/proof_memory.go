package store

import (
	"context"
	"sync"

	"github.com/zkpersona/zkpersona/core"
	"github.com/zkpersona/zkpersona/ports"
)

// MemoryProofStore tracks proof requests keyed by correlation id. The map
// lock is held only for lookups and state flips; it is never held across
// backend calls, so one slow generation cannot stall unrelated requests.
type MemoryProofStore struct {
	mu       sync.Mutex
	clock    ports.Clock
	requests map[string]*core.ProofRequest
}

// NewMemoryProofStore creates a new in-memory proof request store
func NewMemoryProofStore(clock ports.Clock) *MemoryProofStore {
	return &MemoryProofStore{
		clock:    clock,
		requests: make(map[string]*core.ProofRequest),
	}
}

// Create registers a request in Submitted state. If a record already exists
// for the id it is returned alongside core.ErrRequestConflict so the caller
// can dedup against Completed or in-flight work.
func (s *MemoryProofStore) Create(ctx context.Context, req *core.ProofRequest) (*core.ProofRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.requests[req.SessionID]; ok {
		cp := *existing
		return &cp, core.ErrRequestConflict
	}

	cp := *req
	cp.Status = core.StatusSubmitted
	now := s.clock.Now()
	cp.CreatedAt = now
	cp.UpdatedAt = now
	s.requests[req.SessionID] = &cp

	out := cp
	return &out, nil
}

// Transition moves the request to the given status. Terminal states are
// immutable; any transition out of them fails with core.ErrRequestConflict.
func (s *MemoryProofStore) Transition(ctx context.Context, sessionID string, status core.RequestStatus, artifact *core.ProofArtifact, cause core.FailureCause) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[sessionID]
	if !ok {
		return core.ErrRequestNotFound
	}
	if req.Status.Terminal() {
		return core.ErrRequestConflict
	}

	req.Status = status
	req.UpdatedAt = s.clock.Now()
	if status == core.StatusCompleted {
		req.Artifact = artifact
	}
	if status == core.StatusFailed {
		req.Cause = cause
	}
	return nil
}

// Get returns a copy of the request for the correlation id.
func (s *MemoryProofStore) Get(ctx context.Context, sessionID string) (*core.ProofRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[sessionID]
	if !ok {
		return nil, core.ErrRequestNotFound
	}
	cp := *req
	return &cp, nil
}

// Delete removes a terminal record so the id can be reused after a failure.
func (s *MemoryProofStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[sessionID]
	if !ok {
		return core.ErrRequestNotFound
	}
	if !req.Status.Terminal() {
		return core.ErrRequestConflict
	}
	delete(s.requests, sessionID)
	return nil
}

var _ ports.ProofStore = (*MemoryProofStore)(nil)
