package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/zkpersona/zkpersona/core"
	"github.com/zkpersona/zkpersona/ports"
)

// ProofService orchestrates proof generation and verification. Generation
// is the dominant cost: it runs behind a weighted semaphore so a burst of
// submissions cannot starve authentication traffic, and concurrent calls
// for the same correlation id are joined through a singleflight group so
// the backend never runs the same request twice in parallel.
type ProofService struct {
	store    ports.ProofStore
	prover   ports.Prover
	eventPub ports.EventPublisher
	clock    ports.Clock
	logger   *slog.Logger

	flight  singleflight.Group
	workers *semaphore.Weighted
	timeout time.Duration
}

// ProofOption configures optional ProofService parameters.
type ProofOption func(*ProofService)

// WithProofTimeout bounds a single generation attempt.
func WithProofTimeout(timeout time.Duration) ProofOption {
	return func(s *ProofService) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// WithProofWorkers caps concurrent backend generations.
func WithProofWorkers(n int64) ProofOption {
	return func(s *ProofService) {
		if n > 0 {
			s.workers = semaphore.NewWeighted(n)
		}
	}
}

// WithProofClock overrides the clock.
func WithProofClock(clock ports.Clock) ProofOption {
	return func(s *ProofService) { s.clock = clock }
}

// WithProofLogger sets the structured logger.
func WithProofLogger(logger *slog.Logger) ProofOption {
	return func(s *ProofService) { s.logger = logger }
}

// NewProofService creates a new proof orchestration service
func NewProofService(store ports.ProofStore, prover ports.Prover, eventPub ports.EventPublisher, opts ...ProofOption) *ProofService {
	s := &ProofService{
		store:    store,
		prover:   prover,
		eventPub: eventPub,
		clock:    ports.SystemClock{},
		logger:   slog.Default(),
		workers:  semaphore.NewWeighted(4),
		timeout:  30 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Generate runs the proof pipeline for an authenticated wallet. Retrying a
// Completed correlation id returns the stored artifact instead of
// regenerating; a Failed id is cleared and attempted fresh; an id whose
// store record is in flight but not owned by this flight (a stranded
// attempt, or another instance when the store is shared) is rejected as a
// duplicate.
func (s *ProofService) Generate(ctx context.Context, address, sessionID string, behaviorInput json.RawMessage) (*core.ProofArtifact, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session_id is required: %w", core.ErrInvalidInput)
	}
	if err := validateBehaviorInput(behaviorInput); err != nil {
		return nil, err
	}

	// Joiners share the leader's result. The leader detaches from its
	// caller's cancellation so one dropped connection cannot fail the
	// request for everyone who deduped onto it.
	ch := s.flight.DoChan(sessionID, func() (any, error) {
		genCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		return s.generate(genCtx, address, sessionID, behaviorInput)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*core.ProofArtifact), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *ProofService) generate(ctx context.Context, address, sessionID string, behaviorInput json.RawMessage) (*core.ProofArtifact, error) {
	now := s.clock.Now()
	req := &core.ProofRequest{
		SessionID: sessionID,
		Address:   address,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if existing, err := s.store.Create(ctx, req); err != nil {
		if !errors.Is(err, core.ErrRequestConflict) {
			return nil, fmt.Errorf("failed to register request: %w", err)
		}
		switch existing.Status {
		case core.StatusCompleted:
			// Idempotent retry: never rerun a costly generation.
			return existing.Artifact, nil
		case core.StatusFailed:
			if err := s.store.Delete(ctx, sessionID); err != nil {
				return nil, fmt.Errorf("failed to clear failed request: %w", err)
			}
			if _, err := s.store.Create(ctx, req); err != nil {
				return nil, fmt.Errorf("failed to re-register request: %w", err)
			}
		default:
			return nil, core.ErrRequestConflict
		}
	}

	if err := s.store.Transition(ctx, sessionID, core.StatusGenerating, nil, ""); err != nil {
		return nil, fmt.Errorf("failed to start generation: %w", err)
	}

	artifact, err := s.runBackend(ctx, address, behaviorInput)
	if err != nil {
		cause := core.CauseBackend
		outErr := core.ErrProofGeneration
		if errors.Is(err, context.DeadlineExceeded) {
			cause = core.CauseTimeout
			outErr = core.ErrProofTimeout
		}
		s.logger.Error("proof generation failed",
			slog.String("session_id", sessionID),
			slog.String("address", address),
			slog.String("cause", string(cause)),
			slog.Any("error", err),
		)
		if terr := s.store.Transition(ctx, sessionID, core.StatusFailed, nil, cause); terr != nil {
			s.logger.Error("failed to record failure", slog.String("session_id", sessionID), slog.Any("error", terr))
		}
		if perr := s.eventPub.PublishProofFailed(ctx, address, sessionID, string(cause)); perr != nil {
			s.logger.Warn("failed to publish proof event", slog.Any("error", perr))
		}
		// Backend detail stays in the logs; callers get the generic cause.
		return nil, outErr
	}

	if err := s.store.Transition(ctx, sessionID, core.StatusCompleted, artifact, ""); err != nil {
		return nil, fmt.Errorf("failed to record completion: %w", err)
	}
	if err := s.eventPub.PublishProofCompleted(ctx, address, sessionID); err != nil {
		s.logger.Warn("failed to publish proof event", slog.Any("error", err))
	}

	return artifact, nil
}

// runBackend acquires a worker slot and delegates to the proof backend.
// The context carries the per-request deadline.
func (s *ProofService) runBackend(ctx context.Context, address string, behaviorInput json.RawMessage) (*core.ProofArtifact, error) {
	if err := s.workers.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer s.workers.Release(1)

	return s.prover.GenerateProof(ctx, address, behaviorInput)
}

// Verify checks an artifact on behalf of any third party; no session is
// required. Only malformed encodings are the caller's error; a proof that
// simply does not verify is a normal {valid:false} result.
func (s *ProofService) Verify(ctx context.Context, proofData, verificationKey string, signals core.PublicSignals) (core.VerificationResult, error) {
	if proofData == "" || verificationKey == "" {
		return core.VerificationResult{}, fmt.Errorf("proof data and verification key are required: %w", core.ErrInvalidEncoding)
	}
	return s.prover.VerifyProof(ctx, proofData, verificationKey, signals)
}

// Request exposes the tracked state for a correlation id.
func (s *ProofService) Request(ctx context.Context, sessionID string) (*core.ProofRequest, error) {
	return s.store.Get(ctx, sessionID)
}

func validateBehaviorInput(input json.RawMessage) error {
	trimmed := bytes.TrimSpace(input)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return fmt.Errorf("behavior_input is required: %w", core.ErrInvalidInput)
	}

	var decoded any
	if err := json.Unmarshal(trimmed, &decoded); err != nil {
		return fmt.Errorf("behavior_input is not valid JSON: %w", core.ErrInvalidInput)
	}
	switch t := decoded.(type) {
	case map[string]any:
		if len(t) == 0 {
			return fmt.Errorf("behavior_input is empty: %w", core.ErrInvalidInput)
		}
	case []any:
		if len(t) == 0 {
			return fmt.Errorf("behavior_input is empty: %w", core.ErrInvalidInput)
		}
	}
	return nil
}
