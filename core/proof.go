package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// RequestStatus tracks a proof request through its lifecycle.
type RequestStatus string

const (
	StatusSubmitted  RequestStatus = "submitted"
	StatusGenerating RequestStatus = "generating"
	StatusCompleted  RequestStatus = "completed"
	StatusFailed     RequestStatus = "failed"
)

// Terminal reports whether the status permits no further transitions.
func (s RequestStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// FailureCause classifies why a proof request failed without exposing
// backend internals.
type FailureCause string

const (
	CauseBackend FailureCause = "backend_error"
	CauseTimeout FailureCause = "timeout"
)

// ProofRequest correlates a client submission with the backend work it
// triggered. Once Completed or Failed the record is immutable.
type ProofRequest struct {
	SessionID string         // Client-supplied correlation id
	Address   string         // Wallet address of the submitting session
	Status    RequestStatus
	Cause     FailureCause   // Set only when Status is Failed
	Artifact  *ProofArtifact // Set only when Status is Completed
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PublicSignals are the non-secret outputs accompanying a proof, required
// for verification and replay detection.
type PublicSignals struct {
	Score          decimal.Decimal `json:"score"`
	ScoreRange     [2]int64        `json:"score_range"`
	BehaviorHash   string          `json:"behavior_hash"`
	ModelVersion   string          `json:"model_version"`
	Timestamp      int64           `json:"timestamp"`
	ProofType      string          `json:"proof_type"`
	CircuitVersion string          `json:"circuit_version"`
}

// InRange reports whether the score lies inside the declared score range.
func (p PublicSignals) InRange() bool {
	lo := decimal.NewFromInt(p.ScoreRange[0])
	hi := decimal.NewFromInt(p.ScoreRange[1])
	return p.Score.GreaterThanOrEqual(lo) && p.Score.LessThanOrEqual(hi)
}

// ProofArtifact is the immutable output of a successful proof generation.
// Proof data and verification key are opaquely encoded; ownership transfers
// to the caller on response.
type ProofArtifact struct {
	ProofData       string        `json:"proof_data"`       // base64
	VerificationKey string        `json:"verification_key"` // base64
	PublicSignals   PublicSignals `json:"public_signals"`
}

// VerificationResult is computed fresh on every verify call and never
// persisted. A proof that fails to verify is a normal outcome, not an error.
type VerificationResult struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}
