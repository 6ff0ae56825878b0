package ports

import (
	"context"
	"encoding/json"

	"github.com/zkpersona/zkpersona/core"
)

// Prover is the opaque proof backend. Generation may take seconds; callers
// bound it with a context deadline. Verification is pure: identical inputs
// always yield identical results.
type Prover interface {
	GenerateProof(ctx context.Context, address string, behaviorInput json.RawMessage) (*core.ProofArtifact, error)
	VerifyProof(ctx context.Context, proofData, verificationKey string, signals core.PublicSignals) (core.VerificationResult, error)
}
