// Package prover implements the local zkml proof backend: a Groth16-shaped
// proving stub that binds artifacts to the behavior input via Keccak
// commitments. The transport and services treat it as opaque; a real
// proving system slots in behind the same port.
package prover

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/zkpersona/zkpersona/core"
	"github.com/zkpersona/zkpersona/ports"
)

const (
	ModelVersion   = "ai-scoring-v1.0"
	ProofType      = "zkml"
	CircuitVersion = "v1.0"
)

type groth16Proof struct {
	PiA      [3]string    `json:"pi_a"`
	PiB      [3][2]string `json:"pi_b"`
	PiC      [3]string    `json:"pi_c"`
	Protocol string       `json:"protocol"`
}

type verificationKey struct {
	Alpha      [3]string    `json:"alpha"`
	Beta       [3][2]string `json:"beta"`
	Gamma      [3][2]string `json:"gamma"`
	IC         [][3]string  `json:"ic"`
	Commitment string       `json:"commitment"`
}

// ZKML is the local proof backend.
type ZKML struct {
	scorer *Scorer
	clock  ports.Clock
}

// NewZKML creates the local zkml proof backend
func NewZKML(clock ports.Clock) *ZKML {
	return &ZKML{
		scorer: NewScorer(),
		clock:  clock,
	}
}

// GenerateProof scores the behavior input and assembles a proof artifact.
// Every field element derives from the behavior hash and the wallet
// address, so identical submissions produce identical proofs.
func (z *ZKML) GenerateProof(ctx context.Context, address string, behaviorInput json.RawMessage) (*core.ProofArtifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	behaviorHash, err := BehaviorHash(behaviorInput)
	if err != nil {
		return nil, fmt.Errorf("hash behavior input: %w", err)
	}

	score := z.scorer.Score(behaviorInput)

	proof := groth16Proof{
		PiA:      element3(behaviorHash, address, "pi_a"),
		PiB:      element3x2(behaviorHash, address, "pi_b"),
		PiC:      element3(behaviorHash, address, "pi_c"),
		Protocol: "groth16",
	}
	proofJSON, err := json.Marshal(proof)
	if err != nil {
		return nil, fmt.Errorf("encode proof: %w", err)
	}
	proofB64 := base64.StdEncoding.EncodeToString(proofJSON)

	vk := verificationKey{
		Alpha:      element3(behaviorHash, address, "alpha"),
		Beta:       element3x2(behaviorHash, address, "beta"),
		Gamma:      element3x2(behaviorHash, address, "gamma"),
		IC:         [][3]string{element3(behaviorHash, address, "ic")},
		Commitment: commitment(proofJSON, behaviorHash),
	}
	vkJSON, err := json.Marshal(vk)
	if err != nil {
		return nil, fmt.Errorf("encode verification key: %w", err)
	}

	return &core.ProofArtifact{
		ProofData:       proofB64,
		VerificationKey: base64.StdEncoding.EncodeToString(vkJSON),
		PublicSignals: core.PublicSignals{
			Score:          score,
			ScoreRange:     ScoreRange,
			BehaviorHash:   behaviorHash,
			ModelVersion:   ModelVersion,
			Timestamp:      z.clock.Now().Unix(),
			ProofType:      ProofType,
			CircuitVersion: CircuitVersion,
		},
	}, nil
}

// VerifyProof checks the artifact. Malformed base64 is the caller's error
// (core.ErrInvalidEncoding); everything else that does not verify is a
// normal {valid:false} outcome. No state is shared between calls.
func (z *ZKML) VerifyProof(ctx context.Context, proofData, vkData string, signals core.PublicSignals) (core.VerificationResult, error) {
	proofJSON, err := base64.StdEncoding.DecodeString(proofData)
	if err != nil {
		return core.VerificationResult{}, fmt.Errorf("proof data: %w", core.ErrInvalidEncoding)
	}
	vkJSON, err := base64.StdEncoding.DecodeString(vkData)
	if err != nil {
		return core.VerificationResult{}, fmt.Errorf("verification key: %w", core.ErrInvalidEncoding)
	}

	var proof groth16Proof
	if err := json.Unmarshal(proofJSON, &proof); err != nil || proof.Protocol != "groth16" {
		return core.VerificationResult{Valid: false, Reason: "proof data is not a groth16 payload"}, nil
	}

	var vk verificationKey
	if err := json.Unmarshal(vkJSON, &vk); err != nil || len(vk.IC) == 0 {
		return core.VerificationResult{Valid: false, Reason: "verification key is not a groth16 payload"}, nil
	}

	if signals.BehaviorHash == "" || signals.ModelVersion == "" {
		return core.VerificationResult{Valid: false, Reason: "missing required public signals"}, nil
	}
	if !signals.InRange() {
		return core.VerificationResult{Valid: false, Reason: "score outside declared range"}, nil
	}
	if vk.Commitment != commitment(proofJSON, signals.BehaviorHash) {
		return core.VerificationResult{Valid: false, Reason: "verification key does not commit to this proof"}, nil
	}

	return core.VerificationResult{Valid: true}, nil
}

// BehaviorHash computes the Keccak-256 hash of the canonical JSON form of
// the input. Canonicalization (decode then re-encode, which sorts object
// keys) makes the hash stable under key reordering, enabling replay
// detection on resubmitted payloads.
func BehaviorHash(input json.RawMessage) (string, error) {
	var decoded any
	if err := json.Unmarshal(input, &decoded); err != nil {
		return "", err
	}
	canonical, err := json.Marshal(decoded)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(crypto.Keccak256(canonical)), nil
}

func commitment(proofJSON []byte, behaviorHash string) string {
	return hex.EncodeToString(crypto.Keccak256(proofJSON, []byte(behaviorHash)))
}

func element(parts ...string) string {
	data := make([]byte, 0, 64)
	for _, p := range parts {
		data = append(data, p...)
	}
	return hex.EncodeToString(crypto.Keccak256(data)[:8])
}

func element3(hash, address, label string) [3]string {
	return [3]string{element(hash, address, label, "0"), element(hash, address, label, "1"), "1"}
}

func element3x2(hash, address, label string) [3][2]string {
	return [3][2]string{
		{element(hash, address, label, "00"), element(hash, address, label, "01")},
		{element(hash, address, label, "10"), element(hash, address, label, "11")},
		{"1", "0"},
	}
}

var _ ports.Prover = (*ZKML)(nil)
