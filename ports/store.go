package ports

import (
	"context"
	"time"

	"github.com/zkpersona/zkpersona/core"
)

// NonceStore issues and consumes single-use authentication challenges.
// Implementations must make Issue and Consume atomic per address: two
// concurrent logins for the same address must not both consume one nonce.
type NonceStore interface {
	// Issue stores a fresh challenge for the address, replacing any pending
	// one. The previous challenge becomes unusable immediately.
	Issue(ctx context.Context, nonce *core.Nonce) error

	// Consume atomically retrieves and marks the pending challenge for the
	// address as used. A non-empty presented message must match the stored
	// challenge message exactly; a mismatch leaves the nonce pending and
	// returns core.ErrNonceMismatch. Expired challenges are evicted and
	// reported as core.ErrNonceExpired.
	Consume(ctx context.Context, address, presented string, now time.Time) (*core.Nonce, error)
}

// SessionStore is the server-side session registry. A credential is only
// live while its refresh id is registered; revocation and expiry make the
// entry inert regardless of when it is physically deleted.
type SessionStore interface {
	Register(ctx context.Context, refreshID string, ttl time.Duration) error
	Revoke(ctx context.Context, refreshID string) error
	IsLive(ctx context.Context, refreshID string) (bool, error)
}

// UserStore keeps the record of wallets that have authenticated.
type UserStore interface {
	Get(ctx context.Context, address string) (*core.User, error)
	Upsert(ctx context.Context, user *core.User) error
}

// ProofStore tracks proof requests keyed by client correlation id. Guard is
// per-key; transitions on one id never block another.
type ProofStore interface {
	// Create registers a request in Submitted state. An existing non-terminal
	// or Completed record for the same id is returned with
	// core.ErrRequestConflict so callers can apply their dedup policy.
	Create(ctx context.Context, req *core.ProofRequest) (*core.ProofRequest, error)

	// Transition moves a request to the given status. Moving out of a
	// terminal state fails with core.ErrRequestConflict.
	Transition(ctx context.Context, sessionID string, status core.RequestStatus, artifact *core.ProofArtifact, cause core.FailureCause) error

	Get(ctx context.Context, sessionID string) (*core.ProofRequest, error)

	// Delete removes a terminal record, permitting a fresh attempt after a
	// failure.
	Delete(ctx context.Context, sessionID string) error
}
