package core

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ChallengePrefix is prepended to every nonce before it is handed to the
// wallet for signing. Wallets sign the full message, not the bare nonce.
const ChallengePrefix = "Sign this message to authenticate with ZKPersona: "

// Nonce is a single-use authentication challenge bound to a wallet address
// and a time window.
type Nonce struct {
	ID        string    // Unique identifier for the challenge
	Address   string    // Wallet address the challenge was issued for
	Value     string    // Random 32-byte hex value embedded in the message
	IssuedAt  time.Time // When the challenge was created
	ExpiresAt time.Time // When the challenge expires
	Consumed  bool      // Set once the challenge has been used for a login
}

// Message returns the exact string the wallet must sign.
func (n *Nonce) Message() string {
	return ChallengePrefix + n.Value
}

// Expired reports whether the challenge is past its expiry at the given time.
func (n *Nonce) Expired(now time.Time) bool {
	return now.After(n.ExpiresAt)
}

// Session represents an authenticated wallet session. The same record backs
// both the access and refresh credentials; RefreshID is the registry key that
// keeps the session alive until logout or refresh expiry.
type Session struct {
	ID            string    // Unique session identifier
	Address       string    // Wallet address of the user
	IssuedAt      time.Time // When the session was created
	AccessExpiry  time.Time // When the access credential expires
	RefreshExpiry time.Time // When the refresh capability expires
	RefreshID     string    // Unique identifier for the refresh token
}

// User is the persistent record of a wallet that has authenticated at least
// once. The public key is refreshed on every login in case it rotated.
type User struct {
	Address    string
	PublicKey  string
	CreatedAt  time.Time
	LastLogin  time.Time
	LoginCount int
}

// ValidAddress reports whether s is a well-formed wallet address
// (0x-prefixed, 40 hex characters).
func ValidAddress(s string) bool {
	return common.IsHexAddress(s)
}

// NormalizeAddress converts a well-formed address to its checksummed form so
// store keys are case-insensitive.
func NormalizeAddress(s string) (string, error) {
	if !common.IsHexAddress(s) {
		return "", fmt.Errorf("%q: %w", s, ErrInvalidAddress)
	}
	return common.HexToAddress(s).Hex(), nil
}
