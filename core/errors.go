package core

import "errors"

var (
	ErrInvalidAddress = errors.New("invalid wallet address")

	// Nonce lifecycle errors. Handlers collapse all of them into a generic
	// authentication failure so callers cannot probe which nonces exist.
	ErrNonceNotFound    = errors.New("nonce not found")
	ErrNonceExpired     = errors.New("nonce has expired")
	ErrNonceAlreadyUsed = errors.New("nonce already used")
	ErrNonceMismatch    = errors.New("presented message does not match challenge")

	// ErrAuthenticationFailed is the collapsed external form of every login
	// failure past address validation.
	ErrAuthenticationFailed = errors.New("authentication failed")

	ErrInvalidSignature = errors.New("invalid signature")
	ErrInvalidPublicKey = errors.New("invalid public key")
	ErrAddressMismatch  = errors.New("public key does not derive wallet address")

	ErrTokenExpired     = errors.New("token has expired")
	ErrTokenInvalidated = errors.New("token has been invalidated")
	ErrInvalidToken     = errors.New("invalid token")
	ErrUnauthorized     = errors.New("unauthorized")

	ErrInvalidInput     = errors.New("invalid behavior input")
	ErrInvalidEncoding  = errors.New("malformed artifact encoding")
	ErrProofGeneration  = errors.New("proof generation failed")
	ErrProofTimeout     = errors.New("proof generation timed out")
	ErrRequestConflict  = errors.New("proof request conflict")
	ErrRequestNotFound  = errors.New("proof request not found")
	ErrUserNotFound     = errors.New("user not found")
)
