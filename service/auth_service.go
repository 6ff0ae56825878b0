package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/zkpersona/zkpersona/core"
	"github.com/zkpersona/zkpersona/ports"
)

// AuthService handles the challenge-response authentication flow: nonce
// issuance, signature login, session validation, refresh and logout.
type AuthService struct {
	nonces    ports.NonceStore
	sessions  ports.SessionStore
	users     ports.UserStore
	wallet    ports.WalletScheme
	tokenizer ports.Tokenizer
	eventPub  ports.EventPublisher
	clock     ports.Clock
	logger    *slog.Logger

	nonceTTL   time.Duration
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// AuthOption configures optional AuthService parameters.
type AuthOption func(*AuthService)

// WithAuthClock overrides the clock, letting tests drive expiry with
// synthetic time.
func WithAuthClock(clock ports.Clock) AuthOption {
	return func(s *AuthService) { s.clock = clock }
}

// WithAuthLogger sets the structured logger.
func WithAuthLogger(logger *slog.Logger) AuthOption {
	return func(s *AuthService) { s.logger = logger }
}

// WithNonceTTL overrides the challenge lifetime.
func WithNonceTTL(ttl time.Duration) AuthOption {
	return func(s *AuthService) {
		if ttl > 0 {
			s.nonceTTL = ttl
		}
	}
}

// WithSessionTTLs overrides the access and refresh lifetimes.
func WithSessionTTLs(access, refresh time.Duration) AuthOption {
	return func(s *AuthService) {
		if access > 0 {
			s.accessTTL = access
		}
		if refresh > 0 {
			s.refreshTTL = refresh
		}
	}
}

// NewAuthService creates a new authentication service
func NewAuthService(
	nonces ports.NonceStore,
	sessions ports.SessionStore,
	users ports.UserStore,
	wallet ports.WalletScheme,
	tokenizer ports.Tokenizer,
	eventPub ports.EventPublisher,
	opts ...AuthOption,
) *AuthService {
	s := &AuthService{
		nonces:     nonces,
		sessions:   sessions,
		users:      users,
		wallet:     wallet,
		tokenizer:  tokenizer,
		eventPub:   eventPub,
		clock:      ports.SystemClock{},
		logger:     slog.Default(),
		nonceTTL:   5 * time.Minute,
		accessTTL:  time.Hour,
		refreshTTL: 7 * 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TokenPair carries the credentials minted on login and refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64 // Access token lifetime in seconds
}

// IssueNonce generates a fresh challenge for the address, replacing any
// pending one, and returns the message the wallet must sign.
func (s *AuthService) IssueNonce(ctx context.Context, address string) (string, error) {
	address, err := core.NormalizeAddress(address)
	if err != nil {
		return "", err
	}

	value := make([]byte, 32)
	if _, err := rand.Read(value); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	now := s.clock.Now()
	nonce := &core.Nonce{
		ID:        uuid.New().String(),
		Address:   address,
		Value:     hex.EncodeToString(value),
		IssuedAt:  now,
		ExpiresAt: now.Add(s.nonceTTL),
	}

	if err := s.nonces.Issue(ctx, nonce); err != nil {
		return "", fmt.Errorf("failed to store nonce: %w", err)
	}

	return nonce.Message(), nil
}

// LoginInput carries the wallet's answer to a challenge. Message is
// optional; when present it must match the stored challenge exactly.
type LoginInput struct {
	Address   string
	Signature string
	PublicKey string
	Message   string
}

// Login authenticates a wallet against its pending challenge and mints a
// session. Nonce binding runs before signature verification so a stale
// signature can never be replayed against a reissued challenge, and the
// address-derivation check stops a caller from claiming a wallet its key
// does not control. Every failure past address validation collapses into
// core.ErrAuthenticationFailed so callers cannot probe nonce state.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*TokenPair, error) {
	address, err := core.NormalizeAddress(in.Address)
	if err != nil {
		return nil, err
	}

	nonce, err := s.nonces.Consume(ctx, address, in.Message, s.clock.Now())
	if err != nil {
		s.logger.Warn("nonce consume failed", slog.String("address", address), slog.Any("error", err))
		return nil, core.ErrAuthenticationFailed
	}

	derived, err := s.wallet.DeriveAddress(in.PublicKey)
	if err != nil {
		s.logger.Warn("address derivation failed", slog.String("address", address), slog.Any("error", err))
		return nil, core.ErrAuthenticationFailed
	}
	if derived != address {
		s.logger.Warn("address mismatch", slog.String("claimed", address), slog.String("derived", derived))
		return nil, core.ErrAuthenticationFailed
	}

	if err := s.wallet.Verify(nonce.Message(), in.Signature, in.PublicKey); err != nil {
		s.logger.Warn("signature verification failed", slog.String("address", address), slog.Any("error", err))
		return nil, core.ErrAuthenticationFailed
	}

	if err := s.upsertUser(ctx, address, in.PublicKey); err != nil {
		return nil, err
	}

	pair, err := s.mintSession(ctx, address)
	if err != nil {
		return nil, err
	}

	if err := s.eventPub.PublishLogin(ctx, address); err != nil {
		s.logger.Warn("failed to publish login event", slog.Any("error", err))
	}

	return pair, nil
}

// Refresh rotates the refresh token: the old one is revoked and a new
// session is registered for the same wallet.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	session, err := s.tokenizer.RefreshTokenToSession(refreshToken)
	if err != nil {
		if errors.Is(err, core.ErrTokenExpired) {
			return nil, core.ErrTokenExpired
		}
		return nil, fmt.Errorf("invalid refresh token: %w", core.ErrUnauthorized)
	}
	if s.clock.Now().After(session.RefreshExpiry) {
		return nil, core.ErrTokenExpired
	}

	live, err := s.sessions.IsLive(ctx, session.RefreshID)
	if err != nil {
		return nil, fmt.Errorf("failed to check session: %w", err)
	}
	if !live {
		return nil, core.ErrTokenInvalidated
	}

	if err := s.sessions.Revoke(ctx, session.RefreshID); err != nil {
		return nil, fmt.Errorf("failed to revoke session: %w", err)
	}

	return s.mintSession(ctx, session.Address)
}

// Logout revokes the session behind the refresh token. Expired tokens
// log out successfully since the session is already inert.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	session, err := s.tokenizer.RefreshTokenToSession(refreshToken)
	if err != nil {
		// An expired token names a session that is already inert; the
		// caller's logout intent is satisfied.
		if errors.Is(err, core.ErrTokenExpired) {
			return fmt.Errorf("refresh token already expired: %w", core.ErrTokenExpired)
		}
		return fmt.Errorf("invalid refresh token: %w", core.ErrUnauthorized)
	}

	if err := s.sessions.Revoke(ctx, session.RefreshID); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}

	if err := s.eventPub.PublishLogout(ctx, session.Address, session.RefreshID); err != nil {
		s.logger.Warn("failed to publish logout event", slog.Any("error", err))
	}

	return nil
}

// Validate checks an access credential and returns the wallet address it
// was issued to. A token is accepted only while its JWT is unexpired and
// its session is still registered, so revocation takes effect immediately.
func (s *AuthService) Validate(ctx context.Context, accessToken string) (string, error) {
	session, err := s.tokenizer.AccessTokenToSession(accessToken)
	if err != nil {
		return "", core.ErrUnauthorized
	}
	if s.clock.Now().After(session.AccessExpiry) {
		return "", fmt.Errorf("%w: %w", core.ErrTokenExpired, core.ErrUnauthorized)
	}

	live, err := s.sessions.IsLive(ctx, session.RefreshID)
	if err != nil {
		return "", fmt.Errorf("failed to check session: %w", err)
	}
	if !live {
		return "", fmt.Errorf("%w: %w", core.ErrTokenInvalidated, core.ErrUnauthorized)
	}

	return session.Address, nil
}

// User returns the stored record for an authenticated wallet.
func (s *AuthService) User(ctx context.Context, address string) (*core.User, error) {
	address, err := core.NormalizeAddress(address)
	if err != nil {
		return nil, err
	}
	return s.users.Get(ctx, address)
}

// AccessTTL exposes the configured access lifetime for transport-layer
// cookie expiry.
func (s *AuthService) AccessTTL() time.Duration {
	return s.accessTTL
}

func (s *AuthService) mintSession(ctx context.Context, address string) (*TokenPair, error) {
	now := s.clock.Now()
	session := &core.Session{
		ID:            uuid.New().String(),
		Address:       address,
		IssuedAt:      now,
		AccessExpiry:  now.Add(s.accessTTL),
		RefreshExpiry: now.Add(s.refreshTTL),
		RefreshID:     uuid.New().String(),
	}

	accessToken, err := s.tokenizer.SessionToAccessToken(session)
	if err != nil {
		return nil, fmt.Errorf("failed to create access token: %w", err)
	}
	refreshToken, err := s.tokenizer.SessionToRefreshToken(session)
	if err != nil {
		return nil, fmt.Errorf("failed to create refresh token: %w", err)
	}

	if err := s.sessions.Register(ctx, session.RefreshID, s.refreshTTL); err != nil {
		return nil, fmt.Errorf("failed to register session: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.accessTTL.Seconds()),
	}, nil
}

func (s *AuthService) upsertUser(ctx context.Context, address, publicKey string) error {
	now := s.clock.Now()

	user, err := s.users.Get(ctx, address)
	switch {
	case errors.Is(err, core.ErrUserNotFound):
		user = &core.User{
			Address:    address,
			PublicKey:  publicKey,
			CreatedAt:  now,
			LastLogin:  now,
			LoginCount: 1,
		}
	case err != nil:
		return fmt.Errorf("failed to load user: %w", err)
	default:
		user.PublicKey = publicKey // keys can rotate
		user.LastLogin = now
		user.LoginCount++
	}

	if err := s.users.Upsert(ctx, user); err != nil {
		return fmt.Errorf("failed to store user: %w", err)
	}
	return nil
}
