package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zkpersona/zkpersona/core"
)

func newNonce(address, value string, issued time.Time, ttl time.Duration) *core.Nonce {
	return &core.Nonce{
		ID:        uuid.NewString(),
		Address:   address,
		Value:     value,
		IssuedAt:  issued,
		ExpiresAt: issued.Add(ttl),
	}
}

func TestMemoryNonceStoreConsumeOnce(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryNonceStore()
	now := time.Now()

	n := newNonce("0xabc", "v1", now, 5*time.Minute)
	require.NoError(t, s.Issue(ctx, n))

	got, err := s.Consume(ctx, "0xabc", n.Message(), now)
	require.NoError(t, err)
	assert.Equal(t, "v1", got.Value)
	assert.True(t, got.Consumed)

	_, err = s.Consume(ctx, "0xabc", n.Message(), now)
	assert.ErrorIs(t, err, core.ErrNonceNotFound)
}

func TestMemoryNonceStoreReissueReplaces(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryNonceStore()
	now := time.Now()

	first := newNonce("0xabc", "v1", now, 5*time.Minute)
	require.NoError(t, s.Issue(ctx, first))
	second := newNonce("0xabc", "v2", now, 5*time.Minute)
	require.NoError(t, s.Issue(ctx, second))

	// The stale challenge no longer matches and must not consume the
	// pending one.
	_, err := s.Consume(ctx, "0xabc", first.Message(), now)
	assert.ErrorIs(t, err, core.ErrNonceMismatch)

	got, err := s.Consume(ctx, "0xabc", second.Message(), now)
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Value)
}

func TestMemoryNonceStoreExpiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryNonceStore()
	now := time.Now()

	n := newNonce("0xabc", "v1", now, 5*time.Minute)
	require.NoError(t, s.Issue(ctx, n))

	_, err := s.Consume(ctx, "0xabc", n.Message(), now.Add(5*time.Minute+time.Second))
	assert.ErrorIs(t, err, core.ErrNonceExpired)

	// Expired entries are evicted on the failed consume.
	_, err = s.Consume(ctx, "0xabc", n.Message(), now)
	assert.ErrorIs(t, err, core.ErrNonceNotFound)
}

func TestMemoryNonceStoreMismatchLeavesPending(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryNonceStore()
	now := time.Now()

	n := newNonce("0xabc", "v1", now, 5*time.Minute)
	require.NoError(t, s.Issue(ctx, n))

	_, err := s.Consume(ctx, "0xabc", "some other message", now)
	assert.ErrorIs(t, err, core.ErrNonceMismatch)

	got, err := s.Consume(ctx, "0xabc", n.Message(), now)
	require.NoError(t, err)
	assert.Equal(t, "v1", got.Value)
}

func TestMemoryNonceStoreEmptyPresentedConsumesPending(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryNonceStore()
	now := time.Now()

	n := newNonce("0xabc", "v1", now, 5*time.Minute)
	require.NoError(t, s.Issue(ctx, n))

	got, err := s.Consume(ctx, "0xabc", "", now)
	require.NoError(t, err)
	assert.Equal(t, "v1", got.Value)
}

func TestMemoryNonceStoreUnknownAddress(t *testing.T) {
	s := NewMemoryNonceStore()
	_, err := s.Consume(context.Background(), "0xdef", "", time.Now())
	assert.ErrorIs(t, err, core.ErrNonceNotFound)
}

func TestMemoryNonceStoreSweep(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryNonceStore()
	now := time.Now()

	require.NoError(t, s.Issue(ctx, newNonce("0xaaa", "v1", now, time.Minute)))
	require.NoError(t, s.Issue(ctx, newNonce("0xbbb", "v2", now, time.Hour)))

	s.Sweep(now.Add(10 * time.Minute))

	_, err := s.Consume(ctx, "0xaaa", "", now.Add(10*time.Minute))
	assert.ErrorIs(t, err, core.ErrNonceNotFound)

	got, err := s.Consume(ctx, "0xbbb", "", now.Add(10*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Value)
}
