package events

import (
	"context"

	"github.com/zkpersona/zkpersona/ports"
)

// NoopPublisher discards all events. Used when no broker is configured and
// in tests.
type NoopPublisher struct{}

func NewNoopPublisher() ports.EventPublisher { return NoopPublisher{} }

func (NoopPublisher) PublishLogin(ctx context.Context, address string) error { return nil }

func (NoopPublisher) PublishLogout(ctx context.Context, address string, tokenID string) error {
	return nil
}

func (NoopPublisher) PublishProofCompleted(ctx context.Context, address string, sessionID string) error {
	return nil
}

func (NoopPublisher) PublishProofFailed(ctx context.Context, address string, sessionID string, cause string) error {
	return nil
}
