package ports

import "context"

// EventPublisher notifies other instances about auth and proof lifecycle
// changes. Publishing is best-effort; failures never abort the operation
// that triggered the event.
type EventPublisher interface {
	PublishLogin(ctx context.Context, address string) error
	PublishLogout(ctx context.Context, address string, tokenID string) error
	PublishProofCompleted(ctx context.Context, address string, sessionID string) error
	PublishProofFailed(ctx context.Context, address string, sessionID string, cause string) error
}
