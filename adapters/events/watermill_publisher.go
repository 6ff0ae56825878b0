package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/zkpersona/zkpersona/ports"
)

const (
	TopicLogin          = "zkpersona.auth.login"
	TopicLogout         = "zkpersona.auth.logout"
	TopicProofCompleted = "zkpersona.proof.completed"
	TopicProofFailed    = "zkpersona.proof.failed"
)

// AuthEvent is the payload for login and logout notifications.
type AuthEvent struct {
	Address string `json:"address"`
	TokenID string `json:"token_id,omitempty"`
}

// ProofEvent is the payload for proof lifecycle notifications.
type ProofEvent struct {
	Address   string `json:"address"`
	SessionID string `json:"session_id"`
	Cause     string `json:"cause,omitempty"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{publisher: publisher}
}

// PublishLogin publishes a login event
func (p *WatermillPublisher) PublishLogin(ctx context.Context, address string) error {
	return p.publish(TopicLogin, AuthEvent{Address: address})
}

// PublishLogout publishes a logout event
func (p *WatermillPublisher) PublishLogout(ctx context.Context, address string, tokenID string) error {
	return p.publish(TopicLogout, AuthEvent{Address: address, TokenID: tokenID})
}

// PublishProofCompleted publishes a proof completion event
func (p *WatermillPublisher) PublishProofCompleted(ctx context.Context, address string, sessionID string) error {
	return p.publish(TopicProofCompleted, ProofEvent{Address: address, SessionID: sessionID})
}

// PublishProofFailed publishes a proof failure event
func (p *WatermillPublisher) PublishProofFailed(ctx context.Context, address string, sessionID string, cause string) error {
	return p.publish(TopicProofFailed, ProofEvent{Address: address, SessionID: sessionID, Cause: cause})
}

func (p *WatermillPublisher) publish(topic string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(uuid.New().String(), payload)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
