package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/zkpersona/zkpersona/ports"
)

// RedisSessionStore is a Redis-backed session registry shared across
// instances. Key TTL handles expiry.
type RedisSessionStore struct {
	client *redis.Client
	prefix string
}

// NewRedisSessionStore creates a new Redis session registry
func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{
		client: client,
		prefix: "zkpersona:session:",
	}
}

// Register marks the refresh id as live for the given TTL.
func (s *RedisSessionStore) Register(ctx context.Context, refreshID string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.prefix+refreshID, "1", ttl).Err(); err != nil {
		return fmt.Errorf("register session: %w", err)
	}
	return nil
}

// Revoke removes the refresh id from the registry.
func (s *RedisSessionStore) Revoke(ctx context.Context, refreshID string) error {
	if err := s.client.Del(ctx, s.prefix+refreshID).Err(); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// IsLive reports whether the refresh id is registered.
func (s *RedisSessionStore) IsLive(ctx context.Context, refreshID string) (bool, error) {
	val, err := s.client.Exists(ctx, s.prefix+refreshID).Result()
	if err != nil {
		return false, fmt.Errorf("check session: %w", err)
	}
	return val > 0, nil
}

var _ ports.SessionStore = (*RedisSessionStore)(nil)
