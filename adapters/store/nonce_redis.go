package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/zkpersona/zkpersona/core"
	"github.com/zkpersona/zkpersona/ports"
)

// consumeScript atomically fetches and deletes the pending challenge unless
// the presented message (ARGV[1], empty means any) does not match, in which
// case the challenge stays pending.
var consumeScript = redis.NewScript(`
local raw = redis.call("GET", KEYS[1])
if not raw then
  return false
end
if ARGV[1] ~= "" and cjson.decode(raw)["message"] ~= ARGV[1] then
  return "mismatch"
end
redis.call("DEL", KEYS[1])
return raw
`)

type redisNonce struct {
	ID        string    `json:"id"`
	Address   string    `json:"address"`
	Value     string    `json:"value"`
	Message   string    `json:"message"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RedisNonceStore keeps pending challenges in Redis so multiple gateway
// instances share one challenge table. Key TTL doubles as the expiry sweep.
type RedisNonceStore struct {
	client *redis.Client
	prefix string
}

// NewRedisNonceStore creates a new Redis-backed nonce store
func NewRedisNonceStore(client *redis.Client) *RedisNonceStore {
	return &RedisNonceStore{
		client: client,
		prefix: "zkpersona:nonce:",
	}
}

// Issue stores the challenge under the address key, replacing any pending
// one. The key expires with the challenge.
func (s *RedisNonceStore) Issue(ctx context.Context, nonce *core.Nonce) error {
	rec := redisNonce{
		ID:        nonce.ID,
		Address:   nonce.Address,
		Value:     nonce.Value,
		Message:   nonce.Message(),
		IssuedAt:  nonce.IssuedAt,
		ExpiresAt: nonce.ExpiresAt,
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal nonce: %w", err)
	}

	ttl := time.Until(nonce.ExpiresAt)
	if ttl <= 0 {
		return core.ErrNonceExpired
	}
	if err := s.client.Set(ctx, s.prefix+nonce.Address, payload, ttl).Err(); err != nil {
		return fmt.Errorf("store nonce: %w", err)
	}
	return nil
}

// Consume runs the fetch-and-delete script. Redis expiry removes stale keys,
// so a missing key covers both the not-found and expired cases; the explicit
// expiry check below handles clock skew between instances.
func (s *RedisNonceStore) Consume(ctx context.Context, address, presented string, now time.Time) (*core.Nonce, error) {
	res, err := consumeScript.Run(ctx, s.client, []string{s.prefix + address}, presented).Result()
	if err == redis.Nil {
		return nil, core.ErrNonceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("consume nonce: %w", err)
	}

	raw, ok := res.(string)
	if !ok {
		return nil, core.ErrNonceNotFound
	}
	if raw == "mismatch" {
		return nil, core.ErrNonceMismatch
	}

	var rec redisNonce
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("decode nonce: %w", err)
	}

	nonce := &core.Nonce{
		ID:        rec.ID,
		Address:   rec.Address,
		Value:     rec.Value,
		IssuedAt:  rec.IssuedAt,
		ExpiresAt: rec.ExpiresAt,
		Consumed:  true,
	}
	if nonce.Expired(now) {
		return nil, core.ErrNonceExpired
	}
	return nonce, nil
}

var _ ports.NonceStore = (*RedisNonceStore)(nil)
