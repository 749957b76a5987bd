package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"paynow-terminal-gateway/internal/core/domain"

	goredis "github.com/redis/go-redis/v9"
)

// DefaultMirrorTTL bounds how long mirrored intents outlive their last
// mutation. Long enough to cover any restart window, short enough that
// resolved intents fade on their own.
const DefaultMirrorTTL = 24 * time.Hour

// IntentMirror implements ports.IntentMirror on Redis. Each mutation is
// stored twice: once keyed by intent id for audit lookups, once keyed by
// terminal id as the terminal's current intent, matching the get/set/ttl
// contract of the persistence collaborator.
type IntentMirror struct {
	client *goredis.Client
	ttl    time.Duration
}

// NewIntentMirror creates a Redis-backed intent mirror.
func NewIntentMirror(client *goredis.Client, ttl time.Duration) *IntentMirror {
	if ttl <= 0 {
		ttl = DefaultMirrorTTL
	}
	return &IntentMirror{client: client, ttl: ttl}
}

func intentKey(id string) string          { return "intent:" + id }
func terminalKey(terminalID string) string { return "terminal:" + terminalID + ":current" }

// Save upserts the intent under both keys with TTL.
func (m *IntentMirror) Save(ctx context.Context, intent *domain.PaymentIntent) error {
	data, err := json.Marshal(intent)
	if err != nil {
		return fmt.Errorf("marshal intent: %w", err)
	}

	pipe := m.client.TxPipeline()
	pipe.Set(ctx, intentKey(intent.ID.String()), data, m.ttl)
	pipe.Set(ctx, terminalKey(intent.TerminalID), data, m.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis mirror save: %w", err)
	}
	return nil
}

// Current returns the mirrored current intent for a terminal, or nil when
// nothing is mirrored.
func (m *IntentMirror) Current(ctx context.Context, terminalID string) (*domain.PaymentIntent, error) {
	data, err := m.client.Get(ctx, terminalKey(terminalID)).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis mirror get: %w", err)
	}

	intent := &domain.PaymentIntent{}
	if err := json.Unmarshal(data, intent); err != nil {
		return nil, fmt.Errorf("unmarshal mirrored intent: %w", err)
	}
	return intent, nil
}
