package ports

import (
	"context"
	"time"

	"paynow-terminal-gateway/internal/core/domain"

	"github.com/google/uuid"
)

// TokenService handles operator JWT operations.
type TokenService interface {
	Generate(subject string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	Subject string
	Role    string
}

// DeviceKeyService hashes and verifies terminal device keys (Argon2id).
type DeviceKeyService interface {
	Hash(key string) (string, error)
	Verify(key string, hash string) (bool, error)
}

// CreateIntentRequest holds validated input for raising a payment request
// at a terminal.
type CreateIntentRequest struct {
	TerminalID  string
	AmountCents int64
	Currency    string // empty = configured default
	Reference   string
}

// Subscription is one display client's view of a terminal's snapshot feed.
// The channel is closed on detach; the first value received is always the
// replay of the terminal's current state.
type Subscription interface {
	Snapshots() <-chan domain.TerminalSnapshot
	TerminalID() string
}

// Dispatcher orchestrates the encoder, intent store and subscription
// registry. All state transitions funnel through it, so publish order to
// displays always matches store mutation order.
type Dispatcher interface {
	// CreateIntent validates, encodes the payable payload, persists the new
	// pending intent and publishes the resulting snapshot.
	CreateIntent(ctx context.Context, req CreateIntentRequest) (*domain.PaymentIntent, error)

	// Resolve moves an intent to paid or canceled and publishes. A second
	// resolution attempt is rejected with a conflict, not re-published.
	Resolve(ctx context.Context, intentID uuid.UUID, outcome domain.IntentStatus) (*domain.PaymentIntent, error)

	// Expire is the sweeper's entry point: like Resolve with outcome
	// expired, but a lost race against an operator resolution is a no-op.
	Expire(ctx context.Context, intentID uuid.UUID) error

	// Attach registers a display subscriber for a terminal. The current
	// snapshot is enqueued before Attach returns.
	Attach(ctx context.Context, terminalID string) (Subscription, error)

	// Detach releases a subscription; idempotent.
	Detach(sub Subscription)
}
