package ports

import (
	"context"
	"time"

	"paynow-terminal-gateway/internal/core/domain"

	"github.com/google/uuid"
)

// MerchantRepository reads payee entries from the external directory.
// The core never writes merchants.
type MerchantRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Merchant, error)
}

// TerminalRepository reads checkout-point entries from the external directory.
// The core never writes terminals.
type TerminalRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Terminal, error)
	// ListIDs returns every known terminal id, used to warm-load current
	// intents from the mirror at startup.
	ListIDs(ctx context.Context) ([]string, error)
}

// IntentStore owns payment intent lifecycle state. Create and Transition for
// a given terminal are linearizable with respect to each other: two
// concurrent creates for one terminal get exactly one winner as "current",
// and the loser is still durably recorded as superseded.
type IntentStore interface {
	// Create persists a new pending intent and makes it the terminal's
	// current intent, superseding (not deleting) any prior pending one.
	Create(ctx context.Context, intent *domain.PaymentIntent) error

	// Transition moves a pending intent into a terminal state, single-shot.
	// Returns a conflict error if the intent is not pending, and a
	// not-found error for unknown ids.
	Transition(ctx context.Context, id uuid.UUID, status domain.IntentStatus, at time.Time) (*domain.PaymentIntent, error)

	// Get returns the intent by id, or nil if unknown.
	Get(ctx context.Context, id uuid.UUID) (*domain.PaymentIntent, error)

	// CurrentFor returns the latest-created intent for a terminal regardless
	// of status, or nil when the terminal has never had one.
	CurrentFor(ctx context.Context, terminalID string) (*domain.PaymentIntent, error)

	// PendingExpiredBefore lists ids of pending intents whose deadline
	// passed before t. Used by the expiry sweeper.
	PendingExpiredBefore(ctx context.Context, t time.Time) ([]uuid.UUID, error)

	// Seed loads an intent during crash recovery without superseding logic
	// or publication side effects.
	Seed(ctx context.Context, intent *domain.PaymentIntent) error
}

// IntentMirror mirrors authoritative in-memory intent state to a durable
// keyed store for crash recovery. Writes are best-effort; the memory store
// stays authoritative.
type IntentMirror interface {
	// Save upserts the intent keyed by intent id and by terminal id.
	Save(ctx context.Context, intent *domain.PaymentIntent) error
	// Current returns the mirrored current intent for a terminal, or nil.
	Current(ctx context.Context, terminalID string) (*domain.PaymentIntent, error)
}
