package domain

import (
	"time"

	"github.com/google/uuid"
)

// IntentStatus represents the lifecycle state of a payment intent.
type IntentStatus string

const (
	IntentStatusPending  IntentStatus = "PENDING"
	IntentStatusPaid     IntentStatus = "PAID"
	IntentStatusCanceled IntentStatus = "CANCELED"
	IntentStatusExpired  IntentStatus = "EXPIRED"
)

// PaymentIntent is one payment request raised at a terminal. Once resolved
// (paid, canceled or expired) it never transitions again.
type PaymentIntent struct {
	ID          uuid.UUID    `json:"id"`
	TerminalID  string       `json:"terminal_id"`
	AmountCents int64        `json:"amount_cents"`
	Currency    string       `json:"currency"`
	Reference   string       `json:"reference"`
	Payload     string       `json:"payload"` // Canonical PayNow TLV string
	QRImage     []byte       `json:"-"`       // Rendered visual code, nil if rendering degraded
	QRMediaType string       `json:"qr_media_type,omitempty"`
	Status      IntentStatus `json:"status"`
	CreatedAt   time.Time    `json:"created_at"`
	ExpiresAt   time.Time    `json:"expires_at"`
	ResolvedAt  *time.Time   `json:"resolved_at,omitempty"`
}

// IsTerminal returns true if the intent is in a final state.
func (i *PaymentIntent) IsTerminal() bool {
	return i.Status == IntentStatusPaid ||
		i.Status == IntentStatusCanceled ||
		i.Status == IntentStatusExpired
}

// ResolvableTo reports whether status is a legal single-shot resolution
// target. Only pending intents resolve, and only into a terminal state.
func (i *PaymentIntent) ResolvableTo(status IntentStatus) bool {
	if i.Status != IntentStatusPending {
		return false
	}
	return status == IntentStatusPaid ||
		status == IntentStatusCanceled ||
		status == IntentStatusExpired
}

// ExpiredBy reports whether the intent's deadline has passed at t while
// the intent is still pending.
func (i *PaymentIntent) ExpiredBy(t time.Time) bool {
	return i.Status == IntentStatusPending && t.After(i.ExpiresAt)
}

// Clone returns a deep copy so callers can never mutate store-owned state.
func (i *PaymentIntent) Clone() *PaymentIntent {
	c := *i
	if i.QRImage != nil {
		c.QRImage = append([]byte(nil), i.QRImage...)
	}
	if i.ResolvedAt != nil {
		t := *i.ResolvedAt
		c.ResolvedAt = &t
	}
	return &c
}
