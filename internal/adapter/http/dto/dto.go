package dto

// TokenRequest is the request body for the operator token exchange.
type TokenRequest struct {
	AccessKey  string `json:"access_key" binding:"required"`
	OperatorID string `json:"operator_id" binding:"required,min=1,max=64"`
}

// TokenResponse is the response body for a successful token exchange.
type TokenResponse struct {
	Token  string `json:"token"`
	Expiry int64  `json:"expiry"` // Unix timestamp
}

// CreateIntentRequest is the request body for raising a payment request at
// a terminal.
type CreateIntentRequest struct {
	AmountCents int64  `json:"amount_cents" binding:"required,gt=0"`
	Currency    string `json:"currency" binding:"omitempty,len=3"`
	Reference   string `json:"reference" binding:"required,min=1,max=25"`
}

// ResolveIntentRequest is the request body for resolving a payment intent.
type ResolveIntentRequest struct {
	Outcome string `json:"outcome" binding:"required,oneof=PAID CANCELED"`
}

// IntentResponse is the response body for payment intent results. Display
// stream events for resolved intents carry only the identity and status
// fields, so everything a pending intent needs is omitempty.
type IntentResponse struct {
	ID          string  `json:"id"`
	TerminalID  string  `json:"terminal_id"`
	AmountCents int64   `json:"amount_cents,omitempty"`
	Currency    string  `json:"currency,omitempty"`
	Reference   string  `json:"reference,omitempty"`
	Payload     string  `json:"payload,omitempty"`
	QRImage     string  `json:"qr_image,omitempty"` // base64
	QRMediaType string  `json:"qr_media_type,omitempty"`
	Status      string  `json:"status"`
	CreatedAt   string  `json:"created_at,omitempty"`
	ExpiresAt   string  `json:"expires_at,omitempty"`
	ResolvedAt  *string `json:"resolved_at,omitempty"`
}

// SnapshotEvent is one server-sent event on a display stream. Intent is
// null when the terminal has nothing to show.
type SnapshotEvent struct {
	TerminalID string          `json:"terminal_id"`
	Intent     *IntentResponse `json:"intent"`
	AsOf       string          `json:"as_of"`
}
