package domain

import "time"

// TerminalSnapshot is the derived "what should this terminal's display show
// right now" view. It is what the registry fans out to subscribers and what
// a freshly attached subscriber receives as its replay.
type TerminalSnapshot struct {
	TerminalID string         `json:"terminal_id"`
	Intent     *PaymentIntent `json:"intent,omitempty"`
	AsOf       time.Time      `json:"as_of"`
}

// NewSnapshot builds a snapshot for a terminal from its current intent,
// which may be nil (nothing owed).
func NewSnapshot(terminalID string, intent *PaymentIntent, asOf time.Time) TerminalSnapshot {
	return TerminalSnapshot{
		TerminalID: terminalID,
		Intent:     intent,
		AsOf:       asOf,
	}
}
