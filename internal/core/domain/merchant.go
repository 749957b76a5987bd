package domain

import "github.com/google/uuid"

// ProxyKind identifies which PayNow directory identifier a merchant registered.
type ProxyKind string

const (
	ProxyKindMobile ProxyKind = "MOBILE"
	ProxyKindUEN    ProxyKind = "UEN"
)

// Merchant is a payee entry from the external directory, read-only to the core.
// Exactly one of MobileNumber / UEN is set; the encoder enforces this before
// any payload is built.
type Merchant struct {
	ID           uuid.UUID `json:"id"`
	DisplayName  string    `json:"display_name"`
	MobileNumber *string   `json:"mobile_number,omitempty"`
	UEN          *string   `json:"uen,omitempty"`
}

// Proxy returns the single registered proxy identifier, or an indication
// that the directory entry is malformed (both or neither set).
func (m *Merchant) Proxy() (ProxyKind, string, bool) {
	hasMobile := m.MobileNumber != nil && *m.MobileNumber != ""
	hasUEN := m.UEN != nil && *m.UEN != ""

	switch {
	case hasMobile && !hasUEN:
		return ProxyKindMobile, *m.MobileNumber, true
	case hasUEN && !hasMobile:
		return ProxyKindUEN, *m.UEN, true
	default:
		return "", "", false
	}
}
