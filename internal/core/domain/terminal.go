package domain

import (
	"time"

	"github.com/google/uuid"
)

// Terminal is one physical checkout point. It owns zero-or-one current
// payment intent at a time. Terminals are created administratively and
// persist indefinitely; the core reads them from the directory only.
type Terminal struct {
	ID            string    `json:"id"`
	MerchantID    uuid.UUID `json:"merchant_id"`
	Label         string    `json:"label"`
	DeviceKeyHash string    `json:"-"` // Argon2id hash of the display's device key
	CreatedAt     time.Time `json:"created_at"`
}
