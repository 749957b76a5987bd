package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestMerchant_Proxy_Mobile(t *testing.T) {
	m := &Merchant{ID: uuid.New(), DisplayName: "Kopi Corner", MobileNumber: strPtr("+6591234567")}

	kind, value, ok := m.Proxy()
	assert.True(t, ok)
	assert.Equal(t, ProxyKindMobile, kind)
	assert.Equal(t, "+6591234567", value)
}

func TestMerchant_Proxy_UEN(t *testing.T) {
	m := &Merchant{ID: uuid.New(), DisplayName: "Kopi Corner", UEN: strPtr("T05LL1103B")}

	kind, value, ok := m.Proxy()
	assert.True(t, ok)
	assert.Equal(t, ProxyKindUEN, kind)
	assert.Equal(t, "T05LL1103B", value)
}

func TestMerchant_Proxy_BothSet(t *testing.T) {
	m := &Merchant{MobileNumber: strPtr("+6591234567"), UEN: strPtr("T05LL1103B")}

	_, _, ok := m.Proxy()
	assert.False(t, ok, "both identifiers set violates the directory invariant")
}

func TestMerchant_Proxy_NeitherSet(t *testing.T) {
	m := &Merchant{DisplayName: "Empty"}

	_, _, ok := m.Proxy()
	assert.False(t, ok)
}

func TestMerchant_Proxy_EmptyStringCountsAsUnset(t *testing.T) {
	m := &Merchant{MobileNumber: strPtr(""), UEN: strPtr("T05LL1103B")}

	kind, _, ok := m.Proxy()
	assert.True(t, ok)
	assert.Equal(t, ProxyKindUEN, kind)
}

func TestPaymentIntent_IsTerminal(t *testing.T) {
	tests := []struct {
		status   IntentStatus
		terminal bool
	}{
		{IntentStatusPending, false},
		{IntentStatusPaid, true},
		{IntentStatusCanceled, true},
		{IntentStatusExpired, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			i := &PaymentIntent{Status: tt.status}
			assert.Equal(t, tt.terminal, i.IsTerminal())
		})
	}
}

func TestPaymentIntent_ResolvableTo(t *testing.T) {
	pending := &PaymentIntent{Status: IntentStatusPending}
	assert.True(t, pending.ResolvableTo(IntentStatusPaid))
	assert.True(t, pending.ResolvableTo(IntentStatusCanceled))
	assert.True(t, pending.ResolvableTo(IntentStatusExpired))
	assert.False(t, pending.ResolvableTo(IntentStatusPending), "pending is not a resolution target")

	paid := &PaymentIntent{Status: IntentStatusPaid}
	assert.False(t, paid.ResolvableTo(IntentStatusCanceled), "no transition out of a terminal state")
	assert.False(t, paid.ResolvableTo(IntentStatusPaid), "resolutions are single-shot")
}

func TestPaymentIntent_ExpiredBy(t *testing.T) {
	now := time.Now().UTC()
	i := &PaymentIntent{Status: IntentStatusPending, ExpiresAt: now}

	assert.False(t, i.ExpiredBy(now), "deadline itself is not yet expired")
	assert.True(t, i.ExpiredBy(now.Add(time.Second)))

	i.Status = IntentStatusPaid
	assert.False(t, i.ExpiredBy(now.Add(time.Hour)), "resolved intents never expire")
}

func TestPaymentIntent_Clone_Isolation(t *testing.T) {
	resolved := time.Now().UTC()
	orig := &PaymentIntent{
		ID:         uuid.New(),
		QRImage:    []byte{1, 2, 3},
		Status:     IntentStatusPaid,
		ResolvedAt: &resolved,
	}

	c := orig.Clone()
	c.QRImage[0] = 99
	*c.ResolvedAt = resolved.Add(time.Hour)
	c.Status = IntentStatusCanceled

	assert.Equal(t, byte(1), orig.QRImage[0])
	assert.Equal(t, resolved, *orig.ResolvedAt)
	assert.Equal(t, IntentStatusPaid, orig.Status)
}

func TestNewSnapshot(t *testing.T) {
	now := time.Now().UTC()
	intent := &PaymentIntent{ID: uuid.New(), TerminalID: "T-001"}

	snap := NewSnapshot("T-001", intent, now)
	assert.Equal(t, "T-001", snap.TerminalID)
	assert.Equal(t, intent, snap.Intent)
	assert.Equal(t, now, snap.AsOf)

	empty := NewSnapshot("T-002", nil, now)
	assert.Nil(t, empty.Intent)
}
