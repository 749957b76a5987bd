package paynow

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// Renderer turns a payload string into a scannable representation. Returns
// the rendered bytes and their media type.
type Renderer interface {
	Render(payload string, size int) ([]byte, string, error)
}

// QRRenderer renders PNG QR codes at medium error correction.
type QRRenderer struct {
	level qrcode.RecoveryLevel
}

// NewQRRenderer creates the default PNG renderer.
func NewQRRenderer() *QRRenderer {
	return &QRRenderer{level: qrcode.Medium}
}

// Render produces a size x size PNG of the payload.
func (r *QRRenderer) Render(payload string, size int) ([]byte, string, error) {
	png, err := qrcode.Encode(payload, r.level, size)
	if err != nil {
		return nil, "", fmt.Errorf("qr encode: %w", err)
	}
	return png, "image/png", nil
}

// PlainRenderer is the degraded fallback: it returns the literal payload
// bytes, so a broken image renderer can never corrupt the payable payload.
// Displays render it client-side.
type PlainRenderer struct{}

// Render round-trips the payload unchanged.
func (PlainRenderer) Render(payload string, _ int) ([]byte, string, error) {
	return []byte(payload), "text/plain; charset=utf-8", nil
}

// FallbackRenderer tries the primary renderer and degrades to the fallback
// on failure instead of propagating the error.
type FallbackRenderer struct {
	Primary  Renderer
	Fallback Renderer
}

// NewFallbackRenderer wires the standard PNG renderer with the plain-text
// fallback.
func NewFallbackRenderer() *FallbackRenderer {
	return &FallbackRenderer{Primary: NewQRRenderer(), Fallback: PlainRenderer{}}
}

// Render returns the primary rendering when it succeeds, the fallback
// otherwise.
func (r *FallbackRenderer) Render(payload string, size int) ([]byte, string, error) {
	data, mediaType, err := r.Primary.Render(payload, size)
	if err == nil {
		return data, mediaType, nil
	}
	return r.Fallback.Render(payload, size)
}
