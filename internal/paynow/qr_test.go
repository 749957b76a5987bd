package paynow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func TestQRRenderer_ProducesPNG(t *testing.T) {
	payload := mustEncode(t, validRequest())

	data, mediaType, err := NewQRRenderer().Render(payload, 256)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mediaType)
	require.Greater(t, len(data), 4)
	assert.Equal(t, pngMagic, data[:4])
}

func TestPlainRenderer_RoundTripsPayloadBytes(t *testing.T) {
	payload := mustEncode(t, validRequest())

	data, mediaType, err := PlainRenderer{}.Render(payload, 256)
	require.NoError(t, err)
	assert.Equal(t, "text/plain; charset=utf-8", mediaType)
	assert.Equal(t, payload, string(data), "fallback must not alter a single byte")
}

type brokenRenderer struct{}

func (brokenRenderer) Render(string, int) ([]byte, string, error) {
	return nil, "", errors.New("renderer unavailable")
}

func TestFallbackRenderer_DegradesWithoutCorruption(t *testing.T) {
	payload := mustEncode(t, validRequest())

	r := &FallbackRenderer{Primary: brokenRenderer{}, Fallback: PlainRenderer{}}
	data, mediaType, err := r.Render(payload, 256)
	require.NoError(t, err)
	assert.Equal(t, "text/plain; charset=utf-8", mediaType)
	assert.Equal(t, payload, string(data))
}

func TestFallbackRenderer_PrefersPrimary(t *testing.T) {
	payload := mustEncode(t, validRequest())

	data, mediaType, err := NewFallbackRenderer().Render(payload, 128)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mediaType)
	assert.Equal(t, pngMagic, data[:4])
}
