package render

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const encoded = "IR-WR-BCT-021-114320-BOLT-2024-001234"

func TestRenderer_RoundTrip(t *testing.T) {
	renderer := NewRenderer(DefaultConfig())
	decoder := NewDecoder()

	img, err := renderer.Render(encoded)
	require.NoError(t, err)
	require.NotNil(t, img)
	assert.Equal(t, img.Bounds().Dx(), img.Bounds().Dy(), "code must be square")

	got, ok := decoder.Decode(context.Background(), img)
	require.True(t, ok, "rendered code must decode")
	assert.Equal(t, encoded, got)
}

func TestRenderer_PNG(t *testing.T) {
	renderer := NewRenderer(Config{ModulePx: 8, ErrorCorrection: LevelHighest})

	data, err := renderer.RenderPNG(encoded)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)

	got, ok := NewDecoder().Decode(context.Background(), img)
	require.True(t, ok)
	assert.Equal(t, encoded, got)
}

func TestDecoder_NotFound(t *testing.T) {
	// A blank image carries no code.
	blank := image.NewGray(image.Rect(0, 0, 64, 64))
	for i := range blank.Pix {
		blank.Pix[i] = 255
	}

	_, ok := NewDecoder().Decode(context.Background(), blank)
	assert.False(t, ok)
}
