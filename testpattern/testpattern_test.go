package testpattern

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderKnownPatterns(t *testing.T) {
	for name := range Generators {
		data, err := Render(name, 64)
		require.NoError(t, err, name)
		img, err := png.Decode(bytes.NewReader(data))
		require.NoError(t, err, name)
		assert.Equal(t, 128, img.Bounds().Dx())
	}
}

func TestRenderUnknownPattern(t *testing.T) {
	_, err := Render("does-not-exist", 64)
	assert.Error(t, err)
}
