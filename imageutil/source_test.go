package imageutil

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageSource(t *testing.T) {
	src := NewImageSource(CreateSolidImage(4, 4, color.RGBA{255, 0, 0, 255}))
	assert.False(t, src.Mirrored())

	// A still source serves the same frame indefinitely.
	for i := 0; i < 3; i++ {
		frame, err := src.Next()
		require.NoError(t, err)
		assert.Equal(t, color.RGBA{255, 0, 0, 255}, frame.RGBAAt(1, 1))
	}

	require.NoError(t, src.Close())
	_, err := src.Next()
	assert.ErrorIs(t, err, ErrSourceClosed)
}
