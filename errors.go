package spritegrid

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyPalette is returned when an atlas build is requested for a
	// palette with no sprites.
	ErrEmptyPalette = errors.New("spritegrid: palette is empty")

	// ErrPaletteTooSmall is returned while the palette holds fewer than
	// MinSprites entries; the session stays idle until more are added.
	ErrPaletteTooSmall = errors.New("spritegrid: palette needs at least 2 sprites")

	// ErrNoAtlas is returned when a frame is rendered before any atlas
	// has been built.
	ErrNoAtlas = errors.New("spritegrid: no atlas built")

	// ErrContextLost is returned by Frame while the GPU context is
	// suspended; rendering resumes after ResumeContext.
	ErrContextLost = errors.New("spritegrid: GPU context lost")
)

// AtlasTooLargeError reports that the packed atlas would exceed the
// device's maximum texture dimension. The offending build is rejected;
// the previous atlas, if any, stays live.
type AtlasTooLargeError struct {
	Width, Height int
	Max           int
}

func (e *AtlasTooLargeError) Error() string {
	return fmt.Sprintf("spritegrid: atlas %dx%d exceeds max texture size %d",
		e.Width, e.Height, e.Max)
}

// PaletteFullError reports an add-sprite request past the palette
// capacity. The palette keeps its prior contents.
type PaletteFullError struct {
	Cap int
}

func (e *PaletteFullError) Error() string {
	return fmt.Sprintf("spritegrid: palette is full (%d sprites)", e.Cap)
}
