package spritegrid

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/nfnt/resize"
)

// DefaultSpriteSize is the tile edge used when a sprite is generated
// before any uploaded sprite has fixed the palette's common size.
const DefaultSpriteSize = 32

// SpriteEntry is one palette tile: an uploaded image, a captured photo,
// or a rendered character. Every entry in a palette shares the same
// pixel dimensions; Add resamples as needed.
type SpriteEntry struct {
	// ID uniquely identifies the sprite within its palette for the
	// lifetime of the session.
	ID int64

	// Name is a human-readable label, shown by the UI layer.
	Name string

	// Generated marks sprites produced by the glyph generator or the
	// palette-from-image quantizer rather than uploaded by the user.
	Generated bool

	// Pix holds the normalized RGBA pixel buffer. Alpha is straight
	// (not premultiplied); fully transparent pixels are excluded from
	// the sprite's average color statistics.
	Pix *image.RGBA
}

// Size returns the sprite's pixel dimensions.
func (s *SpriteEntry) Size() (w, h int) {
	b := s.Pix.Bounds()
	return b.Dx(), b.Dy()
}

// normalizeSprite resamples src to exactly w by h pixels and returns it
// as straight-alpha RGBA. A source already at the target size is copied,
// not aliased, so later mutations of src cannot corrupt the palette.
func normalizeSprite(src image.Image, w, h int) *image.RGBA {
	b := src.Bounds()
	if b.Dx() != w || b.Dy() != h {
		src = resize.Resize(uint(w), uint(h), src, resize.Bilinear)
		b = src.Bounds()
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}

// solidSprite builds a w by h tile filled with a single opaque color.
// Used by the palette-from-image swatch generator.
func solidSprite(c color.Color, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return dst
}
