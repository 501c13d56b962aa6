package spritegrid

import (
	"fmt"
	"image"
	"image/color"

	"github.com/ericpauley/go-quantize/quantize"
	log "github.com/sirupsen/logrus"
)

const (
	// MaxSprites is the palette capacity. The UV lookup table bound to
	// the draw pipeline is sized for this many entries.
	MaxSprites = 32

	// MinSprites is the smallest palette that produces a meaningful
	// mosaic; below this the session stays idle.
	MinSprites = 2
)

// Palette is the ordered collection of sprites the selector chooses
// from. Order is significant: atlas UV rectangles, sprite statistics,
// and grid cell indices are all aligned with palette positions.
//
// Palette is not safe for concurrent use; the owning Session serializes
// access to it.
type Palette struct {
	sprites []*SpriteEntry
	byID    map[int64]int

	// Common sprite size, fixed by the first sprite added and kept
	// until Clear. Zero until then.
	width  int
	height int

	nextID int64

	// generation increments on every mutation. Atlas snapshots record
	// the generation they were built from so that interleaved rebuilds
	// resolve last-write-wins and stale selection caches are dropped.
	generation uint64
}

// NewPalette creates an empty palette.
func NewPalette() *Palette {
	return &Palette{byID: make(map[int64]int)}
}

// Len returns the number of sprites in the palette.
func (p *Palette) Len() int { return len(p.sprites) }

// Generation returns the mutation counter.
func (p *Palette) Generation() uint64 { return p.generation }

// SpriteSize returns the common sprite dimensions, or (0, 0) while the
// palette is empty and no size has been fixed.
func (p *Palette) SpriteSize() (w, h int) { return p.width, p.height }

// Sprites returns the entries in palette order. The returned slice is a
// copy; the entries themselves are shared.
func (p *Palette) Sprites() []*SpriteEntry {
	out := make([]*SpriteEntry, len(p.sprites))
	copy(out, p.sprites)
	return out
}

// ReadyToRender reports whether the palette has enough sprites for the
// rasterizer to run. The error carries the idle reason for the UI.
func (p *Palette) ReadyToRender() error {
	if len(p.sprites) < MinSprites {
		return fmt.Errorf("%w: have %d", ErrPaletteTooSmall, len(p.sprites))
	}
	return nil
}

// Add normalizes img to the palette's common sprite size and appends it.
// The first sprite added fixes the common size at its own native
// dimensions. Adding past MaxSprites is rejected with PaletteFullError
// and the palette is left unchanged.
func (p *Palette) Add(img image.Image, name string, generated bool) (*SpriteEntry, error) {
	if len(p.sprites) >= MaxSprites {
		return nil, &PaletteFullError{Cap: MaxSprites}
	}

	if p.width == 0 {
		b := img.Bounds()
		p.width, p.height = b.Dx(), b.Dy()
	}

	p.nextID++
	entry := &SpriteEntry{
		ID:        p.nextID,
		Name:      name,
		Generated: generated,
		Pix:       normalizeSprite(img, p.width, p.height),
	}
	p.byID[entry.ID] = len(p.sprites)
	p.sprites = append(p.sprites, entry)
	p.generation++

	log.WithFields(log.Fields{
		"id":   entry.ID,
		"name": name,
		"size": fmt.Sprintf("%dx%d", p.width, p.height),
	}).Info("palette: sprite added")
	return entry, nil
}

// Remove deletes the sprite with the given id, preserving the order of
// the remaining entries. It reports whether a sprite was removed.
func (p *Palette) Remove(id int64) bool {
	idx, ok := p.byID[id]
	if !ok {
		return false
	}
	p.sprites = append(p.sprites[:idx], p.sprites[idx+1:]...)
	delete(p.byID, id)
	for i := idx; i < len(p.sprites); i++ {
		p.byID[p.sprites[i].ID] = i
	}
	p.generation++
	log.WithField("id", id).Info("palette: sprite removed")
	return true
}

// Clear removes every sprite and unfixes the common sprite size, so the
// next Add starts a fresh session of equally-sized tiles.
func (p *Palette) Clear() {
	p.sprites = nil
	p.byID = make(map[int64]int)
	p.width, p.height = 0, 0
	p.generation++
	log.Info("palette: cleared")
}

// FromImage re-themes the palette with n solid-color swatch sprites
// produced by median-cut quantization of img. Existing sprites are kept;
// the swatches are appended, subject to the usual capacity check. The
// swatch tile size follows the palette's common size, or
// DefaultSpriteSize when the palette is empty.
func (p *Palette) FromImage(img image.Image, n int) ([]*SpriteEntry, error) {
	if n < 1 {
		return nil, fmt.Errorf("spritegrid: swatch count %d out of range", n)
	}
	if len(p.sprites)+n > MaxSprites {
		return nil, &PaletteFullError{Cap: MaxSprites}
	}

	q := quantize.MedianCutQuantizer{}
	colors := q.Quantize(make([]color.Color, 0, n), img)

	w, h := p.width, p.height
	if w == 0 {
		w, h = DefaultSpriteSize, DefaultSpriteSize
	}

	added := make([]*SpriteEntry, 0, len(colors))
	for i, c := range colors {
		entry, err := p.Add(solidSprite(c, w, h), fmt.Sprintf("swatch-%d", i), true)
		if err != nil {
			return added, err
		}
		added = append(added, entry)
	}
	return added, nil
}
