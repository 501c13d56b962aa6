package spritegrid

import (
	"fmt"
	"image"
)

// Grid is one frame's worth of sprite selections: a Width by Height
// table of indices into the atlas, row-major from the top left.
type Grid struct {
	Width   int
	Height  int
	Indices []int
}

// NewGrid allocates a zeroed grid. Index 0 is the fallback sprite, so a
// fresh grid renders as a full field of sprite 0.
func NewGrid(w, h int) *Grid {
	return &Grid{
		Width:   w,
		Height:  h,
		Indices: make([]int, w*h),
	}
}

// Cells returns the total cell count.
func (g *Grid) Cells() int { return g.Width * g.Height }

// At returns the sprite index at cell (x, y).
func (g *Grid) At(x, y int) int { return g.Indices[y*g.Width+x] }

// GridMapper turns a downsampled frame into a grid of sprite indices.
// It owns the posterize step and the per-frame selection cache; the
// selector and statistics table come from whoever holds the atlas.
type GridMapper struct {
	cache *selectionCache
}

func NewGridMapper() *GridMapper {
	return &GridMapper{cache: newSelectionCache()}
}

// Map fills dst from a frame already downsampled to exactly dst.Width by
// dst.Height pixels. Each pixel is posterized to levels quantization
// steps and matched through the selector against stats.
//
// Fully transparent pixels map to index 0 without consulting the
// selector. generation tags the cache so a palette edit or mode switch
// between frames cannot serve stale indices.
func (m *GridMapper) Map(dst *Grid, frame *image.RGBA, stats []SpriteStats, sel Selector, levels int, generation uint64) error {
	b := frame.Bounds()
	if b.Dx() != dst.Width || b.Dy() != dst.Height {
		return fmt.Errorf("frame is %dx%d, grid wants %dx%d", b.Dx(), b.Dy(), dst.Width, dst.Height)
	}
	mode := sel.Mode()
	for y := 0; y < dst.Height; y++ {
		row := frame.Pix[(y+b.Min.Y-frame.Rect.Min.Y)*frame.Stride:]
		for x := 0; x < dst.Width; x++ {
			px := row[(x+b.Min.X-frame.Rect.Min.X)*4:]
			if px[3] == 0 {
				dst.Indices[y*dst.Width+x] = 0
				continue
			}
			c := RGB{R: px[0], G: px[1], B: px[2]}.Posterize(levels)
			idx, ok := m.cache.lookup(c, generation, mode)
			if !ok {
				idx = sel.Select(c, stats)
				m.cache.store(c, idx)
			}
			dst.Indices[y*dst.Width+x] = idx
		}
	}
	return nil
}

// ClampIndices forces every out-of-range index in g back to 0. Run this
// after the palette shrinks between mapping and drawing so the renderer
// never samples past the end of the UV table.
func (g *Grid) ClampIndices(spriteCount int) {
	for i, idx := range g.Indices {
		if idx < 0 || idx >= spriteCount {
			g.Indices[i] = 0
		}
	}
}
