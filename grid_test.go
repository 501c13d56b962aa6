package spritegrid

import (
	"image"
	"image/color"
	"testing"
)

func testStats() []SpriteStats {
	return []SpriteStats{
		{R: 0, G: 0, B: 0, Luminance: 0, Valid: true},
		{R: 255, G: 255, B: 255, Luminance: 255, Valid: true},
	}
}

func TestGridMapperSelectsPerCell(t *testing.T) {
	t.Parallel()

	// Left column black, right column white.
	frame := image.NewRGBA(image.Rect(0, 0, 2, 2))
	frame.SetRGBA(0, 0, color.RGBA{0, 0, 0, 255})
	frame.SetRGBA(0, 1, color.RGBA{0, 0, 0, 255})
	frame.SetRGBA(1, 0, color.RGBA{255, 255, 255, 255})
	frame.SetRGBA(1, 1, color.RGBA{255, 255, 255, 255})

	g := NewGrid(2, 2)
	m := NewGridMapper()
	if err := m.Map(g, frame, testStats(), ColorSelector{}, 2, 1); err != nil {
		t.Fatal(err)
	}

	want := []int{0, 1, 0, 1}
	for i, idx := range g.Indices {
		if idx != want[i] {
			t.Errorf("cell %d = %d, want %d", i, idx, want[i])
		}
	}
}

func TestGridMapperTransparentCellsFallBack(t *testing.T) {
	t.Parallel()

	frame := image.NewRGBA(image.Rect(0, 0, 2, 1))
	frame.SetRGBA(0, 0, color.RGBA{255, 255, 255, 255})
	// (1,0) stays zero-alpha.

	// Index 1 would match white, but the transparent cell must take the
	// fallback index 0 without consulting the selector.
	g := NewGrid(2, 1)
	m := NewGridMapper()
	if err := m.Map(g, frame, testStats(), ColorSelector{}, 2, 1); err != nil {
		t.Fatal(err)
	}
	if g.At(0, 0) != 1 {
		t.Errorf("opaque cell = %d, want 1", g.At(0, 0))
	}
	if g.At(1, 0) != 0 {
		t.Errorf("transparent cell = %d, want 0", g.At(1, 0))
	}
}

func TestGridMapperSizeMismatch(t *testing.T) {
	t.Parallel()

	frame := image.NewRGBA(image.Rect(0, 0, 3, 3))
	g := NewGrid(2, 2)
	if err := NewGridMapper().Map(g, frame, testStats(), ColorSelector{}, 2, 1); err == nil {
		t.Error("expected error for frame/grid size mismatch")
	}
}

func TestGridMapperCacheEquivalence(t *testing.T) {
	t.Parallel()

	// A frame with many repeated colors: cached and uncached mapping
	// must produce identical grids.
	frame := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			v := uint8((x * 16) % 256)
			frame.SetRGBA(x, y, color.RGBA{v, v, v, 255})
		}
	}
	stats := testStats()

	cached := NewGrid(16, 16)
	m := NewGridMapper()
	if err := m.Map(cached, frame, stats, ColorSelector{}, 4, 7); err != nil {
		t.Fatal(err)
	}
	hits, misses := m.cache.stats()
	if hits == 0 {
		t.Error("expected cache hits on a repetitive frame")
	}
	if misses == 0 {
		t.Error("expected at least one cache miss")
	}

	// Fresh mapper, no warm cache.
	fresh := NewGrid(16, 16)
	if err := NewGridMapper().Map(fresh, frame, stats, ColorSelector{}, 4, 7); err != nil {
		t.Fatal(err)
	}
	for i := range cached.Indices {
		if cached.Indices[i] != fresh.Indices[i] {
			t.Fatalf("cell %d differs: cached %d, fresh %d", i, cached.Indices[i], fresh.Indices[i])
		}
	}
}

func TestGridMapperCacheInvalidation(t *testing.T) {
	t.Parallel()

	frame := image.NewRGBA(image.Rect(0, 0, 1, 1))
	frame.SetRGBA(0, 0, color.RGBA{255, 255, 255, 255})

	m := NewGridMapper()
	g := NewGrid(1, 1)
	if err := m.Map(g, frame, testStats(), ColorSelector{}, 2, 1); err != nil {
		t.Fatal(err)
	}
	if g.At(0, 0) != 1 {
		t.Fatalf("initial map = %d, want 1", g.At(0, 0))
	}

	// Same generation, different stats where index 0 is now white: a
	// stale cache would still say 1. A new generation must invalidate.
	flipped := []SpriteStats{
		{R: 255, G: 255, B: 255, Luminance: 255, Valid: true},
		{R: 0, G: 0, B: 0, Luminance: 0, Valid: true},
	}
	if err := m.Map(g, frame, flipped, ColorSelector{}, 2, 2); err != nil {
		t.Fatal(err)
	}
	if g.At(0, 0) != 0 {
		t.Errorf("after generation bump = %d, want 0", g.At(0, 0))
	}
}

func TestGridClampIndices(t *testing.T) {
	t.Parallel()

	g := NewGrid(2, 1)
	g.Indices[0] = 5
	g.Indices[1] = 1
	g.ClampIndices(2)
	if g.Indices[0] != 0 {
		t.Errorf("out-of-range index clamped to %d, want 0", g.Indices[0])
	}
	if g.Indices[1] != 1 {
		t.Errorf("in-range index changed to %d", g.Indices[1])
	}
}
