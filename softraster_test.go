package spritegrid

import (
	"errors"
	"image/color"
	"testing"
)

func TestRenderImage(t *testing.T) {
	t.Parallel()

	p := newTestPalette(t,
		color.RGBA{255, 0, 0, 255},
		color.RGBA{0, 0, 255, 255},
	)
	atlas, err := BuildAtlas(p, 0)
	if err != nil {
		t.Fatal(err)
	}

	g := NewGrid(2, 1)
	g.Indices[0] = 0
	g.Indices[1] = 1

	out, err := RenderImage(atlas, g)
	if err != nil {
		t.Fatal(err)
	}
	if b := out.Bounds(); b.Dx() != 16 || b.Dy() != 8 {
		t.Fatalf("output = %dx%d, want 16x8", b.Dx(), b.Dy())
	}

	// Left cell red, right cell blue, sampled at cell centers.
	if got := out.RGBAAt(4, 4); got != (color.RGBA{255, 0, 0, 255}) {
		t.Errorf("left cell = %+v, want red", got)
	}
	if got := out.RGBAAt(12, 4); got != (color.RGBA{0, 0, 255, 255}) {
		t.Errorf("right cell = %+v, want blue", got)
	}
}

func TestRenderImageClampsIndices(t *testing.T) {
	t.Parallel()

	p := newTestPalette(t, color.RGBA{0, 255, 0, 255})
	atlas, err := BuildAtlas(p, 0)
	if err != nil {
		t.Fatal(err)
	}

	g := NewGrid(1, 1)
	g.Indices[0] = 42
	out, err := RenderImage(atlas, g)
	if err != nil {
		t.Fatal(err)
	}
	if got := out.RGBAAt(4, 4); got != (color.RGBA{0, 255, 0, 255}) {
		t.Errorf("clamped cell = %+v, want sprite 0", got)
	}
}

func TestRenderImageNoAtlas(t *testing.T) {
	t.Parallel()

	if _, err := RenderImage(nil, NewGrid(1, 1)); !errors.Is(err, ErrNoAtlas) {
		t.Errorf("err = %v, want ErrNoAtlas", err)
	}
}

func TestRenderImageEmptyGrid(t *testing.T) {
	t.Parallel()

	p := newTestPalette(t, color.RGBA{255, 0, 0, 255})
	atlas, err := BuildAtlas(p, 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := RenderImage(atlas, nil); err == nil {
		t.Error("expected error for nil grid")
	}
	if _, err := RenderImage(atlas, NewGrid(0, 0)); err == nil {
		t.Error("expected error for zero-cell grid")
	}
}
