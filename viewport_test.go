package spritegrid

import "testing"

func TestFitViewportMatchingAspect(t *testing.T) {
	t.Parallel()

	v := FitViewport(800, 600, 4, 3)
	if v.X != 0 || v.Y != 0 || v.Width != 800 || v.Height != 600 {
		t.Errorf("matching aspect = %+v, want full surface", v)
	}
}

func TestFitViewportPillarbox(t *testing.T) {
	t.Parallel()

	// Surface wider than grid: full height, centered horizontally.
	v := FitViewport(1000, 600, 4, 3)
	if v.Height != 600 {
		t.Errorf("height = %v, want 600", v.Height)
	}
	if v.Width != 800 {
		t.Errorf("width = %v, want 800", v.Width)
	}
	if v.X != 100 || v.Y != 0 {
		t.Errorf("offset = %v, %v, want 100, 0", v.X, v.Y)
	}
}

func TestFitViewportLetterbox(t *testing.T) {
	t.Parallel()

	// Surface taller than grid: full width, centered vertically.
	v := FitViewport(800, 800, 4, 3)
	if v.Width != 800 {
		t.Errorf("width = %v, want 800", v.Width)
	}
	if v.Height != 600 {
		t.Errorf("height = %v, want 600", v.Height)
	}
	if v.X != 0 || v.Y != 100 {
		t.Errorf("offset = %v, %v, want 0, 100", v.X, v.Y)
	}
}

func TestFitViewportDegenerate(t *testing.T) {
	t.Parallel()

	if v := FitViewport(0, 600, 4, 3); v != (Viewport{}) {
		t.Errorf("zero surface = %+v, want zero viewport", v)
	}
	if v := FitViewport(800, 600, 0, 3); v != (Viewport{}) {
		t.Errorf("zero grid = %+v, want zero viewport", v)
	}
}

func TestViewportCellSize(t *testing.T) {
	t.Parallel()

	v := Viewport{Width: 800, Height: 600}
	w, h := v.CellSize(4, 3)
	if w != 200 || h != 200 {
		t.Errorf("cell size = %v x %v, want 200 x 200", w, h)
	}
	if w, h := v.CellSize(0, 3); w != 0 || h != 0 {
		t.Errorf("degenerate cell size = %v x %v, want 0 x 0", w, h)
	}
}
