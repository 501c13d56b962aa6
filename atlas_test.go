package spritegrid

import (
	"errors"
	"image"
	"image/color"
	"math"
	"reflect"
	"testing"
)

func newTestPalette(t *testing.T, colors ...color.RGBA) *Palette {
	t.Helper()
	p := NewPalette()
	for i, c := range colors {
		if _, err := p.Add(solidSprite(c, 8, 8), "", false); err != nil {
			t.Fatalf("add sprite %d: %v", i, err)
		}
	}
	return p
}

func TestAtlasLayout(t *testing.T) {
	t.Parallel()

	tests := []struct {
		n, cols, rows int
	}{
		{1, 1, 1},
		{2, 2, 1},
		{4, 2, 2},
		{5, 3, 2},
		{9, 3, 3},
		{10, 4, 3},
		{32, 6, 6},
	}
	for _, tt := range tests {
		cols, rows := atlasLayout(tt.n)
		if cols != tt.cols || rows != tt.rows {
			t.Errorf("atlasLayout(%d) = %d, %d, want %d, %d", tt.n, cols, rows, tt.cols, tt.rows)
		}
		if cols*rows < tt.n {
			t.Errorf("atlasLayout(%d) grid holds %d sprites", tt.n, cols*rows)
		}
	}
}

func TestBuildAtlasUVTable(t *testing.T) {
	t.Parallel()

	p := newTestPalette(t,
		color.RGBA{255, 0, 0, 255},
		color.RGBA{0, 255, 0, 255},
		color.RGBA{0, 0, 255, 255},
		color.RGBA{255, 255, 255, 255},
		color.RGBA{0, 0, 0, 255},
	)
	atlas, err := BuildAtlas(p, 0)
	if err != nil {
		t.Fatal(err)
	}

	if atlas.Cols != 3 || atlas.Rows != 2 {
		t.Fatalf("layout = %dx%d, want 3x2", atlas.Cols, atlas.Rows)
	}
	if got := atlas.Image.Bounds(); got.Dx() != 24 || got.Dy() != 16 {
		t.Fatalf("atlas image = %dx%d, want 24x16", got.Dx(), got.Dy())
	}

	// First sprite occupies the top-left third of the first row.
	want := UVRect{U0: 0, V0: 0, U1: 1.0 / 3.0, V1: 0.5}
	if atlas.UV[0] != want {
		t.Errorf("UV[0] = %+v, want %+v", atlas.UV[0], want)
	}
	// Fourth sprite wraps to the second row.
	if atlas.UV[3].V0 != 0.5 || atlas.UV[3].U0 != 0 {
		t.Errorf("UV[3] = %+v, want second row start", atlas.UV[3])
	}
}

func TestBuildAtlasStats(t *testing.T) {
	t.Parallel()

	p := newTestPalette(t, color.RGBA{200, 100, 50, 255})
	atlas, err := BuildAtlas(p, 0)
	if err != nil {
		t.Fatal(err)
	}
	s := atlas.Stats[0]
	if !s.Valid {
		t.Fatal("stats marked invalid for opaque sprite")
	}
	if s.R != 200 || s.G != 100 || s.B != 50 {
		t.Errorf("avg color = %v %v %v, want 200 100 50", s.R, s.G, s.B)
	}
	wantLuma := 0.299*200 + 0.587*100 + 0.114*50
	if math.Abs(s.Luminance-wantLuma) > 1e-9 {
		t.Errorf("luminance = %v, want %v", s.Luminance, wantLuma)
	}
}

func TestBuildAtlasSkipsTransparentPixels(t *testing.T) {
	t.Parallel()

	// Left half red, right half fully transparent green. Only the red
	// half counts toward the average.
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 4; x++ {
			img.SetRGBA(x, y, color.RGBA{255, 0, 0, 255})
		}
	}
	p := NewPalette()
	if _, err := p.Add(img, "half", false); err != nil {
		t.Fatal(err)
	}
	atlas, err := BuildAtlas(p, 0)
	if err != nil {
		t.Fatal(err)
	}
	s := atlas.Stats[0]
	if s.R != 255 || s.G != 0 || s.B != 0 {
		t.Errorf("avg color = %v %v %v, want 255 0 0", s.R, s.G, s.B)
	}
}

func TestBuildAtlasInvalidForFullyTransparentSprite(t *testing.T) {
	t.Parallel()

	p := NewPalette()
	empty := image.NewRGBA(image.Rect(0, 0, 8, 8))
	if _, err := p.Add(empty, "empty", false); err != nil {
		t.Fatal(err)
	}
	atlas, err := BuildAtlas(p, 0)
	if err != nil {
		t.Fatal(err)
	}
	if atlas.Stats[0].Valid {
		t.Error("fully transparent sprite marked valid")
	}
}

func TestBuildAtlasIdempotent(t *testing.T) {
	t.Parallel()

	p := newTestPalette(t,
		color.RGBA{255, 0, 0, 255},
		color.RGBA{0, 255, 0, 255},
		color.RGBA{0, 0, 255, 255},
	)
	a1, err := BuildAtlas(p, 0)
	if err != nil {
		t.Fatal(err)
	}
	a2, err := BuildAtlas(p, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a1.UV, a2.UV) {
		t.Error("UV tables differ between builds of an unchanged palette")
	}
	if !reflect.DeepEqual(a1.Stats, a2.Stats) {
		t.Error("stats differ between builds of an unchanged palette")
	}
}

func TestBuildAtlasTooLarge(t *testing.T) {
	t.Parallel()

	p := newTestPalette(t,
		color.RGBA{255, 0, 0, 255},
		color.RGBA{0, 255, 0, 255},
	)
	_, err := BuildAtlas(p, 8)
	var tooLarge *AtlasTooLargeError
	if !errors.As(err, &tooLarge) {
		t.Fatalf("err = %v, want AtlasTooLargeError", err)
	}
	if tooLarge.Width != 16 || tooLarge.Max != 8 {
		t.Errorf("error = %+v, want width 16 max 8", tooLarge)
	}
}

func TestBuildAtlasEmptyPalette(t *testing.T) {
	t.Parallel()

	if _, err := BuildAtlas(NewPalette(), 0); !errors.Is(err, ErrEmptyPalette) {
		t.Errorf("err = %v, want ErrEmptyPalette", err)
	}
}
