package spritegrid

import (
	"math"
	"testing"
)

func TestColorDistance(t *testing.T) {
	t.Parallel()

	black := RGB{0, 0, 0}
	white := RGB{255, 255, 255}
	if d := black.ColorDistance(black); d != 0 {
		t.Errorf("distance to self = %v, want 0", d)
	}
	want := math.Sqrt(3 * 255 * 255)
	if d := black.ColorDistance(white); math.Abs(d-want) > 1e-9 {
		t.Errorf("black-white distance = %v, want %v", d, want)
	}
	if d1, d2 := black.ColorDistance(white), white.ColorDistance(black); d1 != d2 {
		t.Errorf("distance not symmetric: %v != %v", d1, d2)
	}
}

func TestLuminance(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		c    RGB
		want float64
	}{
		{"black", RGB{0, 0, 0}, 0},
		{"white", RGB{255, 255, 255}, 255},
		{"red", RGB{255, 0, 0}, 0.299 * 255},
		{"green", RGB{0, 255, 0}, 0.587 * 255},
		{"blue", RGB{0, 0, 255}, 0.114 * 255},
	}
	for _, tt := range tests {
		if got := tt.c.Luminance(); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("%s luminance = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestPosterizeLevels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		sprites   int
		threshold float64
		want      int
	}{
		{32, 0.25, 8},
		{16, 0.25, 4},
		{4, 0.25, 2},  // rounds to 1, floored at 2
		{2, 0.10, 2},  // floor
		{32, 1.0, 32},
		{10, 0.25, 3}, // 2.5 rounds to 3
	}
	for _, tt := range tests {
		if got := PosterizeLevels(tt.sprites, tt.threshold); got != tt.want {
			t.Errorf("PosterizeLevels(%d, %v) = %d, want %d", tt.sprites, tt.threshold, got, tt.want)
		}
	}
}

func TestPosterize(t *testing.T) {
	t.Parallel()

	// Two levels snap every channel to 0 or 255.
	c := RGB{100, 200, 30}.Posterize(2)
	if c != (RGB{0, 255, 0}) {
		t.Errorf("Posterize(2) = %+v, want {0 255 0}", c)
	}

	// Eight levels use step 255/7; channel values land on multiples.
	step := 255.0 / 7.0
	p := RGB{128, 128, 128}.Posterize(8)
	wantV := uint8(math.Round(math.Round(128/step) * step))
	if p.R != wantV || p.G != wantV || p.B != wantV {
		t.Errorf("Posterize(8) = %+v, want all %d", p, wantV)
	}

	// Posterizing an already posterized color is a no-op.
	pp := p.Posterize(8)
	if pp != p {
		t.Errorf("Posterize not idempotent: %+v then %+v", p, pp)
	}
}

func TestRGBUint32RoundTrip(t *testing.T) {
	t.Parallel()

	c := RGB{R: 0x12, G: 0x34, B: 0x56}
	if got := RGBFromUint32(c.ToUint32()); got != c {
		t.Errorf("round trip = %+v, want %+v", got, c)
	}
}
