package spritegrid

import "math"

// SelectionMode names the metric used to match a cell color to a
// sprite.
type SelectionMode int

const (
	// SelectByColor picks the sprite whose average color has the
	// smallest Euclidean RGB distance to the cell color.
	SelectByColor SelectionMode = iota
	// SelectByBrightness picks the sprite whose average luminance is
	// closest to the cell's luminance.
	SelectByBrightness
)

// String returns the mode name used in logs and the CLI.
func (m SelectionMode) String() string {
	switch m {
	case SelectByColor:
		return "color"
	case SelectByBrightness:
		return "brightness"
	default:
		return "unknown"
	}
}

// Selector maps a cell color to a sprite index against a statistics
// table. Implementations must be deterministic: the same color and the
// same table always yield the same index.
type Selector interface {
	Select(c RGB, stats []SpriteStats) int
	Mode() SelectionMode
}

// NewSelector returns the selector for the given mode. Unknown modes
// fall back to color matching.
func NewSelector(mode SelectionMode) Selector {
	if mode == SelectByBrightness {
		return BrightnessSelector{}
	}
	return ColorSelector{}
}

// ColorSelector matches by Euclidean distance in RGB space. Ties break
// to the lowest index: only a strictly smaller distance displaces the
// current best. Invalid entries are skipped. An empty or all-invalid
// table yields index 0.
type ColorSelector struct{}

func (ColorSelector) Mode() SelectionMode { return SelectByColor }

func (ColorSelector) Select(c RGB, stats []SpriteStats) int {
	best := 0
	bestDist := math.MaxFloat64
	for i, s := range stats {
		if !s.Valid {
			continue
		}
		dr := float64(c.R) - s.R
		dg := float64(c.G) - s.G
		db := float64(c.B) - s.B
		d := dr*dr + dg*dg + db*db
		if d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}

// BrightnessSelector matches by absolute luminance difference, with the
// same tie-break and skip rules as ColorSelector.
type BrightnessSelector struct{}

func (BrightnessSelector) Mode() SelectionMode { return SelectByBrightness }

func (BrightnessSelector) Select(c RGB, stats []SpriteStats) int {
	luma := c.Luminance()
	best := 0
	bestDist := math.MaxFloat64
	for i, s := range stats {
		if !s.Valid {
			continue
		}
		d := math.Abs(luma - s.Luminance)
		if d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}
