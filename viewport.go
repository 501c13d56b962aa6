package spritegrid

// Viewport describes the letterboxed region of the output surface the
// mosaic is drawn into. Offsets and sizes are in pixels; the region is
// centered, preserving the grid's aspect ratio against the surface's.
type Viewport struct {
	X, Y          float32
	Width, Height float32
}

// FitViewport letterboxes a gridW:gridH aspect ratio into a surfaceW by
// surfaceH output. When the surface is proportionally wider than the
// grid the mosaic is pillarboxed; when taller, letterboxed. Degenerate
// inputs produce a zero viewport, which draws nothing.
func FitViewport(surfaceW, surfaceH, gridW, gridH int) Viewport {
	if surfaceW <= 0 || surfaceH <= 0 || gridW <= 0 || gridH <= 0 {
		return Viewport{}
	}
	sw := float32(surfaceW)
	sh := float32(surfaceH)
	gridAspect := float32(gridW) / float32(gridH)
	surfaceAspect := sw / sh

	var v Viewport
	if surfaceAspect > gridAspect {
		v.Height = sh
		v.Width = sh * gridAspect
		v.X = (sw - v.Width) / 2
	} else {
		v.Width = sw
		v.Height = sw / gridAspect
		v.Y = (sh - v.Height) / 2
	}
	return v
}

// CellSize returns the drawn size of one grid cell in surface pixels.
func (v Viewport) CellSize(gridW, gridH int) (w, h float32) {
	if gridW <= 0 || gridH <= 0 {
		return 0, 0
	}
	return v.Width / float32(gridW), v.Height / float32(gridH)
}
