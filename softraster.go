package spritegrid

import (
	"fmt"
	"image"
	"image/draw"
)

// RenderImage composites a grid into a plain RGBA image on the CPU,
// drawing each cell's sprite at its native size. The output is
// grid.Width*atlas.SpriteW by grid.Height*atlas.SpriteH pixels over a
// transparent background.
//
// This is the offline path: the convert command and the tests use it to
// produce the exact mosaic the GPU pipeline draws, without needing a
// device.
func RenderImage(atlas *Atlas, grid *Grid) (*image.RGBA, error) {
	if atlas == nil || atlas.Len() == 0 {
		return nil, ErrNoAtlas
	}
	if grid == nil || grid.Cells() == 0 {
		return nil, fmt.Errorf("spritegrid: nothing to render, grid is empty")
	}

	sw, sh := atlas.SpriteW, atlas.SpriteH
	out := image.NewRGBA(image.Rect(0, 0, grid.Width*sw, grid.Height*sh))

	for y := 0; y < grid.Height; y++ {
		for x := 0; x < grid.Width; x++ {
			idx := grid.At(x, y)
			if idx < 0 || idx >= atlas.Len() {
				idx = 0
			}
			col := idx % atlas.Cols
			row := idx / atlas.Cols
			src := image.Rect(col*sw, row*sh, col*sw+sw, row*sh+sh)
			dst := image.Rect(x*sw, y*sh, x*sw+sw, y*sh+sh)
			draw.Draw(out, dst, atlas.Image, src.Min, draw.Over)
		}
	}
	return out, nil
}
