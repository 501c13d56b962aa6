package gpu

import (
	"encoding/binary"
	"math"

	"github.com/spritegrid/spritegrid"
)

// vertexStride is the byte stride per vertex in the sprite grid
// pipeline. Layout per vertex:
//
//	position (vec2<f32>)     = 8 bytes (location 0)
//	local    (vec2<f32>)     = 8 bytes (location 1)
//	sprite_index (f32)       = 4 bytes (location 2)
//
// Total = 20 bytes per vertex.
const vertexStride = 20

// verticesPerCell and indicesPerCell describe the quad expansion: four
// corner vertices and two triangles per grid cell.
const (
	verticesPerCell = 4
	indicesPerCell  = 6
)

// buildGridVertices serializes one quad per grid cell into vertex bytes.
// Corners are emitted top-left, top-right, bottom-right, bottom-left in
// pixel coordinates inside the viewport region.
func buildGridVertices(grid *spritegrid.Grid, vp spritegrid.Viewport) []byte {
	cellW, cellH := vp.CellSize(grid.Width, grid.Height)
	buf := make([]byte, grid.Cells()*verticesPerCell*vertexStride)
	offset := 0

	putF32 := func(v float32) {
		binary.LittleEndian.PutUint32(buf[offset:], math.Float32bits(v))
		offset += 4
	}

	for y := 0; y < grid.Height; y++ {
		for x := 0; x < grid.Width; x++ {
			idx := float32(grid.At(x, y))
			x0 := vp.X + float32(x)*cellW
			y0 := vp.Y + float32(y)*cellH
			x1 := x0 + cellW
			y1 := y0 + cellH

			corners := [verticesPerCell][4]float32{
				{x0, y0, 0, 0},
				{x1, y0, 1, 0},
				{x1, y1, 1, 1},
				{x0, y1, 0, 1},
			}
			for _, c := range corners {
				putF32(c[0])
				putF32(c[1])
				putF32(c[2])
				putF32(c[3])
				putF32(idx)
			}
		}
	}
	return buf
}

// buildGridIndices emits two triangles per cell over the corner order
// used by buildGridVertices. Indices are uint32: a full-resolution grid
// overflows uint16 well before the cell throttle kicks in.
func buildGridIndices(cells int) []byte {
	buf := make([]byte, cells*indicesPerCell*4)
	offset := 0
	put := func(v uint32) {
		binary.LittleEndian.PutUint32(buf[offset:], v)
		offset += 4
	}
	for i := 0; i < cells; i++ {
		base := uint32(i * verticesPerCell)
		put(base)
		put(base + 1)
		put(base + 2)
		put(base + 2)
		put(base + 3)
		put(base)
	}
	return buf
}

// buildUVRectData serializes the atlas UV table as vec4<f32> entries
// (u0, v0, u1, v1) for the shader's storage buffer.
func buildUVRectData(uv []spritegrid.UVRect) []byte {
	buf := make([]byte, len(uv)*16)
	offset := 0
	put := func(v float32) {
		binary.LittleEndian.PutUint32(buf[offset:], math.Float32bits(v))
		offset += 4
	}
	for _, r := range uv {
		put(r.U0)
		put(r.V0)
		put(r.U1)
		put(r.V1)
	}
	return buf
}

// buildUniformData serializes the GridUniforms struct: surface size plus
// padding to 16 bytes.
func buildUniformData(surfaceW, surfaceH int) []byte {
	buf := make([]byte, uniformSize)
	binary.LittleEndian.PutUint32(buf[0:], math.Float32bits(float32(surfaceW)))
	binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(float32(surfaceH)))
	return buf
}

// uniformSize is the byte size of the grid uniform buffer:
// viewport (vec2<f32>) + padding (vec2<f32>) = 16 bytes.
const uniformSize = 16
