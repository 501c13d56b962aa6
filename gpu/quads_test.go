package gpu

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spritegrid/spritegrid"
)

func f32At(buf []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[off:]))
}

func TestBuildGridVertices(t *testing.T) {
	grid := spritegrid.NewGrid(2, 2)
	grid.Indices = []int{0, 1, 2, 3}
	vp := spritegrid.Viewport{X: 10, Y: 20, Width: 200, Height: 100}

	data := buildGridVertices(grid, vp)
	assert.Len(t, data, 2*2*verticesPerCell*vertexStride)

	// First vertex of the first cell: viewport origin, local (0,0),
	// sprite index 0.
	assert.Equal(t, float32(10), f32At(data, 0))
	assert.Equal(t, float32(20), f32At(data, 4))
	assert.Equal(t, float32(0), f32At(data, 8))
	assert.Equal(t, float32(0), f32At(data, 12))
	assert.Equal(t, float32(0), f32At(data, 16))

	// Third vertex of the first cell is the bottom-right corner of a
	// 100x50 cell.
	off := 2 * vertexStride
	assert.Equal(t, float32(110), f32At(data, off))
	assert.Equal(t, float32(70), f32At(data, off+4))
	assert.Equal(t, float32(1), f32At(data, off+8))
	assert.Equal(t, float32(1), f32At(data, off+12))

	// Last cell carries sprite index 3 on every vertex.
	lastCell := 3 * verticesPerCell * vertexStride
	for v := 0; v < verticesPerCell; v++ {
		assert.Equal(t, float32(3), f32At(data, lastCell+v*vertexStride+16))
	}
}

func TestBuildGridIndices(t *testing.T) {
	data := buildGridIndices(2)
	assert.Len(t, data, 2*indicesPerCell*4)

	want := []uint32{0, 1, 2, 2, 3, 0, 4, 5, 6, 6, 7, 4}
	for i, w := range want {
		got := binary.LittleEndian.Uint32(data[i*4:])
		assert.Equal(t, w, got, "index %d", i)
	}
}

func TestBuildUVRectData(t *testing.T) {
	uv := []spritegrid.UVRect{
		{U0: 0, V0: 0, U1: 0.5, V1: 1},
		{U0: 0.5, V0: 0, U1: 1, V1: 1},
	}
	data := buildUVRectData(uv)
	assert.Len(t, data, 2*16)

	assert.Equal(t, float32(0.5), f32At(data, 8))
	assert.Equal(t, float32(0.5), f32At(data, 16))
	assert.Equal(t, float32(1), f32At(data, 28))
}

func TestBuildUniformData(t *testing.T) {
	data := buildUniformData(800, 600)
	assert.Len(t, data, uniformSize)
	assert.Equal(t, float32(800), f32At(data, 0))
	assert.Equal(t, float32(600), f32At(data, 4))
}

func TestVertexLayoutMatchesStride(t *testing.T) {
	layout := gridVertexLayout()
	assert.Len(t, layout, 1)
	assert.Equal(t, uint64(vertexStride), uint64(layout[0].ArrayStride))
	assert.Len(t, layout[0].Attributes, 3)
}
