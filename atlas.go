package spritegrid

import (
	"image"
	"image/draw"
	"math"

	log "github.com/sirupsen/logrus"
)

// DefaultMaxTextureSize is the atlas dimension cap used when the caller
// does not supply the real device limit. 8192 is the typical GPU limit.
const DefaultMaxTextureSize = 8192

// UVRect is a normalized texture-coordinate rectangle into the atlas
// image. Coordinates are in [0,1] with the origin at the top left.
type UVRect struct {
	U0, V0 float32
	U1, V1 float32
}

// SpriteStats holds the per-sprite match statistics the selectors use.
// Averages are computed over pixels with nonzero alpha only, so a glyph
// sprite's color is the color of its strokes, not of its transparent
// background. A fully transparent sprite has no meaningful statistics
// and is marked invalid; selectors skip it.
type SpriteStats struct {
	R, G, B   float64
	Luminance float64
	Valid     bool
}

// Color returns the average color rounded to 8-bit channels. Calling
// this on an invalid entry returns black.
func (s SpriteStats) Color() RGB {
	return RGB{
		R: uint8(math.Round(s.R)),
		G: uint8(math.Round(s.G)),
		B: uint8(math.Round(s.B)),
	}
}

// Atlas is a packed composite of every palette sprite plus the lookup
// tables derived from it: one UVRect and one SpriteStats per sprite,
// indexed by the sprite's position in the palette. The Image field is
// what gets uploaded to the GPU; the software compositor samples it
// directly.
type Atlas struct {
	Image      *image.RGBA
	Cols, Rows int
	SpriteW    int
	SpriteH    int
	UV         []UVRect
	Stats      []SpriteStats
	Generation uint64
}

// Len returns the number of sprites packed into the atlas.
func (a *Atlas) Len() int { return len(a.UV) }

// atlasLayout computes the near-square grid for n sprites: columns is
// the ceiling square root, rows whatever is needed to hold the rest.
func atlasLayout(n int) (cols, rows int) {
	if n <= 0 {
		return 0, 0
	}
	cols = int(math.Ceil(math.Sqrt(float64(n))))
	rows = (n + cols - 1) / cols
	return cols, rows
}

// BuildAtlas packs the palette's sprites into a single image and
// computes the UV and statistics tables. maxTexture bounds the pixel
// dimensions of the composite; pass 0 to use DefaultMaxTextureSize.
//
// Building is a pure function of the palette contents. Calling it twice
// on an unchanged palette yields equal layouts, UV tables and
// statistics.
func BuildAtlas(p *Palette, maxTexture int) (*Atlas, error) {
	if p.Len() == 0 {
		return nil, ErrEmptyPalette
	}
	if maxTexture <= 0 {
		maxTexture = DefaultMaxTextureSize
	}

	sprites := p.Sprites()
	n := len(sprites)
	cols, rows := atlasLayout(n)
	sw, sh := p.SpriteSize()
	width := cols * sw
	height := rows * sh
	if width > maxTexture || height > maxTexture {
		return nil, &AtlasTooLargeError{Width: width, Height: height, Max: maxTexture}
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	uv := make([]UVRect, n)
	stats := make([]SpriteStats, n)

	for i, sp := range sprites {
		col := i % cols
		row := i / cols
		x0 := col * sw
		y0 := row * sh
		dst := image.Rect(x0, y0, x0+sw, y0+sh)
		draw.Draw(img, dst, sp.Pix, sp.Pix.Bounds().Min, draw.Src)

		uv[i] = UVRect{
			U0: float32(x0) / float32(width),
			V0: float32(y0) / float32(height),
			U1: float32(x0+sw) / float32(width),
			V1: float32(y0+sh) / float32(height),
		}
		stats[i] = spriteStats(sp.Pix)
	}

	log.WithFields(log.Fields{
		"sprites": n,
		"cols":    cols,
		"rows":    rows,
		"width":   width,
		"height":  height,
	}).Debug("atlas built")

	return &Atlas{
		Image:      img,
		Cols:       cols,
		Rows:       rows,
		SpriteW:    sw,
		SpriteH:    sh,
		UV:         uv,
		Stats:      stats,
		Generation: p.Generation(),
	}, nil
}

// spriteStats averages the color channels of every pixel with nonzero
// alpha. Alpha weights the contribution so a half-covered edge pixel
// counts half as much as an opaque one.
func spriteStats(img *image.RGBA) SpriteStats {
	var sumR, sumG, sumB, sumW float64
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[(y-b.Min.Y)*img.Stride:]
		for x := 0; x < b.Dx(); x++ {
			px := row[x*4 : x*4+4]
			a := px[3]
			if a == 0 {
				continue
			}
			w := float64(a) / 255.0
			sumR += float64(px[0]) * w
			sumG += float64(px[1]) * w
			sumB += float64(px[2]) * w
			sumW += w
		}
	}
	if sumW == 0 {
		return SpriteStats{}
	}
	r := sumR / sumW
	g := sumG / sumW
	bb := sumB / sumW
	return SpriteStats{
		R:         r,
		G:         g,
		B:         bb,
		Luminance: lumaR*r + lumaG*g + lumaB*bb,
		Valid:     true,
	}
}
