package spritegrid

import (
	"fmt"
	"image"
	"image/color"
	"os"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
)

// GlyphRenderer rasterizes single characters into sprite tiles. Each
// tile has a transparent background with the glyph drawn in the
// configured text color, so glyph sprites participate in the same
// average-color statistics as uploaded images: only the covered pixels
// count.
type GlyphRenderer struct {
	font   *truetype.Font
	width  int
	height int
	color  color.RGBA
}

// NewGlyphRenderer loads a TrueType font from path and prepares a
// renderer emitting w by h tiles.
func NewGlyphRenderer(path string, w, h int) (*GlyphRenderer, error) {
	fontBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read font: %w", err)
	}
	ttf, err := freetype.ParseFont(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	return &GlyphRenderer{
		font:   ttf,
		width:  w,
		height: h,
		color:  color.RGBA{R: 255, G: 255, B: 255, A: 255},
	}, nil
}

// SetColorHex sets the glyph fill color from a "#rrggbb" string.
func (g *GlyphRenderer) SetColorHex(hex string) error {
	c, err := colorful.Hex(hex)
	if err != nil {
		return fmt.Errorf("parse text color: %w", err)
	}
	r, gg, b := c.RGB255()
	g.color = color.RGBA{R: r, G: gg, B: b, A: 255}
	return nil
}

// Color returns the current glyph fill color.
func (g *GlyphRenderer) Color() color.RGBA { return g.color }

// Render rasterizes a single rune into a transparent-background RGBA
// tile tinted with the renderer's color.
//
// The glyph's anti-aliased coverage is kept as the alpha channel rather
// than thresholded to one bit: edge pixels at partial opacity carry
// partial weight in the sprite's average color, which keeps thin strokes
// from vanishing after selection.
func (g *GlyphRenderer) Render(r rune) (*image.RGBA, error) {
	face := truetype.NewFace(g.font, &truetype.Options{
		Size:    float64(g.height),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	defer face.Close()

	// Coverage mask first; tinting happens after rasterization.
	mask := image.NewAlpha(image.Rect(0, 0, g.width, g.height))

	ctx := freetype.NewContext()
	ctx.SetDPI(72)
	ctx.SetFont(g.font)
	ctx.SetFontSize(float64(g.height))
	ctx.SetClip(mask.Bounds())
	ctx.SetDst(mask)
	ctx.SetSrc(image.White)
	ctx.SetHinting(font.HintingFull)

	// Baseline from font metrics so descenders are not clipped and the
	// glyph sits vertically centered in the tile.
	metrics := face.Metrics()
	ascent := int(metrics.Ascent >> 6)
	descent := int(metrics.Descent >> 6)
	baselineY := (g.height + ascent - descent) / 2

	if _, err := ctx.DrawString(string(r), freetype.Pt(0, baselineY)); err != nil {
		return nil, fmt.Errorf("draw glyph %q: %w", r, err)
	}

	tile := image.NewRGBA(image.Rect(0, 0, g.width, g.height))
	for y := 0; y < g.height; y++ {
		for x := 0; x < g.width; x++ {
			a := mask.AlphaAt(x, y).A
			if a == 0 {
				continue
			}
			tile.SetRGBA(x, y, color.RGBA{
				R: g.color.R,
				G: g.color.G,
				B: g.color.B,
				A: a,
			})
		}
	}
	return tile, nil
}

// RenderString rasterizes each rune in s to its own tile, in order.
// Used by the CLI glyph-palette generator.
func (g *GlyphRenderer) RenderString(s string) ([]*image.RGBA, error) {
	tiles := make([]*image.RGBA, 0, len(s))
	for _, r := range s {
		tile, err := g.Render(r)
		if err != nil {
			return nil, err
		}
		tiles = append(tiles, tile)
	}
	return tiles, nil
}
