package spritegrid

import (
	"math"
)

// RGB represents a color in the RGB color space with 8-bit channels,
// where each channel ranges from 0 to 255. Grid cells and sprite
// statistics are compared in this space using plain Euclidean distance;
// no perceptual color space conversion is performed.
type RGB struct {
	R, G, B uint8
}

// Luma coefficients for the ITU-R BT.601 weighted luminance sum.
const (
	lumaR = 0.299
	lumaG = 0.587
	lumaB = 0.114
)

// ColorDistance calculates the Euclidean distance between two RGB colors
// in the RGB color space. The function returns the distance as a floating-
// point number.
func (c RGB) ColorDistance(other RGB) float64 {
	dr := int(c.R) - int(other.R)
	dg := int(c.G) - int(other.G)
	db := int(c.B) - int(other.B)
	return math.Sqrt(float64(dr*dr + dg*dg + db*db))
}

// Luminance returns the weighted brightness of the color in the range
// [0, 255], using the 0.299/0.587/0.114 channel weights.
func (c RGB) Luminance() float64 {
	return lumaR*float64(c.R) + lumaG*float64(c.G) + lumaB*float64(c.B)
}

// ToUint32 packs an RGB color into a 32-bit unsigned integer (0xRRGGBB).
func (c RGB) ToUint32() uint32 {
	return uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
}

// RGBFromUint32 unpacks a 32-bit unsigned integer (0xRRGGBB) to an RGB color.
func RGBFromUint32(color uint32) RGB {
	return RGB{
		R: uint8(color >> 16),
		G: uint8(color >> 8),
		B: uint8(color),
	}
}

// snapChannel rounds a single 8-bit channel to the nearest multiple of
// step and clamps the result to [0, 255].
func snapChannel(v uint8, step float64) uint8 {
	snapped := math.Round(float64(v)/step) * step
	if snapped < 0 {
		return 0
	}
	if snapped > 255 {
		return 255
	}
	return uint8(snapped)
}

// PosterizeLevels computes the number of quantization levels for a
// palette of spriteCount entries at the given threshold multiplier.
// The result is never below 2: one level would collapse every channel
// to a single value and make selection meaningless.
func PosterizeLevels(spriteCount int, threshold float64) int {
	levels := int(math.Round(float64(spriteCount) * threshold))
	if levels < 2 {
		return 2
	}
	return levels
}

// Posterize quantizes an RGB color by snapping each channel to the
// nearest multiple of the step implied by the level count. The function
// returns the quantized RGB color.
func (c RGB) Posterize(levels int) RGB {
	if levels < 2 {
		levels = 2
	}
	step := 255.0 / float64(levels-1)
	return RGB{
		R: snapChannel(c.R, step),
		G: snapChannel(c.G, step),
		B: snapChannel(c.B, step),
	}
}
