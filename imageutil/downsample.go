package imageutil

import (
	"image"

	"github.com/anthonynsimon/bild/transform"
)

// Downsample shrinks src to exactly width by height pixels with linear
// filtering, so each output pixel is the blended color of the source
// region one grid cell covers. mirror flips the result horizontally,
// which live camera feeds use to read as a mirror.
func Downsample(src image.Image, width, height int, mirror bool) *image.RGBA {
	small := transform.Resize(src, width, height, transform.Linear)
	if mirror {
		small = transform.FlipH(small)
	}
	return small
}
