// Package imageutil provides frame acquisition and preprocessing for
// the mosaic pipeline: loading and saving still images, downsampling
// frames to grid resolution, and pulling frames from cameras and video
// files through OpenCV.
package imageutil

import (
	"image"
	"image/draw"
)

// AsRGBA returns img as an *image.RGBA with zero-origin bounds, copying
// only when the underlying representation differs.
func AsRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// Clone returns a deep copy of img. Rows are copied individually so
// images with a wide backing stride, such as SubImage views, clone
// correctly.
func Clone(img *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(img.Rect)
	rowLen := 4 * img.Rect.Dx()
	for y := img.Rect.Min.Y; y < img.Rect.Max.Y; y++ {
		so := img.PixOffset(img.Rect.Min.X, y)
		do := dst.PixOffset(dst.Rect.Min.X, y)
		copy(dst.Pix[do:do+rowLen], img.Pix[so:so+rowLen])
	}
	return dst
}
