package imageutil

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// MatToRGBA converts an OpenCV Mat to an *image.RGBA. The Mat's pixel
// data is copied; the Mat can be reused or closed afterwards.
func MatToRGBA(mat gocv.Mat) (*image.RGBA, error) {
	img, err := mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert mat: %w", err)
	}
	return AsRGBA(img), nil
}
