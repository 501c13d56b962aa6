package imageutil

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// ErrSourceClosed is returned by Next once a source has no more frames
// to give: the camera was unplugged, the video could not be rewound, or
// Close was called.
var ErrSourceClosed = errors.New("frame source closed")

// Source yields frames for the mosaic pipeline. Next blocks until a
// frame is available; the returned image is only valid until the next
// call. Mirrored reports whether frames should be flipped horizontally
// when displayed.
type Source interface {
	Next() (*image.RGBA, error)
	Mirrored() bool
	Close() error
}

// CameraSource pulls live frames from a capture device. Camera frames
// are mirrored so the on-screen mosaic moves the way a mirror does.
type CameraSource struct {
	cap    *gocv.VideoCapture
	mat    gocv.Mat
	closed bool
}

// OpenCamera opens capture device deviceID (0 is the default camera).
func OpenCamera(deviceID int) (*CameraSource, error) {
	cap, err := gocv.OpenVideoCapture(deviceID)
	if err != nil {
		return nil, fmt.Errorf("open camera %d: %w", deviceID, err)
	}
	return &CameraSource{cap: cap, mat: gocv.NewMat()}, nil
}

func (c *CameraSource) Next() (*image.RGBA, error) {
	if c.closed {
		return nil, ErrSourceClosed
	}
	if ok := c.cap.Read(&c.mat); !ok || c.mat.Empty() {
		return nil, ErrSourceClosed
	}
	return MatToRGBA(c.mat)
}

func (c *CameraSource) Mirrored() bool { return true }

func (c *CameraSource) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.mat.Close()
	return c.cap.Close()
}

// VideoSource pulls frames from a video file, rewinding to the first
// frame when it reaches the end so playback loops.
type VideoSource struct {
	cap    *gocv.VideoCapture
	mat    gocv.Mat
	closed bool
}

// OpenVideo opens the video file at path.
func OpenVideo(path string) (*VideoSource, error) {
	cap, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("open video %s: %w", path, err)
	}
	return &VideoSource{cap: cap, mat: gocv.NewMat()}, nil
}

func (v *VideoSource) Next() (*image.RGBA, error) {
	if v.closed {
		return nil, ErrSourceClosed
	}
	if ok := v.cap.Read(&v.mat); !ok || v.mat.Empty() {
		// End of stream; rewind and try once more.
		v.cap.Set(gocv.VideoCapturePosFrames, 0)
		if ok := v.cap.Read(&v.mat); !ok || v.mat.Empty() {
			return nil, ErrSourceClosed
		}
	}
	return MatToRGBA(v.mat)
}

func (v *VideoSource) Mirrored() bool { return false }

func (v *VideoSource) Close() error {
	if v.closed {
		return nil
	}
	v.closed = true
	v.mat.Close()
	return v.cap.Close()
}

// ImageSource serves a single still image as an endless frame stream.
type ImageSource struct {
	img    *image.RGBA
	closed bool
}

// OpenImage loads the image at path into a still-frame source.
func OpenImage(path string) (*ImageSource, error) {
	img, err := LoadImage(path)
	if err != nil {
		return nil, err
	}
	return &ImageSource{img: img}, nil
}

// NewImageSource wraps an already-decoded image.
func NewImageSource(img image.Image) *ImageSource {
	return &ImageSource{img: AsRGBA(img)}
}

func (s *ImageSource) Next() (*image.RGBA, error) {
	if s.closed {
		return nil, ErrSourceClosed
	}
	return s.img, nil
}

func (s *ImageSource) Mirrored() bool { return false }

func (s *ImageSource) Close() error {
	s.closed = true
	return nil
}
