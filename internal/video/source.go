package video

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// FrameSource yields decoded frames by absolute frame index.
type FrameSource interface {
	FPS() float64
	TotalFrames() int
	// FrameAt seeks to the given index and decodes one frame. Seeking
	// directly instead of decode-and-discard trades frame accuracy on some
	// long-GOP codecs for speed.
	FrameAt(idx int) (image.Image, error)
	Close() error
}

// Capture is a gocv-backed FrameSource over a video file.
type Capture struct {
	cap   *gocv.VideoCapture
	fps   float64
	total int
}

// OpenCapture opens a video file for frame extraction.
func OpenCapture(path string) (*Capture, error) {
	cap, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not open video file: %w", err)
	}

	fps := cap.Get(gocv.VideoCaptureFPS)
	if fps <= 0 {
		fps = 25.0
	}
	total := int(cap.Get(gocv.VideoCaptureFrameCount))

	return &Capture{cap: cap, fps: fps, total: total}, nil
}

// FPS returns the container-reported frame rate.
func (c *Capture) FPS() float64 { return c.fps }

// TotalFrames returns the container-reported frame count.
func (c *Capture) TotalFrames() int { return c.total }

// FrameAt seeks to the frame index and decodes it.
func (c *Capture) FrameAt(idx int) (image.Image, error) {
	c.cap.Set(gocv.VideoCapturePosFrames, float64(idx))

	mat := gocv.NewMat()
	defer func() { _ = mat.Close() }()

	if ok := c.cap.Read(&mat); !ok || mat.Empty() {
		return nil, fmt.Errorf("could not read frame %d", idx)
	}
	img, err := mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("decode frame %d: %w", idx, err)
	}
	return img, nil
}

// Close releases the capture handle.
func (c *Capture) Close() error {
	return c.cap.Close()
}
