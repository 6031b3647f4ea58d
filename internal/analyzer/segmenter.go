package analyzer

import (
	"errors"
	"fmt"
	"image"
	"strings"
)

var (
	ErrEmptyImage    = errors.New("image is empty")
	ErrImageTooSmall = errors.New("image is smaller than the morphology kernel")
)

// Segmentation holds pixel counts after morphological clean-up.
type Segmentation struct {
	Width          int
	Height         int
	GreenPixels    int
	DiseasedPixels int
}

// TotalPixels returns Width*Height.
func (s Segmentation) TotalPixels() int {
	return s.Width * s.Height
}

// GreenRatio is the fraction of pixels classified as live tissue.
func (s Segmentation) GreenRatio() float64 {
	if s.TotalPixels() == 0 {
		return 0
	}
	return float64(s.GreenPixels) / float64(s.TotalPixels())
}

// DiseasedRatio is the fraction of pixels classified as lesion tissue.
func (s Segmentation) DiseasedRatio() float64 {
	if s.TotalPixels() == 0 {
		return 0
	}
	return float64(s.DiseasedPixels) / float64(s.TotalPixels())
}

// Segmenter classifies leaf pixels into live and diseased tissue.
type Segmenter interface {
	Segment(img image.Image) (Segmentation, error)
	Name() string
}

// Backend names accepted by NewSegmenter.
const (
	BackendNative = "native"
	BackendGoCV   = "gocv"
)

// NewSegmenter returns the segmentation backend for name.
func NewSegmenter(name string, opts HeuristicOptions) (Segmenter, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", BackendNative:
		return NewHSVSegmenter(opts), nil
	case BackendGoCV:
		return NewGoCVSegmenter(opts)
	default:
		return nil, fmt.Errorf("unknown heuristic backend %q", name)
	}
}
