package analyzer

import (
	"image"
	"image/color"
	"math"
	"runtime"
	"sync"
)

// rgbToHSV8 converts 8-bit RGB to OpenCV's 8-bit HSV: H is degrees/2 in
// [0,180), S and V are in [0,255]. Ties on the maximum channel resolve
// red, then green, then blue.
func rgbToHSV8(r, g, b uint8) (h, s, v uint8) {
	rf, gf, bf := float64(r), float64(g), float64(b)
	maxC := math.Max(rf, math.Max(gf, bf))
	minC := math.Min(rf, math.Min(gf, bf))
	diff := maxC - minC

	v = r
	if g > v {
		v = g
	}
	if b > v {
		v = b
	}
	if maxC == 0 {
		return 0, 0, v
	}
	s = uint8(math.Round(diff * 255 / maxC))
	if diff == 0 {
		return 0, s, v
	}

	var hue float64
	switch maxC {
	case rf:
		hue = 60 * (gf - bf) / diff
	case gf:
		hue = 120 + 60*(bf-rf)/diff
	default:
		hue = 240 + 60*(rf-gf)/diff
	}
	if hue < 0 {
		hue += 360
	}
	h8 := math.Round(hue / 2)
	if h8 >= 180 {
		h8 -= 180
	}
	return uint8(h8), s, v
}

// straightRGB returns the non-premultiplied 8-bit colour channels, ignoring
// alpha the way a colour image decoder does.
func straightRGB(c color.Color) (uint8, uint8, uint8) {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return n.R, n.G, n.B
}

// hsvSegmenter builds leaf masks in pure Go.
type hsvSegmenter struct {
	opts HeuristicOptions
}

// NewHSVSegmenter returns the pure-Go segmentation backend.
func NewHSVSegmenter(opts HeuristicOptions) Segmenter {
	return &hsvSegmenter{opts: opts}
}

func (s *hsvSegmenter) Name() string {
	return BackendNative
}

func (s *hsvSegmenter) Segment(img image.Image) (Segmentation, error) {
	if img == nil {
		return Segmentation{}, ErrEmptyImage
	}
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width < kernelSize || height < kernelSize {
		return Segmentation{}, ErrImageTooSmall
	}

	green := newMask(width, height)
	diseased := newMask(width, height)

	numWorkers := s.opts.MaxWorkers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	if height < numWorkers {
		numWorkers = height
	}
	rowsPerWorker := (height + numWorkers - 1) / numWorkers

	// Strips write disjoint rows of both masks.
	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		startRow := i * rowsPerWorker
		endRow := startRow + rowsPerWorker
		if endRow > height {
			endRow = height
		}
		if startRow >= endRow {
			break
		}
		wg.Add(1)
		go func(startRow, endRow int) {
			defer wg.Done()
			for y := startRow; y < endRow; y++ {
				row := y * width
				for x := 0; x < width; x++ {
					r, g, b := straightRGB(img.At(bounds.Min.X+x, bounds.Min.Y+y))
					h, sat, v := rgbToHSV8(r, g, b)
					if s.opts.Green.Contains(h, sat, v) {
						green.Pix[row+x] = 1
					}
					if s.opts.diseased(h, sat, v) {
						diseased.Pix[row+x] = 1
					}
				}
			}
		}(startRow, endRow)
	}
	wg.Wait()

	green = green.Open().Close()
	diseased = diseased.Open()

	return Segmentation{
		Width:          width,
		Height:         height,
		GreenPixels:    green.CountNonZero(),
		DiseasedPixels: diseased.CountNonZero(),
	}, nil
}
