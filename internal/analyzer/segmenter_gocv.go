//go:build gocv
// +build gocv

package analyzer

import (
	"image"
	"image/draw"

	"gocv.io/x/gocv"
)

// GoCVSegmenter runs the same masks through OpenCV.
type GoCVSegmenter struct {
	opts HeuristicOptions
}

// NewGoCVSegmenter returns the OpenCV-backed segmenter.
func NewGoCVSegmenter(opts HeuristicOptions) (Segmenter, error) {
	return &GoCVSegmenter{opts: opts}, nil
}

func (s *GoCVSegmenter) Name() string {
	return BackendGoCV
}

func (s *GoCVSegmenter) Segment(img image.Image) (Segmentation, error) {
	if img == nil {
		return Segmentation{}, ErrEmptyImage
	}
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width < kernelSize || height < kernelSize {
		return Segmentation{}, ErrImageTooSmall
	}

	hsv, err := toHSVMat(img)
	if err != nil {
		return Segmentation{}, err
	}
	defer hsv.Close()

	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Point{X: kernelSize, Y: kernelSize})
	defer kernel.Close()

	green := inRange(hsv, s.opts.Green)
	defer green.Close()
	greenOpened := gocv.NewMat()
	defer greenOpened.Close()
	greenClosed := gocv.NewMat()
	defer greenClosed.Close()
	gocv.MorphologyEx(green, &greenOpened, gocv.MorphOpen, kernel)
	gocv.MorphologyEx(greenOpened, &greenClosed, gocv.MorphClose, kernel)

	brown := inRange(hsv, s.opts.Brown)
	defer brown.Close()
	yellow := inRange(hsv, s.opts.Yellow)
	defer yellow.Close()
	dark := inRange(hsv, s.opts.Dark)
	defer dark.Close()

	lesions := gocv.NewMat()
	defer lesions.Close()
	gocv.BitwiseOr(brown, yellow, &lesions)
	gocv.BitwiseOr(lesions, dark, &lesions)

	lesionsOpened := gocv.NewMat()
	defer lesionsOpened.Close()
	gocv.MorphologyEx(lesions, &lesionsOpened, gocv.MorphOpen, kernel)

	return Segmentation{
		Width:          width,
		Height:         height,
		GreenPixels:    gocv.CountNonZero(greenClosed),
		DiseasedPixels: gocv.CountNonZero(lesionsOpened),
	}, nil
}

func toHSVMat(img image.Image) (gocv.Mat, error) {
	bounds := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || bounds.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	}

	mat, err := gocv.NewMatFromBytes(rgba.Bounds().Dy(), rgba.Bounds().Dx(), gocv.MatTypeCV8UC4, rgba.Pix)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer mat.Close()

	bgr := gocv.NewMat()
	defer bgr.Close()
	gocv.CvtColor(mat, &bgr, gocv.ColorRGBAToBGR)

	hsv := gocv.NewMat()
	gocv.CvtColor(bgr, &hsv, gocv.ColorBGRToHSV)
	return hsv, nil
}

func inRange(hsv gocv.Mat, r HSVRange) gocv.Mat {
	mask := gocv.NewMat()
	lower := gocv.NewScalar(float64(r.Lower[0]), float64(r.Lower[1]), float64(r.Lower[2]), 0)
	upper := gocv.NewScalar(float64(r.Upper[0]), float64(r.Upper[1]), float64(r.Upper[2]), 0)
	gocv.InRangeWithScalar(hsv, lower, upper, &mask)
	return mask
}
