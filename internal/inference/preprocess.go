package inference

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/nfnt/resize"

	"github.com/anime-shed/leaf-health-go/internal/catalog"
)

// Flatten composites img over a white background, resizes it to size with
// Lanczos resampling and returns RGB values scaled to [0,1] in the requested
// tensor layout. The batch dimension is implicit (always 1).
func Flatten(img image.Image, size catalog.Size, layout string) ([]float32, error) {
	if img == nil {
		return nil, fmt.Errorf("nil image")
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("empty image %dx%d", b.Dx(), b.Dy())
	}
	if size.Width <= 0 || size.Height <= 0 {
		return nil, fmt.Errorf("invalid target size %dx%d", size.Width, size.Height)
	}

	flat := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(flat, flat.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(flat, flat.Bounds(), img, b.Min, draw.Over)

	resized := resize.Resize(uint(size.Width), uint(size.Height), flat, resize.Lanczos3)

	w, h := size.Width, size.Height
	plane := w * h
	out := make([]float32, plane*3)
	rb := resized.Bounds()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := resized.At(rb.Min.X+x, rb.Min.Y+y).RGBA()
			rf := float32(r) / 65535.0
			gf := float32(g) / 65535.0
			bf := float32(bl) / 65535.0

			switch layout {
			case catalog.LayoutNCHW:
				i := y*w + x
				out[i] = rf
				out[plane+i] = gf
				out[2*plane+i] = bf
			default:
				i := (y*w + x) * 3
				out[i] = rf
				out[i+1] = gf
				out[i+2] = bf
			}
		}
	}
	return out, nil
}

// ExpectedInputShape is the batch-of-one tensor shape a descriptor implies.
func ExpectedInputShape(d catalog.Descriptor) []int64 {
	h, w, c := int64(d.InputSize.Height), int64(d.InputSize.Width), int64(d.Channels)
	if d.Layout == catalog.LayoutNCHW {
		return []int64{1, c, h, w}
	}
	return []int64{1, h, w, c}
}

// ShapeMatches compares a declared shape against the expected one. Dynamic
// dimensions (<= 0) in the declared shape match anything.
func ShapeMatches(expected, declared []int64) bool {
	if len(expected) != len(declared) {
		return false
	}
	for i := range expected {
		if declared[i] > 0 && declared[i] != expected[i] {
			return false
		}
	}
	return true
}
