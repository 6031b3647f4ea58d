package inference

import (
	"context"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/anime-shed/leaf-health-go/internal/catalog"
)

func uniform(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestFlatten_NHWC(t *testing.T) {
	img := uniform(10, 6, color.RGBA{255, 0, 51, 255})
	out, err := Flatten(img, catalog.Size{Width: 4, Height: 3}, catalog.LayoutNHWC)
	if err != nil {
		t.Fatalf("Flatten() error = %v", err)
	}
	if len(out) != 4*3*3 {
		t.Fatalf("len = %d, want %d", len(out), 36)
	}
	for i := 0; i < len(out); i += 3 {
		if math.Abs(float64(out[i])-1.0) > 0.01 || out[i+1] > 0.01 || math.Abs(float64(out[i+2])-0.2) > 0.01 {
			t.Fatalf("pixel %d = %v, want ~[1 0 0.2]", i/3, out[i:i+3])
		}
	}
}

func TestFlatten_NCHW(t *testing.T) {
	img := uniform(8, 8, color.RGBA{0, 255, 0, 255})
	out, err := Flatten(img, catalog.Size{Width: 2, Height: 2}, catalog.LayoutNCHW)
	if err != nil {
		t.Fatalf("Flatten() error = %v", err)
	}
	// Planes: R, G, B each of 4 values.
	for i := 0; i < 4; i++ {
		if out[i] > 0.01 {
			t.Errorf("R[%d] = %v, want 0", i, out[i])
		}
		if math.Abs(float64(out[4+i])-1.0) > 0.01 {
			t.Errorf("G[%d] = %v, want 1", i, out[4+i])
		}
	}
}

func TestFlatten_TransparentBecomesWhite(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4)) // fully transparent
	out, err := Flatten(img, catalog.Size{Width: 2, Height: 2}, catalog.LayoutNHWC)
	if err != nil {
		t.Fatalf("Flatten() error = %v", err)
	}
	for i, v := range out {
		if math.Abs(float64(v)-1.0) > 0.01 {
			t.Fatalf("value %d = %v, want 1 (white background)", i, v)
		}
	}
}

func TestFlatten_Invalid(t *testing.T) {
	if _, err := Flatten(nil, catalog.Size{Width: 2, Height: 2}, catalog.LayoutNHWC); err == nil {
		t.Error("expected error for nil image")
	}
	empty := image.NewRGBA(image.Rect(0, 0, 0, 0))
	if _, err := Flatten(empty, catalog.Size{Width: 2, Height: 2}, catalog.LayoutNHWC); err == nil {
		t.Error("expected error for empty image")
	}
	if _, err := Flatten(uniform(2, 2, color.Black), catalog.Size{}, catalog.LayoutNHWC); err == nil {
		t.Error("expected error for zero target size")
	}
}

func TestExpectedInputShape(t *testing.T) {
	d := catalog.Descriptor{InputSize: catalog.Size{Width: 224, Height: 200}, Channels: 3, Layout: catalog.LayoutNHWC}
	if got := ExpectedInputShape(d); !equalShape(got, []int64{1, 200, 224, 3}) {
		t.Errorf("NHWC shape = %v", got)
	}
	d.Layout = catalog.LayoutNCHW
	if got := ExpectedInputShape(d); !equalShape(got, []int64{1, 3, 200, 224}) {
		t.Errorf("NCHW shape = %v", got)
	}
}

func TestShapeMatches(t *testing.T) {
	tests := []struct {
		name     string
		declared []int64
		want     bool
	}{
		{"exact", []int64{1, 224, 224, 3}, true},
		{"dynamic batch", []int64{-1, 224, 224, 3}, true},
		{"wrong size", []int64{1, 256, 256, 3}, false},
		{"wrong rank", []int64{224, 224, 3}, false},
	}
	expected := []int64{1, 224, 224, 3}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShapeMatches(expected, tt.declared); got != tt.want {
				t.Errorf("ShapeMatches(%v) = %v, want %v", tt.declared, got, tt.want)
			}
		})
	}
}

func TestPredictorFunc(t *testing.T) {
	p := PredictorFunc(func(ctx context.Context, img image.Image) ([]float32, error) {
		return []float32{0.2, 0.8}, nil
	})
	out, err := p.Predict(context.Background(), uniform(1, 1, color.Black))
	if err != nil || len(out) != 2 {
		t.Fatalf("Predict() = %v, %v", out, err)
	}
	if p.InputShape() != nil {
		t.Error("PredictorFunc should not declare a shape")
	}
	if err := p.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func equalShape(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
