// Package inference runs classifiers over decoded images.
package inference

import (
	"context"
	"image"
)

// Predictor is a loaded classifier. Implementations must be safe for
// concurrent use.
type Predictor interface {
	// Predict returns one score per class, in the descriptor's class order.
	Predict(ctx context.Context, img image.Image) ([]float32, error)
	// InputShape is the input tensor shape the artifact declares. Dynamic
	// dimensions are reported as -1.
	InputShape() []int64
	Close() error
}

// PredictorFunc adapts a plain function to Predictor. It is used by tests and
// by the CLI's dry-run mode.
type PredictorFunc func(ctx context.Context, img image.Image) ([]float32, error)

func (f PredictorFunc) Predict(ctx context.Context, img image.Image) ([]float32, error) {
	return f(ctx, img)
}

func (f PredictorFunc) InputShape() []int64 { return nil }

func (f PredictorFunc) Close() error { return nil }
