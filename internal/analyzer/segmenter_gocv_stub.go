//go:build !gocv
// +build !gocv

package analyzer

import "errors"

// NewGoCVSegmenter returns an error when built without the gocv tag.
func NewGoCVSegmenter(opts HeuristicOptions) (Segmenter, error) {
	_ = opts
	return nil, errors.New("gocv build tag is not enabled")
}
