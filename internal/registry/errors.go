package registry

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownModel indicates the id is not in the catalog
	ErrUnknownModel = errors.New("unknown model")

	// ErrArtifactMissing indicates the model file does not exist
	ErrArtifactMissing = errors.New("model artifact missing")

	// ErrNotAvailable indicates the model is known but not loaded
	ErrNotAvailable = errors.New("model not available")
)

// LoadError wraps a failure to open or parse a model artifact.
type LoadError struct {
	ModelID string
	Path    string
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load model %s from %s: %v", e.ModelID, e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
