// Package storage retrieves model artifacts that are missing from the model
// folder.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/anime-shed/leaf-health-go/internal/catalog"
)

// ErrArtifactNotFound is returned when the remote store has no such artifact.
var ErrArtifactNotFound = errors.New("artifact not found in remote store")

// ArtifactSource fetches desc's artifact to desc.ArtifactPath.
type ArtifactSource interface {
	FetchArtifact(ctx context.Context, desc catalog.Descriptor) error
	Name() string
}

// LocalArtifactSource expects artifacts to be provisioned on disk already.
type LocalArtifactSource struct{}

func (LocalArtifactSource) Name() string { return "local" }

func (LocalArtifactSource) FetchArtifact(_ context.Context, desc catalog.Descriptor) error {
	return fmt.Errorf("%w: %s", ErrArtifactNotFound, desc.ArtifactPath)
}

// artifactName is the remote object name for desc.
func artifactName(desc catalog.Descriptor) string {
	return filepath.Base(desc.ArtifactPath)
}

// writeArtifact streams r into a temporary file next to dest and renames it
// into place, so a partial download is never picked up by the loader.
func writeArtifact(dest string, write func(f *os.File) error) error {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create model folder: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dest)+".*.part")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp artifact: %w", err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		return fmt.Errorf("install artifact: %w", err)
	}
	return nil
}

func copyTo(r io.Reader) func(f *os.File) error {
	return func(f *os.File) error {
		if _, err := io.Copy(f, r); err != nil {
			return fmt.Errorf("write artifact: %w", err)
		}
		return nil
	}
}
