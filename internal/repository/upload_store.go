package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/anime-shed/leaf-health-go/internal/logger"
)

// FileUploadStore stages uploads in a local folder.
type FileUploadStore struct {
	dir string
}

// NewFileUploadStore creates dir if needed.
func NewFileUploadStore(dir string) (*FileUploadStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload folder %s: %w", dir, err)
	}
	return &FileUploadStore{dir: dir}, nil
}

// Dir returns the staging folder.
func (s *FileUploadStore) Dir() string {
	return s.dir
}

func (s *FileUploadStore) Stage(ctx context.Context, name string, data []byte) (string, func(), error) {
	if err := ctx.Err(); err != nil {
		return "", func() {}, err
	}
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", func() {}, fmt.Errorf("%w: %q", ErrInvalidUploadName, name)
	}

	// Concurrent uploads of the same file name must not clobber each other.
	f, err := os.CreateTemp(s.dir, "*_"+name)
	if err != nil {
		return "", func() {}, fmt.Errorf("stage upload: %w", err)
	}
	path := f.Name()

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				logger.WithError(err).WithField("path", path).Warn("Failed to remove staged upload")
			}
		})
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		cleanup()
		return "", func() {}, fmt.Errorf("stage upload: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", func() {}, fmt.Errorf("stage upload: %w", err)
	}
	return path, cleanup, nil
}
