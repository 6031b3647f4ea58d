package repository

import (
	"context"

	"github.com/anime-shed/leaf-health-go/pkg/models"
)

// AnalysisRepository defines the interface for the analysis audit log
type AnalysisRepository interface {
	// SaveAnalysis stores a record, assigning an ID and timestamp when unset
	SaveAnalysis(ctx context.Context, record *models.AnalysisRecord) error

	// GetAnalysis retrieves a stored record
	GetAnalysis(ctx context.Context, id string) (*models.AnalysisRecord, error)

	// ListRecent returns up to limit records, newest first
	ListRecent(ctx context.Context, limit int) ([]*models.AnalysisRecord, error)

	Close() error
}

// UploadStore stages uploaded images on disk for the duration of a request.
type UploadStore interface {
	// Stage writes data under name and returns its path plus a cleanup func
	// that removes it. cleanup is safe to call more than once.
	Stage(ctx context.Context, name string, data []byte) (path string, cleanup func(), err error)
}
