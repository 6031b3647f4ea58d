package factory

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/anime-shed/leaf-health-go/internal/analyzer"
	"github.com/anime-shed/leaf-health-go/internal/config"
	"github.com/anime-shed/leaf-health-go/internal/logger"
	"github.com/anime-shed/leaf-health-go/internal/repository"
	"github.com/anime-shed/leaf-health-go/internal/storage"
)

// SourceType represents the artifact storage backends
type SourceType string

const (
	// HTTPSource downloads artifacts from ARTIFACT_BASE_URL
	HTTPSource SourceType = "http"
	// AzureSource downloads artifacts from a blob container
	AzureSource SourceType = "azure"
	// LocalSource expects artifacts on disk
	LocalSource SourceType = "local"
)

// CreateSegmenter builds the configured heuristic backend. A gocv request in
// a binary built without OpenCV falls back to the native segmenter.
func CreateSegmenter(backend string, opts analyzer.HeuristicOptions) analyzer.Segmenter {
	seg, err := analyzer.NewSegmenter(backend, opts)
	if err != nil {
		logger.WithError(err).WithField("backend", backend).
			Warn("Heuristic backend unavailable, falling back to native")
		return analyzer.NewHSVSegmenter(opts)
	}
	return seg
}

// CreateArtifactSource creates the storage backend that fills in missing
// model artifacts.
func CreateArtifactSource(cfg *config.Config) (storage.ArtifactSource, error) {
	switch SourceType(strings.ToLower(cfg.ArtifactSource)) {
	case LocalSource, "":
		return storage.LocalArtifactSource{}, nil
	case HTTPSource:
		return storage.NewHTTPArtifactSource(cfg.ArtifactBaseURL, cfg.ArtifactFetchTimeout)
	case AzureSource:
		return storage.NewAzureArtifactSource(cfg.AzureStorageAccount, cfg.AzureStorageKey, cfg.AzureModelContainer)
	default:
		return nil, fmt.Errorf("unsupported artifact source: %s", cfg.ArtifactSource)
	}
}

// CreateHistoryRepository opens the audit log. It returns nil, nil when
// history is disabled.
func CreateHistoryRepository(cfg *config.Config) (repository.AnalysisRepository, error) {
	if !cfg.HistoryEnabled() {
		return nil, nil
	}
	repo, err := repository.Open(strings.TrimSpace(cfg.HistoryDSN))
	if err != nil {
		return nil, fmt.Errorf("open analysis history: %w", err)
	}
	logger.WithFields(logrus.Fields{
		"backend": fmt.Sprintf("%T", repo),
	}).Info("Analysis history enabled")
	return repo, nil
}
