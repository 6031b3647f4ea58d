package container

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/anime-shed/leaf-health-go/internal/analyzer"
	"github.com/anime-shed/leaf-health-go/internal/catalog"
	"github.com/anime-shed/leaf-health-go/internal/config"
	"github.com/anime-shed/leaf-health-go/internal/factory"
	"github.com/anime-shed/leaf-health-go/internal/inference"
	"github.com/anime-shed/leaf-health-go/internal/logger"
	"github.com/anime-shed/leaf-health-go/internal/observer"
	"github.com/anime-shed/leaf-health-go/internal/recommendation"
	"github.com/anime-shed/leaf-health-go/internal/registry"
	"github.com/anime-shed/leaf-health-go/internal/repository"
	"github.com/anime-shed/leaf-health-go/internal/service"
	"github.com/anime-shed/leaf-health-go/internal/storage"
	"github.com/anime-shed/leaf-health-go/internal/transport"
	"github.com/anime-shed/leaf-health-go/pkg/validation"
)

// Container holds all application dependencies
type Container struct {
	config     *config.Config
	registry   *registry.Registry
	pool       *analyzer.WorkerPool
	events     *observer.EventPublisher
	metrics    *observer.MetricsObserver
	history    repository.AnalysisRepository
	service    *service.AnalysisService
	handler    http.Handler
	heuristics *analyzer.HeuristicAnalyzer
}

// NewContainer builds the dependency graph. Models are not loaded until
// LoadModels is called.
func NewContainer(cfg *config.Config) (*Container, error) {
	logger.SetLevel(cfg.LogLevel)

	if err := bootstrapFolders(cfg); err != nil {
		return nil, err
	}

	cat, err := catalog.Load(cfg.ModelCatalogFile, cfg.ModelFolder)
	if err != nil {
		return nil, fmt.Errorf("failed to load model catalog: %w", err)
	}
	warnMissingArtifacts(cat)

	resolver, err := recommendation.Load(cfg.TreatmentsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load treatments: %w", err)
	}

	var regOpts []registry.Option
	source, err := factory.CreateArtifactSource(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create artifact source: %w", err)
	}
	if _, local := source.(storage.LocalArtifactSource); !local {
		regOpts = append(regOpts, registry.WithArtifactFetcher(source))
	}
	reg := registry.New(cat, inference.ONNXLoader{LibraryPath: cfg.ONNXRuntimeLib}, regOpts...)

	history, err := factory.CreateHistoryRepository(cfg)
	if err != nil {
		return nil, err
	}

	uploads, err := repository.NewFileUploadStore(cfg.UploadFolder)
	if err != nil {
		return nil, err
	}

	opts := analyzer.DefaultHeuristicOptions()
	heuristics := analyzer.NewHeuristicAnalyzer(factory.CreateSegmenter(cfg.HeuristicBackend, opts), opts)
	pool := analyzer.NewWorkerPool(cfg.InferenceWorkers)
	pool.Start()

	metrics := observer.NewMetricsObserver()
	events := observer.NewEventPublisher()
	events.Subscribe(observer.NewLoggingObserver(logger.Logger))
	events.Subscribe(metrics)

	svcOpts := []service.Option{service.WithEvents(events)}
	if history != nil {
		svcOpts = append(svcOpts, service.WithHistory(history))
	}
	svc := service.NewAnalysisService(
		reg,
		heuristics,
		resolver,
		validation.NewUploadValidator(cfg.AllowedExtensions),
		pool,
		service.Options{
			DefaultModel:        cfg.DefaultModel,
			AnalysisTimeout:     cfg.AnalysisTimeout,
			TopPredictions:      cfg.TopPredictions,
			MaxPredictions:      cfg.MaxPredictions,
			PredictionThreshold: cfg.PredictionThreshold,
		},
		svcOpts...,
	)

	handler := transport.NewHandler(transport.Dependencies{
		Config:   cfg,
		Analyzer: svc,
		Registry: reg,
		Uploads:  uploads,
		Metrics:  metrics,
		Pool:     pool,
		History:  history,
		Events:   events,
	})

	logger.WithFields(logrus.Fields{
		"models":            cat.Len(),
		"heuristic_backend": heuristics.Backend(),
		"artifact_source":   source.Name(),
		"history_enabled":   history != nil,
		"inference_workers": cfg.InferenceWorkers,
	}).Info("Container initialised")

	return &Container{
		config:     cfg,
		registry:   reg,
		pool:       pool,
		events:     events,
		metrics:    metrics,
		history:    history,
		service:    svc,
		handler:    handler,
		heuristics: heuristics,
	}, nil
}

// LoadModels loads every catalog model; failures leave only that model
// unavailable.
func (c *Container) LoadModels(ctx context.Context) registry.LoadReport {
	report := c.registry.LoadAll(ctx)
	for _, id := range c.registry.Catalog().IDs() {
		event := observer.AnalysisEvent{EventType: observer.ModelLoaded, ModelID: id, Success: true}
		if err, failed := report.Failures[id]; failed {
			event.EventType = observer.ModelLoadFailed
			event.Success = false
			event.ErrorMessage = err.Error()
		}
		c.events.NotifyObservers(ctx, event)
	}
	return report
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Registry returns the model registry
func (c *Container) Registry() *registry.Registry {
	return c.registry
}

// Service returns the analysis service
func (c *Container) Service() *service.AnalysisService {
	return c.service
}

// Close drains the worker pool and releases models and the history store.
func (c *Container) Close() error {
	c.pool.Close()
	c.pool.Wait()
	c.events.Flush()

	var errs []error
	if err := c.registry.Close(); err != nil {
		errs = append(errs, err)
	}
	if c.history != nil {
		if err := c.history.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := inference.Shutdown(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func bootstrapFolders(cfg *config.Config) error {
	for _, dir := range []string{cfg.UploadFolder, cfg.ModelFolder} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create folder %s: %w", dir, err)
		}
	}
	return nil
}

func warnMissingArtifacts(cat *catalog.Catalog) {
	for _, d := range cat.Descriptors() {
		if _, err := os.Stat(d.ArtifactPath); err != nil {
			logger.WithFields(logrus.Fields{
				"model_id": d.ID,
				"path":     d.ArtifactPath,
			}).Warn("Model artifact not found")
		}
	}
}
