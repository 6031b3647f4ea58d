// Package service composes the registry, heuristics, prediction analysis and
// recommendations into one leaf analysis per request.
package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"strings"
	"time"

	"github.com/mdobak/go-xerrors"
	"github.com/sirupsen/logrus"

	"github.com/anime-shed/leaf-health-go/internal/analyzer"
	apperrors "github.com/anime-shed/leaf-health-go/internal/errors"
	"github.com/anime-shed/leaf-health-go/internal/logger"
	"github.com/anime-shed/leaf-health-go/internal/observer"
	"github.com/anime-shed/leaf-health-go/internal/prediction"
	"github.com/anime-shed/leaf-health-go/internal/recommendation"
	"github.com/anime-shed/leaf-health-go/internal/registry"
	"github.com/anime-shed/leaf-health-go/internal/repository"
	"github.com/anime-shed/leaf-health-go/pkg/models"
	"github.com/anime-shed/leaf-health-go/pkg/validation"
)

// AnalyzeRequest is one uploaded image.
type AnalyzeRequest struct {
	Filename string
	Data     []byte
	// ModelID defaults to Options.DefaultModel when empty.
	ModelID string
}

// ModelSource hands out classifier leases.
type ModelSource interface {
	Acquire(id string) (*registry.Lease, error)
	AvailableIDs() []string
}

// Options holds the request-independent settings.
type Options struct {
	DefaultModel        string
	AnalysisTimeout     time.Duration
	TopPredictions      bool
	MaxPredictions      int
	PredictionThreshold float64
}

// AnalysisService runs the leaf analysis pipeline.
type AnalysisService struct {
	models     ModelSource
	heuristics *analyzer.HeuristicAnalyzer
	resolver   *recommendation.Resolver
	uploads    *validation.UploadValidator
	pool       *analyzer.WorkerPool
	opts       Options

	events  observer.Subject
	history repository.AnalysisRepository
}

// Option customises an AnalysisService.
type Option func(*AnalysisService)

// WithEvents publishes lifecycle events to s.
func WithEvents(s observer.Subject) Option {
	return func(a *AnalysisService) {
		a.events = s
	}
}

// WithHistory records every successful analysis in repo.
func WithHistory(repo repository.AnalysisRepository) Option {
	return func(a *AnalysisService) {
		a.history = repo
	}
}

func NewAnalysisService(
	models ModelSource,
	heuristics *analyzer.HeuristicAnalyzer,
	resolver *recommendation.Resolver,
	uploads *validation.UploadValidator,
	pool *analyzer.WorkerPool,
	opts Options,
	options ...Option,
) *AnalysisService {
	if opts.DefaultModel == "" {
		opts.DefaultModel = "model1"
	}
	s := &AnalysisService{
		models:     models,
		heuristics: heuristics,
		resolver:   resolver,
		uploads:    uploads,
		pool:       pool,
		opts:       opts,
	}
	for _, o := range options {
		o(s)
	}
	return s
}

// Analyze assesses one leaf photograph. Every returned error is an
// *apperrors.AppError.
func (s *AnalysisService) Analyze(ctx context.Context, req AnalyzeRequest) (*models.AnalysisResult, error) {
	start := time.Now()
	modelID := strings.TrimSpace(req.ModelID)
	if modelID == "" {
		modelID = s.opts.DefaultModel
	}

	s.publish(ctx, observer.AnalysisEvent{
		EventType: observer.AnalysisStarted,
		ModelID:   modelID,
		Filename:  req.Filename,
	})

	result, err := s.analyze(ctx, req, modelID)
	elapsed := time.Since(start)
	if err != nil {
		event := observer.AnalysisEvent{
			EventType:      observer.AnalysisFailed,
			ModelID:        modelID,
			Filename:       req.Filename,
			ProcessingTime: elapsed,
			ErrorMessage:   err.Error(),
		}
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			event.ErrorType = string(appErr.Type)
		}
		s.publish(ctx, event)
		return nil, err
	}

	s.record(ctx, req.Filename, modelID, result, elapsed)
	s.publish(ctx, observer.AnalysisEvent{
		EventType:      observer.AnalysisCompleted,
		ModelID:        modelID,
		Filename:       req.Filename,
		ProcessingTime: elapsed,
		Success:        true,
		Metadata: map[string]interface{}{
			observer.MetaHealthStatus: result.HealthStatus,
			observer.MetaSeverity:     result.SeverityLevel,
		},
	})
	return result, nil
}

func (s *AnalysisService) analyze(ctx context.Context, req AnalyzeRequest, modelID string) (*models.AnalysisResult, error) {
	if strings.TrimSpace(req.Filename) == "" || len(req.Data) == 0 {
		return nil, apperrors.NewNoImageProvidedError("No image provided")
	}

	lease, err := s.models.Acquire(modelID)
	switch {
	case errors.Is(err, registry.ErrUnknownModel):
		return nil, apperrors.NewUnknownModelError(modelID, err)
	case errors.Is(err, registry.ErrNotAvailable):
		return nil, apperrors.NewModelNotAvailableError(modelID, s.models.AvailableIDs(), err)
	case err != nil:
		return nil, s.internal("Failed to acquire model", err)
	}
	// An abandoned inference keeps its lease until the job finishes.
	ownsLease := true
	defer func() {
		if ownsLease {
			lease.Release()
		}
	}()

	if err := s.uploads.ValidateFilename(req.Filename); err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(req.Data))
	if err != nil {
		return nil, apperrors.NewImageDecodeFailedError(err)
	}

	vector, handedOff, err := s.predict(ctx, lease, img)
	ownsLease = !handedOff
	if err != nil {
		return nil, err
	}

	desc := lease.Descriptor
	est := s.heuristics.Estimate(img)
	assessment, err := prediction.Analyze(vector, desc.Classes, &est.Severity)
	if err != nil {
		return nil, s.internal("Prediction output does not match the model's classes", err)
	}

	logger.WithFields(logrus.Fields{
		"model_id":        modelID,
		"predicted_class": assessment.Top.Class,
		"confidence":      assessment.Top.Confidence,
		"entropy":         assessment.Entropy,
		"heuristic":       est,
	}).Debug("Prediction analysed")

	result := &models.AnalysisResult{
		HealthStatus:     assessment.HealthStatus,
		DamagePercentage: assessment.DamagePercentage,
		SeverityLevel:    assessment.SeverityLevel,
		LeafAreaIndex:    models.FormatLeafAreaIndex(est.LeafAreaIndex),
		DetectedDisease:  assessment.DiseaseName,
		Recommendation:   s.resolver.Resolve(assessment.Top.Class),
		Confidence:       models.ConfidencePercent(assessment.Top.Confidence),
		ModelUsed:        desc.Name,
		PredictedClass:   assessment.Top.Class,
	}
	if s.opts.TopPredictions {
		for _, r := range prediction.TopPredictions(vector, desc.Classes, s.opts.MaxPredictions, s.opts.PredictionThreshold) {
			result.TopPredictions = append(result.TopPredictions, models.RankedPrediction{
				Class:      r.Class,
				Confidence: models.ConfidencePercent(r.Confidence),
			})
		}
	}
	return result, nil
}

// predict runs inference on the worker pool under the analysis timeout. When
// ctx ends while the job is queued or running, the lease is handed to a
// goroutine that releases it once the job is done and the second result is
// true.
func (s *AnalysisService) predict(ctx context.Context, lease *registry.Lease, img image.Image) ([]float32, bool, error) {
	if s.opts.AnalysisTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.AnalysisTimeout)
		defer cancel()
	}

	var (
		out     []float32
		predErr error
	)
	run := func() {
		out, predErr = lease.Predictor.Predict(ctx, img)
	}

	if s.pool == nil {
		run()
	} else {
		done, err := s.pool.Go(ctx, run)
		if err != nil {
			return nil, false, s.scheduleError(err)
		}
		select {
		case <-done:
		case <-ctx.Done():
			go func() {
				<-done
				lease.Release()
			}()
			return nil, true, s.scheduleError(ctx.Err())
		}
	}

	if predErr != nil {
		return nil, false, s.internal("Model inference failed", predErr)
	}
	return out, false, nil
}

func (s *AnalysisService) scheduleError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		logger.WithError(err).Warn("Analysis abandoned before inference finished")
		return apperrors.NewInternalAnalysisError("Analysis timed out", err)
	}
	return s.internal("Inference could not be scheduled", err)
}

func (s *AnalysisService) internal(message string, err error) error {
	err = xerrors.New(err)
	logger.WithError(err).Error(message)
	return apperrors.NewInternalAnalysisError("Internal analysis error", err)
}

func (s *AnalysisService) record(ctx context.Context, filename, modelID string, result *models.AnalysisResult, elapsed time.Duration) {
	if s.history == nil {
		return
	}
	rec := &models.AnalysisRecord{
		Filename:         filename,
		ModelID:          modelID,
		PredictedClass:   result.PredictedClass,
		Confidence:       result.Confidence,
		HealthStatus:     result.HealthStatus,
		DamagePercentage: result.DamagePercentage,
		SeverityLevel:    result.SeverityLevel,
		LeafAreaIndex:    result.LeafAreaIndex,
		DetectedDisease:  result.DetectedDisease,
		HeuristicBackend: s.heuristics.Backend(),
		DurationMs:       elapsed.Milliseconds(),
	}
	if err := s.history.SaveAnalysis(context.WithoutCancel(ctx), rec); err != nil {
		logger.WithError(err).WithField("model_id", modelID).Warn("Failed to record analysis history")
		return
	}
	result.AnalysisID = rec.ID
}

func (s *AnalysisService) publish(ctx context.Context, event observer.AnalysisEvent) {
	if s.events != nil {
		s.events.NotifyObservers(ctx, event)
	}
}

// History exposes the audit log; nil when disabled.
func (s *AnalysisService) History() repository.AnalysisRepository {
	return s.history
}
