package transport

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/anime-shed/leaf-health-go/internal/analyzer"
	"github.com/anime-shed/leaf-health-go/internal/config"
	apperrors "github.com/anime-shed/leaf-health-go/internal/errors"
	"github.com/anime-shed/leaf-health-go/internal/logger"
	"github.com/anime-shed/leaf-health-go/internal/observer"
	"github.com/anime-shed/leaf-health-go/internal/registry"
	"github.com/anime-shed/leaf-health-go/internal/repository"
	"github.com/anime-shed/leaf-health-go/internal/service"
	"github.com/anime-shed/leaf-health-go/pkg/models"
	"github.com/anime-shed/leaf-health-go/pkg/validation"
)

const (
	serviceName = "Leaf Health Analysis API"
	// Version is reported by the health and root endpoints.
	Version = "1.0.0"
)

// LeafAnalyzer runs one analysis.
type LeafAnalyzer interface {
	Analyze(ctx context.Context, req service.AnalyzeRequest) (*models.AnalysisResult, error)
}

// Dependencies is everything the HTTP surface needs. Metrics, Pool, History
// and Events are optional.
type Dependencies struct {
	Config   *config.Config
	Analyzer LeafAnalyzer
	Registry *registry.Registry
	Uploads  repository.UploadStore

	Metrics *observer.MetricsObserver
	Pool    *analyzer.WorkerPool
	History repository.AnalysisRepository
	Events  observer.Subject
}

type handler struct {
	Dependencies
	startedAt time.Time
}

func NewHandler(deps Dependencies) http.Handler {
	h := &handler{Dependencies: deps, startedAt: time.Now()}
	cfg := deps.Config

	r := gin.Default()
	r.Use(
		cors(cfg.CORSAllowedOrigins),
		requestSizeLimiter(cfg.MaxRequestBodySize),
		errorHandler(),
	)

	r.GET("/", h.serviceInfo)

	api := r.Group("/api")
	api.POST("/analyze-leaf", h.analyzeLeaf)
	api.GET("/models", h.listModels)
	api.POST("/models/:id/reload", h.reloadModel)
	api.GET("/health", h.healthCheck)
	api.GET("/status", h.status)
	api.GET("/history", h.listHistory)
	api.GET("/history/:id", h.getHistory)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "Endpoint not found"})
	})

	return r
}

func (h *handler) analyzeLeaf(c *gin.Context) {
	startTime := time.Now()
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.Config.RequestTimeout)
	defer cancel()

	logger.WithFields(logrus.Fields{
		"method":     c.Request.Method,
		"path":       c.Request.URL.Path,
		"user_agent": c.Request.UserAgent(),
		"ip":         c.ClientIP(),
	}).Info("Processing leaf analysis request")

	fileHeader, err := c.FormFile("image")
	if err != nil {
		if isBodyTooLarge(err) {
			h.respondTooLarge(c)
			return
		}
		respondError(c, apperrors.NewNoImageProvidedError("No image file provided"))
		return
	}
	if fileHeader.Filename == "" {
		respondError(c, apperrors.NewNoImageProvidedError("No image selected"))
		return
	}

	data, err := readUpload(fileHeader)
	if err != nil {
		if isBodyTooLarge(err) {
			h.respondTooLarge(c)
			return
		}
		respondError(c, apperrors.NewValidationError("Failed to read uploaded file", err))
		return
	}

	modelID := strings.TrimSpace(c.PostForm("model"))
	stagedAs := modelID
	if stagedAs == "" {
		stagedAs = h.Config.DefaultModel
	}

	if h.Uploads != nil && len(data) > 0 {
		path, cleanup, err := h.Uploads.Stage(ctx, validation.StagedName(stagedAs, fileHeader.Filename), data)
		if err != nil {
			respondError(c, apperrors.NewInternalError("Failed to store upload", err))
			return
		}
		defer cleanup()
		logger.WithField("path", path).Debug("Upload staged")
	}

	result, err := h.Analyzer.Analyze(ctx, service.AnalyzeRequest{
		Filename: fileHeader.Filename,
		Data:     data,
		ModelID:  modelID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	logger.WithFields(logrus.Fields{
		"model_id":           stagedAs,
		"predicted_class":    result.PredictedClass,
		"health_status":      result.HealthStatus,
		"damage_percentage":  result.DamagePercentage,
		"processing_time_ms": time.Since(startTime).Milliseconds(),
	}).Info("Leaf analysis completed successfully")

	c.JSON(http.StatusOK, result)
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (h *handler) listModels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"models": h.Registry.ListAvailable()})
}

func (h *handler) reloadModel(c *gin.Context) {
	id := c.Param("id")
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.Config.ArtifactFetchTimeout)
	defer cancel()

	start := time.Now()
	err := h.Registry.Reload(ctx, id)
	h.publish(c.Request.Context(), id, time.Since(start), err)

	switch {
	case err == nil:
	case errors.Is(err, registry.ErrUnknownModel):
		respondError(c, apperrors.NewUnknownModelError(id, err))
		return
	case errors.Is(err, registry.ErrArtifactMissing):
		respondError(c, apperrors.NewNotFoundError("Model artifact not found", err))
		return
	default:
		respondError(c, apperrors.NewInternalError("Model reload failed", err))
		return
	}

	for _, s := range h.Registry.ListAvailable() {
		if s.ID == id {
			c.JSON(http.StatusOK, s)
			return
		}
	}
	c.Status(http.StatusOK)
}

func (h *handler) publish(ctx context.Context, id string, took time.Duration, err error) {
	if h.Events == nil {
		return
	}
	event := observer.AnalysisEvent{
		EventType:      observer.ModelLoaded,
		ModelID:        id,
		ProcessingTime: took,
		Success:        err == nil,
	}
	if err != nil {
		event.EventType = observer.ModelLoadFailed
		event.ErrorMessage = err.Error()
	}
	h.Events.NotifyObservers(ctx, event)
}

func (h *handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, models.HealthResponse{
		Status:             "healthy",
		ModelsLoaded:       h.Registry.LoadedCount(),
		TotalModels:        h.Registry.Catalog().Len(),
		UploadFolderExists: dirExists(h.Config.UploadFolder),
		ModelFolderExists:  dirExists(h.Config.ModelFolder),
		Version:            Version,
		Time:               time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *handler) status(c *gin.Context) {
	body := gin.H{
		"status":          "running",
		"uptime":          time.Since(h.startedAt).Round(time.Second).String(),
		"models_loaded":   h.Registry.LoadedCount(),
		"total_models":    h.Registry.Catalog().Len(),
		"history_enabled": h.History != nil,
	}
	if h.Metrics != nil {
		body["analysis"] = h.Metrics.Snapshot()
	}
	if h.Pool != nil {
		body["workers"] = h.Pool.GetStats()
	}
	c.JSON(http.StatusOK, body)
}

func (h *handler) serviceInfo(c *gin.Context) {
	c.JSON(http.StatusOK, models.ServiceInfo{
		Name:         serviceName,
		Version:      Version,
		Models:       h.Registry.Catalog().IDs(),
		ModelsLoaded: h.Registry.LoadedCount(),
		TotalModels:  h.Registry.Catalog().Len(),
	})
}

func (h *handler) listHistory(c *gin.Context) {
	if h.History == nil {
		respondError(c, apperrors.NewUnavailableError("Analysis history is disabled", nil))
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(c, apperrors.NewValidationError("limit must be a non-negative integer", err))
			return
		}
		limit = n
	}

	records, err := h.History.ListRecent(c.Request.Context(), limit)
	if err != nil {
		respondError(c, apperrors.NewInternalError("Failed to read analysis history", err))
		return
	}
	out := make([]models.AnalysisRecord, 0, len(records))
	for _, r := range records {
		out = append(out, *r)
	}
	c.JSON(http.StatusOK, models.HistoryResponse{Records: out, Count: len(out)})
}

func (h *handler) getHistory(c *gin.Context) {
	if h.History == nil {
		respondError(c, apperrors.NewUnavailableError("Analysis history is disabled", nil))
		return
	}
	rec, err := h.History.GetAnalysis(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, repository.ErrAnalysisNotFound):
		respondError(c, apperrors.NewNotFoundError("Analysis not found", err))
	case err != nil:
		respondError(c, apperrors.NewInternalError("Failed to read analysis history", err))
	default:
		c.JSON(http.StatusOK, rec)
	}
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
