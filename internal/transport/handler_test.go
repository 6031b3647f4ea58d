package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anime-shed/leaf-health-go/internal/analyzer"
	"github.com/anime-shed/leaf-health-go/internal/catalog"
	"github.com/anime-shed/leaf-health-go/internal/config"
	"github.com/anime-shed/leaf-health-go/internal/inference"
	"github.com/anime-shed/leaf-health-go/internal/logger"
	"github.com/anime-shed/leaf-health-go/internal/observer"
	"github.com/anime-shed/leaf-health-go/internal/recommendation"
	"github.com/anime-shed/leaf-health-go/internal/registry"
	"github.com/anime-shed/leaf-health-go/internal/repository"
	"github.com/anime-shed/leaf-health-go/internal/service"
	"github.com/anime-shed/leaf-health-go/pkg/models"
	"github.com/anime-shed/leaf-health-go/pkg/validation"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	logger.SetOutput(io.Discard)
	os.Exit(m.Run())
}

type testServer struct {
	handler  http.Handler
	cfg      *config.Config
	history  *repository.MemoryAnalysisRepository
	metrics  *observer.MetricsObserver
	events   *observer.EventPublisher
	modelDir string
}

func newTestServer(t *testing.T, withHistory bool) *testServer {
	t.Helper()
	root := t.TempDir()
	cfg := &config.Config{
		RequestTimeout:       5 * time.Second,
		AnalysisTimeout:      5 * time.Second,
		ArtifactFetchTimeout: 5 * time.Second,
		MaxRequestBodySize:   64 * 1024,
		ModelFolder:          filepath.Join(root, "models"),
		UploadFolder:         filepath.Join(root, "uploads"),
		DefaultModel:         "model1",
		AllowedExtensions:    []string{"png", "jpg", "jpeg"},
		CORSAllowedOrigins:   []string{"*"},
	}
	require.NoError(t, os.MkdirAll(cfg.ModelFolder, 0o755))

	cat, err := catalog.Build(cfg.ModelFolder, []catalog.Descriptor{
		{ID: "model1", Name: "Multi-Crop Analysis", Classes: []string{"apple_scab", "apple_black_rot", "apple_cedar_rust", "apple_healthy"}},
		{ID: "model2", Name: "Staple Crops Analysis", Classes: []string{"rice_blast", "rice_healthy"}},
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.ModelFolder, "model1.onnx"), []byte("onnx"), 0o644))

	predictor := inference.PredictorFunc(func(ctx context.Context, img image.Image) ([]float32, error) {
		return []float32{0.1, 0.05, 0.8, 0.05}, nil
	})
	reg := registry.New(cat, registry.LoaderFunc(func(ctx context.Context, d catalog.Descriptor) (inference.Predictor, error) {
		return predictor, nil
	}))
	reg.LoadAll(context.Background())

	uploads, err := repository.NewFileUploadStore(cfg.UploadFolder)
	require.NoError(t, err)

	pool := analyzer.NewWorkerPool(2)
	t.Cleanup(pool.Close)

	metrics := observer.NewMetricsObserver()
	events := observer.NewEventPublisher()
	events.Subscribe(metrics)

	ts := &testServer{cfg: cfg, metrics: metrics, events: events, modelDir: cfg.ModelFolder}
	opts := []service.Option{service.WithEvents(events)}
	deps := Dependencies{
		Config:   cfg,
		Registry: reg,
		Uploads:  uploads,
		Metrics:  metrics,
		Pool:     pool,
		Events:   events,
	}
	if withHistory {
		ts.history = repository.NewMemoryAnalysisRepository(10)
		opts = append(opts, service.WithHistory(ts.history))
		deps.History = ts.history
	}

	deps.Analyzer = service.NewAnalysisService(
		reg,
		analyzer.NewHeuristicAnalyzer(nil, analyzer.DefaultHeuristicOptions()),
		recommendation.Default(),
		validation.NewUploadValidator(cfg.AllowedExtensions),
		pool,
		service.Options{DefaultModel: cfg.DefaultModel, AnalysisTimeout: cfg.AnalysisTimeout},
		opts...,
	)
	ts.handler = NewHandler(deps)
	return ts
}

func leafPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{0, 200, 0, 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func multipartRequest(t *testing.T, filename string, data []byte, model string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if filename != "" || data != nil {
		part, err := w.CreateFormFile("image", filename)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	if model != "" {
		require.NoError(t, w.WriteField("model", model))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/analyze-leaf", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestAnalyzeLeaf_Success(t *testing.T) {
	ts := newTestServer(t, true)

	rec := ts.do(multipartRequest(t, "leaf.png", leafPNG(t), ""))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var raw map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	for _, key := range []string{"healthStatus", "damagePercentage", "severityLevel", "leafAreaIndex",
		"detectedDisease", "recommendation", "confidence", "model_used", "predicted_class", "analysisId"} {
		assert.Contains(t, raw, key)
	}

	result := decode[models.AnalysisResult](t, rec)
	assert.Equal(t, "apple_cedar_rust", result.PredictedClass)
	assert.Equal(t, "Multi-Crop Analysis", result.ModelUsed)
	assert.Equal(t, "5.0", result.LeafAreaIndex)

	entries, err := os.ReadDir(ts.cfg.UploadFolder)
	require.NoError(t, err)
	assert.Empty(t, entries, "staged upload must be removed")

	hist := ts.do(httptest.NewRequest(http.MethodGet, "/api/history/"+result.AnalysisID, nil))
	assert.Equal(t, http.StatusOK, hist.Code)
}

func TestAnalyzeLeaf_Errors(t *testing.T) {
	ts := newTestServer(t, false)

	tests := []struct {
		name      string
		req       *http.Request
		status    int
		wantError string
	}{
		{"no file", multipartRequest(t, "", nil, ""), http.StatusBadRequest, "No image file provided"},
		{"unknown model", multipartRequest(t, "leaf.png", leafPNG(t), "model9"), http.StatusBadRequest, "Invalid model: model9"},
		{"model not available", multipartRequest(t, "leaf.png", leafPNG(t), "model2"), http.StatusNotFound,
			"Model model2 not available. Please check if model file exists."},
		{"bad extension", multipartRequest(t, "leaf.gif", leafPNG(t), ""), http.StatusBadRequest, ""},
		{"undecodable", multipartRequest(t, "leaf.png", []byte("nope"), ""), http.StatusBadRequest,
			"Failed to process image. Please check image format."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(tt.req)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			body := decode[models.ErrorResponse](t, rec)
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, body.Error)
			} else {
				assert.NotEmpty(t, body.Error)
			}
		})
	}
}

func TestAnalyzeLeaf_NotAvailableListsModels(t *testing.T) {
	ts := newTestServer(t, false)
	rec := ts.do(multipartRequest(t, "leaf.png", leafPNG(t), "model2"))
	body := decode[models.ErrorResponse](t, rec)
	assert.Equal(t, []string{"model1"}, body.AvailableModels)
}

func TestAnalyzeLeaf_TooLarge(t *testing.T) {
	ts := newTestServer(t, false)
	big := bytes.Repeat([]byte{0xAB}, int(ts.cfg.MaxRequestBodySize)+1024)

	rec := ts.do(multipartRequest(t, "leaf.png", big, ""))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	body := decode[models.FileTooLargeResponse](t, rec)
	assert.Equal(t, "File too large", body.Error)
	assert.Equal(t, ts.cfg.MaxRequestBodySizeLabel(), body.MaxSize)
}

func TestListModels(t *testing.T) {
	ts := newTestServer(t, false)
	rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/models", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[struct {
		Models []registry.Status `json:"models"`
	}](t, rec)
	require.Len(t, body.Models, 2)
	assert.Equal(t, "model1", body.Models[0].ID)
	assert.True(t, body.Models[0].Available)
	assert.False(t, body.Models[1].Available)
	assert.Equal(t, [2]int{224, 224}, body.Models[0].ImageSize)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, false)
	rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[models.HealthResponse](t, rec)
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, 1, body.ModelsLoaded)
	assert.Equal(t, 2, body.TotalModels)
	assert.True(t, body.UploadFolderExists)
	assert.True(t, body.ModelFolderExists)
	assert.Equal(t, Version, body.Version)
}

func TestStatus_ReportsMetrics(t *testing.T) {
	ts := newTestServer(t, false)
	require.Equal(t, http.StatusOK, ts.do(multipartRequest(t, "leaf.png", leafPNG(t), "")).Code)
	ts.events.Flush()

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[struct {
		Status   string                   `json:"status"`
		Analysis observer.MetricsSnapshot `json:"analysis"`
		Workers  analyzer.PoolStats       `json:"workers"`
	}](t, rec)
	assert.Equal(t, "running", body.Status)
	assert.Equal(t, int64(1), body.Analysis.SuccessfulAnalyses)
	assert.Equal(t, 2, body.Workers.Workers)
}

func TestReloadModel(t *testing.T) {
	ts := newTestServer(t, false)

	rec := ts.do(httptest.NewRequest(http.MethodPost, "/api/models/model1/reload", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	status := decode[registry.Status](t, rec)
	assert.True(t, status.Available)

	rec = ts.do(httptest.NewRequest(http.MethodPost, "/api/models/model9/reload", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(httptest.NewRequest(http.MethodPost, "/api/models/model2/reload", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReloadModel_MissingArtifactEvicts(t *testing.T) {
	ts := newTestServer(t, false)
	require.NoError(t, os.Remove(filepath.Join(ts.modelDir, "model1.onnx")))

	rec := ts.do(httptest.NewRequest(http.MethodPost, "/api/models/model1/reload", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(multipartRequest(t, "leaf.png", leafPNG(t), "model1"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHistory(t *testing.T) {
	ts := newTestServer(t, true)
	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, ts.do(multipartRequest(t, "leaf.png", leafPNG(t), "")).Code)
	}

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/history?limit=2", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[models.HistoryResponse](t, rec)
	assert.Equal(t, 2, body.Count)
	assert.Len(t, body.Records, 2)

	rec = ts.do(httptest.NewRequest(http.MethodGet, "/api/history?limit=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(httptest.NewRequest(http.MethodGet, "/api/history/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHistory_Disabled(t *testing.T) {
	ts := newTestServer(t, false)
	rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/history", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRootAndNoRoute(t *testing.T) {
	ts := newTestServer(t, false)

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	info := decode[models.ServiceInfo](t, rec)
	assert.Equal(t, []string{"model1", "model2"}, info.Models)
	assert.Equal(t, 1, info.ModelsLoaded)

	rec = ts.do(httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Endpoint not found", decode[models.ErrorResponse](t, rec).Error)
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t, false)
	req := httptest.NewRequest(http.MethodOptions, "/api/analyze-leaf", nil)
	req.Header.Set("Origin", "http://example.com")

	rec := ts.do(req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
