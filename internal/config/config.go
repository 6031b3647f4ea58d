package config

import (
	"fmt"
	"net"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Host               string
	Port               string
	LogLevel           string
	RequestTimeout     time.Duration
	AnalysisTimeout    time.Duration
	MaxRequestBodySize int64

	ModelFolder       string
	UploadFolder      string
	ModelCatalogFile  string
	TreatmentsFile    string
	DefaultModel      string
	AllowedExtensions []string

	PredictionThreshold float64
	MaxPredictions      int
	TopPredictions      bool
	InferenceWorkers    int
	HeuristicBackend    string
	ONNXRuntimeLib      string

	ArtifactSource       string
	ArtifactBaseURL      string
	AzureStorageAccount  string
	AzureStorageKey      string
	AzureModelContainer  string
	ArtifactFetchTimeout time.Duration

	HistoryDSN         string
	CORSAllowedOrigins []string
}

func (c *Config) ServerAddress() string {
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// MaxRequestBodySizeLabel renders the body limit the way the 413 response reports it, e.g. "16MB".
func (c *Config) MaxRequestBodySizeLabel() string {
	return fmt.Sprintf("%.0fMB", float64(c.MaxRequestBodySize)/(1024*1024))
}

// HistoryEnabled reports whether analyses are recorded to the audit log.
func (c *Config) HistoryEnabled() bool {
	return strings.TrimSpace(c.HistoryDSN) != ""
}

// LoadFromEnv reads configuration from the process environment, after merging
// any .env file found in the working directory.
func LoadFromEnv() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Host:               getEnvOrDefault("HOST", "0.0.0.0"),
		Port:               getEnvOrDefault("PORT", "5000"),
		LogLevel:           getEnvOrDefault("LOG_LEVEL", "info"),
		RequestTimeout:     parseDurationOrDefault("REQUEST_TIMEOUT", 30*time.Second),
		AnalysisTimeout:    parseDurationOrDefault("ANALYSIS_TIMEOUT", 20*time.Second),
		MaxRequestBodySize: parseIntOrDefault("MAX_REQUEST_BODY_SIZE", 16*1024*1024), // 16MB

		ModelFolder:       getEnvOrDefault("MODEL_FOLDER", "models"),
		UploadFolder:      getEnvOrDefault("UPLOAD_FOLDER", "uploads"),
		ModelCatalogFile:  os.Getenv("MODEL_CATALOG_FILE"),
		TreatmentsFile:    os.Getenv("TREATMENTS_FILE"),
		DefaultModel:      getEnvOrDefault("DEFAULT_MODEL", "model1"),
		AllowedExtensions: parseListOrDefault("ALLOWED_EXTENSIONS", []string{"png", "jpg", "jpeg", "bmp", "tiff", "webp"}),

		PredictionThreshold: parseFloatOrDefault("PREDICTION_THRESHOLD", 0.5),
		MaxPredictions:      int(parseIntOrDefault("MAX_PREDICTIONS", 5)),
		TopPredictions:      parseBoolOrDefault("INCLUDE_TOP_PREDICTIONS", true),
		InferenceWorkers:    int(parseIntOrDefault("INFERENCE_WORKERS", int64(runtime.NumCPU()))),
		HeuristicBackend:    strings.ToLower(getEnvOrDefault("HEURISTIC_BACKEND", "native")),
		ONNXRuntimeLib:      os.Getenv("ONNXRUNTIME_LIB"),

		ArtifactSource:       strings.ToLower(getEnvOrDefault("ARTIFACT_SOURCE", "local")),
		ArtifactBaseURL:      os.Getenv("ARTIFACT_BASE_URL"),
		AzureStorageAccount:  os.Getenv("AZURE_STORAGE_ACCOUNT"),
		AzureStorageKey:      os.Getenv("AZURE_STORAGE_KEY"),
		AzureModelContainer:  getEnvOrDefault("AZURE_MODEL_CONTAINER", "models"),
		ArtifactFetchTimeout: parseDurationOrDefault("ARTIFACT_FETCH_TIMEOUT", 5*time.Minute),

		HistoryDSN:         os.Getenv("HISTORY_DSN"),
		CORSAllowedOrigins: parseListOrDefault("CORS_ALLOWED_ORIGINS", []string{"*"}),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and cross-field requirements.
func (c *Config) Validate() error {
	p, err := strconv.Atoi(strings.TrimSpace(c.Port))
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid PORT: %q", c.Port)
	}
	if c.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", c.MaxRequestBodySize)
	}
	if c.RequestTimeout <= 0 || c.AnalysisTimeout <= 0 {
		return fmt.Errorf("timeouts must be > 0 (got request=%s, analysis=%s)",
			c.RequestTimeout, c.AnalysisTimeout)
	}
	if c.PredictionThreshold < 0 || c.PredictionThreshold > 1 {
		return fmt.Errorf("PREDICTION_THRESHOLD must be within [0,1] (got %v)", c.PredictionThreshold)
	}
	if c.MaxPredictions < 0 {
		return fmt.Errorf("MAX_PREDICTIONS must be >= 0 (got %d)", c.MaxPredictions)
	}
	if c.InferenceWorkers <= 0 {
		return fmt.Errorf("INFERENCE_WORKERS must be > 0 (got %d)", c.InferenceWorkers)
	}
	if len(c.AllowedExtensions) == 0 {
		return fmt.Errorf("ALLOWED_EXTENSIONS must not be empty")
	}
	switch c.HeuristicBackend {
	case "native", "gocv":
	default:
		return fmt.Errorf("invalid HEURISTIC_BACKEND: %q", c.HeuristicBackend)
	}
	switch c.ArtifactSource {
	case "local":
	case "http":
		if c.ArtifactBaseURL == "" {
			return fmt.Errorf("ARTIFACT_BASE_URL is required when ARTIFACT_SOURCE=http")
		}
	case "azure":
		if c.AzureStorageAccount == "" || c.AzureStorageKey == "" {
			return fmt.Errorf("AZURE_STORAGE_ACCOUNT and AZURE_STORAGE_KEY are required when ARTIFACT_SOURCE=azure")
		}
	default:
		return fmt.Errorf("invalid ARTIFACT_SOURCE: %q", c.ArtifactSource)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func parseFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func parseBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return defaultValue
}

// parseListOrDefault splits a comma separated value, lower-casing and dropping empty items.
func parseListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		item = strings.ToLower(strings.TrimSpace(item))
		if item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
