package models

import (
	"math"
	"strconv"
	"time"
)

// AnalysisResult is the terminal result of one leaf analysis.
type AnalysisResult struct {
	HealthStatus     string  `json:"healthStatus"`
	DamagePercentage int     `json:"damagePercentage"`
	SeverityLevel    string  `json:"severityLevel"`
	LeafAreaIndex    string  `json:"leafAreaIndex"`
	DetectedDisease  *string `json:"detectedDisease"`
	Recommendation   string  `json:"recommendation"`
	Confidence       float64 `json:"confidence"`
	ModelUsed        string  `json:"model_used"`
	PredictedClass   string  `json:"predicted_class"`

	// Optional
	TopPredictions []RankedPrediction `json:"topPredictions,omitempty"`
	AnalysisID     string             `json:"analysisId,omitempty"`
}

// RankedPrediction is one entry of the top-k list; Confidence is a percentage.
type RankedPrediction struct {
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
}

// AnalysisRecord is the audit entry stored for a completed analysis.
type AnalysisRecord struct {
	ID               string    `json:"id"`
	CreatedAt        time.Time `json:"created_at"`
	Filename         string    `json:"filename"`
	ModelID          string    `json:"model_id"`
	PredictedClass   string    `json:"predicted_class"`
	Confidence       float64   `json:"confidence"`
	HealthStatus     string    `json:"health_status"`
	DamagePercentage int       `json:"damage_percentage"`
	SeverityLevel    string    `json:"severity_level"`
	LeafAreaIndex    string    `json:"leaf_area_index"`
	DetectedDisease  *string   `json:"detected_disease"`
	HeuristicBackend string    `json:"heuristic_backend"`
	DurationMs       int64     `json:"duration_ms"`
}

// FormatLeafAreaIndex renders a leaf area index with one decimal, e.g. "2.0".
func FormatLeafAreaIndex(lai float64) string {
	return strconv.FormatFloat(math.Round(lai*10)/10, 'f', 1, 64)
}

// ConfidencePercent converts a [0,1] score to a percentage with two decimals.
func ConfidencePercent(score float64) float64 {
	return math.Round(score*100*100) / 100
}
