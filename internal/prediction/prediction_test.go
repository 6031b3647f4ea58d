package prediction

import (
	"io"
	"math"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anime-shed/leaf-health-go/internal/logger"
)

func TestMain(m *testing.M) {
	logger.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func intPtr(v int) *int { return &v }

var appleClasses = []string{"apple_scab", "apple_black_rot", "apple_cedar_rust", "apple_healthy"}

func TestAnalyze_EndToEndVector(t *testing.T) {
	a, err := Analyze([]float32{0.1, 0.05, 0.8, 0.05}, appleClasses, intPtr(40))
	require.NoError(t, err)

	assert.Equal(t, "apple_cedar_rust", a.Top.Class)
	assert.Equal(t, 2, a.Top.Index)
	assert.InDelta(t, 0.8, a.Top.Confidence, 1e-6)
	assert.Equal(t, 56, a.DamagePercentage)
	assert.Equal(t, SeveritySevere, a.SeverityLevel)
	assert.Equal(t, StatusDiseased, a.HealthStatus)
	require.NotNil(t, a.DiseaseName)
	assert.Equal(t, "Cedar Rust", *a.DiseaseName)
	assert.Greater(t, a.Entropy, 0.0)
}

func TestAnalyze_Errors(t *testing.T) {
	_, err := Analyze(nil, appleClasses, nil)
	assert.ErrorIs(t, err, ErrEmptyVector)

	_, err = Analyze([]float32{0.5, 0.5}, appleClasses, nil)
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestTop_TiesPickFirst(t *testing.T) {
	top, err := Top([]float32{0.4, 0.4, 0.2}, []string{"a_x", "b_y", "c_z"})
	require.NoError(t, err)
	assert.Equal(t, 0, top.Index)
	assert.Equal(t, "a_x", top.Class)
}

func TestSeverityLevel_Boundaries(t *testing.T) {
	tests := []struct {
		damage int
		want   string
	}{
		{0, SeverityMinimal},
		{14, SeverityMinimal},
		{15, SeverityMild},
		{29, SeverityMild},
		{30, SeverityModerate},
		{54, SeverityModerate},
		{55, SeveritySevere},
		{74, SeveritySevere},
		{75, SeverityCritical},
		{100, SeverityCritical},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SeverityLevel(tt.damage), "damage %d", tt.damage)
	}
}

func TestDamagePercentage(t *testing.T) {
	classes := []string{"apple_scab", "apple_healthy"}

	tests := []struct {
		name     string
		vector   []float32
		classes  []string
		severity *int
		want     int
	}{
		{"healthy without heuristic", []float32{0.25, 0.75}, classes, nil, 5},
		{"healthy low confidence without heuristic", []float32{0.0, 0.5}, classes, nil, 10},
		{"healthy with heuristic", []float32{0.25, 0.75}, classes, intPtr(40), 15},
		{"healthy capped at 25", []float32{0.0, 0.5}, classes, intPtr(90), 25},
		{"diseased without heuristic", []float32{0.5, 0.1}, classes, nil, 50},
		{"diseased capped at 90 without heuristic", []float32{1.5, 0.1}, classes, nil, 90},
		{"diseased floor at 15", []float32{0.0, -1.0}, classes, intPtr(5), 15},
		{"diseased ceiling at 95", []float32{2.0, 0.0}, classes, intPtr(90), 95},
		{"empty vector defaults", nil, classes, intPtr(40), DefaultDamage},
		{"mismatch defaults", []float32{1}, classes, nil, DefaultDamage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DamagePercentage(tt.vector, tt.classes, tt.severity))
		})
	}
}

func TestDamagePercentage_Ranges(t *testing.T) {
	healthyFirst := []string{"corn_healthy", "corn_common_rust"}
	diseasedFirst := []string{"corn_common_rust", "corn_healthy"}
	for i := 0; i <= 20; i++ {
		vector := []float32{float32(i) / 20, 0}
		for s := 5; s <= 90; s += 5 {
			sev := s
			healthy := DamagePercentage(vector, healthyFirst, &sev)
			assert.LessOrEqual(t, healthy, 25)
			assert.GreaterOrEqual(t, healthy, 0)

			diseased := DamagePercentage(vector, diseasedFirst, &sev)
			assert.GreaterOrEqual(t, diseased, 15)
			assert.LessOrEqual(t, diseased, 95)
		}
	}
}

func TestHealthStatus(t *testing.T) {
	assert.Equal(t, StatusHealthy, HealthStatus("apple_healthy"))
	assert.Equal(t, StatusHealthy, HealthStatus("Banana_HEALTHY"))
	assert.Equal(t, StatusDiseased, HealthStatus("apple_scab"))
}

func TestFormatDiseaseName(t *testing.T) {
	tests := []struct {
		class string
		want  string
	}{
		{"apple_scab", "Apple Scab"},
		{"corn_common_rust", "Common Rust"},
		{"tomato_yellow_leaf_curl_virus", "Yellow Leaf Curl"},
		{"tomato_mosaic_virus", "Mosaic Virus"},
		{"banana_bunchy_top_virus", "Bunchy Top"},
		{"cassava_brown_streak_disease", "Brown Streak"},
		{"banana_sigatoka", "Sigatoka Disease"},
		{"grape_black_measles", "Black Measles"},
		{"wheat_RUST", "Leaf Rust"},
		{"pepper_virus", "Virus"},
		{"unlabelled", "Unknown Disease"},
	}
	for _, tt := range tests {
		t.Run(tt.class, func(t *testing.T) {
			got := FormatDiseaseName(tt.class)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, *got)
		})
	}

	assert.Nil(t, FormatDiseaseName("apple_healthy"))
	assert.Nil(t, FormatDiseaseName("Healthy"))
}

func TestTopPredictions(t *testing.T) {
	vector := []float32{0.1, 0.6, 0.9, 0.6, 0.55}
	classes := []string{"a_1", "a_2", "a_3", "a_4", "a_5"}

	got := TopPredictions(vector, classes, 3, 0.5)
	require.Len(t, got, 3)
	assert.Equal(t, "a_3", got[0].Class)
	assert.Equal(t, "a_2", got[1].Class)
	assert.Equal(t, "a_4", got[2].Class)

	assert.Len(t, TopPredictions(vector, classes, 10, 0.5), 4)
	assert.Empty(t, TopPredictions(vector, classes, 3, 0.95))
	assert.Nil(t, TopPredictions(vector, classes[:2], 3, 0.5))
	assert.Nil(t, TopPredictions(vector, classes, 0, 0.5))
}

func TestEntropy(t *testing.T) {
	assert.InDelta(t, math.Log(4), Entropy([]float32{1, 1, 1, 1}), 1e-9)
	assert.InDelta(t, 0.0, Entropy([]float32{0, 1, 0}), 1e-9)
	assert.Zero(t, Entropy([]float32{0, 0}))
	assert.Zero(t, Entropy([]float32{-1, 2}))
}
