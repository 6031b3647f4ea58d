// Package prediction turns a classifier output vector into a damage
// assessment.
package prediction

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/anime-shed/leaf-health-go/internal/logger"
)

// DefaultDamage is returned when the damage computation cannot run.
const DefaultDamage = 30

// Health statuses.
const (
	StatusHealthy  = "Healthy"
	StatusDiseased = "Diseased"
)

// Severity tiers.
const (
	SeverityMinimal  = "Minimal"
	SeverityMild     = "Mild"
	SeverityModerate = "Moderate"
	SeveritySevere   = "Severe"
	SeverityCritical = "Critical"
)

const unknownDisease = "Unknown Disease"

var (
	ErrEmptyVector    = errors.New("prediction vector is empty")
	ErrLengthMismatch = errors.New("prediction vector and class list differ in length")
)

// canonicalNames maps a bare formatted name to its display form.
var canonicalNames = map[string]string{
	"Scab":     "Apple Scab",
	"Rust":     "Leaf Rust",
	"Blight":   "Leaf Blight",
	"Spot":     "Leaf Spot",
	"Mildew":   "Powdery Mildew",
	"Sigatoka": "Sigatoka Disease",
	"Mosaic":   "Mosaic Virus",
	"Curl":     "Leaf Curl Virus",
	"Wilt":     "Fungal Wilt",
}

// Ranked is one class with its score.
type Ranked struct {
	Index      int
	Class      string
	Confidence float64
}

// Assessment bundles everything derived from one prediction vector.
type Assessment struct {
	Top              Ranked
	DamagePercentage int
	SeverityLevel    string
	HealthStatus     string
	DiseaseName      *string
	// Entropy of the normalised vector in nats; higher means a less decisive model.
	Entropy float64
}

func toFloat64(vector []float32) []float64 {
	out := make([]float64, len(vector))
	for i, v := range vector {
		out[i] = float64(v)
	}
	return out
}

// Top returns the highest-scoring class. Ties resolve to the lowest index.
func Top(vector []float32, classes []string) (Ranked, error) {
	if len(vector) == 0 {
		return Ranked{}, ErrEmptyVector
	}
	if len(vector) != len(classes) {
		return Ranked{}, fmt.Errorf("%w: %d scores, %d classes", ErrLengthMismatch, len(vector), len(classes))
	}
	idx := floats.MaxIdx(toFloat64(vector))
	return Ranked{Index: idx, Class: classes[idx], Confidence: float64(vector[idx])}, nil
}

// DamagePercentage estimates the damaged share of the leaf. severity is the
// optional heuristic estimate for the same image. Any failure yields
// DefaultDamage.
func DamagePercentage(vector []float32, classes []string, severity *int) int {
	top, err := Top(vector, classes)
	if err != nil {
		logger.WithError(err).Error("Error calculating damage percentage")
		return DefaultDamage
	}
	return damageFor(top, severity)
}

func damageFor(top Ranked, severity *int) int {
	c := top.Confidence
	if isHealthy(top.Class) {
		base := int((1 - c) * 20)
		if base < 0 {
			base = 0
		}
		if severity == nil {
			return base
		}
		return min(25, int(float64(base)*0.7+float64(*severity)*0.3))
	}

	base := int(c*60) + 20
	if severity == nil {
		return min(90, base)
	}
	return min(95, max(15, int(float64(base)*0.6+float64(*severity)*0.4)))
}

// SeverityLevel maps a damage percentage to its tier.
func SeverityLevel(damage int) string {
	switch {
	case damage < 15:
		return SeverityMinimal
	case damage < 30:
		return SeverityMild
	case damage < 55:
		return SeverityModerate
	case damage < 75:
		return SeveritySevere
	default:
		return SeverityCritical
	}
}

// HealthStatus reports Healthy when the label mentions "healthy".
func HealthStatus(class string) string {
	if isHealthy(class) {
		return StatusHealthy
	}
	return StatusDiseased
}

func isHealthy(class string) bool {
	return strings.Contains(strings.ToLower(class), "healthy")
}

// FormatDiseaseName returns a display name for a disease label, or nil when
// the label is healthy. "tomato_early_blight" becomes "Early Blight".
func FormatDiseaseName(class string) *string {
	if isHealthy(class) {
		return nil
	}

	parts := strings.Split(class, "_")[1:]
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		switch strings.ToLower(p) {
		case "disease", "virus":
			continue
		}
		kept = append(kept, p)
	}
	if len(kept) == 0 {
		kept = parts
	}

	words := make([]string, len(kept))
	for i, w := range kept {
		words[i] = capitalize(w)
	}
	name := strings.Join(words, " ")
	if canonical, ok := canonicalNames[name]; ok {
		name = canonical
	}
	if name == "" {
		name = unknownDisease
	}
	return &name
}

func capitalize(word string) string {
	r, size := utf8.DecodeRuneInString(word)
	if r == utf8.RuneError {
		return strings.ToLower(word)
	}
	return string(unicode.ToTitle(r)) + strings.ToLower(word[size:])
}

// TopPredictions returns up to k classes scoring at least threshold, best
// first. Equal scores keep class order.
func TopPredictions(vector []float32, classes []string, k int, threshold float64) []Ranked {
	if k <= 0 || len(vector) == 0 || len(vector) != len(classes) {
		return nil
	}
	ranked := make([]Ranked, 0, len(vector))
	for i, v := range vector {
		if float64(v) >= threshold {
			ranked = append(ranked, Ranked{Index: i, Class: classes[i], Confidence: float64(v)})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Confidence > ranked[j].Confidence
	})
	if len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked
}

// Entropy returns the Shannon entropy of the vector after normalising it to
// sum to one. Vectors that cannot be normalised return 0.
func Entropy(vector []float32) float64 {
	p := toFloat64(vector)
	for _, v := range p {
		if v < 0 {
			return 0
		}
	}
	sum := floats.Sum(p)
	if sum <= 0 {
		return 0
	}
	floats.Scale(1/sum, p)
	return stat.Entropy(p)
}

// Analyze runs the full assessment for one vector.
func Analyze(vector []float32, classes []string, severity *int) (Assessment, error) {
	top, err := Top(vector, classes)
	if err != nil {
		return Assessment{}, err
	}
	damage := damageFor(top, severity)
	return Assessment{
		Top:              top,
		DamagePercentage: damage,
		SeverityLevel:    SeverityLevel(damage),
		HealthStatus:     HealthStatus(top.Class),
		DiseaseName:      FormatDiseaseName(top.Class),
		Entropy:          Entropy(vector),
	}, nil
}
