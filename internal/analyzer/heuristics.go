package analyzer

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"

	"github.com/sirupsen/logrus"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/anime-shed/leaf-health-go/internal/logger"
)

// Estimates is the heuristic view of one leaf image.
type Estimates struct {
	LeafAreaIndex float64 `json:"leaf_area_index"`
	Severity      int     `json:"severity"`
	// Degraded is set when the defaults were returned instead of measurements.
	Degraded bool `json:"degraded"`
}

// HeuristicAnalyzer turns segmentation counts into leaf area index and
// disease severity estimates. It never fails: unreadable input yields the
// configured defaults.
type HeuristicAnalyzer struct {
	segmenter Segmenter
	opts      HeuristicOptions
}

// NewHeuristicAnalyzer builds an analyzer on top of segmenter.
func NewHeuristicAnalyzer(segmenter Segmenter, opts HeuristicOptions) *HeuristicAnalyzer {
	if segmenter == nil {
		segmenter = NewHSVSegmenter(opts)
	}
	return &HeuristicAnalyzer{segmenter: segmenter, opts: opts}
}

// Backend names the segmentation backend in use.
func (a *HeuristicAnalyzer) Backend() string {
	return a.segmenter.Name()
}

// Defaults returns the fallback estimates.
func (a *HeuristicAnalyzer) Defaults() Estimates {
	return Estimates{LeafAreaIndex: a.opts.DefaultLAI, Severity: a.opts.DefaultSeverity, Degraded: true}
}

// Estimate segments img once and derives both estimates.
func (a *HeuristicAnalyzer) Estimate(img image.Image) (est Estimates) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithField("panic", fmt.Sprint(r)).Error("Heuristic segmentation panicked")
			est = a.Defaults()
		}
	}()

	seg, err := a.segmenter.Segment(img)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"backend": a.segmenter.Name(),
			"error":   err.Error(),
		}).Warn("Heuristic segmentation failed, using defaults")
		return a.Defaults()
	}

	est = Estimates{
		LeafAreaIndex: a.leafAreaIndex(seg),
		Severity:      a.severity(seg),
	}
	logger.WithFields(logrus.Fields{
		"backend":         a.segmenter.Name(),
		"width":           seg.Width,
		"height":          seg.Height,
		"green_pixels":    seg.GreenPixels,
		"diseased_pixels": seg.DiseasedPixels,
		"leaf_area_index": est.LeafAreaIndex,
		"severity":        est.Severity,
	}).Debug("Heuristics estimated")
	return est
}

// EstimateLeafAreaIndex returns the leaf area index in [LAIMin, LAIMax],
// rounded to one decimal.
func (a *HeuristicAnalyzer) EstimateLeafAreaIndex(img image.Image) float64 {
	return a.Estimate(img).LeafAreaIndex
}

// EstimateDiseaseSeverity returns the diseased-area percentage in
// [SeverityMin, SeverityMax].
func (a *HeuristicAnalyzer) EstimateDiseaseSeverity(img image.Image) int {
	return a.Estimate(img).Severity
}

// EstimateBytes decodes data and estimates it; undecodable data yields the
// defaults.
func (a *HeuristicAnalyzer) EstimateBytes(data []byte) Estimates {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		logger.WithError(err).Warn("Heuristic input could not be decoded, using defaults")
		return a.Defaults()
	}
	return a.Estimate(img)
}

func (a *HeuristicAnalyzer) leafAreaIndex(seg Segmentation) float64 {
	lai := math.Round(seg.GreenRatio()*a.opts.LAIScale*10) / 10
	return math.Min(a.opts.LAIMax, math.Max(a.opts.LAIMin, lai))
}

func (a *HeuristicAnalyzer) severity(seg Segmentation) int {
	severity := int(seg.DiseasedRatio() * 100)
	if severity < a.opts.SeverityMin {
		return a.opts.SeverityMin
	}
	if severity > a.opts.SeverityMax {
		return a.opts.SeverityMax
	}
	return severity
}

// EstimateLeafAreaIndexBytes decodes data and returns its leaf area index.
func (a *HeuristicAnalyzer) EstimateLeafAreaIndexBytes(data []byte) float64 {
	return a.EstimateBytes(data).LeafAreaIndex
}

// EstimateDiseaseSeverityBytes decodes data and returns its disease severity.
func (a *HeuristicAnalyzer) EstimateDiseaseSeverityBytes(data []byte) int {
	return a.EstimateBytes(data).Severity
}
