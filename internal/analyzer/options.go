package analyzer

// HSVRange is an inclusive range on OpenCV's 8-bit HSV scale
// (H in [0,180], S and V in [0,255]).
type HSVRange struct {
	Lower [3]uint8
	Upper [3]uint8
}

// Contains reports whether h, s, v fall inside the range.
func (r HSVRange) Contains(h, s, v uint8) bool {
	return h >= r.Lower[0] && h <= r.Upper[0] &&
		s >= r.Lower[1] && s <= r.Upper[1] &&
		v >= r.Lower[2] && v <= r.Upper[2]
}

// HeuristicOptions configures segmentation thresholds and the estimator scales.
type HeuristicOptions struct {
	// Live tissue.
	Green HSVRange

	// Diseased tissue, unioned.
	Brown  HSVRange
	Yellow HSVRange
	Dark   HSVRange

	LAIScale float64
	LAIMin   float64
	LAIMax   float64

	SeverityMin int
	SeverityMax int

	// Returned when an image cannot be read or segmented.
	DefaultLAI      float64
	DefaultSeverity int

	// Performance options
	MaxWorkers int
}

// DefaultHeuristicOptions returns the standard leaf segmentation settings.
func DefaultHeuristicOptions() HeuristicOptions {
	return HeuristicOptions{
		Green:  HSVRange{Lower: [3]uint8{35, 40, 40}, Upper: [3]uint8{80, 255, 255}},
		Brown:  HSVRange{Lower: [3]uint8{8, 50, 20}, Upper: [3]uint8{20, 255, 200}},
		Yellow: HSVRange{Lower: [3]uint8{20, 100, 100}, Upper: [3]uint8{30, 255, 255}},
		Dark:   HSVRange{Lower: [3]uint8{0, 0, 0}, Upper: [3]uint8{180, 255, 50}},

		LAIScale: 5.0,
		LAIMin:   0.1,
		LAIMax:   8.0,

		SeverityMin: 5,
		SeverityMax: 90,

		DefaultLAI:      2.0,
		DefaultSeverity: 25,

		MaxWorkers: 0, // Use default CPU count
	}
}

// WithGreenRange overrides the live-tissue range.
func (o HeuristicOptions) WithGreenRange(r HSVRange) HeuristicOptions {
	o.Green = r
	return o
}

// WithDiseaseRanges overrides the three diseased-tissue ranges.
func (o HeuristicOptions) WithDiseaseRanges(brown, yellow, dark HSVRange) HeuristicOptions {
	o.Brown = brown
	o.Yellow = yellow
	o.Dark = dark
	return o
}

// WithMaxWorkers bounds the goroutines used per image.
func (o HeuristicOptions) WithMaxWorkers(n int) HeuristicOptions {
	o.MaxWorkers = n
	return o
}

func (o HeuristicOptions) diseased(h, s, v uint8) bool {
	return o.Brown.Contains(h, s, v) || o.Yellow.Contains(h, s, v) || o.Dark.Contains(h, s, v)
}
