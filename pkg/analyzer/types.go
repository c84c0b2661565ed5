package analyzer

// Usage patterns
const (
	PatternOutliers        = "Outliers"
	PatternConsistent      = "Consistent"
	PatternPeaksAndValleys = "Peaks and Valleys"
	PatternRandom          = "Random"
	PatternUnknown         = "Unknown"
)

// InsufficientDataNote is the rationale attached to Unknown results
const InsufficientDataNote = "Insufficient data for pattern analysis."

// Thresholds tune the rule-based classifier
type Thresholds struct {
	OutlierFraction   float64 // share of samples above the IQR fence
	IQRMultiplier     float64
	ConsistentStdDev  float64 // avg CPU stddev below which usage is Consistent
	PeakRatio         float64 // weekday/weekend ratio above which usage is Peaks and Valleys
	BusinessHourStart int
	BusinessHourEnd   int // inclusive
}

// DefaultThresholds returns the empirical defaults
func DefaultThresholds() Thresholds {
	return Thresholds{
		OutlierFraction:   0.15,
		IQRMultiplier:     1.5,
		ConsistentStdDev:  5,
		PeakRatio:         1.5,
		BusinessHourStart: 9,
		BusinessHourEnd:   17,
	}
}

// PatternResult is the classification of one instance
type PatternResult struct {
	Pattern string
	Notes   string
}

// outlierSummary describes samples above the IQR fence
type outlierSummary struct {
	count      int
	commonDay  string
	dayCount   int
	hourRanges []string
}

var (
	weekdays    = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}
	weekendDays = []string{"Saturday", "Sunday"}
)
