package domain

import "math"

// CorrelationStrength is a display label for the magnitude of a Pearson coefficient.
type CorrelationStrength string

const (
	CorrelationWeak      CorrelationStrength = "weak"
	CorrelationModerate  CorrelationStrength = "moderate"
	CorrelationStrong    CorrelationStrength = "strong"
	CorrelationUndefined CorrelationStrength = "undefined"
)

// ClassifyCorrelation buckets |r|: below 0.3 weak, below 0.7 moderate, otherwise
// strong. NaN (zero variance or too few rows) is undefined.
func ClassifyCorrelation(r float64) CorrelationStrength {
	if math.IsNaN(r) {
		return CorrelationUndefined
	}
	switch a := math.Abs(r); {
	case a < 0.3:
		return CorrelationWeak
	case a < 0.7:
		return CorrelationModerate
	default:
		return CorrelationStrong
	}
}
