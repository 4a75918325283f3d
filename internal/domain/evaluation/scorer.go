package evaluation

import (
	"log/slog"
	"math"

	"perfeval/internal/domain/evidence"
)

// ConfidenceFactor maps sample size to trust in the average. Monotonic step
// function; zero entries yield zero confidence.
func ConfidenceFactor(entryCount int) float64 {
	switch {
	case entryCount <= 0:
		return 0
	case entryCount == 1:
		return 0.5
	case entryCount <= 3:
		return 0.7
	case entryCount <= 7:
		return 0.85
	case entryCount <= 15:
		return 0.95
	default:
		return 1.0
	}
}

// TrendFactor rewards a higher share of positive (>=4 star) over negative
// (<=2 star) evidence. Always within [0.8, 1.2] for a non-empty sample.
func TrendFactor(entryCount, positiveCount, negativeCount int) float64 {
	if entryCount <= 0 {
		return 0
	}
	neutral := entryCount - positiveCount - negativeCount
	if neutral < 0 {
		neutral = 0
	}
	trendScore := (float64(positiveCount)*1.0 + float64(neutral)*0.5) / float64(entryCount)
	return 0.8 + trendScore*0.4
}

// RecencyFactor is a reserved extension point. Entries are currently weighted
// equally regardless of age; the decayed retrieval primitive lives in the
// evidence package.
func RecencyFactor() float64 {
	return 1.0
}

// ScoreDimension converts one dimension summary into an adjusted result.
// It never fails: invalid input degrades to a zero score with a logged anomaly.
func ScoreDimension(summary evidence.DimensionSummary) (DimensionResult, ScoreFactors) {
	result := DimensionResult{
		Dimension:     summary.Dimension,
		EntryCount:    summary.EntryCount,
		PositiveCount: summary.PositiveCount,
		NegativeCount: summary.NegativeCount,
	}
	if summary.EntryCount <= 0 {
		return result, ScoreFactors{RecencyFactor: RecencyFactor()}
	}

	avg := summary.AvgRating
	if math.IsNaN(avg) || math.IsInf(avg, 0) || avg < 0 || avg > 5 {
		slog.Warn("dimension summary has invalid average rating",
			"dimension", summary.Dimension,
			"avgRating", summary.AvgRating,
			"entryCount", summary.EntryCount,
		)
		avg = 0
	}

	factors := ScoreFactors{
		ConfidenceFactor: ConfidenceFactor(summary.EntryCount),
		TrendFactor:      TrendFactor(summary.EntryCount, summary.PositiveCount, summary.NegativeCount),
		RecencyFactor:    RecencyFactor(),
	}

	score := avg * factors.ConfidenceFactor * factors.TrendFactor * factors.RecencyFactor
	result.AvgRating = round2(avg)
	result.CalculatedScore = round2(clamp(score, 0, 5))
	return result, factors
}

func clamp(value, lo, hi float64) float64 {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
