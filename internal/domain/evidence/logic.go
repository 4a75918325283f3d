package evidence

import (
	"math"
	"time"
)

const (
	positiveRatingFloor = 4
	negativeRatingCeil  = 2
)

// Summarize rolls raw entries up into one DimensionSummary per dimension
// present in the input. Dimensions with no entries are omitted.
func Summarize(entries []Entry) []DimensionSummary {
	byDimension := map[Dimension]*DimensionSummary{}
	for _, entry := range entries {
		summary, ok := byDimension[entry.Dimension]
		if !ok {
			summary = &DimensionSummary{Dimension: entry.Dimension, MinRating: entry.Rating, MaxRating: entry.Rating}
			byDimension[entry.Dimension] = summary
		}
		summary.EntryCount++
		summary.AvgRating += float64(entry.Rating)
		if entry.Rating >= positiveRatingFloor {
			summary.PositiveCount++
		}
		if entry.Rating <= negativeRatingCeil {
			summary.NegativeCount++
		}
		if entry.Rating < summary.MinRating {
			summary.MinRating = entry.Rating
		}
		if entry.Rating > summary.MaxRating {
			summary.MaxRating = entry.Rating
		}
	}

	var out []DimensionSummary
	for _, dimension := range Dimensions() {
		if summary, ok := byDimension[dimension]; ok {
			summary.AvgRating /= float64(summary.EntryCount)
			out = append(out, *summary)
		}
	}
	return out
}

// RecencyWeightedAverage computes an exponentially decayed average rating,
// halving an entry's weight every halfLifeDays before asOf. Retrieval
// primitive only; dimension scoring currently weights all entries equally.
func RecencyWeightedAverage(entries []Entry, asOf time.Time, halfLifeDays float64) float64 {
	if halfLifeDays <= 0 {
		halfLifeDays = 90
	}
	var weighted, total float64
	for _, entry := range entries {
		ageDays := asOf.Sub(entry.EntryDate).Hours() / 24
		if ageDays < 0 {
			ageDays = 0
		}
		weight := math.Pow(0.5, ageDays/halfLifeDays)
		weighted += float64(entry.Rating) * weight
		total += weight
	}
	if total == 0 {
		return 0
	}
	return weighted / total
}
