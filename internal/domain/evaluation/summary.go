package evaluation

import (
	"fmt"
	"strings"

	"perfeval/internal/domain/evidence"
)

var dimensionLabels = map[evidence.Dimension]string{
	evidence.DimensionResponsibilities: "Key responsibilities",
	evidence.DimensionKPIs:             "Expected results",
	evidence.DimensionCompetencies:     "Skills & competencies",
	evidence.DimensionValues:           "Living the values",
}

const (
	developmentAreaThreshold = 3.0
	strengthThreshold        = 4.0
)

// buildSummary renders the per-dimension breakdown plus recommendations into
// the human-readable text stored on the evaluation.
func buildSummary(results []DimensionResult, overall float64, level ConfidenceLevel) string {
	var b strings.Builder
	b.WriteString("Evidence breakdown:\n")
	for _, result := range results {
		label := dimensionLabels[result.Dimension]
		if label == "" {
			label = string(result.Dimension)
		}
		if result.EntryCount == 0 {
			fmt.Fprintf(&b, "- %s: no evidence recorded\n", label)
			continue
		}
		fmt.Fprintf(&b, "- %s: %.2f/5 from %d entries (avg %.2f, %d positive, %d negative)\n",
			label, result.CalculatedScore, result.EntryCount, result.AvgRating, result.PositiveCount, result.NegativeCount)
	}

	recommendations := summaryRecommendations(results)
	if len(recommendations) > 0 {
		b.WriteString("Recommendations:\n")
		for _, rec := range recommendations {
			fmt.Fprintf(&b, "- %s\n", rec)
		}
	}

	fmt.Fprintf(&b, "Overall evidence rating: %.2f/5 (confidence: %s)", overall, level)
	return b.String()
}

func summaryRecommendations(results []DimensionResult) []string {
	var out []string
	for _, result := range results {
		label := dimensionLabels[result.Dimension]
		if label == "" {
			label = string(result.Dimension)
		}
		switch {
		case result.EntryCount == 0:
			out = append(out, fmt.Sprintf("Collect evidence for %s before the next review.", strings.ToLower(label)))
		case result.CalculatedScore < developmentAreaThreshold:
			out = append(out, fmt.Sprintf("%s is a development area.", label))
		case result.CalculatedScore >= strengthThreshold:
			out = append(out, fmt.Sprintf("%s is a strength.", label))
		}
	}
	return out
}
