package evidence

import (
	"fmt"
	"time"
)

// Dimension is one of the four performance dimensions evidence is filed under.
type Dimension string

const (
	DimensionResponsibilities Dimension = "responsibilities"
	DimensionKPIs             Dimension = "kpis"
	DimensionCompetencies     Dimension = "competencies"
	DimensionValues           Dimension = "values"
)

// Dimensions returns every dimension in canonical order.
func Dimensions() []Dimension {
	return []Dimension{
		DimensionResponsibilities,
		DimensionKPIs,
		DimensionCompetencies,
		DimensionValues,
	}
}

func ParseDimension(value string) (Dimension, error) {
	switch Dimension(value) {
	case DimensionResponsibilities, DimensionKPIs, DimensionCompetencies, DimensionValues:
		return Dimension(value), nil
	}
	return "", fmt.Errorf("unknown dimension %q", value)
}

// Entry is a single manager-authored observation. Immutable once created.
type Entry struct {
	ID         int64     `json:"id"`
	EmployeeID int64     `json:"employeeId"`
	AuthorID   int64     `json:"authorId"`
	Dimension  Dimension `json:"dimension"`
	Rating     int       `json:"rating"`
	Content    string    `json:"content"`
	EntryDate  time.Time `json:"entryDate"`
	CreatedAt  time.Time `json:"createdAt"`
}

// DimensionSummary is the per-dimension roll-up over a date window.
// It is computed on read and never persisted.
type DimensionSummary struct {
	Dimension     Dimension `json:"dimension"`
	EntryCount    int       `json:"entryCount"`
	AvgRating     float64   `json:"avgRating"`
	PositiveCount int       `json:"positiveCount"`
	NegativeCount int       `json:"negativeCount"`
	MinRating     int       `json:"minRating"`
	MaxRating     int       `json:"maxRating"`
}
