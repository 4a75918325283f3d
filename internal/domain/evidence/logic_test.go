package evidence

import (
	"math"
	"testing"
	"time"
)

func TestSummarize(t *testing.T) {
	entries := []Entry{
		{Dimension: DimensionKPIs, Rating: 5},
		{Dimension: DimensionKPIs, Rating: 4},
		{Dimension: DimensionKPIs, Rating: 2},
		{Dimension: DimensionValues, Rating: 3},
	}
	summaries := Summarize(entries)
	if len(summaries) != 2 {
		t.Fatalf("got %d summaries, want 2", len(summaries))
	}

	// Canonical order puts kpis before values.
	kpis := summaries[0]
	if kpis.Dimension != DimensionKPIs {
		t.Fatalf("first summary dimension = %s, want kpis", kpis.Dimension)
	}
	if kpis.EntryCount != 3 || kpis.PositiveCount != 2 || kpis.NegativeCount != 1 {
		t.Fatalf("kpis counts wrong: %+v", kpis)
	}
	if math.Abs(kpis.AvgRating-11.0/3.0) > 1e-9 {
		t.Fatalf("kpis avg = %v, want %v", kpis.AvgRating, 11.0/3.0)
	}
	if kpis.MinRating != 2 || kpis.MaxRating != 5 {
		t.Fatalf("kpis min/max wrong: %+v", kpis)
	}

	values := summaries[1]
	if values.Dimension != DimensionValues || values.EntryCount != 1 || values.PositiveCount != 0 || values.NegativeCount != 0 {
		t.Fatalf("values summary wrong: %+v", values)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	if summaries := Summarize(nil); len(summaries) != 0 {
		t.Fatalf("expected no summaries, got %+v", summaries)
	}
}

func TestRecencyWeightedAverage(t *testing.T) {
	asOf := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)

	// A single entry always averages to its own rating regardless of age.
	single := []Entry{{Rating: 4, EntryDate: asOf.AddDate(0, -6, 0)}}
	if got := RecencyWeightedAverage(single, asOf, 90); math.Abs(got-4) > 1e-9 {
		t.Fatalf("single entry average = %v, want 4", got)
	}

	// A recent 5 pulls the average above the midpoint of 5 and 1 when the
	// 1 is a full half-life old.
	entries := []Entry{
		{Rating: 5, EntryDate: asOf},
		{Rating: 1, EntryDate: asOf.AddDate(0, 0, -90)},
	}
	got := RecencyWeightedAverage(entries, asOf, 90)
	// Weights 1.0 and 0.5: (5 + 0.5) / 1.5 = 11/3.
	if math.Abs(got-11.0/3.0) > 1e-9 {
		t.Fatalf("decayed average = %v, want %v", got, 11.0/3.0)
	}

	// Future-dated entries are treated as age zero, not boosted.
	future := []Entry{
		{Rating: 5, EntryDate: asOf.AddDate(0, 0, 30)},
		{Rating: 1, EntryDate: asOf},
	}
	if got := RecencyWeightedAverage(future, asOf, 90); math.Abs(got-3) > 1e-9 {
		t.Fatalf("future-dated average = %v, want 3", got)
	}

	if got := RecencyWeightedAverage(nil, asOf, 90); got != 0 {
		t.Fatalf("empty average = %v, want 0", got)
	}
}

func TestRecencyWeightedAverageDefaultHalfLife(t *testing.T) {
	asOf := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	entries := []Entry{
		{Rating: 5, EntryDate: asOf},
		{Rating: 1, EntryDate: asOf.AddDate(0, 0, -90)},
	}
	explicit := RecencyWeightedAverage(entries, asOf, 90)
	defaulted := RecencyWeightedAverage(entries, asOf, 0)
	if math.Abs(explicit-defaulted) > 1e-9 {
		t.Fatalf("default half-life diverges: %v vs %v", defaulted, explicit)
	}
}

func TestParseDimension(t *testing.T) {
	for _, dimension := range Dimensions() {
		parsed, err := ParseDimension(string(dimension))
		if err != nil || parsed != dimension {
			t.Fatalf("ParseDimension(%s) = %v, %v", dimension, parsed, err)
		}
	}
	if _, err := ParseDimension("attendance"); err == nil {
		t.Fatal("expected unknown dimension to be rejected")
	}
}
