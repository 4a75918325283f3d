package evaluation

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"perfeval/internal/domain/evidence"
)

func TestWeightedOverall(t *testing.T) {
	results := []DimensionResult{
		{Dimension: evidence.DimensionResponsibilities, CalculatedScore: 3.0},
		{Dimension: evidence.DimensionKPIs, CalculatedScore: 4.0},
		{Dimension: evidence.DimensionCompetencies, CalculatedScore: 3.0},
		{Dimension: evidence.DimensionValues, CalculatedScore: 3.0},
	}
	// 3*0.25 + 4*0.30 + 3*0.25 + 3*0.20 = 3.3
	if got := round2(weightedOverall(results)); got != 3.3 {
		t.Fatalf("weighted overall = %v, want 3.3", got)
	}

	spread := []DimensionResult{
		{Dimension: evidence.DimensionResponsibilities, CalculatedScore: 5.0},
		{Dimension: evidence.DimensionKPIs, CalculatedScore: 4.0},
		{Dimension: evidence.DimensionCompetencies, CalculatedScore: 3.0},
		{Dimension: evidence.DimensionValues, CalculatedScore: 2.0},
	}
	// 5*0.25 + 4*0.30 + 3*0.25 + 2*0.20 = 3.6
	if got := round2(weightedOverall(spread)); got != 3.6 {
		t.Fatalf("weighted overall = %v, want 3.6", got)
	}

	if got := weightedOverall(nil); got != 0 {
		t.Fatalf("empty weighted overall = %v, want 0", got)
	}
}

func TestClassifyConfidence(t *testing.T) {
	cases := []struct {
		name          string
		total         int
		coverage      float64
		avgConfidence float64
		want          ConfidenceLevel
	}{
		{"no evidence", 0, 0, 0, ConfidenceNone},
		{"too few entries", 2, 1.0, 0.7, ConfidenceLow},
		{"poor coverage", 10, 0.25, 0.95, ConfidenceLow},
		{"half coverage", 10, 0.5, 0.95, ConfidenceModerate},
		{"few entries full coverage", 5, 1.0, 0.85, ConfidenceModerate},
		{"low avg confidence", 20, 1.0, 0.6, ConfidenceModerate},
		{"good", 10, 1.0, 0.9, ConfidenceGood},
		{"plenty but uncertain", 20, 1.0, 0.8, ConfidenceGood},
		{"high", 20, 1.0, 0.95, ConfidenceHigh},
	}
	for _, tc := range cases {
		if got := classifyConfidence(tc.total, tc.coverage, tc.avgConfidence); got != tc.want {
			t.Fatalf("%s: classifyConfidence(%d, %v, %v) = %s, want %s",
				tc.name, tc.total, tc.coverage, tc.avgConfidence, got, tc.want)
		}
	}
}

func TestAggregateZeroEvidence(t *testing.T) {
	store := newFakeStore()
	id, err := store.CreateEvaluation(context.Background(), Evaluation{
		EmployeeID: 1, EvaluatorID: 1, PeriodID: 1, Type: TypeSelf, State: StatePendingSelf,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	svc := newTestService(store, nil, nil, nil)

	outcome, err := svc.AggregateEvaluation(context.Background(), id)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if len(outcome.Results) != 4 {
		t.Fatalf("expected 4 zero-filled results, got %d", len(outcome.Results))
	}
	for i, dimension := range evidence.Dimensions() {
		result := outcome.Results[i]
		if result.Dimension != dimension {
			t.Fatalf("result %d dimension = %s, want %s", i, result.Dimension, dimension)
		}
		if result.EntryCount != 0 || result.CalculatedScore != 0 {
			t.Fatalf("result %d not zeroed: %+v", i, result)
		}
		if result.EvaluationID != id {
			t.Fatalf("result %d evaluation id = %d, want %d", i, result.EvaluationID, id)
		}
	}
	if outcome.OverallRating != 0 || outcome.TotalEntries != 0 || outcome.CoverageScore != 0 {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if outcome.ConfidenceLevel != ConfidenceNone {
		t.Fatalf("confidence level = %s, want none", outcome.ConfidenceLevel)
	}
	if !strings.Contains(outcome.Summary, "no evidence recorded") {
		t.Fatalf("summary missing no-evidence lines:\n%s", outcome.Summary)
	}
}

func TestAggregateComputesAndPersists(t *testing.T) {
	store := newFakeStore()
	id, err := store.CreateEvaluation(context.Background(), Evaluation{
		EmployeeID: 7, EvaluatorID: 7, PeriodID: 1, Type: TypeSelf, State: StatePendingSelf,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	ev := &fakeEvidence{summaries: map[int64][]evidence.DimensionSummary{
		7: {
			{Dimension: evidence.DimensionResponsibilities, EntryCount: 5, AvgRating: 4.0, PositiveCount: 3, NegativeCount: 1},
			{Dimension: evidence.DimensionKPIs, EntryCount: 10, AvgRating: 4.5, PositiveCount: 8},
			{Dimension: evidence.DimensionCompetencies, EntryCount: 2, AvgRating: 3.0, PositiveCount: 1, NegativeCount: 1},
		},
	}}
	svc := newTestService(store, ev, nil, nil)

	outcome, err := svc.AggregateEvaluation(context.Background(), id)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if outcome.TotalEntries != 17 {
		t.Fatalf("total entries = %d, want 17", outcome.TotalEntries)
	}
	if outcome.CoverageScore != 0.75 {
		t.Fatalf("coverage = %v, want 0.75", outcome.CoverageScore)
	}
	// 17 entries, coverage exactly at the 0.75 floor, mean confidence just
	// under 0.85.
	if outcome.ConfidenceLevel != ConfidenceGood {
		t.Fatalf("confidence level = %s, want good", outcome.ConfidenceLevel)
	}
	if want := round2(weightedOverall(outcome.Results)); outcome.OverallRating != want {
		t.Fatalf("overall = %v, want %v", outcome.OverallRating, want)
	}

	persisted, err := store.ListDimensionResults(context.Background(), id)
	if err != nil {
		t.Fatalf("list results: %v", err)
	}
	if len(persisted) != 4 {
		t.Fatalf("persisted %d results, want 4", len(persisted))
	}
	saved, err := store.GetEvaluation(context.Background(), id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if saved.EvidenceRating != outcome.OverallRating {
		t.Fatalf("stored rating = %v, want %v", saved.EvidenceRating, outcome.OverallRating)
	}
	if saved.EvidenceSummary != outcome.Summary {
		t.Fatal("stored summary does not match outcome")
	}
}

func TestAggregateIsIdempotent(t *testing.T) {
	store := newFakeStore()
	id, _ := store.CreateEvaluation(context.Background(), Evaluation{
		EmployeeID: 7, EvaluatorID: 7, PeriodID: 1, Type: TypeSelf, State: StatePendingSelf,
	})
	ev := &fakeEvidence{summaries: map[int64][]evidence.DimensionSummary{
		7: {{Dimension: evidence.DimensionKPIs, EntryCount: 4, AvgRating: 4.0, PositiveCount: 2}},
	}}
	svc := newTestService(store, ev, nil, nil)

	first, err := svc.AggregateEvaluation(context.Background(), id)
	if err != nil {
		t.Fatalf("first aggregate: %v", err)
	}
	second, err := svc.AggregateEvaluation(context.Background(), id)
	if err != nil {
		t.Fatalf("second aggregate: %v", err)
	}
	if first.OverallRating != second.OverallRating {
		t.Fatalf("ratings diverged: %v vs %v", first.OverallRating, second.OverallRating)
	}
	persisted, _ := store.ListDimensionResults(context.Background(), id)
	if len(persisted) != 4 {
		t.Fatalf("repeat aggregation left %d results, want 4", len(persisted))
	}
}

func TestAggregateRejectsBadInput(t *testing.T) {
	svc := newTestService(newFakeStore(), nil, nil, nil)

	if _, err := svc.Aggregate(context.Background(), 0, 1, Period{}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("zero evaluation id: got %v, want ErrInvalidArgument", err)
	}
	if _, err := svc.Aggregate(context.Background(), 1, 0, Period{}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("zero employee id: got %v, want ErrInvalidArgument", err)
	}

	p := testPeriod(1)
	if _, err := svc.Aggregate(context.Background(), 1, 1, Period{ID: 1, StartDate: p.EndDate, EndDate: p.StartDate}); !errors.Is(err, ErrInvalidPeriod) {
		t.Fatalf("inverted period: got %v, want ErrInvalidPeriod", err)
	}
}

func TestAggregateEvaluationUnknownPeriod(t *testing.T) {
	store := newFakeStore()
	id, _ := store.CreateEvaluation(context.Background(), Evaluation{
		EmployeeID: 1, EvaluatorID: 1, PeriodID: 99, Type: TypeSelf, State: StatePendingSelf,
	})
	svc := newTestService(store, nil, nil, nil)

	if _, err := svc.AggregateEvaluation(context.Background(), id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown period: got %v, want ErrNotFound", err)
	}
}

func TestBatchAggregateToleratesMinorityFailures(t *testing.T) {
	store := newFakeStore()
	var ids []int64
	for i := int64(1); i <= 3; i++ {
		id, _ := store.CreateEvaluation(context.Background(), Evaluation{
			EmployeeID: i, EvaluatorID: i, PeriodID: 1, Type: TypeSelf, State: StatePendingSelf,
		})
		ids = append(ids, id)
	}
	store.failSaveFor[ids[1]] = true
	svc := newTestService(store, nil, nil, nil)

	outcome, err := svc.BatchAggregate(context.Background(), ids)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if outcome.Succeeded != 2 || outcome.Failed != 1 || outcome.RolledBack {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if item := outcome.Items[ids[1]]; item.OK || item.Error == "" {
		t.Fatalf("failed item not reported: %+v", item)
	}

	// The two healthy evaluations kept their results.
	for _, id := range []int64{ids[0], ids[2]} {
		results, _ := store.ListDimensionResults(context.Background(), id)
		if len(results) != 4 {
			t.Fatalf("evaluation %d has %d results after batch, want 4", id, len(results))
		}
	}
}

func TestBatchAggregateRollsBackPastTolerance(t *testing.T) {
	store := newFakeStore()
	var ids []int64
	for i := int64(1); i <= 2; i++ {
		id, _ := store.CreateEvaluation(context.Background(), Evaluation{
			EmployeeID: i, EvaluatorID: i, PeriodID: 1, Type: TypeSelf, State: StatePendingSelf,
		})
		ids = append(ids, id)
	}
	store.failSaveFor[ids[1]] = true
	svc := newTestService(store, nil, nil, nil, WithBatchFailureTolerance(0.2))

	outcome, err := svc.BatchAggregate(context.Background(), ids)
	if err == nil {
		t.Fatal("expected batch to fail past tolerance")
	}
	if !outcome.RolledBack {
		t.Fatalf("outcome not marked rolled back: %+v", outcome)
	}

	// Rollback discards the successful item's results too.
	results, _ := store.ListDimensionResults(context.Background(), ids[0])
	if len(results) != 0 {
		t.Fatalf("evaluation %d kept %d results after rollback", ids[0], len(results))
	}
}

func TestBatchAggregateToleranceBoundary(t *testing.T) {
	// A failure share exactly at the tolerance is accepted; only strictly
	// exceeding it rolls back.
	store := newFakeStore()
	var ids []int64
	for i := int64(1); i <= 2; i++ {
		id, _ := store.CreateEvaluation(context.Background(), Evaluation{
			EmployeeID: i, EvaluatorID: i, PeriodID: 1, Type: TypeSelf, State: StatePendingSelf,
		})
		ids = append(ids, id)
	}
	store.failSaveFor[ids[1]] = true
	svc := newTestService(store, nil, nil, nil, WithBatchFailureTolerance(0.5))

	outcome, err := svc.BatchAggregate(context.Background(), ids)
	if err != nil {
		t.Fatalf("batch at boundary: %v", err)
	}
	if outcome.RolledBack || outcome.Failed != 1 {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
}

func TestBatchAggregateEmpty(t *testing.T) {
	svc := newTestService(newFakeStore(), nil, nil, nil)
	outcome, err := svc.BatchAggregate(context.Background(), nil)
	if err != nil {
		t.Fatalf("empty batch: %v", err)
	}
	if outcome.Succeeded != 0 || outcome.Failed != 0 || outcome.RolledBack {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
}

func TestOverallRatingVariants(t *testing.T) {
	store := newFakeStore()
	id, _ := store.CreateEvaluation(context.Background(), Evaluation{
		EmployeeID: 1, EvaluatorID: 1, PeriodID: 1, Type: TypeSelf, State: StatePendingSelf,
	})
	store.results[id] = []DimensionResult{
		{Dimension: evidence.DimensionResponsibilities, EntryCount: 1, CalculatedScore: 4.0},
		{Dimension: evidence.DimensionKPIs, EntryCount: 20, CalculatedScore: 4.0},
		{Dimension: evidence.DimensionCompetencies, EntryCount: 20, CalculatedScore: 4.0},
		{Dimension: evidence.DimensionValues, EntryCount: 20, CalculatedScore: 4.0},
	}
	svc := newTestService(store, nil, nil, nil)

	aggregated, err := svc.AggregatedOverallRating(context.Background(), id)
	if err != nil {
		t.Fatalf("aggregated: %v", err)
	}
	recomputed, err := svc.RecomputedOverallRating(context.Background(), id)
	if err != nil {
		t.Fatalf("recomputed: %v", err)
	}
	if aggregated != 4.0 {
		t.Fatalf("aggregated = %v, want 4.0", aggregated)
	}
	// The recomputed variant discounts the single-entry dimension again, so
	// the two figures deliberately differ.
	if recomputed >= aggregated {
		t.Fatalf("recomputed = %v, expected below aggregated %v", recomputed, aggregated)
	}
	want := round2(4.0*0.5*0.25 + 4.0*0.30 + 4.0*0.25 + 4.0*0.20)
	if math.Abs(recomputed-want) > 1e-9 {
		t.Fatalf("recomputed = %v, want %v", recomputed, want)
	}
}
