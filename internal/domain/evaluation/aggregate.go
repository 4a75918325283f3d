package evaluation

import (
	"context"
	"fmt"
	"log/slog"

	"perfeval/internal/domain/evidence"
)

// Aggregate converts the employee's raw evidence for the period into four
// dimension results, a weighted overall rating, and a generated summary, then
// persists the full result set atomically. Safe to repeat: every pass
// replaces the previous results wholesale.
func (s *Service) Aggregate(ctx context.Context, evaluationID, employeeID int64, p Period) (AggregationOutcome, error) {
	return s.aggregateWith(ctx, s.store, evaluationID, employeeID, p)
}

// AggregateEvaluation resolves the evaluation's own employee and period
// before aggregating. Convenience path used by the workflow engine and the
// re-aggregation job.
func (s *Service) AggregateEvaluation(ctx context.Context, evaluationID int64) (AggregationOutcome, error) {
	return s.aggregateEvaluationWith(ctx, s.store, evaluationID)
}

func (s *Service) aggregateEvaluationWith(ctx context.Context, store StoreAPI, evaluationID int64) (AggregationOutcome, error) {
	e, err := store.GetEvaluation(ctx, evaluationID)
	if err != nil {
		return AggregationOutcome{}, err
	}
	p, err := s.periods.Get(ctx, e.PeriodID)
	if err != nil {
		return AggregationOutcome{}, fmt.Errorf("%w: period %d", ErrNotFound, e.PeriodID)
	}
	return s.aggregateWith(ctx, store, e.ID, e.EmployeeID, Period{ID: p.ID, StartDate: p.StartDate, EndDate: p.EndDate})
}

func (s *Service) aggregateWith(ctx context.Context, store StoreAPI, evaluationID, employeeID int64, p Period) (AggregationOutcome, error) {
	if evaluationID <= 0 || employeeID <= 0 {
		return AggregationOutcome{}, fmt.Errorf("%w: evaluation and employee ids must be positive", ErrInvalidArgument)
	}
	if p.EndDate.Before(p.StartDate) {
		return AggregationOutcome{}, ErrInvalidPeriod
	}

	summaries, err := s.evidence.DimensionSummaries(ctx, employeeID, p.StartDate, p.EndDate)
	if err != nil {
		return AggregationOutcome{}, fmt.Errorf("fetch dimension summaries: %w", err)
	}

	bySummary := map[evidence.Dimension]evidence.DimensionSummary{}
	for _, summary := range summaries {
		bySummary[summary.Dimension] = summary
	}

	results := make([]DimensionResult, 0, len(evidence.Dimensions()))
	for _, dimension := range evidence.Dimensions() {
		summary, ok := bySummary[dimension]
		if !ok {
			// Dimension coverage is always 4/4: absent evidence becomes a
			// zero-filled row, never a missing row.
			summary = evidence.DimensionSummary{Dimension: dimension}
		}
		result, _ := ScoreDimension(summary)
		result.EvaluationID = evaluationID
		results = append(results, result)
	}

	overall := round2(weightedOverall(results))
	coverage := coverageScore(results)
	total := totalEntries(results)
	level := classifyConfidence(total, coverage, meanConfidence(results))
	summary := buildSummary(results, overall, level)

	if err := store.SaveAggregation(ctx, evaluationID, results, overall, summary); err != nil {
		if s.metrics != nil {
			s.metrics.RecordAggregation(false)
		}
		return AggregationOutcome{}, fmt.Errorf("save aggregation: %w", err)
	}
	if s.metrics != nil {
		s.metrics.RecordAggregation(true)
	}

	return AggregationOutcome{
		EvaluationID:    evaluationID,
		OverallRating:   overall,
		CoverageScore:   coverage,
		TotalEntries:    total,
		ConfidenceLevel: level,
		Results:         results,
		Summary:         summary,
	}, nil
}

// BatchAggregate re-aggregates many evaluations inside one outer transaction.
// Per-id failures are isolated via savepoints and reported back; the batch
// only rolls back when the failure share exceeds the configured tolerance.
func (s *Service) BatchAggregate(ctx context.Context, evaluationIDs []int64) (BatchOutcome, error) {
	outcome := BatchOutcome{Items: make(map[int64]BatchItem, len(evaluationIDs))}
	if len(evaluationIDs) == 0 {
		return outcome, nil
	}

	err := s.store.WithTx(ctx, func(txStore StoreAPI) error {
		for _, id := range evaluationIDs {
			if _, err := s.aggregateEvaluationWith(ctx, txStore, id); err != nil {
				outcome.Items[id] = BatchItem{Error: err.Error()}
				outcome.Failed++
				slog.Warn("batch aggregation item failed", "evaluationId", id, "err", err)
				continue
			}
			outcome.Items[id] = BatchItem{OK: true}
			outcome.Succeeded++
		}
		if failureShare(outcome.Failed, len(evaluationIDs)) > s.batchTolerance {
			return fmt.Errorf("batch failure share exceeded tolerance %.2f (%d of %d failed)",
				s.batchTolerance, outcome.Failed, len(evaluationIDs))
		}
		return nil
	})
	if err != nil {
		outcome.RolledBack = true
		return outcome, err
	}
	return outcome, nil
}

func failureShare(failed, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(failed) / float64(total)
}

// weightedOverall computes the fixed-weight mean of calculated scores.
func weightedOverall(results []DimensionResult) float64 {
	var weightedSum, weightTotal float64
	for _, result := range results {
		weight := dimensionWeight(result.Dimension)
		weightedSum += result.CalculatedScore * weight
		weightTotal += weight
	}
	if weightTotal == 0 {
		return 0
	}
	return weightedSum / weightTotal
}

func coverageScore(results []DimensionResult) float64 {
	if len(results) == 0 {
		return 0
	}
	covered := 0
	for _, result := range results {
		if result.EntryCount > 0 {
			covered++
		}
	}
	return float64(covered) / float64(len(results))
}

func totalEntries(results []DimensionResult) int {
	total := 0
	for _, result := range results {
		total += result.EntryCount
	}
	return total
}

// meanConfidence averages the confidence factor over dimensions that have
// evidence; zero when none do.
func meanConfidence(results []DimensionResult) float64 {
	var sum float64
	covered := 0
	for _, result := range results {
		if result.EntryCount > 0 {
			sum += ConfidenceFactor(result.EntryCount)
			covered++
		}
	}
	if covered == 0 {
		return 0
	}
	return sum / float64(covered)
}

// classifyConfidence applies the ordered thresholds over total entries,
// coverage, and mean confidence.
func classifyConfidence(totalEntries int, coverage, avgConfidence float64) ConfidenceLevel {
	switch {
	case totalEntries == 0:
		return ConfidenceNone
	case totalEntries < 3 || coverage < 0.5:
		return ConfidenceLow
	case totalEntries < 8 || coverage < 0.75 || avgConfidence < 0.7:
		return ConfidenceModerate
	case totalEntries < 15 || avgConfidence < 0.85:
		return ConfidenceGood
	default:
		return ConfidenceHigh
	}
}

// AggregatedOverallRating recomputes the weighted overall from the stored,
// already confidence-adjusted dimension scores.
func (s *Service) AggregatedOverallRating(ctx context.Context, evaluationID int64) (float64, error) {
	results, err := s.store.ListDimensionResults(ctx, evaluationID)
	if err != nil {
		return 0, err
	}
	return round2(weightedOverall(results)), nil
}

// RecomputedOverallRating reapplies a confidence factor on top of the stored
// scores, discounting low-sample dimensions a second time. Kept as a distinct
// operation deliberately; see DESIGN.md before unifying with
// AggregatedOverallRating.
func (s *Service) RecomputedOverallRating(ctx context.Context, evaluationID int64) (float64, error) {
	results, err := s.store.ListDimensionResults(ctx, evaluationID)
	if err != nil {
		return 0, err
	}
	discounted := make([]DimensionResult, len(results))
	for i, result := range results {
		result.CalculatedScore = result.CalculatedScore * ConfidenceFactor(result.EntryCount)
		discounted[i] = result
	}
	return round2(weightedOverall(discounted)), nil
}
