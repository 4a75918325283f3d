package evaluation

import (
	"context"

	"perfeval/internal/platform/metrics"
)

type Service struct {
	store          StoreAPI
	evidence       EvidenceAPI
	periods        PeriodAPI
	directory      DirectoryAPI
	notify         Notifier
	metrics        *metrics.Collector
	batchTolerance float64
}

type Option func(*Service)

func WithNotifier(notifier Notifier) Option {
	return func(s *Service) { s.notify = notifier }
}

func WithMetrics(collector *metrics.Collector) Option {
	return func(s *Service) { s.metrics = collector }
}

// WithBatchFailureTolerance sets the failure share a batch tolerates before
// the whole outer transaction rolls back.
func WithBatchFailureTolerance(tolerance float64) Option {
	return func(s *Service) {
		if tolerance >= 0 && tolerance <= 1 {
			s.batchTolerance = tolerance
		}
	}
}

func NewService(store StoreAPI, evidenceSource EvidenceAPI, periods PeriodAPI, dir DirectoryAPI, opts ...Option) *Service {
	s := &Service{
		store:          store,
		evidence:       evidenceSource,
		periods:        periods,
		directory:      dir,
		batchTolerance: 0.9,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Get(ctx context.Context, evaluationID int64) (Evaluation, error) {
	return s.store.GetEvaluation(ctx, evaluationID)
}

func (s *Service) DimensionResults(ctx context.Context, evaluationID int64) ([]DimensionResult, error) {
	return s.store.ListDimensionResults(ctx, evaluationID)
}

func (s *Service) Transitions(ctx context.Context, evaluationID int64) ([]WorkflowTransition, error) {
	return s.store.ListTransitions(ctx, evaluationID)
}

func (s *Service) StaleEvaluationIDs(ctx context.Context, limit int) ([]int64, error) {
	return s.store.StaleEvaluationIDs(ctx, limit)
}
