package evaluation

import (
	"context"
	"time"

	"perfeval/internal/domain/directory"
	"perfeval/internal/domain/evidence"
	"perfeval/internal/domain/period"
)

// StoreAPI is the only write path the engine uses for evaluation records.
type StoreAPI interface {
	GetEvaluation(ctx context.Context, evaluationID int64) (Evaluation, error)
	GetEvaluationByType(ctx context.Context, employeeID, periodID int64, evaluationType EvaluationType) (Evaluation, error)
	CreateEvaluation(ctx context.Context, e Evaluation) (int64, error)
	UpdateSectionScores(ctx context.Context, evaluationID int64, scores SectionScores) error
	// SaveAggregation atomically replaces all dimension results and writes the
	// evidence rating and summary. Full replace, never field-by-field patching.
	SaveAggregation(ctx context.Context, evaluationID int64, results []DimensionResult, rating float64, summary string) error
	ListDimensionResults(ctx context.Context, evaluationID int64) ([]DimensionResult, error)
	// TransitionState moves the evaluation from -> to, stamps the lifecycle
	// timestamp implied by the target state, and appends the transition audit
	// row, all in one atomic unit. A state mismatch fails without mutation.
	TransitionState(ctx context.Context, evaluationID int64, from, to WorkflowState, actorID int64) error
	ListTransitions(ctx context.Context, evaluationID int64) ([]WorkflowTransition, error)
	StaleEvaluationIDs(ctx context.Context, limit int) ([]int64, error)
	// WithTx runs fn against a store bound to a single transaction. Nested
	// SaveAggregation calls become savepoints, so one failed evaluation does
	// not poison the rest of a batch.
	WithTx(ctx context.Context, fn func(StoreAPI) error) error
}

type EvidenceAPI interface {
	DimensionSummaries(ctx context.Context, employeeID int64, start, end time.Time) ([]evidence.DimensionSummary, error)
}

type PeriodAPI interface {
	Get(ctx context.Context, periodID int64) (period.Period, error)
}

type DirectoryAPI interface {
	Get(ctx context.Context, employeeID int64) (directory.Employee, error)
	ListActive(ctx context.Context) ([]directory.Employee, error)
}

// Notifier is informed of significant transitions; failures are logged and
// never fail the operation.
type Notifier interface {
	Create(ctx context.Context, employeeID int64, notificationType, title, body string) error
}
