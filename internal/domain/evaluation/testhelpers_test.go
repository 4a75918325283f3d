package evaluation

import (
	"context"
	"fmt"
	"time"

	"perfeval/internal/domain/directory"
	"perfeval/internal/domain/evidence"
	"perfeval/internal/domain/period"
)

// fakeStore is an in-memory StoreAPI with the same compare-and-set and
// uniqueness behavior as the SQL store.
type fakeStore struct {
	nextID      int64
	evaluations map[int64]Evaluation
	results     map[int64][]DimensionResult
	transitions []WorkflowTransition
	stale       []int64

	// failSaveFor makes SaveAggregation fail for specific evaluation ids.
	failSaveFor map[int64]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		evaluations: make(map[int64]Evaluation),
		results:     make(map[int64][]DimensionResult),
		failSaveFor: make(map[int64]bool),
	}
}

func (f *fakeStore) GetEvaluation(ctx context.Context, evaluationID int64) (Evaluation, error) {
	e, ok := f.evaluations[evaluationID]
	if !ok {
		return Evaluation{}, ErrNotFound
	}
	return e, nil
}

func (f *fakeStore) GetEvaluationByType(ctx context.Context, employeeID, periodID int64, evaluationType EvaluationType) (Evaluation, error) {
	for _, e := range f.evaluations {
		if e.EmployeeID == employeeID && e.PeriodID == periodID && e.Type == evaluationType {
			return e, nil
		}
	}
	return Evaluation{}, ErrNotFound
}

func (f *fakeStore) CreateEvaluation(ctx context.Context, e Evaluation) (int64, error) {
	if _, err := f.GetEvaluationByType(ctx, e.EmployeeID, e.PeriodID, e.Type); err == nil {
		return 0, ErrDuplicateEvaluation
	}
	f.nextID++
	e.ID = f.nextID
	e.CreatedAt = time.Now()
	f.evaluations[e.ID] = e
	return e.ID, nil
}

func (f *fakeStore) UpdateSectionScores(ctx context.Context, evaluationID int64, scores SectionScores) error {
	e, ok := f.evaluations[evaluationID]
	if !ok {
		return ErrNotFound
	}
	if scores.KeyResponsibilities != nil {
		e.KeyResponsibilitiesScore = scores.KeyResponsibilities
	}
	if scores.ExpectedResults != nil {
		e.ExpectedResultsScore = scores.ExpectedResults
	}
	if scores.SkillsCompetencies != nil {
		e.SkillsCompetenciesScore = scores.SkillsCompetencies
	}
	if scores.LivingValues != nil {
		e.LivingValuesScore = scores.LivingValues
	}
	if scores.Overall != nil {
		e.OverallRating = scores.Overall
	}
	if scores.Comments != nil {
		if e.Type == TypeManager {
			e.ManagerComments = *scores.Comments
		} else {
			e.SelfComments = *scores.Comments
		}
	}
	f.evaluations[evaluationID] = e
	return nil
}

func (f *fakeStore) SaveAggregation(ctx context.Context, evaluationID int64, results []DimensionResult, rating float64, summary string) error {
	if f.failSaveFor[evaluationID] {
		return fmt.Errorf("save failed for %d", evaluationID)
	}
	e, ok := f.evaluations[evaluationID]
	if !ok {
		return ErrNotFound
	}
	f.results[evaluationID] = append([]DimensionResult(nil), results...)
	e.EvidenceRating = rating
	e.EvidenceSummary = summary
	f.evaluations[evaluationID] = e
	return nil
}

func (f *fakeStore) ListDimensionResults(ctx context.Context, evaluationID int64) ([]DimensionResult, error) {
	return append([]DimensionResult(nil), f.results[evaluationID]...), nil
}

func (f *fakeStore) TransitionState(ctx context.Context, evaluationID int64, from, to WorkflowState, actorID int64) error {
	e, ok := f.evaluations[evaluationID]
	if !ok {
		return ErrNotFound
	}
	if e.State != from {
		return fmt.Errorf("%w: evaluation is %s, expected %s", ErrInvalidTransition, e.State, from)
	}
	e.State = to
	now := time.Now()
	switch to {
	case StateSelfSubmitted:
		e.SelfSubmittedAt = &now
	case StateManagerSubmitted:
		e.ManagerReviewedAt = &now
	case StateFinalDelivered:
		e.FinalizedAt = &now
	}
	f.evaluations[evaluationID] = e
	f.transitions = append(f.transitions, WorkflowTransition{
		ID:           int64(len(f.transitions) + 1),
		EvaluationID: evaluationID,
		FromState:    from,
		ToState:      to,
		ActorID:      actorID,
		CreatedAt:    now,
	})
	return nil
}

func (f *fakeStore) ListTransitions(ctx context.Context, evaluationID int64) ([]WorkflowTransition, error) {
	var out []WorkflowTransition
	for _, tr := range f.transitions {
		if tr.EvaluationID == evaluationID {
			out = append(out, tr)
		}
	}
	return out, nil
}

func (f *fakeStore) StaleEvaluationIDs(ctx context.Context, limit int) ([]int64, error) {
	if limit > 0 && len(f.stale) > limit {
		return f.stale[:limit], nil
	}
	return f.stale, nil
}

// WithTx snapshots the store and restores it when fn fails, mirroring the
// rollback of the real outer transaction.
func (f *fakeStore) WithTx(ctx context.Context, fn func(StoreAPI) error) error {
	evals := make(map[int64]Evaluation, len(f.evaluations))
	for k, v := range f.evaluations {
		evals[k] = v
	}
	results := make(map[int64][]DimensionResult, len(f.results))
	for k, v := range f.results {
		results[k] = append([]DimensionResult(nil), v...)
	}
	transitions := append([]WorkflowTransition(nil), f.transitions...)
	nextID := f.nextID

	if err := fn(f); err != nil {
		f.evaluations = evals
		f.results = results
		f.transitions = transitions
		f.nextID = nextID
		return err
	}
	return nil
}

type fakeEvidence struct {
	summaries map[int64][]evidence.DimensionSummary
	err       error
}

func (f *fakeEvidence) DimensionSummaries(ctx context.Context, employeeID int64, start, end time.Time) ([]evidence.DimensionSummary, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.summaries[employeeID], nil
}

type fakePeriods struct {
	periods map[int64]period.Period
}

func (f *fakePeriods) Get(ctx context.Context, periodID int64) (period.Period, error) {
	p, ok := f.periods[periodID]
	if !ok {
		return period.Period{}, period.ErrPeriodNotFound
	}
	return p, nil
}

type fakeDirectory struct {
	employees map[int64]directory.Employee
	active    []directory.Employee
}

func (f *fakeDirectory) Get(ctx context.Context, employeeID int64) (directory.Employee, error) {
	e, ok := f.employees[employeeID]
	if !ok {
		return directory.Employee{}, directory.ErrEmployeeNotFound
	}
	return e, nil
}

func (f *fakeDirectory) ListActive(ctx context.Context) ([]directory.Employee, error) {
	return f.active, nil
}

type notice struct {
	EmployeeID int64
	Type       string
}

type fakeNotifier struct {
	sent []notice
}

func (f *fakeNotifier) Create(ctx context.Context, employeeID int64, notificationType, title, body string) error {
	f.sent = append(f.sent, notice{EmployeeID: employeeID, Type: notificationType})
	return nil
}

// testPeriod is an open one-year window used across tests.
func testPeriod(id int64) period.Period {
	return period.Period{
		ID:        id,
		Name:      "FY review",
		StartDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
		Status:    period.StatusOpen,
	}
}

func newTestService(store *fakeStore, ev *fakeEvidence, pr *fakePeriods, dir *fakeDirectory, opts ...Option) *Service {
	if ev == nil {
		ev = &fakeEvidence{summaries: map[int64][]evidence.DimensionSummary{}}
	}
	if pr == nil {
		pr = &fakePeriods{periods: map[int64]period.Period{1: testPeriod(1)}}
	}
	if dir == nil {
		dir = &fakeDirectory{employees: map[int64]directory.Employee{}}
	}
	return NewService(store, ev, pr, dir, opts...)
}

func floatPtr(v float64) *float64 { return &v }

func stringPtr(v string) *string { return &v }
