package evaluation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"perfeval/internal/domain/notifications"
)

// InitializeCycle creates a pending self evaluation for every active employee
// who does not already have one in the period. Idempotent: rerunning skips
// employees already covered. Returns the number created.
func (s *Service) InitializeCycle(ctx context.Context, actorID, periodID int64) (int, error) {
	if actorID <= 0 || periodID <= 0 {
		return 0, fmt.Errorf("%w: actor and period ids must be positive", ErrInvalidArgument)
	}
	if _, err := s.periods.Get(ctx, periodID); err != nil {
		return 0, fmt.Errorf("%w: period %d", ErrNotFound, periodID)
	}

	employees, err := s.directory.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("list active employees: %w", err)
	}

	created := 0
	for _, employee := range employees {
		_, err := s.store.GetEvaluationByType(ctx, employee.ID, periodID, TypeSelf)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrNotFound) {
			return created, err
		}

		id, err := s.store.CreateEvaluation(ctx, Evaluation{
			EmployeeID:  employee.ID,
			EvaluatorID: employee.ID,
			ManagerID:   employee.ManagerID,
			PeriodID:    periodID,
			Type:        TypeSelf,
			State:       StatePendingSelf,
		})
		if err != nil {
			if errors.Is(err, ErrDuplicateEvaluation) {
				continue
			}
			return created, fmt.Errorf("create self evaluation for employee %d: %w", employee.ID, err)
		}
		created++

		if _, err := s.AggregateEvaluation(ctx, id); err != nil {
			slog.Warn("initial aggregation failed", "evaluationId", id, "err", err)
		}
	}
	return created, nil
}

// UpdateSectionScores records the four section scores, the overall rating,
// and free-text comments while the evaluation is still editable.
func (s *Service) UpdateSectionScores(ctx context.Context, actorID, evaluationID int64, scores SectionScores) (Evaluation, error) {
	if actorID <= 0 {
		return Evaluation{}, fmt.Errorf("%w: actor id must be positive", ErrInvalidArgument)
	}
	e, err := s.store.GetEvaluation(ctx, evaluationID)
	if err != nil {
		return Evaluation{}, err
	}

	switch e.Type {
	case TypeSelf:
		if e.State != StatePendingSelf {
			return Evaluation{}, fmt.Errorf("%w: self evaluation is %s", ErrInvalidTransition, e.State)
		}
	case TypeManager:
		if e.State != StatePendingManager {
			return Evaluation{}, fmt.Errorf("%w: manager evaluation is %s", ErrInvalidTransition, e.State)
		}
	default:
		return Evaluation{}, fmt.Errorf("%w: final evaluations are not editable", ErrInvalidArgument)
	}

	for _, score := range []*float64{scores.KeyResponsibilities, scores.ExpectedResults, scores.SkillsCompetencies, scores.LivingValues, scores.Overall} {
		if score != nil && (*score < 0 || *score > 5) {
			return Evaluation{}, fmt.Errorf("%w: scores must be between 0 and 5", ErrInvalidArgument)
		}
	}

	if err := s.store.UpdateSectionScores(ctx, evaluationID, scores); err != nil {
		return Evaluation{}, err
	}
	return s.store.GetEvaluation(ctx, evaluationID)
}

// SubmitSelfEvaluation runs the completeness gate and advances
// pending_self -> self_submitted.
func (s *Service) SubmitSelfEvaluation(ctx context.Context, actorID, evaluationID int64) (Evaluation, error) {
	e, err := s.store.GetEvaluation(ctx, evaluationID)
	if err != nil {
		return Evaluation{}, err
	}
	if e.Type != TypeSelf {
		return Evaluation{}, fmt.Errorf("%w: evaluation %d is %s, not self", ErrInvalidArgument, evaluationID, e.Type)
	}
	if err := s.transition(ctx, e, StateSelfSubmitted, actorID); err != nil {
		return Evaluation{}, err
	}

	s.notifyQuietly(ctx, e.EmployeeID, notifications.TypeSelfSubmitted,
		"Self evaluation submitted", "Your self evaluation has been submitted for manager review.")
	if e.ManagerID != nil {
		s.notifyQuietly(ctx, *e.ManagerID, notifications.TypeSelfSubmitted,
			"Self evaluation ready for review", fmt.Sprintf("Employee %d has submitted their self evaluation.", e.EmployeeID))
	}

	return s.store.GetEvaluation(ctx, evaluationID)
}

// CreateManagerEvaluation opens the manager stage for a submitted self
// evaluation. The new record starts in pending_manager and references the
// self evaluation it reviews.
func (s *Service) CreateManagerEvaluation(ctx context.Context, actorID, selfEvaluationID int64) (Evaluation, error) {
	if actorID <= 0 {
		return Evaluation{}, fmt.Errorf("%w: actor id must be positive", ErrInvalidArgument)
	}
	self, err := s.store.GetEvaluation(ctx, selfEvaluationID)
	if err != nil {
		return Evaluation{}, err
	}
	if self.Type != TypeSelf {
		return Evaluation{}, fmt.Errorf("%w: evaluation %d is %s, not self", ErrInvalidArgument, selfEvaluationID, self.Type)
	}
	if !stateAtLeast(self.State, StateSelfSubmitted) {
		return Evaluation{}, fmt.Errorf("%w: self evaluation not yet submitted", ErrInvalidTransition)
	}
	if _, err := s.store.GetEvaluationByType(ctx, self.EmployeeID, self.PeriodID, TypeManager); err == nil {
		return Evaluation{}, fmt.Errorf("%w: manager evaluation", ErrDuplicateEvaluation)
	} else if !errors.Is(err, ErrNotFound) {
		return Evaluation{}, err
	}

	managerID := actorID
	id, err := s.store.CreateEvaluation(ctx, Evaluation{
		EmployeeID:       self.EmployeeID,
		EvaluatorID:      actorID,
		ManagerID:        &managerID,
		PeriodID:         self.PeriodID,
		Type:             TypeManager,
		State:            StatePendingManager,
		SelfEvaluationID: &selfEvaluationID,
	})
	if err != nil {
		return Evaluation{}, err
	}

	if _, err := s.AggregateEvaluation(ctx, id); err != nil {
		slog.Warn("manager evaluation aggregation failed", "evaluationId", id, "err", err)
	}
	s.notifyQuietly(ctx, self.EmployeeID, notifications.TypeManagerReviewStarted,
		"Manager review started", "Your manager has started reviewing your evaluation.")

	return s.store.GetEvaluation(ctx, id)
}

// SubmitManagerEvaluation runs the completeness gate, advances
// pending_manager -> manager_submitted, and immediately generates the final
// evaluation. Returns the final record.
func (s *Service) SubmitManagerEvaluation(ctx context.Context, actorID, managerEvaluationID int64) (Evaluation, error) {
	e, err := s.store.GetEvaluation(ctx, managerEvaluationID)
	if err != nil {
		return Evaluation{}, err
	}
	if e.Type != TypeManager {
		return Evaluation{}, fmt.Errorf("%w: evaluation %d is %s, not manager", ErrInvalidArgument, managerEvaluationID, e.Type)
	}
	if e.SelfEvaluationID == nil {
		return Evaluation{}, fmt.Errorf("%w: manager evaluation %d has no linked self evaluation", ErrInvalidArgument, managerEvaluationID)
	}
	if err := s.transition(ctx, e, StateManagerSubmitted, actorID); err != nil {
		return Evaluation{}, err
	}

	return s.GenerateFinalEvaluation(ctx, actorID, *e.SelfEvaluationID, managerEvaluationID)
}

// GenerateFinalEvaluation merges a submitted self/manager pair into the
// delivered final record: simple unweighted mean of the overall rating and
// the four section scores, comments combined into one annotated document.
func (s *Service) GenerateFinalEvaluation(ctx context.Context, actorID, selfEvaluationID, managerEvaluationID int64) (Evaluation, error) {
	self, err := s.store.GetEvaluation(ctx, selfEvaluationID)
	if err != nil {
		return Evaluation{}, err
	}
	manager, err := s.store.GetEvaluation(ctx, managerEvaluationID)
	if err != nil {
		return Evaluation{}, err
	}
	if self.Type != TypeSelf || manager.Type != TypeManager {
		return Evaluation{}, fmt.Errorf("%w: expected a self/manager pair, got %s/%s", ErrInvalidArgument, self.Type, manager.Type)
	}
	if manager.SelfEvaluationID == nil || *manager.SelfEvaluationID != selfEvaluationID {
		return Evaluation{}, fmt.Errorf("%w: manager evaluation %d does not reference self evaluation %d", ErrInvalidArgument, managerEvaluationID, selfEvaluationID)
	}
	if manager.State != StateManagerSubmitted {
		return Evaluation{}, fmt.Errorf("%w: manager evaluation is %s, not %s", ErrInvalidTransition, manager.State, StateManagerSubmitted)
	}
	if _, err := s.store.GetEvaluationByType(ctx, self.EmployeeID, self.PeriodID, TypeFinal); err == nil {
		return Evaluation{}, fmt.Errorf("%w: final evaluation", ErrDuplicateEvaluation)
	} else if !errors.Is(err, ErrNotFound) {
		return Evaluation{}, err
	}

	// The combined annotated comment document lives in SelfComments on the
	// final record.
	id, err := s.store.CreateEvaluation(ctx, Evaluation{
		EmployeeID:               self.EmployeeID,
		EvaluatorID:              actorID,
		ManagerID:                manager.ManagerID,
		PeriodID:                 self.PeriodID,
		Type:                     TypeFinal,
		State:                    StateManagerSubmitted,
		SelfEvaluationID:         &selfEvaluationID,
		KeyResponsibilitiesScore: meanScore(self.KeyResponsibilitiesScore, manager.KeyResponsibilitiesScore),
		ExpectedResultsScore:     meanScore(self.ExpectedResultsScore, manager.ExpectedResultsScore),
		SkillsCompetenciesScore:  meanScore(self.SkillsCompetenciesScore, manager.SkillsCompetenciesScore),
		LivingValuesScore:        meanScore(self.LivingValuesScore, manager.LivingValuesScore),
		OverallRating:            meanScore(self.OverallRating, manager.OverallRating),
		SelfComments:             combineComments(self.SelfComments, manager.ManagerComments),
	})
	if err != nil {
		return Evaluation{}, err
	}

	final, err := s.store.GetEvaluation(ctx, id)
	if err != nil {
		return Evaluation{}, err
	}
	if err := s.transition(ctx, final, StateFinalDelivered, actorID); err != nil {
		return Evaluation{}, err
	}

	if _, err := s.AggregateEvaluation(ctx, id); err != nil {
		slog.Warn("final evaluation aggregation failed", "evaluationId", id, "err", err)
	}
	s.notifyQuietly(ctx, self.EmployeeID, notifications.TypeFinalDelivered,
		"Final evaluation delivered", "Your combined evaluation for the period is ready.")

	return s.store.GetEvaluation(ctx, id)
}

// WorkflowStatus derives the cycle phase from the self/manager/final trio.
func (s *Service) WorkflowStatus(ctx context.Context, employeeID, periodID int64) (Phase, error) {
	if employeeID <= 0 || periodID <= 0 {
		return "", fmt.Errorf("%w: employee and period ids must be positive", ErrInvalidArgument)
	}

	if _, err := s.store.GetEvaluationByType(ctx, employeeID, periodID, TypeFinal); err == nil {
		return PhaseCompleted, nil
	} else if !errors.Is(err, ErrNotFound) {
		return "", err
	}

	manager, err := s.store.GetEvaluationByType(ctx, employeeID, periodID, TypeManager)
	if err == nil {
		if manager.State == StateManagerSubmitted {
			return PhaseAwaitingFinal, nil
		}
		return PhaseManagerInProgress, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return "", err
	}

	self, err := s.store.GetEvaluationByType(ctx, employeeID, periodID, TypeSelf)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return PhaseNotStarted, nil
		}
		return "", err
	}
	if stateAtLeast(self.State, StateSelfSubmitted) {
		return PhaseAwaitingManager, nil
	}
	return PhaseSelfInProgress, nil
}

// transition validates against the table and the completeness gate, then
// applies the compare-and-set state change with its audit row.
func (s *Service) transition(ctx context.Context, e Evaluation, to WorkflowState, actorID int64) error {
	if actorID <= 0 {
		return fmt.Errorf("%w: actor id must be positive", ErrInvalidArgument)
	}
	if missing := missingSections(e); gatedTransition(to) && len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrIncompleteEvaluation, strings.Join(missing, ", "))
	}
	if !CanTransition(e.State, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, e.State, to)
	}
	if err := s.store.TransitionState(ctx, e.ID, e.State, to, actorID); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.RecordTransition()
	}
	return nil
}

// gatedTransition reports whether the target state requires a complete set of
// section scores. Submissions are gated; final delivery re-checks nothing the
// pair has not already passed.
func gatedTransition(to WorkflowState) bool {
	return to == StateSelfSubmitted || to == StateManagerSubmitted
}

// missingSections lists the unscored fields blocking a submission.
func missingSections(e Evaluation) []string {
	var missing []string
	if e.KeyResponsibilitiesScore == nil {
		missing = append(missing, "key_responsibilities_score")
	}
	if e.ExpectedResultsScore == nil {
		missing = append(missing, "expected_results_score")
	}
	if e.SkillsCompetenciesScore == nil {
		missing = append(missing, "skills_competencies_score")
	}
	if e.LivingValuesScore == nil {
		missing = append(missing, "living_values_score")
	}
	if e.OverallRating == nil {
		missing = append(missing, "overall_rating")
	}
	return missing
}

func meanScore(a, b *float64) *float64 {
	switch {
	case a == nil && b == nil:
		return nil
	case a == nil:
		value := *b
		return &value
	case b == nil:
		value := *a
		return &value
	}
	mean := round2((*a + *b) / 2)
	return &mean
}

func combineComments(selfComments, managerComments string) string {
	var sections []string
	if strings.TrimSpace(selfComments) != "" {
		sections = append(sections, "Self assessment:\n"+strings.TrimSpace(selfComments))
	}
	if strings.TrimSpace(managerComments) != "" {
		sections = append(sections, "Manager assessment:\n"+strings.TrimSpace(managerComments))
	}
	return strings.Join(sections, "\n\n")
}

func (s *Service) notifyQuietly(ctx context.Context, employeeID int64, notificationType, title, body string) {
	if s.notify == nil {
		return
	}
	if err := s.notify.Create(ctx, employeeID, notificationType, title, body); err != nil {
		slog.Warn("workflow notification failed", "employeeId", employeeID, "type", notificationType, "err", err)
	}
}
