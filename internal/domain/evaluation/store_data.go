package evaluation

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"perfeval/internal/domain/evidence"
)

// DB is satisfied by both *pgxpool.Pool and pgx.Tx, so the same store code
// runs against the pool or inside a batch transaction (where Begin opens a
// savepoint).
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

type Store struct {
	db DB
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

const evaluationColumns = `
  id, employee_id, evaluator_id, manager_id, period_id, evaluation_type,
  workflow_state, self_evaluation_id, key_responsibilities_score,
  expected_results_score, skills_competencies_score, living_values_score,
  overall_rating, self_comments, manager_comments, evidence_rating,
  evidence_summary, self_submitted_at, manager_reviewed_at, finalized_at,
  created_at, updated_at`

func scanEvaluation(row pgx.Row) (Evaluation, error) {
	var e Evaluation
	var evaluationType, workflowState string
	err := row.Scan(
		&e.ID, &e.EmployeeID, &e.EvaluatorID, &e.ManagerID, &e.PeriodID, &evaluationType,
		&workflowState, &e.SelfEvaluationID, &e.KeyResponsibilitiesScore,
		&e.ExpectedResultsScore, &e.SkillsCompetenciesScore, &e.LivingValuesScore,
		&e.OverallRating, &e.SelfComments, &e.ManagerComments, &e.EvidenceRating,
		&e.EvidenceSummary, &e.SelfSubmittedAt, &e.ManagerReviewedAt, &e.FinalizedAt,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Evaluation{}, ErrNotFound
	}
	if err != nil {
		return Evaluation{}, err
	}
	e.Type = EvaluationType(evaluationType)
	e.State = WorkflowState(workflowState)
	return e, nil
}

func (s *Store) GetEvaluation(ctx context.Context, evaluationID int64) (Evaluation, error) {
	return scanEvaluation(s.db.QueryRow(ctx,
		"SELECT"+evaluationColumns+" FROM evaluations WHERE id = $1", evaluationID))
}

func (s *Store) GetEvaluationByType(ctx context.Context, employeeID, periodID int64, evaluationType EvaluationType) (Evaluation, error) {
	return scanEvaluation(s.db.QueryRow(ctx,
		"SELECT"+evaluationColumns+" FROM evaluations WHERE employee_id = $1 AND period_id = $2 AND evaluation_type = $3",
		employeeID, periodID, string(evaluationType)))
}

func (s *Store) CreateEvaluation(ctx context.Context, e Evaluation) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx, `
    INSERT INTO evaluations (
      employee_id, evaluator_id, manager_id, period_id, evaluation_type,
      workflow_state, self_evaluation_id, key_responsibilities_score,
      expected_results_score, skills_competencies_score, living_values_score,
      overall_rating, self_comments, manager_comments
    ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
    RETURNING id
  `, e.EmployeeID, e.EvaluatorID, e.ManagerID, e.PeriodID, string(e.Type),
		string(e.State), e.SelfEvaluationID, e.KeyResponsibilitiesScore,
		e.ExpectedResultsScore, e.SkillsCompetenciesScore, e.LivingValuesScore,
		e.OverallRating, e.SelfComments, e.ManagerComments).Scan(&id)
	if isUniqueViolation(err) {
		return 0, fmt.Errorf("%w: %s for employee %d period %d", ErrDuplicateEvaluation, e.Type, e.EmployeeID, e.PeriodID)
	}
	return id, err
}

// UpdateSectionScores merges the supplied scores into the evaluation row.
// Nil fields leave the stored values untouched, so a score can be revised
// but never cleared back to null once written.
func (s *Store) UpdateSectionScores(ctx context.Context, evaluationID int64, scores SectionScores) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var evaluationType string
	err = tx.QueryRow(ctx, "SELECT evaluation_type FROM evaluations WHERE id = $1 FOR UPDATE", evaluationID).Scan(&evaluationType)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	commentsColumn := "manager_comments"
	if EvaluationType(evaluationType) == TypeSelf {
		commentsColumn = "self_comments"
	}
	_, err = tx.Exec(ctx, `
    UPDATE evaluations SET
      key_responsibilities_score = COALESCE($2, key_responsibilities_score),
      expected_results_score     = COALESCE($3, expected_results_score),
      skills_competencies_score  = COALESCE($4, skills_competencies_score),
      living_values_score        = COALESCE($5, living_values_score),
      overall_rating             = COALESCE($6, overall_rating),
      `+commentsColumn+`         = COALESCE($7, `+commentsColumn+`),
      updated_at = now()
    WHERE id = $1
  `, evaluationID, scores.KeyResponsibilities, scores.ExpectedResults,
		scores.SkillsCompetencies, scores.LivingValues, scores.Overall, scores.Comments)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) SaveAggregation(ctx context.Context, evaluationID int64, results []DimensionResult, rating float64, summary string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// Row lock serializes concurrent aggregation of the same evaluation.
	var locked int64
	err = tx.QueryRow(ctx, "SELECT id FROM evaluations WHERE id = $1 FOR UPDATE", evaluationID).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, "DELETE FROM dimension_results WHERE evaluation_id = $1", evaluationID); err != nil {
		return err
	}
	for _, result := range results {
		if _, err := tx.Exec(ctx, `
      INSERT INTO dimension_results (evaluation_id, dimension, entry_count, avg_rating, positive_count, negative_count, calculated_score)
      VALUES ($1,$2,$3,$4,$5,$6,$7)
    `, evaluationID, string(result.Dimension), result.EntryCount, result.AvgRating,
			result.PositiveCount, result.NegativeCount, result.CalculatedScore); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(ctx,
		"UPDATE evaluations SET evidence_rating = $2, evidence_summary = $3, updated_at = now() WHERE id = $1",
		evaluationID, rating, summary); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) ListDimensionResults(ctx context.Context, evaluationID int64) ([]DimensionResult, error) {
	rows, err := s.db.Query(ctx, `
    SELECT evaluation_id, dimension, entry_count, avg_rating, positive_count, negative_count, calculated_score
    FROM dimension_results
    WHERE evaluation_id = $1
    ORDER BY CASE dimension
      WHEN 'responsibilities' THEN 0
      WHEN 'kpis' THEN 1
      WHEN 'competencies' THEN 2
      ELSE 3
    END
  `, evaluationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DimensionResult
	for rows.Next() {
		var result DimensionResult
		var dimension string
		if err := rows.Scan(&result.EvaluationID, &dimension, &result.EntryCount, &result.AvgRating,
			&result.PositiveCount, &result.NegativeCount, &result.CalculatedScore); err != nil {
			return nil, err
		}
		result.Dimension = evidence.Dimension(dimension)
		out = append(out, result)
	}
	return out, rows.Err()
}

func (s *Store) TransitionState(ctx context.Context, evaluationID int64, from, to WorkflowState, actorID int64) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	stamp := ""
	switch to {
	case StateSelfSubmitted:
		stamp = ", self_submitted_at = now()"
	case StateManagerSubmitted:
		stamp = ", manager_reviewed_at = now()"
	case StateFinalDelivered:
		stamp = ", finalized_at = now()"
	}

	tag, err := tx.Exec(ctx,
		"UPDATE evaluations SET workflow_state = $2, updated_at = now()"+stamp+" WHERE id = $1 AND workflow_state = $3",
		evaluationID, string(to), string(from))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM evaluations WHERE id = $1)", evaluationID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		return fmt.Errorf("%w: evaluation %d is no longer in %s", ErrInvalidTransition, evaluationID, from)
	}

	if _, err := tx.Exec(ctx, `
    INSERT INTO workflow_transitions (evaluation_id, from_state, to_state, actor_id)
    VALUES ($1,$2,$3,$4)
  `, evaluationID, string(from), string(to), actorID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) ListTransitions(ctx context.Context, evaluationID int64) ([]WorkflowTransition, error) {
	rows, err := s.db.Query(ctx, `
    SELECT id, evaluation_id, from_state, to_state, actor_id, created_at
    FROM workflow_transitions
    WHERE evaluation_id = $1
    ORDER BY created_at, id
  `, evaluationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []WorkflowTransition
	for rows.Next() {
		var transition WorkflowTransition
		var from, to string
		if err := rows.Scan(&transition.ID, &transition.EvaluationID, &from, &to, &transition.ActorID, &transition.CreatedAt); err != nil {
			return nil, err
		}
		transition.FromState = WorkflowState(from)
		transition.ToState = WorkflowState(to)
		out = append(out, transition)
	}
	return out, rows.Err()
}

// StaleEvaluationIDs finds open evaluations whose employee received new
// evidence inside the period window after the last aggregation pass.
func (s *Store) StaleEvaluationIDs(ctx context.Context, limit int) ([]int64, error) {
	rows, err := s.db.Query(ctx, `
    SELECT e.id
    FROM evaluations e
    JOIN periods p ON p.id = e.period_id
    WHERE e.workflow_state IN ($1, $2)
      AND EXISTS (
        SELECT 1 FROM evidence_entries ev
        WHERE ev.employee_id = e.employee_id
          AND ev.created_at > e.updated_at
          AND ev.entry_date BETWEEN p.start_date AND p.end_date
      )
    ORDER BY e.id
    LIMIT $3
  `, string(StatePendingSelf), string(StatePendingManager), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *Store) WithTx(ctx context.Context, fn func(StoreAPI) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(&Store{db: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
