package evaluation

import (
	"time"

	"perfeval/internal/domain/evidence"
)

type Evaluation struct {
	ID                       int64          `json:"id"`
	EmployeeID               int64          `json:"employeeId"`
	EvaluatorID              int64          `json:"evaluatorId"`
	ManagerID                *int64         `json:"managerId,omitempty"`
	PeriodID                 int64          `json:"periodId"`
	Type                     EvaluationType `json:"evaluationType"`
	State                    WorkflowState  `json:"workflowState"`
	SelfEvaluationID         *int64         `json:"selfEvaluationId,omitempty"`
	KeyResponsibilitiesScore *float64       `json:"keyResponsibilitiesScore,omitempty"`
	ExpectedResultsScore     *float64       `json:"expectedResultsScore,omitempty"`
	SkillsCompetenciesScore  *float64       `json:"skillsCompetenciesScore,omitempty"`
	LivingValuesScore        *float64       `json:"livingValuesScore,omitempty"`
	OverallRating            *float64       `json:"overallRating,omitempty"`
	SelfComments             string         `json:"selfComments"`
	ManagerComments          string         `json:"managerComments"`
	EvidenceRating           float64        `json:"evidenceRating"`
	EvidenceSummary          string         `json:"evidenceSummary"`
	SelfSubmittedAt          *time.Time     `json:"selfSubmittedAt,omitempty"`
	ManagerReviewedAt        *time.Time     `json:"managerReviewedAt,omitempty"`
	FinalizedAt              *time.Time     `json:"finalizedAt,omitempty"`
	CreatedAt                time.Time      `json:"createdAt"`
	UpdatedAt                time.Time      `json:"updatedAt"`
}

// DimensionResult is one normalized aggregation row. Exactly four rows exist
// per evaluation after every aggregation pass.
type DimensionResult struct {
	EvaluationID    int64              `json:"evaluationId"`
	Dimension       evidence.Dimension `json:"dimension"`
	EntryCount      int                `json:"entryCount"`
	AvgRating       float64            `json:"avgRating"`
	PositiveCount   int                `json:"positiveCount"`
	NegativeCount   int                `json:"negativeCount"`
	CalculatedScore float64            `json:"calculatedScore"`
}

// ScoreFactors carries the scorer's diagnostic multipliers.
type ScoreFactors struct {
	ConfidenceFactor float64 `json:"confidenceFactor"`
	TrendFactor      float64 `json:"trendFactor"`
	RecencyFactor    float64 `json:"recencyFactor"`
}

type Period struct {
	ID        int64
	StartDate time.Time
	EndDate   time.Time
}

type AggregationOutcome struct {
	EvaluationID    int64             `json:"evaluationId"`
	OverallRating   float64           `json:"overallRating"`
	CoverageScore   float64           `json:"coverageScore"`
	TotalEntries    int               `json:"totalEntries"`
	ConfidenceLevel ConfidenceLevel   `json:"confidenceLevel"`
	Results         []DimensionResult `json:"results"`
	Summary         string            `json:"summary"`
}

type BatchItem struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type BatchOutcome struct {
	Items      map[int64]BatchItem `json:"items"`
	Succeeded  int                 `json:"succeeded"`
	Failed     int                 `json:"failed"`
	RolledBack bool                `json:"rolledBack"`
}

// WorkflowTransition is the append-only audit trail of state changes.
type WorkflowTransition struct {
	ID           int64         `json:"id"`
	EvaluationID int64         `json:"evaluationId"`
	FromState    WorkflowState `json:"fromState"`
	ToState      WorkflowState `json:"toState"`
	ActorID      int64         `json:"actorId"`
	CreatedAt    time.Time     `json:"createdAt"`
}

// SectionScores is the manager- or self-entered scoring payload.
type SectionScores struct {
	KeyResponsibilities *float64
	ExpectedResults     *float64
	SkillsCompetencies  *float64
	LivingValues        *float64
	Overall             *float64
	Comments            *string
}
