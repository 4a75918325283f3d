package evaluation

import (
	"fmt"

	"perfeval/internal/domain/evidence"
)

// EvaluationType distinguishes the three records an evaluation cycle produces.
type EvaluationType string

const (
	TypeSelf    EvaluationType = "self"
	TypeManager EvaluationType = "manager"
	TypeFinal   EvaluationType = "final"
)

func ParseEvaluationType(value string) (EvaluationType, error) {
	switch EvaluationType(value) {
	case TypeSelf, TypeManager, TypeFinal:
		return EvaluationType(value), nil
	}
	return "", fmt.Errorf("unknown evaluation type %q", value)
}

// WorkflowState is one stop on the strict linear evaluation lifecycle.
type WorkflowState string

const (
	StatePendingSelf      WorkflowState = "pending_self"
	StateSelfSubmitted    WorkflowState = "self_submitted"
	StatePendingManager   WorkflowState = "pending_manager"
	StateManagerSubmitted WorkflowState = "manager_submitted"
	StateFinalDelivered   WorkflowState = "final_delivered"
)

func ParseWorkflowState(value string) (WorkflowState, error) {
	switch WorkflowState(value) {
	case StatePendingSelf, StateSelfSubmitted, StatePendingManager, StateManagerSubmitted, StateFinalDelivered:
		return WorkflowState(value), nil
	}
	return "", fmt.Errorf("unknown workflow state %q", value)
}

// stateTransitions is the single source of truth for legal workflow moves.
// The self_submitted -> pending_manager edge is listed even though no
// operation currently drives it; see DESIGN.md.
var stateTransitions = map[WorkflowState][]WorkflowState{
	StatePendingSelf:      {StateSelfSubmitted},
	StateSelfSubmitted:    {StatePendingManager},
	StatePendingManager:   {StateManagerSubmitted},
	StateManagerSubmitted: {StateFinalDelivered},
	StateFinalDelivered:   nil,
}

// CanTransition reports whether from -> to appears in the transition table.
func CanTransition(from, to WorkflowState) bool {
	for _, allowed := range stateTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

var stateOrder = map[WorkflowState]int{
	StatePendingSelf:      0,
	StateSelfSubmitted:    1,
	StatePendingManager:   2,
	StateManagerSubmitted: 3,
	StateFinalDelivered:   4,
}

func stateAtLeast(state, floor WorkflowState) bool {
	return stateOrder[state] >= stateOrder[floor]
}

// ConfidenceLevel classifies how much the evidence base supports a rating.
type ConfidenceLevel string

const (
	ConfidenceNone     ConfidenceLevel = "none"
	ConfidenceLow      ConfidenceLevel = "low"
	ConfidenceModerate ConfidenceLevel = "moderate"
	ConfidenceGood     ConfidenceLevel = "good"
	ConfidenceHigh     ConfidenceLevel = "high"
)

// Phase is the cycle-level status derived from the self/manager/final trio.
type Phase string

const (
	PhaseNotStarted        Phase = "not_started"
	PhaseSelfInProgress    Phase = "self_in_progress"
	PhaseAwaitingManager   Phase = "awaiting_manager"
	PhaseManagerInProgress Phase = "manager_in_progress"
	PhaseAwaitingFinal     Phase = "awaiting_final"
	PhaseCompleted         Phase = "completed"
)

const defaultDimensionWeight = 0.25

var dimensionWeights = map[evidence.Dimension]float64{
	evidence.DimensionKPIs:             0.30,
	evidence.DimensionCompetencies:     0.25,
	evidence.DimensionResponsibilities: 0.25,
	evidence.DimensionValues:           0.20,
}

func dimensionWeight(dimension evidence.Dimension) float64 {
	if weight, ok := dimensionWeights[dimension]; ok {
		return weight
	}
	return defaultDimensionWeight
}
