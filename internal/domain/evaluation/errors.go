package evaluation

import "errors"

var (
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrInvalidPeriod        = errors.New("period start date is after end date")
	ErrNotFound             = errors.New("evaluation not found")
	ErrIncompleteEvaluation = errors.New("evaluation has unscored sections")
	ErrInvalidTransition    = errors.New("workflow transition not allowed")
	ErrDuplicateEvaluation  = errors.New("evaluation already exists for employee and period")
)
