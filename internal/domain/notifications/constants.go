package notifications

const (
	TypeSelfSubmitted        = "self_evaluation_submitted"
	TypeManagerReviewStarted = "manager_review_started"
	TypeManagerSubmitted     = "manager_evaluation_submitted"
	TypeFinalDelivered       = "final_evaluation_delivered"
	TypeCycleInitialized     = "evaluation_cycle_initialized"
)
