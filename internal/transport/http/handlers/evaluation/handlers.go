package evaluationhandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"perfeval/internal/domain/audit"
	"perfeval/internal/domain/evaluation"
	"perfeval/internal/transport/http/api"
	"perfeval/internal/transport/http/middleware"
	"perfeval/internal/transport/http/shared"
)

type Handler struct {
	Service *evaluation.Service
	Audit   *audit.Service
}

func NewHandler(service *evaluation.Service, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/evaluations", func(r chi.Router) {
		r.Get("/{evaluationID}", h.handleGet)
		r.Get("/{evaluationID}/results", h.handleResults)
		r.Get("/{evaluationID}/transitions", h.handleTransitions)
		r.Get("/{evaluationID}/overall-rating", h.handleOverallRating)
		r.Post("/{evaluationID}/aggregate", h.handleAggregate)
		r.Post("/batch-aggregate", h.handleBatchAggregate)
		r.Put("/{evaluationID}/scores", h.handleUpdateScores)
		r.Post("/{evaluationID}/submit-self", h.handleSubmitSelf)
		r.Post("/{evaluationID}/manager-evaluation", h.handleCreateManagerEvaluation)
		r.Post("/{evaluationID}/submit-manager", h.handleSubmitManager)
		r.Post("/final", h.handleGenerateFinal)
	})
	r.Post("/periods/{periodID}/initialize-cycle", h.handleInitializeCycle)
	r.Get("/workflow-status", h.handleWorkflowStatus)
}

// failFor maps engine errors onto actionable HTTP responses. Completeness and
// transition violations are normal workflow outcomes, not system faults.
func failFor(w http.ResponseWriter, err error, requestID string) {
	switch {
	case errors.Is(err, evaluation.ErrIncompleteEvaluation):
		api.Fail(w, http.StatusUnprocessableEntity, "incomplete_evaluation", err.Error(), requestID)
	case errors.Is(err, evaluation.ErrInvalidTransition):
		api.Fail(w, http.StatusConflict, "invalid_transition", err.Error(), requestID)
	case errors.Is(err, evaluation.ErrDuplicateEvaluation):
		api.Fail(w, http.StatusConflict, "duplicate_evaluation", err.Error(), requestID)
	case errors.Is(err, evaluation.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", err.Error(), requestID)
	case errors.Is(err, evaluation.ErrInvalidPeriod):
		api.Fail(w, http.StatusBadRequest, "invalid_period", err.Error(), requestID)
	case errors.Is(err, evaluation.ErrInvalidArgument):
		api.Fail(w, http.StatusBadRequest, "invalid_argument", err.Error(), requestID)
	default:
		slog.Warn("evaluation request failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "request failed", requestID)
	}
}

func requireActor(w http.ResponseWriter, r *http.Request) (middleware.Actor, bool) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "actor identity required", middleware.GetRequestID(r.Context()))
		return middleware.Actor{}, false
	}
	return actor, true
}

func pathID(r *http.Request, name string) int64 {
	return shared.ParseID(chi.URLParam(r, name))
}

func (h *Handler) record(r *http.Request, actorID int64, action, entityID string, details any) {
	if h.Audit == nil {
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	if err := h.Audit.Record(r.Context(), actorID, action, "evaluation", entityID, requestID, shared.ClientIP(r), details); err != nil {
		slog.Warn("audit record failed", "action", action, "err", err)
	}
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	id := pathID(r, "evaluationID")
	if id == 0 {
		api.Fail(w, http.StatusBadRequest, "invalid_argument", "evaluation id must be a positive integer", requestID)
		return
	}
	e, err := h.Service.Get(r.Context(), id)
	if err != nil {
		failFor(w, err, requestID)
		return
	}
	api.Success(w, e, requestID)
}

func (h *Handler) handleResults(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	id := pathID(r, "evaluationID")
	if id == 0 {
		api.Fail(w, http.StatusBadRequest, "invalid_argument", "evaluation id must be a positive integer", requestID)
		return
	}
	results, err := h.Service.DimensionResults(r.Context(), id)
	if err != nil {
		failFor(w, err, requestID)
		return
	}
	api.Success(w, results, requestID)
}

func (h *Handler) handleTransitions(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	id := pathID(r, "evaluationID")
	if id == 0 {
		api.Fail(w, http.StatusBadRequest, "invalid_argument", "evaluation id must be a positive integer", requestID)
		return
	}
	transitions, err := h.Service.Transitions(r.Context(), id)
	if err != nil {
		failFor(w, err, requestID)
		return
	}
	api.Success(w, transitions, requestID)
}

// handleOverallRating exposes both overall-rating call paths. The recomputed
// variant discounts low-sample dimensions a second time; both are kept until
// the duplication question is settled.
func (h *Handler) handleOverallRating(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	id := pathID(r, "evaluationID")
	if id == 0 {
		api.Fail(w, http.StatusBadRequest, "invalid_argument", "evaluation id must be a positive integer", requestID)
		return
	}

	aggregated, err := h.Service.AggregatedOverallRating(r.Context(), id)
	if err != nil {
		failFor(w, err, requestID)
		return
	}
	recomputed, err := h.Service.RecomputedOverallRating(r.Context(), id)
	if err != nil {
		failFor(w, err, requestID)
		return
	}
	api.Success(w, map[string]float64{
		"aggregatedOverallRating": aggregated,
		"recomputedOverallRating": recomputed,
	}, requestID)
}

func (h *Handler) handleAggregate(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id := pathID(r, "evaluationID")
	if id == 0 {
		api.Fail(w, http.StatusBadRequest, "invalid_argument", "evaluation id must be a positive integer", requestID)
		return
	}

	outcome, err := h.Service.AggregateEvaluation(r.Context(), id)
	if err != nil {
		failFor(w, err, requestID)
		return
	}
	h.record(r, actor.ID, "evaluation.aggregate", chi.URLParam(r, "evaluationID"), outcome.ConfidenceLevel)
	api.Success(w, outcome, requestID)
}

func (h *Handler) handleBatchAggregate(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var payload struct {
		EvaluationIDs []int64 `json:"evaluationIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}
	if len(payload.EvaluationIDs) == 0 {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "evaluationIds must not be empty", requestID)
		return
	}

	outcome, err := h.Service.BatchAggregate(r.Context(), payload.EvaluationIDs)
	if err != nil {
		// The outcome still tells the caller which ids failed before rollback.
		api.FailWithDetails(w, http.StatusConflict, "batch_rolled_back", err.Error(), outcome, requestID)
		return
	}
	h.record(r, actor.ID, "evaluation.batch_aggregate", "", map[string]int{"succeeded": outcome.Succeeded, "failed": outcome.Failed})
	api.Success(w, outcome, requestID)
}

func (h *Handler) handleInitializeCycle(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	periodID := pathID(r, "periodID")
	if periodID == 0 {
		api.Fail(w, http.StatusBadRequest, "invalid_argument", "period id must be a positive integer", requestID)
		return
	}

	created, err := h.Service.InitializeCycle(r.Context(), actor.ID, periodID)
	if err != nil {
		failFor(w, err, requestID)
		return
	}
	h.record(r, actor.ID, "evaluation.initialize_cycle", chi.URLParam(r, "periodID"), map[string]int{"created": created})
	api.Created(w, map[string]int{"created": created}, requestID)
}

func (h *Handler) handleUpdateScores(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id := pathID(r, "evaluationID")
	if id == 0 {
		api.Fail(w, http.StatusBadRequest, "invalid_argument", "evaluation id must be a positive integer", requestID)
		return
	}

	var payload struct {
		KeyResponsibilitiesScore *float64 `json:"keyResponsibilitiesScore"`
		ExpectedResultsScore     *float64 `json:"expectedResultsScore"`
		SkillsCompetenciesScore  *float64 `json:"skillsCompetenciesScore"`
		LivingValuesScore        *float64 `json:"livingValuesScore"`
		OverallRating            *float64 `json:"overallRating"`
		Comments                 *string  `json:"comments"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}

	e, err := h.Service.UpdateSectionScores(r.Context(), actor.ID, id, evaluation.SectionScores{
		KeyResponsibilities: payload.KeyResponsibilitiesScore,
		ExpectedResults:     payload.ExpectedResultsScore,
		SkillsCompetencies:  payload.SkillsCompetenciesScore,
		LivingValues:        payload.LivingValuesScore,
		Overall:             payload.OverallRating,
		Comments:            payload.Comments,
	})
	if err != nil {
		failFor(w, err, requestID)
		return
	}
	h.record(r, actor.ID, "evaluation.update_scores", chi.URLParam(r, "evaluationID"), payload)
	api.Success(w, e, requestID)
}

func (h *Handler) handleSubmitSelf(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id := pathID(r, "evaluationID")
	if id == 0 {
		api.Fail(w, http.StatusBadRequest, "invalid_argument", "evaluation id must be a positive integer", requestID)
		return
	}

	e, err := h.Service.SubmitSelfEvaluation(r.Context(), actor.ID, id)
	if err != nil {
		failFor(w, err, requestID)
		return
	}
	h.record(r, actor.ID, "evaluation.submit_self", chi.URLParam(r, "evaluationID"), nil)
	api.Success(w, e, requestID)
}

func (h *Handler) handleCreateManagerEvaluation(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	selfID := pathID(r, "evaluationID")
	if selfID == 0 {
		api.Fail(w, http.StatusBadRequest, "invalid_argument", "evaluation id must be a positive integer", requestID)
		return
	}

	e, err := h.Service.CreateManagerEvaluation(r.Context(), actor.ID, selfID)
	if err != nil {
		failFor(w, err, requestID)
		return
	}
	h.record(r, actor.ID, "evaluation.create_manager", chi.URLParam(r, "evaluationID"), nil)
	api.Created(w, e, requestID)
}

func (h *Handler) handleSubmitManager(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id := pathID(r, "evaluationID")
	if id == 0 {
		api.Fail(w, http.StatusBadRequest, "invalid_argument", "evaluation id must be a positive integer", requestID)
		return
	}

	final, err := h.Service.SubmitManagerEvaluation(r.Context(), actor.ID, id)
	if err != nil {
		failFor(w, err, requestID)
		return
	}
	h.record(r, actor.ID, "evaluation.submit_manager", chi.URLParam(r, "evaluationID"), nil)
	api.Success(w, final, requestID)
}

func (h *Handler) handleGenerateFinal(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var payload struct {
		SelfEvaluationID    int64 `json:"selfEvaluationId"`
		ManagerEvaluationID int64 `json:"managerEvaluationId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}

	validator := shared.NewValidator()
	validator.PositiveID("selfEvaluationId", payload.SelfEvaluationID)
	validator.PositiveID("managerEvaluationId", payload.ManagerEvaluationID)
	if validator.Reject(w, requestID) {
		return
	}

	final, err := h.Service.GenerateFinalEvaluation(r.Context(), actor.ID, payload.SelfEvaluationID, payload.ManagerEvaluationID)
	if err != nil {
		failFor(w, err, requestID)
		return
	}
	h.record(r, actor.ID, "evaluation.generate_final", "", payload)
	api.Created(w, final, requestID)
}

func (h *Handler) handleWorkflowStatus(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	employeeID := shared.ParseID(r.URL.Query().Get("employeeId"))
	periodID := shared.ParseID(r.URL.Query().Get("periodId"))

	validator := shared.NewValidator()
	validator.PositiveID("employeeId", employeeID)
	validator.PositiveID("periodId", periodID)
	if validator.Reject(w, requestID) {
		return
	}

	phase, err := h.Service.WorkflowStatus(r.Context(), employeeID, periodID)
	if err != nil {
		failFor(w, err, requestID)
		return
	}
	api.Success(w, map[string]string{"phase": string(phase)}, requestID)
}
