package periodshandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"perfeval/internal/domain/audit"
	"perfeval/internal/domain/period"
	"perfeval/internal/transport/http/api"
	"perfeval/internal/transport/http/middleware"
	"perfeval/internal/transport/http/shared"
)

type Handler struct {
	Service *period.Service
	Audit   *audit.Service
}

func NewHandler(service *period.Service, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Audit: auditSvc}
}

// Routes are registered flat so the evaluation handler can hang the
// cycle-initialization endpoint off the same /periods prefix.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/periods", h.handleCreate)
	r.Get("/periods", h.handleList)
	r.Get("/periods/{periodID}", h.handleGet)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "actor identity required", requestID)
		return
	}

	var payload struct {
		Name      string `json:"name"`
		StartDate string `json:"startDate"`
		EndDate   string `json:"endDate"`
		Status    string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}

	validator := shared.NewValidator()
	validator.Required("name", payload.Name, "name is required")
	start, _ := validator.Date("startDate", payload.StartDate)
	end, _ := validator.Date("endDate", payload.EndDate)
	validator.DateOrder("startDate", start, "endDate", end)
	if payload.Status != "" && payload.Status != period.StatusOpen && payload.Status != period.StatusClosed {
		validator.Add("status", "must be open or closed")
	}
	if validator.Reject(w, requestID) {
		return
	}

	id, err := h.Service.Create(r.Context(), period.Period{
		Name:      payload.Name,
		StartDate: start,
		EndDate:   end,
		Status:    payload.Status,
	})
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_argument", err.Error(), requestID)
		return
	}

	if h.Audit != nil {
		auditErr := h.Audit.Record(r.Context(), actor.ID, "period.create", "period",
			strconv.FormatInt(id, 10), requestID, shared.ClientIP(r), payload)
		if auditErr != nil {
			slog.Warn("audit record failed", "action", "period.create", "err", auditErr)
		}
	}
	api.Created(w, map[string]int64{"id": id}, requestID)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	page := shared.ParsePagination(r, 50, 200)

	periods, err := h.Service.List(r.Context(), page.Limit, page.Offset)
	if err != nil {
		slog.Warn("period list failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "request failed", requestID)
		return
	}
	api.Success(w, periods, requestID)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	id := shared.ParseID(chi.URLParam(r, "periodID"))
	if id == 0 {
		api.Fail(w, http.StatusBadRequest, "invalid_argument", "period id must be a positive integer", requestID)
		return
	}

	p, err := h.Service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, period.ErrPeriodNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "period not found", requestID)
			return
		}
		slog.Warn("period get failed", "periodID", id, "err", err)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "request failed", requestID)
		return
	}
	api.Success(w, p, requestID)
}
