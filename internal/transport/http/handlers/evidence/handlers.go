package evidencehandler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"perfeval/internal/domain/audit"
	"perfeval/internal/domain/evidence"
	"perfeval/internal/transport/http/api"
	"perfeval/internal/transport/http/middleware"
	"perfeval/internal/transport/http/shared"
)

type Handler struct {
	Service *evidence.Service
	Audit   *audit.Service
}

func NewHandler(service *evidence.Service, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/employees/{employeeID}/evidence", func(r chi.Router) {
		r.Post("/", h.handleCreate)
		r.Get("/", h.handleList)
		r.Get("/summaries", h.handleSummaries)
		r.Get("/recency-rating", h.handleRecencyRating)
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "actor identity required", requestID)
		return
	}
	employeeID := shared.ParseID(chi.URLParam(r, "employeeID"))

	var payload struct {
		Dimension string `json:"dimension"`
		Rating    int    `json:"rating"`
		Content   string `json:"content"`
		EntryDate string `json:"entryDate"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}

	validator := shared.NewValidator()
	validator.PositiveID("employeeId", employeeID)
	validator.Required("dimension", payload.Dimension, "dimension is required")
	if payload.Rating < 1 || payload.Rating > 5 {
		validator.Add("rating", "must be between 1 and 5")
	}
	var entryDate time.Time
	if payload.EntryDate != "" {
		entryDate, _ = validator.Date("entryDate", payload.EntryDate)
	}
	dimension, err := evidence.ParseDimension(payload.Dimension)
	if err != nil {
		validator.Add("dimension", "must be one of responsibilities, kpis, competencies, values")
	}
	if validator.Reject(w, requestID) {
		return
	}

	id, err := h.Service.CreateEntry(r.Context(), evidence.Entry{
		EmployeeID: employeeID,
		AuthorID:   actor.ID,
		Dimension:  dimension,
		Rating:     payload.Rating,
		Content:    payload.Content,
		EntryDate:  entryDate,
	})
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_argument", err.Error(), requestID)
		return
	}

	if h.Audit != nil {
		auditErr := h.Audit.Record(r.Context(), actor.ID, "evidence.create", "evidence_entry",
			strconv.FormatInt(id, 10), requestID, shared.ClientIP(r), payload)
		if auditErr != nil {
			slog.Warn("audit record failed", "action", "evidence.create", "err", auditErr)
		}
	}
	api.Created(w, map[string]int64{"id": id}, requestID)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	employeeID := shared.ParseID(chi.URLParam(r, "employeeID"))

	validator := shared.NewValidator()
	validator.PositiveID("employeeId", employeeID)
	start, end, ok := parseWindow(r, validator)
	if validator.Reject(w, requestID) || !ok {
		return
	}

	page := shared.ParsePagination(r, 50, 200)
	entries, err := h.Service.ListEntries(r.Context(), employeeID, start, end, page.Limit, page.Offset)
	if err != nil {
		slog.Warn("evidence list failed", "employeeID", employeeID, "err", err)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "request failed", requestID)
		return
	}
	api.Success(w, entries, requestID)
}

func (h *Handler) handleSummaries(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	employeeID := shared.ParseID(chi.URLParam(r, "employeeID"))

	validator := shared.NewValidator()
	validator.PositiveID("employeeId", employeeID)
	start, end, ok := parseWindow(r, validator)
	if validator.Reject(w, requestID) || !ok {
		return
	}

	summaries, err := h.Service.DimensionSummaries(r.Context(), employeeID, start, end)
	if err != nil {
		slog.Warn("evidence summaries failed", "employeeID", employeeID, "err", err)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "request failed", requestID)
		return
	}
	api.Success(w, summaries, requestID)
}

func (h *Handler) handleRecencyRating(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	employeeID := shared.ParseID(chi.URLParam(r, "employeeID"))

	validator := shared.NewValidator()
	validator.PositiveID("employeeId", employeeID)
	dimension, err := evidence.ParseDimension(r.URL.Query().Get("dimension"))
	if err != nil {
		validator.Add("dimension", "must be one of responsibilities, kpis, competencies, values")
	}
	start, end, ok := parseWindow(r, validator)
	if validator.Reject(w, requestID) || !ok {
		return
	}

	halfLife := 0.0
	if raw := r.URL.Query().Get("halfLifeDays"); raw != "" {
		halfLife, _ = strconv.ParseFloat(raw, 64)
	}

	rating, err := h.Service.RecencyWeightedRating(r.Context(), employeeID, dimension, start, end, halfLife)
	if err != nil {
		slog.Warn("recency rating failed", "employeeID", employeeID, "err", err)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "request failed", requestID)
		return
	}
	api.Success(w, map[string]float64{"rating": rating}, requestID)
}

// parseWindow reads the required start/end query window.
func parseWindow(r *http.Request, validator *shared.Validator) (time.Time, time.Time, bool) {
	start, okStart := validator.Date("start", r.URL.Query().Get("start"))
	end, okEnd := validator.Date("end", r.URL.Query().Get("end"))
	validator.DateOrder("start", start, "end", end)
	return start, end, okStart && okEnd
}
