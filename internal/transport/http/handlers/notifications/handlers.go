package notificationshandler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"perfeval/internal/domain/notifications"
	"perfeval/internal/transport/http/api"
	"perfeval/internal/transport/http/middleware"
	"perfeval/internal/transport/http/shared"
)

type Handler struct {
	Service *notifications.Service
}

func NewHandler(service *notifications.Service) *Handler {
	return &Handler{Service: service}
}

// Notifications are scoped to the authenticated actor, so no employee
// identifier appears in the path.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/notifications", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Get("/unread-count", h.handleUnreadCount)
		r.Post("/{notificationID}/read", h.handleMarkRead)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "actor identity required", requestID)
		return
	}
	page := shared.ParsePagination(r, 50, 200)

	items, err := h.Service.List(r.Context(), actor.ID, page.Limit, page.Offset)
	if err != nil {
		slog.Warn("notification list failed", "employeeId", actor.ID, "err", err)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "request failed", requestID)
		return
	}
	if items == nil {
		items = []notifications.Notification{}
	}
	api.Success(w, items, requestID)
}

func (h *Handler) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "actor identity required", requestID)
		return
	}

	count, err := h.Service.UnreadCount(r.Context(), actor.ID)
	if err != nil {
		slog.Warn("notification count failed", "employeeId", actor.ID, "err", err)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "request failed", requestID)
		return
	}
	api.Success(w, map[string]int{"unread": count}, requestID)
}

func (h *Handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "actor identity required", requestID)
		return
	}
	notificationID := chi.URLParam(r, "notificationID")
	if notificationID == "" {
		api.Fail(w, http.StatusBadRequest, "invalid_argument", "notification id is required", requestID)
		return
	}

	if err := h.Service.MarkRead(r.Context(), actor.ID, notificationID); err != nil {
		slog.Warn("notification mark read failed", "employeeId", actor.ID, "notificationId", notificationID, "err", err)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "request failed", requestID)
		return
	}
	api.Success(w, map[string]string{"status": "read"}, requestID)
}
