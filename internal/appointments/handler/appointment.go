package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"navalha/internal/appointments/service"
	apperrors "navalha/pkg/errors"
	httputil "navalha/pkg/http"
	"navalha/pkg/logger"
	"navalha/pkg/model"
	"navalha/pkg/tenant"

	"github.com/julienschmidt/httprouter"
)

type AppointmentHandler struct {
	service service.AppointmentService
	log     *logger.Logger
}

func NewAppointmentHandler(service service.AppointmentService, log *logger.Logger) *AppointmentHandler {
	return &AppointmentHandler{
		service: service,
		log:     log,
	}
}

func (h *AppointmentHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/appointments", h.Schedule)
	router.GET("/api/v1/appointments", h.Search)
	router.GET("/api/v1/appointments/:id", h.GetByID)
	router.POST("/api/v1/appointments/:id/transition", h.Transition)
	router.POST("/api/v1/appointments/:id/reschedule", h.Reschedule)
	router.GET("/api/v1/professionals/:id/availability", h.Availability)
	router.GET("/api/v1/professionals/:id/next-available", h.NextAvailable)
}

func (h *AppointmentHandler) scope(w http.ResponseWriter, r *http.Request) (tenant.Scope, bool) {
	scope, ok := tenant.FromContext(r.Context())
	if !ok {
		if writeErr := httputil.WriteError(w, apperrors.Unauthorized("Missing unit scope")); writeErr != nil {
			h.log.Error("failed to write error response", "operation", "WriteError", "error", writeErr)
		}
		return tenant.Scope{}, false
	}
	return scope, true
}

func (h *AppointmentHandler) Schedule(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}

	var appt model.Appointment
	if err := json.NewDecoder(r.Body).Decode(&appt); err != nil {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput("Invalid request body")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Schedule", "error", writeErr)
		}
		return
	}

	if err := h.service.Schedule(r.Context(), scope, &appt); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Schedule", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteCreated(w, appt); err != nil {
		h.log.Error("failed to write created response", "handler", "Schedule", "error", err)
	}
}

func (h *AppointmentHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}

	appt, err := h.service.GetByID(r.Context(), scope, ps.ByName("id"))
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetByID", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, appt); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "error", err)
	}
}

func (h *AppointmentHandler) Search(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Search", "error", writeErr)
		}
		return
	}

	query := r.URL.Query()
	from, err := parseOptionalTime(query.Get("from"))
	if err != nil {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput("Invalid from parameter, expected RFC3339")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Search", "error", writeErr)
		}
		return
	}
	to, err := parseOptionalTime(query.Get("to"))
	if err != nil {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput("Invalid to parameter, expected RFC3339")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Search", "error", writeErr)
		}
		return
	}

	appts, total, err := h.service.Search(r.Context(), scope, query.Get("professional_id"), from, to, limit, offset)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Search", "error", writeErr)
		}
		return
	}

	if err := httputil.WritePaginated(w, appts, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "Search", "error", err)
	}
}

type transitionRequest struct {
	Status string `json:"status"`
}

func (h *AppointmentHandler) Transition(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}

	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Status == "" {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput("Request body must carry a status")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Transition", "error", writeErr)
		}
		return
	}

	appt, err := h.service.Transition(r.Context(), scope, ps.ByName("id"), req.Status)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Transition", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, appt); err != nil {
		h.log.Error("failed to write success response", "handler", "Transition", "error", err)
	}
}

type rescheduleRequest struct {
	Start time.Time `json:"start"`
}

func (h *AppointmentHandler) Reschedule(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}

	var req rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Start.IsZero() {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput("Request body must carry a start time")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Reschedule", "error", writeErr)
		}
		return
	}

	appt, err := h.service.Reschedule(r.Context(), scope, ps.ByName("id"), req.Start)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Reschedule", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteCreated(w, appt); err != nil {
		h.log.Error("failed to write created response", "handler", "Reschedule", "error", err)
	}
}

func (h *AppointmentHandler) Availability(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	date, err := time.Parse("2006-01-02", query.Get("date"))
	if err != nil {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput("Invalid date parameter, expected YYYY-MM-DD")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Availability", "error", writeErr)
		}
		return
	}

	windows, err := h.service.FreeWindows(r.Context(), scope, ps.ByName("id"), date, splitIDs(query.Get("service_ids")))
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Availability", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, windows); err != nil {
		h.log.Error("failed to write success response", "handler", "Availability", "error", err)
	}
}

func (h *AppointmentHandler) NextAvailable(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	after := time.Now()
	if s := query.Get("after"); s != "" {
		parsed, err := time.Parse(time.RFC3339, s)
		if err != nil {
			if writeErr := httputil.WriteError(w, apperrors.InvalidInput("Invalid after parameter, expected RFC3339")); writeErr != nil {
				h.log.Error("failed to write error response", "handler", "NextAvailable", "error", writeErr)
			}
			return
		}
		after = parsed
	}

	window, err := h.service.NextAvailable(r.Context(), scope, ps.ByName("id"), after, splitIDs(query.Get("service_ids")))
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "NextAvailable", "error", writeErr)
		}
		return
	}
	if window == nil {
		if writeErr := httputil.WriteError(w, apperrors.NotFound("Available slot")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "NextAvailable", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, window); err != nil {
		h.log.Error("failed to write success response", "handler", "NextAvailable", "error", err)
	}
}

func parseOptionalTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func splitIDs(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	ids := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			ids = append(ids, p)
		}
	}
	return ids
}
