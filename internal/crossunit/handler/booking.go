package handler

import (
	"encoding/json"
	"net/http"

	"navalha/internal/crossunit/service"
	apperrors "navalha/pkg/errors"
	httputil "navalha/pkg/http"
	"navalha/pkg/logger"
	"navalha/pkg/tenant"

	"github.com/julienschmidt/httprouter"
)

type CrossUnitHandler struct {
	service service.Orchestrator
	log     *logger.Logger
}

func NewCrossUnitHandler(service service.Orchestrator, log *logger.Logger) *CrossUnitHandler {
	return &CrossUnitHandler{
		service: service,
		log:     log,
	}
}

func (h *CrossUnitHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/marketplace/bookings", h.Book)
	router.GET("/api/v1/marketplace/commissions", h.Commissions)
}

func (h *CrossUnitHandler) scope(w http.ResponseWriter, r *http.Request) (tenant.Scope, bool) {
	scope, ok := tenant.FromContext(r.Context())
	if !ok {
		if writeErr := httputil.WriteError(w, apperrors.Unauthorized("Missing unit scope")); writeErr != nil {
			h.log.Error("failed to write error response", "operation", "WriteError", "error", writeErr)
		}
		return tenant.Scope{}, false
	}
	return scope, true
}

func (h *CrossUnitHandler) Book(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}

	var req service.BookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput("Invalid request body")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Book", "error", writeErr)
		}
		return
	}

	appt, err := h.service.Book(r.Context(), scope, &req)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Book", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteCreated(w, appt); err != nil {
		h.log.Error("failed to write created response", "handler", "Book", "error", err)
	}
}

func (h *CrossUnitHandler) Commissions(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Commissions", "error", writeErr)
		}
		return
	}

	records, total, err := h.service.Commissions(r.Context(), scope, limit, offset)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Commissions", "error", writeErr)
		}
		return
	}

	if err := httputil.WritePaginated(w, records, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "Commissions", "error", err)
	}
}
