package handler

import (
	"encoding/json"
	"net/http"

	"navalha/internal/queue/service"
	apperrors "navalha/pkg/errors"
	httputil "navalha/pkg/http"
	"navalha/pkg/logger"
	"navalha/pkg/model"
	"navalha/pkg/tenant"

	"github.com/julienschmidt/httprouter"
)

type QueueHandler struct {
	service service.QueueService
	log     *logger.Logger
}

func NewQueueHandler(service service.QueueService, log *logger.Logger) *QueueHandler {
	return &QueueHandler{
		service: service,
		log:     log,
	}
}

func (h *QueueHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/queue", h.List)
	router.POST("/api/v1/queue/entries", h.Enqueue)
	router.POST("/api/v1/queue/entries/:id/prioritize", h.Prioritize)
	router.DELETE("/api/v1/queue/entries/:id", h.Remove)
	router.POST("/api/v1/queue/call-next", h.CallNext)
	router.POST("/api/v1/queue/pause", h.Pause)
	router.POST("/api/v1/queue/resume", h.Resume)
}

func (h *QueueHandler) scope(w http.ResponseWriter, r *http.Request) (tenant.Scope, bool) {
	scope, ok := tenant.FromContext(r.Context())
	if !ok {
		if writeErr := httputil.WriteError(w, apperrors.Unauthorized("Missing unit scope")); writeErr != nil {
			h.log.Error("failed to write error response", "operation", "WriteError", "error", writeErr)
		}
		return tenant.Scope{}, false
	}
	return scope, true
}

func (h *QueueHandler) Enqueue(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}

	var entry model.QueueEntry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput("Invalid request body")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Enqueue", "error", writeErr)
		}
		return
	}

	if err := h.service.Enqueue(r.Context(), scope, &entry); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Enqueue", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteCreated(w, entry); err != nil {
		h.log.Error("failed to write created response", "handler", "Enqueue", "error", err)
	}
}

type queueListResponse struct {
	Entries []*model.QueueView `json:"entries"`
	Paused  bool               `json:"paused"`
}

func (h *QueueHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}

	views, state, err := h.service.List(r.Context(), scope, r.URL.Query().Get("professional_id"))
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "List", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, queueListResponse{Entries: views, Paused: state.Paused}); err != nil {
		h.log.Error("failed to write success response", "handler", "List", "error", err)
	}
}

func (h *QueueHandler) CallNext(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}

	entry, err := h.service.CallNext(r.Context(), scope, r.URL.Query().Get("professional_id"))
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "CallNext", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, entry); err != nil {
		h.log.Error("failed to write success response", "handler", "CallNext", "error", err)
	}
}

func (h *QueueHandler) Prioritize(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}

	if err := h.service.Prioritize(r.Context(), scope, ps.ByName("id")); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Prioritize", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

func (h *QueueHandler) Remove(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}

	if err := h.service.Remove(r.Context(), scope, ps.ByName("id")); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Remove", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

func (h *QueueHandler) Pause(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}

	if err := h.service.Pause(r.Context(), scope); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Pause", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

func (h *QueueHandler) Resume(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}

	if err := h.service.Resume(r.Context(), scope); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Resume", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}
