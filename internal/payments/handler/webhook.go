package handler

import (
	"encoding/json"
	"net/http"

	"navalha/internal/payments/service"
	apperrors "navalha/pkg/errors"
	httputil "navalha/pkg/http"
	"navalha/pkg/logger"
	"navalha/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type WebhookHandler struct {
	service service.PaymentService
	log     *logger.Logger
}

func NewWebhookHandler(service service.PaymentService, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		service: service,
		log:     log,
	}
}

func (h *WebhookHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/webhooks/payments", h.HandleWebhook)
}

func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var payload model.WebhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput("Invalid request body")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "HandleWebhook", "error", writeErr)
		}
		return
	}

	if err := h.service.HandleEvent(r.Context(), &payload); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "HandleWebhook", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, map[string]string{"received": payload.ID}); err != nil {
		h.log.Error("failed to write response", "handler", "HandleWebhook", "error", err)
	}
}
