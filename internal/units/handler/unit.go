package handler

import (
	"encoding/json"
	"net/http"

	"navalha/internal/units/service"
	apperrors "navalha/pkg/errors"
	httputil "navalha/pkg/http"
	"navalha/pkg/logger"
	"navalha/pkg/model"
	"navalha/pkg/tenant"

	"github.com/julienschmidt/httprouter"
)

type UnitsHandler struct {
	service service.UnitsService
	log     *logger.Logger
}

func NewUnitsHandler(service service.UnitsService, log *logger.Logger) *UnitsHandler {
	return &UnitsHandler{
		service: service,
		log:     log,
	}
}

func (h *UnitsHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/units", h.CreateUnit)
	router.GET("/api/v1/units", h.ListUnits)
	router.GET("/api/v1/units/:id", h.GetUnit)
	router.PUT("/api/v1/units/:id", h.UpdateUnit)
	router.DELETE("/api/v1/units/:id", h.ArchiveUnit)

	router.POST("/api/v1/professionals", h.CreateProfessional)
	router.GET("/api/v1/professionals", h.ListProfessionals)
	router.POST("/api/v1/services", h.CreateService)
	router.GET("/api/v1/services", h.ListServices)
	router.POST("/api/v1/clients", h.CreateClient)
	router.GET("/api/v1/clients", h.ListClients)
}

func (h *UnitsHandler) scope(w http.ResponseWriter, r *http.Request) (tenant.Scope, bool) {
	scope, ok := tenant.FromContext(r.Context())
	if !ok {
		if writeErr := httputil.WriteError(w, apperrors.Unauthorized("Missing unit scope")); writeErr != nil {
			h.log.Error("failed to write error response", "operation", "WriteError", "error", writeErr)
		}
		return tenant.Scope{}, false
	}
	return scope, true
}

func (h *UnitsHandler) writeErr(w http.ResponseWriter, handlerName string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handlerName, "error", writeErr)
	}
}

func (h *UnitsHandler) CreateUnit(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var unit model.Unit
	if err := json.NewDecoder(r.Body).Decode(&unit); err != nil {
		h.writeErr(w, "CreateUnit", apperrors.InvalidInput("Invalid request body"))
		return
	}

	if err := h.service.CreateUnit(r.Context(), &unit); err != nil {
		h.writeErr(w, "CreateUnit", err)
		return
	}

	if err := httputil.WriteCreated(w, unit); err != nil {
		h.log.Error("failed to write response", "handler", "CreateUnit", "error", err)
	}
}

func (h *UnitsHandler) ListUnits(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeErr(w, "ListUnits", err)
		return
	}

	units, total, err := h.service.ListUnits(r.Context(), limit, int(offset))
	if err != nil {
		h.writeErr(w, "ListUnits", err)
		return
	}

	if err := httputil.WritePaginated(w, units, total, limit, offset); err != nil {
		h.log.Error("failed to write response", "handler", "ListUnits", "error", err)
	}
}

func (h *UnitsHandler) GetUnit(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}

	id := params.ByName("id")
	if err := scope.Check(id); err != nil {
		h.writeErr(w, "GetUnit", err)
		return
	}

	unit, err := h.service.GetUnit(r.Context(), scope)
	if err != nil {
		h.writeErr(w, "GetUnit", err)
		return
	}

	if err := httputil.WriteSuccess(w, unit); err != nil {
		h.log.Error("failed to write response", "handler", "GetUnit", "error", err)
	}
}

func (h *UnitsHandler) UpdateUnit(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}

	var updates model.UnitUpdate
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		h.writeErr(w, "UpdateUnit", apperrors.InvalidInput("Invalid request body"))
		return
	}

	if err := h.service.UpdateUnit(r.Context(), scope, params.ByName("id"), &updates); err != nil {
		h.writeErr(w, "UpdateUnit", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *UnitsHandler) ArchiveUnit(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}

	if err := h.service.ArchiveUnit(r.Context(), scope, params.ByName("id")); err != nil {
		h.writeErr(w, "ArchiveUnit", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *UnitsHandler) CreateProfessional(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}

	var professional model.Professional
	if err := json.NewDecoder(r.Body).Decode(&professional); err != nil {
		h.writeErr(w, "CreateProfessional", apperrors.InvalidInput("Invalid request body"))
		return
	}

	if err := h.service.CreateProfessional(r.Context(), scope, &professional); err != nil {
		h.writeErr(w, "CreateProfessional", err)
		return
	}

	if err := httputil.WriteCreated(w, professional); err != nil {
		h.log.Error("failed to write response", "handler", "CreateProfessional", "error", err)
	}
}

func (h *UnitsHandler) ListProfessionals(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}

	professionals, err := h.service.ListProfessionals(r.Context(), scope)
	if err != nil {
		h.writeErr(w, "ListProfessionals", err)
		return
	}

	if err := httputil.WriteSuccess(w, professionals); err != nil {
		h.log.Error("failed to write response", "handler", "ListProfessionals", "error", err)
	}
}

func (h *UnitsHandler) CreateService(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}

	var svc model.Service
	if err := json.NewDecoder(r.Body).Decode(&svc); err != nil {
		h.writeErr(w, "CreateService", apperrors.InvalidInput("Invalid request body"))
		return
	}

	if err := h.service.CreateService(r.Context(), scope, &svc); err != nil {
		h.writeErr(w, "CreateService", err)
		return
	}

	if err := httputil.WriteCreated(w, svc); err != nil {
		h.log.Error("failed to write response", "handler", "CreateService", "error", err)
	}
}

func (h *UnitsHandler) ListServices(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}

	services, err := h.service.ListServices(r.Context(), scope)
	if err != nil {
		h.writeErr(w, "ListServices", err)
		return
	}

	if err := httputil.WriteSuccess(w, services); err != nil {
		h.log.Error("failed to write response", "handler", "ListServices", "error", err)
	}
}

func (h *UnitsHandler) CreateClient(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}

	var client model.Client
	if err := json.NewDecoder(r.Body).Decode(&client); err != nil {
		h.writeErr(w, "CreateClient", apperrors.InvalidInput("Invalid request body"))
		return
	}

	if err := h.service.CreateClient(r.Context(), scope, &client); err != nil {
		h.writeErr(w, "CreateClient", err)
		return
	}

	if err := httputil.WriteCreated(w, client); err != nil {
		h.log.Error("failed to write response", "handler", "CreateClient", "error", err)
	}
}

func (h *UnitsHandler) ListClients(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeErr(w, "ListClients", err)
		return
	}

	clients, err := h.service.ListClients(r.Context(), scope, limit, int(offset))
	if err != nil {
		h.writeErr(w, "ListClients", err)
		return
	}

	if err := httputil.WriteSuccess(w, clients); err != nil {
		h.log.Error("failed to write response", "handler", "ListClients", "error", err)
	}
}
