package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	unitserrors "navalha/internal/units/errors"
	"navalha/internal/units/repository"
	"navalha/internal/units/validator"
	"navalha/pkg/config"
	apperrors "navalha/pkg/errors"
	"navalha/pkg/model"
	"navalha/pkg/sanitizer"
	"navalha/pkg/tenant"

	"go.mongodb.org/mongo-driver/bson"
)

// UnitsService owns tenant provisioning and the catalog read paths the
// scheduling core feeds on: unit business hours for the availability
// resolver, service durations for queue ETAs, marketplace listings and
// commission percentages for cross-unit bookings.
type UnitsService interface {
	CreateUnit(ctx context.Context, unit *model.Unit) error
	GetUnit(ctx context.Context, scope tenant.Scope) (*model.Unit, error)
	ListUnits(ctx context.Context, limit int, offset int) ([]*model.Unit, int64, error)
	UpdateUnit(ctx context.Context, scope tenant.Scope, id string, updates *model.UnitUpdate) error
	ArchiveUnit(ctx context.Context, scope tenant.Scope, id string) error
	SetActive(ctx context.Context, scope tenant.Scope, unitID string, active bool) error

	FindByID(ctx context.Context, id string) (*model.Unit, error)
	FindUnit(ctx context.Context, scope tenant.Scope) (*model.Unit, error)
	FindProfessional(ctx context.Context, scope tenant.Scope, id string) (*model.Professional, error)
	FindServices(ctx context.Context, scope tenant.Scope, ids []string) ([]*model.Service, error)

	CreateProfessional(ctx context.Context, scope tenant.Scope, professional *model.Professional) error
	ListProfessionals(ctx context.Context, scope tenant.Scope) ([]*model.Professional, error)
	CreateService(ctx context.Context, scope tenant.Scope, service *model.Service) error
	ListServices(ctx context.Context, scope tenant.Scope) ([]*model.Service, error)
	CreateClient(ctx context.Context, scope tenant.Scope, client *model.Client) error
	ListClients(ctx context.Context, scope tenant.Scope, limit int, offset int) ([]*model.Client, error)
}

type unitsService struct {
	units         repository.UnitRepository
	professionals repository.ProfessionalRepository
	services      repository.ServiceRepository
	clients       repository.ClientRepository
	validator     *validator.UnitValidator
	guard         *tenant.Guard
	cfg           *config.Config
}

func NewUnitsService(
	units repository.UnitRepository,
	professionals repository.ProfessionalRepository,
	services repository.ServiceRepository,
	clients repository.ClientRepository,
	unitValidator *validator.UnitValidator,
	guard *tenant.Guard,
	cfg *config.Config,
) UnitsService {
	return &unitsService{
		units:         units,
		professionals: professionals,
		services:      services,
		clients:       clients,
		validator:     unitValidator,
		guard:         guard,
		cfg:           cfg,
	}
}

func (s *unitsService) CreateUnit(ctx context.Context, unit *model.Unit) error {
	unit.Name = sanitizer.NormalizeName(unit.Name)
	unit.Active = true
	unit.ArchivedAt = nil

	if err := s.validator.Validate(unit); err != nil {
		return apperrors.Validation("Unit validation failed", map[string]any{
			"error": err.Error(),
		})
	}

	if err := s.units.Create(ctx, unit); err != nil {
		return apperrors.Internal("Failed to create unit", err)
	}

	s.cfg.Log.Info("Unit created", "unit_id", unit.ID, "name", unit.Name)
	return nil
}

func (s *unitsService) GetUnit(ctx context.Context, scope tenant.Scope) (*model.Unit, error) {
	unit, err := s.units.FindByScope(ctx, scope)
	if err != nil {
		return nil, translateUnitError(err, scope.ActiveUnitID)
	}
	return unit, nil
}

func (s *unitsService) ListUnits(ctx context.Context, limit int, offset int) ([]*model.Unit, int64, error) {
	units, err := s.units.FindAll(ctx, limit, int64(offset))
	if err != nil {
		return nil, 0, apperrors.Internal("Failed to list units", err)
	}

	count, err := s.units.Count(ctx)
	if err != nil {
		return nil, 0, apperrors.Internal("Failed to count units", err)
	}

	return units, count, nil
}

func (s *unitsService) UpdateUnit(ctx context.Context, scope tenant.Scope, id string, updates *model.UnitUpdate) error {
	if err := scope.Check(id); err != nil {
		return err
	}

	unit, err := s.units.FindByID(ctx, id)
	if err != nil {
		return translateUnitError(err, id)
	}
	if unit.ArchivedAt != nil {
		return apperrors.Conflict(fmt.Sprintf("%s: %s", unitserrors.ErrArchived, id))
	}

	fields := bson.M{}
	if updates.Name != "" {
		fields["name"] = sanitizer.NormalizeName(updates.Name)
	}
	if updates.Active != nil {
		fields["active"] = *updates.Active
	}
	if updates.BusinessHours != nil {
		fields["business_hours"] = *updates.BusinessHours
	}
	if updates.MarketplaceActive != nil {
		fields["marketplace_active"] = *updates.MarketplaceActive
	}
	if updates.AllowCrossUnit != nil {
		fields["allow_cross_unit"] = *updates.AllowCrossUnit
	}
	if updates.CommissionPercentage != nil {
		fields["commission_percentage"] = *updates.CommissionPercentage
	}
	if len(fields) == 0 {
		return apperrors.InvalidInput("No fields to update")
	}

	if err := s.units.Update(ctx, id, fields); err != nil {
		return translateUnitError(err, id)
	}
	return nil
}

func (s *unitsService) ArchiveUnit(ctx context.Context, scope tenant.Scope, id string) error {
	if err := scope.Check(id); err != nil {
		return err
	}

	unit, err := s.units.FindByID(ctx, id)
	if err != nil {
		return translateUnitError(err, id)
	}
	if unit.ArchivedAt != nil {
		return nil
	}

	if err := s.units.Archive(ctx, id, time.Now().UTC().Truncate(time.Millisecond)); err != nil {
		return translateUnitError(err, id)
	}

	s.cfg.Log.Info("Unit archived", "unit_id", id, "name", unit.Name)
	return nil
}

func (s *unitsService) SetActive(ctx context.Context, scope tenant.Scope, unitID string, active bool) error {
	if err := scope.Check(unitID); err != nil {
		return err
	}

	if err := s.units.SetActive(ctx, unitID, active); err != nil {
		return translateUnitError(err, unitID)
	}

	s.cfg.Log.Info("Unit active flag changed", "unit_id", unitID, "active", active)
	return nil
}

// FindByID bypasses tenant scoping. It exists for marketplace destination
// lookups and must not be exposed on tenant-facing read paths.
func (s *unitsService) FindByID(ctx context.Context, id string) (*model.Unit, error) {
	return s.units.FindByID(ctx, id)
}

func (s *unitsService) FindUnit(ctx context.Context, scope tenant.Scope) (*model.Unit, error) {
	return s.GetUnit(ctx, scope)
}

func (s *unitsService) FindProfessional(ctx context.Context, scope tenant.Scope, id string) (*model.Professional, error) {
	professional, err := s.professionals.FindByID(ctx, scope, id)
	if err != nil {
		if errors.Is(err, unitserrors.ErrProfessionalNotFound) {
			return nil, apperrors.NotFoundWithID("professional", id)
		}
		if errors.Is(err, unitserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput(fmt.Sprintf("Invalid professional ID: %s", id))
		}
		return nil, apperrors.Internal("Failed to find professional", err)
	}

	if err := s.guard.Verify(scope, professional.UnitID, repository.ProfessionalsCollectionName, professional.ID); err != nil {
		return nil, err
	}
	return professional, nil
}

func (s *unitsService) FindServices(ctx context.Context, scope tenant.Scope, ids []string) ([]*model.Service, error) {
	if len(ids) == 0 {
		return nil, apperrors.InvalidInput("At least one service is required")
	}

	services, err := s.services.FindByIDs(ctx, scope, ids)
	if err != nil {
		if errors.Is(err, unitserrors.ErrServiceNotFound) {
			return nil, apperrors.NotFound("service")
		}
		if errors.Is(err, unitserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid service ID")
		}
		return nil, apperrors.Internal("Failed to resolve services", err)
	}

	for _, svc := range services {
		if err := s.guard.Verify(scope, svc.UnitID, repository.ServicesCollectionName, svc.ID); err != nil {
			return nil, err
		}
	}
	return services, nil
}

func (s *unitsService) CreateProfessional(ctx context.Context, scope tenant.Scope, professional *model.Professional) error {
	if err := s.guard.Stamp(scope, &professional.UnitID); err != nil {
		return err
	}
	professional.Name = sanitizer.NormalizeName(professional.Name)

	if err := s.validator.ValidateProfessional(professional); err != nil {
		return apperrors.Validation("Professional validation failed", map[string]any{
			"error": err.Error(),
		})
	}

	if err := s.professionals.Create(ctx, scope, professional); err != nil {
		return apperrors.Internal("Failed to create professional", err)
	}
	return nil
}

func (s *unitsService) ListProfessionals(ctx context.Context, scope tenant.Scope) ([]*model.Professional, error) {
	professionals, err := s.professionals.FindByUnit(ctx, scope)
	if err != nil {
		return nil, apperrors.Internal("Failed to list professionals", err)
	}
	return professionals, nil
}

func (s *unitsService) CreateService(ctx context.Context, scope tenant.Scope, service *model.Service) error {
	if err := s.guard.Stamp(scope, &service.UnitID); err != nil {
		return err
	}
	service.Name = sanitizer.NormalizeName(service.Name)

	if err := s.validator.ValidateService(service); err != nil {
		return apperrors.Validation("Service validation failed", map[string]any{
			"error": err.Error(),
		})
	}

	if err := s.services.Create(ctx, scope, service); err != nil {
		return apperrors.Internal("Failed to create service", err)
	}
	return nil
}

func (s *unitsService) ListServices(ctx context.Context, scope tenant.Scope) ([]*model.Service, error) {
	services, err := s.services.FindByUnit(ctx, scope)
	if err != nil {
		return nil, apperrors.Internal("Failed to list services", err)
	}
	return services, nil
}

func (s *unitsService) CreateClient(ctx context.Context, scope tenant.Scope, client *model.Client) error {
	if err := s.guard.Stamp(scope, &client.UnitID); err != nil {
		return err
	}
	client.Name = sanitizer.NormalizeName(client.Name)
	client.Email = sanitizer.TrimAndNormalize(client.Email)

	if err := s.validator.ValidateClient(client); err != nil {
		return apperrors.Validation("Client validation failed", map[string]any{
			"error": err.Error(),
		})
	}

	if err := s.clients.Create(ctx, scope, client); err != nil {
		return apperrors.Internal("Failed to create client", err)
	}
	return nil
}

func (s *unitsService) ListClients(ctx context.Context, scope tenant.Scope, limit int, offset int) ([]*model.Client, error) {
	clients, err := s.clients.FindByUnit(ctx, scope, limit, int64(offset))
	if err != nil {
		return nil, apperrors.Internal("Failed to list clients", err)
	}
	return clients, nil
}

func translateUnitError(err error, id string) error {
	if errors.Is(err, unitserrors.ErrNotFound) {
		return apperrors.NotFoundWithID("unit", id)
	}
	if errors.Is(err, unitserrors.ErrInvalidID) {
		return apperrors.InvalidInput(fmt.Sprintf("Invalid unit ID: %s", id))
	}
	return apperrors.Internal("Unit lookup failed", err)
}
