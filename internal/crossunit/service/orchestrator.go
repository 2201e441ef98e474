package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"navalha/internal/crossunit/repository"
	unitserrors "navalha/internal/units/errors"
	"navalha/pkg/config"
	apperrors "navalha/pkg/errors"
	"navalha/pkg/model"
	"navalha/pkg/money"
	"navalha/pkg/tenant"

	"go.mongodb.org/mongo-driver/mongo"
)

// Scheduler is the appointment engine the orchestrator books through. The
// whole reservation runs under the destination unit's scope; the origin unit
// never touches the destination's locks or calendar directly.
type Scheduler interface {
	Schedule(ctx context.Context, scope tenant.Scope, appt *model.Appointment) error
}

// UnitSource reads any unit by ID, outside tenant scoping. Marketplace
// lookups are the one sanctioned cross-tenant read: the destination's public
// policy flags must be visible to the origin unit.
type UnitSource interface {
	FindByID(ctx context.Context, id string) (*model.Unit, error)
}

// ServiceSource resolves the destination's services for listing prices.
type ServiceSource interface {
	FindServices(ctx context.Context, scope tenant.Scope, ids []string) ([]*model.Service, error)
}

// Notifier tells the destination unit about a new marketplace reservation.
type Notifier interface {
	CrossUnitBooked(ctx context.Context, appt *model.Appointment)
}

type BookRequest struct {
	DestinationUnitID string    `json:"destination_unit_id"`
	ProfessionalID    string    `json:"professional_id"`
	ClientID          string    `json:"client_id"`
	ServiceIDs        []string  `json:"service_ids"`
	Start             time.Time `json:"start"`
	Observations      string    `json:"observations,omitempty"`
}

type Orchestrator interface {
	Book(ctx context.Context, originScope tenant.Scope, req *BookRequest) (*model.Appointment, error)
	Commissions(ctx context.Context, scope tenant.Scope, limit int, offset int64) ([]*model.CommissionRecord, int64, error)
	AppointmentCompleted(ctx context.Context, scope tenant.Scope, appt *model.Appointment) error
}

type orchestrator struct {
	scheduler   Scheduler
	units       UnitSource
	services    ServiceSource
	commissions repository.CommissionRepository
	notifier    Notifier
	cfg         *config.Config
}

func NewOrchestrator(
	scheduler Scheduler,
	units UnitSource,
	services ServiceSource,
	commissions repository.CommissionRepository,
	notifier Notifier,
	cfg *config.Config,
) Orchestrator {
	return &orchestrator{
		scheduler:   scheduler,
		units:       units,
		services:    services,
		commissions: commissions,
		notifier:    notifier,
		cfg:         cfg,
	}
}

// Book places a marketplace reservation at another unit. The commission
// percentage is snapshotted from the destination at this moment and never
// re-read, so policy changes after booking cannot alter what is owed.
func (o *orchestrator) Book(ctx context.Context, originScope tenant.Scope, req *BookRequest) (*model.Appointment, error) {
	if req.DestinationUnitID == "" {
		return nil, apperrors.InvalidInput("Destination unit ID cannot be empty")
	}
	if req.DestinationUnitID == originScope.ActiveUnitID {
		return nil, apperrors.InvalidInput("Destination unit must differ from the origin unit, book directly instead")
	}

	dest, err := o.units.FindByID(ctx, req.DestinationUnitID)
	if err != nil {
		if errors.Is(err, unitserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Unit", req.DestinationUnitID)
		}
		return nil, apperrors.Internal("Failed to load destination unit", err)
	}

	if !dest.Active || dest.ArchivedAt != nil {
		return nil, apperrors.CrossUnitNotAllowed("unit_inactive")
	}
	if !dest.MarketplaceActive {
		return nil, apperrors.CrossUnitNotAllowed("marketplace_inactive")
	}
	if !dest.AllowCrossUnit {
		return nil, apperrors.CrossUnitNotAllowed("cross_unit_reservations_disabled")
	}

	destScope := tenant.System(dest.ID)

	price, err := o.listingPrice(ctx, destScope, req.ServiceIDs)
	if err != nil {
		return nil, err
	}

	appt := &model.Appointment{
		UnitID:               dest.ID,
		ProfessionalID:       req.ProfessionalID,
		ClientID:             req.ClientID,
		ServiceIDs:           req.ServiceIDs,
		Start:                req.Start,
		Origin:               model.OriginMarketplace,
		Observations:         req.Observations,
		OriginUnitID:         originScope.ActiveUnitID,
		CommissionPercentage: dest.CommissionPercentage,
		PriceCents:           price,
	}

	// Availability, locking and the overlap re-check all run under the
	// destination scope.
	if err := o.scheduler.Schedule(ctx, destScope, appt); err != nil {
		return nil, err
	}

	if o.notifier != nil {
		o.notifier.CrossUnitBooked(ctx, appt)
	}

	o.cfg.Log.Info("Marketplace reservation booked",
		"appointment_id", appt.ID,
		"origin_unit_id", appt.OriginUnitID,
		"destination_unit_id", appt.UnitID,
		"commission_percentage", appt.CommissionPercentage,
		"price", money.FormatBRL(appt.PriceCents),
		"origin", "marketplace",
	)
	return appt, nil
}

func (o *orchestrator) Commissions(ctx context.Context, scope tenant.Scope, limit int, offset int64) ([]*model.CommissionRecord, int64, error) {
	records, total, err := o.commissions.FindByUnit(ctx, scope, limit, offset)
	if err != nil {
		return nil, 0, apperrors.Internal("Failed to list commission records", err)
	}
	return records, total, nil
}

// AppointmentCompleted derives the commission record once a marketplace
// reservation completes. Direct appointments never produce one.
func (o *orchestrator) AppointmentCompleted(ctx context.Context, scope tenant.Scope, appt *model.Appointment) error {
	if !appt.CrossUnit() {
		return nil
	}

	err := o.commissions.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		exists, err := o.commissions.ExistsForReservation(sessCtx, scope, appt.ID)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}

		record := &model.CommissionRecord{
			ReservationID: appt.ID,
			UnitID:        appt.UnitID,
			ValueCents:    money.CommissionCents(appt.PriceCents, appt.CommissionPercentage),
		}
		if err := o.commissions.Create(sessCtx, scope, record); err != nil {
			return err
		}

		o.cfg.Log.Info("Commission recorded",
			"reservation_id", appt.ID,
			"unit_id", record.UnitID,
			"value", money.FormatBRL(record.ValueCents),
		)
		return nil
	})
	if err != nil {
		return apperrors.Internal("Failed to record commission", err)
	}
	return nil
}

func (o *orchestrator) listingPrice(ctx context.Context, destScope tenant.Scope, serviceIDs []string) (int64, error) {
	if len(serviceIDs) == 0 {
		return 0, apperrors.InvalidInput("At least one service is required")
	}

	services, err := o.services.FindServices(ctx, destScope, serviceIDs)
	if err != nil {
		return 0, apperrors.Internal("Failed to resolve destination services", err)
	}
	if len(services) != len(serviceIDs) {
		return 0, apperrors.NotFound("Service")
	}

	var price int64
	for _, svc := range services {
		if svc.Listing == nil {
			return 0, apperrors.CrossUnitNotAllowed(fmt.Sprintf("service_not_listed:%s", svc.ID))
		}
		price += svc.Listing.PublicPriceCents
	}
	return price, nil
}
