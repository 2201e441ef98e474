package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	appointmentserrors "navalha/internal/appointments/errors"
	"navalha/internal/appointments/repository"
	"navalha/internal/appointments/validator"
	"navalha/internal/availability"
	"navalha/pkg/config"
	apperrors "navalha/pkg/errors"
	"navalha/pkg/model"
	"navalha/pkg/sanitizer"
	"navalha/pkg/tenant"

	"go.mongodb.org/mongo-driver/mongo"
)

// AvailabilityResolver is the slice of the availability package the
// scheduler needs.
type AvailabilityResolver interface {
	FreeWindows(ctx context.Context, scope tenant.Scope, professionalID string, date time.Time, totalDuration time.Duration) ([]availability.Window, error)
	NextAvailable(ctx context.Context, scope tenant.Scope, professionalID string, after time.Time, totalDuration time.Duration) (*availability.Window, error)
	WorkingWindow(ctx context.Context, scope tenant.Scope, professionalID string, date time.Time) (*availability.Window, error)
}

// ServiceCatalog resolves the services of a booking so their durations and
// prices can be combined.
type ServiceCatalog interface {
	FindServices(ctx context.Context, scope tenant.Scope, ids []string) ([]*model.Service, error)
}

// Broadcaster publishes invalidation hints after a committed change.
// Implementations must never fail the operation.
type Broadcaster interface {
	AppointmentCreated(ctx context.Context, appt *model.Appointment)
	AppointmentCancelled(ctx context.Context, appt *model.Appointment)
}

// CompletionListener reacts to an appointment reaching the completed state.
// The queue manager and the commission ledger register here.
type CompletionListener interface {
	AppointmentCompleted(ctx context.Context, scope tenant.Scope, appt *model.Appointment) error
}

type AppointmentService interface {
	Schedule(ctx context.Context, scope tenant.Scope, appt *model.Appointment) error
	GetByID(ctx context.Context, scope tenant.Scope, id string) (*model.Appointment, error)
	Search(ctx context.Context, scope tenant.Scope, professionalID string, from, to *time.Time, limit int, offset int64) ([]*model.Appointment, int64, error)
	Transition(ctx context.Context, scope tenant.Scope, id, to string) (*model.Appointment, error)
	Reschedule(ctx context.Context, scope tenant.Scope, id string, newStart time.Time) (*model.Appointment, error)
	FreeWindows(ctx context.Context, scope tenant.Scope, professionalID string, date time.Time, serviceIDs []string) ([]availability.Window, error)
	NextAvailable(ctx context.Context, scope tenant.Scope, professionalID string, after time.Time, serviceIDs []string) (*availability.Window, error)
}

// Allowed forward transitions. Completed and cancelled are terminal;
// rescheduled is only reachable through Reschedule.
var transitions = map[string][]string{
	model.StatusRequested:  {model.StatusScheduled},
	model.StatusScheduled:  {model.StatusConfirmed, model.StatusCancelled},
	model.StatusConfirmed:  {model.StatusInProgress, model.StatusCancelled},
	model.StatusInProgress: {model.StatusCompleted},
}

type appointmentService struct {
	repo        repository.AppointmentRepository
	lockRepo    repository.ReservationLockRepository
	resolver    AvailabilityResolver
	catalog     ServiceCatalog
	validator   *validator.AppointmentValidator
	guard       *tenant.Guard
	broadcaster Broadcaster
	listeners   []CompletionListener
	cfg         *config.Config
}

func NewAppointmentService(
	repo repository.AppointmentRepository,
	lockRepo repository.ReservationLockRepository,
	resolver AvailabilityResolver,
	catalog ServiceCatalog,
	validator *validator.AppointmentValidator,
	broadcaster Broadcaster,
	cfg *config.Config,
	listeners ...CompletionListener,
) AppointmentService {
	return &appointmentService{
		repo:        repo,
		lockRepo:    lockRepo,
		resolver:    resolver,
		catalog:     catalog,
		validator:   validator,
		guard:       tenant.NewGuard(cfg.Log),
		broadcaster: broadcaster,
		listeners:   listeners,
		cfg:         cfg,
	}
}

func (s *appointmentService) Schedule(ctx context.Context, scope tenant.Scope, appt *model.Appointment) error {
	if err := s.guard.Stamp(scope, &appt.UnitID); err != nil {
		return err
	}
	s.applyDefaults(appt)
	s.sanitize(appt)

	services, err := s.resolveServices(ctx, scope, appt.ServiceIDs)
	if err != nil {
		return err
	}
	appt.End = appt.Start.Add(model.TotalDuration(services))
	if appt.PriceCents == 0 {
		for _, svc := range services {
			appt.PriceCents += svc.PriceCents
		}
	}

	if err := s.validate(appt); err != nil {
		return err
	}

	working, err := s.resolver.WorkingWindow(ctx, scope, appt.ProfessionalID, appt.Start)
	if err != nil {
		return err
	}
	if working == nil || !working.Contains(appt.Start, appt.End) {
		return apperrors.OutOfBusinessHours(fmt.Sprintf(
			"Requested interval (%s - %s) is outside the professional's working hours",
			appt.Start.Format(time.RFC3339),
			appt.End.Format(time.RFC3339),
		))
	}

	// Serialize against concurrent reservations for the same professional.
	lockID, err := s.acquireProfessionalLock(ctx, appt.ProfessionalID)
	if err != nil {
		return err
	}
	defer func() {
		if releaseErr := s.lockRepo.Delete(ctx, lockID); releaseErr != nil {
			s.cfg.Log.Warn("Failed to release reservation lock", "lock_id", lockID, "error", releaseErr)
		}
	}()

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.verifyNoOverlap(sessCtx, scope, appt); err != nil {
			return err
		}
		if err := s.repo.Create(sessCtx, scope, appt); err != nil {
			return apperrors.Internal("Failed to create appointment", err)
		}
		// A reschedule successor flips its predecessor in the same
		// transaction: either both commit or neither, so the pair can
		// never end up with two live appointments and no link.
		if appt.RescheduledFrom != "" {
			if err := s.repo.MarkRescheduled(sessCtx, scope, appt.RescheduledFrom, appt.ID); err != nil {
				if errors.Is(err, appointmentserrors.ErrStaleStatus) {
					return apperrors.Conflict(
						"Appointment can no longer be rescheduled, its status changed",
					).WithDetails(map[string]any{"appointment_id": appt.RescheduledFrom})
				}
				return apperrors.Internal("Failed to link rescheduled appointments", err)
			}
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to schedule appointment", "error", err)
		return err
	}

	if s.broadcaster != nil {
		s.broadcaster.AppointmentCreated(ctx, appt)
	}

	s.cfg.Log.Info("Appointment scheduled",
		"id", appt.ID,
		"unit_id", appt.UnitID,
		"professional_id", appt.ProfessionalID,
		"start", appt.Start,
		"origin", appt.Origin,
	)
	return nil
}

func (s *appointmentService) GetByID(ctx context.Context, scope tenant.Scope, id string) (*model.Appointment, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Appointment ID cannot be empty")
	}

	appt, err := s.repo.FindByID(ctx, scope, id)
	if err != nil {
		if errors.Is(err, appointmentserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Appointment", id)
		}
		if errors.Is(err, appointmentserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid appointment ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve appointment", err)
	}

	if err := s.guard.Verify(scope, appt.UnitID, repository.CollectionName, appt.ID); err != nil {
		return nil, err
	}

	return appt, nil
}

func (s *appointmentService) Search(ctx context.Context, scope tenant.Scope, professionalID string, from, to *time.Time, limit int, offset int64) ([]*model.Appointment, int64, error) {
	var count int64
	var appts []*model.Appointment
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		var err error
		count, err = s.repo.CountByProfessional(ctx, scope, professionalID, from, to)
		if err != nil {
			s.cfg.Log.Error("Failed to count appointments", "unit_id", scope.ActiveUnitID, "error", err)
			errCount = apperrors.Internal("Failed to count appointments", err)
		}
	}()

	go func() {
		defer wg.Done()
		var err error
		appts, err = s.repo.FindByProfessional(ctx, scope, professionalID, from, to, limit, offset)
		if err != nil {
			s.cfg.Log.Error("Failed to search appointments", "unit_id", scope.ActiveUnitID, "error", err)
			errFind = apperrors.Internal("Failed to search appointments", err)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return appts, count, nil
}

func (s *appointmentService) Transition(ctx context.Context, scope tenant.Scope, id, to string) (*model.Appointment, error) {
	if to == model.StatusRescheduled {
		return nil, apperrors.InvalidInput("Rescheduling requires a new start time, use the reschedule operation")
	}

	appt, err := s.GetByID(ctx, scope, id)
	if err != nil {
		return nil, err
	}

	if !transitionAllowed(appt.Status, to) {
		return nil, apperrors.Conflict(fmt.Sprintf(
			"Cannot transition appointment from %s to %s", appt.Status, to,
		)).WithDetails(map[string]any{"from": appt.Status, "to": to})
	}

	// Compare-and-set against the status just read: a racing transition
	// that committed first leaves nothing to match and this one loses.
	if err := s.repo.UpdateStatus(ctx, scope, id, appt.Status, to); err != nil {
		if errors.Is(err, appointmentserrors.ErrStaleStatus) {
			return nil, apperrors.Conflict(fmt.Sprintf(
				"Appointment is no longer %s, another transition won", appt.Status,
			)).WithDetails(map[string]any{"observed": appt.Status, "to": to})
		}
		if errors.Is(err, appointmentserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Appointment", id)
		}
		return nil, apperrors.Internal("Failed to update appointment status", err)
	}
	appt.Status = to

	switch to {
	case model.StatusCancelled:
		// The interval is free again the moment the update commits.
		if s.broadcaster != nil {
			s.broadcaster.AppointmentCancelled(ctx, appt)
		}
	case model.StatusCompleted:
		for _, l := range s.listeners {
			if err := l.AppointmentCompleted(ctx, scope, appt); err != nil {
				s.cfg.Log.Error("Completion listener failed",
					"appointment_id", appt.ID,
					"unit_id", appt.UnitID,
					"error", err,
				)
			}
		}
	}

	s.cfg.Log.Info("Appointment transitioned", "id", id, "status", to)
	return appt, nil
}

// Reschedule cancels the old appointment and books a new one, linking the
// pair for the audit trail. The old interval stays occupied until the new
// reservation commits, so reschedules never lose the slot on conflict.
func (s *appointmentService) Reschedule(ctx context.Context, scope tenant.Scope, id string, newStart time.Time) (*model.Appointment, error) {
	old, err := s.GetByID(ctx, scope, id)
	if err != nil {
		return nil, err
	}

	if old.Status != model.StatusScheduled && old.Status != model.StatusConfirmed {
		return nil, apperrors.Conflict(fmt.Sprintf(
			"Only scheduled or confirmed appointments can be rescheduled, current status is %s", old.Status,
		))
	}

	successor := &model.Appointment{
		UnitID:               old.UnitID,
		ProfessionalID:       old.ProfessionalID,
		ClientID:             old.ClientID,
		ServiceIDs:           old.ServiceIDs,
		Start:                newStart,
		Status:               model.StatusScheduled,
		Origin:               old.Origin,
		Observations:         old.Observations,
		RescheduledFrom:      old.ID,
		OriginUnitID:         old.OriginUnitID,
		CommissionPercentage: old.CommissionPercentage,
		PriceCents:           old.PriceCents,
	}

	// Schedule flips the predecessor inside the reservation transaction,
	// so the link commits together with the successor.
	if err := s.Schedule(ctx, scope, successor); err != nil {
		return nil, err
	}

	old.Status = model.StatusRescheduled
	if s.broadcaster != nil {
		s.broadcaster.AppointmentCancelled(ctx, old)
	}

	s.cfg.Log.Info("Appointment rescheduled", "old_id", old.ID, "new_id", successor.ID)
	return successor, nil
}

func (s *appointmentService) FreeWindows(ctx context.Context, scope tenant.Scope, professionalID string, date time.Time, serviceIDs []string) ([]availability.Window, error) {
	services, err := s.resolveServices(ctx, scope, serviceIDs)
	if err != nil {
		return nil, err
	}
	return s.resolver.FreeWindows(ctx, scope, professionalID, date, model.TotalDuration(services))
}

func (s *appointmentService) NextAvailable(ctx context.Context, scope tenant.Scope, professionalID string, after time.Time, serviceIDs []string) (*availability.Window, error) {
	services, err := s.resolveServices(ctx, scope, serviceIDs)
	if err != nil {
		return nil, err
	}
	return s.resolver.NextAvailable(ctx, scope, professionalID, after, model.TotalDuration(services))
}

// --- Helpers ---

func (s *appointmentService) applyDefaults(appt *model.Appointment) {
	if appt.Status == "" {
		appt.Status = model.StatusScheduled
	}
	if appt.Origin == "" {
		appt.Origin = model.OriginDirect
	}
}

func (s *appointmentService) sanitize(appt *model.Appointment) {
	appt.Observations = sanitizer.NormalizeObservations(appt.Observations)
}

func (s *appointmentService) validate(appt *model.Appointment) error {
	if err := s.validator.Validate(appt); err != nil {
		s.cfg.Log.Warn("Appointment validation failed", "error", err)
		return apperrors.Validation("Appointment validation failed", map[string]any{"error": err.Error()})
	}
	return nil
}

func (s *appointmentService) resolveServices(ctx context.Context, scope tenant.Scope, ids []string) ([]*model.Service, error) {
	if len(ids) == 0 {
		return nil, apperrors.InvalidInput("At least one service is required")
	}
	services, err := s.catalog.FindServices(ctx, scope, ids)
	if err != nil {
		return nil, apperrors.Internal("Failed to resolve services", err)
	}
	if len(services) != len(ids) {
		return nil, apperrors.NotFound("Service")
	}
	return services, nil
}

// verifyNoOverlap re-checks the overlap predicate inside the reservation
// transaction. With the advisory lock held this is the authoritative check:
// the first transaction to commit wins, the loser gets a conflict carrying
// the next free slot.
func (s *appointmentService) verifyNoOverlap(ctx context.Context, scope tenant.Scope, appt *model.Appointment) error {
	existing, err := s.repo.FindActiveByProfessional(ctx, scope, appt.ProfessionalID, appt.Start, appt.End)
	if err != nil {
		return apperrors.Internal("Failed to check existing appointments", err)
	}

	for _, b := range existing {
		if b.ID == appt.ID {
			continue
		}
		// The predecessor of a reschedule pair still occupies its interval
		// until the successor commits; it must not block the successor.
		if appt.RescheduledFrom != "" && b.ID == appt.RescheduledFrom {
			continue
		}

		conflict := apperrors.Conflict(fmt.Sprintf(
			"Requested time overlaps an existing appointment (%s - %s)",
			b.Start.Format(time.RFC3339),
			b.End.Format(time.RFC3339),
		))
		if next, nerr := s.resolver.NextAvailable(ctx, scope, appt.ProfessionalID, appt.Start, appt.End.Sub(appt.Start)); nerr == nil && next != nil {
			conflict = conflict.WithDetails(map[string]any{
				"next_available_start": next.Start.Format(time.RFC3339),
				"next_available_end":   next.End.Format(time.RFC3339),
			})
		}
		return conflict
	}
	return nil
}

func (s *appointmentService) acquireProfessionalLock(ctx context.Context, professionalID string) (string, error) {
	lockID := "reservation_" + professionalID
	deadline := time.Now().Add(s.cfg.ReservationLockWait)

	for {
		lock := &model.ReservationLock{
			ID:        lockID,
			ExpiresAt: time.Now().Add(s.cfg.ReservationLockTTL),
		}

		_, err := s.lockRepo.Create(ctx, lock)
		if err == nil {
			return lockID, nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return "", apperrors.Internal("Failed to acquire reservation lock", err)
		}

		// A crashed holder leaves its lock behind; take over once the TTL
		// passes instead of waiting for the sweeper.
		if taken, delErr := s.lockRepo.DeleteIfExpired(ctx, lockID, time.Now()); delErr == nil && taken {
			continue
		}

		if time.Now().After(deadline) {
			return "", apperrors.ReservationTimeout(professionalID)
		}

		select {
		case <-ctx.Done():
			return "", apperrors.Timeout("Request cancelled while waiting for the professional's timeline")
		case <-time.After(s.cfg.ReservationLockRetry):
		}
	}
}

func transitionAllowed(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
