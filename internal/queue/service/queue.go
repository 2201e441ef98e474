package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	queueerrors "navalha/internal/queue/errors"
	"navalha/internal/queue/repository"
	"navalha/internal/queue/validator"
	"navalha/pkg/config"
	apperrors "navalha/pkg/errors"
	"navalha/pkg/model"
	"navalha/pkg/tenant"

	"go.mongodb.org/mongo-driver/mongo"
)

// Broadcaster publishes queue invalidation hints after a committed change.
type Broadcaster interface {
	QueueUpdated(ctx context.Context, unitID string)
}

// ServiceCatalog resolves services so wait durations can be denormalized at
// enqueue time.
type ServiceCatalog interface {
	FindServices(ctx context.Context, scope tenant.Scope, ids []string) ([]*model.Service, error)
}

// PartitionLocker serializes renumbering per queue partition. Transactions
// alone cannot: snapshot reads take no locks, so two concurrent mutations
// both read the same tail and commit duplicate positions.
type PartitionLocker interface {
	Create(ctx context.Context, lock *model.ReservationLock) (*model.ReservationLock, error)
	Delete(ctx context.Context, lockID string) error
	DeleteIfExpired(ctx context.Context, lockID string, now time.Time) (bool, error)
}

type QueueService interface {
	Enqueue(ctx context.Context, scope tenant.Scope, entry *model.QueueEntry) error
	List(ctx context.Context, scope tenant.Scope, professionalID string) ([]*model.QueueView, *model.QueueState, error)
	CallNext(ctx context.Context, scope tenant.Scope, professionalID string) (*model.QueueEntry, error)
	Prioritize(ctx context.Context, scope tenant.Scope, id string) error
	Remove(ctx context.Context, scope tenant.Scope, id string) error
	Pause(ctx context.Context, scope tenant.Scope) error
	Resume(ctx context.Context, scope tenant.Scope) error
	AppointmentCompleted(ctx context.Context, scope tenant.Scope, appt *model.Appointment) error
}

type queueService struct {
	repo        repository.QueueRepository
	states      repository.QueueStateRepository
	locks       PartitionLocker
	catalog     ServiceCatalog
	validator   *validator.QueueValidator
	guard       *tenant.Guard
	broadcaster Broadcaster
	cfg         *config.Config
}

func NewQueueService(
	repo repository.QueueRepository,
	states repository.QueueStateRepository,
	locks PartitionLocker,
	catalog ServiceCatalog,
	validator *validator.QueueValidator,
	broadcaster Broadcaster,
	cfg *config.Config,
) QueueService {
	return &queueService{
		repo:        repo,
		states:      states,
		locks:       locks,
		catalog:     catalog,
		validator:   validator,
		guard:       tenant.NewGuard(cfg.Log),
		broadcaster: broadcaster,
		cfg:         cfg,
	}
}

func (s *queueService) Enqueue(ctx context.Context, scope tenant.Scope, entry *model.QueueEntry) error {
	if err := s.guard.Stamp(scope, &entry.UnitID); err != nil {
		return err
	}

	state, err := s.states.Get(ctx, scope)
	if err != nil {
		return apperrors.Internal("Failed to read queue state", err)
	}
	if state.Paused {
		return apperrors.QueuePaused(scope.ActiveUnitID)
	}

	if entry.Status == "" {
		entry.Status = model.QueueWaiting
	}

	services, err := s.catalog.FindServices(ctx, scope, entry.ServiceIDs)
	if err != nil {
		return apperrors.Internal("Failed to resolve services", err)
	}
	if len(services) != len(entry.ServiceIDs) {
		return apperrors.NotFound("Service")
	}
	entry.DurationMinutes = 0
	for _, svc := range services {
		entry.DurationMinutes += svc.DurationMinutes
	}

	if err := s.validator.Validate(entry); err != nil {
		s.cfg.Log.Warn("Queue entry validation failed", "error", err)
		return apperrors.Validation("Queue entry validation failed", map[string]any{"error": err.Error()})
	}

	err = s.withPartitionLock(ctx, scope, entry.ProfessionalID, func() error {
		return s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
			max, err := s.repo.MaxPosition(sessCtx, scope, entry.ProfessionalID)
			if err != nil {
				return apperrors.Internal("Failed to determine queue tail", err)
			}
			entry.Position = max + 1
			if err := s.repo.Insert(sessCtx, scope, entry); err != nil {
				return apperrors.Internal("Failed to enqueue", err)
			}
			return nil
		})
	})
	if err != nil {
		s.cfg.Log.Error("Failed to enqueue client", "unit_id", scope.ActiveUnitID, "error", err)
		return err
	}

	s.broadcast(ctx, scope)
	s.cfg.Log.Info("Client enqueued",
		"id", entry.ID,
		"unit_id", entry.UnitID,
		"professional_id", entry.ProfessionalID,
		"position", entry.Position,
	)
	return nil
}

// List returns the waiting line with derived ETAs plus the queue state. ETA
// is recomputed from positions on every call: the k-th entry waits for the
// summed durations of everyone ahead of it, so eta(1) is always zero.
func (s *queueService) List(ctx context.Context, scope tenant.Scope, professionalID string) ([]*model.QueueView, *model.QueueState, error) {
	state, err := s.states.Get(ctx, scope)
	if err != nil {
		return nil, nil, apperrors.Internal("Failed to read queue state", err)
	}

	entries, err := s.repo.FindWaiting(ctx, scope, professionalID)
	if err != nil {
		return nil, nil, apperrors.Internal("Failed to read queue", err)
	}
	if err := s.checkDense(scope, entries); err != nil {
		return nil, nil, err
	}

	views := make([]*model.QueueView, 0, len(entries))
	eta := 0
	for _, e := range entries {
		views = append(views, &model.QueueView{Entry: e, ETAMinutes: eta})
		eta += e.DurationMinutes
	}

	return views, state, nil
}

// CallNext pops the head of the partition. A paused queue accepts no new
// entries but stays callable so the line can drain.
func (s *queueService) CallNext(ctx context.Context, scope tenant.Scope, professionalID string) (*model.QueueEntry, error) {
	var head *model.QueueEntry

	err := s.withPartitionLock(ctx, scope, professionalID, func() error {
		return s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
			entries, err := s.repo.FindWaiting(sessCtx, scope, professionalID)
			if err != nil {
				return apperrors.Internal("Failed to read queue", err)
			}
			if len(entries) == 0 {
				return apperrors.NotFound("Waiting queue entry")
			}
			if err := s.checkDense(scope, entries); err != nil {
				return err
			}

			head = entries[0]
			if err := s.repo.SetStatus(sessCtx, scope, head.ID, model.QueueCalled, 0); err != nil {
				return apperrors.Internal("Failed to call queue entry", err)
			}
			if err := s.repo.ShiftPositions(sessCtx, scope, professionalID, head.Position, -1); err != nil {
				return apperrors.Internal("Failed to compact queue positions", err)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	head.Status = model.QueueCalled
	head.Position = 0

	s.broadcast(ctx, scope)
	s.cfg.Log.Info("Queue entry called", "id", head.ID, "unit_id", scope.ActiveUnitID)
	return head, nil
}

// Prioritize moves a waiting entry to the front of its partition, shifting
// everyone it passed down by one. Prioritizing twice is last-wins.
func (s *queueService) Prioritize(ctx context.Context, scope tenant.Scope, id string) error {
	// The partition of an entry never changes, so a plain read suffices to
	// pick the lock key; the transaction re-reads the authoritative state.
	target, err := s.findEntry(ctx, scope, id)
	if err != nil {
		return err
	}

	err = s.withPartitionLock(ctx, scope, target.ProfessionalID, func() error {
		return s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
			entry, err := s.findEntry(sessCtx, scope, id)
			if err != nil {
				return err
			}
			if entry.Status != model.QueueWaiting {
				return apperrors.Conflict(fmt.Sprintf("Only waiting entries can be prioritized, status is %s", entry.Status))
			}
			if entry.Position == 1 {
				return nil
			}

			if err := s.repo.ShiftPositionsBelow(sessCtx, scope, entry.ProfessionalID, entry.Position, 1); err != nil {
				return apperrors.Internal("Failed to shift queue positions", err)
			}
			if err := s.repo.SetStatus(sessCtx, scope, entry.ID, model.QueueWaiting, 1); err != nil {
				return apperrors.Internal("Failed to move queue entry to front", err)
			}
			return nil
		})
	})
	if err != nil {
		return err
	}

	s.broadcast(ctx, scope)
	s.cfg.Log.Info("Queue entry prioritized", "id", id, "unit_id", scope.ActiveUnitID)
	return nil
}

func (s *queueService) Remove(ctx context.Context, scope tenant.Scope, id string) error {
	target, err := s.findEntry(ctx, scope, id)
	if err != nil {
		return err
	}

	err = s.withPartitionLock(ctx, scope, target.ProfessionalID, func() error {
		return s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
			entry, err := s.findEntry(sessCtx, scope, id)
			if err != nil {
				return err
			}
			if !entry.Active() {
				return apperrors.Conflict(fmt.Sprintf("Queue entry already left the queue with status %s", entry.Status))
			}
			return s.removeEntry(sessCtx, scope, entry)
		})
	})
	if err != nil {
		return err
	}

	s.broadcast(ctx, scope)
	s.cfg.Log.Info("Queue entry removed", "id", id, "unit_id", scope.ActiveUnitID)
	return nil
}

func (s *queueService) Pause(ctx context.Context, scope tenant.Scope) error {
	if err := s.states.SetPaused(ctx, scope, true); err != nil {
		return apperrors.Internal("Failed to pause queue", err)
	}
	s.broadcast(ctx, scope)
	s.cfg.Log.Info("Queue paused", "unit_id", scope.ActiveUnitID)
	return nil
}

func (s *queueService) Resume(ctx context.Context, scope tenant.Scope) error {
	if err := s.states.SetPaused(ctx, scope, false); err != nil {
		return apperrors.Internal("Failed to resume queue", err)
	}
	s.broadcast(ctx, scope)
	s.cfg.Log.Info("Queue resumed", "unit_id", scope.ActiveUnitID)
	return nil
}

// AppointmentCompleted drops the client's live queue entry once their
// appointment finishes. No entry is not an error: most appointments never
// touch the walk-in queue.
func (s *queueService) AppointmentCompleted(ctx context.Context, scope tenant.Scope, appt *model.Appointment) error {
	target, err := s.repo.FindActiveByClient(ctx, scope, appt.ClientID)
	if err != nil {
		if errors.Is(err, queueerrors.ErrNotFound) {
			return nil
		}
		return apperrors.Internal("Failed to look up queue entry for client", err)
	}

	err = s.withPartitionLock(ctx, scope, target.ProfessionalID, func() error {
		return s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
			entry, err := s.repo.FindActiveByClient(sessCtx, scope, appt.ClientID)
			if err != nil {
				if errors.Is(err, queueerrors.ErrNotFound) {
					return nil
				}
				return apperrors.Internal("Failed to look up queue entry for client", err)
			}
			if err := s.repo.SetStatus(sessCtx, scope, entry.ID, model.QueueDone, 0); err != nil {
				return apperrors.Internal("Failed to close queue entry", err)
			}
			if entry.Status == model.QueueWaiting {
				if err := s.repo.ShiftPositions(sessCtx, scope, entry.ProfessionalID, entry.Position, -1); err != nil {
					return apperrors.Internal("Failed to compact queue positions", err)
				}
			}
			return nil
		})
	})
	if err != nil {
		return err
	}

	s.broadcast(ctx, scope)
	return nil
}

// --- Helpers ---

func (s *queueService) findEntry(ctx context.Context, scope tenant.Scope, id string) (*model.QueueEntry, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Queue entry ID cannot be empty")
	}
	entry, err := s.repo.FindByID(ctx, scope, id)
	if err != nil {
		if errors.Is(err, queueerrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Queue entry", id)
		}
		if errors.Is(err, queueerrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid queue entry ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve queue entry", err)
	}
	if err := s.guard.Verify(scope, entry.UnitID, repository.CollectionName, entry.ID); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *queueService) removeEntry(ctx context.Context, scope tenant.Scope, entry *model.QueueEntry) error {
	if err := s.repo.SetStatus(ctx, scope, entry.ID, model.QueueRemoved, 0); err != nil {
		return apperrors.Internal("Failed to remove queue entry", err)
	}
	if entry.Status == model.QueueWaiting {
		if err := s.repo.ShiftPositions(ctx, scope, entry.ProfessionalID, entry.Position, -1); err != nil {
			return apperrors.Internal("Failed to compact queue positions", err)
		}
	}
	return nil
}

// withPartitionLock runs fn holding the partition's advisory lock, so the
// read-renumber-write sequences inside never interleave.
func (s *queueService) withPartitionLock(ctx context.Context, scope tenant.Scope, professionalID string, fn func() error) error {
	lockID, err := s.acquirePartitionLock(ctx, scope, professionalID)
	if err != nil {
		return err
	}
	defer func() {
		if releaseErr := s.locks.Delete(ctx, lockID); releaseErr != nil {
			s.cfg.Log.Warn("Failed to release queue partition lock", "lock_id", lockID, "error", releaseErr)
		}
	}()
	return fn()
}

func (s *queueService) acquirePartitionLock(ctx context.Context, scope tenant.Scope, professionalID string) (string, error) {
	lockID := "queue_" + scope.ActiveUnitID
	if professionalID != "" {
		lockID += "_" + professionalID
	}
	deadline := time.Now().Add(s.cfg.ReservationLockWait)

	for {
		lock := &model.ReservationLock{
			ID:        lockID,
			ExpiresAt: time.Now().Add(s.cfg.ReservationLockTTL),
		}

		_, err := s.locks.Create(ctx, lock)
		if err == nil {
			return lockID, nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return "", apperrors.Internal("Failed to acquire queue partition lock", err)
		}

		// A crashed holder leaves its lock behind; take over once the TTL
		// passes instead of waiting for the sweeper.
		if taken, delErr := s.locks.DeleteIfExpired(ctx, lockID, time.Now()); delErr == nil && taken {
			continue
		}

		if time.Now().After(deadline) {
			return "", apperrors.ReservationTimeout(professionalID)
		}

		select {
		case <-ctx.Done():
			return "", apperrors.Timeout("Request cancelled while waiting for the queue partition")
		case <-time.After(s.cfg.ReservationLockRetry):
		}
	}
}

// checkDense asserts the waiting line holds positions 1..N with no gap or
// duplicate. A breach means the store was mutated outside a renumbering
// transaction and is a hard internal error, never silently repaired.
func (s *queueService) checkDense(scope tenant.Scope, entries []*model.QueueEntry) error {
	for i, e := range entries {
		if e.Position != i+1 {
			s.cfg.Log.Error("queue ordering corrupted",
				"unit_id", scope.ActiveUnitID,
				"entry_id", e.ID,
				"position", e.Position,
				"expected", i+1,
			)
			return apperrors.Internal("Queue ordering corrupted",
				fmt.Errorf("entry %s holds position %d, expected %d", e.ID, e.Position, i+1))
		}
	}
	return nil
}

func (s *queueService) broadcast(ctx context.Context, scope tenant.Scope) {
	if s.broadcaster != nil {
		s.broadcaster.QueueUpdated(ctx, scope.ActiveUnitID)
	}
}
