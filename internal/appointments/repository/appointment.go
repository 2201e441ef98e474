package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	appointmentserrors "navalha/internal/appointments/errors"
	"navalha/pkg/config"
	mongotx "navalha/pkg/db/mongo"
	"navalha/pkg/model"
	"navalha/pkg/tenant"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Appointments"
)

type mongoAppointmentRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

type AppointmentRepository interface {
	Create(ctx context.Context, scope tenant.Scope, appt *model.Appointment) error
	FindByID(ctx context.Context, scope tenant.Scope, id string) (*model.Appointment, error)
	FindByProfessional(ctx context.Context, scope tenant.Scope, professionalID string, from, to *time.Time, limit int, offset int64) ([]*model.Appointment, error)
	CountByProfessional(ctx context.Context, scope tenant.Scope, professionalID string, from, to *time.Time) (int64, error)
	FindActiveByProfessional(ctx context.Context, scope tenant.Scope, professionalID string, from, to time.Time) ([]*model.Appointment, error)
	UpdateStatus(ctx context.Context, scope tenant.Scope, id string, from, to string) error
	MarkRescheduled(ctx context.Context, scope tenant.Scope, id, successorID string) error
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

func NewMongoAppointmentRepository(cfg *config.Config) AppointmentRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoAppointmentRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

// withTimeout wraps the context with a timeout if not already in a transaction.
// A SessionContext cannot be wrapped without breaking transaction semantics,
// so it is returned unchanged with a no-op cancel.
func (r *mongoAppointmentRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	remaining := time.Until(deadline)
	if remaining < timeout {
		return context.WithTimeout(ctx, remaining)
	}

	return context.WithTimeout(ctx, timeout)
}

func (r *mongoAppointmentRepository) Create(ctx context.Context, scope tenant.Scope, appt *model.Appointment) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	appt.UnitID = scope.ActiveUnitID
	appt.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	result, err := r.collection.InsertOne(ctx, appt)
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		appt.ID = oid.Hex()
	}
	return nil
}

func (r *mongoAppointmentRepository) FindByID(ctx context.Context, scope tenant.Scope, id string) (*model.Appointment, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", appointmentserrors.ErrInvalidID, id)
	}

	var appt model.Appointment
	err = r.collection.FindOne(ctx, scope.Filter(bson.M{"_id": objectID})).Decode(&appt)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, appointmentserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find appointment: %w", err)
	}

	return &appt, nil
}

func (r *mongoAppointmentRepository) FindByProfessional(ctx context.Context, scope tenant.Scope, professionalID string, from, to *time.Time, limit int, offset int64) ([]*model.Appointment, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "start", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, r.buildSearchFilter(scope, professionalID, from, to), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find appointments: %w", err)
	}
	defer cursor.Close(ctx)

	var appts []*model.Appointment
	if err = cursor.All(ctx, &appts); err != nil {
		return nil, fmt.Errorf("failed to decode appointments: %w", err)
	}

	return appts, nil
}

func (r *mongoAppointmentRepository) CountByProfessional(ctx context.Context, scope tenant.Scope, professionalID string, from, to *time.Time) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, r.buildSearchFilter(scope, professionalID, from, to))
	if err != nil {
		return 0, fmt.Errorf("failed to count appointments: %w", err)
	}
	return count, nil
}

// FindActiveByProfessional returns every non-cancelled appointment whose
// interval touches [from, to). This is the overlap predicate the conflict
// detector re-checks inside the reservation transaction, so it must run
// against the same collection state the insert will see.
func (r *mongoAppointmentRepository) FindActiveByProfessional(ctx context.Context, scope tenant.Scope, professionalID string, from, to time.Time) ([]*model.Appointment, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := scope.Filter(bson.M{
		"professional_id": professionalID,
		"status":          bson.M{"$nin": []string{model.StatusCancelled, model.StatusRescheduled}},
		"start":           bson.M{"$lt": to},
		"end":             bson.M{"$gt": from},
	})

	opts := options.Find().SetSort(bson.D{{Key: "start", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find active appointments: %w", err)
	}
	defer cursor.Close(ctx)

	var appts []*model.Appointment
	if err = cursor.All(ctx, &appts); err != nil {
		return nil, fmt.Errorf("failed to decode active appointments: %w", err)
	}

	return appts, nil
}

// UpdateStatus is a compare-and-set: the write only matches while the
// appointment still holds the status the caller observed, so of two racing
// transitions exactly one commits and the loser sees ErrStaleStatus.
func (r *mongoAppointmentRepository) UpdateStatus(ctx context.Context, scope tenant.Scope, id string, from, to string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", appointmentserrors.ErrInvalidID, id)
	}

	result, err := r.collection.UpdateOne(ctx,
		scope.Filter(bson.M{"_id": objectID, "status": from}),
		bson.M{"$set": bson.M{"status": to}},
	)
	if err != nil {
		return fmt.Errorf("failed to update appointment status: %w", err)
	}

	if result.MatchedCount == 0 {
		return appointmentserrors.ErrStaleStatus
	}

	return nil
}

// MarkRescheduled flips the old appointment of a reschedule pair to the
// rescheduled status and records its successor for the audit trail.
func (r *mongoAppointmentRepository) MarkRescheduled(ctx context.Context, scope tenant.Scope, id, successorID string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", appointmentserrors.ErrInvalidID, id)
	}

	// Guarded on the reschedulable statuses: a predecessor that was
	// cancelled or completed in the meantime no longer matches and the
	// surrounding transaction aborts before the successor commits.
	result, err := r.collection.UpdateOne(ctx,
		scope.Filter(bson.M{
			"_id":    objectID,
			"status": bson.M{"$in": []string{model.StatusScheduled, model.StatusConfirmed}},
		}),
		bson.M{"$set": bson.M{
			"status":         model.StatusRescheduled,
			"rescheduled_to": successorID,
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to mark appointment rescheduled: %w", err)
	}

	if result.MatchedCount == 0 {
		return appointmentserrors.ErrStaleStatus
	}

	return nil
}

func (r *mongoAppointmentRepository) buildSearchFilter(scope tenant.Scope, professionalID string, from, to *time.Time) bson.M {
	extra := bson.M{}
	if professionalID != "" {
		extra["professional_id"] = professionalID
	}

	if from != nil || to != nil {
		timeFilter := bson.M{}
		if to != nil {
			timeFilter["start"] = bson.M{"$lt": *to}
		}
		if from != nil {
			timeFilter["end"] = bson.M{"$gt": *from}
		}
		extra["$and"] = []bson.M{timeFilter}
	}

	return scope.Filter(extra)
}

func (r *mongoAppointmentRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
