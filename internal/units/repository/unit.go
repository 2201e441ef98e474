package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	unitserrors "navalha/internal/units/errors"
	"navalha/pkg/config"
	"navalha/pkg/model"
	"navalha/pkg/tenant"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	UnitsCollectionName = "Units"
)

type mongoUnitRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

type UnitRepository interface {
	Create(ctx context.Context, unit *model.Unit) error
	// FindByID reads any unit regardless of tenant scope. Marketplace
	// destination lookups and admin provisioning are the only callers.
	FindByID(ctx context.Context, id string) (*model.Unit, error)
	FindByScope(ctx context.Context, scope tenant.Scope) (*model.Unit, error)
	FindAll(ctx context.Context, limit int, offset int64) ([]*model.Unit, error)
	Count(ctx context.Context) (int64, error)
	Update(ctx context.Context, id string, updates bson.M) error
	Archive(ctx context.Context, id string, at time.Time) error
	SetActive(ctx context.Context, id string, active bool) error
}

func NewMongoUnitRepository(cfg *config.Config) UnitRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoUnitRepository{
		cfg:        cfg,
		collection: db.Collection(UnitsCollectionName),
	}
}

func (r *mongoUnitRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
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

func (r *mongoUnitRepository) Create(ctx context.Context, unit *model.Unit) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	unit.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	result, err := r.collection.InsertOne(ctx, unit)
	if err != nil {
		return fmt.Errorf("failed to create unit: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		unit.ID = oid.Hex()
	}
	return nil
}

func (r *mongoUnitRepository) FindByID(ctx context.Context, id string) (*model.Unit, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", unitserrors.ErrInvalidID, id)
	}

	var unit model.Unit
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&unit)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", unitserrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to find unit: %w", err)
	}
	return &unit, nil
}

func (r *mongoUnitRepository) FindByScope(ctx context.Context, scope tenant.Scope) (*model.Unit, error) {
	return r.FindByID(ctx, scope.ActiveUnitID)
}

func (r *mongoUnitRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Unit, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetLimit(int64(limit)).
		SetSkip(offset).
		SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query units: %w", err)
	}
	defer cursor.Close(ctx)

	var units []*model.Unit
	if err = cursor.All(ctx, &units); err != nil {
		return nil, fmt.Errorf("failed to decode units: %w", err)
	}
	return units, nil
}

func (r *mongoUnitRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count units: %w", err)
	}
	return count, nil
}

func (r *mongoUnitRepository) Update(ctx context.Context, id string, updates bson.M) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", unitserrors.ErrInvalidID, id)
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, bson.M{"$set": updates})
	if err != nil {
		return fmt.Errorf("failed to update unit: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", unitserrors.ErrNotFound, id)
	}
	return nil
}

// Archive soft-deletes the unit. Historical appointments keep referencing
// archived units, so documents are never removed.
func (r *mongoUnitRepository) Archive(ctx context.Context, id string, at time.Time) error {
	return r.Update(ctx, id, bson.M{
		"active":      false,
		"archived_at": at,
	})
}

func (r *mongoUnitRepository) SetActive(ctx context.Context, id string, active bool) error {
	return r.Update(ctx, id, bson.M{"active": active})
}
