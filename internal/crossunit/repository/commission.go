package repository

import (
	"context"
	"fmt"
	"time"

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
	CollectionName = "Commission_records"
)

type CommissionRepository interface {
	Create(ctx context.Context, scope tenant.Scope, record *model.CommissionRecord) error
	ExistsForReservation(ctx context.Context, scope tenant.Scope, reservationID string) (bool, error)
	FindByUnit(ctx context.Context, scope tenant.Scope, limit int, offset int64) ([]*model.CommissionRecord, int64, error)
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoCommissionRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewCommissionRepository(cfg *config.Config) CommissionRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoCommissionRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func (r *mongoCommissionRepository) Create(ctx context.Context, scope tenant.Scope, record *model.CommissionRecord) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	record.UnitID = scope.ActiveUnitID
	record.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	result, err := r.collection.InsertOne(ctx, record)
	if err != nil {
		return fmt.Errorf("failed to create commission record: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		record.ID = oid.Hex()
	}
	return nil
}

// ExistsForReservation keeps commission emission idempotent: one record per
// completed reservation no matter how often the completion hook fires.
func (r *mongoCommissionRepository) ExistsForReservation(ctx context.Context, scope tenant.Scope, reservationID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, scope.Filter(bson.M{"reservation_id": reservationID}))
	if err != nil {
		return false, fmt.Errorf("failed to check commission record: %w", err)
	}
	return count > 0, nil
}

func (r *mongoCommissionRepository) FindByUnit(ctx context.Context, scope tenant.Scope, limit int, offset int64) ([]*model.CommissionRecord, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := scope.Filter(bson.M{})

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count commission records: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find commission records: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*model.CommissionRecord
	if err = cursor.All(ctx, &records); err != nil {
		return nil, 0, fmt.Errorf("failed to decode commission records: %w", err)
	}

	return records, total, nil
}

func (r *mongoCommissionRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
