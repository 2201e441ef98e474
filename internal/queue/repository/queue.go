package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	queueerrors "navalha/internal/queue/errors"
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
	CollectionName = "Queue_entries"
)

type mongoQueueRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

type QueueRepository interface {
	Insert(ctx context.Context, scope tenant.Scope, entry *model.QueueEntry) error
	FindByID(ctx context.Context, scope tenant.Scope, id string) (*model.QueueEntry, error)
	FindWaiting(ctx context.Context, scope tenant.Scope, professionalID string) ([]*model.QueueEntry, error)
	FindActiveByClient(ctx context.Context, scope tenant.Scope, clientID string) (*model.QueueEntry, error)
	MaxPosition(ctx context.Context, scope tenant.Scope, professionalID string) (int, error)
	SetStatus(ctx context.Context, scope tenant.Scope, id, status string, position int) error
	ShiftPositions(ctx context.Context, scope tenant.Scope, professionalID string, abovePosition int, delta int) error
	ShiftPositionsBelow(ctx context.Context, scope tenant.Scope, professionalID string, belowPosition int, delta int) error
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

func NewMongoQueueRepository(cfg *config.Config) QueueRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoQueueRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func (r *mongoQueueRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

// partitionFilter narrows a query to one queue partition: the unit-wide line
// when professionalID is empty, one professional's line otherwise.
func partitionFilter(scope tenant.Scope, professionalID string, extra bson.M) bson.M {
	if professionalID == "" {
		extra["professional_id"] = bson.M{"$exists": false}
	} else {
		extra["professional_id"] = professionalID
	}
	return scope.Filter(extra)
}

func (r *mongoQueueRepository) Insert(ctx context.Context, scope tenant.Scope, entry *model.QueueEntry) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	entry.UnitID = scope.ActiveUnitID
	entry.EnqueuedAt = time.Now().UTC().Truncate(time.Millisecond)
	result, err := r.collection.InsertOne(ctx, entry)
	if err != nil {
		return fmt.Errorf("failed to insert queue entry: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		entry.ID = oid.Hex()
	}
	return nil
}

func (r *mongoQueueRepository) FindByID(ctx context.Context, scope tenant.Scope, id string) (*model.QueueEntry, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", queueerrors.ErrInvalidID, id)
	}

	var entry model.QueueEntry
	err = r.collection.FindOne(ctx, scope.Filter(bson.M{"_id": objectID})).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, queueerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find queue entry: %w", err)
	}

	return &entry, nil
}

func (r *mongoQueueRepository) FindWaiting(ctx context.Context, scope tenant.Scope, professionalID string) ([]*model.QueueEntry, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := partitionFilter(scope, professionalID, bson.M{"status": model.QueueWaiting})
	opts := options.Find().SetSort(bson.D{{Key: "position", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find waiting queue entries: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*model.QueueEntry
	if err = cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode queue entries: %w", err)
	}

	return entries, nil
}

func (r *mongoQueueRepository) FindActiveByClient(ctx context.Context, scope tenant.Scope, clientID string) (*model.QueueEntry, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := scope.Filter(bson.M{
		"client_id": clientID,
		"status":    bson.M{"$in": []string{model.QueueWaiting, model.QueueCalled, model.QueueInService}},
	})

	var entry model.QueueEntry
	err := r.collection.FindOne(ctx, filter).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, queueerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find queue entry by client: %w", err)
	}

	return &entry, nil
}

func (r *mongoQueueRepository) MaxPosition(ctx context.Context, scope tenant.Scope, professionalID string) (int, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := partitionFilter(scope, professionalID, bson.M{"status": model.QueueWaiting})
	opts := options.FindOne().SetSort(bson.D{{Key: "position", Value: -1}})

	var entry model.QueueEntry
	err := r.collection.FindOne(ctx, filter, opts).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to find max queue position: %w", err)
	}

	return entry.Position, nil
}

func (r *mongoQueueRepository) SetStatus(ctx context.Context, scope tenant.Scope, id, status string, position int) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", queueerrors.ErrInvalidID, id)
	}

	result, err := r.collection.UpdateOne(ctx,
		scope.Filter(bson.M{"_id": objectID}),
		bson.M{"$set": bson.M{"status": status, "position": position}},
	)
	if err != nil {
		return fmt.Errorf("failed to update queue entry: %w", err)
	}
	if result.MatchedCount == 0 {
		return queueerrors.ErrNotFound
	}

	return nil
}

// ShiftPositions adds delta to the position of every waiting entry in the
// partition whose position is strictly above abovePosition. Only called
// inside a transaction alongside the mutation that opened or closed the gap.
func (r *mongoQueueRepository) ShiftPositions(ctx context.Context, scope tenant.Scope, professionalID string, abovePosition int, delta int) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := partitionFilter(scope, professionalID, bson.M{
		"status":   model.QueueWaiting,
		"position": bson.M{"$gt": abovePosition},
	})

	_, err := r.collection.UpdateMany(ctx, filter, bson.M{"$inc": bson.M{"position": delta}})
	if err != nil {
		return fmt.Errorf("failed to shift queue positions: %w", err)
	}
	return nil
}

// ShiftPositionsBelow is the prioritize counterpart: waiting entries with a
// position strictly below belowPosition move by delta to make room at the
// front.
func (r *mongoQueueRepository) ShiftPositionsBelow(ctx context.Context, scope tenant.Scope, professionalID string, belowPosition int, delta int) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := partitionFilter(scope, professionalID, bson.M{
		"status":   model.QueueWaiting,
		"position": bson.M{"$lt": belowPosition},
	})

	_, err := r.collection.UpdateMany(ctx, filter, bson.M{"$inc": bson.M{"position": delta}})
	if err != nil {
		return fmt.Errorf("failed to shift queue positions: %w", err)
	}
	return nil
}

func (r *mongoQueueRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
