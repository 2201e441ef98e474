package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"navalha/pkg/config"
	"navalha/pkg/model"
	"navalha/pkg/tenant"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// QueueStateRepository holds the per-unit pause flag. A unit with no state
// document has a running queue.
type QueueStateRepository interface {
	Get(ctx context.Context, scope tenant.Scope) (*model.QueueState, error)
	SetPaused(ctx context.Context, scope tenant.Scope, paused bool) error
}

type mongoQueueStateRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewQueueStateRepository(cfg *config.Config) QueueStateRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoQueueStateRepository{
		cfg:        cfg,
		collection: db.Collection("Queue_states"),
	}
}

func (r *mongoQueueStateRepository) Get(ctx context.Context, scope tenant.Scope) (*model.QueueState, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var state model.QueueState
	err := r.collection.FindOne(ctx, bson.M{"_id": scope.ActiveUnitID}).Decode(&state)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return &model.QueueState{UnitID: scope.ActiveUnitID}, nil
		}
		return nil, fmt.Errorf("failed to read queue state: %w", err)
	}

	return &state, nil
}

func (r *mongoQueueStateRepository) SetPaused(ctx context.Context, scope tenant.Scope, paused bool) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	update := bson.M{"$set": bson.M{"paused": paused}}
	if paused {
		now := time.Now().UTC().Truncate(time.Millisecond)
		update["$set"].(bson.M)["paused_at"] = now
	} else {
		update["$unset"] = bson.M{"paused_at": ""}
	}

	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": scope.ActiveUnitID},
		update,
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to update queue state: %w", err)
	}
	return nil
}
