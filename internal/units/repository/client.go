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
	ClientsCollectionName = "Clients"
)

type mongoClientRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

type ClientRepository interface {
	Create(ctx context.Context, scope tenant.Scope, client *model.Client) error
	FindByID(ctx context.Context, scope tenant.Scope, id string) (*model.Client, error)
	FindByUnit(ctx context.Context, scope tenant.Scope, limit int, offset int64) ([]*model.Client, error)
}

func NewMongoClientRepository(cfg *config.Config) ClientRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoClientRepository{
		cfg:        cfg,
		collection: db.Collection(ClientsCollectionName),
	}
}

func (r *mongoClientRepository) Create(ctx context.Context, scope tenant.Scope, client *model.Client) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	client.UnitID = scope.ActiveUnitID
	client.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	result, err := r.collection.InsertOne(ctx, client)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		client.ID = oid.Hex()
	}
	return nil
}

func (r *mongoClientRepository) FindByID(ctx context.Context, scope tenant.Scope, id string) (*model.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", unitserrors.ErrInvalidID, id)
	}

	var client model.Client
	err = r.collection.FindOne(ctx, scope.Filter(bson.M{"_id": objectID})).Decode(&client)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", unitserrors.ErrClientNotFound, id)
		}
		return nil, fmt.Errorf("failed to find client: %w", err)
	}
	return &client, nil
}

func (r *mongoClientRepository) FindByUnit(ctx context.Context, scope tenant.Scope, limit int, offset int64) ([]*model.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetLimit(int64(limit)).
		SetSkip(offset).
		SetSort(bson.D{{Key: "name", Value: 1}})

	cursor, err := r.collection.Find(ctx, scope.Filter(bson.M{"active": true}), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query clients: %w", err)
	}
	defer cursor.Close(ctx)

	var clients []*model.Client
	if err = cursor.All(ctx, &clients); err != nil {
		return nil, fmt.Errorf("failed to decode clients: %w", err)
	}
	return clients, nil
}
