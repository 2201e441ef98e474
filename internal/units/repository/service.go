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
	ServicesCollectionName = "Services"
)

type mongoServiceRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

type ServiceRepository interface {
	Create(ctx context.Context, scope tenant.Scope, service *model.Service) error
	FindByID(ctx context.Context, scope tenant.Scope, id string) (*model.Service, error)
	// FindByIDs resolves a multi-service booking. Every requested ID must
	// exist, be active, and belong to the scoped unit.
	FindByIDs(ctx context.Context, scope tenant.Scope, ids []string) ([]*model.Service, error)
	FindByUnit(ctx context.Context, scope tenant.Scope) ([]*model.Service, error)
}

func NewMongoServiceRepository(cfg *config.Config) ServiceRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoServiceRepository{
		cfg:        cfg,
		collection: db.Collection(ServicesCollectionName),
	}
}

func (r *mongoServiceRepository) Create(ctx context.Context, scope tenant.Scope, service *model.Service) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	service.UnitID = scope.ActiveUnitID
	service.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	result, err := r.collection.InsertOne(ctx, service)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		service.ID = oid.Hex()
	}
	return nil
}

func (r *mongoServiceRepository) FindByID(ctx context.Context, scope tenant.Scope, id string) (*model.Service, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", unitserrors.ErrInvalidID, id)
	}

	var service model.Service
	err = r.collection.FindOne(ctx, scope.Filter(bson.M{"_id": objectID})).Decode(&service)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", unitserrors.ErrServiceNotFound, id)
		}
		return nil, fmt.Errorf("failed to find service: %w", err)
	}
	return &service, nil
}

func (r *mongoServiceRepository) FindByIDs(ctx context.Context, scope tenant.Scope, ids []string) ([]*model.Service, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectIDs := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		objectID, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", unitserrors.ErrInvalidID, id)
		}
		objectIDs = append(objectIDs, objectID)
	}

	cursor, err := r.collection.Find(ctx, scope.Filter(bson.M{
		"_id":    bson.M{"$in": objectIDs},
		"active": true,
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to query services: %w", err)
	}
	defer cursor.Close(ctx)

	var services []*model.Service
	if err = cursor.All(ctx, &services); err != nil {
		return nil, fmt.Errorf("failed to decode services: %w", err)
	}

	if len(services) != len(ids) {
		found := make(map[string]bool, len(services))
		for _, s := range services {
			found[s.ID] = true
		}
		for _, id := range ids {
			if !found[id] {
				return nil, fmt.Errorf("%w: %s", unitserrors.ErrServiceNotFound, id)
			}
		}
	}

	return services, nil
}

func (r *mongoServiceRepository) FindByUnit(ctx context.Context, scope tenant.Scope) ([]*model.Service, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "category", Value: 1}, {Key: "name", Value: 1}})
	cursor, err := r.collection.Find(ctx, scope.Filter(bson.M{"active": true}), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query services: %w", err)
	}
	defer cursor.Close(ctx)

	var services []*model.Service
	if err = cursor.All(ctx, &services); err != nil {
		return nil, fmt.Errorf("failed to decode services: %w", err)
	}
	return services, nil
}
