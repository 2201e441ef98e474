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
	ProfessionalsCollectionName = "Professionals"
)

type mongoProfessionalRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

type ProfessionalRepository interface {
	Create(ctx context.Context, scope tenant.Scope, professional *model.Professional) error
	FindByID(ctx context.Context, scope tenant.Scope, id string) (*model.Professional, error)
	FindByUnit(ctx context.Context, scope tenant.Scope) ([]*model.Professional, error)
}

func NewMongoProfessionalRepository(cfg *config.Config) ProfessionalRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoProfessionalRepository{
		cfg:        cfg,
		collection: db.Collection(ProfessionalsCollectionName),
	}
}

func (r *mongoProfessionalRepository) Create(ctx context.Context, scope tenant.Scope, professional *model.Professional) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	professional.UnitID = scope.ActiveUnitID
	professional.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	result, err := r.collection.InsertOne(ctx, professional)
	if err != nil {
		return fmt.Errorf("failed to create professional: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		professional.ID = oid.Hex()
	}
	return nil
}

func (r *mongoProfessionalRepository) FindByID(ctx context.Context, scope tenant.Scope, id string) (*model.Professional, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", unitserrors.ErrInvalidID, id)
	}

	var professional model.Professional
	err = r.collection.FindOne(ctx, scope.Filter(bson.M{"_id": objectID})).Decode(&professional)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", unitserrors.ErrProfessionalNotFound, id)
		}
		return nil, fmt.Errorf("failed to find professional: %w", err)
	}
	return &professional, nil
}

func (r *mongoProfessionalRepository) FindByUnit(ctx context.Context, scope tenant.Scope) ([]*model.Professional, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := r.collection.Find(ctx, scope.Filter(bson.M{"active": true}), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query professionals: %w", err)
	}
	defer cursor.Close(ctx)

	var professionals []*model.Professional
	if err = cursor.All(ctx, &professionals); err != nil {
		return nil, fmt.Errorf("failed to decode professionals: %w", err)
	}
	return professionals, nil
}
