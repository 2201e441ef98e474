package repository

import (
	"context"
	"time"

	"navalha/pkg/config"
	"navalha/pkg/model"

	"go.mongodb.org/mongo-driver/mongo"
)

const CollectionName = "Payment_events"

// PaymentEventRepository stores processed provider events keyed by the
// provider's data.id. The unique _id insert is the idempotency barrier:
// redelivery of an already processed event fails with a duplicate key.
type PaymentEventRepository interface {
	Create(ctx context.Context, event *model.PaymentEvent) (*model.PaymentEvent, error)
}

type mongoPaymentEventRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewPaymentEventRepository(cfg *config.Config) PaymentEventRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoPaymentEventRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

// Returns duplicate key error if the event was already processed
func (r *mongoPaymentEventRepository) Create(ctx context.Context, event *model.PaymentEvent) (*model.PaymentEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	event.ProcessedAt = time.Now()

	_, err := r.collection.InsertOne(ctx, event)
	if err != nil {
		return nil, err
	}

	return event, nil
}
