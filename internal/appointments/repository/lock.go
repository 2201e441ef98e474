package repository

import (
	"context"
	"time"

	"navalha/pkg/config"
	"navalha/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ReservationLockRepository provides operations for the per-professional
// advisory locks serializing reservation attempts.
type ReservationLockRepository interface {
	Create(ctx context.Context, lock *model.ReservationLock) (*model.ReservationLock, error)
	Delete(ctx context.Context, lockID string) error
	DeleteIfExpired(ctx context.Context, lockID string, now time.Time) (bool, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type mongoReservationLockRepository struct {
	collection *mongo.Collection
}

func NewReservationLockRepository(cfg *config.Config) ReservationLockRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoReservationLockRepository{
		collection: db.Collection("Reservation_locks"),
	}
}

// Returns duplicate key error if the lock already exists
func (r *mongoReservationLockRepository) Create(ctx context.Context, lock *model.ReservationLock) (*model.ReservationLock, error) {
	lock.CreatedAt = time.Now()

	_, err := r.collection.InsertOne(ctx, lock)
	if err != nil {
		return nil, err
	}

	return lock, nil
}

func (r *mongoReservationLockRepository) Delete(ctx context.Context, lockID string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": lockID})
	return err
}

// DeleteIfExpired removes the lock only when its TTL has passed, so a
// waiting request can take over a lock abandoned by a crashed holder.
func (r *mongoReservationLockRepository) DeleteIfExpired(ctx context.Context, lockID string, now time.Time) (bool, error) {
	result, err := r.collection.DeleteOne(ctx, bson.M{
		"_id":        lockID,
		"expires_at": bson.M{"$lt": now},
	})
	if err != nil {
		return false, err
	}
	return result.DeletedCount > 0, nil
}

// DeleteExpired is the sweeper's bulk cleanup of abandoned locks.
func (r *mongoReservationLockRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{
		"expires_at": bson.M{"$lt": now},
	})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}
