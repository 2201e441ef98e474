package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"navalha/internal/migrations/mongo/validators"
)

var (
	UnitsIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "active", Value: 1}}},
		{Keys: bson.D{{Key: "marketplace_active", Value: 1}, {Key: "allow_cross_unit", Value: 1}}},
	}

	ProfessionalsIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "unit_id", Value: 1}, {Key: "active", Value: 1}}},
	}

	ServicesIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "unit_id", Value: 1}, {Key: "active", Value: 1}}},
		{Keys: bson.D{{Key: "unit_id", Value: 1}, {Key: "category", Value: 1}}},
	}

	ClientsIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "unit_id", Value: 1}, {Key: "name", Value: 1}}},
	}

	// The interval index backs the overlap re-check inside the reservation
	// transaction; keeping it professional-first makes that query covered.
	AppointmentsIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "professional_id", Value: 1},
			{Key: "status", Value: 1},
			{Key: "start", Value: 1},
			{Key: "end", Value: 1},
		}},
		{Keys: bson.D{{Key: "unit_id", Value: 1}, {Key: "start", Value: 1}}},
		{Keys: bson.D{{Key: "unit_id", Value: 1}, {Key: "client_id", Value: 1}}},
	}

	QueueEntriesIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "unit_id", Value: 1},
			{Key: "professional_id", Value: 1},
			{Key: "status", Value: 1},
			{Key: "position", Value: 1},
		}},
		{Keys: bson.D{{Key: "unit_id", Value: 1}, {Key: "client_id", Value: 1}, {Key: "status", Value: 1}}},
	}

	ReservationLocksIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "expires_at", Value: 1}}},
	}

	CommissionRecordsIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "reservation_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "unit_id", Value: 1}, {Key: "created_at", Value: -1}}},
	}

	PaymentEventsIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "unit_id", Value: 1}, {Key: "processed_at", Value: -1}}},
	}
)

func RunMigration(ctx context.Context, client *mongo.Client, dbName string) error {
	db := client.Database(dbName)
	fmt.Printf("Running Mongo migrations on database: %s\n", dbName)

	collections := map[string]struct {
		Indexes   []mongo.IndexModel
		Validator bson.M
	}{
		"Units": {
			Indexes:   UnitsIndexes,
			Validator: validators.UnitValidator,
		},
		"Professionals": {
			Indexes: ProfessionalsIndexes,
		},
		"Services": {
			Indexes: ServicesIndexes,
		},
		"Clients": {
			Indexes: ClientsIndexes,
		},
		"Appointments": {
			Indexes:   AppointmentsIndexes,
			Validator: validators.AppointmentValidator,
		},
		"Queue_entries": {
			Indexes:   QueueEntriesIndexes,
			Validator: validators.QueueEntryValidator,
		},
		"Queue_states": {},
		"Reservation_locks": {
			Indexes: ReservationLocksIndexes,
		},
		"Commission_records": {
			Indexes:   CommissionRecordsIndexes,
			Validator: validators.CommissionRecordValidator,
		},
		"Payment_events": {
			Indexes:   PaymentEventsIndexes,
			Validator: validators.PaymentEventValidator,
		},
	}

	for name, def := range collections {
		if err := ensureCollection(ctx, db, name, def.Validator); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", name, err)
		}
		if len(def.Indexes) == 0 {
			continue
		}
		if err := ensureIndexes(ctx, db, name, def.Indexes); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", name, err)
		}
	}

	fmt.Println("All migrations applied successfully.")
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		fmt.Printf("Creating collection: %s\n", name)
		opts := options.CreateCollection()
		if validator != nil {
			opts = opts.SetValidator(validator)
		}
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
		return nil
	}

	if validator == nil {
		return nil
	}

	command := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
	}
	if err := db.RunCommand(ctx, command).Err(); err != nil {
		fmt.Printf("Warning: failed updating validator for %s: %v\n", name, err)
	}

	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel) error {
	coll := db.Collection(name)
	_, err := coll.Indexes().CreateMany(ctx, models)
	if err != nil {
		return err
	}
	fmt.Printf("Ensured indexes for %s\n", name)
	return nil
}
