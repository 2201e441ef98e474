package main

import (
	"context"

	migrations "navalha/internal/migrations/mongo"
	"navalha/pkg/config"
)

func main() {
	cfg := config.Load("migrations")
	cfg.SetMongo()
	defer cfg.Client.GracefulShutdown()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.MongoConnTimeout)
	defer cancel()

	if err := migrations.RunMigration(ctx, cfg.Client.Mongo, cfg.MongoDatabaseName); err != nil {
		cfg.Log.Fatal("Migration failed", "error", err)
	}

	cfg.Log.Info("Migrations completed", "database", cfg.MongoDatabaseName)
}
