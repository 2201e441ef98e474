package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "navalha"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultRedisAddr = ""
	DefaultRedisDB   = 0

	DefaultPort = "8080"

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultReservationLockTTL   = 10 * time.Second
	DefaultReservationLockWait  = 2 * time.Second
	DefaultReservationLockRetry = 50 * time.Millisecond
	DefaultLockSweepSchedule    = "@every 1m"

	DefaultNextAvailableHorizonDays = 30

	DefaultRealtimeTopic      = "navalha.realtime"
	DefaultNotificationsTopic = "navalha.notifications"
	DefaultRealtimeDLQTopic   = "navalha.realtime.dlq"

	DefaultPaginationLimit = 100
	DefaultLogLevel        = "info"
)
