package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvRedisAddr     = "REDIS_ADDR"
	EnvRedisPassword = "REDIS_PASSWORD"
	EnvRedisDB       = "REDIS_DB"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvJWTSecret = "JWT_SECRET"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvReservationLockTTL   = "RESERVATION_LOCK_TTL"
	EnvReservationLockWait  = "RESERVATION_LOCK_WAIT"
	EnvReservationLockRetry = "RESERVATION_LOCK_RETRY"
	EnvLockSweepSchedule    = "LOCK_SWEEP_SCHEDULE"

	EnvNextAvailableHorizonDays = "NEXT_AVAILABLE_HORIZON_DAYS"

	EnvRealtimeTopic      = "REALTIME_TOPIC"
	EnvNotificationsTopic = "NOTIFICATIONS_TOPIC"
	EnvRealtimeDLQTopic   = "REALTIME_DLQ_TOPIC"
)
