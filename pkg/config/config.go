package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"navalha/pkg/client"
	"navalha/pkg/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	// RedisAddr being empty means Redis-backed stores are disabled and the
	// in-memory implementations are used instead.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	Port string

	JWTSecret string

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	ReservationLockTTL   time.Duration
	ReservationLockWait  time.Duration
	ReservationLockRetry time.Duration
	LockSweepSchedule    string

	NextAvailableHorizonDays int

	RealtimeTopic      string
	NotificationsTopic string
	RealtimeDLQTopic   string

	Log    *logger.Logger
	Client *client.Client
}

func Load(serviceName string) *Config {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		RedisAddr:     getEnvStr(EnvRedisAddr, DefaultRedisAddr),
		RedisPassword: getEnvStr(EnvRedisPassword, ""),
		RedisDB:       getEnvNum(EnvRedisDB, DefaultRedisDB),

		Port: getEnvStr(EnvPort, DefaultPort),

		JWTSecret: getEnvStr(EnvJWTSecret, ""),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		ReservationLockTTL:   getEnvDuration(EnvReservationLockTTL, DefaultReservationLockTTL),
		ReservationLockWait:  getEnvDuration(EnvReservationLockWait, DefaultReservationLockWait),
		ReservationLockRetry: getEnvDuration(EnvReservationLockRetry, DefaultReservationLockRetry),
		LockSweepSchedule:    getEnvStr(EnvLockSweepSchedule, DefaultLockSweepSchedule),

		NextAvailableHorizonDays: getEnvNum(EnvNextAvailableHorizonDays, DefaultNextAvailableHorizonDays),

		RealtimeTopic:      getEnvStr(EnvRealtimeTopic, DefaultRealtimeTopic),
		NotificationsTopic: getEnvStr(EnvNotificationsTopic, DefaultNotificationsTopic),
		RealtimeDLQTopic:   getEnvStr(EnvRealtimeDLQTopic, DefaultRealtimeDLQTopic),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) SetRedis() {
	if cfg.RedisAddr == "" {
		return
	}
	cfg.Client.SetRedis(cfg.Log, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI == "" {
		errors = append(errors, "MongoURI cannot be empty")
	} else if !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
		errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", cfg.MongoURI))
	}

	if cfg.MongoDatabaseName == "" {
		errors = append(errors, "MongoDatabaseName cannot be empty")
	}

	for name, d := range map[string]time.Duration{
		"MongoConnTimeout":     cfg.MongoConnTimeout,
		"RequestTimeout":       cfg.RequestTimeout,
		"IdempotencyTTL":       cfg.IdempotencyTTL,
		"ReadTimeout":          cfg.ReadTimeout,
		"WriteTimeout":         cfg.WriteTimeout,
		"IdleTimeout":          cfg.IdleTimeout,
		"ShutdownTimeout":      cfg.ShutdownTimeout,
		"ReservationLockTTL":   cfg.ReservationLockTTL,
		"ReservationLockWait":  cfg.ReservationLockWait,
		"ReservationLockRetry": cfg.ReservationLockRetry,
	} {
		if d <= 0 {
			errors = append(errors, fmt.Sprintf("%s must be positive, got: %s", name, d))
		}
	}

	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}

	if cfg.ReservationLockRetry >= cfg.ReservationLockWait {
		errors = append(errors, fmt.Sprintf("ReservationLockRetry (%s) must be shorter than ReservationLockWait (%s)", cfg.ReservationLockRetry, cfg.ReservationLockWait))
	}

	if cfg.NextAvailableHorizonDays <= 0 {
		errors = append(errors, fmt.Sprintf("NextAvailableHorizonDays must be positive, got: %d", cfg.NextAvailableHorizonDays))
	}

	if cfg.RealtimeTopic == "" {
		errors = append(errors, "RealtimeTopic cannot be empty")
	}
	if cfg.NotificationsTopic == "" {
		errors = append(errors, "NotificationsTopic cannot be empty")
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"redis_enabled", cfg.RedisAddr != "",
		"port", cfg.Port,
		"jwt_secret_set", cfg.JWTSecret != "",
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"reservation_lock_ttl", cfg.ReservationLockTTL,
		"reservation_lock_wait", cfg.ReservationLockWait,
		"reservation_lock_retry", cfg.ReservationLockRetry,
		"lock_sweep_schedule", cfg.LockSweepSchedule,
		"next_available_horizon_days", cfg.NextAvailableHorizonDays,
		"realtime_topic", cfg.RealtimeTopic,
		"notifications_topic", cfg.NotificationsTopic,
	)
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown()
}

func NormalizePaginationLimit(limit int) int {
	if limit <= 0 {
		limit = 10
	} else if limit > DefaultPaginationLimit {
		limit = DefaultPaginationLimit
	}
	return limit
}

func NormalizeOffset(offset int64) int64 {
	return max(0, offset)
}
