package kafka_config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds broker, producer and consumer settings shared by the
// realtime broadcaster and the notification consumer.
type Config struct {
	Brokers []string

	ProducerMaxAttempts  int
	ProducerBatchTimeout time.Duration
	ProducerRequireAcks  int    // -1 = all, 0 = none, 1 = leader only
	ProducerCompression  string // "none", "gzip", "snappy", "lz4", "zstd"
	ProducerAsync        bool

	ConsumerStartOffset       int64 // -1 = newest, -2 = oldest
	ConsumerMinBytes          int
	ConsumerMaxBytes          int
	ConsumerMaxWait           time.Duration
	ConsumerCommitInterval    time.Duration
	ConsumerHeartbeatInterval time.Duration
	ConsumerSessionTimeout    time.Duration
	ConsumerRebalanceTimeout  time.Duration
	ConsumerMaxRetries        int
}

func Load() (*Config, error) {
	brokersStr := getEnvStr(EnvKafkaBrokers, DefaultKafkaBrokers)
	brokers := strings.Split(brokersStr, ",")
	for i, broker := range brokers {
		brokers[i] = strings.TrimSpace(broker)
	}

	cfg := &Config{
		Brokers: brokers,

		ProducerMaxAttempts:  getEnvInt(EnvKafkaProducerMaxAttempts, DefaultProducerMaxAttempts),
		ProducerBatchTimeout: getEnvDuration(EnvKafkaProducerBatchTimeout, DefaultProducerBatchTimeout),
		ProducerRequireAcks:  getEnvInt(EnvKafkaProducerRequireAcks, DefaultProducerRequireAcks),
		ProducerCompression:  getEnvStr(EnvKafkaProducerCompression, DefaultProducerCompression),
		ProducerAsync:        getEnvBool(EnvKafkaProducerAsync, DefaultProducerAsync),

		ConsumerStartOffset:       getEnvInt64(EnvKafkaConsumerStartOffset, DefaultConsumerStartOffset),
		ConsumerMinBytes:          getEnvInt(EnvKafkaConsumerMinBytes, DefaultConsumerMinBytes),
		ConsumerMaxBytes:          getEnvInt(EnvKafkaConsumerMaxBytes, DefaultConsumerMaxBytes),
		ConsumerMaxWait:           getEnvDuration(EnvKafkaConsumerMaxWait, DefaultConsumerMaxWait),
		ConsumerCommitInterval:    getEnvDuration(EnvKafkaConsumerCommitInterval, DefaultConsumerCommitInterval),
		ConsumerHeartbeatInterval: getEnvDuration(EnvKafkaConsumerHeartbeatInterval, DefaultConsumerHeartbeatInterval),
		ConsumerSessionTimeout:    getEnvDuration(EnvKafkaConsumerSessionTimeout, DefaultConsumerSessionTimeout),
		ConsumerRebalanceTimeout:  getEnvDuration(EnvKafkaConsumerRebalanceTimeout, DefaultConsumerRebalanceTimeout),
		ConsumerMaxRetries:        getEnvInt(EnvKafkaConsumerMaxRetries, DefaultConsumerMaxRetries),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (cfg *Config) Validate() error {
	var errors []string

	if len(cfg.Brokers) == 0 {
		errors = append(errors, "At least one Kafka broker is required")
	}
	for i, broker := range cfg.Brokers {
		if broker == "" {
			errors = append(errors, fmt.Sprintf("Broker %d cannot be empty", i))
		}
	}

	if cfg.ProducerMaxAttempts <= 0 {
		errors = append(errors, fmt.Sprintf("ProducerMaxAttempts must be positive, got: %d", cfg.ProducerMaxAttempts))
	}
	if cfg.ProducerBatchTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ProducerBatchTimeout must be positive, got: %s", cfg.ProducerBatchTimeout))
	}

	validCompressions := map[string]bool{
		"none": true, "gzip": true, "snappy": true, "lz4": true, "zstd": true,
	}
	if !validCompressions[cfg.ProducerCompression] {
		errors = append(errors, fmt.Sprintf("ProducerCompression must be one of [none, gzip, snappy, lz4, zstd], got: %s", cfg.ProducerCompression))
	}

	validAcks := map[int]bool{-1: true, 0: true, 1: true}
	if !validAcks[cfg.ProducerRequireAcks] {
		errors = append(errors, fmt.Sprintf("ProducerRequireAcks must be -1, 0, or 1, got: %d", cfg.ProducerRequireAcks))
	}

	if cfg.ConsumerStartOffset != -1 && cfg.ConsumerStartOffset != -2 && cfg.ConsumerStartOffset < 0 {
		errors = append(errors, fmt.Sprintf("ConsumerStartOffset must be -1 (newest), -2 (oldest), or >= 0, got: %d", cfg.ConsumerStartOffset))
	}
	if cfg.ConsumerMinBytes <= 0 {
		errors = append(errors, fmt.Sprintf("ConsumerMinBytes must be positive, got: %d", cfg.ConsumerMinBytes))
	}
	if cfg.ConsumerMaxBytes <= 0 {
		errors = append(errors, fmt.Sprintf("ConsumerMaxBytes must be positive, got: %d", cfg.ConsumerMaxBytes))
	}
	if cfg.ConsumerMaxRetries < 0 {
		errors = append(errors, fmt.Sprintf("ConsumerMaxRetries cannot be negative, got: %d", cfg.ConsumerMaxRetries))
	}

	if len(errors) > 0 {
		return fmt.Errorf("kafka configuration validation failed: %s", strings.Join(errors, "; "))
	}

	return nil
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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
