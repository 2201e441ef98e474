package kafka_config

import "time"

const (
	DefaultKafkaBrokers = "localhost:9092"

	DefaultProducerMaxAttempts  = 3
	DefaultProducerBatchTimeout = 10 * time.Millisecond
	DefaultProducerRequireAcks  = -1
	DefaultProducerCompression  = "snappy"
	DefaultProducerAsync        = false

	DefaultConsumerStartOffset       = int64(-1) // newest
	DefaultConsumerMinBytes          = 1
	DefaultConsumerMaxBytes          = 10 * 1024 * 1024
	DefaultConsumerMaxWait           = 500 * time.Millisecond
	DefaultConsumerCommitInterval    = time.Second
	DefaultConsumerHeartbeatInterval = 3 * time.Second
	DefaultConsumerSessionTimeout    = 30 * time.Second
	DefaultConsumerRebalanceTimeout  = 30 * time.Second
	DefaultConsumerMaxRetries        = 3
)
