package kafka

import (
	"errors"
	"strings"
)

var (
	ErrProducerClosed = errors.New("kafka producer is closed")
	ErrConsumerClosed = errors.New("kafka consumer is closed")
	ErrInvalidMessage = errors.New("invalid message")
	ErrEmptyKey       = errors.New("message key cannot be empty")
	ErrEmptyValue     = errors.New("message value cannot be empty")
)

var transientPatterns = []string{
	"connection refused",
	"timeout",
	"deadline exceeded",
	"no such host",
	"network is unreachable",
	"broken pipe",
	"connection reset",
	"i/o timeout",
	"temporary failure",
}

// IsTransient reports whether an error looks like a network-level failure
// worth retrying. Anything unrecognized is treated as permanent so broken
// payloads go to the DLQ instead of spinning.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range transientPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// ShouldRetry determines if a failed message should be re-delivered.
func ShouldRetry(err error, currentRetries, maxRetries int) bool {
	if err == nil || currentRetries >= maxRetries {
		return false
	}
	return IsTransient(err)
}
