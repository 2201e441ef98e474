package kafka

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Message represents a Kafka message with metadata.
type Message struct {
	Key       string            // Partition key (unit_id for realtime sync events)
	Value     []byte            // Message payload (JSON-encoded)
	Headers   map[string]string // Message headers
	Topic     string            // Topic name
	Partition int               // Partition number (set by Kafka)
	Offset    int64             // Message offset (set by Kafka)
	Timestamp time.Time         // Message timestamp
}

// Header keys shared between the broadcaster and consumers.
const (
	HeaderEventID       = "event-id"
	HeaderEventType     = "event-type"
	HeaderUnitID        = "unit-id"
	HeaderSchemaVersion = "schema-version"
	HeaderSource        = "source"
	HeaderTimestamp     = "timestamp"
	HeaderRetryCount    = "retry-count"
	HeaderOriginalTopic = "original-topic"
)

// MessageBuilder provides a fluent interface for building messages.
type MessageBuilder struct {
	msg Message
}

func NewMessage() *MessageBuilder {
	return &MessageBuilder{
		msg: Message{
			Headers:   make(map[string]string),
			Timestamp: time.Now(),
		},
	}
}

// WithKey sets the message key (for partition routing).
func (mb *MessageBuilder) WithKey(key string) *MessageBuilder {
	mb.msg.Key = key
	return mb
}

// WithValue sets the message value (will be JSON-encoded).
func (mb *MessageBuilder) WithValue(value any) *MessageBuilder {
	data, err := json.Marshal(value)
	if err != nil {
		mb.msg.Value = nil
		return mb
	}
	mb.msg.Value = data
	return mb
}

// WithRawValue sets the message value directly (already encoded).
func (mb *MessageBuilder) WithRawValue(value []byte) *MessageBuilder {
	mb.msg.Value = value
	return mb
}

func (mb *MessageBuilder) WithHeader(key, value string) *MessageBuilder {
	mb.msg.Headers[key] = value
	return mb
}

func (mb *MessageBuilder) WithEventType(eventType string) *MessageBuilder {
	mb.msg.Headers[HeaderEventType] = eventType
	return mb
}

func (mb *MessageBuilder) WithUnitID(unitID string) *MessageBuilder {
	mb.msg.Headers[HeaderUnitID] = unitID
	return mb
}

func (mb *MessageBuilder) WithSource(source string) *MessageBuilder {
	mb.msg.Headers[HeaderSource] = source
	return mb
}

func (mb *MessageBuilder) WithSchemaVersion(version string) *MessageBuilder {
	mb.msg.Headers[HeaderSchemaVersion] = version
	return mb
}

// Build returns the constructed message, guaranteeing an event ID and
// timestamp header exist.
func (mb *MessageBuilder) Build() Message {
	if mb.msg.Headers[HeaderEventID] == "" {
		mb.msg.Headers[HeaderEventID] = uuid.New().String()
	}
	if mb.msg.Headers[HeaderTimestamp] == "" {
		mb.msg.Headers[HeaderTimestamp] = mb.msg.Timestamp.Format(time.RFC3339)
	}
	return mb.msg
}

// MessageHandler is the function signature for processing messages.
// Return nil for successful processing, error for failure.
type MessageHandler func(ctx context.Context, msg Message) error

// DecodeValue decodes the message value into the provided struct.
func (m *Message) DecodeValue(v any) error {
	return json.Unmarshal(m.Value, v)
}

func (m *Message) GetHeader(key string) (string, bool) {
	value, exists := m.Headers[key]
	return value, exists
}

func (m *Message) GetEventID() string {
	return m.Headers[HeaderEventID]
}

func (m *Message) GetEventType() string {
	return m.Headers[HeaderEventType]
}

func (m *Message) GetUnitID() string {
	return m.Headers[HeaderUnitID]
}

func (m *Message) GetRetryCount() int {
	if countStr, exists := m.Headers[HeaderRetryCount]; exists {
		if count, err := strconv.Atoi(countStr); err == nil {
			return count
		}
	}
	return 0
}

func (m *Message) IncrementRetryCount() {
	m.Headers[HeaderRetryCount] = strconv.Itoa(m.GetRetryCount() + 1)
}
