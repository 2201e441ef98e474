package kafka

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	kafka_config "navalha/pkg/kafka/config"

	"github.com/segmentio/kafka-go"
)

// Consumer wraps a kafka-go reader with retry and DLQ handling.
type Consumer struct {
	reader     *kafka.Reader
	dlqWriter  *kafka.Writer
	topic      string
	groupID    string
	dlqTopic   string
	maxRetries int
	handler    MessageHandler
	middleware []ConsumerMiddleware
	closed     bool
	mu         sync.RWMutex
	wg         sync.WaitGroup
}

type ConsumerMiddleware func(ctx context.Context, msg Message, next MessageHandler) error

func NewConsumer(cfg *kafka_config.Config, topic string, groupID string, dlqTopic string, handler MessageHandler) (*Consumer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic cannot be empty")
	}
	if groupID == "" {
		return nil, fmt.Errorf("group ID cannot be empty")
	}
	if handler == nil {
		return nil, fmt.Errorf("message handler cannot be nil")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:           cfg.Brokers,
		Topic:             topic,
		GroupID:           groupID,
		MinBytes:          cfg.ConsumerMinBytes,
		MaxBytes:          cfg.ConsumerMaxBytes,
		MaxWait:           cfg.ConsumerMaxWait,
		CommitInterval:    cfg.ConsumerCommitInterval,
		HeartbeatInterval: cfg.ConsumerHeartbeatInterval,
		SessionTimeout:    cfg.ConsumerSessionTimeout,
		RebalanceTimeout:  cfg.ConsumerRebalanceTimeout,
		StartOffset:       cfg.ConsumerStartOffset,
		Logger:            kafka.LoggerFunc(func(msg string, args ...any) {}), // Silence default logger
		ErrorLogger:       kafka.LoggerFunc(log.Printf),
	})

	consumer := &Consumer{
		reader:     reader,
		topic:      topic,
		groupID:    groupID,
		dlqTopic:   dlqTopic,
		maxRetries: cfg.ConsumerMaxRetries,
		handler:    handler,
		middleware: make([]ConsumerMiddleware, 0),
	}

	if dlqTopic != "" {
		consumer.dlqWriter = &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        dlqTopic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			MaxAttempts:  3,
			Logger:       kafka.LoggerFunc(func(msg string, args ...any) {}),
			ErrorLogger:  kafka.LoggerFunc(log.Printf),
		}
	}

	return consumer, nil
}

// Use adds middleware to the consumer.
func (c *Consumer) Use(middleware ConsumerMiddleware) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.middleware = append(c.middleware, middleware)
}

// Start consumes messages until the context is cancelled or Close is called.
// Blocks; run it on its own goroutine.
func (c *Consumer) Start(ctx context.Context) error {
	c.wg.Add(1)
	defer c.wg.Done()

	for {
		c.mu.RLock()
		if c.closed {
			c.mu.RUnlock()
			return ErrConsumerClosed
		}
		c.mu.RUnlock()

		kafkaMsg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}

		msg := fromKafkaMessage(kafkaMsg)
		if err := c.process(ctx, msg); err != nil {
			if dlqErr := c.sendToDLQ(ctx, msg, err); dlqErr != nil {
				log.Printf("failed to send message to DLQ: %v (original error: %v)", dlqErr, err)
			}
		}

		if err := c.reader.CommitMessages(ctx, kafkaMsg); err != nil && ctx.Err() == nil {
			log.Printf("failed to commit message: %v", err)
		}
	}
}

func (c *Consumer) process(ctx context.Context, msg Message) error {
	handler := c.handler
	for i := len(c.middleware) - 1; i >= 0; i-- {
		middleware := c.middleware[i]
		next := handler
		handler = func(ctx context.Context, m Message) error {
			return middleware(ctx, m, next)
		}
	}

	var err error
	for {
		err = handler(ctx, msg)
		if err == nil {
			return nil
		}
		if !ShouldRetry(err, msg.GetRetryCount(), c.maxRetries) {
			return err
		}
		msg.IncrementRetryCount()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
}

func (c *Consumer) sendToDLQ(ctx context.Context, msg Message, originalErr error) error {
	if c.dlqWriter == nil {
		return nil
	}

	msg.Headers[HeaderOriginalTopic] = c.topic
	msg.Headers["dlq-error"] = originalErr.Error()
	msg.Headers["dlq-timestamp"] = time.Now().Format(time.RFC3339)

	kafkaMsg := kafka.Message{
		Key:   []byte(msg.Key),
		Value: msg.Value,
		Time:  time.Now(),
	}
	for k, v := range msg.Headers {
		kafkaMsg.Headers = append(kafkaMsg.Headers, kafka.Header{
			Key:   k,
			Value: []byte(v),
		})
	}

	return c.dlqWriter.WriteMessages(ctx, kafkaMsg)
}

func fromKafkaMessage(kafkaMsg kafka.Message) Message {
	msg := Message{
		Key:       string(kafkaMsg.Key),
		Value:     kafkaMsg.Value,
		Headers:   make(map[string]string, len(kafkaMsg.Headers)),
		Topic:     kafkaMsg.Topic,
		Partition: kafkaMsg.Partition,
		Offset:    kafkaMsg.Offset,
		Timestamp: kafkaMsg.Time,
	}
	for _, h := range kafkaMsg.Headers {
		msg.Headers[h.Key] = string(h.Value)
	}
	return msg
}

// Close stops the consumer and waits for in-flight processing.
func (c *Consumer) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	err := c.reader.Close()
	c.wg.Wait()

	if c.dlqWriter != nil {
		dlqErr := c.dlqWriter.Close()
		if err == nil {
			err = dlqErr
		}
	}

	return err
}
