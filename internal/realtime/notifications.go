package realtime

import (
	"context"

	"navalha/pkg/kafka"
	kafka_config "navalha/pkg/kafka/config"
	"navalha/pkg/logger"
)

// NotificationConsumer drains the notifications topic and hands each event to
// a delivery callback. Undecodable messages go to the DLQ via the consumer's
// error return.
type NotificationConsumer struct {
	consumer *kafka.Consumer
	log      *logger.Logger
}

// Deliverer pushes a notification to whatever channel the unit has configured.
type Deliverer func(ctx context.Context, event Event) error

func NewNotificationConsumer(cfg *kafka_config.Config, topic string, dlqTopic string, log *logger.Logger, deliver Deliverer) (*NotificationConsumer, error) {
	nc := &NotificationConsumer{log: log}

	consumer, err := kafka.NewConsumer(
		cfg,
		topic,
		"scheduling-notifications",
		dlqTopic,
		nc.handler(deliver),
	)
	if err != nil {
		return nil, err
	}

	nc.consumer = consumer
	return nc, nil
}

func (nc *NotificationConsumer) handler(deliver Deliverer) kafka.MessageHandler {
	return func(ctx context.Context, msg kafka.Message) error {
		var event Event
		if err := msg.DecodeValue(&event); err != nil {
			nc.log.Error("Failed to decode notification event", "error", err)
			return err
		}

		if err := deliver(ctx, event); err != nil {
			nc.log.Error("Failed to deliver notification",
				"type", event.Type,
				"unit_id", event.UnitID,
				"error", err,
			)
			return err
		}

		return nil
	}
}

func (nc *NotificationConsumer) Start(ctx context.Context) error {
	return nc.consumer.Start(ctx)
}

func (nc *NotificationConsumer) Close() error {
	return nc.consumer.Close()
}
