package realtime

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"navalha/pkg/kafka"
	"navalha/pkg/logger"
	"navalha/pkg/model"
)

type mockPublisher struct {
	published []kafka.Message
	err       error
}

func (p *mockPublisher) Publish(_ context.Context, msg kafka.Message) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, msg)
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Output: io.Discard})
}

func TestBroadcasterKeysEventsByUnit(t *testing.T) {
	sync := &mockPublisher{}
	b := NewBroadcaster(sync, nil, testLogger())

	b.QueueUpdated(context.Background(), "507f1f77bcf86cd799439011")

	assert.Len(t, sync.published, 1)
	assert.Equal(t, "507f1f77bcf86cd799439011", sync.published[0].Key)
	assert.Equal(t, EventQueueUpdated, sync.published[0].Headers[kafka.HeaderEventType])

	var event Event
	assert.NoError(t, sync.published[0].DecodeValue(&event))
	assert.Equal(t, EventQueueUpdated, event.Type)
	assert.Equal(t, "507f1f77bcf86cd799439011", event.UnitID)
}

func TestBroadcasterAppointmentEvents(t *testing.T) {
	sync := &mockPublisher{}
	b := NewBroadcaster(sync, nil, testLogger())

	appt := &model.Appointment{
		ID:             "507f1f77bcf86cd799439012",
		UnitID:         "507f1f77bcf86cd799439011",
		ProfessionalID: "507f1f77bcf86cd799439013",
		Start:          time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC),
		End:            time.Date(2026, 3, 3, 11, 0, 0, 0, time.UTC),
	}

	b.AppointmentCreated(context.Background(), appt)
	b.AppointmentCancelled(context.Background(), appt)

	assert.Len(t, sync.published, 2)

	var created, cancelled Event
	assert.NoError(t, sync.published[0].DecodeValue(&created))
	assert.NoError(t, sync.published[1].DecodeValue(&cancelled))
	assert.Equal(t, EventAppointmentCreated, created.Type)
	assert.Equal(t, EventAppointmentCancelled, cancelled.Type)
	assert.Equal(t, appt.UnitID, created.UnitID)
}

func TestBroadcasterCrossUnitBookedUsesNotificationsTopic(t *testing.T) {
	sync := &mockPublisher{}
	notifications := &mockPublisher{}
	b := NewBroadcaster(sync, notifications, testLogger())

	b.CrossUnitBooked(context.Background(), &model.Appointment{
		ID:           "507f1f77bcf86cd799439012",
		UnitID:       "507f1f77bcf86cd799439011",
		OriginUnitID: "507f1f77bcf86cd799439014",
		Origin:       model.OriginMarketplace,
	})

	assert.Empty(t, sync.published)
	assert.Len(t, notifications.published, 1)

	var event Event
	assert.NoError(t, notifications.published[0].DecodeValue(&event))
	assert.Equal(t, EventCrossUnitBooked, event.Type)
}

func TestBroadcasterSwallowsPublishFailures(t *testing.T) {
	sync := &mockPublisher{err: errors.New("broker down")}
	b := NewBroadcaster(sync, nil, testLogger())

	assert.NotPanics(t, func() {
		b.QueueUpdated(context.Background(), "507f1f77bcf86cd799439011")
	})
}

func TestBroadcasterNilPublisherIsNoop(t *testing.T) {
	b := NewBroadcaster(nil, nil, testLogger())

	assert.NotPanics(t, func() {
		b.QueueUpdated(context.Background(), "507f1f77bcf86cd799439011")
	})
}
