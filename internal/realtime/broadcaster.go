package realtime

import (
	"context"

	"navalha/pkg/kafka"
	"navalha/pkg/logger"
	"navalha/pkg/model"
)

// Event types carried on the per-unit sync topic. Consumers treat every
// event as an invalidation hint and re-fetch; payloads are advisory.
const (
	EventQueueUpdated         = "queue.updated"
	EventAppointmentCreated   = "appointment.created"
	EventAppointmentCancelled = "appointment.cancelled"
	EventCrossUnitBooked      = "crossunit.booked"
)

type Event struct {
	Type    string `json:"type"`
	UnitID  string `json:"unit_id"`
	Payload any    `json:"payload,omitempty"`
}

// Publisher is the slice of the Kafka producer the broadcaster uses.
type Publisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

// Broadcaster fans out invalidation hints after committed changes. Messages
// are keyed by unit so one unit's events stay ordered; delivery is
// at-least-once and failures never undo the committed operation.
type Broadcaster struct {
	sync          Publisher
	notifications Publisher
	log           *logger.Logger
}

func NewBroadcaster(sync, notifications Publisher, log *logger.Logger) *Broadcaster {
	return &Broadcaster{
		sync:          sync,
		notifications: notifications,
		log:           log,
	}
}

func (b *Broadcaster) QueueUpdated(ctx context.Context, unitID string) {
	b.publish(ctx, b.sync, Event{Type: EventQueueUpdated, UnitID: unitID})
}

func (b *Broadcaster) AppointmentCreated(ctx context.Context, appt *model.Appointment) {
	b.publish(ctx, b.sync, Event{
		Type:   EventAppointmentCreated,
		UnitID: appt.UnitID,
		Payload: map[string]any{
			"appointment_id":  appt.ID,
			"professional_id": appt.ProfessionalID,
			"start":           appt.Start,
			"end":             appt.End,
		},
	})
}

func (b *Broadcaster) AppointmentCancelled(ctx context.Context, appt *model.Appointment) {
	b.publish(ctx, b.sync, Event{
		Type:   EventAppointmentCancelled,
		UnitID: appt.UnitID,
		Payload: map[string]any{
			"appointment_id":  appt.ID,
			"professional_id": appt.ProfessionalID,
			"start":           appt.Start,
			"end":             appt.End,
		},
	})
}

// CrossUnitBooked notifies the destination unit about a fresh marketplace
// reservation on the notifications topic.
func (b *Broadcaster) CrossUnitBooked(ctx context.Context, appt *model.Appointment) {
	b.publish(ctx, b.notifications, Event{
		Type:   EventCrossUnitBooked,
		UnitID: appt.UnitID,
		Payload: map[string]any{
			"appointment_id": appt.ID,
			"origin_unit_id": appt.OriginUnitID,
			"start":          appt.Start,
		},
	})
}

func (b *Broadcaster) publish(ctx context.Context, p Publisher, event Event) {
	if p == nil {
		return
	}

	msg := kafka.NewMessage().
		WithKey(event.UnitID).
		WithValue(event).
		WithEventType(event.Type).
		WithUnitID(event.UnitID).
		WithSource("scheduling").
		Build()

	if err := p.Publish(ctx, msg); err != nil {
		// At-least-once with lossy tolerance: consumers reconcile by
		// re-fetching, so a lost hint costs staleness, not correctness.
		b.log.Error("Failed to publish sync event",
			"type", event.Type,
			"unit_id", event.UnitID,
			"error", err,
		)
	}
}
