package model

import "time"

// Queue entry statuses. Waiting and called entries are "active" and own a
// position; done and removed are terminal.
const (
	QueueWaiting   = "waiting"
	QueueCalled    = "called"
	QueueInService = "in_service"
	QueueDone      = "done"
	QueueRemoved   = "removed"
)

// QueueEntry is a walk-in client waiting within a unit partition, optionally
// narrowed to one professional. Invariant: waiting entries within a
// partition hold a dense 1..N position sequence; calling, removing or
// prioritizing an entry renumbers the rest in the same transaction. Entries
// that left the waiting line carry position 0.
type QueueEntry struct {
	ID             string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	UnitID         string    `json:"unit_id" bson:"unit_id" validate:"required,mongodb"`
	ProfessionalID string    `json:"professional_id,omitempty" bson:"professional_id,omitempty" validate:"omitempty,mongodb"`
	ClientID       string    `json:"client_id" bson:"client_id" validate:"required,mongodb"`
	ServiceIDs     []string  `json:"service_ids" bson:"service_ids" validate:"required,min=1,dive,mongodb"`
	EnqueuedAt     time.Time `json:"enqueued_at" bson:"enqueued_at" validate:"omitempty"`
	Position       int       `json:"position" bson:"position" validate:"min=0"`
	Status         string    `json:"status" bson:"status" validate:"required,oneof=waiting called in_service done removed"`

	// DurationMinutes is the summed service duration, denormalized at
	// enqueue time so ETA computation does not re-read the catalog.
	DurationMinutes int `json:"duration_minutes" bson:"duration_minutes" validate:"min=0"`
}

// Active reports whether the entry still owns a queue position.
func (e *QueueEntry) Active() bool {
	return e.Status == QueueWaiting || e.Status == QueueCalled || e.Status == QueueInService
}

// QueueState is the per-unit queue flag document (pause/resume).
type QueueState struct {
	UnitID   string     `json:"unit_id" bson:"_id"`
	Paused   bool       `json:"paused" bson:"paused"`
	PausedAt *time.Time `json:"paused_at,omitempty" bson:"paused_at,omitempty"`
}

// QueueView is a read model: an entry plus its derived wait estimate. ETA is
// recomputed from positions on every read, never stored.
type QueueView struct {
	Entry      *QueueEntry `json:"entry"`
	ETAMinutes int         `json:"eta_minutes"`
}
