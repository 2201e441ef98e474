package model

import "time"

// Appointment statuses. Completed and cancelled are terminal; rescheduled
// marks the old appointment of a cancel-old/create-new pair.
const (
	StatusRequested   = "requested"
	StatusScheduled   = "scheduled"
	StatusConfirmed   = "confirmed"
	StatusInProgress  = "in_progress"
	StatusCompleted   = "completed"
	StatusCancelled   = "cancelled"
	StatusRescheduled = "rescheduled"
)

const (
	OriginDirect      = "direct"
	OriginMarketplace = "marketplace"
)

// Appointment is the core scheduled entity. Invariant: no two appointments
// with the same professional and overlapping [start, end) intervals may both
// be in a non-cancelled status. Appointments are never physically deleted.
type Appointment struct {
	ID             string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	UnitID         string    `json:"unit_id" bson:"unit_id" validate:"required,mongodb"`
	ProfessionalID string    `json:"professional_id" bson:"professional_id" validate:"required,mongodb"`
	ClientID       string    `json:"client_id" bson:"client_id" validate:"required,mongodb"`
	ServiceIDs     []string  `json:"service_ids" bson:"service_ids" validate:"required,min=1,dive,mongodb"`
	Start          time.Time `json:"start" bson:"start" validate:"required"`
	End            time.Time `json:"end" bson:"end" validate:"required,gtfield=Start"`
	Status         string    `json:"status" bson:"status" validate:"required,oneof=requested scheduled confirmed in_progress completed cancelled rescheduled"`
	Origin         string    `json:"origin" bson:"origin" validate:"required,oneof=direct marketplace"`
	Observations   string    `json:"observations,omitempty" bson:"observations,omitempty" validate:"omitempty,max=500"`

	// Audit link for the cancel-old/create-new reschedule pair.
	RescheduledTo   string `json:"rescheduled_to,omitempty" bson:"rescheduled_to,omitempty" validate:"omitempty,mongodb"`
	RescheduledFrom string `json:"rescheduled_from,omitempty" bson:"rescheduled_from,omitempty" validate:"omitempty,mongodb"`

	// Marketplace fields, set only when Origin == marketplace. The
	// commission percentage is snapshotted from the destination unit at
	// booking time and never updated afterwards.
	OriginUnitID         string  `json:"origin_unit_id,omitempty" bson:"origin_unit_id,omitempty" validate:"omitempty,mongodb"`
	CommissionPercentage float64 `json:"commission_percentage,omitempty" bson:"commission_percentage,omitempty" validate:"omitempty,min=0,max=100"`
	PriceCents           int64   `json:"price_cents,omitempty" bson:"price_cents,omitempty" validate:"omitempty,min=0"`

	CreatedAt time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
}

// Cancelled reports whether the appointment no longer occupies its interval.
func (a *Appointment) Cancelled() bool {
	return a.Status == StatusCancelled || a.Status == StatusRescheduled
}

func (a *Appointment) Terminal() bool {
	return a.Status == StatusCompleted || a.Status == StatusCancelled
}

// CrossUnit reports whether this appointment is a marketplace reservation
// booked by a client from another unit.
func (a *Appointment) CrossUnit() bool {
	return a.Origin == OriginMarketplace && a.OriginUnitID != "" && a.OriginUnitID != a.UnitID
}

// CommissionRecord is derived once per completed cross-unit reservation.
type CommissionRecord struct {
	ID            string    `json:"id,omitempty" bson:"_id,omitempty"`
	ReservationID string    `json:"reservation_id" bson:"reservation_id" validate:"required,mongodb"`
	UnitID        string    `json:"unit_id" bson:"unit_id" validate:"required,mongodb"`
	ValueCents    int64     `json:"value_cents" bson:"value_cents" validate:"min=0"`
	CreatedAt     time.Time `json:"created_at" bson:"created_at"`
}

// ReservationLock is an advisory lock serializing reservation attempts for
// one professional. Acquired as a unique _id insert; a duplicate key means
// another request holds the timeline.
type ReservationLock struct {
	ID        string    `bson:"_id" json:"id"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
