package model

import "time"

// Client belongs to one home unit; cross-unit bookings may reference a
// client from a different unit than the appointment's.
type Client struct {
	ID        string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	UnitID    string    `json:"unit_id" bson:"unit_id" validate:"required,mongodb"`
	Name      string    `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Email     string    `json:"email,omitempty" bson:"email,omitempty" validate:"omitempty,email"`
	Phone     string    `json:"phone,omitempty" bson:"phone,omitempty" validate:"omitempty,e164"`
	Active    bool      `json:"active" bson:"active"`
	CreatedAt time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
}
