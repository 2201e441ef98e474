package model

import "time"

// DayHours is one row of a unit's weekly business-hours table. Open and
// Close use the "15:04" wall-clock format; Closed days yield no availability
// windows regardless of the other fields.
type DayHours struct {
	Open   string `json:"open" bson:"open" validate:"omitempty,clock_time"`
	Close  string `json:"close" bson:"close" validate:"omitempty,clock_time"`
	Closed bool   `json:"closed" bson:"closed"`
}

// Unit is a tenant: a single business location owning its professionals,
// clients, services, appointments and walk-in queue. Units are archived,
// never hard-deleted, while historical appointments reference them.
type Unit struct {
	ID                   string               `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Name                 string               `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Active               bool                 `json:"active" bson:"active"`
	BusinessHours        map[Weekday]DayHours `json:"business_hours" bson:"business_hours" validate:"required,dive"`
	MarketplaceActive    bool                 `json:"marketplace_active" bson:"marketplace_active"`
	AllowCrossUnit       bool                 `json:"allow_cross_unit" bson:"allow_cross_unit"`
	CommissionPercentage float64              `json:"commission_percentage" bson:"commission_percentage" validate:"min=0,max=100"`
	ArchivedAt           *time.Time           `json:"archived_at,omitempty" bson:"archived_at,omitempty"`
	CreatedAt            time.Time            `json:"created_at" bson:"created_at" validate:"omitempty"`
}

type UnitUpdate struct {
	Name                 string                `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Active               *bool                 `json:"active,omitempty"`
	BusinessHours        *map[Weekday]DayHours `json:"business_hours,omitempty"`
	MarketplaceActive    *bool                 `json:"marketplace_active,omitempty"`
	AllowCrossUnit       *bool                 `json:"allow_cross_unit,omitempty"`
	CommissionPercentage *float64              `json:"commission_percentage,omitempty" validate:"omitempty,min=0,max=100"`
}
