package model

import "time"

// Professional is a service provider belonging to exactly one unit. The
// conflict detector is keyed on the professional, not the unit, because a
// professional's timeline is the shared resource.
type Professional struct {
	ID                   string               `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	UnitID               string               `json:"unit_id" bson:"unit_id" validate:"required,mongodb"`
	Name                 string               `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Active               bool                 `json:"active" bson:"active"`
	Specialties          []string             `json:"specialties" bson:"specialties" validate:"omitempty,dive,required"`
	WorkingHours         map[Weekday]DayHours `json:"working_hours,omitempty" bson:"working_hours,omitempty" validate:"omitempty,dive"`
	CommissionPercentage float64              `json:"commission_percentage" bson:"commission_percentage" validate:"min=0,max=100"`
	CreatedAt            time.Time            `json:"created_at" bson:"created_at" validate:"omitempty"`
}

// HoursFor resolves the professional's working hours for a weekday, falling
// back to the unit's business hours when no override exists.
func (p *Professional) HoursFor(day Weekday, unit *Unit) (DayHours, bool) {
	if p.WorkingHours != nil {
		if h, ok := p.WorkingHours[day]; ok {
			return h, true
		}
	}
	if unit == nil || unit.BusinessHours == nil {
		return DayHours{Closed: true}, false
	}
	h, ok := unit.BusinessHours[day]
	return h, ok
}
