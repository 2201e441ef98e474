package model

import "time"

// MarketplaceListing is the public face of a service offered cross-unit.
type MarketplaceListing struct {
	PublicName        string `json:"public_name" bson:"public_name" validate:"required,min=2,max=100"`
	PublicDescription string `json:"public_description,omitempty" bson:"public_description,omitempty" validate:"omitempty,max=500"`
	PublicPriceCents  int64  `json:"public_price_cents" bson:"public_price_cents" validate:"min=0"`
	Featured          bool   `json:"featured" bson:"featured"`
}

// Service belongs to one unit. Prices are int64 centavos.
type Service struct {
	ID              string              `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	UnitID          string              `json:"unit_id" bson:"unit_id" validate:"required,mongodb"`
	Name            string              `json:"name" bson:"name" validate:"required,min=2,max=100"`
	PriceCents      int64               `json:"price_cents" bson:"price_cents" validate:"min=0"`
	DurationMinutes int                 `json:"duration_minutes" bson:"duration_minutes" validate:"required,min=5,max=480"`
	Category        string              `json:"category" bson:"category" validate:"required,min=2,max=50"`
	Active          bool                `json:"active" bson:"active"`
	Listing         *MarketplaceListing `json:"listing,omitempty" bson:"listing,omitempty"`
	CreatedAt       time.Time           `json:"created_at" bson:"created_at" validate:"omitempty"`
}

// TotalDuration sums the durations of a multi-service booking.
func TotalDuration(services []*Service) time.Duration {
	var minutes int
	for _, s := range services {
		minutes += s.DurationMinutes
	}
	return time.Duration(minutes) * time.Minute
}
