package model

import "time"

// Payment-provider webhook event types.
const (
	PaymentReceived       = "PAYMENT_RECEIVED"
	PaymentOverdue        = "PAYMENT_OVERDUE"
	SubscriptionCancelled = "SUBSCRIPTION_CANCELLED"
)

// WebhookPayload is the inbound payment-provider event envelope.
type WebhookPayload struct {
	ID   string      `json:"id" validate:"required"`
	Type string      `json:"type" validate:"required,oneof=PAYMENT_RECEIVED PAYMENT_OVERDUE SUBSCRIPTION_CANCELLED"`
	Data WebhookData `json:"data" validate:"required"`
}

type WebhookData struct {
	ID          string  `json:"id" validate:"required"`
	Status      string  `json:"status"`
	Value       float64 `json:"value"`
	Customer    string  `json:"customer"`
	Description string  `json:"description"`
}

// PaymentEvent is the processed-event record keyed by the provider's
// data.id. The unique _id insert is what makes webhook handling idempotent:
// a duplicate delivery hits a duplicate key and produces no second effect.
type PaymentEvent struct {
	ID          string    `bson:"_id" json:"id"`
	UnitID      string    `bson:"unit_id" json:"unit_id"`
	Type        string    `bson:"type" json:"type"`
	ValueCents  int64     `bson:"value_cents" json:"value_cents"`
	Customer    string    `bson:"customer,omitempty" json:"customer,omitempty"`
	Description string    `bson:"description,omitempty" json:"description,omitempty"`
	ProcessedAt time.Time `bson:"processed_at" json:"processed_at"`
}
