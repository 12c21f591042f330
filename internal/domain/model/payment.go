package model

import "time"

// PaymentEventType classifies inbound gateway notifications.
type PaymentEventType string

const (
	PaymentEventConfirmed PaymentEventType = "payment_confirmed"
	PaymentEventFailed    PaymentEventType = "payment_failed"
)

// WebhookEvent is the dedup record for at-least-once gateway delivery.
type WebhookEvent struct {
	EventID     string
	EventType   string
	PaymentRef  *string
	ProcessedAt time.Time
}

// GatewayStatus is the payment state reported by the gateway on a direct poll.
type GatewayStatus string

const (
	GatewayStatusPending GatewayStatus = "pending"
	GatewayStatusPaid    GatewayStatus = "paid"
	GatewayStatusFailed  GatewayStatus = "failed"
)

// PaymentCheck is the gateway's answer for one order number.
type PaymentCheck struct {
	OrderNumber string
	Status      GatewayStatus
	PaymentRef  *string
}
