package domain

import "time"

type WebhookStatus string

const (
	WebhookStatusSuccess WebhookStatus = "success"
	WebhookStatusFailure WebhookStatus = "failure"
)

// WebhookRecord is the permanent record of one delivered payment event,
// identified by (idempotency key, payment id). Written once, never updated;
// replays echo OrderStatus instead of re-applying side effects.
type WebhookRecord struct {
	ID             string
	IdempotencyKey string
	PaymentID      string
	Status         WebhookStatus
	OrderID        string
	OrderStatus    OrderStatus
	Payload        []byte
	ProcessedAt    time.Time
}
