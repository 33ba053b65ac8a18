package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusExpired   OrderStatus = "expired"
)

// Order is a purchase derived from exactly one hold. PaymentID and
// IdempotencyKey stay nil until a successful payment event arrives.
type Order struct {
	ID             string
	ProductID      string
	HoldID         string
	Quantity       int
	TotalAmount    decimal.Decimal
	Status         OrderStatus
	PaymentID      *string
	IdempotencyKey *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
