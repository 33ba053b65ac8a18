package domain

import "errors"

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrHoldNotFound      = errors.New("hold not found")
	ErrHoldInvalid       = errors.New("hold expired or invalid")
	ErrHoldNotActive     = errors.New("hold is not active")
	ErrOrderNotFound     = errors.New("order not found")
	ErrOrderNotPending   = errors.New("order is not pending")
	ErrDuplicateWebhook  = errors.New("webhook already recorded")
	ErrDuplicateKey      = errors.New("idempotency key already used")
	ErrInvalidID         = errors.New("invalid id")
)
