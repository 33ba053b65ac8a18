package domain

import "time"

type HoldStatus string

const (
	HoldStatusActive    HoldStatus = "active"
	HoldStatusExpired   HoldStatus = "expired"
	HoldStatusConverted HoldStatus = "converted"
)

// Hold reserves product quantity for a limited time. A hold leaves active
// exactly once: to expired or to converted, never both.
type Hold struct {
	ID        string
	ProductID string
	Quantity  int
	Status    HoldStatus
	ExpiresAt time.Time
	Token     string
	CreatedAt time.Time
}

// Active reports whether the hold can still back an order at the given
// instant. A lapsed hold counts as inactive even before the sweeper marks it.
func (h Hold) Active(now time.Time) bool {
	return h.Status == HoldStatusActive && h.ExpiresAt.After(now)
}
