package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is catalog inventory. Read-mostly here: the catalog owns it, the
// reservation flow only locks it and reads price and total stock.
type Product struct {
	ID          string
	Name        string
	Description string
	Price       decimal.Decimal
	TotalStock  int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
