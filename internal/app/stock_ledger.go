package app

import (
	"context"
	"time"

	"github.com/MohamedH1000/GetPayIn/internal/clock"
	"github.com/MohamedH1000/GetPayIn/internal/domain"
)

// StockStore is the read side of the ledger.
type StockStore interface {
	GetProduct(ctx context.Context, productID string) (domain.Product, error)
	AvailableStock(ctx context.Context, productID string, now time.Time) (int, error)
}

// StockLedger computes available stock: total stock minus quantity reserved
// by active unexpired holds minus quantity sold through converted holds.
type StockLedger struct {
	store StockStore
	clock clock.Clock
	cache AvailabilityCache
}

func NewStockLedger(store StockStore, clk clock.Clock, opts ...StockLedgerOption) *StockLedger {
	l := &StockLedger{
		store: store,
		clock: clk,
		cache: noopCache{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

type StockLedgerOption func(*StockLedger)

func WithLedgerCache(c AvailabilityCache) StockLedgerOption {
	return func(l *StockLedger) {
		if c != nil {
			l.cache = c
		}
	}
}

func (l *StockLedger) GetProduct(ctx context.Context, productID string) (domain.Product, error) {
	return l.store.GetProduct(ctx, productID)
}

// AvailableStock serves read paths and may return a value a few seconds
// stale from the cache.
func (l *StockLedger) AvailableStock(ctx context.Context, productID string) (int, error) {
	if available, ok := l.cache.Get(ctx, productID); ok {
		return available, nil
	}

	available, err := l.store.AvailableStock(ctx, productID, l.clock.Now())
	if err != nil {
		return 0, err
	}
	if available < 0 {
		available = 0
	}

	l.cache.Set(ctx, productID, available)
	return available, nil
}

// HasAvailableStock answers from the store, never the cache.
func (l *StockLedger) HasAvailableStock(ctx context.Context, productID string, quantity int) (bool, error) {
	available, err := l.store.AvailableStock(ctx, productID, l.clock.Now())
	if err != nil {
		return false, err
	}
	return available >= quantity, nil
}
