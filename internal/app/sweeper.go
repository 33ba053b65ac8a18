package app

import (
	"context"
	"errors"
	"time"

	"github.com/MohamedH1000/GetPayIn/internal/clock"
	"github.com/MohamedH1000/GetPayIn/internal/domain"
	"go.uber.org/zap"
)

// SweepStore lists sweep candidates and opens per-item transactions.
type SweepStore interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	ListExpiredActive(ctx context.Context, now time.Time) ([]domain.Hold, error)
}

// HoldExpirer is the slice of the hold manager the sweeper drives.
type HoldExpirer interface {
	MarkExpired(ctx context.Context, holdID string) error
}

// OrderCascader cascades an expired hold onto its pending order.
type OrderCascader interface {
	ExpireIfHoldExpired(ctx context.Context, hold domain.Hold) (bool, error)
}

// Sweeper reconciles time-based hold expiry with dependent order state.
// Each overdue hold is processed in its own transaction: one item's failure
// is logged and never rolls back or blocks the rest of the run.
type Sweeper struct {
	store  SweepStore
	holds  HoldExpirer
	orders OrderCascader
	clock  clock.Clock
	cache  AvailabilityCache
	logger *zap.Logger
}

func NewSweeper(store SweepStore, holds HoldExpirer, orders OrderCascader, clk clock.Clock, opts ...SweeperOption) *Sweeper {
	s := &Sweeper{
		store:  store,
		holds:  holds,
		orders: orders,
		clock:  clk,
		cache:  noopCache{},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type SweeperOption func(*Sweeper)

func WithSweeperCache(c AvailabilityCache) SweeperOption {
	return func(s *Sweeper) {
		if c != nil {
			s.cache = c
		}
	}
}

func WithSweeperLogger(l *zap.Logger) SweeperOption {
	return func(s *Sweeper) {
		if l != nil {
			s.logger = l
		}
	}
}

type SweepReport struct {
	Scanned       int
	HoldsExpired  int
	OrdersExpired int
	Failed        int
}

// Sweep expires every overdue active hold and cascades to pending orders.
// Candidates are listed without locks; each item re-locks its hold row, so a
// hold converted between listing and processing is skipped (conversion is
// terminal and never undone).
func (s *Sweeper) Sweep(ctx context.Context) (SweepReport, error) {
	now := s.clock.Now()

	candidates, err := s.store.ListExpiredActive(ctx, now)
	if err != nil {
		return SweepReport{}, err
	}

	report := SweepReport{Scanned: len(candidates)}
	for _, hold := range candidates {
		var cascaded bool
		err := s.store.WithTx(ctx, func(txCtx context.Context) error {
			if err := s.holds.MarkExpired(txCtx, hold.ID); err != nil {
				return err
			}
			var cerr error
			cascaded, cerr = s.orders.ExpireIfHoldExpired(txCtx, hold)
			return cerr
		})
		switch {
		case err == nil:
			report.HoldsExpired++
			if cascaded {
				report.OrdersExpired++
			}
			s.cache.Invalidate(ctx, hold.ProductID)
			s.logger.Info("hold expired",
				zap.String("hold_id", hold.ID),
				zap.String("product_id", hold.ProductID),
				zap.Int("quantity", hold.Quantity),
				zap.Bool("order_expired", cascaded),
			)
		case errors.Is(err, domain.ErrHoldNotActive):
			// Converted or swept concurrently since listing; nothing to do.
		default:
			report.Failed++
			s.logger.Error("failed to expire hold",
				zap.String("hold_id", hold.ID),
				zap.Error(err),
			)
		}
	}
	return report, nil
}

// Run sweeps on a fixed schedule until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweeper stopping")
			return nil
		case <-ticker.C:
			report, err := s.Sweep(ctx)
			if err != nil {
				s.logger.Error("sweep run failed", zap.Error(err))
				continue
			}
			if report.Scanned > 0 {
				s.logger.Info("sweep completed",
					zap.Int("scanned", report.Scanned),
					zap.Int("holds_expired", report.HoldsExpired),
					zap.Int("orders_expired", report.OrdersExpired),
					zap.Int("failed", report.Failed),
				)
			}
		}
	}
}
