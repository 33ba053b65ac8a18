package app

import (
	"context"
	"time"

	"github.com/MohamedH1000/GetPayIn/internal/clock"
	"github.com/MohamedH1000/GetPayIn/internal/domain"
	"go.uber.org/zap"
)

// HoldStore is the hold-side persistence the service needs.
type HoldStore interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	CreateHold(ctx context.Context, hold domain.Hold) error
	FindActiveByToken(ctx context.Context, token string, now time.Time) (*domain.Hold, error)
	UpdateHoldStatus(ctx context.Context, holdID string, to domain.HoldStatus) error
}

// HoldProductStore locks and measures the product the hold reserves from.
type HoldProductStore interface {
	GetProductForUpdate(ctx context.Context, productID string) (domain.Product, error)
	AvailableStock(ctx context.Context, productID string, now time.Time) (int, error)
}

type HoldService struct {
	holds    HoldStore
	products HoldProductStore
	clock    clock.Clock
	cache    AvailabilityCache
	logger   *zap.Logger
	holdTTL  time.Duration
}

const defaultHoldTTL = 2 * time.Minute

func NewHoldService(holds HoldStore, products HoldProductStore, clk clock.Clock, opts ...HoldServiceOption) *HoldService {
	svc := &HoldService{
		holds:    holds,
		products: products,
		clock:    clk,
		cache:    noopCache{},
		logger:   zap.NewNop(),
		holdTTL:  defaultHoldTTL,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type HoldServiceOption func(*HoldService)

// WithHoldTTL overrides the default TTL for new holds.
func WithHoldTTL(d time.Duration) HoldServiceOption {
	return func(s *HoldService) {
		if d > 0 {
			s.holdTTL = d
		}
	}
}

func WithHoldCache(c AvailabilityCache) HoldServiceOption {
	return func(s *HoldService) {
		if c != nil {
			s.cache = c
		}
	}
}

func WithHoldLogger(l *zap.Logger) HoldServiceOption {
	return func(s *HoldService) {
		if l != nil {
			s.logger = l
		}
	}
}

// CreateHold reserves quantity against a product. The product row lock is
// what serializes concurrent check-then-act sequences: availability is
// recomputed from the lock-protected snapshot, so two callers can never both
// see stale availability and oversubscribe.
func (s *HoldService) CreateHold(ctx context.Context, productID string, quantity int) (domain.Hold, error) {
	if quantity <= 0 {
		return domain.Hold{}, domain.ErrInvalidQuantity
	}

	now := s.clock.Now()
	var result domain.Hold

	err := s.holds.WithTx(ctx, func(txCtx context.Context) error {
		product, err := s.products.GetProductForUpdate(txCtx, productID)
		if err != nil {
			return err
		}

		available, err := s.products.AvailableStock(txCtx, product.ID, now)
		if err != nil {
			return err
		}
		if quantity > available {
			return domain.ErrInsufficientStock
		}

		hold := domain.Hold{
			ID:        newID(),
			ProductID: product.ID,
			Quantity:  quantity,
			Status:    domain.HoldStatusActive,
			ExpiresAt: now.Add(s.holdTTL),
			Token:     newHoldToken(),
			CreatedAt: now,
		}
		if err := s.holds.CreateHold(txCtx, hold); err != nil {
			return err
		}

		result = hold
		return nil
	})
	if err != nil {
		return domain.Hold{}, err
	}

	s.cache.Invalidate(ctx, result.ProductID)
	s.logger.Info("hold created",
		zap.String("hold_id", result.ID),
		zap.String("product_id", result.ProductID),
		zap.Int("quantity", result.Quantity),
		zap.Time("expires_at", result.ExpiresAt),
	)
	return result, nil
}

// FindActiveByToken returns the hold only while it is active and unexpired.
// A hold whose timer lapsed but which the sweeper has not visited yet is
// reported as absent without being mutated.
func (s *HoldService) FindActiveByToken(ctx context.Context, token string) (*domain.Hold, error) {
	return s.holds.FindActiveByToken(ctx, token, s.clock.Now())
}

// MarkExpired transitions active -> expired. Returns ErrHoldNotActive when
// the hold already left active, guaranteeing at most one transition.
func (s *HoldService) MarkExpired(ctx context.Context, holdID string) error {
	return s.holds.UpdateHoldStatus(ctx, holdID, domain.HoldStatusExpired)
}

// MarkConverted transitions active -> converted under the same guard.
func (s *HoldService) MarkConverted(ctx context.Context, holdID string) error {
	return s.holds.UpdateHoldStatus(ctx, holdID, domain.HoldStatusConverted)
}
