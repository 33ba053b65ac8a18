package app

import (
	"context"
	"errors"
	"time"

	"github.com/MohamedH1000/GetPayIn/internal/clock"
	"github.com/MohamedH1000/GetPayIn/internal/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderStore is the order-side persistence the service needs.
type OrderStore interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	CreateOrder(ctx context.Context, order domain.Order) error
	GetOrder(ctx context.Context, orderID string) (domain.Order, error)
	GetOrderForUpdate(ctx context.Context, orderID string) (domain.Order, error)
	GetOrderByHoldID(ctx context.Context, holdID string) (*domain.Order, error)
	MarkPaid(ctx context.Context, orderID, paymentID, idempotencyKey string, now time.Time) error
	UpdateOrderStatus(ctx context.Context, orderID string, to domain.OrderStatus, now time.Time) error
}

// OrderHoldStore locks and transitions the hold an order derives from.
type OrderHoldStore interface {
	GetHoldForUpdate(ctx context.Context, holdID string) (domain.Hold, error)
	UpdateHoldStatus(ctx context.Context, holdID string, to domain.HoldStatus) error
}

// OrderProductStore resolves the unit price.
type OrderProductStore interface {
	GetProduct(ctx context.Context, productID string) (domain.Product, error)
}

type OrderService struct {
	orders   OrderStore
	holds    OrderHoldStore
	products OrderProductStore
	clock    clock.Clock
	cache    AvailabilityCache
	logger   *zap.Logger
}

func NewOrderService(orders OrderStore, holds OrderHoldStore, products OrderProductStore, clk clock.Clock, opts ...OrderServiceOption) *OrderService {
	svc := &OrderService{
		orders:   orders,
		holds:    holds,
		products: products,
		clock:    clk,
		cache:    noopCache{},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type OrderServiceOption func(*OrderService)

func WithOrderCache(c AvailabilityCache) OrderServiceOption {
	return func(s *OrderService) {
		if c != nil {
			s.cache = c
		}
	}
}

func WithOrderLogger(l *zap.Logger) OrderServiceOption {
	return func(s *OrderService) {
		if l != nil {
			s.logger = l
		}
	}
}

type CreateOrderResult struct {
	Order   domain.Order
	Created bool
}

// CreateFromHold turns an active hold into a pending order. The hold row is
// locked and re-validated under the lock, closing the race between two
// near-simultaneous creation calls; a hold that already has an order yields
// that same order instead of a duplicate.
func (s *OrderService) CreateFromHold(ctx context.Context, holdID string) (CreateOrderResult, error) {
	now := s.clock.Now()
	var result CreateOrderResult

	err := s.orders.WithTx(ctx, func(txCtx context.Context) error {
		hold, err := s.holds.GetHoldForUpdate(txCtx, holdID)
		if err != nil {
			if errors.Is(err, domain.ErrHoldNotFound) {
				return domain.ErrHoldInvalid
			}
			return err
		}

		existing, err := s.orders.GetOrderByHoldID(txCtx, holdID)
		if err != nil {
			return err
		}
		if existing != nil {
			result = CreateOrderResult{Order: *existing, Created: false}
			return nil
		}

		if !hold.Active(now) {
			return domain.ErrHoldInvalid
		}

		product, err := s.products.GetProduct(txCtx, hold.ProductID)
		if err != nil {
			return err
		}

		order := domain.Order{
			ID:          newID(),
			ProductID:   hold.ProductID,
			HoldID:      hold.ID,
			Quantity:    hold.Quantity,
			TotalAmount: product.Price.Mul(decimal.NewFromInt(int64(hold.Quantity))),
			Status:      domain.OrderStatusPending,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.orders.CreateOrder(txCtx, order); err != nil {
			// A concurrent call won the hold_id uniqueness race; return its order.
			if errors.Is(err, domain.ErrDuplicateKey) {
				existing, rerr := s.orders.GetOrderByHoldID(txCtx, holdID)
				if rerr != nil {
					return rerr
				}
				if existing != nil {
					result = CreateOrderResult{Order: *existing, Created: false}
					return nil
				}
			}
			return err
		}

		result = CreateOrderResult{Order: order, Created: true}
		return nil
	})
	if err != nil {
		return CreateOrderResult{}, err
	}

	if result.Created {
		s.logger.Info("order created",
			zap.String("order_id", result.Order.ID),
			zap.String("hold_id", result.Order.HoldID),
			zap.String("product_id", result.Order.ProductID),
			zap.String("total_amount", result.Order.TotalAmount.StringFixed(2)),
		)
	}
	return result, nil
}

// MarkAsPaid transitions a pending order to paid, stores the payment id and
// idempotency key, and converts the backing hold if it is still active.
// Event-level deduplication is the webhook processor's job; this only
// guards the order state transition.
func (s *OrderService) MarkAsPaid(ctx context.Context, orderID, paymentID, idempotencyKey string) (domain.Order, error) {
	now := s.clock.Now()
	var out domain.Order

	err := s.orders.WithTx(ctx, func(txCtx context.Context) error {
		order, err := s.orders.GetOrderForUpdate(txCtx, orderID)
		if err != nil {
			return err
		}
		if err := s.orders.MarkPaid(txCtx, order.ID, paymentID, idempotencyKey, now); err != nil {
			return err
		}
		if err := s.holds.UpdateHoldStatus(txCtx, order.HoldID, domain.HoldStatusConverted); err != nil &&
			!errors.Is(err, domain.ErrHoldNotActive) {
			return err
		}

		order.Status = domain.OrderStatusPaid
		order.PaymentID = &paymentID
		order.IdempotencyKey = &idempotencyKey
		order.UpdatedAt = now
		out = order
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.cache.Invalidate(ctx, out.ProductID)
	s.logger.Info("order marked as paid",
		zap.String("order_id", out.ID),
		zap.String("payment_id", paymentID),
	)
	return out, nil
}

// Cancel transitions a pending order to cancelled and expires the backing
// hold if still active, releasing its reserved quantity.
func (s *OrderService) Cancel(ctx context.Context, orderID string) (domain.Order, error) {
	now := s.clock.Now()
	var out domain.Order

	err := s.orders.WithTx(ctx, func(txCtx context.Context) error {
		order, err := s.orders.GetOrderForUpdate(txCtx, orderID)
		if err != nil {
			return err
		}
		if err := s.orders.UpdateOrderStatus(txCtx, order.ID, domain.OrderStatusCancelled, now); err != nil {
			return err
		}
		if err := s.holds.UpdateHoldStatus(txCtx, order.HoldID, domain.HoldStatusExpired); err != nil &&
			!errors.Is(err, domain.ErrHoldNotActive) {
			return err
		}

		order.Status = domain.OrderStatusCancelled
		order.UpdatedAt = now
		out = order
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.cache.Invalidate(ctx, out.ProductID)
	s.logger.Info("order cancelled", zap.String("order_id", out.ID))
	return out, nil
}

// ExpireIfHoldExpired cascades an expired hold onto its pending order.
// Callers hold the hold row lock and have verified the expiry; anything but
// a pending order is left untouched.
func (s *OrderService) ExpireIfHoldExpired(ctx context.Context, hold domain.Hold) (bool, error) {
	if hold.ExpiresAt.After(s.clock.Now()) {
		return false, nil
	}

	order, err := s.orders.GetOrderByHoldID(ctx, hold.ID)
	if err != nil {
		return false, err
	}
	if order == nil || order.Status != domain.OrderStatusPending {
		return false, nil
	}

	if err := s.orders.UpdateOrderStatus(ctx, order.ID, domain.OrderStatusExpired, s.clock.Now()); err != nil {
		if errors.Is(err, domain.ErrOrderNotPending) {
			return false, nil
		}
		return false, err
	}

	s.logger.Info("order expired with its hold",
		zap.String("order_id", order.ID),
		zap.String("hold_id", hold.ID),
	)
	return true, nil
}
