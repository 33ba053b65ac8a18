package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/MohamedH1000/GetPayIn/internal/clock"
	"github.com/MohamedH1000/GetPayIn/internal/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// WebhookStore persists the permanent per-event records.
type WebhookStore interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	FindByKeyAndPayment(ctx context.Context, idempotencyKey, paymentID string) (*domain.WebhookRecord, error)
	CreateRecord(ctx context.Context, rec domain.WebhookRecord) error
}

// WebhookOrderStore locks the order a payment event targets.
type WebhookOrderStore interface {
	GetOrderForUpdate(ctx context.Context, orderID string) (domain.Order, error)
}

// OrderTransitioner is the slice of the order manager the processor drives.
type OrderTransitioner interface {
	MarkAsPaid(ctx context.Context, orderID, paymentID, idempotencyKey string) (domain.Order, error)
	Cancel(ctx context.Context, orderID string) (domain.Order, error)
}

// amountTolerance is the absolute slack allowed between the declared amount
// and the order total before the payment counts as failed.
var amountTolerance = decimal.New(1, -2)

// WebhookService turns at-least-once payment event delivery into at-most-
// once effect. Every side-effecting path runs behind the not-yet-recorded
// branch; replays echo the stored outcome.
type WebhookService struct {
	store  WebhookStore
	lookup WebhookOrderStore
	orders OrderTransitioner
	clock  clock.Clock
	logger *zap.Logger
}

func NewWebhookService(store WebhookStore, lookup WebhookOrderStore, orders OrderTransitioner, clk clock.Clock, logger *zap.Logger) *WebhookService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookService{
		store:  store,
		lookup: lookup,
		orders: orders,
		clock:  clk,
		logger: logger,
	}
}

type ProcessInput struct {
	PaymentID      string
	OrderID        string
	Status         domain.WebhookStatus
	IdempotencyKey string
	Amount         *decimal.Decimal
	Payload        []byte
}

type ProcessResult struct {
	Message        string
	IdempotencyKey string
	PaymentID      string
	OrderStatus    domain.OrderStatus
	Duplicate      bool
}

// Process applies one delivered payment event exactly once.
//
// The lookup is a fast path only; the authority for deduplication is the
// unique (idempotency_key, payment_id) insert inside the order-locking
// transaction, so two near-simultaneous deliveries of the same event cannot
// both apply.
func (s *WebhookService) Process(ctx context.Context, in ProcessInput) (ProcessResult, error) {
	if rec, err := s.store.FindByKeyAndPayment(ctx, in.IdempotencyKey, in.PaymentID); err != nil {
		return ProcessResult{}, err
	} else if rec != nil {
		s.logger.Info("duplicate webhook received",
			zap.String("idempotency_key", in.IdempotencyKey),
			zap.String("payment_id", in.PaymentID),
		)
		return s.echo(rec), nil
	}

	var finalStatus domain.OrderStatus

	err := s.store.WithTx(ctx, func(txCtx context.Context) error {
		// Missing orders abort the whole unit: nothing is persisted and the
		// sender is expected to redeliver once the order exists.
		order, err := s.lookup.GetOrderForUpdate(txCtx, in.OrderID)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidID) {
				return domain.ErrOrderNotFound
			}
			return err
		}

		finalStatus, err = s.apply(txCtx, order, in)
		if err != nil {
			return err
		}

		rec := domain.WebhookRecord{
			ID:             newID(),
			IdempotencyKey: in.IdempotencyKey,
			PaymentID:      in.PaymentID,
			Status:         in.Status,
			OrderID:        order.ID,
			OrderStatus:    finalStatus,
			Payload:        in.Payload,
			ProcessedAt:    s.clock.Now(),
		}
		return s.store.CreateRecord(txCtx, rec)
	})
	if err != nil {
		// Concurrent duplicate: the other delivery committed first, its
		// record is the outcome. Our transaction rolled back untouched.
		if errors.Is(err, domain.ErrDuplicateWebhook) {
			rec, ferr := s.store.FindByKeyAndPayment(ctx, in.IdempotencyKey, in.PaymentID)
			if ferr != nil {
				return ProcessResult{}, ferr
			}
			if rec != nil {
				return s.echo(rec), nil
			}
		}
		return ProcessResult{}, err
	}

	s.logger.Info("webhook processed",
		zap.String("idempotency_key", in.IdempotencyKey),
		zap.String("payment_id", in.PaymentID),
		zap.String("order_id", in.OrderID),
		zap.String("order_status", string(finalStatus)),
	)
	return ProcessResult{
		Message:        "webhook processed",
		IdempotencyKey: in.IdempotencyKey,
		PaymentID:      in.PaymentID,
		OrderStatus:    finalStatus,
	}, nil
}

// apply drives the order transition and reports the resulting status. A
// non-pending order refuses the transition without mutating; the event is
// still recorded with the unchanged status.
func (s *WebhookService) apply(ctx context.Context, order domain.Order, in ProcessInput) (domain.OrderStatus, error) {
	var (
		updated domain.Order
		err     error
	)

	switch {
	case in.Status == domain.WebhookStatusSuccess && s.amountMismatch(order, in.Amount):
		s.logger.Warn("payment amount mismatch",
			zap.String("order_id", order.ID),
			zap.String("expected", order.TotalAmount.StringFixed(2)),
			zap.String("received", in.Amount.StringFixed(2)),
		)
		updated, err = s.orders.Cancel(ctx, order.ID)
	case in.Status == domain.WebhookStatusSuccess:
		updated, err = s.orders.MarkAsPaid(ctx, order.ID, in.PaymentID, in.IdempotencyKey)
	case in.Status == domain.WebhookStatusFailure:
		updated, err = s.orders.Cancel(ctx, order.ID)
	default:
		return "", fmt.Errorf("unknown webhook status %q", in.Status)
	}
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotPending) {
			return order.Status, nil
		}
		return "", err
	}
	return updated.Status, nil
}

func (s *WebhookService) amountMismatch(order domain.Order, amount *decimal.Decimal) bool {
	if amount == nil {
		return false
	}
	return order.TotalAmount.Sub(*amount).Abs().GreaterThan(amountTolerance)
}

func (s *WebhookService) echo(rec *domain.WebhookRecord) ProcessResult {
	return ProcessResult{
		Message:        "webhook already processed",
		IdempotencyKey: rec.IdempotencyKey,
		PaymentID:      rec.PaymentID,
		OrderStatus:    rec.OrderStatus,
		Duplicate:      true,
	}
}
