package app

import (
	"context"
	"testing"
	"time"

	"github.com/MohamedH1000/GetPayIn/internal/clock"
	"github.com/MohamedH1000/GetPayIn/internal/domain"
	"github.com/shopspring/decimal"
)

func TestWebhookService_Process(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	product := domain.Product{ID: "prod-1", Price: decimal.RequireFromString("149.99"), TotalStock: 20}

	seed := func(store *memStore) {
		store.putHold(domain.Hold{ID: "h1", ProductID: "prod-1", Quantity: 2, Status: domain.HoldStatusActive, ExpiresAt: now.Add(time.Minute)})
		store.putOrder(domain.Order{ID: "o1", ProductID: "prod-1", HoldID: "h1", Quantity: 2, TotalAmount: decimal.RequireFromString("299.98"), Status: domain.OrderStatusPending})
	}

	makeSvc := func(store *memStore) *WebhookService {
		orders := NewOrderService(store, store, store, clock.NewFixed(now))
		return NewWebhookService(store, store, orders, clock.NewFixed(now), nil)
	}

	successInput := func() ProcessInput {
		amount := decimal.RequireFromString("299.98")
		return ProcessInput{
			PaymentID:      "pay_1",
			OrderID:        "o1",
			Status:         domain.WebhookStatusSuccess,
			IdempotencyKey: "idem_1",
			Amount:         &amount,
			Payload:        []byte(`{"payment_id":"pay_1"}`),
		}
	}

	t.Run("success event pays the order", func(t *testing.T) {
		store := newMemStore(product)
		seed(store)
		svc := makeSvc(store)

		result, err := svc.Process(context.Background(), successInput())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.Duplicate {
			t.Fatalf("expected first delivery not to be a duplicate")
		}
		if result.OrderStatus != domain.OrderStatusPaid {
			t.Fatalf("expected paid, got %s", result.OrderStatus)
		}
		if store.order("o1").Status != domain.OrderStatusPaid {
			t.Fatalf("expected order paid, got %s", store.order("o1").Status)
		}
		if store.hold("h1").Status != domain.HoldStatusConverted {
			t.Fatalf("expected hold converted, got %s", store.hold("h1").Status)
		}
		if len(store.webhooks) != 1 {
			t.Fatalf("expected one webhook record, got %d", len(store.webhooks))
		}
		if store.webhooks[0].OrderStatus != domain.OrderStatusPaid {
			t.Fatalf("expected recorded status paid, got %s", store.webhooks[0].OrderStatus)
		}
	})

	t.Run("redelivery echoes the stored outcome", func(t *testing.T) {
		store := newMemStore(product)
		seed(store)
		svc := makeSvc(store)

		if _, err := svc.Process(context.Background(), successInput()); err != nil {
			t.Fatalf("first delivery: %v", err)
		}
		result, err := svc.Process(context.Background(), successInput())
		if err != nil {
			t.Fatalf("redelivery: %v", err)
		}
		if !result.Duplicate {
			t.Fatalf("expected duplicate flag")
		}
		if result.OrderStatus != domain.OrderStatusPaid {
			t.Fatalf("expected echoed status paid, got %s", result.OrderStatus)
		}
		if len(store.webhooks) != 1 {
			t.Fatalf("expected a single record after redelivery, got %d", len(store.webhooks))
		}
	})

	t.Run("failure event cancels the order and frees the hold", func(t *testing.T) {
		store := newMemStore(product)
		seed(store)
		svc := makeSvc(store)

		in := successInput()
		in.Status = domain.WebhookStatusFailure
		in.Amount = nil

		result, err := svc.Process(context.Background(), in)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.OrderStatus != domain.OrderStatusCancelled {
			t.Fatalf("expected cancelled, got %s", result.OrderStatus)
		}
		if store.hold("h1").Status != domain.HoldStatusExpired {
			t.Fatalf("expected hold released, got %s", store.hold("h1").Status)
		}
	})

	t.Run("amount mismatch cancels instead of paying", func(t *testing.T) {
		store := newMemStore(product)
		seed(store)
		svc := makeSvc(store)

		in := successInput()
		wrong := decimal.RequireFromString("150.00")
		in.Amount = &wrong

		result, err := svc.Process(context.Background(), in)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.OrderStatus != domain.OrderStatusCancelled {
			t.Fatalf("expected cancelled on mismatch, got %s", result.OrderStatus)
		}
		if len(store.webhooks) != 1 {
			t.Fatalf("expected the mismatch recorded, got %d records", len(store.webhooks))
		}
	})

	t.Run("amount within tolerance pays", func(t *testing.T) {
		store := newMemStore(product)
		seed(store)
		svc := makeSvc(store)

		in := successInput()
		near := decimal.RequireFromString("299.97")
		in.Amount = &near

		result, err := svc.Process(context.Background(), in)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.OrderStatus != domain.OrderStatusPaid {
			t.Fatalf("expected paid within tolerance, got %s", result.OrderStatus)
		}
	})

	t.Run("missing amount pays without verification", func(t *testing.T) {
		store := newMemStore(product)
		seed(store)
		svc := makeSvc(store)

		in := successInput()
		in.Amount = nil

		result, err := svc.Process(context.Background(), in)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.OrderStatus != domain.OrderStatusPaid {
			t.Fatalf("expected paid, got %s", result.OrderStatus)
		}
	})

	t.Run("unknown order leaves nothing behind", func(t *testing.T) {
		store := newMemStore(product)
		svc := makeSvc(store)

		in := successInput()
		in.OrderID = "missing"

		if _, err := svc.Process(context.Background(), in); err != domain.ErrOrderNotFound {
			t.Fatalf("expected ErrOrderNotFound, got %v", err)
		}
		if len(store.webhooks) != 0 {
			t.Fatalf("expected no record for a missing order, got %d", len(store.webhooks))
		}
	})

	t.Run("non-pending order records the unchanged status", func(t *testing.T) {
		store := newMemStore(product)
		store.putOrder(domain.Order{ID: "o1", ProductID: "prod-1", HoldID: "h1", Quantity: 2, TotalAmount: decimal.RequireFromString("299.98"), Status: domain.OrderStatusCancelled})
		svc := makeSvc(store)

		result, err := svc.Process(context.Background(), successInput())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.OrderStatus != domain.OrderStatusCancelled {
			t.Fatalf("expected unchanged cancelled status, got %s", result.OrderStatus)
		}
		if store.order("o1").Status != domain.OrderStatusCancelled {
			t.Fatalf("expected order untouched, got %s", store.order("o1").Status)
		}
		if len(store.webhooks) != 1 {
			t.Fatalf("expected the event recorded anyway, got %d", len(store.webhooks))
		}
	})

	t.Run("lost insert race echoes the winner", func(t *testing.T) {
		store := newMemStore(product)
		seed(store)
		racing := &racingWebhookStore{memStore: store}
		orders := NewOrderService(store, store, store, clock.NewFixed(now))
		svc := NewWebhookService(racing, store, orders, clock.NewFixed(now), nil)

		// The winner's record lands after our fast-path lookup ran.
		store.webhooks = append(store.webhooks, domain.WebhookRecord{
			ID:             "rec-1",
			IdempotencyKey: "idem_1",
			PaymentID:      "pay_1",
			Status:         domain.WebhookStatusSuccess,
			OrderID:        "o1",
			OrderStatus:    domain.OrderStatusPaid,
		})

		result, err := svc.Process(context.Background(), successInput())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !result.Duplicate {
			t.Fatalf("expected duplicate flag after losing the race")
		}
		if result.OrderStatus != domain.OrderStatusPaid {
			t.Fatalf("expected the winner's status, got %s", result.OrderStatus)
		}
	})
}

// racingWebhookStore misses the fast-path lookup once, simulating a record
// committed by a concurrent delivery between lookup and insert.
type racingWebhookStore struct {
	*memStore
	misses int
}

func (s *racingWebhookStore) FindByKeyAndPayment(ctx context.Context, idempotencyKey, paymentID string) (*domain.WebhookRecord, error) {
	if s.misses == 0 {
		s.misses++
		return nil, nil
	}
	return s.memStore.FindByKeyAndPayment(ctx, idempotencyKey, paymentID)
}
