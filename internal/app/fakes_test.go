package app

import (
	"context"
	"sync"
	"time"

	"github.com/MohamedH1000/GetPayIn/internal/domain"
)

// memStore is an in-memory stand-in for the postgres repositories. It
// implements every store interface the services consume so one fixture can
// back a whole flow.
type memStore struct {
	mu       sync.Mutex
	products map[string]domain.Product
	holds    map[string]domain.Hold
	orders   map[string]domain.Order
	webhooks []domain.WebhookRecord
}

func newMemStore(products ...domain.Product) *memStore {
	s := &memStore{
		products: make(map[string]domain.Product),
		holds:    make(map[string]domain.Hold),
		orders:   make(map[string]domain.Order),
	}
	for _, p := range products {
		s.products[p.ID] = p
	}
	return s
}

func (s *memStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (s *memStore) GetProduct(ctx context.Context, productID string) (domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[productID]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return p, nil
}

func (s *memStore) GetProductForUpdate(ctx context.Context, productID string) (domain.Product, error) {
	return s.GetProduct(ctx, productID)
}

func (s *memStore) AvailableStock(ctx context.Context, productID string, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[productID]
	if !ok {
		return 0, domain.ErrProductNotFound
	}
	available := p.TotalStock
	for _, h := range s.holds {
		if h.ProductID != productID {
			continue
		}
		switch {
		case h.Status == domain.HoldStatusActive && h.ExpiresAt.After(now):
			available -= h.Quantity
		case h.Status == domain.HoldStatusConverted:
			available -= h.Quantity
		}
	}
	return available, nil
}

func (s *memStore) CreateHold(ctx context.Context, hold domain.Hold) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range s.holds {
		if h.Token == hold.Token {
			return domain.ErrDuplicateKey
		}
	}
	s.holds[hold.ID] = hold
	return nil
}

func (s *memStore) FindActiveByToken(ctx context.Context, token string, now time.Time) (*domain.Hold, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range s.holds {
		if h.Token == token && h.Status == domain.HoldStatusActive && h.ExpiresAt.After(now) {
			out := h
			return &out, nil
		}
	}
	return nil, nil
}

func (s *memStore) GetHoldForUpdate(ctx context.Context, holdID string) (domain.Hold, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.holds[holdID]
	if !ok {
		return domain.Hold{}, domain.ErrHoldNotFound
	}
	return h, nil
}

func (s *memStore) UpdateHoldStatus(ctx context.Context, holdID string, to domain.HoldStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.holds[holdID]
	if !ok || h.Status != domain.HoldStatusActive {
		return domain.ErrHoldNotActive
	}
	h.Status = to
	s.holds[holdID] = h
	return nil
}

func (s *memStore) ListExpiredActive(ctx context.Context, now time.Time) ([]domain.Hold, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Hold
	for _, h := range s.holds {
		if h.Status == domain.HoldStatusActive && !h.ExpiresAt.After(now) {
			out = append(out, h)
		}
	}
	return out, nil
}

func (s *memStore) CreateOrder(ctx context.Context, order domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.HoldID == order.HoldID {
			return domain.ErrDuplicateKey
		}
	}
	s.orders[order.ID] = order
	return nil
}

func (s *memStore) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return o, nil
}

func (s *memStore) GetOrderForUpdate(ctx context.Context, orderID string) (domain.Order, error) {
	return s.GetOrder(ctx, orderID)
}

func (s *memStore) GetOrderByHoldID(ctx context.Context, holdID string) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.HoldID == holdID {
			out := o
			return &out, nil
		}
	}
	return nil, nil
}

func (s *memStore) MarkPaid(ctx context.Context, orderID, paymentID, idempotencyKey string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok || o.Status != domain.OrderStatusPending {
		return domain.ErrOrderNotPending
	}
	for _, other := range s.orders {
		if other.ID != orderID && other.IdempotencyKey != nil && *other.IdempotencyKey == idempotencyKey {
			return domain.ErrDuplicateKey
		}
	}
	o.Status = domain.OrderStatusPaid
	o.PaymentID = &paymentID
	o.IdempotencyKey = &idempotencyKey
	o.UpdatedAt = now
	s.orders[orderID] = o
	return nil
}

func (s *memStore) UpdateOrderStatus(ctx context.Context, orderID string, to domain.OrderStatus, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok || o.Status != domain.OrderStatusPending {
		return domain.ErrOrderNotPending
	}
	o.Status = to
	o.UpdatedAt = now
	s.orders[orderID] = o
	return nil
}

func (s *memStore) FindByKeyAndPayment(ctx context.Context, idempotencyKey, paymentID string) (*domain.WebhookRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.webhooks {
		if rec.IdempotencyKey == idempotencyKey && rec.PaymentID == paymentID {
			out := rec
			return &out, nil
		}
	}
	return nil, nil
}

func (s *memStore) CreateRecord(ctx context.Context, rec domain.WebhookRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.webhooks {
		if existing.IdempotencyKey == rec.IdempotencyKey && existing.PaymentID == rec.PaymentID {
			return domain.ErrDuplicateWebhook
		}
	}
	s.webhooks = append(s.webhooks, rec)
	return nil
}

func (s *memStore) hold(id string) domain.Hold {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.holds[id]
}

func (s *memStore) order(id string) domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orders[id]
}

func (s *memStore) putHold(h domain.Hold) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.holds[h.ID] = h
}

func (s *memStore) putOrder(o domain.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID] = o
}

// fakeCache records cache traffic so tests can assert on invalidations.
type fakeCache struct {
	mu           sync.Mutex
	values       map[string]int
	invalidated  []string
	sets         []string
	getRequested []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: make(map[string]int)}
}

func (c *fakeCache) Get(ctx context.Context, productID string) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.getRequested = append(c.getRequested, productID)
	v, ok := c.values[productID]
	return v, ok
}

func (c *fakeCache) Set(ctx context.Context, productID string, available int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets = append(c.sets, productID)
	c.values[productID] = available
}

func (c *fakeCache) Invalidate(ctx context.Context, productID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, productID)
	delete(c.values, productID)
}
