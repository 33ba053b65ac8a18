package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/MohamedH1000/GetPayIn/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type OrderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

func (r *OrderRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

const orderColumns = `id, product_id, hold_id, quantity, total_amount, status, payment_id, idempotency_key, created_at, updated_at`

func (r *OrderRepository) CreateOrder(ctx context.Context, order domain.Order) error {
	const stmt = `
INSERT INTO orders (id, product_id, hold_id, quantity, total_amount, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`

	_, err := r.exec(ctx, stmt,
		order.ID,
		order.ProductID,
		order.HoldID,
		order.Quantity,
		order.TotalAmount,
		order.Status,
		order.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateKey
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

func (r *OrderRepository) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	return r.scanOrder(ctx, query, orderID)
}

// GetOrderForUpdate takes the exclusive order row lock that serializes
// webhook application and order transitions.
func (r *OrderRepository) GetOrderForUpdate(ctx context.Context, orderID string) (domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`
	return r.scanOrder(ctx, query, orderID)
}

func (r *OrderRepository) GetOrderByHoldID(ctx context.Context, holdID string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE hold_id = $1`

	o, err := r.scanOrder(ctx, query, holdID)
	if err != nil {
		if err == domain.ErrOrderNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}

// MarkPaid performs the guarded pending -> paid transition, storing the
// payment id and idempotency key. Zero rows affected means the order is no
// longer pending.
func (r *OrderRepository) MarkPaid(ctx context.Context, orderID, paymentID, idempotencyKey string, now time.Time) error {
	const stmt = `
UPDATE orders
SET status = 'paid', payment_id = $2, idempotency_key = $3, updated_at = $4
WHERE id = $1 AND status = 'pending'`

	tag, err := r.exec(ctx, stmt, orderID, paymentID, idempotencyKey, now)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateKey
		}
		return fmt.Errorf("mark order paid: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOrderNotPending
	}
	return nil
}

// UpdateOrderStatus performs a guarded pending -> cancelled/expired
// transition.
func (r *OrderRepository) UpdateOrderStatus(ctx context.Context, orderID string, to domain.OrderStatus, now time.Time) error {
	const stmt = `UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1 AND status = 'pending'`

	tag, err := r.exec(ctx, stmt, orderID, to, now)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOrderNotPending
	}
	return nil
}

func (r *OrderRepository) scanOrder(ctx context.Context, query, id string) (domain.Order, error) {
	var o domain.Order
	err := r.queryRow(ctx, query, id).
		Scan(&o.ID, &o.ProductID, &o.HoldID, &o.Quantity, &o.TotalAmount, &o.Status,
			&o.PaymentID, &o.IdempotencyKey, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Order{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

func (r *OrderRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *OrderRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
