package postgres

import (
	"context"
	"fmt"

	"github.com/MohamedH1000/GetPayIn/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type WebhookRepository struct {
	pool *pgxpool.Pool
}

func NewWebhookRepository(pool *pgxpool.Pool) *WebhookRepository {
	return &WebhookRepository{pool: pool}
}

func (r *WebhookRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *WebhookRepository) FindByKeyAndPayment(ctx context.Context, idempotencyKey, paymentID string) (*domain.WebhookRecord, error) {
	const query = `
SELECT id, idempotency_key, payment_id, status, order_id, order_status, payload, processed_at
FROM payment_webhooks
WHERE idempotency_key = $1 AND payment_id = $2`

	var rec domain.WebhookRecord
	err := r.queryRow(ctx, query, idempotencyKey, paymentID).
		Scan(&rec.ID, &rec.IdempotencyKey, &rec.PaymentID, &rec.Status, &rec.OrderID,
			&rec.OrderStatus, &rec.Payload, &rec.ProcessedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find webhook record: %w", err)
	}
	return &rec, nil
}

// CreateRecord inserts the permanent record for one delivered event. The
// unique (idempotency_key, payment_id) index makes this an insert-if-absent:
// a violation is the already-processed signal, closing the window between a
// missed lookup and two concurrent deliveries.
func (r *WebhookRepository) CreateRecord(ctx context.Context, rec domain.WebhookRecord) error {
	const stmt = `
INSERT INTO payment_webhooks (id, idempotency_key, payment_id, status, order_id, order_status, payload, processed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.exec(ctx, stmt,
		rec.ID,
		rec.IdempotencyKey,
		rec.PaymentID,
		rec.Status,
		rec.OrderID,
		rec.OrderStatus,
		rec.Payload,
		rec.ProcessedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateWebhook
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create webhook record: %w", err)
	}
	return nil
}

func (r *WebhookRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *WebhookRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
