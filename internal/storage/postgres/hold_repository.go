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

type HoldRepository struct {
	pool *pgxpool.Pool
}

func NewHoldRepository(pool *pgxpool.Pool) *HoldRepository {
	return &HoldRepository{pool: pool}
}

func (r *HoldRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

const holdColumns = `id, product_id, quantity, status, expires_at, hold_token, created_at`

func (r *HoldRepository) CreateHold(ctx context.Context, hold domain.Hold) error {
	const stmt = `
INSERT INTO holds (id, product_id, quantity, status, expires_at, hold_token, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.exec(ctx, stmt,
		hold.ID,
		hold.ProductID,
		hold.Quantity,
		hold.Status,
		hold.ExpiresAt,
		hold.Token,
		hold.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateKey
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create hold: %w", err)
	}
	return nil
}

// FindActiveByToken resolves a hold token to its hold only while the hold is
// active and unexpired. A lapsed but unswept hold is filtered out here
// without being mutated.
func (r *HoldRepository) FindActiveByToken(ctx context.Context, token string, now time.Time) (*domain.Hold, error) {
	query := `SELECT ` + holdColumns + ` FROM holds WHERE hold_token = $1 AND status = 'active' AND expires_at > $2`

	var h domain.Hold
	err := r.queryRow(ctx, query, token, now).
		Scan(&h.ID, &h.ProductID, &h.Quantity, &h.Status, &h.ExpiresAt, &h.Token, &h.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find hold by token: %w", err)
	}
	return &h, nil
}

func (r *HoldRepository) GetHoldForUpdate(ctx context.Context, holdID string) (domain.Hold, error) {
	query := `SELECT ` + holdColumns + ` FROM holds WHERE id = $1 FOR UPDATE`

	var h domain.Hold
	err := r.queryRow(ctx, query, holdID).
		Scan(&h.ID, &h.ProductID, &h.Quantity, &h.Status, &h.ExpiresAt, &h.Token, &h.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Hold{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Hold{}, domain.ErrHoldNotFound
		}
		return domain.Hold{}, fmt.Errorf("get hold: %w", err)
	}
	return h, nil
}

// UpdateHoldStatus performs the guarded active -> expired/converted
// transition. Zero rows affected means the hold already left active, which
// keeps each transition at-most-once.
func (r *HoldRepository) UpdateHoldStatus(ctx context.Context, holdID string, to domain.HoldStatus) error {
	const stmt = `UPDATE holds SET status = $2 WHERE id = $1 AND status = 'active'`

	tag, err := r.exec(ctx, stmt, holdID, to)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("update hold status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrHoldNotActive
	}
	return nil
}

// ListExpiredActive returns holds whose timer lapsed but which are still
// marked active. No locks are taken; the sweeper re-locks each hold in its
// own transaction.
func (r *HoldRepository) ListExpiredActive(ctx context.Context, now time.Time) ([]domain.Hold, error) {
	query := `SELECT ` + holdColumns + ` FROM holds WHERE status = 'active' AND expires_at < $1 ORDER BY expires_at`

	rows, err := r.query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("list expired holds: %w", err)
	}
	defer rows.Close()

	var out []domain.Hold
	for rows.Next() {
		var h domain.Hold
		if err := rows.Scan(&h.ID, &h.ProductID, &h.Quantity, &h.Status, &h.ExpiresAt, &h.Token, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan expired hold: %w", err)
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list expired holds: %w", err)
	}
	return out, nil
}

func (r *HoldRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *HoldRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}

func (r *HoldRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}
