package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/MohamedH1000/GetPayIn/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ProductRepository struct {
	pool *pgxpool.Pool
}

func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

func (r *ProductRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

const productColumns = `id, name, description, price, total_stock, created_at, updated_at`

func (r *ProductRepository) GetProduct(ctx context.Context, productID string) (domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	return r.scanProduct(ctx, query, productID)
}

// GetProductForUpdate takes the exclusive product row lock that serializes
// hold creation for one product.
func (r *ProductRepository) GetProductForUpdate(ctx context.Context, productID string) (domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1 FOR UPDATE`
	return r.scanProduct(ctx, query, productID)
}

// AvailableStock computes total stock minus active unexpired and converted
// hold quantities in a single statement, so the figure comes from one
// consistent snapshot rather than separately-fetched values.
func (r *ProductRepository) AvailableStock(ctx context.Context, productID string, now time.Time) (int, error) {
	const query = `
SELECT p.total_stock
     - COALESCE(SUM(h.quantity) FILTER (WHERE h.status = 'active' AND h.expires_at > $2), 0)
     - COALESCE(SUM(h.quantity) FILTER (WHERE h.status = 'converted'), 0)
FROM products p
LEFT JOIN holds h ON h.product_id = p.id
WHERE p.id = $1
GROUP BY p.id, p.total_stock`

	var available int
	err := r.queryRow(ctx, query, productID, now).Scan(&available)
	if err != nil {
		if isInvalidUUID(err) {
			return 0, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return 0, domain.ErrProductNotFound
		}
		return 0, fmt.Errorf("available stock: %w", err)
	}
	return available, nil
}

func (r *ProductRepository) scanProduct(ctx context.Context, query, productID string) (domain.Product, error) {
	var p domain.Product
	err := r.queryRow(ctx, query, productID).
		Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.TotalStock, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Product{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

func (r *ProductRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
