package migrations

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Seed inserts demo catalog products for local development and load tests.
// Fixed ids keep re-runs idempotent.
func Seed(ctx context.Context, pool *pgxpool.Pool) error {
	products := []struct {
		id    string
		name  string
		desc  string
		price string
		stock int
	}{
		{"5f9c2e9a-1b7d-4a44-9a34-0a0d6a2e9b01", "Limited Edition Sneaker", "Flash sale drop, one size run", "149.99", 100},
		{"5f9c2e9a-1b7d-4a44-9a34-0a0d6a2e9b02", "Collector Vinyl", "Numbered pressing", "39.50", 20},
		{"5f9c2e9a-1b7d-4a44-9a34-0a0d6a2e9b03", "Signed Poster", "Single batch, no restock", "25.00", 500},
	}

	for _, p := range products {
		_, err := pool.Exec(ctx, `
INSERT INTO products (id, name, description, price, total_stock)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO NOTHING`,
			p.id, p.name, p.desc, p.price, p.stock,
		)
		if err != nil {
			return fmt.Errorf("seed product %s: %w", p.name, err)
		}
	}
	return nil
}
