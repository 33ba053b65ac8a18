package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Availability is a short-lived per-product cache of computed available
// stock. It is advisory only: misses and Redis errors are equivalent, and
// no oversell-safe path reads it.
type Availability struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewAvailability(client *redis.Client, ttl time.Duration, logger *zap.Logger) *Availability {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Availability{client: client, ttl: ttl, logger: logger}
}

func (c *Availability) Get(ctx context.Context, productID string) (int, bool) {
	val, err := c.client.Get(ctx, availabilityKey(productID)).Int()
	if err != nil {
		if err != redis.Nil {
			c.logger.Debug("availability cache get failed", zap.String("product_id", productID), zap.Error(err))
		}
		return 0, false
	}
	return val, true
}

func (c *Availability) Set(ctx context.Context, productID string, available int) {
	if err := c.client.Set(ctx, availabilityKey(productID), available, c.ttl).Err(); err != nil {
		c.logger.Debug("availability cache set failed", zap.String("product_id", productID), zap.Error(err))
	}
}

func (c *Availability) Invalidate(ctx context.Context, productID string) {
	if err := c.client.Del(ctx, availabilityKey(productID)).Err(); err != nil {
		c.logger.Debug("availability cache invalidate failed", zap.String("product_id", productID), zap.Error(err))
	}
}

func availabilityKey(productID string) string {
	return fmt.Sprintf("product:%s:available_stock", productID)
}
