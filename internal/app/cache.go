package app

import "context"

// AvailabilityCache is the advisory, bounded-staleness cache of available
// stock per product. Implementations must never be the authority: oversell-
// safe paths recompute availability under the product row lock instead.
type AvailabilityCache interface {
	Get(ctx context.Context, productID string) (available int, ok bool)
	Set(ctx context.Context, productID string, available int)
	Invalidate(ctx context.Context, productID string)
}

type noopCache struct{}

func (noopCache) Get(context.Context, string) (int, bool) { return 0, false }
func (noopCache) Set(context.Context, string, int)        {}
func (noopCache) Invalidate(context.Context, string)      {}
