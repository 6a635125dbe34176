package checkout

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/Kyellog-silog/rustique-cafe/internal/pkg/cache"
	"github.com/Kyellog-silog/rustique-cafe/internal/storefront/core/domain/entity"
)

// Placer is satisfied by *Writer.
type Placer interface {
	PlaceOrder(ctx context.Context, accountID string, in PlaceOrderInput) (*entity.Order, error)
}

// IdempotentPlacer remembers the order created for an idempotency key so a
// retried checkout returns it instead of placing a second order.
//
// Two concurrent first attempts with the same key can both miss the cache;
// the guarantee covers sequential retries only.
type IdempotentPlacer struct {
	placer Placer
	cache  cache.Cache
	ttl    time.Duration
}

// NewIdempotentPlacer wraps placer so a repeated idempotency key replays the
// first confirmed order for ttl instead of placing it again.
func NewIdempotentPlacer(placer Placer, c cache.Cache, ttl time.Duration) *IdempotentPlacer {
	return &IdempotentPlacer{placer: placer, cache: c, ttl: ttl}
}

// PlaceOrder returns (order, replayed, err). An empty key disables the lookup.
func (p *IdempotentPlacer) PlaceOrder(ctx context.Context, accountID, key string, in PlaceOrderInput) (*entity.Order, bool, error) {
	if key == "" {
		order, err := p.placer.PlaceOrder(ctx, accountID, in)
		return order, false, err
	}

	cacheKey := p.cache.GenerateKey("checkout", accountID+":"+key)
	if raw, err := p.cache.Get(ctx, cacheKey); err != nil {
		slog.WarnContext(ctx, "idempotency lookup failed", "key", key, "error", err)
	} else if raw != "" {
		var order entity.Order
		if err := json.Unmarshal([]byte(raw), &order); err == nil {
			return &order, true, nil
		}
	}

	order, err := p.placer.PlaceOrder(ctx, accountID, in)
	if err != nil {
		return nil, false, err
	}

	if b, err := json.Marshal(order); err == nil {
		if err := p.cache.Set(context.WithoutCancel(ctx), cacheKey, b, p.ttl); err != nil {
			slog.WarnContext(ctx, "idempotency store failed", "key", key, "order_id", order.ID, "error", err)
		}
	}
	return order, false, nil
}
