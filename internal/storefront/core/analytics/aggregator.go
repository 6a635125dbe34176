package analytics

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Kyellog-silog/rustique-cafe/internal/pkg/cache"
	"github.com/Kyellog-silog/rustique-cafe/internal/storefront/core/apperrors"
	"github.com/Kyellog-silog/rustique-cafe/internal/storefront/core/domain/entity"
	"github.com/Kyellog-silog/rustique-cafe/internal/storefront/core/ports"
)

var tracer = otel.Tracer("github.com/Kyellog-silog/rustique-cafe/internal/storefront/core/analytics")

// Computer produces an account's report on demand.
type Computer interface {
	Compute(ctx context.Context, accountID string) (*Report, error)
}

// Aggregator reads the account's history from the store and aggregates it.
type Aggregator struct {
	src  ports.AnalyticsSource
	opts Options
}

// NewAggregator computes reports straight from src on every call.
func NewAggregator(src ports.AnalyticsSource, opts Options) *Aggregator {
	return &Aggregator{src: src, opts: opts}
}

// Compute returns *apperrors.AggregationReadError, and no report, when
// either read fails.
func (a *Aggregator) Compute(ctx context.Context, accountID string) (*Report, error) {
	ctx, span := tracer.Start(ctx, "analytics.Compute")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID))

	orders, err := a.src.SelectOrders(ctx, entity.OrderFilter{AccountID: accountID})
	if err != nil {
		return nil, a.readFailed(ctx, span, accountID, "select_orders", err)
	}
	rows, err := a.src.SelectLineItemRows(ctx, accountID)
	if err != nil {
		return nil, a.readFailed(ctx, span, accountID, "select_order_line_items", err)
	}

	span.SetAttributes(attribute.Int("analytics.orders", len(orders)), attribute.Int("analytics.rows", len(rows)))
	return Compute(orders, rows, a.opts), nil
}

func (a *Aggregator) readFailed(ctx context.Context, span trace.Span, accountID, op string, err error) error {
	slog.ErrorContext(ctx, "analytics read failed", "op", op, "account_id", accountID, "error", err)
	out := &apperrors.AggregationReadError{
		AccountID: accountID,
		Err:       &apperrors.StoreError{Op: op, Err: err},
	}
	span.RecordError(out)
	span.SetStatus(codes.Error, op)
	return out
}

// CachedAggregator serves reports from the cache for ttl and recomputes on a
// miss. Cache failures degrade to computing; they never fail the request.
type CachedAggregator struct {
	next  Computer
	cache cache.Cache
	ttl   time.Duration
}

// NewCachedAggregator caches next's reports per account for ttl. Invalidate
// drops an account's entry early.
func NewCachedAggregator(next Computer, c cache.Cache, ttl time.Duration) *CachedAggregator {
	return &CachedAggregator{next: next, cache: c, ttl: ttl}
}

func (c *CachedAggregator) key(accountID string) string {
	return c.cache.GenerateKey("analytics", accountID)
}

// Compute serves a cached report when one exists. Cache failures fall
// through to next and are only logged.
func (c *CachedAggregator) Compute(ctx context.Context, accountID string) (*Report, error) {
	key := c.key(accountID)
	if raw, err := c.cache.Get(ctx, key); err != nil {
		slog.WarnContext(ctx, "analytics cache read failed", "account_id", accountID, "error", err)
	} else if raw != "" {
		var r Report
		if err := json.Unmarshal([]byte(raw), &r); err == nil {
			return &r, nil
		}
	}

	report, err := c.next.Compute(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(report); err == nil {
		if err := c.cache.Set(ctx, key, b, c.ttl); err != nil {
			slog.WarnContext(ctx, "analytics cache write failed", "account_id", accountID, "error", err)
		}
	}
	return report, nil
}

// Invalidate drops the cached report so the next Compute sees new orders.
func (c *CachedAggregator) Invalidate(ctx context.Context, accountID string) error {
	return c.cache.Delete(ctx, c.key(accountID))
}
