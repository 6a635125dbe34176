package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kyellog-silog/rustique-cafe/internal/storefront/core/apperrors"
	"github.com/Kyellog-silog/rustique-cafe/internal/storefront/core/domain/entity"
	"github.com/Kyellog-silog/rustique-cafe/internal/storefront/infra/adapters/store/memory"
)

func seededStore(t *testing.T) *memory.Store {
	t.Helper()
	s := memory.New()
	ctx := context.Background()
	s.PutCategory(entity.Category{ID: "c1", Name: "Coffee", Color: "#333"})
	s.PutMenuItem(entity.MenuItem{ID: "latte", Name: "Latte", Price: decimal.RequireFromString("4.50"), CategoryID: "c1"})

	id, err := s.InsertOrder(ctx, entity.Order{
		AccountID: "acct", Status: entity.StatusCompleted,
		TotalAmount: decimal.RequireFromString("9.00"), CreatedAt: time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.NoError(t, s.InsertOrderLineItems(ctx, id, []entity.OrderLineItem{
		entity.NewLineItem("", id, "latte", 2, decimal.RequireFromString("4.50")),
	}))
	return s
}

func TestAggregator_computesFromStore(t *testing.T) {
	r, err := NewAggregator(seededStore(t), Options{}).Compute(context.Background(), "acct")

	require.NoError(t, err)
	assert.Equal(t, "9.00", r.Summary.TotalRevenue.StringFixed(2))
	require.Len(t, r.TopItems, 1)
	assert.Equal(t, "Latte", r.TopItems[0].Name)
	require.Len(t, r.CategoryPerformance, 1)
	require.Len(t, r.SalesTrend, 1)
	assert.Equal(t, "2026-04-01", r.SalesTrend[0].Date)
}

func TestAggregator_readFailureYieldsNoReport(t *testing.T) {
	tests := []struct {
		name   string
		faults memory.Faults
		op     string
	}{
		{"orders", memory.Faults{SelectOrders: errors.New("timeout")}, "select_orders"},
		{"line items", memory.Faults{SelectLineItemRows: errors.New("timeout")}, "select_order_line_items"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := seededStore(t)
			s.InjectFaults(tt.faults)

			r, err := NewAggregator(s, Options{}).Compute(context.Background(), "acct")

			assert.Nil(t, r)
			var ae *apperrors.AggregationReadError
			require.ErrorAs(t, err, &ae)
			assert.Equal(t, "acct", ae.AccountID)
			var se *apperrors.StoreError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.op, se.Op)
			assert.Equal(t, apperrors.KindAggregationRead, apperrors.KindOf(err))
		})
	}
}

type mapCache struct{ data map[string]string }

func (m *mapCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	m.data[key] = string(value.([]byte))
	return nil
}
func (m *mapCache) Get(_ context.Context, key string) (string, error) { return m.data[key], nil }
func (m *mapCache) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}
func (m *mapCache) GenerateKey(op, key string) string { return op + ":" + key }

type countingComputer struct {
	next  Computer
	calls int
}

func (c *countingComputer) Compute(ctx context.Context, accountID string) (*Report, error) {
	c.calls++
	return c.next.Compute(ctx, accountID)
}

func TestCachedAggregator_servesFromCacheUntilInvalidated(t *testing.T) {
	counter := &countingComputer{next: NewAggregator(seededStore(t), Options{})}
	c := NewCachedAggregator(counter, &mapCache{data: map[string]string{}}, time.Minute)
	ctx := context.Background()

	first, err := c.Compute(ctx, "acct")
	require.NoError(t, err)
	second, err := c.Compute(ctx, "acct")
	require.NoError(t, err)

	assert.Equal(t, 1, counter.calls)
	assert.True(t, first.Summary.TotalRevenue.Equal(second.Summary.TotalRevenue))
	assert.Equal(t, first.SalesTrend[0].Date, second.SalesTrend[0].Date)

	require.NoError(t, c.Invalidate(ctx, "acct"))
	_, err = c.Compute(ctx, "acct")
	require.NoError(t, err)
	assert.Equal(t, 2, counter.calls)
}

func TestCachedAggregator_doesNotCacheFailures(t *testing.T) {
	s := seededStore(t)
	s.InjectFaults(memory.Faults{SelectOrders: errors.New("down")})
	cache := &mapCache{data: map[string]string{}}
	c := NewCachedAggregator(NewAggregator(s, Options{}), cache, time.Minute)

	_, err := c.Compute(context.Background(), "acct")

	require.Error(t, err)
	assert.Empty(t, cache.data)
}
