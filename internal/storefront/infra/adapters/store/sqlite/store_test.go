package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kyellog-silog/rustique-cafe/internal/storefront/core/domain/entity"
	"github.com/Kyellog-silog/rustique-cafe/internal/storefront/core/ports"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "storefront.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestStore_orderRoundTripKeepsExactMoney(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	created := time.Date(2026, 3, 1, 9, 30, 0, 125, time.UTC)

	id, err := s.InsertOrder(ctx, entity.Order{
		ID:          "o-1",
		AccountID:   "acct",
		Customer:    entity.Customer{Name: "Jane", Email: "jane@example.com"},
		OrderType:   entity.OrderTypeTakeout,
		Status:      entity.StatusConfirmed,
		TotalAmount: dec("0.30"),
		Notes:       "no sugar",
		CreatedAt:   created,
	})
	require.NoError(t, err)
	assert.Equal(t, "o-1", id)

	got, err := s.SelectOrders(ctx, entity.OrderFilter{AccountID: "acct"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, dec("0.30").Equal(got[0].TotalAmount))
	assert.Equal(t, entity.OrderTypeTakeout, got[0].OrderType)
	assert.Equal(t, "jane@example.com", got[0].Customer.Email)
	assert.True(t, created.Equal(got[0].CreatedAt))
}

func TestStore_insertOrderGeneratesIDWhenMissing(t *testing.T) {
	s := openTestStore(t)
	id, err := s.InsertOrder(context.Background(), entity.Order{AccountID: "acct", CreatedAt: time.Now()})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}

func TestStore_lineItemRowsJoinMenuAndCategory(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.InsertCategory(ctx, entity.Category{ID: "cat-1", AccountID: "acct", Name: "Coffee", Color: "#6b4f3a"}))
	require.NoError(t, s.InsertMenuItem(ctx, entity.MenuItem{ID: "latte", AccountID: "acct", Name: "Latte", Price: dec("4.50"), CategoryID: "cat-1"}))
	require.NoError(t, s.InsertMenuItem(ctx, entity.MenuItem{ID: "water", AccountID: "acct", Name: "Water", Price: dec("1.00")}))
	require.NoError(t, s.InsertMenuItem(ctx, entity.MenuItem{ID: "gone", AccountID: "acct", Name: "Gone", Price: dec("3.00")}))

	id, err := s.InsertOrder(ctx, entity.Order{ID: "o-1", AccountID: "acct", CreatedAt: time.Now()})
	require.NoError(t, err)
	require.NoError(t, s.InsertOrderLineItems(ctx, id, []entity.OrderLineItem{
		entity.NewLineItem("", id, "latte", 2, dec("4.50")),
		entity.NewLineItem("", id, "water", 1, dec("1.00")),
		entity.NewLineItem("", id, "gone", 1, dec("3.00")),
	}))
	require.NoError(t, s.DeleteMenuItem(ctx, "acct", "gone"))

	rows, err := s.SelectLineItemRows(ctx, "acct")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	require.NotNil(t, rows[0].MenuItem)
	assert.Equal(t, "Latte", rows[0].MenuItem.Name)
	assert.Equal(t, "latte", rows[0].MenuItemID)
	assert.Equal(t, id, rows[0].OrderID)
	assert.NotEmpty(t, rows[0].ID)
	require.NotNil(t, rows[0].Category)
	assert.Equal(t, "Coffee", rows[0].Category.Name)
	assert.True(t, dec("9.00").Equal(rows[0].LineTotal))

	require.NotNil(t, rows[1].MenuItem)
	assert.Nil(t, rows[1].Category)

	assert.Nil(t, rows[2].MenuItem)
	assert.Nil(t, rows[2].Category)
	assert.Equal(t, "gone", rows[2].MenuItemID)
	assert.True(t, dec("3.00").Equal(rows[2].UnitPrice))

	other, err := s.SelectLineItemRows(ctx, "someone-else")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestStore_lineItemBatchIsAtomic(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	id, err := s.InsertOrder(ctx, entity.Order{ID: "o-1", AccountID: "acct", CreatedAt: time.Now()})
	require.NoError(t, err)

	err = s.InsertOrderLineItems(ctx, id, []entity.OrderLineItem{
		entity.NewLineItem("", id, "latte", 1, dec("4.50")),
		entity.NewLineItem("", id, "latte", 0, dec("4.50")),
	})
	require.Error(t, err)

	rows, err := s.SelectLineItemRows(ctx, "acct")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestStore_deleteOrderCascadesAndIsScoped(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	id, err := s.InsertOrder(ctx, entity.Order{ID: "o-1", AccountID: "acct", CreatedAt: time.Now()})
	require.NoError(t, err)
	require.NoError(t, s.InsertOrderLineItems(ctx, id, []entity.OrderLineItem{
		entity.NewLineItem("", id, "latte", 1, dec("4.50")),
	}))

	assert.ErrorIs(t, s.DeleteOrder(ctx, "intruder", id), ErrOrderNotFound)
	require.NoError(t, s.DeleteOrder(ctx, "acct", id))

	orders, err := s.SelectOrders(ctx, entity.OrderFilter{AccountID: "acct"})
	require.NoError(t, err)
	assert.Empty(t, orders)
	rows, err := s.SelectLineItemRows(ctx, "acct")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestStore_selectOrdersByStatusNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	statuses := []entity.OrderStatus{entity.StatusCompleted, entity.StatusConfirmed, entity.StatusCompleted}
	for i, st := range statuses {
		_, err := s.InsertOrder(ctx, entity.Order{
			AccountID: "acct",
			Status:    st,
			CreatedAt: base.Add(time.Duration(i) * 500 * time.Millisecond),
		})
		require.NoError(t, err)
	}

	all, err := s.SelectOrders(ctx, entity.OrderFilter{AccountID: "acct"})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[0].CreatedAt.After(all[1].CreatedAt))
	assert.True(t, all[1].CreatedAt.After(all[2].CreatedAt))

	completed := entity.StatusCompleted
	done, err := s.SelectOrders(ctx, entity.OrderFilter{AccountID: "acct", Status: &completed})
	require.NoError(t, err)
	assert.Len(t, done, 2)
}

func TestStore_catalogueMutationsAreScopedToAccount(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.InsertCategory(ctx, entity.Category{ID: "tea", AccountID: "acct", Name: "Tea", DisplayOrder: 2}))
	require.NoError(t, s.InsertCategory(ctx, entity.Category{ID: "coffee", AccountID: "acct", Name: "Coffee", DisplayOrder: 1}))
	require.NoError(t, s.InsertMenuItem(ctx, entity.MenuItem{ID: "latte", AccountID: "acct", Name: "Latte", Price: dec("4.50"), CategoryID: "coffee", IsAvailable: true}))

	assert.ErrorIs(t, s.UpdateMenuItem(ctx, entity.MenuItem{ID: "latte", AccountID: "intruder", Name: "Mine", Price: dec("0.01")}), ports.ErrNotFound)
	assert.ErrorIs(t, s.DeleteMenuItem(ctx, "intruder", "latte"), ports.ErrNotFound)
	assert.ErrorIs(t, s.UpdateCategory(ctx, entity.Category{ID: "tea", AccountID: "intruder", Name: "x"}), ports.ErrNotFound)
	assert.ErrorIs(t, s.DeleteCategory(ctx, "acct", "missing"), ports.ErrNotFound)

	require.NoError(t, s.UpdateMenuItem(ctx, entity.MenuItem{ID: "latte", AccountID: "acct", Name: "Oat Latte", Price: dec("5.25"), CategoryID: "coffee"}))
	cats, err := s.ListCategories(ctx, "acct")
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, "coffee", cats[0].ID)

	require.NoError(t, s.DeleteCategory(ctx, "acct", "coffee"))
	items, err := s.ListMenuItems(ctx, "acct")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Oat Latte", items[0].Name)
	assert.True(t, dec("5.25").Equal(items[0].Price))
	assert.False(t, items[0].IsAvailable)
	assert.Empty(t, items[0].CategoryID)

	none, err := s.ListMenuItems(ctx, "intruder")
	require.NoError(t, err)
	assert.Empty(t, none)
}
