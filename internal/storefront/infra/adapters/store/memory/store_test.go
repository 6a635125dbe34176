package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kyellog-silog/rustique-cafe/internal/storefront/core/domain/entity"
	"github.com/Kyellog-silog/rustique-cafe/internal/storefront/core/ports"
)

func TestStore_roundTripAndJoin(t *testing.T) {
	s := New()
	ctx := context.Background()
	s.PutCategory(entity.Category{ID: "cat-1", Name: "Coffee", Color: "#6b4f3a"})
	s.PutMenuItem(entity.MenuItem{ID: "latte", Name: "Latte", Price: decimal.RequireFromString("4.50"), CategoryID: "cat-1"})
	s.PutMenuItem(entity.MenuItem{ID: "water", Name: "Water", Price: decimal.RequireFromString("1.00")})

	id, err := s.InsertOrder(ctx, entity.Order{ID: "o-1", AccountID: "acct", Status: entity.StatusConfirmed, CreatedAt: time.Now()})
	require.NoError(t, err)
	require.NoError(t, s.InsertOrderLineItems(ctx, id, []entity.OrderLineItem{
		entity.NewLineItem("", "", "latte", 2, decimal.RequireFromString("4.50")),
		entity.NewLineItem("", "", "water", 1, decimal.RequireFromString("1.00")),
		entity.NewLineItem("", "", "gone", 1, decimal.RequireFromString("3.00")),
	}))

	rows, err := s.SelectLineItemRows(ctx, "acct")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Coffee", rows[0].Category.Name)
	assert.Nil(t, rows[1].Category)
	assert.Nil(t, rows[2].MenuItem)

	other, err := s.SelectLineItemRows(ctx, "someone-else")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestStore_selectOrdersFiltersAndSortsNewestFirst(t *testing.T) {
	s := New()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, st := range []entity.OrderStatus{entity.StatusCompleted, entity.StatusConfirmed, entity.StatusCompleted} {
		_, err := s.InsertOrder(ctx, entity.Order{AccountID: "acct", Status: st, CreatedAt: base.Add(time.Duration(i) * time.Hour)})
		require.NoError(t, err)
	}

	all, err := s.SelectOrders(ctx, entity.OrderFilter{AccountID: "acct"})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[0].CreatedAt.After(all[1].CreatedAt))

	completed := entity.StatusCompleted
	done, err := s.SelectOrders(ctx, entity.OrderFilter{AccountID: "acct", Status: &completed})
	require.NoError(t, err)
	assert.Len(t, done, 2)
}

func TestStore_deleteOrderIsScopedToAccount(t *testing.T) {
	s := New()
	ctx := context.Background()
	id, err := s.InsertOrder(ctx, entity.Order{AccountID: "acct"})
	require.NoError(t, err)

	assert.ErrorIs(t, s.DeleteOrder(ctx, "intruder", id), ErrOrderNotFound)
	require.NoError(t, s.DeleteOrder(ctx, "acct", id))
	assert.Equal(t, 0, s.OrderCount())
}

func TestStore_injectedFaults(t *testing.T) {
	s := New()
	boom := errors.New("boom")
	s.InjectFaults(Faults{InsertOrder: boom})

	_, err := s.InsertOrder(context.Background(), entity.Order{AccountID: "acct"})
	assert.ErrorIs(t, err, boom)
}

func TestStore_catalogueIsScopedToAccount(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.InsertCategory(ctx, entity.Category{ID: "c2", AccountID: "acct", Name: "Tea", DisplayOrder: 2}))
	require.NoError(t, s.InsertCategory(ctx, entity.Category{ID: "c1", AccountID: "acct", Name: "Coffee", DisplayOrder: 1}))
	require.NoError(t, s.InsertCategory(ctx, entity.Category{ID: "cx", AccountID: "other", Name: "Other"}))
	require.NoError(t, s.InsertMenuItem(ctx, entity.MenuItem{ID: "latte", AccountID: "acct", Name: "Latte", CategoryID: "c1"}))

	cats, err := s.ListCategories(ctx, "acct")
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, "c1", cats[0].ID)

	assert.ErrorIs(t, s.UpdateMenuItem(ctx, entity.MenuItem{ID: "latte", AccountID: "other", Name: "Stolen"}), ports.ErrNotFound)
	assert.ErrorIs(t, s.DeleteMenuItem(ctx, "other", "latte"), ports.ErrNotFound)
	assert.ErrorIs(t, s.DeleteCategory(ctx, "acct", "cx"), ports.ErrNotFound)

	require.NoError(t, s.DeleteCategory(ctx, "acct", "c1"))
	items, err := s.ListMenuItems(ctx, "acct")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Latte", items[0].Name)
	assert.Empty(t, items[0].CategoryID)

	require.NoError(t, s.DeleteMenuItem(ctx, "acct", "latte"))
	items, err = s.ListMenuItems(ctx, "acct")
	require.NoError(t, err)
	assert.Empty(t, items)
}
