package analytics

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kyellog-silog/rustique-cafe/internal/storefront/core/domain/entity"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func completedOn(day time.Time, total string) entity.Order {
	return entity.Order{AccountID: "acct", Status: entity.StatusCompleted, TotalAmount: d(total), CreatedAt: day}
}

func row(id, name, menuPrice string, qty int, lineTotal string, cat *entity.CategoryRef) entity.LineItemRow {
	return entity.LineItemRow{
		Quantity:  qty,
		UnitPrice: d(menuPrice),
		LineTotal: d(lineTotal),
		MenuItem:  &entity.MenuItemRef{ID: id, Name: name, Price: d(menuPrice)},
		Category:  cat,
	}
}

func TestCompute_emptyHistory(t *testing.T) {
	r := Compute(nil, nil, Options{})

	assert.True(t, r.Summary.TotalRevenue.IsZero())
	assert.True(t, r.Summary.AverageOrderValue.IsZero())
	assert.Zero(t, r.Summary.TotalOrders)
	assert.Zero(t, r.Summary.CompletedOrders)
	assert.NotNil(t, r.TopItems)
	assert.Empty(t, r.TopItems)
	assert.NotNil(t, r.CategoryPerformance)
	assert.Empty(t, r.CategoryPerformance)
	assert.NotNil(t, r.SalesTrend)
	assert.Empty(t, r.SalesTrend)

	b, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"topItems":[]`)
}

func TestCompute_summaryCountsAllOrdersButRevenueOnlyCompleted(t *testing.T) {
	now := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	orders := []entity.Order{
		completedOn(now, "10.00"),
		completedOn(now, "5.00"),
		{AccountID: "acct", Status: entity.StatusConfirmed, TotalAmount: d("100.00"), CreatedAt: now},
		{AccountID: "acct", Status: entity.StatusCancelled, TotalAmount: d("7.00"), CreatedAt: now},
	}

	s := Compute(orders, nil, Options{}).Summary

	assert.Equal(t, "15.00", s.TotalRevenue.StringFixed(2))
	assert.Equal(t, 4, s.TotalOrders)
	assert.Equal(t, 2, s.CompletedOrders)
	assert.Equal(t, "7.50", s.AverageOrderValue.StringFixed(2))
}

func TestCompute_noCompletedOrdersGuardsAverage(t *testing.T) {
	orders := []entity.Order{{AccountID: "acct", Status: entity.StatusPending, TotalAmount: d("3.00")}}

	s := Compute(orders, nil, Options{}).Summary

	assert.Equal(t, 1, s.TotalOrders)
	assert.True(t, s.AverageOrderValue.IsZero())
}

func TestCompute_topItemsRankByQuantity(t *testing.T) {
	rows := []entity.LineItemRow{
		row("a", "ItemA", "2.00", 3, "6.00", nil),
		row("b", "ItemB", "1.00", 5, "5.00", nil),
	}

	top := Compute(nil, rows, Options{}).TopItems

	require.Len(t, top, 2)
	assert.Equal(t, "ItemB", top[0].Name)
	assert.Equal(t, 5, top[0].Quantity)
	assert.Equal(t, "5.00", top[0].Revenue.StringFixed(2))
	assert.Equal(t, "ItemA", top[1].Name)
	assert.Equal(t, "6.00", top[1].Revenue.StringFixed(2))
}

func TestCompute_topItemsTruncatesAndKeepsDiscoveryOrderOnTies(t *testing.T) {
	var rows []entity.LineItemRow
	for i := 0; i < 7; i++ {
		rows = append(rows, row(fmt.Sprint(i), fmt.Sprintf("Item%d", i), "1.00", 2, "2.00", nil))
	}
	rows = append(rows, row("9", "Best", "1.00", 10, "10.00", nil))

	top := Compute(nil, rows, Options{}).TopItems

	require.Len(t, top, DefaultTopItems)
	assert.Equal(t, []string{"Best", "Item0", "Item1", "Item2", "Item3"},
		[]string{top[0].Name, top[1].Name, top[2].Name, top[3].Name, top[4].Name})
}

func TestCompute_topItemsRevenueUsesCurrentMenuPrice(t *testing.T) {
	r := row("a", "Mocha", "5.00", 2, "8.00", nil)
	r.UnitPrice = d("4.00")

	top := Compute(nil, []entity.LineItemRow{r}, Options{}).TopItems

	require.Len(t, top, 1)
	assert.Equal(t, "10.00", top[0].Revenue.StringFixed(2))
}

func TestCompute_topItemsSkipsDeletedMenuItems(t *testing.T) {
	rows := []entity.LineItemRow{{Quantity: 4, LineTotal: d("4.00")}}

	assert.Empty(t, Compute(nil, rows, Options{}).TopItems)
}

func TestCompute_nameCollisionDependsOnGrouping(t *testing.T) {
	rows := []entity.LineItemRow{
		row("hot", "Chai", "3.00", 1, "3.00", nil),
		row("iced", "Chai", "4.00", 2, "8.00", nil),
	}

	byName := Compute(nil, rows, Options{GroupItemsBy: GroupByName}).TopItems
	require.Len(t, byName, 1)
	assert.Equal(t, 3, byName[0].Quantity)
	assert.Equal(t, "11.00", byName[0].Revenue.StringFixed(2))
	assert.Empty(t, byName[0].MenuItemID)

	byID := Compute(nil, rows, Options{GroupItemsBy: GroupByID}).TopItems
	require.Len(t, byID, 2)
	assert.Equal(t, "iced", byID[0].MenuItemID)
	assert.Equal(t, "hot", byID[1].MenuItemID)
}

func TestCompute_categoryPerformanceExcludesUncategorised(t *testing.T) {
	coffee := &entity.CategoryRef{ID: "c1", Name: "Coffee", Color: "#6b4f3a"}
	pastry := &entity.CategoryRef{ID: "c2", Name: "Pastry", Color: "#f2c14e"}
	rows := []entity.LineItemRow{
		row("latte", "Latte", "4.50", 2, "9.00", coffee),
		row("croissant", "Croissant", "3.00", 1, "3.00", pastry),
		row("water", "Water", "1.00", 10, "10.00", nil),
		row("espresso", "Espresso", "2.50", 1, "2.50", coffee),
	}

	cats := Compute(nil, rows, Options{}).CategoryPerformance

	require.Len(t, cats, 2)
	assert.Equal(t, "Coffee", cats[0].Name)
	assert.Equal(t, "#6b4f3a", cats[0].Color)
	assert.Equal(t, 3, cats[0].Quantity)
	assert.Equal(t, "11.50", cats[0].Revenue.StringFixed(2))
	assert.Equal(t, "Pastry", cats[1].Name)
	for _, c := range cats {
		assert.NotEqual(t, "uncategorized", c.Name)
	}
}

func TestCompute_salesTrendKeepsLatestThirtyBuckets(t *testing.T) {
	start := time.Date(2026, 2, 1, 15, 0, 0, 0, time.UTC)
	var orders []entity.Order
	// Insert newest first to make sure sorting is not incidental.
	for i := 34; i >= 0; i-- {
		orders = append(orders, completedOn(start.AddDate(0, 0, i*2), "12.00"))
	}

	trend := Compute(orders, nil, Options{}).SalesTrend

	require.Len(t, trend, 30)
	assert.Equal(t, start.AddDate(0, 0, 5*2).Format("2006-01-02"), trend[0].Date)
	assert.Equal(t, start.AddDate(0, 0, 34*2).Format("2006-01-02"), trend[29].Date)
	for i := 1; i < len(trend); i++ {
		assert.Less(t, trend[i-1].Date, trend[i].Date)
	}
	assert.Equal(t, 1, trend[0].Orders)
	assert.Equal(t, "12.00", trend[0].Revenue.StringFixed(2))
}

func TestCompute_salesTrendBucketsByUTCDateAndSkipsNonCompleted(t *testing.T) {
	tz := time.FixedZone("UTC+9", 9*3600)
	orders := []entity.Order{
		// 2026-03-02 07:00 local is 2026-03-01 22:00 UTC.
		completedOn(time.Date(2026, 3, 2, 7, 0, 0, 0, tz), "4.00"),
		completedOn(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), "6.00"),
		{AccountID: "acct", Status: entity.StatusReady, TotalAmount: d("50.00"), CreatedAt: time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)},
	}

	trend := Compute(orders, nil, Options{}).SalesTrend

	require.Len(t, trend, 1)
	assert.Equal(t, "2026-03-01", trend[0].Date)
	assert.Equal(t, 2, trend[0].Orders)
	assert.Equal(t, "10.00", trend[0].Revenue.StringFixed(2))
}

func TestParseGroupBy(t *testing.T) {
	assert.Equal(t, GroupByID, ParseGroupBy("id"))
	assert.Equal(t, GroupByName, ParseGroupBy("name"))
	assert.Equal(t, GroupByName, ParseGroupBy(""))
}
