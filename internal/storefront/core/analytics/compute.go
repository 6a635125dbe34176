// Package analytics derives the sales dashboard from the order history:
// revenue summary, top items, category rollups and a daily trend.
package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/Kyellog-silog/rustique-cafe/internal/storefront/core/domain/entity"
)

const (
	DefaultTopItems  = 5
	DefaultTrendDays = 30
	trendDateLayout  = "2006-01-02"
)

// GroupBy selects the top-items grouping key.
type GroupBy int

const (
	// GroupByName merges distinct menu items that share a display name.
	GroupByName GroupBy = iota
	GroupByID
)

// ParseGroupBy maps "id" to GroupByID; anything else groups by name.
func ParseGroupBy(s string) GroupBy {
	if s == "id" {
		return GroupByID
	}
	return GroupByName
}

// Options tunes report computation. The zero value groups top items by name.
type Options struct {
	GroupItemsBy GroupBy
	TopItems     int
	TrendDays    int
}

func (o Options) withDefaults() Options {
	if o.TopItems <= 0 {
		o.TopItems = DefaultTopItems
	}
	if o.TrendDays <= 0 {
		o.TrendDays = DefaultTrendDays
	}
	return o
}

// Summary is the headline block of a report. Revenue counts completed
// orders only.
type Summary struct {
	TotalRevenue      decimal.Decimal `json:"totalRevenue"`
	TotalOrders       int             `json:"totalOrders"`
	CompletedOrders   int             `json:"completedOrders"`
	AverageOrderValue decimal.Decimal `json:"averageOrderValue"`
}

// ItemSales is one row of the top items list.
type ItemSales struct {
	MenuItemID string          `json:"menuItemId,omitempty"`
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	Revenue    decimal.Decimal `json:"revenue"`
}

// CategorySales aggregates line items by their menu item's category.
type CategorySales struct {
	CategoryID string          `json:"categoryId"`
	Name       string          `json:"name"`
	Color      string          `json:"color"`
	Quantity   int             `json:"quantity"`
	Revenue    decimal.Decimal `json:"revenue"`
}

// DailySales is one UTC day of completed sales.
type DailySales struct {
	Date    string          `json:"date"`
	Revenue decimal.Decimal `json:"revenue"`
	Orders  int             `json:"orders"`
}

// Report is never partially populated: the lists are empty, not nil, when
// there is no data.
type Report struct {
	Summary             Summary         `json:"summary"`
	TopItems            []ItemSales     `json:"topItems"`
	CategoryPerformance []CategorySales `json:"categoryPerformance"`
	SalesTrend          []DailySales    `json:"salesTrend"`
}

// Compute is a pure function of the fetched rows. orders may hold any
// status; revenue only counts completed ones.
func Compute(orders []entity.Order, rows []entity.LineItemRow, opts Options) *Report {
	opts = opts.withDefaults()
	return &Report{
		Summary:             summarize(orders),
		TopItems:            topItems(rows, opts.GroupItemsBy, opts.TopItems),
		CategoryPerformance: categoryPerformance(rows),
		SalesTrend:          salesTrend(orders, opts.TrendDays),
	}
}

func summarize(orders []entity.Order) Summary {
	s := Summary{TotalRevenue: decimal.Zero, AverageOrderValue: decimal.Zero, TotalOrders: len(orders)}
	for _, o := range orders {
		if o.Status != entity.StatusCompleted {
			continue
		}
		s.CompletedOrders++
		s.TotalRevenue = s.TotalRevenue.Add(o.TotalAmount)
	}
	if s.CompletedOrders > 0 {
		s.AverageOrderValue = s.TotalRevenue.Div(decimal.NewFromInt(int64(s.CompletedOrders)))
	}
	return s
}

type itemKey string

// topItems ranks by quantity, ties kept in discovery order. Revenue uses the
// menu item's current price, not the line item snapshot. Rows whose menu
// item no longer exists are skipped.
func topItems(rows []entity.LineItemRow, by GroupBy, limit int) []ItemSales {
	acc := make(map[itemKey]*ItemSales)
	var order []itemKey
	for _, r := range rows {
		if r.MenuItem == nil {
			continue
		}
		key := itemKey(r.MenuItem.Name)
		if by == GroupByID {
			key = itemKey(r.MenuItem.ID)
		}
		it, ok := acc[key]
		if !ok {
			it = &ItemSales{Name: r.MenuItem.Name, Revenue: decimal.Zero}
			if by == GroupByID {
				it.MenuItemID = r.MenuItem.ID
			}
			acc[key] = it
			order = append(order, key)
		}
		it.Quantity += r.Quantity
		it.Revenue = it.Revenue.Add(r.MenuItem.Price.Mul(decimal.NewFromInt(int64(r.Quantity))))
	}

	out := make([]ItemSales, 0, len(order))
	for _, k := range order {
		out = append(out, *acc[k])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Quantity > out[j].Quantity })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

type categoryKey string

// categoryPerformance excludes uncategorised items entirely. Revenue is the
// sum of line totals.
func categoryPerformance(rows []entity.LineItemRow) []CategorySales {
	acc := make(map[categoryKey]*CategorySales)
	var order []categoryKey
	for _, r := range rows {
		if r.Category == nil {
			continue
		}
		key := categoryKey(r.Category.ID)
		c, ok := acc[key]
		if !ok {
			c = &CategorySales{CategoryID: r.Category.ID, Name: r.Category.Name, Color: r.Category.Color, Revenue: decimal.Zero}
			acc[key] = c
			order = append(order, key)
		}
		c.Quantity += r.Quantity
		c.Revenue = c.Revenue.Add(r.LineTotal)
	}

	out := make([]CategorySales, 0, len(order))
	for _, k := range order {
		out = append(out, *acc[k])
	}
	return out
}

// salesTrend buckets completed orders by UTC date and keeps the latest days
// buckets. Days without orders have no bucket.
func salesTrend(orders []entity.Order, days int) []DailySales {
	acc := make(map[string]*DailySales)
	for _, o := range orders {
		if o.Status != entity.StatusCompleted {
			continue
		}
		date := o.CreatedAt.UTC().Format(trendDateLayout)
		d, ok := acc[date]
		if !ok {
			d = &DailySales{Date: date, Revenue: decimal.Zero}
			acc[date] = d
		}
		d.Revenue = d.Revenue.Add(o.TotalAmount)
		d.Orders++
	}

	out := make([]DailySales, 0, len(acc))
	for _, d := range acc {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	if len(out) > days {
		out = out[len(out)-days:]
	}
	return out
}
