package httpx

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Kyellog-silog/rustique-cafe/internal/coordinator/sagalog"
	"github.com/Kyellog-silog/rustique-cafe/internal/storefront/core/analytics"
	"github.com/Kyellog-silog/rustique-cafe/internal/storefront/core/apperrors"
	"github.com/Kyellog-silog/rustique-cafe/internal/storefront/core/catalog"
	"github.com/Kyellog-silog/rustique-cafe/internal/storefront/core/checkout"
	"github.com/Kyellog-silog/rustique-cafe/internal/storefront/core/domain/entity"
)

// CreateOrderRequest is the cart payload. unit_price accepts a JSON number or
// a decimal string and must be present on every item.
type CreateOrderRequest struct {
	CustomerName  string               `json:"customer_name"`
	CustomerEmail string               `json:"customer_email"`
	CustomerPhone string               `json:"customer_phone"`
	OrderType     string               `json:"order_type"`
	Notes         string               `json:"notes"`
	Items         []CreateOrderItemDTO `json:"items"`
}

// CreateOrderItemDTO is one cart line. A missing or null unit_price leaves
// UnitPrice invalid rather than zero.
type CreateOrderItemDTO struct {
	MenuItemID string              `json:"menu_item_id"`
	UnitPrice  decimal.NullDecimal `json:"unit_price"`
	Quantity   int                 `json:"quantity"`
}

func (r CreateOrderRequest) toInput() (checkout.PlaceOrderInput, error) {
	in := checkout.PlaceOrderInput{
		Customer: entity.Customer{
			Name:  r.CustomerName,
			Email: r.CustomerEmail,
			Phone: r.CustomerPhone,
		},
		OrderType: entity.OrderType(r.OrderType),
		Notes:     r.Notes,
		Items:     make([]checkout.ItemInput, len(r.Items)),
	}
	for i, it := range r.Items {
		if !it.UnitPrice.Valid {
			return checkout.PlaceOrderInput{}, apperrors.NewValidation(fmt.Sprintf("items[%d].unit_price", i), "is required")
		}
		in.Items[i] = checkout.ItemInput{MenuItemID: it.MenuItemID, UnitPrice: it.UnitPrice.Decimal, Quantity: it.Quantity}
	}
	return in, nil
}

// MenuItemRequest creates or replaces a menu item. price is required.
type MenuItemRequest struct {
	Name        string              `json:"name"`
	Price       decimal.NullDecimal `json:"price"`
	CategoryID  string              `json:"category_id"`
	IsAvailable *bool               `json:"is_available"`
}

func (r MenuItemRequest) toInput() (catalog.MenuItemInput, error) {
	if !r.Price.Valid {
		return catalog.MenuItemInput{}, apperrors.NewValidation("price", "is required")
	}
	in := catalog.MenuItemInput{Name: r.Name, Price: r.Price.Decimal, CategoryID: r.CategoryID, IsAvailable: true}
	if r.IsAvailable != nil {
		in.IsAvailable = *r.IsAvailable
	}
	return in, nil
}

type CategoryRequest struct {
	Name         string `json:"name"`
	Color        string `json:"color"`
	DisplayOrder int    `json:"display_order"`
}

func (r CategoryRequest) toInput() catalog.CategoryInput {
	return catalog.CategoryInput{Name: r.Name, Color: r.Color, DisplayOrder: r.DisplayOrder}
}

// Money leaves the service as strings with exactly two decimals.
type OrderResponse struct {
	ID            string              `json:"id"`
	Status        string              `json:"status"`
	OrderType     string              `json:"order_type"`
	CustomerName  string              `json:"customer_name"`
	CustomerEmail string              `json:"customer_email,omitempty"`
	CustomerPhone string              `json:"customer_phone,omitempty"`
	TotalAmount   string              `json:"total_amount"`
	Notes         string              `json:"notes,omitempty"`
	Items         []OrderItemResponse `json:"items,omitempty"`
	CreatedAt     string              `json:"created_at"`
}

// OrderItemResponse is one line item. Name, MenuPrice and Category come from
// the current menu and are empty once the item has been deleted.
type OrderItemResponse struct {
	ID         string `json:"id"`
	MenuItemID string `json:"menu_item_id"`
	Name       string `json:"name,omitempty"`
	MenuPrice  string `json:"menu_price,omitempty"`
	Category   string `json:"category,omitempty"`
	Quantity   int    `json:"quantity"`
	UnitPrice  string `json:"unit_price"`
	LineTotal  string `json:"line_total"`
}

type MenuItemResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Price       string `json:"price"`
	CategoryID  string `json:"category_id,omitempty"`
	IsAvailable bool   `json:"is_available"`
}

type CategoryResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Color        string `json:"color"`
	DisplayOrder int    `json:"display_order"`
}

// MenuSectionResponse is one category of the public menu.
type MenuSectionResponse struct {
	CategoryResponse
	Items []MenuItemResponse `json:"items"`
}

// AnalyticsResponse keeps the camelCase keys the admin dashboard reads.
type AnalyticsResponse struct {
	Summary             SummaryResponse         `json:"summary"`
	TopItems            []ItemSalesResponse     `json:"topItems"`
	CategoryPerformance []CategorySalesResponse `json:"categoryPerformance"`
	SalesTrend          []DailySalesResponse    `json:"salesTrend"`
}

type SummaryResponse struct {
	TotalRevenue      string `json:"totalRevenue"`
	TotalOrders       int    `json:"totalOrders"`
	CompletedOrders   int    `json:"completedOrders"`
	AverageOrderValue string `json:"averageOrderValue"`
}

type ItemSalesResponse struct {
	MenuItemID string `json:"menuItemId,omitempty"`
	Name       string `json:"name"`
	Quantity   int    `json:"quantity"`
	Revenue    string `json:"revenue"`
}

type CategorySalesResponse struct {
	CategoryID string `json:"categoryId"`
	Name       string `json:"name"`
	Color      string `json:"color"`
	Quantity   int    `json:"quantity"`
	Revenue    string `json:"revenue"`
}

type DailySalesResponse struct {
	Date    string `json:"date"`
	Revenue string `json:"revenue"`
	Orders  int    `json:"orders"`
}

// CheckoutLogResponse is the latest checkout log entry of one order.
type CheckoutLogResponse struct {
	OrderID   string   `json:"order_id"`
	Status    string   `json:"status"`
	Step      string   `json:"step,omitempty"`
	Errors    []string `json:"errors"`
	TraceID   string   `json:"trace_id,omitempty"`
	SpanID    string   `json:"span_id,omitempty"`
	UpdatedAt string   `json:"updated_at"`
}

// ErrorResponse is the body of every non-2xx answer. Error is a stable
// machine-readable code.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Field   string `json:"field,omitempty"`
	OrderID string `json:"order_id,omitempty"`
}

func money(d decimal.Decimal) string { return d.StringFixed(2) }

func mapOrderToResponse(o *entity.Order) OrderResponse {
	resp := OrderResponse{
		ID:            o.ID,
		Status:        string(o.Status),
		OrderType:     string(o.OrderType),
		CustomerName:  o.Customer.Name,
		CustomerEmail: o.Customer.Email,
		CustomerPhone: o.Customer.Phone,
		TotalAmount:   money(o.TotalAmount),
		Notes:         o.Notes,
		CreatedAt:     o.CreatedAt.UTC().Format(time.RFC3339),
	}
	for _, it := range o.Items {
		resp.Items = append(resp.Items, OrderItemResponse{
			ID:         it.ID,
			MenuItemID: it.MenuItemID,
			Quantity:   it.Quantity,
			UnitPrice:  money(it.UnitPrice),
			LineTotal:  money(it.LineTotal),
		})
	}
	return resp
}

// attachItems fills each order's Items from joined line item rows.
func attachItems(orders []OrderResponse, rows []entity.LineItemRow) {
	byOrder := make(map[string][]OrderItemResponse, len(orders))
	for _, r := range rows {
		item := OrderItemResponse{
			ID:         r.ID,
			MenuItemID: r.MenuItemID,
			Quantity:   r.Quantity,
			UnitPrice:  money(r.UnitPrice),
			LineTotal:  money(r.LineTotal),
		}
		if r.MenuItem != nil {
			item.Name = r.MenuItem.Name
			item.MenuPrice = money(r.MenuItem.Price)
		}
		if r.Category != nil {
			item.Category = r.Category.Name
		}
		byOrder[r.OrderID] = append(byOrder[r.OrderID], item)
	}
	for i := range orders {
		orders[i].Items = byOrder[orders[i].ID]
	}
}

func mapMenuItem(m *entity.MenuItem) MenuItemResponse {
	return MenuItemResponse{
		ID:          m.ID,
		Name:        m.Name,
		Price:       money(m.Price),
		CategoryID:  m.CategoryID,
		IsAvailable: m.IsAvailable,
	}
}

func mapCategory(c *entity.Category) CategoryResponse {
	return CategoryResponse{ID: c.ID, Name: c.Name, Color: c.Color, DisplayOrder: c.DisplayOrder}
}

func mapMenu(sections []catalog.Section) []MenuSectionResponse {
	out := make([]MenuSectionResponse, len(sections))
	for i := range sections {
		out[i].CategoryResponse = mapCategory(&sections[i].Category)
		out[i].Items = make([]MenuItemResponse, len(sections[i].Items))
		for j := range sections[i].Items {
			out[i].Items[j] = mapMenuItem(&sections[i].Items[j])
		}
	}
	return out
}

func mapReportToResponse(r *analytics.Report) AnalyticsResponse {
	resp := AnalyticsResponse{
		Summary: SummaryResponse{
			TotalRevenue:      money(r.Summary.TotalRevenue),
			TotalOrders:       r.Summary.TotalOrders,
			CompletedOrders:   r.Summary.CompletedOrders,
			AverageOrderValue: money(r.Summary.AverageOrderValue),
		},
		TopItems:            make([]ItemSalesResponse, 0, len(r.TopItems)),
		CategoryPerformance: make([]CategorySalesResponse, 0, len(r.CategoryPerformance)),
		SalesTrend:          make([]DailySalesResponse, 0, len(r.SalesTrend)),
	}
	for _, it := range r.TopItems {
		resp.TopItems = append(resp.TopItems, ItemSalesResponse{
			MenuItemID: it.MenuItemID, Name: it.Name, Quantity: it.Quantity, Revenue: money(it.Revenue),
		})
	}
	for _, c := range r.CategoryPerformance {
		resp.CategoryPerformance = append(resp.CategoryPerformance, CategorySalesResponse{
			CategoryID: c.CategoryID, Name: c.Name, Color: c.Color, Quantity: c.Quantity, Revenue: money(c.Revenue),
		})
	}
	for _, d := range r.SalesTrend {
		resp.SalesTrend = append(resp.SalesTrend, DailySalesResponse{
			Date: d.Date, Revenue: money(d.Revenue), Orders: d.Orders,
		})
	}
	return resp
}

func mapCheckoutLog(l *sagalog.SagaLog) CheckoutLogResponse {
	errs := l.Errors()
	if errs == nil {
		errs = []string{}
	}
	return CheckoutLogResponse{
		OrderID:   l.SagaID,
		Status:    string(l.Status),
		Step:      l.CurrentStep,
		Errors:    errs,
		TraceID:   l.TraceID,
		SpanID:    l.SpanID,
		UpdatedAt: l.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}
