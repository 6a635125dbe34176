package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderType is how the customer receives the order.
type OrderType string

const (
	OrderTypeDineIn   OrderType = "dine-in"
	OrderTypeTakeout  OrderType = "takeout"
	OrderTypeDelivery OrderType = "delivery"
)

// Valid reports whether t is one of the known order types.
func (t OrderType) Valid() bool {
	switch t {
	case OrderTypeDineIn, OrderTypeTakeout, OrderTypeDelivery:
		return true
	}
	return false
}

// OrderStatus follows pending -> confirmed -> preparing -> ready -> completed,
// with cancelled reachable from any non-terminal state.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusConfirmed OrderStatus = "confirmed"
	StatusPreparing OrderStatus = "preparing"
	StatusReady     OrderStatus = "ready"
	StatusCompleted OrderStatus = "completed"
	StatusCancelled OrderStatus = "cancelled"
)

// Valid reports whether s is one of the known statuses.
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusPreparing, StatusReady, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal statuses are kept for analytics and never transition again.
func (s OrderStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Customer is the contact captured at checkout. Only Name is required.
type Customer struct {
	Name  string
	Email string
	Phone string
}

// Order is owned by the account that received it. TotalAmount always equals
// the sum of its line items' LineTotal at creation time.
type Order struct {
	ID          string
	AccountID   string
	Customer    Customer
	OrderType   OrderType
	Status      OrderStatus
	TotalAmount decimal.Decimal
	Notes       string
	CreatedAt   time.Time
	Items       []OrderLineItem
}

// OrderLineItem references a menu item by id. UnitPrice is the price snapshot
// taken when the order was placed and is never re-read from the menu.
type OrderLineItem struct {
	ID         string
	OrderID    string
	MenuItemID string
	Quantity   int
	UnitPrice  decimal.Decimal
	LineTotal  decimal.Decimal
}

// NewLineItem builds a line item with LineTotal = quantity * unitPrice.
func NewLineItem(id, orderID, menuItemID string, quantity int, unitPrice decimal.Decimal) OrderLineItem {
	return OrderLineItem{
		ID:         id,
		OrderID:    orderID,
		MenuItemID: menuItemID,
		Quantity:   quantity,
		UnitPrice:  unitPrice,
		LineTotal:  unitPrice.Mul(decimal.NewFromInt(int64(quantity))),
	}
}

// OrderFilter scopes order reads to one account, optionally by status.
type OrderFilter struct {
	AccountID string
	Status    *OrderStatus
}

// Matches reports whether o passes the filter.
func (f OrderFilter) Matches(o Order) bool {
	if o.AccountID != f.AccountID {
		return false
	}
	return f.Status == nil || o.Status == *f.Status
}
