package events

import (
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Kyellog-silog/rustique-cafe/internal/storefront/core/domain/entity"
)

// OrderPlaced is the order.placed message body. Money travels as decimal
// strings.
type OrderPlaced struct {
	OrderID     string            `json:"order_id"`
	AccountID   string            `json:"account_id"`
	OrderType   string            `json:"order_type"`
	Status      string            `json:"status"`
	TotalAmount string            `json:"total_amount"`
	CreatedAt   time.Time         `json:"created_at"`
	Items       []OrderPlacedItem `json:"items"`
}

// OrderPlacedItem is one line of an OrderPlaced message.
type OrderPlacedItem struct {
	MenuItemID string `json:"menu_item_id"`
	Quantity   int    `json:"quantity"`
	UnitPrice  string `json:"unit_price"`
	LineTotal  string `json:"line_total"`
}

// NewOrderPlaced builds the message body for o with money as fixed
// two-decimal strings.
func NewOrderPlaced(o *entity.Order) OrderPlaced {
	msg := OrderPlaced{
		OrderID:     o.ID,
		AccountID:   o.AccountID,
		OrderType:   string(o.OrderType),
		Status:      string(o.Status),
		TotalAmount: o.TotalAmount.StringFixed(2),
		CreatedAt:   o.CreatedAt.UTC(),
		Items:       make([]OrderPlacedItem, 0, len(o.Items)),
	}
	for _, it := range o.Items {
		msg.Items = append(msg.Items, OrderPlacedItem{
			MenuItemID: it.MenuItemID,
			Quantity:   it.Quantity,
			UnitPrice:  it.UnitPrice.StringFixed(2),
			LineTotal:  it.LineTotal.StringFixed(2),
		})
	}
	return msg
}

// RoutingKey is order.placed.<order_type>, so kitchen and delivery consumers
// can bind to the types they handle.
func RoutingKey(o *entity.Order) string {
	return "order.placed." + string(o.OrderType)
}

// headerCarrier lets the OTel propagator write trace context into AMQP headers.
type headerCarrier amqp.Table

func (c headerCarrier) Get(key string) string {
	if v, ok := c[key].(string); ok {
		return v
	}
	return ""
}

func (c headerCarrier) Set(key, value string) {
	c[key] = value
}

func (c headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}
