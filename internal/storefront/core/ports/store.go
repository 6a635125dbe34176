package ports

import (
	"context"

	"github.com/Kyellog-silog/rustique-cafe/internal/storefront/core/domain/entity"
)

// OrderStore is the persistence collaborator. Each call is individually
// atomic; there is no multi-call transaction.
type OrderStore interface {
	// InsertOrder persists the order row (without items) and returns its id.
	InsertOrder(ctx context.Context, order entity.Order) (string, error)
	InsertOrderLineItems(ctx context.Context, orderID string, items []entity.OrderLineItem) error
	// DeleteOrder removes an order owned by accountID. Used only as a
	// compensating action.
	DeleteOrder(ctx context.Context, accountID, orderID string) error
	SelectOrders(ctx context.Context, filter entity.OrderFilter) ([]entity.Order, error)
	SelectLineItemRows(ctx context.Context, accountID string) ([]entity.LineItemRow, error)
}

// AnalyticsSource is the read side analytics needs.
type AnalyticsSource interface {
	SelectOrders(ctx context.Context, filter entity.OrderFilter) ([]entity.Order, error)
	SelectLineItemRows(ctx context.Context, accountID string) ([]entity.LineItemRow, error)
}
