package ports

import (
	"context"

	"github.com/Kyellog-silog/rustique-cafe/internal/storefront/core/domain/entity"
)

// EventPublisher announces durable orders to downstream consumers (kitchen
// displays, reporting). Implementations must not block past ctx.
type EventPublisher interface {
	PublishOrderPlaced(ctx context.Context, order *entity.Order) error
}
