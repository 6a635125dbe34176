package checkout

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Kyellog-silog/rustique-cafe/internal/storefront/core/apperrors"
	"github.com/Kyellog-silog/rustique-cafe/internal/storefront/core/domain/entity"
)

// MaxItems caps the line items of a single order.
const MaxItems = 100

// validate checks in and normalises the order type. The first violation wins.
func validate(accountID string, in *PlaceOrderInput) error {
	if strings.TrimSpace(accountID) == "" {
		return apperrors.NewValidation("account_id", "is required")
	}
	if strings.TrimSpace(in.Customer.Name) == "" {
		return apperrors.NewValidation("customer.name", "is required")
	}
	if in.OrderType == "" {
		in.OrderType = entity.OrderTypeDineIn
	}
	if !in.OrderType.Valid() {
		return apperrors.NewValidation("order_type", fmt.Sprintf("unknown order type %q", in.OrderType))
	}
	if len(in.Items) == 0 {
		return apperrors.NewValidation("items", "must contain at least one item")
	}
	if len(in.Items) > MaxItems {
		return apperrors.NewValidation("items", fmt.Sprintf("must contain at most %d items", MaxItems))
	}
	for i, it := range in.Items {
		field := func(name string) string { return fmt.Sprintf("items[%d].%s", i, name) }
		if strings.TrimSpace(it.MenuItemID) == "" {
			return apperrors.NewValidation(field("menu_item_id"), "is required")
		}
		if it.Quantity < 1 {
			return apperrors.NewValidation(field("quantity"), "must be at least 1")
		}
		if it.UnitPrice.IsNegative() {
			return apperrors.NewValidation(field("unit_price"), "must not be negative")
		}
		if !it.UnitPrice.Equal(it.UnitPrice.Round(2)) {
			return apperrors.NewValidation(field("unit_price"), "must have at most 2 decimal places")
		}
	}
	return nil
}

// orderTotal sums unitPrice * quantity exactly.
func orderTotal(items []entity.OrderLineItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.LineTotal)
	}
	return total
}
