package entity

import "github.com/shopspring/decimal"

// MenuItem is owned by one account. Orders reference it by id and snapshot
// its price, so edits never rewrite order history.
type MenuItem struct {
	ID          string
	AccountID   string
	Name        string
	Price       decimal.Decimal
	CategoryID  string
	IsAvailable bool
}

// Category groups menu items; lower DisplayOrder sorts first.
type Category struct {
	ID           string
	AccountID    string
	Name         string
	Color        string
	DisplayOrder int
}

// MenuItemRef is the menu item side of a joined line item row.
type MenuItemRef struct {
	ID         string
	Name       string
	Price      decimal.Decimal
	CategoryID string
}

// CategoryRef is the category side of a joined line item row.
type CategoryRef struct {
	ID    string
	Name  string
	Color string
}

// LineItemRow is one order line item joined to its menu item and category.
// MenuItem is nil when the item has since been deleted; Category is nil when
// the item has no category.
type LineItemRow struct {
	ID         string
	OrderID    string
	MenuItemID string
	Quantity   int
	UnitPrice  decimal.Decimal
	LineTotal  decimal.Decimal
	MenuItem   *MenuItemRef
	Category   *CategoryRef
}
