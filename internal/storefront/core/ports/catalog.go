package ports

import (
	"context"
	"errors"

	"github.com/Kyellog-silog/rustique-cafe/internal/storefront/core/domain/entity"
)

// ErrNotFound is returned by CatalogStore when no row matches both the id and
// the account.
var ErrNotFound = errors.New("not found")

// CatalogStore owns the menu and its categories. Every mutation is scoped to
// the entity's AccountID; rows of other accounts are never touched.
type CatalogStore interface {
	// ListCategories returns the account's categories by display order, then name.
	ListCategories(ctx context.Context, accountID string) ([]entity.Category, error)
	InsertCategory(ctx context.Context, c entity.Category) error
	UpdateCategory(ctx context.Context, c entity.Category) error
	// DeleteCategory leaves the category's menu items uncategorised.
	DeleteCategory(ctx context.Context, accountID, id string) error

	// ListMenuItems returns the account's menu items by name.
	ListMenuItems(ctx context.Context, accountID string) ([]entity.MenuItem, error)
	InsertMenuItem(ctx context.Context, m entity.MenuItem) error
	UpdateMenuItem(ctx context.Context, m entity.MenuItem) error
	DeleteMenuItem(ctx context.Context, accountID, id string) error
}
