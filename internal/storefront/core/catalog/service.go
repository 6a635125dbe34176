// Package catalog manages an account's menu items and categories and builds
// the public menu from them.
package catalog

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Kyellog-silog/rustique-cafe/internal/storefront/core/apperrors"
	"github.com/Kyellog-silog/rustique-cafe/internal/storefront/core/domain/entity"
	"github.com/Kyellog-silog/rustique-cafe/internal/storefront/core/ports"
)

// Invalidator drops derived data for an account after its catalogue changes.
// Analytics joins line items to current menu names, so edits show up there.
type Invalidator interface {
	Invalidate(ctx context.Context, accountID string) error
}

// MenuItemInput is the editable part of a menu item.
type MenuItemInput struct {
	Name        string
	Price       decimal.Decimal
	CategoryID  string
	IsAvailable bool
}

// CategoryInput is the editable part of a category.
type CategoryInput struct {
	Name         string
	Color        string
	DisplayOrder int
}

// Section is one category of the public menu with its available items.
type Section struct {
	Category entity.Category
	Items    []entity.MenuItem
}

// Service validates catalogue edits and applies them to a ports.CatalogStore.
type Service struct {
	store       ports.CatalogStore
	invalidator Invalidator
}

// NewService returns a Service over store. invalidator may be nil.
func NewService(store ports.CatalogStore, invalidator Invalidator) *Service {
	return &Service{store: store, invalidator: invalidator}
}

func (s *Service) ListMenuItems(ctx context.Context, accountID string) ([]entity.MenuItem, error) {
	items, err := s.store.ListMenuItems(ctx, accountID)
	if err != nil {
		return nil, storeErr(ctx, "list_menu_items", "", "", err)
	}
	return items, nil
}

func (s *Service) ListCategories(ctx context.Context, accountID string) ([]entity.Category, error) {
	cats, err := s.store.ListCategories(ctx, accountID)
	if err != nil {
		return nil, storeErr(ctx, "list_categories", "", "", err)
	}
	return cats, nil
}

// Menu returns the account's available, categorised items grouped by
// category in display order. Empty categories are left out.
func (s *Service) Menu(ctx context.Context, accountID string) ([]Section, error) {
	cats, err := s.ListCategories(ctx, accountID)
	if err != nil {
		return nil, err
	}
	items, err := s.ListMenuItems(ctx, accountID)
	if err != nil {
		return nil, err
	}

	byCategory := make(map[string][]entity.MenuItem, len(cats))
	for _, it := range items {
		if it.IsAvailable && it.CategoryID != "" {
			byCategory[it.CategoryID] = append(byCategory[it.CategoryID], it)
		}
	}
	var out []Section
	for _, c := range cats {
		if len(byCategory[c.ID]) == 0 {
			continue
		}
		out = append(out, Section{Category: c, Items: byCategory[c.ID]})
	}
	return out, nil
}

// CreateMenuItem validates in and stores it as a new item with a fresh id.
// The category must belong to accountID.
func (s *Service) CreateMenuItem(ctx context.Context, accountID string, in MenuItemInput) (*entity.MenuItem, error) {
	item, err := s.menuItem(ctx, accountID, uuid.NewString(), in)
	if err != nil {
		return nil, err
	}
	if err := s.store.InsertMenuItem(ctx, *item); err != nil {
		return nil, storeErr(ctx, "insert_menu_item", "menu item", item.ID, err)
	}
	s.changed(ctx, accountID, "menu item created", item.ID)
	return item, nil
}

// UpdateMenuItem replaces the item. Items of other accounts report
// apperrors.NotFoundError.
func (s *Service) UpdateMenuItem(ctx context.Context, accountID, id string, in MenuItemInput) (*entity.MenuItem, error) {
	item, err := s.menuItem(ctx, accountID, id, in)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateMenuItem(ctx, *item); err != nil {
		return nil, storeErr(ctx, "update_menu_item", "menu item", id, err)
	}
	s.changed(ctx, accountID, "menu item updated", id)
	return item, nil
}

// DeleteMenuItem removes the item from the menu. Past orders keep their
// line items and price snapshots.
func (s *Service) DeleteMenuItem(ctx context.Context, accountID, id string) error {
	if err := s.store.DeleteMenuItem(ctx, accountID, id); err != nil {
		return storeErr(ctx, "delete_menu_item", "menu item", id, err)
	}
	s.changed(ctx, accountID, "menu item deleted", id)
	return nil
}

func (s *Service) CreateCategory(ctx context.Context, accountID string, in CategoryInput) (*entity.Category, error) {
	c, err := category(accountID, uuid.NewString(), in)
	if err != nil {
		return nil, err
	}
	if err := s.store.InsertCategory(ctx, *c); err != nil {
		return nil, storeErr(ctx, "insert_category", "category", c.ID, err)
	}
	s.changed(ctx, accountID, "category created", c.ID)
	return c, nil
}

func (s *Service) UpdateCategory(ctx context.Context, accountID, id string, in CategoryInput) (*entity.Category, error) {
	c, err := category(accountID, id, in)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateCategory(ctx, *c); err != nil {
		return nil, storeErr(ctx, "update_category", "category", id, err)
	}
	s.changed(ctx, accountID, "category updated", id)
	return c, nil
}

// DeleteCategory removes the category; its items stay on record, uncategorised,
// and drop off the public menu until reassigned.
func (s *Service) DeleteCategory(ctx context.Context, accountID, id string) error {
	if err := s.store.DeleteCategory(ctx, accountID, id); err != nil {
		return storeErr(ctx, "delete_category", "category", id, err)
	}
	s.changed(ctx, accountID, "category deleted", id)
	return nil
}

func (s *Service) menuItem(ctx context.Context, accountID, id string, in MenuItemInput) (*entity.MenuItem, error) {
	name := strings.TrimSpace(in.Name)
	switch {
	case name == "":
		return nil, apperrors.NewValidation("name", "is required")
	case in.Price.IsNegative():
		return nil, apperrors.NewValidation("price", "must not be negative")
	case !in.Price.Equal(in.Price.Round(2)):
		return nil, apperrors.NewValidation("price", "must have at most 2 decimal places")
	case strings.TrimSpace(in.CategoryID) == "":
		return nil, apperrors.NewValidation("category_id", "is required")
	}

	cats, err := s.ListCategories(ctx, accountID)
	if err != nil {
		return nil, err
	}
	known := false
	for _, c := range cats {
		if c.ID == in.CategoryID {
			known = true
			break
		}
	}
	if !known {
		return nil, apperrors.NewValidation("category_id", "unknown category")
	}

	return &entity.MenuItem{
		ID:          id,
		AccountID:   accountID,
		Name:        name,
		Price:       in.Price,
		CategoryID:  in.CategoryID,
		IsAvailable: in.IsAvailable,
	}, nil
}

func category(accountID, id string, in CategoryInput) (*entity.Category, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperrors.NewValidation("name", "is required")
	}
	if in.DisplayOrder < 0 {
		return nil, apperrors.NewValidation("display_order", "must not be negative")
	}
	return &entity.Category{
		ID:           id,
		AccountID:    accountID,
		Name:         name,
		Color:        strings.TrimSpace(in.Color),
		DisplayOrder: in.DisplayOrder,
	}, nil
}

// storeErr maps ports.ErrNotFound to a NotFoundError and logs anything else.
func storeErr(ctx context.Context, op, resource, id string, err error) error {
	if errors.Is(err, ports.ErrNotFound) {
		return &apperrors.NotFoundError{Resource: resource, ID: id}
	}
	slog.ErrorContext(ctx, "catalogue store call failed", "op", op, "id", id, "error", err)
	return &apperrors.StoreError{Op: op, Err: err}
}

func (s *Service) changed(ctx context.Context, accountID, msg, id string) {
	slog.InfoContext(ctx, msg, "account_id", accountID, "id", id)
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Invalidate(ctx, accountID); err != nil {
		slog.WarnContext(ctx, "analytics invalidation failed", "account_id", accountID, "error", err)
	}
}
