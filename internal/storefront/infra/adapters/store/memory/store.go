// Package memory is an in-process OrderStore for local development and
// tests. Faults can be injected per operation to exercise failure paths.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/Kyellog-silog/rustique-cafe/internal/storefront/core/domain/entity"
	"github.com/Kyellog-silog/rustique-cafe/internal/storefront/core/ports"
)

var (
	_ ports.OrderStore   = (*Store)(nil)
	_ ports.CatalogStore = (*Store)(nil)
)

// ErrOrderNotFound is returned when the account owns no such order.
var ErrOrderNotFound = errors.New("memory: order not found")

// Faults makes the matching operation fail with the given error.
type Faults struct {
	InsertOrder        error
	InsertLineItems    error
	DeleteOrder        error
	SelectOrders       error
	SelectLineItemRows error
}

// Store keeps orders and the catalogue in maps behind one RWMutex.
type Store struct {
	mu         sync.RWMutex
	orders     map[string]entity.Order
	sequence   []string
	items      map[string][]entity.OrderLineItem
	menu       map[string]entity.MenuItem
	categories map[string]entity.Category
	faults     Faults
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		orders:     make(map[string]entity.Order),
		items:      make(map[string][]entity.OrderLineItem),
		menu:       make(map[string]entity.MenuItem),
		categories: make(map[string]entity.Category),
	}
}

// InjectFaults replaces the active faults; the zero Faults clears them.
func (s *Store) InjectFaults(f Faults) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = f
}

// PutMenuItem and PutCategory seed the catalogue without ownership checks.
func (s *Store) PutMenuItem(item entity.MenuItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.menu[item.ID] = item
}

func (s *Store) PutCategory(c entity.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories[c.ID] = c
}

func (s *Store) ListCategories(ctx context.Context, accountID string) ([]entity.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []entity.Category
	for _, c := range s.categories {
		if c.AccountID == accountID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DisplayOrder != out[j].DisplayOrder {
			return out[i].DisplayOrder < out[j].DisplayOrder
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *Store) InsertCategory(ctx context.Context, c entity.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.categories[c.ID]; exists {
		return fmt.Errorf("memory: category %s already exists", c.ID)
	}
	s.categories[c.ID] = c
	return nil
}

func (s *Store) UpdateCategory(ctx context.Context, c entity.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.categories[c.ID]; !ok || cur.AccountID != c.AccountID {
		return fmt.Errorf("%w: category %s", ports.ErrNotFound, c.ID)
	}
	s.categories[c.ID] = c
	return nil
}

func (s *Store) DeleteCategory(ctx context.Context, accountID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.categories[id]; !ok || cur.AccountID != accountID {
		return fmt.Errorf("%w: category %s", ports.ErrNotFound, id)
	}
	delete(s.categories, id)
	for mid, m := range s.menu {
		if m.CategoryID == id {
			m.CategoryID = ""
			s.menu[mid] = m
		}
	}
	return nil
}

func (s *Store) ListMenuItems(ctx context.Context, accountID string) ([]entity.MenuItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []entity.MenuItem
	for _, m := range s.menu {
		if m.AccountID == accountID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) InsertMenuItem(ctx context.Context, m entity.MenuItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.menu[m.ID]; exists {
		return fmt.Errorf("memory: menu item %s already exists", m.ID)
	}
	s.menu[m.ID] = m
	return nil
}

func (s *Store) UpdateMenuItem(ctx context.Context, m entity.MenuItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.menu[m.ID]; !ok || cur.AccountID != m.AccountID {
		return fmt.Errorf("%w: menu item %s", ports.ErrNotFound, m.ID)
	}
	s.menu[m.ID] = m
	return nil
}

// DeleteMenuItem removes the item; order history keeps referencing its id.
func (s *Store) DeleteMenuItem(ctx context.Context, accountID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.menu[id]; !ok || cur.AccountID != accountID {
		return fmt.Errorf("%w: menu item %s", ports.ErrNotFound, id)
	}
	delete(s.menu, id)
	return nil
}

// SetStatus plays the external order-management actor.
func (s *Store) SetStatus(orderID string, status entity.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	o.Status = status
	s.orders[orderID] = o
	return nil
}

// Order returns the stored order with its line items.
func (s *Store) Order(orderID string) (entity.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[orderID]
	if !ok {
		return entity.Order{}, false
	}
	o.Items = append([]entity.OrderLineItem(nil), s.items[orderID]...)
	return o, true
}

// OrderCount counts stored orders across all accounts.
func (s *Store) OrderCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orders)
}

func (s *Store) InsertOrder(ctx context.Context, order entity.Order) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.faults.InsertOrder != nil {
		return "", s.faults.InsertOrder
	}
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	if _, exists := s.orders[order.ID]; exists {
		return "", fmt.Errorf("memory: order %s already exists", order.ID)
	}
	order.Items = nil
	s.orders[order.ID] = order
	s.sequence = append(s.sequence, order.ID)
	return order.ID, nil
}

func (s *Store) InsertOrderLineItems(ctx context.Context, orderID string, items []entity.OrderLineItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.faults.InsertLineItems != nil {
		return s.faults.InsertLineItems
	}
	if _, ok := s.orders[orderID]; !ok {
		return fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	for _, it := range items {
		if it.ID == "" {
			it.ID = uuid.NewString()
		}
		it.OrderID = orderID
		s.items[orderID] = append(s.items[orderID], it)
	}
	return nil
}

func (s *Store) DeleteOrder(ctx context.Context, accountID, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.faults.DeleteOrder != nil {
		return s.faults.DeleteOrder
	}
	o, ok := s.orders[orderID]
	if !ok || o.AccountID != accountID {
		return fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	delete(s.orders, orderID)
	delete(s.items, orderID)
	for i, id := range s.sequence {
		if id == orderID {
			s.sequence = append(s.sequence[:i], s.sequence[i+1:]...)
			break
		}
	}
	return nil
}

// SelectOrders returns matching orders newest first.
func (s *Store) SelectOrders(ctx context.Context, filter entity.OrderFilter) ([]entity.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.faults.SelectOrders != nil {
		return nil, s.faults.SelectOrders
	}
	var out []entity.Order
	for _, id := range s.sequence {
		o := s.orders[id]
		if filter.Matches(o) {
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// SelectLineItemRows returns the account's line items in insertion order,
// joined to the current menu and categories.
func (s *Store) SelectLineItemRows(ctx context.Context, accountID string) ([]entity.LineItemRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.faults.SelectLineItemRows != nil {
		return nil, s.faults.SelectLineItemRows
	}
	var rows []entity.LineItemRow
	for _, id := range s.sequence {
		if s.orders[id].AccountID != accountID {
			continue
		}
		for _, it := range s.items[id] {
			rows = append(rows, s.join(it))
		}
	}
	return rows, nil
}

func (s *Store) join(it entity.OrderLineItem) entity.LineItemRow {
	row := entity.LineItemRow{
		ID:         it.ID,
		OrderID:    it.OrderID,
		MenuItemID: it.MenuItemID,
		Quantity:   it.Quantity,
		UnitPrice:  it.UnitPrice,
		LineTotal:  it.LineTotal,
	}
	mi, ok := s.menu[it.MenuItemID]
	if !ok {
		return row
	}
	row.MenuItem = &entity.MenuItemRef{ID: mi.ID, Name: mi.Name, Price: mi.Price, CategoryID: mi.CategoryID}
	if c, ok := s.categories[mi.CategoryID]; ok && mi.CategoryID != "" {
		row.Category = &entity.CategoryRef{ID: c.ID, Name: c.Name, Color: c.Color}
	}
	return row
}
