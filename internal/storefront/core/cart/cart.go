// Package cart is the single-threaded checkout panel state machine:
// cart -> checkout -> confirmation, re-entered indefinitely.
//
// A Cart is owned by one UI session and is not safe for concurrent use.
package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Kyellog-silog/rustique-cafe/internal/storefront/core/checkout"
	"github.com/Kyellog-silog/rustique-cafe/internal/storefront/core/domain/entity"
)

// State is where a cart is in its lifecycle.
type State int

const (
	StateCart State = iota
	StateCheckout
	StateConfirmation
)

func (s State) String() string {
	switch s {
	case StateCart:
		return "cart"
	case StateCheckout:
		return "checkout"
	case StateConfirmation:
		return "confirmation"
	}
	return "unknown"
}

// ErrInvalidTransition is returned by operations the current State forbids.
var ErrInvalidTransition = errors.New("cart: invalid transition")

// Placer is satisfied by *checkout.Writer.
type Placer interface {
	PlaceOrder(ctx context.Context, accountID string, in checkout.PlaceOrderInput) (*entity.Order, error)
}

// Line is one menu item in the cart with the price it was added at.
type Line struct {
	MenuItemID string
	Name       string
	UnitPrice  decimal.Decimal
	Quantity   int
}

func (l Line) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart is a single customer's basket. It is not safe for concurrent use.
type Cart struct {
	accountID string
	placer    Placer
	state     State
	lines     []Line
	orderID   string
}

// New returns an empty cart that checks out through placer.
func New(accountID string, placer Placer) *Cart {
	return &Cart{accountID: accountID, placer: placer}
}

func (c *Cart) State() State { return c.state }

// OrderID is the id of the confirmed order, empty outside confirmation.
func (c *Cart) OrderID() string { return c.orderID }

func (c *Cart) Lines() []Line { return append([]Line(nil), c.lines...) }

// Add puts qty of an item in the cart; an item already present has its
// quantity increased.
func (c *Cart) Add(item entity.MenuItem, qty int) {
	if qty < 1 {
		return
	}
	for i := range c.lines {
		if c.lines[i].MenuItemID == item.ID {
			c.lines[i].Quantity += qty
			return
		}
	}
	c.lines = append(c.lines, Line{MenuItemID: item.ID, Name: item.Name, UnitPrice: item.Price, Quantity: qty})
}

// SetQuantity changes a line's quantity; zero or less removes it.
func (c *Cart) SetQuantity(menuItemID string, qty int) {
	for i := range c.lines {
		if c.lines[i].MenuItemID != menuItemID {
			continue
		}
		if qty < 1 {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return
		}
		c.lines[i].Quantity = qty
		return
	}
}

func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(l.Total())
	}
	return total
}

func (c *Cart) Count() int {
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

// Checkout moves cart -> checkout on user intent. No validation happens here.
func (c *Cart) Checkout() error {
	if c.state != StateCart {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.state, StateCheckout)
	}
	c.state = StateCheckout
	return nil
}

// Back returns checkout -> cart without side effects.
func (c *Cart) Back() error {
	if c.state != StateCheckout {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.state, StateCart)
	}
	c.state = StateCart
	return nil
}

// Confirm places the order. Only a successful placement moves to
// confirmation and clears the lines; on error the state stays checkout.
func (c *Cart) Confirm(ctx context.Context, customer entity.Customer, orderType entity.OrderType, notes string) (*entity.Order, error) {
	if c.state != StateCheckout {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.state, StateConfirmation)
	}

	items := make([]checkout.ItemInput, len(c.lines))
	for i, l := range c.lines {
		items[i] = checkout.ItemInput{MenuItemID: l.MenuItemID, UnitPrice: l.UnitPrice, Quantity: l.Quantity}
	}
	order, err := c.placer.PlaceOrder(ctx, c.accountID, checkout.PlaceOrderInput{
		Customer:  customer,
		OrderType: orderType,
		Notes:     notes,
		Items:     items,
	})
	if err != nil {
		return nil, err
	}

	c.lines = nil
	c.orderID = order.ID
	c.state = StateConfirmation
	return order, nil
}

// Close resets to cart from any state and forgets the order id. Lines are
// kept unless they were cleared by a confirmation.
func (c *Cart) Close() {
	c.state = StateCart
	c.orderID = ""
}
