package checkout

import (
	"context"
	"fmt"

	"github.com/Kyellog-silog/rustique-cafe/internal/storefront/core/domain/entity"
	"github.com/Kyellog-silog/rustique-cafe/internal/storefront/core/ports"
)

const (
	stepInsertOrder     = "Insert_Order_Step"
	stepInsertLineItems = "Insert_Line_Items_Step"
)

// insertOrderStep persists the order row. Its compensation deletes it.
type insertOrderStep struct {
	store ports.OrderStore
	order *entity.Order
}

func (s *insertOrderStep) Name() string { return stepInsertOrder }

func (s *insertOrderStep) Execute(ctx context.Context) error {
	id, err := s.store.InsertOrder(ctx, *s.order)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	s.order.ID = id
	return nil
}

func (s *insertOrderStep) Compensate(ctx context.Context) error {
	return s.store.DeleteOrder(ctx, s.order.AccountID, s.order.ID)
}

// insertLineItemsStep persists every line item in one store call. It is the
// last step, so it has nothing to compensate.
type insertLineItemsStep struct {
	store ports.OrderStore
	order *entity.Order
}

func (s *insertLineItemsStep) Name() string { return stepInsertLineItems }

func (s *insertLineItemsStep) Execute(ctx context.Context) error {
	for i := range s.order.Items {
		s.order.Items[i].OrderID = s.order.ID
	}
	if err := s.store.InsertOrderLineItems(ctx, s.order.ID, s.order.Items); err != nil {
		return fmt.Errorf("insert line items: %w", err)
	}
	return nil
}

func (s *insertLineItemsStep) Compensate(context.Context) error { return nil }

func opForStep(step string) string {
	switch step {
	case stepInsertOrder:
		return "insert_order"
	case stepInsertLineItems:
		return "insert_order_line_items"
	}
	return step
}
