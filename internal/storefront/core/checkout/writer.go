// Package checkout is the order write path: it persists an order and its
// line items as one logical unit, compensating with a delete when the line
// items cannot be written.
package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Kyellog-silog/rustique-cafe/internal/coordinator"
	"github.com/Kyellog-silog/rustique-cafe/internal/coordinator/sagalog"
	"github.com/Kyellog-silog/rustique-cafe/internal/storefront/core/apperrors"
	"github.com/Kyellog-silog/rustique-cafe/internal/storefront/core/domain/entity"
	"github.com/Kyellog-silog/rustique-cafe/internal/storefront/core/ports"
)

var tracer = otel.Tracer("github.com/Kyellog-silog/rustique-cafe/internal/storefront/core/checkout")

// DefaultFollowUpTimeout bounds the post-commit work of one order.
const DefaultFollowUpTimeout = 5 * time.Second

// ItemInput is one requested line; UnitPrice is the client-quoted price.
type ItemInput struct {
	MenuItemID string
	UnitPrice  decimal.Decimal
	Quantity   int
}

// PlaceOrderInput is everything PlaceOrder needs besides the account.
type PlaceOrderInput struct {
	Customer  entity.Customer
	OrderType entity.OrderType
	Notes     string
	Items     []ItemInput
}

// Invalidator drops derived data for an account once it has a new order.
type Invalidator interface {
	Invalidate(ctx context.Context, accountID string) error
}

// Writer places orders against a ports.OrderStore. It is safe for
// concurrent use.
type Writer struct {
	store         ports.OrderStore
	log           sagalog.Repository
	publisher     ports.EventPublisher
	invalidator   Invalidator
	now           func() time.Time
	followUpAfter time.Duration
}

// Option configures a Writer.
type Option func(*Writer)

// WithCheckoutLog persists every saga transition to repo.
func WithCheckoutLog(repo sagalog.Repository) Option {
	return func(w *Writer) { w.log = repo }
}

// WithPublisher announces every confirmed order on p.
func WithPublisher(p ports.EventPublisher) Option {
	return func(w *Writer) { w.publisher = p }
}

// WithInvalidator drops the account's cached analytics after each order.
func WithInvalidator(i Invalidator) Option {
	return func(w *Writer) { w.invalidator = i }
}

// WithClock replaces time.Now as the source of created_at.
func WithClock(now func() time.Time) Option {
	return func(w *Writer) { w.now = now }
}

// WithFollowUpTimeout bounds invalidation and publishing after commit.
// Non-positive values keep DefaultFollowUpTimeout.
func WithFollowUpTimeout(d time.Duration) Option {
	return func(w *Writer) {
		if d > 0 {
			w.followUpAfter = d
		}
	}
}

// NewWriter returns a Writer over store. Without options it keeps no
// checkout log and runs no follow-ups.
func NewWriter(store ports.OrderStore, opts ...Option) *Writer {
	w := &Writer{store: store, now: time.Now, followUpAfter: DefaultFollowUpTimeout}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// PlaceOrder validates in, then writes the order row followed by its line
// items. On success the returned order is fully persisted with status
// confirmed.
//
// Errors: *apperrors.ValidationError before any write; *apperrors.StoreError
// when a write failed and nothing was left behind; *apperrors.PartialWriteError
// when the line items failed and the compensating delete failed as well.
func (w *Writer) PlaceOrder(ctx context.Context, accountID string, in PlaceOrderInput) (*entity.Order, error) {
	if err := validate(accountID, &in); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "checkout.PlaceOrder")
	defer span.End()

	order := w.buildOrder(accountID, in)
	span.SetAttributes(
		attribute.String("order.id", order.ID),
		attribute.String("order.type", string(order.OrderType)),
		attribute.Int("order.items", len(order.Items)),
	)

	steps := []coordinator.Step{
		&insertOrderStep{store: w.store, order: order},
		&insertLineItemsStep{store: w.store, order: order},
	}
	saga := coordinator.NewOrchestrator(order.ID, steps, w.log, coordinator.WithOwner(accountID))

	if err := saga.Start(ctx, payloadOf(order)); err != nil {
		err = w.mapFailure(ctx, order, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, apperrors.KindOf(err).String())
		return nil, err
	}

	slog.InfoContext(ctx, "order placed",
		"account_id", accountID,
		"order_id", order.ID,
		"total_amount", order.TotalAmount.StringFixed(2),
		"items", len(order.Items),
	)
	w.afterCommit(ctx, order)
	return order, nil
}

func (w *Writer) buildOrder(accountID string, in PlaceOrderInput) *entity.Order {
	orderID := uuid.NewString()
	items := make([]entity.OrderLineItem, len(in.Items))
	for i, it := range in.Items {
		items[i] = entity.NewLineItem(uuid.NewString(), orderID, it.MenuItemID, it.Quantity, it.UnitPrice)
	}
	return &entity.Order{
		ID:        orderID,
		AccountID: accountID,
		Customer: entity.Customer{
			Name:  strings.TrimSpace(in.Customer.Name),
			Email: strings.TrimSpace(in.Customer.Email),
			Phone: strings.TrimSpace(in.Customer.Phone),
		},
		OrderType:   in.OrderType,
		Status:      entity.StatusConfirmed,
		TotalAmount: orderTotal(items),
		Notes:       in.Notes,
		CreatedAt:   w.now().UTC(),
		Items:       items,
	}
}

func (w *Writer) mapFailure(ctx context.Context, order *entity.Order, err error) error {
	var failure *coordinator.Failure
	if !errors.As(err, &failure) {
		return &apperrors.StoreError{Op: "place_order", Err: err}
	}

	if !failure.Compensated() {
		pw := &apperrors.PartialWriteError{
			OrderID:         order.ID,
			Cause:           failure.Err,
			CompensationErr: failure.CompensationErr(),
		}
		slog.ErrorContext(ctx, "CRITICAL: orphaned order left after failed compensation",
			"account_id", order.AccountID,
			"order_id", order.ID,
			"cause", failure.Err,
			"compensation_error", failure.CompensationErr(),
		)
		return pw
	}

	op := opForStep(failure.Step)
	slog.ErrorContext(ctx, "checkout failed",
		"op", op,
		"account_id", order.AccountID,
		"order_id", order.ID,
		"error", failure.Err,
	)
	return &apperrors.StoreError{Op: op, Err: failure.Err}
}

// afterCommit runs best-effort follow-ups. The order is already durable, so
// failures here are logged and never returned. A client disconnect does not
// cancel them, but they share one followUpAfter deadline.
func (w *Writer) afterCommit(ctx context.Context, order *entity.Order) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.followUpAfter)
	defer cancel()
	if w.invalidator != nil {
		if err := w.invalidator.Invalidate(ctx, order.AccountID); err != nil {
			slog.WarnContext(ctx, "analytics invalidation failed", "account_id", order.AccountID, "error", err)
		}
	}
	if w.publisher != nil {
		if err := w.publisher.PublishOrderPlaced(ctx, order); err != nil {
			slog.WarnContext(ctx, "order.placed publish failed", "order_id", order.ID, "error", err)
		}
	}
}

type checkoutPayload struct {
	AccountID   string `json:"account_id"`
	Customer    string `json:"customer"`
	OrderType   string `json:"order_type"`
	TotalAmount string `json:"total_amount"`
	Items       int    `json:"items"`
}

func payloadOf(o *entity.Order) string {
	b, err := json.Marshal(checkoutPayload{
		AccountID:   o.AccountID,
		Customer:    o.Customer.Name,
		OrderType:   string(o.OrderType),
		TotalAmount: o.TotalAmount.StringFixed(2),
		Items:       len(o.Items),
	})
	if err != nil {
		return ""
	}
	return string(b)
}
