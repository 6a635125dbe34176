package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/Kyellog-silog/rustique-cafe/internal/storefront/core/domain/entity"
)

func sampleOrder() *entity.Order {
	return &entity.Order{
		ID:          "o-1",
		AccountID:   "acct",
		OrderType:   entity.OrderTypeDelivery,
		Status:      entity.StatusConfirmed,
		TotalAmount: decimal.RequireFromString("9"),
		CreatedAt:   time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		Items: []entity.OrderLineItem{
			entity.NewLineItem("li-1", "o-1", "latte", 2, decimal.RequireFromString("4.5")),
		},
	}
}

func TestNewOrderPlaced_moneyAsFixedStrings(t *testing.T) {
	body, err := json.Marshal(NewOrderPlaced(sampleOrder()))
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "9.00", got["total_amount"])
	assert.Equal(t, "delivery", got["order_type"])

	items := got["items"].([]any)
	require.Len(t, items, 1)
	item := items[0].(map[string]any)
	assert.Equal(t, "4.50", item["unit_price"])
	assert.Equal(t, "9.00", item["line_total"])
}

func TestRoutingKey(t *testing.T) {
	assert.Equal(t, "order.placed.delivery", RoutingKey(sampleOrder()))
}

func TestHeaderCarrier_roundTripsTraceContext(t *testing.T) {
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0x01},
		SpanID:     trace.SpanID{0x02},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	headers := amqp.Table{}
	prop := propagation.TraceContext{}
	prop.Inject(ctx, headerCarrier(headers))
	require.Contains(t, headers, "traceparent")

	got := trace.SpanContextFromContext(prop.Extract(context.Background(), headerCarrier(headers)))
	assert.Equal(t, sc.TraceID(), got.TraceID())
	assert.Equal(t, sc.SpanID(), got.SpanID())
}
