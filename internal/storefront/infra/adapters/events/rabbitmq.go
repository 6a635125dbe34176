// Package events publishes order lifecycle messages to RabbitMQ.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"

	"github.com/Kyellog-silog/rustique-cafe/internal/storefront/core/domain/entity"
	"github.com/Kyellog-silog/rustique-cafe/internal/storefront/core/ports"
)

var _ ports.EventPublisher = (*Publisher)(nil)

// Publisher sends order.placed messages to a durable topic exchange and waits
// for the broker's confirm of that message before returning. It is safe for
// concurrent use.
type Publisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string

	mu sync.Mutex // serialises publishes on ch
}

// Dial connects to url, declares exchange as a durable topic exchange and puts
// the channel in confirm mode.
func Dial(url, exchange string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq: channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq: declare exchange %q: %w", exchange, err)
	}

	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq: enable confirms: %w", err)
	}

	return &Publisher{conn: conn, ch: ch, exchange: exchange}, nil
}

// Close closes the channel and the connection. It is safe on a nil Publisher.
func (p *Publisher) Close() {
	if p == nil {
		return
	}
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

// Ping reports whether the connection is still open.
func (p *Publisher) Ping() error {
	if p.conn == nil || p.conn.IsClosed() {
		return errors.New("rabbitmq: connection is closed")
	}
	return nil
}

// PublishOrderPlaced publishes order and blocks until the broker confirms
// that message or ctx is done. Each wait is tied to its own delivery tag, so
// a confirm that arrives after its caller gave up is never credited to a
// later publish.
func (p *Publisher) PublishOrderPlaced(ctx context.Context, order *entity.Order) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("rabbitmq: publish order %q: %w", order.ID, err)
	}
	body, err := json.Marshal(NewOrderPlaced(order))
	if err != nil {
		return fmt.Errorf("rabbitmq: encode order %q: %w", order.ID, err)
	}

	headers := amqp.Table{}
	otel.GetTextMapPropagator().Inject(ctx, headerCarrier(headers))

	p.mu.Lock()
	confirm, err := p.ch.PublishWithDeferredConfirmWithContext(ctx, p.exchange, RoutingKey(order), false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		MessageId:    order.ID,
		Timestamp:    time.Now().UTC(),
		Headers:      headers,
		Body:         body,
	})
	p.mu.Unlock()
	if err != nil {
		return fmt.Errorf("rabbitmq: publish order %q: %w", order.ID, err)
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("rabbitmq: await confirm for order %q: %w", order.ID, err)
	}
	if !acked {
		return fmt.Errorf("rabbitmq: broker nacked order %q", order.ID)
	}
	return nil
}
