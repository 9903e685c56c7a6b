package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel/codes"

	"wastereminder/pkg/otel"
	"wastereminder/pkg/trace"
)

type Publisher struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel
	mu      sync.Mutex
}

func NewPublisher(url string) (*Publisher, error) {
	conn, ch, err := openChannel(url)
	if err != nil {
		return nil, err
	}
	return &Publisher{
		conn:    conn,
		channel: ch,
	}, nil
}

func (p *Publisher) Close() {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

// IsConnected checks if the publisher connection is still alive
func (p *Publisher) IsConnected() bool {
	if p.conn == nil || p.channel == nil {
		return false
	}
	return !p.conn.IsClosed() && !p.channel.IsClosed()
}

// Publish publishes an event to the exchange with the given routing key.
func (p *Publisher) Publish(routingKey string, payload any) error {
	return p.PublishWithContext(context.Background(), routingKey, payload)
}

// PublishWithContext publishes a JSON payload, carrying the trace id and the
// OpenTelemetry context in the message headers.
func (p *Publisher) PublishWithContext(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", routingKey, err)
	}
	return p.PublishRaw(ctx, routingKey, body)
}

// PublishRaw publishes an already-encoded JSON body.
func (p *Publisher) PublishRaw(ctx context.Context, routingKey string, body []byte) error {
	ctx, span := otel.MQPublishSpan(ctx, routingKey, ExchangeName)
	defer span.End()

	msg := buildPublishing(ctx, body)

	p.mu.Lock()
	err := p.channel.PublishWithContext(ctx, ExchangeName, routingKey, false, false, msg)
	p.mu.Unlock()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "publish failed")
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	return nil
}

func buildPublishing(ctx context.Context, body []byte) amqp091.Publishing {
	headers := amqp091.Table{}
	if id := trace.FromContext(ctx); id != "" {
		headers[trace.HeaderName] = id
	}
	otel.InjectHeaders(ctx, headers)

	return amqp091.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp091.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		Headers:      headers,
	}
}
