package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"wastereminder/pkg/metrics"
	"wastereminder/pkg/otel"
	"wastereminder/pkg/trace"
)

type MessageHandler func(ctx context.Context, data json.RawMessage) error

type Consumer struct {
	channel    *amqp091.Channel
	queue      amqp091.Queue
	routingKey string
	handler    MessageHandler
	conn       *amqp091.Connection
	logger     *zap.Logger
}

// NewConsumer creates a consumer for a specific routing key. Rejected messages
// are dead-lettered to <queue>.dlq.
func NewConsumer(url, queueName, routingKey string, prefetch int, logger *zap.Logger) (*Consumer, error) {
	conn, ch, err := openChannel(url)
	if err != nil {
		return nil, err
	}

	c := &Consumer{conn: conn, channel: ch, routingKey: routingKey, logger: logger}
	if err := c.declare(queueName, prefetch); err != nil {
		c.Close()
		return nil, err
	}

	logger.Info("Consumer initialized",
		zap.String("routing_key", routingKey),
		zap.String("queue", queueName),
		zap.String("exchange", ExchangeName),
	)
	return c, nil
}

func (c *Consumer) declare(queueName string, prefetch int) error {
	if err := DeclareDLQExchange(c.channel); err != nil {
		return fmt.Errorf("failed to declare DLQ exchange: %w", err)
	}
	if _, err := DeclareDLQQueue(c.channel, queueName); err != nil {
		return err
	}

	q, err := c.channel.QueueDeclare(
		queueName,
		true,
		false,
		false,
		false,
		deadLetterArgs(queueName),
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := c.channel.QueueBind(q.Name, c.routingKey, ExchangeName, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	if prefetch > 0 {
		if err := c.channel.Qos(prefetch, 0, false); err != nil {
			return fmt.Errorf("failed to set qos: %w", err)
		}
	}

	c.queue = q
	return nil
}

func (c *Consumer) SetHandler(h MessageHandler) {
	c.handler = h
}

func (c *Consumer) Close() {
	if c.channel != nil {
		_ = c.channel.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// Run consumes until ctx is done or the channel closes. It blocks.
func (c *Consumer) Run(ctx context.Context) error {
	if c.handler == nil {
		return fmt.Errorf("consumer handler not set")
	}

	tag := "reminder-" + c.queue.Name
	deliveries, err := c.channel.ConsumeWithContext(
		ctx,
		c.queue.Name,
		tag,
		false, // 手动ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.logger.Info("Consumer started consuming messages",
		zap.String("routing_key", c.routingKey),
		zap.String("queue", c.queue.Name),
	)

	for {
		select {
		case <-ctx.Done():
			_ = c.channel.Cancel(tag, false)
			return nil
		case msg, ok := <-deliveries:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("delivery channel closed for queue %s", c.queue.Name)
			}
			c.handle(ctx, msg)
		}
	}
}

// handle 保证每条消息都会被 ack 或 nack
func (c *Consumer) handle(parent context.Context, msg amqp091.Delivery) {
	start := time.Now()
	ctx := otel.ExtractHeaders(parent, msg.Headers)
	if id, ok := msg.Headers[trace.HeaderName].(string); ok && id != "" {
		ctx = trace.WithContext(ctx, id)
	}
	ctx, traceID := trace.Ensure(ctx)
	ctx, span := otel.MQConsumeSpan(ctx, c.routingKey, c.queue.Name)
	defer span.End()

	log := c.logger.With(
		zap.String("routing_key", c.routingKey),
		zap.String("queue", c.queue.Name),
		zap.String("trace_id", traceID),
		zap.String("message_id", msg.MessageId),
	)

	defer func() {
		if r := recover(); r != nil {
			log.Error("Handler panic recovered", zap.Any("panic", r))
			span.SetStatus(codes.Error, "panic")
			// panic 视为不可重试，直接进入死信队列
			if err := msg.Nack(false, false); err != nil {
				log.Error("Failed to nack message after panic", zap.Error(err))
			}
		}
	}()

	err := c.handler(ctx, msg.Body)
	metrics.RecordMQConsumeLatency(c.routingKey, c.queue.Name, time.Since(start))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "handler failed")

		requeue := !IsPermanent(err) && !msg.Redelivered
		log.Error("Handler error", zap.Error(err), zap.Bool("requeue", requeue))
		if nackErr := msg.Nack(false, requeue); nackErr != nil {
			log.Error("Failed to nack message", zap.Error(nackErr))
		}
		return
	}

	if err := msg.Ack(false); err != nil {
		log.Error("Failed to ack message", zap.Error(err))
		return
	}
	log.Debug("Message processed successfully")
}
