package mq

import (
	"errors"
	"fmt"

	"github.com/rabbitmq/amqp091-go"
)

const (
	DLQExchangeName = "events.dlx"
)

// DeclareDLQExchange declares the dead letter exchange.
func DeclareDLQExchange(ch *amqp091.Channel) error {
	return ch.ExchangeDeclare(
		DLQExchangeName,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
}

// DLQName returns the dead letter queue name for a work queue.
func DLQName(queueName string) string {
	return queueName + ".dlq"
}

// deadLetterArgs routes rejected messages of queueName to its DLQ.
func deadLetterArgs(queueName string) amqp091.Table {
	return amqp091.Table{
		"x-dead-letter-exchange":    DLQExchangeName,
		"x-dead-letter-routing-key": queueName,
	}
}

// DeclareDLQQueue declares and binds the dead letter queue for a work queue.
func DeclareDLQQueue(ch *amqp091.Channel, queueName string) (amqp091.Queue, error) {
	q, err := ch.QueueDeclare(
		DLQName(queueName),
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return amqp091.Queue{}, fmt.Errorf("failed to declare DLQ queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, queueName, DLQExchangeName, false, nil); err != nil {
		return amqp091.Queue{}, fmt.Errorf("failed to bind DLQ queue: %w", err)
	}
	return q, nil
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks a handler error as non-retryable; the message is dead-lettered.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}
