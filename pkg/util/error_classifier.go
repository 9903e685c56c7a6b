package util

import (
	"context"
	"errors"
	"net"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"

	"wastereminder/pkg/circuitbreaker"
)

// ErrRateLimited 邮件发送被限流
var ErrRateLimited = errors.New("mail send rate limited")

// ClassifyDeliveryError 将投递错误归类为指标标签
func ClassifyDeliveryError(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, circuitbreaker.ErrCircuitBreakerOpen):
		return "circuit_open"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	}

	var amqpErr *amqp.Error
	if errors.As(err, &amqpErr) || errors.Is(err, amqp.ErrClosed) {
		return "broker_error"
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return "timeout"
		}
		return "network_error"
	}

	errStr := err.Error()
	if strings.Contains(errStr, "duplicate key") {
		return "duplicate"
	}
	if strings.Contains(errStr, "connection") {
		return "store_unavailable"
	}

	return "unknown"
}

// IsRetryable 判断错误是否值得重新投递（用于 MQ 消费端）
func IsRetryable(err error) bool {
	switch ClassifyDeliveryError(err) {
	case "timeout", "broker_error", "network_error", "store_unavailable", "circuit_open", "rate_limited":
		return true
	default:
		return false
	}
}
