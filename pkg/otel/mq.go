package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// MQPublishSpan 在 MQ 发布时创建 span
func MQPublishSpan(ctx context.Context, routingKey string, exchange string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "mq.publish "+routingKey,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", "rabbitmq"),
			attribute.String("messaging.destination.name", exchange),
			attribute.String("messaging.rabbitmq.destination.routing_key", routingKey),
		),
	)
}

// MQConsumeSpan 在 MQ 消费时创建 span，调用前应先从消息头提取 trace context
func MQConsumeSpan(ctx context.Context, routingKey string, queue string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "mq.consume "+routingKey,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "rabbitmq"),
			attribute.String("messaging.source.name", queue),
			attribute.String("messaging.rabbitmq.destination.routing_key", routingKey),
		),
	)
}

// InjectHeaders 将当前 trace context 写入消息头
func InjectHeaders(ctx context.Context, headers map[string]interface{}) map[string]interface{} {
	carrier := NewMQHeaderCarrier(headers)
	GetTextMapPropagator().Inject(ctx, carrier)
	return carrier.headers
}

// ExtractHeaders 从消息头恢复 trace context
func ExtractHeaders(ctx context.Context, headers map[string]interface{}) context.Context {
	return GetTextMapPropagator().Extract(ctx, NewMQHeaderCarrier(headers))
}

// MQHeaderCarrier 实现 TextMapCarrier，用于在 RabbitMQ 消息头中提取/注入 trace context
type MQHeaderCarrier struct {
	headers map[string]interface{}
}

func NewMQHeaderCarrier(headers map[string]interface{}) *MQHeaderCarrier {
	if headers == nil {
		headers = make(map[string]interface{})
	}
	return &MQHeaderCarrier{headers: headers}
}

func (c *MQHeaderCarrier) Get(key string) string {
	switch v := c.headers[key].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return ""
	}
}

func (c *MQHeaderCarrier) Set(key, value string) {
	c.headers[key] = value
}

func (c *MQHeaderCarrier) Keys() []string {
	keys := make([]string, 0, len(c.headers))
	for k := range c.headers {
		keys = append(keys, k)
	}
	return keys
}
