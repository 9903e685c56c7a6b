package outbox

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"wastereminder/pkg/metrics"
	"wastereminder/pkg/trace"
)

// Store Dispatcher 依赖的 outbox 存储
type Store interface {
	GetPendingEvents(ctx context.Context, limit int) ([]*Event, error)
	MarkAsSent(ctx context.Context, eventID int64) error
	MarkAsFailed(ctx context.Context, eventID int64, maxRetries int) error
}

// Publisher Dispatcher 依赖的 MQ 发布者
type Publisher interface {
	PublishRaw(ctx context.Context, routingKey string, body []byte) error
}

// Dispatcher 负责从 outbox 中读取事件并发布到 MQ
type Dispatcher struct {
	store      Store
	publisher  Publisher
	logger     *zap.Logger
	maxRetries int
	interval   time.Duration
	batchSize  int
}

// NewDispatcher 创建新的 Dispatcher
func NewDispatcher(store Store, publisher Publisher, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		store:      store,
		publisher:  publisher,
		logger:     logger,
		maxRetries: 5,               // 默认最大重试5次
		interval:   1 * time.Second, // 默认每秒扫描一次
		batchSize:  100,             // 默认每次处理100个事件
	}
}

// WithMaxRetries 设置最大重试次数
func (d *Dispatcher) WithMaxRetries(maxRetries int) *Dispatcher {
	if maxRetries > 0 {
		d.maxRetries = maxRetries
	}
	return d
}

// WithInterval 设置扫描间隔
func (d *Dispatcher) WithInterval(interval time.Duration) *Dispatcher {
	if interval > 0 {
		d.interval = interval
	}
	return d
}

// WithBatchSize 设置批次大小
func (d *Dispatcher) WithBatchSize(batchSize int) *Dispatcher {
	if batchSize > 0 {
		d.batchSize = batchSize
	}
	return d
}

// Start 启动 Dispatcher，阻塞直到 ctx 结束
func (d *Dispatcher) Start(ctx context.Context) {
	d.logger.Info("Starting Outbox Dispatcher",
		zap.Int("max_retries", d.maxRetries),
		zap.Duration("interval", d.interval),
		zap.Int("batch_size", d.batchSize),
	)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Outbox Dispatcher stopped")
			return
		case <-ticker.C:
			d.ProcessPending(ctx)
		}
	}
}

// ProcessPending 处理一批待发送的事件，返回成功发布的数量
func (d *Dispatcher) ProcessPending(ctx context.Context) int {
	events, err := d.store.GetPendingEvents(ctx, d.batchSize)
	if err != nil {
		d.logger.Error("Failed to get pending events", zap.Error(err))
		return 0
	}
	if len(events) == 0 {
		return 0
	}

	d.logger.Debug("Processing pending events", zap.Int("count", len(events)))

	sent := 0
	for _, event := range events {
		if err := d.publishEvent(ctx, event); err != nil {
			metrics.IncrementOutboxPublished(StatusFailed)
			d.logger.Error("Failed to publish event",
				zap.Int64("event_id", event.ID),
				zap.String("routing_key", event.RoutingKey),
				zap.Int("retry_count", event.RetryCount),
				zap.Error(err),
			)
			if err := d.store.MarkAsFailed(ctx, event.ID, d.maxRetries); err != nil {
				d.logger.Error("Failed to mark event as failed",
					zap.Int64("event_id", event.ID),
					zap.Error(err),
				)
			}
			continue
		}

		metrics.IncrementOutboxPublished(StatusSent)
		sent++
		if err := d.store.MarkAsSent(ctx, event.ID); err != nil {
			// 事件会在租期后被重新发布，下游需按 id 幂等
			d.logger.Error("Failed to mark event as sent",
				zap.Int64("event_id", event.ID),
				zap.Error(err),
			)
		}
	}
	return sent
}

func (d *Dispatcher) publishEvent(ctx context.Context, event *Event) error {
	if id := traceIDFromPayload(event.Payload); id != "" {
		ctx = trace.WithContext(ctx, id)
	}
	if err := d.publisher.PublishRaw(ctx, event.RoutingKey, event.Payload); err != nil {
		return fmt.Errorf("failed to publish to MQ: %w", err)
	}
	return nil
}
