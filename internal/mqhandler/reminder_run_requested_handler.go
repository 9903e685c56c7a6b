package mqhandler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	mqcontracts "wastereminder/contracts/mq"
	"wastereminder/internal/scheduler"
	"wastereminder/internal/service/reminder"
	"wastereminder/pkg/logger"
	"wastereminder/pkg/mq"
	"wastereminder/pkg/trace"
	"wastereminder/pkg/util"
)

// RunTrigger 启动一次提醒任务
type RunTrigger interface {
	TryRunAt(ctx context.Context, source string, at time.Time) (reminder.RunReport, error)
}

type ReminderRunRequestedHandler struct {
	trigger RunTrigger
	logger  *zap.Logger
}

func NewReminderRunRequestedHandler(trigger RunTrigger, logger *zap.Logger) *ReminderRunRequestedHandler {
	return &ReminderRunRequestedHandler{
		trigger: trigger,
		logger:  logger,
	}
}

// Handle -- 处理 reminder.run.requested，同步执行一次提醒任务
func (h *ReminderRunRequestedHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	var p mqcontracts.ReminderRunRequestedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.logger.Error("Failed to unmarshal ReminderRunRequestedPayload", zap.Error(err))
		return mq.Permanent(fmt.Errorf("decode reminder.run.requested: %w", err))
	}
	if p.TraceID != "" && trace.FromContext(ctx) == "" {
		ctx = trace.WithContext(ctx, p.TraceID)
	}
	log := logger.WithTrace(ctx, h.logger)

	var at time.Time
	if p.Now != nil {
		at = *p.Now
	}

	log.Info("Handling reminder.run.requested event",
		zap.String("requested_by", p.RequestedBy),
		zap.Time("requested_at", p.RequestedAt),
	)

	report, err := h.trigger.TryRunAt(ctx, scheduler.SourceMQ, at)
	switch {
	case errors.Is(err, scheduler.ErrRunInProgress):
		// 已有任务在运行，本次请求被跳过，消息正常确认
		return nil
	case err != nil && !util.IsRetryable(err):
		// 重放无法修复的失败直接进入死信队列，等待下一次调度
		log.Error("Reminder run failed permanently, dead-lettering request", zap.Error(err))
		return mq.Permanent(fmt.Errorf("reminder run: %w", err))
	case err != nil:
		return fmt.Errorf("reminder run: %w", err)
	}

	log.Info("Reminder run requested via MQ completed", report.Fields()...)
	return nil
}
