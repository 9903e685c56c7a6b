// Package mailer 将收运提醒邮件以 reminder.email.requested 事件交给外部邮件服务。
package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	contractmq "wastereminder/contracts/mq"
	"wastereminder/internal/model"
	"wastereminder/internal/service/reminder"
	"wastereminder/pkg/circuitbreaker"
	"wastereminder/pkg/metrics"
	"wastereminder/pkg/trace"
	"wastereminder/pkg/util"
)

// ErrNoAddress 收件人没有邮箱
var ErrNoAddress = errors.New("recipient has no email address")

// Publisher 发布 MQ 事件
type Publisher interface {
	PublishWithContext(ctx context.Context, routingKey string, payload any) error
}

// Config 邮件发送限流配置
type Config struct {
	RatePerSecond  float64               `yaml:"rate_per_second"`
	Burst          int                   `yaml:"burst"`
	CircuitBreaker circuitbreaker.Config `yaml:"circuit_breaker"`
}

// MQMailer 通过 MQ 投递提醒邮件，带限流与熔断
type MQMailer struct {
	publisher Publisher
	limiter   *rate.Limiter
	breaker   *circuitbreaker.CircuitBreaker
	logger    *zap.Logger
}

func New(publisher Publisher, cfg Config, logger *zap.Logger) *MQMailer {
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	breaker := circuitbreaker.New("mail", cfg.CircuitBreaker).
		OnStateChange(func(name string, from, to circuitbreaker.State) {
			metrics.SetCircuitBreakerState(name, int(to))
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to),
			)
		})
	metrics.SetCircuitBreakerState(breaker.Name(), int(circuitbreaker.StateClosed))

	return &MQMailer{
		publisher: publisher,
		limiter:   rate.NewLimiter(limit, burst),
		breaker:   breaker,
		logger:    logger,
	}
}

// SendCollectionReminder 发布一封提醒邮件
func (m *MQMailer) SendCollectionReminder(ctx context.Context, recipient model.Citizen, p reminder.ReminderPayload) error {
	if strings.TrimSpace(recipient.Email) == "" {
		return fmt.Errorf("user %d: %w", recipient.ID, ErrNoAddress)
	}

	if err := m.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("wait for mail rate limiter: %w", ctxErr)
		}
		return fmt.Errorf("%w: %v", util.ErrRateLimited, err)
	}

	msg := BuildMessage(ctx, recipient, p)
	err := m.breaker.ExecuteContext(ctx, func(ctx context.Context) error {
		return m.publisher.PublishWithContext(ctx, contractmq.RoutingKeyReminderEmailRequested, msg)
	})
	if err != nil {
		return fmt.Errorf("send reminder email to user %d: %w", recipient.ID, err)
	}
	return nil
}

// BuildMessage 由提醒内容生成邮件事件
func BuildMessage(ctx context.Context, recipient model.Citizen, p reminder.ReminderPayload) contractmq.ReminderEmailRequestedPayload {
	return contractmq.ReminderEmailRequestedPayload{
		RunID:          p.RunID,
		UserID:         recipient.ID,
		Email:          recipient.Email,
		Subject:        p.Title(),
		Body:           p.Message(),
		ScheduleID:     p.ScheduleID,
		AreaID:         p.AreaID,
		AreaName:       p.AreaName,
		WasteType:      string(p.WasteType),
		WasteTypeLabel: p.WasteTypeLabel,
		CollectionTime: p.CollectionTime,
		DayName:        p.DayName,
		TargetDate:     p.TargetDateString(),
		TraceID:        trace.FromContext(ctx),
	}
}
