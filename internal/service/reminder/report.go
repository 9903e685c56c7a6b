package reminder

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// RunReport 一次提醒任务的汇总
type RunReport struct {
	RunID                  string       `json:"run_id"`
	TargetDay              time.Weekday `json:"-"`
	TargetDate             time.Time    `json:"target_date"`
	SchedulesProcessed     int          `json:"schedules_processed"`
	SchedulesSkipped       int          `json:"schedules_skipped"`
	RecipientsNotified     int          `json:"recipients_notified"`
	RecipientsFailed       int          `json:"recipients_failed"`
	RecipientsDeduplicated int          `json:"recipients_deduplicated"`
	EmailFailures          int          `json:"email_failures"`
	NotificationFailures   int          `json:"notification_failures"`
	StartedAt              time.Time    `json:"started_at"`
	FinishedAt             time.Time    `json:"finished_at"`
}

// Duration 运行耗时
func (r RunReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Fields 日志字段
func (r RunReport) Fields() []zap.Field {
	return []zap.Field{
		zap.String("run_id", r.RunID),
		zap.Stringer("target_day", r.TargetDay),
		zap.String("target_date", r.TargetDate.Format(time.DateOnly)),
		zap.Int("schedules_processed", r.SchedulesProcessed),
		zap.Int("schedules_skipped", r.SchedulesSkipped),
		zap.Int("recipients_notified", r.RecipientsNotified),
		zap.Int("recipients_failed", r.RecipientsFailed),
		zap.Int("recipients_deduplicated", r.RecipientsDeduplicated),
		zap.Int("email_failures", r.EmailFailures),
		zap.Int("notification_failures", r.NotificationFailures),
		zap.Duration("duration", r.Duration()),
	}
}

// counters 由各 worker 并发累加
type counters struct {
	notified     atomic.Int64
	failed       atomic.Int64
	deduplicated atomic.Int64
	emailFail    atomic.Int64
	inAppFail    atomic.Int64
}

func (c *counters) fill(r *RunReport) {
	r.RecipientsNotified = int(c.notified.Load())
	r.RecipientsFailed = int(c.failed.Load())
	r.RecipientsDeduplicated = int(c.deduplicated.Load())
	r.EmailFailures = int(c.emailFail.Load())
	r.NotificationFailures = int(c.inAppFail.Load())
}
