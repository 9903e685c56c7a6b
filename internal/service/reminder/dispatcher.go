// Package reminder 实现收运提醒的扇出流程：解析次日排班，按地理围栏筛选市民，
// 并通过邮件与站内通知两个渠道逐一投递。
package reminder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"wastereminder/internal/geo"
	"wastereminder/internal/model"
	"wastereminder/internal/repository"
	"wastereminder/pkg/logger"
	"wastereminder/pkg/metrics"
	"wastereminder/pkg/otel"
	"wastereminder/pkg/trace"
	"wastereminder/pkg/util"
)

// Mailer 邮件渠道
type Mailer interface {
	SendCollectionReminder(ctx context.Context, recipient model.Citizen, payload ReminderPayload) error
}

// NotificationCreator 站内通知渠道
type NotificationCreator interface {
	Create(ctx context.Context, userID int64, title, message string, ntype model.NotificationType, relatedReportID *int64) (*model.Notification, error)
}

// Deduper 跨次运行的收件人去重
type Deduper interface {
	AcquireOnce(ctx context.Context, key string) bool
	Release(ctx context.Context, key string)
}

const (
	DefaultWorkers          = 8
	DefaultRecipientTimeout = 10 * time.Second
	DefaultRadius           = geo.Distance(5000)
)

type outcome int

const (
	outcomeNotified outcome = iota
	outcomeFailed
	outcomeDeduplicated
)

// Dispatcher 编排一次提醒任务
type Dispatcher struct {
	schedules  *ScheduleResolver
	areas      AreaStore
	recipients *RecipientResolver
	mailer     Mailer
	notifier   NotificationCreator
	deduper    Deduper
	logger     *zap.Logger

	workers          int
	recipientTimeout time.Duration
	radius           geo.Distance
}

func NewDispatcher(
	schedules *ScheduleResolver,
	areas AreaStore,
	recipients *RecipientResolver,
	mailer Mailer,
	notifier NotificationCreator,
	logger *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		schedules:        schedules,
		areas:            areas,
		recipients:       recipients,
		mailer:           mailer,
		notifier:         notifier,
		logger:           logger,
		workers:          DefaultWorkers,
		recipientTimeout: DefaultRecipientTimeout,
		radius:           DefaultRadius,
	}
}

// WithDeduper 启用收件人去重
func (d *Dispatcher) WithDeduper(dd Deduper) *Dispatcher {
	d.deduper = dd
	return d
}

// WithWorkers 设置并发投递数
func (d *Dispatcher) WithWorkers(n int) *Dispatcher {
	if n > 0 {
		d.workers = n
	}
	return d
}

// WithRecipientTimeout 设置单个收件人的处理超时
func (d *Dispatcher) WithRecipientTimeout(t time.Duration) *Dispatcher {
	if t > 0 {
		d.recipientTimeout = t
	}
	return d
}

// WithRadius 设置地理围栏半径
func (d *Dispatcher) WithRadius(r geo.Distance) *Dispatcher {
	if r >= 0 {
		d.radius = r
	}
	return d
}

// Run 执行一次提醒任务。存储不可用时返回错误，单个收件人的失败只计入报告
func (d *Dispatcher) Run(ctx context.Context, now time.Time) (RunReport, error) {
	runID := uuid.NewString()
	ctx, _ = trace.Ensure(ctx)
	ctx, span := otel.StartSpan(ctx, "reminder.run")
	defer span.End()

	targetDate := d.schedules.TargetDate(now)
	report := RunReport{
		RunID:      runID,
		TargetDay:  targetDate.Weekday(),
		TargetDate: targetDate,
		StartedAt:  time.Now(),
	}
	span.SetAttributes(
		attribute.String("reminder.run_id", runID),
		attribute.String("reminder.target_date", targetDate.Format(time.DateOnly)),
	)

	log := logger.WithTrace(ctx, d.logger).With(zap.String("run_id", runID))
	log.Info("Reminder run started",
		zap.Stringer("target_day", report.TargetDay),
		zap.Int("workers", d.workers),
		zap.Stringer("radius", d.radius),
	)

	var c counters
	err := d.run(ctx, log, runID, now, targetDate, &report, &c)

	c.fill(&report)
	report.FinishedAt = time.Now()
	d.record(report, err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "reminder run failed")
		log.Error("Reminder run failed", append(report.Fields(), zap.Error(err))...)
		return report, err
	}
	log.Info("Reminder run finished", report.Fields()...)
	return report, nil
}

func (d *Dispatcher) run(
	ctx context.Context,
	log *zap.Logger,
	runID string,
	now, targetDate time.Time,
	report *RunReport,
	c *counters,
) error {
	schedules, err := d.schedules.DueTomorrow(ctx, now)
	if err != nil {
		return err
	}
	log.Info("Schedules due", zap.Int("count", len(schedules)))

	for _, s := range schedules {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("reminder run interrupted: %w", err)
		}
		processed, err := d.processSchedule(ctx, log, runID, s, targetDate, c)
		if err != nil {
			if processed {
				report.SchedulesProcessed++
			}
			return err
		}
		if processed {
			report.SchedulesProcessed++
		} else {
			report.SchedulesSkipped++
		}
	}
	return nil
}

// processSchedule 返回 false 表示排班被跳过
func (d *Dispatcher) processSchedule(
	ctx context.Context,
	log *zap.Logger,
	runID string,
	s model.Schedule,
	targetDate time.Time,
	c *counters,
) (bool, error) {
	ctx, span := otel.StartSpan(ctx, "reminder.schedule")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("reminder.schedule_id", s.ID),
		attribute.Int64("reminder.area_id", s.AreaID),
	)
	log = log.With(zap.Int64("schedule_id", s.ID), zap.Int64("area_id", s.AreaID))

	area, err := d.areas.GetByID(ctx, s.AreaID)
	if errors.Is(err, repository.ErrNotFound) {
		log.Warn("Schedule skipped, area not found")
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load area %d for schedule %d: %w", s.AreaID, s.ID, err)
	}
	if !area.Lifecycle.IsActive() {
		log.Info("Schedule skipped, area inactive", zap.String("area_state", string(area.Lifecycle.State)))
		return false, nil
	}

	recipients, err := d.recipients.EligibleCitizens(ctx, *area, d.radius)
	if err != nil {
		return false, err
	}
	span.SetAttributes(attribute.Int("reminder.recipients", len(recipients)))

	payload := NewPayload(runID, s, *area, targetDate)
	log.Info("Dispatching schedule",
		zap.String("area", area.Name),
		zap.String("waste_type", string(s.WasteType)),
		zap.Int("recipients", len(recipients)),
	)

	d.fanOut(ctx, log, payload, recipients, c)
	if err := ctx.Err(); err != nil {
		return true, fmt.Errorf("reminder run interrupted: %w", err)
	}
	return true, nil
}

// fanOut 在有界 worker 池中逐个投递，等待已启动的投递完成；ctx 结束后不再启动新的投递
func (d *Dispatcher) fanOut(ctx context.Context, log *zap.Logger, p ReminderPayload, recipients []model.Citizen, c *counters) {
	sem := make(chan struct{}, d.workers)
	var wg sync.WaitGroup
	defer wg.Wait()

	for i, r := range recipients {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			log.Warn("Run cancelled, remaining recipients not attempted", zap.Int("remaining", len(recipients)-i))
			return
		}
		wg.Add(1)
		go func(r model.Citizen) {
			defer wg.Done()
			defer func() { <-sem }()

			switch d.deliver(ctx, log, p, r, c) {
			case outcomeNotified:
				c.notified.Add(1)
			case outcomeDeduplicated:
				c.deduplicated.Add(1)
			default:
				c.failed.Add(1)
			}
		}(r)
	}
}

// deliver 处理单个收件人，任何失败都不会影响其他收件人
func (d *Dispatcher) deliver(ctx context.Context, log *zap.Logger, p ReminderPayload, r model.Citizen, c *counters) (result outcome) {
	log = log.With(zap.Int64("user_id", r.ID))
	key := util.ReminderKey(p.ScheduleID, r.ID, p.TargetDate)
	acquired := false

	ctx, cancel := context.WithTimeout(ctx, d.recipientTimeout)
	defer cancel()

	defer func() {
		if rec := recover(); rec != nil {
			log.Error("Recipient processing panicked", zap.Any("panic", rec))
			result = outcomeFailed
		}
		if result == outcomeFailed && acquired {
			// 释放去重键，允许同日重跑时再次尝试
			d.deduper.Release(context.WithoutCancel(ctx), key)
		}
	}()

	if d.deduper != nil {
		if !d.deduper.AcquireOnce(ctx, key) {
			log.Debug("Recipient already reminded for this date")
			return outcomeDeduplicated
		}
		acquired = true
	}

	emailOK := true
	if err := d.mailer.SendCollectionReminder(ctx, r, p); err != nil {
		emailOK = false
		c.emailFail.Add(1)
		d.deliveryFailed(log, "email", err)
	}

	inAppOK := true
	if _, err := d.notifier.Create(ctx, r.ID, p.Title(), p.Message(), model.NotificationCollectionReminder, nil); err != nil {
		inAppOK = false
		c.inAppFail.Add(1)
		d.deliveryFailed(log, "in_app", err)
	}

	if !emailOK && !inAppOK {
		return outcomeFailed
	}
	return outcomeNotified
}

func (d *Dispatcher) deliveryFailed(log *zap.Logger, channel string, err error) {
	reason := util.ClassifyDeliveryError(err)
	metrics.IncrementDeliveryFailure(channel, reason)
	log.Warn("Reminder delivery failed",
		zap.String("channel", channel),
		zap.String("reason", reason),
		zap.Error(err),
	)
}

func (d *Dispatcher) record(r RunReport, err error) {
	status := "success"
	if err != nil {
		status = "failed"
	}
	metrics.RecordReminderRun(status, r.Duration())
	metrics.AddReminderSchedules("processed", r.SchedulesProcessed)
	metrics.AddReminderSchedules("skipped", r.SchedulesSkipped)
	metrics.AddReminderRecipients("notified", r.RecipientsNotified)
	metrics.AddReminderRecipients("failed", r.RecipientsFailed)
	metrics.AddReminderRecipients("deduplicated", r.RecipientsDeduplicated)
}
