// Package scheduler 定时触发收运提醒与通知清理，并保证同一时刻最多只有一次提醒任务在运行。
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"wastereminder/internal/service/reminder"
	"wastereminder/pkg/metrics"
	"wastereminder/pkg/trace"
)

// ErrRunInProgress 已有提醒任务在运行，本次触发被跳过
var ErrRunInProgress = errors.New("reminder run already in progress")

// 触发来源
const (
	SourceCron = "cron"
	SourceHTTP = "http"
	SourceMQ   = "mq"
)

// Runner 执行一次提醒任务
type Runner interface {
	Run(ctx context.Context, now time.Time) (reminder.RunReport, error)
}

// Locker 跨实例互斥锁
type Locker interface {
	TryAcquire(ctx context.Context) (release func(), ok bool, err error)
}

// NotificationPurger 按创建时间清理通知
type NotificationPurger interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// OutboxPurger 清理已发送的 outbox 事件
type OutboxPurger interface {
	DeleteSentBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Config 调度配置
type Config struct {
	ReminderCron  string        `yaml:"reminder_cron"`
	RetentionCron string        `yaml:"retention_cron"`
	RetentionDays int           `yaml:"retention_days"`
	RunTimeout    time.Duration `yaml:"run_timeout"`
	Timezone      string        `yaml:"timezone"`
}

// Stats 调度器运行统计
type Stats struct {
	Runs       int64               `json:"runs"`
	Failures   int64               `json:"failures"`
	Skipped    int64               `json:"skipped"`
	Running    bool                `json:"running"`
	LastReport *reminder.RunReport `json:"last_report,omitempty"`
}

// Scheduler 提醒任务的唯一入口：cron、HTTP 与 MQ 触发都经过同一个守卫
type Scheduler struct {
	cfg    Config
	loc    *time.Location
	cron   *cron.Cron
	runner Runner
	purger NotificationPurger
	outbox OutboxPurger
	locker Locker
	logger *zap.Logger
	now    func() time.Time

	running    atomic.Bool
	runs       atomic.Int64
	failures   atomic.Int64
	skipped    atomic.Int64
	lastReport atomic.Pointer[reminder.RunReport]

	baseCtx context.Context
	cancel  context.CancelFunc
	async   sync.WaitGroup
}

func New(cfg Config, loc *time.Location, runner Runner, purger NotificationPurger, logger *zap.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	if cfg.ReminderCron == "" {
		cfg.ReminderCron = "0 18 * * *"
	}
	if cfg.RetentionCron == "" {
		cfg.RetentionCron = "0 3 * * *"
	}
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = 90
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 30 * time.Minute
	}

	cronLogger := cron.PrintfLogger(zap.NewStdLog(logger.Named("cron")))
	baseCtx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cfg:     cfg,
		loc:     loc,
		cron:    cron.New(cron.WithLocation(loc), cron.WithChain(cron.Recover(cronLogger))),
		runner:  runner,
		purger:  purger,
		logger:  logger,
		now:     time.Now,
		baseCtx: baseCtx,
		cancel:  cancel,
	}
}

// WithLocker 启用跨实例锁
func (s *Scheduler) WithLocker(l Locker) *Scheduler {
	s.locker = l
	return s
}

// WithOutboxPurger 清理任务同时清理已发送的 outbox 事件
func (s *Scheduler) WithOutboxPurger(p OutboxPurger) *Scheduler {
	s.outbox = p
	return s
}

// Start 注册 cron 任务并启动
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.cfg.ReminderCron, func() {
		ctx, cancel := context.WithTimeout(s.baseCtx, s.cfg.RunTimeout)
		defer cancel()
		_, _ = s.TryRun(ctx, SourceCron)
	}); err != nil {
		return fmt.Errorf("invalid reminder cron %q: %w", s.cfg.ReminderCron, err)
	}

	if _, err := s.cron.AddFunc(s.cfg.RetentionCron, func() {
		ctx, cancel := context.WithTimeout(s.baseCtx, 10*time.Minute)
		defer cancel()
		_ = s.Purge(ctx)
	}); err != nil {
		return fmt.Errorf("invalid retention cron %q: %w", s.cfg.RetentionCron, err)
	}

	s.cron.Start()
	s.logger.Info("Scheduler started",
		zap.String("reminder_cron", s.cfg.ReminderCron),
		zap.String("retention_cron", s.cfg.RetentionCron),
		zap.String("timezone", s.loc.String()),
	)
	return nil
}

// Stop 停止调度并等待正在运行的任务结束，ctx 超时后取消运行中的任务
func (s *Scheduler) Stop(ctx context.Context) {
	s.logger.Info("Stopping scheduler...")
	cronDone := s.cron.Stop()

	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		s.async.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out, cancelling running jobs")
		s.cancel()
		<-done
	}
	s.cancel()
	s.logger.Info("Scheduler gracefully stopped")
}

// TryRun 同步执行一次提醒任务；已有任务运行时立即返回 ErrRunInProgress
func (s *Scheduler) TryRun(ctx context.Context, source string) (reminder.RunReport, error) {
	return s.TryRunAt(ctx, source, time.Time{})
}

// TryRunAt 以指定时刻执行，at 为零值时使用当前时间
func (s *Scheduler) TryRunAt(ctx context.Context, source string, at time.Time) (reminder.RunReport, error) {
	if !s.running.CompareAndSwap(false, true) {
		s.skip(source, "in_process")
		return reminder.RunReport{}, ErrRunInProgress
	}
	defer s.running.Store(false)
	return s.execute(ctx, source, at)
}

// TriggerAsync 在后台执行一次提醒任务，返回是否被接受
func (s *Scheduler) TriggerAsync(source string) bool {
	if !s.running.CompareAndSwap(false, true) {
		s.skip(source, "in_process")
		return false
	}

	s.async.Add(1)
	go func() {
		defer s.async.Done()
		defer s.running.Store(false)

		ctx, cancel := context.WithTimeout(s.baseCtx, s.cfg.RunTimeout)
		defer cancel()
		_, _ = s.execute(ctx, source, time.Time{})
	}()
	return true
}

// execute 需在持有进程内守卫时调用
func (s *Scheduler) execute(ctx context.Context, source string, at time.Time) (reminder.RunReport, error) {
	if at.IsZero() {
		at = s.now()
	}
	ctx, traceID := trace.Ensure(ctx)
	log := s.logger.With(zap.String("source", source), zap.String("trace_id", traceID))

	if s.locker != nil {
		release, ok, err := s.locker.TryAcquire(ctx)
		switch {
		case err != nil:
			// Redis 不可用时退化为进程内互斥
			log.Warn("Run lock unavailable, continuing with in-process guard", zap.Error(err))
		case !ok:
			s.skip(source, "lock_held")
			return reminder.RunReport{}, ErrRunInProgress
		default:
			defer release()
		}
	}

	log.Info("Reminder run triggered", zap.Time("at", at))
	report, err := s.runner.Run(ctx, at)
	s.runs.Add(1)
	s.lastReport.Store(&report)
	if err != nil {
		s.failures.Add(1)
		log.Error("Reminder run failed, waiting for next trigger", zap.Error(err))
		return report, err
	}
	return report, nil
}

func (s *Scheduler) skip(source, reason string) {
	s.skipped.Add(1)
	metrics.IncrementTriggerSkipped(source)
	s.logger.Warn("Reminder trigger skipped, a run is already in progress",
		zap.String("source", source),
		zap.String("reason", reason),
	)
}

// Purge 删除超过保留期的通知（以及已发送的 outbox 事件）
func (s *Scheduler) Purge(ctx context.Context) error {
	cutoff := s.now().AddDate(0, 0, -s.cfg.RetentionDays)

	n, err := s.purger.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		s.logger.Error("Notification retention sweep failed", zap.Error(err))
		return fmt.Errorf("purge notifications: %w", err)
	}
	metrics.AddNotificationsPurged(n)

	if s.outbox != nil {
		m, err := s.outbox.DeleteSentBefore(ctx, cutoff)
		if err != nil {
			s.logger.Error("Outbox retention sweep failed", zap.Error(err))
			return fmt.Errorf("purge outbox: %w", err)
		}
		s.logger.Info("Sent outbox events purged", zap.Int64("deleted", m))
	}
	return nil
}

// Running 是否有任务在运行
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// Stats 运行统计
func (s *Scheduler) Stats() Stats {
	return Stats{
		Runs:       s.runs.Load(),
		Failures:   s.failures.Load(),
		Skipped:    s.skipped.Load(),
		Running:    s.running.Load(),
		LastReport: s.lastReport.Load(),
	}
}

// LoadLocation 解析时区，空值为 UTC
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", name, err)
	}
	return loc, nil
}
