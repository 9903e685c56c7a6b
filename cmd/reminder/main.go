package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	mqcontracts "wastereminder/contracts/mq"
	"wastereminder/internal/config"
	"wastereminder/internal/geo"
	"wastereminder/internal/handler"
	"wastereminder/internal/httpserver"
	"wastereminder/internal/mailer"
	"wastereminder/internal/mqhandler"
	"wastereminder/internal/repository"
	"wastereminder/internal/scheduler"
	"wastereminder/internal/service/notification"
	"wastereminder/internal/service/reminder"
	pkgconfig "wastereminder/pkg/config"
	"wastereminder/pkg/db"
	"wastereminder/pkg/logger"
	"wastereminder/pkg/mq"
	"wastereminder/pkg/otel"
	"wastereminder/pkg/outbox"
	"wastereminder/pkg/redis"
	"wastereminder/pkg/util"
)

func main() {
	cfg, err := config.Load(pkgconfig.GetConfigEnv(), pkgconfig.GetEnv("CONFIG_DIR", "config"))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync()

	logr.Info("Starting waste-reminder...",
		zap.String("db_host", cfg.DB.Host),
		zap.Int("db_port", cfg.DB.Port),
		zap.String("reminder_cron", cfg.Scheduler.ReminderCron),
		zap.String("timezone", cfg.Scheduler.Timezone),
	)

	// Tracing
	shutdownTracing, err := otel.Init(cfg.OTel, logr)
	if err != nil {
		logr.Fatal("Failed to init tracing", zap.Error(err))
	}
	defer shutdownTracing()

	// DB
	logr.Info("Initializing database connection...")
	dbConn, err := db.NewConnection(cfg.DB, logr)
	if err != nil {
		logr.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()
	logr.Info("Database connection established successfully")

	// Redis（可选：去重与跨实例锁）
	var rdb *goredis.Client
	if cfg.Redis.Addr != "" {
		rdb, err = redis.NewRedisClient(cfg.Redis, logr)
		if err != nil {
			if cfg.Reminder.UseRedisLock {
				logr.Fatal("Failed to init Redis", zap.Error(err))
			}
			logr.Warn("Redis unavailable, reminders run without deduplication", zap.Error(err))
			rdb = nil
		} else {
			defer rdb.Close()
		}
	}

	// MQ Publisher
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		logr.Fatal("Failed to init MQ publisher", zap.Error(err))
	}
	defer publisher.Close()

	loc, err := scheduler.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		logr.Fatal("Invalid timezone", zap.Error(err))
	}

	// Repositories
	outboxRepo := outbox.NewRepository(dbConn)
	areaRepo := repository.NewAreaRepository(dbConn)
	scheduleRepo := repository.NewScheduleRepository(dbConn, logr)
	userRepo := repository.NewUserRepository(dbConn)
	notificationRepo := repository.NewNotificationRepository(dbConn, outboxRepo)

	// Services
	writer := notification.NewWriter(notificationRepo, logr)
	mail := mailer.New(publisher, cfg.Mail, logr)
	schedules := reminder.NewScheduleResolver(scheduleRepo, loc)
	dispatcher := reminder.NewDispatcher(
		schedules,
		areaRepo,
		reminder.NewRecipientResolver(userRepo, logr),
		mail,
		writer,
		logr,
	).
		WithWorkers(cfg.Reminder.Workers).
		WithRecipientTimeout(cfg.Reminder.RecipientTimeout).
		WithRadius(geo.Kilometers(cfg.Reminder.RadiusKM))
	if rdb != nil {
		dispatcher.WithDeduper(util.NewDeduper(rdb, cfg.Reminder.DedupTTL, logr))
	}

	// Scheduler
	sched := scheduler.New(cfg.Scheduler, loc, dispatcher, writer, logr).
		WithOutboxPurger(outboxRepo)
	if rdb != nil && cfg.Reminder.UseRedisLock {
		sched.WithLocker(util.NewRunLock(rdb, "lock:reminder:run", cfg.Reminder.LockTTL))
	}
	if err := sched.Start(); err != nil {
		logr.Fatal("Failed to start scheduler", zap.Error(err))
	}

	// Init Outbox Dispatcher
	outboxCtx, outboxCancel := context.WithCancel(context.Background())
	defer outboxCancel()
	outboxDispatcher := outbox.NewDispatcher(outboxRepo, publisher, logr).
		WithInterval(cfg.Outbox.Interval).
		WithBatchSize(cfg.Outbox.BatchSize).
		WithMaxRetries(cfg.Outbox.MaxRetries)
	go outboxDispatcher.Start(outboxCtx)

	// MQ Consumer for reminder.run.requested
	logr.Info("Initializing MQ consumer for reminder.run.requested...",
		zap.String("queue", cfg.Consumer.Queue),
		zap.String("routing_key", mqcontracts.RoutingKeyReminderRunRequested),
	)
	consumer, err := mq.NewConsumer(cfg.MQ.URL, cfg.Consumer.Queue, mqcontracts.RoutingKeyReminderRunRequested, cfg.Consumer.Prefetch, logr)
	if err != nil {
		logr.Fatal("Failed to init consumer", zap.Error(err))
	}
	defer consumer.Close()
	consumer.SetHandler(mqhandler.NewReminderRunRequestedHandler(sched, logr).Handle)

	consumerCtx, consumerCancel := context.WithCancel(context.Background())
	defer consumerCancel()
	go func() {
		logr.Info("Starting reminder.run.requested consumer...")
		if err := consumer.Run(consumerCtx); err != nil && !errors.Is(err, context.Canceled) {
			logr.Error("Reminder trigger consumer stopped", zap.Error(err))
		}
	}()

	// HTTP Server
	checks := map[string]httpserver.ReadinessCheck{
		"db": dbConn.Ping,
		"mq": func(context.Context) error {
			if !publisher.IsConnected() {
				return errors.New("publisher disconnected")
			}
			return nil
		},
	}
	if rdb != nil {
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	router := httpserver.NewRouter(httpserver.Handlers{
		Reminder:     handler.NewReminderHandler(sched, logr),
		Notification: handler.NewNotificationHandler(writer, logr),
		Area:         handler.NewAreaHandler(reminder.NewAreaResolver(areaRepo), schedules, logr),
	}, cfg.JWT.Secret, checks)

	addr := ":" + cfg.Server.Port
	logr.Info("Initializing HTTP server...", zap.String("port", cfg.Server.Port))
	srv := &http.Server{
		Addr:              addr,
		Handler:           router.Engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logr.Info("HTTP server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	logr.Info("waste-reminder is fully initialized and running")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logr.Info("Shutting down waste-reminder gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop MQ consumer
	consumerCancel()

	// Close HTTP server
	logr.Info("Shutting down HTTP server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		logr.Info("HTTP server stopped")
	}

	// 等待运行中的提醒任务结束
	sched.Stop(shutdownCtx)
	outboxCancel()

	logr.Info("waste-reminder shutdown complete")
}
