package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"wastereminder/internal/mailer"
	"wastereminder/internal/scheduler"
	"wastereminder/pkg/config"
	"wastereminder/pkg/logger"
	"wastereminder/pkg/otel"
)

// ReminderConfig 提醒任务配置
type ReminderConfig struct {
	Workers          int           `yaml:"workers"`
	RecipientTimeout time.Duration `yaml:"recipient_timeout"`
	RadiusKM         float64       `yaml:"radius_km"`
	DedupTTL         time.Duration `yaml:"dedup_ttl"`
	UseRedisLock     bool          `yaml:"use_redis_lock"`
	LockTTL          time.Duration `yaml:"lock_ttl"`
}

// OutboxConfig outbox 投递配置
type OutboxConfig struct {
	Interval   time.Duration `yaml:"interval"`
	BatchSize  int           `yaml:"batch_size"`
	MaxRetries int           `yaml:"max_retries"`
}

// ConsumerConfig 触发队列配置
type ConsumerConfig struct {
	Queue    string `yaml:"queue"`
	Prefetch int    `yaml:"prefetch"`
}

type Config struct {
	DB        config.DBConfig     `yaml:"db"`
	MQ        config.MQConfig     `yaml:"mq"`
	Redis     config.RedisConfig  `yaml:"redis"`
	JWT       config.JWTConfig    `yaml:"jwt"`
	Server    config.ServerConfig `yaml:"server"`
	Log       logger.Config       `yaml:"log"`
	OTel      otel.Config         `yaml:"otel"`
	Reminder  ReminderConfig      `yaml:"reminder"`
	Scheduler scheduler.Config    `yaml:"scheduler"`
	Mail      mailer.Config       `yaml:"mail"`
	Outbox    OutboxConfig        `yaml:"outbox"`
	Consumer  ConsumerConfig      `yaml:"consumer"`
}

// Default 未配置项的默认值
func Default() Config {
	return Config{
		DB: config.DBConfig{
			Host:          "localhost",
			Port:          5432,
			SSLMode:       "disable",
			MaxConns:      10,
			MinConns:      1,
			SlowThreshold: 200 * time.Millisecond,
		},
		Server: config.ServerConfig{Port: "8086"},
		Log:    logger.Config{Level: "info"},
		OTel:   otel.Config{ServiceName: "waste-reminder", SampleRatio: 1},
		Reminder: ReminderConfig{
			Workers:          8,
			RecipientTimeout: 10 * time.Second,
			RadiusKM:         5,
			DedupTTL:         48 * time.Hour,
			LockTTL:          time.Hour,
		},
		Scheduler: scheduler.Config{
			ReminderCron:  "0 18 * * *",
			RetentionCron: "0 3 * * *",
			RetentionDays: 90,
			RunTimeout:    30 * time.Minute,
			Timezone:      "UTC",
		},
		Mail: mailer.Config{RatePerSecond: 20, Burst: 20},
		Outbox: OutboxConfig{
			Interval:   time.Second,
			BatchSize:  100,
			MaxRetries: 5,
		},
		Consumer: ConsumerConfig{Queue: "reminder.run.requested.q", Prefetch: 1},
	}
}

// Load 读取 configDir 下的分层配置，再用环境变量覆盖
func Load(env, configDir string) (*Config, error) {
	cfgMap, err := config.LoadConfig(env, configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	cfg := Default()
	if err := config.Decode(cfgMap, &cfg); err != nil {
		return nil, err
	}

	// 环境变量覆盖（优先级最高）
	config.OverrideDBFromEnv(&cfg.DB)
	config.OverrideMQFromEnv(&cfg.MQ)
	config.OverrideRedisFromEnv(&cfg.Redis)
	config.OverrideJWTFromEnv(&cfg.JWT)
	config.OverrideServerFromEnv(&cfg.Server)
	overrideReminderFromEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func overrideReminderFromEnv(cfg *Config) {
	config.EnvString("REMINDER_CRON", &cfg.Scheduler.ReminderCron)
	config.EnvString("REMINDER_TIMEZONE", &cfg.Scheduler.Timezone)
	config.EnvFloat("REMINDER_RADIUS_KM", &cfg.Reminder.RadiusKM)
	config.EnvInt("REMINDER_WORKERS", &cfg.Reminder.Workers)
	config.EnvString("LOG_LEVEL", &cfg.Log.Level)
}

// Validate 检查启动必需的配置
func (c *Config) Validate() error {
	var errs []error
	if c.DB.Host == "" || c.DB.Name == "" {
		errs = append(errs, errors.New("db.host and db.name are required"))
	}
	if missing(c.MQ.URL) {
		errs = append(errs, errors.New("mq.url is required"))
	}
	if missing(c.JWT.Secret) {
		errs = append(errs, errors.New("jwt.secret is required"))
	}
	if c.Reminder.Workers <= 0 {
		errs = append(errs, fmt.Errorf("reminder.workers must be positive, got %d", c.Reminder.Workers))
	}
	if c.Reminder.RadiusKM <= 0 {
		errs = append(errs, fmt.Errorf("reminder.radius_km must be positive, got %v", c.Reminder.RadiusKM))
	}
	if c.Scheduler.RetentionDays <= 0 {
		errs = append(errs, fmt.Errorf("scheduler.retention_days must be positive, got %d", c.Scheduler.RetentionDays))
	}
	if _, err := scheduler.LoadLocation(c.Scheduler.Timezone); err != nil {
		errs = append(errs, err)
	}
	if c.Reminder.UseRedisLock && c.Redis.Addr == "" {
		errs = append(errs, errors.New("redis.addr is required when reminder.use_redis_lock is set"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// missing 空值或未被替换的 ${VAR} 占位符
func missing(v string) bool {
	return v == "" || strings.HasPrefix(v, "${")
}
