package logger

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"wastereminder/pkg/trace"
)

// Config 日志配置
type Config struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

var Log *zap.Logger

// NewLogger 创建默认的生产环境 logger
func NewLogger() *zap.Logger {
	l, err := New(Config{Level: "info"})
	if err != nil {
		panic(err)
	}
	return l
}

// New 根据配置创建 logger，并设置为全局 Log
func New(cfg Config) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
		zcfg.EncoderConfig.TimeKey = "ts"
		zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	if cfg.Level != "" {
		level, err := zapcore.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return nil, err
		}
		zcfg.Level = zap.NewAtomicLevelAt(level)
	}

	l, err := zcfg.Build()
	if err != nil {
		return nil, err
	}
	Log = l
	return l, nil
}

// WithTrace 从 context 中提取 trace_id 并添加到 logger
func WithTrace(ctx context.Context, logger *zap.Logger) *zap.Logger {
	traceID := trace.FromContext(ctx)
	if traceID != "" {
		return logger.With(zap.String("trace_id", traceID))
	}
	return logger
}
