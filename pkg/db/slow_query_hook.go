package db

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"wastereminder/pkg/metrics"
)

type queryStartKey struct{}

type queryStart struct {
	at  time.Time
	sql string
}

// SlowQueryTracer 慢查询监控 Tracer
type SlowQueryTracer struct {
	logger        *zap.Logger
	slowThreshold time.Duration // 慢查询阈值，默认 100ms
	now           func() time.Time
}

// NewSlowQueryTracer 创建慢查询 Tracer
func NewSlowQueryTracer(logger *zap.Logger, slowThreshold time.Duration) *SlowQueryTracer {
	if slowThreshold == 0 {
		slowThreshold = 100 * time.Millisecond
	}
	return &SlowQueryTracer{
		logger:        logger,
		slowThreshold: slowThreshold,
		now:           time.Now,
	}
}

// TraceQueryStart 查询开始时的钩子
func (t *SlowQueryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, queryStartKey{}, queryStart{at: t.now(), sql: data.SQL})
}

// TraceQueryEnd 查询结束时的钩子
func (t *SlowQueryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	start, ok := ctx.Value(queryStartKey{}).(queryStart)
	if !ok {
		return
	}

	duration := t.now().Sub(start.at)
	if duration <= t.slowThreshold {
		return
	}

	// 截断 SQL 语句（避免日志过长）
	sql := strings.Join(strings.Fields(start.sql), " ")
	if len(sql) > 200 {
		sql = sql[:200] + "..."
	}

	fields := []zap.Field{
		zap.String("sql", sql),
		zap.Duration("took", duration),
		zap.String("command_tag", data.CommandTag.String()),
	}
	if data.Err != nil {
		fields = append(fields, zap.Error(data.Err))
	}
	t.logger.Warn("slow-query", fields...)

	metrics.IncrementSlowQuery(operationOf(start.sql), duration)
}

// operationOf 取 SQL 的第一个关键字作为操作名
func operationOf(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "unknown"
	}
	return strings.ToLower(fields[0])
}
