package db

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"wastereminder/pkg/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DBConfig{
		Host: "pg", Port: 5432, User: "waste", Password: "p@ss word", Name: "reminders",
	})
	assert.Equal(t, "postgres://waste:p%40ss%20word@pg:5432/reminders?sslmode=disable", dsn)
}

func TestSlowQueryTracer(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	tracer := NewSlowQueryTracer(zap.New(core), 50*time.Millisecond)

	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tracer.now = func() time.Time { return clock }

	ctx := tracer.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: "SELECT  id\n FROM areas"})
	clock = clock.Add(10 * time.Millisecond)
	tracer.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{CommandTag: pgconn.NewCommandTag("SELECT 1")})
	assert.Equal(t, 0, logs.Len())

	ctx = tracer.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: "SELECT  id\n FROM areas"})
	clock = clock.Add(80 * time.Millisecond)
	tracer.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{CommandTag: pgconn.NewCommandTag("SELECT 1")})

	entries := logs.FilterMessage("slow-query").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "SELECT id FROM areas", entries[0].ContextMap()["sql"])
}

func TestOperationOf(t *testing.T) {
	assert.Equal(t, "update", operationOf("  UPDATE notifications SET is_read = TRUE"))
	assert.Equal(t, "unknown", operationOf(""))
}
