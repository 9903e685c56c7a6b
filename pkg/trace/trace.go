package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
)

type ctxKey struct{}

// HeaderName trace ID 的 HTTP header / MQ header 名称
const HeaderName = "X-Trace-ID"

// GenerateTraceID 生成一个新的 trace ID
func GenerateTraceID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// FromContext 从 context 中获取 trace_id
func FromContext(ctx context.Context) string {
	if traceID, ok := ctx.Value(ctxKey{}).(string); ok {
		return traceID
	}
	return ""
}

// WithContext 将 trace_id 添加到 context 中
func WithContext(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, traceID)
}

// Ensure 如果 context 中没有 trace_id 则生成一个
func Ensure(ctx context.Context) (context.Context, string) {
	if id := FromContext(ctx); id != "" {
		return ctx, id
	}
	id := GenerateTraceID()
	return WithContext(ctx, id), id
}
