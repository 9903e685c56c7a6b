package otel

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"wastereminder/pkg/metrics"
	tracepkg "wastereminder/pkg/trace"
)

// GinMiddleware Gin 追踪中间件：提取上游 trace context，创建 server span，
// 记录请求耗时指标，并在响应头回写 X-Trace-ID
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		propagator := GetTextMapPropagator()
		ctx := propagator.Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))

		traceID := c.GetHeader(tracepkg.HeaderName)
		if traceID == "" {
			traceID = tracepkg.GenerateTraceID()
		}
		ctx = tracepkg.WithContext(ctx, traceID)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		ctx, span := Tracer().Start(ctx, c.Request.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", c.Request.Method),
				attribute.String("http.route", route),
				attribute.String("url.path", c.Request.URL.Path),
				attribute.String("user_agent.original", c.Request.UserAgent()),
				attribute.String("trace_id", traceID),
			),
		)
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		c.Writer.Header().Set(tracepkg.HeaderName, traceID)

		start := time.Now()
		c.Next()
		duration := time.Since(start)

		status := c.Writer.Status()
		span.SetAttributes(
			attribute.Int("http.response.status_code", status),
			attribute.Int("http.response.body.size", c.Writer.Size()),
		)
		if status >= 500 {
			span.SetStatus(codes.Error, "HTTP "+strconv.Itoa(status))
		}
		if len(c.Errors) > 0 {
			span.RecordError(c.Errors.Last())
		}

		metrics.RecordHTTPRequestDuration(c.Request.Method, route, strconv.Itoa(status), duration)
	}
}
