package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// 提醒任务运行耗时（秒）
	ReminderRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reminder_run_duration_seconds",
			Help:    "Duration of a collection reminder run in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms to ~7min
		},
	)

	// 提醒任务运行计数
	ReminderRunCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminder_run_total",
			Help: "Total number of collection reminder runs",
		},
		[]string{"status"}, // status: success, failed
	)

	// 每次运行处理的排班数
	ReminderSchedulesCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminder_schedules_total",
			Help: "Total number of schedules handled by reminder runs",
		},
		[]string{"outcome"}, // outcome: processed, skipped
	)

	// 收件人处理计数
	ReminderRecipientsCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminder_recipients_total",
			Help: "Total number of reminder recipients by outcome",
		},
		[]string{"outcome"}, // outcome: notified, failed, deduplicated
	)

	// 投递失败计数
	ReminderDeliveryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminder_delivery_failures_total",
			Help: "Total number of failed reminder deliveries",
		},
		[]string{"channel", "reason"}, // channel: email, in_app
	)

	// 因上一次运行未结束而跳过的触发
	ReminderTriggerSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminder_trigger_skipped_total",
			Help: "Reminder triggers skipped because a run was already in progress",
		},
		[]string{"source"}, // source: cron, http, mq
	)

	// 过期通知清理数
	NotificationsPurged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notifications_purged_total",
			Help: "Total number of notifications deleted by the retention sweep",
		},
	)

	// 熔断器状态 0=closed 1=open 2=half_open
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0 closed, 1 open, 2 half-open)",
		},
		[]string{"name"},
	)

	// Outbox 发布计数
	OutboxPublishedCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_published_total",
			Help: "Total number of outbox events handled by the dispatcher",
		},
		[]string{"status"}, // status: sent, failed
	)

	// 数据库慢查询计数
	DBSlowQueryCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "db_slow_query_total",
			Help: "Total number of database queries slower than the threshold",
		},
	)

	// 数据库查询延迟（秒）
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"operation"},
	)

	// HTTP 请求延迟（秒）
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	// MQ 消费延迟（毫秒）
	MQConsumeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mq_consume_latency_ms",
			Help:    "MQ message consumption latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10), // 10ms to ~10s
		},
		[]string{"routing_key", "queue"},
	)
)

// RecordReminderRun 记录一次提醒任务
func RecordReminderRun(status string, duration time.Duration) {
	ReminderRunCount.WithLabelValues(status).Inc()
	ReminderRunDuration.Observe(duration.Seconds())
}

// AddReminderSchedules 累加排班处理结果
func AddReminderSchedules(outcome string, n int) {
	if n > 0 {
		ReminderSchedulesCount.WithLabelValues(outcome).Add(float64(n))
	}
}

// AddReminderRecipients 累加收件人处理结果
func AddReminderRecipients(outcome string, n int) {
	if n > 0 {
		ReminderRecipientsCount.WithLabelValues(outcome).Add(float64(n))
	}
}

// IncrementDeliveryFailure 增加投递失败计数
func IncrementDeliveryFailure(channel, reason string) {
	ReminderDeliveryFailures.WithLabelValues(channel, reason).Inc()
}

// IncrementTriggerSkipped 增加跳过的触发计数
func IncrementTriggerSkipped(source string) {
	ReminderTriggerSkipped.WithLabelValues(source).Inc()
}

// AddNotificationsPurged 累加清理的通知数
func AddNotificationsPurged(n int64) {
	if n > 0 {
		NotificationsPurged.Add(float64(n))
	}
}

// SetCircuitBreakerState 设置熔断器状态
func SetCircuitBreakerState(name string, state int) {
	CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}

// IncrementOutboxPublished 增加 outbox 发布计数
func IncrementOutboxPublished(status string) {
	OutboxPublishedCount.WithLabelValues(status).Inc()
}

// IncrementSlowQuery 记录慢查询
func IncrementSlowQuery(operation string, duration time.Duration) {
	DBSlowQueryCount.Inc()
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordHTTPRequestDuration 记录 HTTP 请求延迟
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordMQConsumeLatency 记录 MQ 消费延迟
func RecordMQConsumeLatency(routingKey, queue string, duration time.Duration) {
	MQConsumeLatency.WithLabelValues(routingKey, queue).Observe(float64(duration.Milliseconds()))
}
