package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// 任务创建计数
	TasksCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tasks_created_total",
			Help: "Total number of tasks created",
		},
	)

	// 任务状态流转计数
	TaskStatusTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "task_status_transitions_total",
			Help: "Total number of task status transitions",
		},
		[]string{"from", "to"},
	)

	// 通知计数
	Notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Total number of notifications emitted by the workflow engine",
		},
		[]string{"kind", "result"}, // result: queued, failed, skipped
	)

	// 编号/位置分配冲突重试计数
	NumberingRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "numbering_retries_total",
			Help: "Total number of retries caused by numbering or position conflicts",
		},
		[]string{"scope"}, // scope: task, comment, slug
	)

	// Outbox 事件发布计数
	OutboxPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_events_published_total",
			Help: "Total number of outbox events published to MQ",
		},
		[]string{"result"},
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

	// 慢查询计数
	SlowQueries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "slow_query_total",
			Help: "Total number of queries slower than the configured threshold",
		},
	)

	// HTTP 请求延迟（秒）
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"method", "path", "status"},
	)
)

// IncrementTaskCreated 增加任务创建计数
func IncrementTaskCreated() {
	TasksCreated.Inc()
}

// RecordStatusTransition 记录一次状态流转
func RecordStatusTransition(from, to string) {
	TaskStatusTransitions.WithLabelValues(from, to).Inc()
}

// RecordNotification 记录通知结果
func RecordNotification(kind, result string) {
	Notifications.WithLabelValues(kind, result).Inc()
}

// IncrementNumberingRetry 增加冲突重试计数
func IncrementNumberingRetry(scope string) {
	NumberingRetries.WithLabelValues(scope).Inc()
}

// RecordOutboxPublish 记录 outbox 发布结果
func RecordOutboxPublish(result string) {
	OutboxPublished.WithLabelValues(result).Inc()
}

// RecordDBQueryDuration 记录数据库查询延迟
func RecordDBQueryDuration(operation string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// IncrementSlowQuery 增加慢查询计数
func IncrementSlowQuery() {
	SlowQueries.Inc()
}

// RecordHTTPRequestDuration 记录 HTTP 请求延迟
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}
