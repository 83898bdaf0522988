package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector 指标收集器
type MetricsCollector struct {
	// HTTP 指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// 数据库连接池
	dbConnectionsActive prometheus.Gauge
	dbConnectionsIdle   prometheus.Gauge

	// 结算流程
	checkoutTransitions *prometheus.CounterVec
	activeWatchers      prometheus.Gauge
	identityChecks      *prometheus.CounterVec
	upstreamDuration    *prometheus.HistogramVec

	// 后台任务
	workerTasks *prometheus.CounterVec
}

var (
	defaultCollector *MetricsCollector
	once             sync.Once
)

// Default 返回进程内唯一的指标收集器（promauto 重复注册会 panic）
func Default() *MetricsCollector {
	once.Do(func() {
		defaultCollector = newMetricsCollector()
	})
	return defaultCollector
}

func newMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		httpRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),

		httpRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		dbConnectionsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "db_connections_active",
				Help: "Number of active database connections",
			},
		),

		dbConnectionsIdle: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "db_connections_idle",
				Help: "Number of idle database connections",
			},
		),

		checkoutTransitions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkout_transitions_total",
				Help: "Checkout state machine transitions",
			},
			[]string{"from", "to"},
		),

		activeWatchers: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "checkout_active_watchers",
				Help: "Number of running payment watchers",
			},
		),

		identityChecks: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "identity_checks_total",
				Help: "Player identity validations by outcome",
			},
			[]string{"game", "outcome"},
		),

		upstreamDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "upstream_request_duration_seconds",
				Help:    "Duration of calls to the backend API",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "status"},
		),

		workerTasks: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "worker_tasks_total",
				Help: "Background tasks by kind and result",
			},
			[]string{"kind", "result"},
		),
	}
}

// RecordHTTPRequest 记录 HTTP 请求
func (mc *MetricsCollector) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	mc.httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	mc.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// UpdateDBConnections 更新数据库连接池指标
func (mc *MetricsCollector) UpdateDBConnections(active, idle int) {
	mc.dbConnectionsActive.Set(float64(active))
	mc.dbConnectionsIdle.Set(float64(idle))
}

// RecordTransition 记录结算状态迁移
func (mc *MetricsCollector) RecordTransition(from, to string) {
	mc.checkoutTransitions.WithLabelValues(from, to).Inc()
}

// WatcherStarted / WatcherStopped 维护支付监听协程数量
func (mc *MetricsCollector) WatcherStarted() { mc.activeWatchers.Inc() }
func (mc *MetricsCollector) WatcherStopped() { mc.activeWatchers.Dec() }

// RecordIdentityCheck 记录身份校验结果
func (mc *MetricsCollector) RecordIdentityCheck(game, outcome string) {
	mc.identityChecks.WithLabelValues(game, outcome).Inc()
}

// RecordUpstream 记录外部 API 调用耗时
func (mc *MetricsCollector) RecordUpstream(operation, status string, duration time.Duration) {
	mc.upstreamDuration.WithLabelValues(operation, status).Observe(duration.Seconds())
}

// RecordTask 记录后台任务结果 (done, retry, dropped)
func (mc *MetricsCollector) RecordTask(kind, result string) {
	mc.workerTasks.WithLabelValues(kind, result).Inc()
}
