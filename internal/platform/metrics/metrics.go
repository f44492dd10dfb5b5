package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// once 用来保证指标只注册一次。
	// Prometheus 的 registry 不允许重复注册同名指标，否则会直接 panic。
	once sync.Once

	// HTTPRequestsTotal：累计请求数（Counter）。
	//
	// labels：
	// - method：HTTP 方法
	// - route：路由模板（用 pattern 而不是带短码的真实 path，避免无限 label）
	// - status：HTTP 状态码字符串
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDurationSeconds：请求耗时分布（Histogram），用于 P95/P99。
	HTTPRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency distributions.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// HTTPInflightRequests：当前正在处理中的请求数（Gauge）。
	HTTPInflightRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Current number of in-flight HTTP requests.",
		},
	)

	// LinkCreatedTotal：成功创建的短链数。
	LinkCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "link_created_total",
			Help: "Total number of short links created.",
		},
	)

	// LinkRejectedTotal：被校验拒绝的创建请求数，按拒绝原因分。
	LinkRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "link_rejected_total",
			Help: "Total number of create requests rejected by validation.",
		},
		[]string{"cause"},
	)

	// LinkRedirectsTotal：成功跳转次数。
	LinkRedirectsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "link_redirects_total",
			Help: "Total number of successful redirects.",
		},
	)

	// CleanupDeactivatedTotal：清理任务累计停用的过期短链数。
	CleanupDeactivatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "link_cleanup_deactivated_total",
			Help: "Total number of expired links deactivated by the cleanup job.",
		},
	)

	// CacheOperations：缓存层操作计数（layer: miss_cache；result: hit_negative/miss）。
	CacheOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_operations_total",
			Help: "Cache operations by layer and result.",
		},
		[]string{"layer", "result"},
	)
)

// Init 注册指标：只允许注册一次（否则 panic: duplicate metrics collector registration）
func Init() {
	once.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDurationSeconds,
			HTTPInflightRequests,
			LinkCreatedTotal,
			LinkRejectedTotal,
			LinkRedirectsTotal,
			CleanupDeactivatedTotal,
			CacheOperations,
		)
	})
}
