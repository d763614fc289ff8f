package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"techintel-service/service/dataset"
)

var (
	// RequestTotal HTTP请求数，按方法、路由模板和状态码
	RequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "techintel_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
	// RequestDuration HTTP请求耗时
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "techintel_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	// QueryMatches 每次查询的匹配数
	QueryMatches = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "techintel_query_matches",
			Help:    "Number of records matched per company query",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
	)
	// ReloadTotal 数据集重载次数，按触发来源和结果
	ReloadTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "techintel_dataset_reloads_total",
			Help: "Total number of dataset reload attempts",
		},
		[]string{"trigger", "status"},
	)
	// DatasetRecords 当前快照记录数
	DatasetRecords = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "techintel_dataset_records",
			Help: "Number of records in the current dataset snapshot",
		},
	)
	// DatasetRejected 当前快照加载时被拒绝的行数
	DatasetRejected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "techintel_dataset_rejected_rows",
			Help: "Number of rows rejected while loading the current snapshot",
		},
	)
	// RateLimited 被限流的请求数
	RateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "techintel_rate_limited_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
		[]string{"type"},
	)
	// SSEConnections 当前SSE连接数
	SSEConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "techintel_sse_connections",
			Help: "Number of open SSE connections",
		},
	)
)

// RecordReload 实现dataset.ReloadListener
func RecordReload(e dataset.ReloadEvent) {
	if !e.Succeeded() {
		ReloadTotal.WithLabelValues(string(e.Trigger), "error").Inc()
		return
	}
	ReloadTotal.WithLabelValues(string(e.Trigger), "ok").Inc()
	DatasetRecords.Set(float64(e.Records))
	DatasetRejected.Set(float64(e.Rejected))
}
