package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the platform
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Agent metrics
	AgentExecutionsTotal   *prometheus.CounterVec
	AgentExecutionDuration *prometheus.HistogramVec

	// Analysis metrics
	ICPAnalysesTotal    *prometheus.CounterVec
	CalculatorRunsTotal prometheus.Counter

	// System metrics
	DatabaseConnections prometheus.Gauge
	ActiveSessions      prometheus.Gauge
	CacheHits           prometheus.Counter
	CacheMisses         prometheus.Counter
	RateLimitRejections *prometheus.CounterVec
	EventsPublished     *prometheus.CounterVec
}

var (
	metricsOnce   sync.Once
	sharedMetrics *Metrics
)

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		sharedMetrics = &Metrics{
			HTTPRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "revintel_http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"method", "path", "status"},
			),
			HTTPRequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "revintel_http_request_duration_seconds",
					Help:    "HTTP request duration in seconds",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"method", "path"},
			),

			AgentExecutionsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "revintel_agent_executions_total",
					Help: "Total number of agent executions",
				},
				[]string{"agent", "operation", "status"},
			),
			AgentExecutionDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "revintel_agent_execution_duration_seconds",
					Help:    "Agent execution duration in seconds",
					Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to 51s
				},
				[]string{"agent", "operation"},
			),

			ICPAnalysesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "revintel_icp_analyses_total",
					Help: "Total number of ICP analyses by resulting tier",
				},
				[]string{"tier"},
			),
			CalculatorRunsTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "revintel_calculator_runs_total",
					Help: "Total number of cost calculator runs",
				},
			),

			DatabaseConnections: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "revintel_database_connections",
					Help: "Number of active database connections",
				},
			),
			ActiveSessions: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "revintel_active_sessions",
					Help: "Number of unexpired customer sessions",
				},
			),
			CacheHits: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "revintel_cache_hits_total",
					Help: "Total number of cache hits",
				},
			),
			CacheMisses: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "revintel_cache_misses_total",
					Help: "Total number of cache misses",
				},
			),
			RateLimitRejections: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "revintel_rate_limit_rejections_total",
					Help: "Total number of rate limited requests",
				},
				[]string{"path"},
			),
			EventsPublished: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "revintel_events_published_total",
					Help: "Total number of events published",
				},
				[]string{"event_type"},
			),
		}
	})

	return sharedMetrics
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration float64) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// RecordAgentExecution records a completed agent execution
func (m *Metrics) RecordAgentExecution(agent, operation, status string, durationMs int64) {
	m.AgentExecutionsTotal.WithLabelValues(agent, operation, status).Inc()
	m.AgentExecutionDuration.WithLabelValues(agent, operation).Observe(float64(durationMs) / 1000.0)
}
