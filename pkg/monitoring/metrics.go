package monitoring

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector owns a service's Prometheus instruments. It registers the
// standard HTTP metrics at construction and hands out namespaced counters,
// gauges, histograms and summaries for everything service-specific. All
// instruments land on the default registry, so one /metrics endpoint serves
// the whole process.
type MetricsCollector struct {
	// prefix is the sanitized service name every metric name starts with.
	prefix string

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	activeConnections   prometheus.Gauge
	serviceInfo         *prometheus.GaugeVec
}

// NewMetricsCollector builds the collector and registers the HTTP metrics.
// Metric names must not carry hyphens, so the service name is sanitized.
func NewMetricsCollector(serviceName, version, commit string) *MetricsCollector {
	mc := &MetricsCollector{
		prefix: strings.ReplaceAll(serviceName, "-", "_"),
	}

	mc.httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: mc.prefix + "_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)
	mc.httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    mc.prefix + "_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)
	mc.activeConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: mc.prefix + "_active_connections",
			Help: "Number of requests currently being served",
		},
	)
	mc.serviceInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: mc.prefix + "_service_info",
			Help: "Build identity of the running service",
		},
		[]string{"version", "commit"},
	)

	prometheus.MustRegister(
		mc.httpRequestsTotal,
		mc.httpRequestDuration,
		mc.activeConnections,
		mc.serviceInfo,
	)
	mc.serviceInfo.WithLabelValues(version, commit).Set(1)

	return mc
}

// MetricsMiddleware records count and duration for every routed request.
// Unrouted paths are bucketed under "unknown" to keep endpoint cardinality
// bounded.
func (mc *MetricsCollector) MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		mc.activeConnections.Inc()
		defer mc.activeConnections.Dec()

		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unknown"
		}
		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())

		mc.httpRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
		mc.httpRequestDuration.WithLabelValues(method, endpoint).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the default registry as the /metrics endpoint.
func (mc *MetricsCollector) Handler() gin.HandlerFunc {
	handler := promhttp.Handler()
	return func(c *gin.Context) {
		handler.ServeHTTP(c.Writer, c.Request)
	}
}

// NewCounter registers a counter vector named <service>_<name>.
func (mc *MetricsCollector) NewCounter(name, help string, labels []string) *prometheus.CounterVec {
	counter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: mc.prefix + "_" + name,
			Help: help,
		},
		labels,
	)
	prometheus.MustRegister(counter)
	return counter
}

// NewGauge registers a gauge vector named <service>_<name>.
func (mc *MetricsCollector) NewGauge(name, help string, labels []string) *prometheus.GaugeVec {
	gauge := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: mc.prefix + "_" + name,
			Help: help,
		},
		labels,
	)
	prometheus.MustRegister(gauge)
	return gauge
}

// NewHistogram registers a histogram vector named <service>_<name>. A nil
// buckets slice falls back to prometheus.DefBuckets.
func (mc *MetricsCollector) NewHistogram(name, help string, labels []string, buckets []float64) *prometheus.HistogramVec {
	if buckets == nil {
		buckets = prometheus.DefBuckets
	}
	histogram := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    mc.prefix + "_" + name,
			Help:    help,
			Buckets: buckets,
		},
		labels,
	)
	prometheus.MustRegister(histogram)
	return histogram
}

// NewSummary registers a summary vector named <service>_<name>. Nil
// objectives get the usual p50/p90/p99 set.
func (mc *MetricsCollector) NewSummary(name, help string, labels []string, objectives map[float64]float64) *prometheus.SummaryVec {
	if objectives == nil {
		objectives = map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001}
	}
	summary := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       mc.prefix + "_" + name,
			Help:       help,
			Objectives: objectives,
		},
		labels,
	)
	prometheus.MustRegister(summary)
	return summary
}
