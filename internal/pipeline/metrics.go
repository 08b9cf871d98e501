package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"rawi/pkg/monitoring"
)

// Metrics holds the pipeline's Prometheus instruments. A nil *Metrics is a
// valid no-op receiver so tests and library callers can skip registration.
type Metrics struct {
	requestsTotal    *prometheus.CounterVec
	stageDuration    *prometheus.HistogramVec
	toolDecisions    *prometheus.CounterVec
	toolResultsCount *prometheus.HistogramVec
	portFailures     *prometheus.CounterVec
	citationsDropped *prometheus.CounterVec
	promptTokens     *prometheus.SummaryVec
	requestsInFlight *prometheus.GaugeVec
}

// NewMetrics registers the pipeline instruments on the service collector.
func NewMetrics(collector *monitoring.MetricsCollector) *Metrics {
	return &Metrics{
		requestsTotal: collector.NewCounter(
			"pipeline_requests_total",
			"Total pipeline requests by terminal status",
			[]string{"status"},
		),
		stageDuration: collector.NewHistogram(
			"pipeline_stage_duration_seconds",
			"Duration of each pipeline stage in seconds",
			[]string{"stage"},
			prometheus.ExponentialBuckets(0.05, 2, 11), // 50ms to ~50s
		),
		toolDecisions: collector.NewCounter(
			"tool_decisions_total",
			"Grounding decisions made by the tool selector",
			[]string{"decision"},
		),
		toolResultsCount: collector.NewHistogram(
			"tool_results_count",
			"Number of grounding hits returned per port call",
			[]string{"port"},
			[]float64{0, 1, 2, 3, 5, 8, 10, 15, 20},
		),
		portFailures: collector.NewCounter(
			"tool_port_failures_total",
			"Grounding port calls that returned an error",
			[]string{"port"},
		),
		citationsDropped: collector.NewCounter(
			"citations_dropped_total",
			"Citation markers removed because they matched no supplied source",
			[]string{"mode"},
		),
		promptTokens: collector.NewSummary(
			"prompt_tokens",
			"Estimated token count of rendered prompts",
			[]string{"stage"},
			nil,
		),
		requestsInFlight: collector.NewGauge(
			"requests_in_flight",
			"Requests currently inside the pipeline",
			[]string{"transport"},
		),
	}
}

func (m *Metrics) recordRequest(status string) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) observeStage(stage State, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(string(stage)).Observe(elapsed.Seconds())
}

func (m *Metrics) recordDecision(decision ToolDecision) {
	if m == nil {
		return
	}
	m.toolDecisions.WithLabelValues(string(decision)).Inc()
}

func (m *Metrics) observeToolResults(port string, count int) {
	if m == nil {
		return
	}
	m.toolResultsCount.WithLabelValues(port).Observe(float64(count))
}

func (m *Metrics) recordPortFailure(port string) {
	if m == nil {
		return
	}
	m.portFailures.WithLabelValues(port).Inc()
}

func (m *Metrics) recordDroppedCitations(mode Strictness, count int) {
	if m == nil || count == 0 {
		return
	}
	m.citationsDropped.WithLabelValues(string(mode)).Add(float64(count))
}

func (m *Metrics) observePromptTokens(stage State, tokens int) {
	if m == nil {
		return
	}
	m.promptTokens.WithLabelValues(string(stage)).Observe(float64(tokens))
}

// TrackInFlight increments the in-flight gauge for a transport and returns
// the matching decrement. Safe on a nil receiver.
func (m *Metrics) TrackInFlight(transport string) func() {
	if m == nil {
		return func() {}
	}
	gauge := m.requestsInFlight.WithLabelValues(transport)
	gauge.Inc()
	return gauge.Dec
}
