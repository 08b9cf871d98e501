package mcpspoke

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	spokeToolCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rawi",
			Subsystem: "spoke",
			Name:      "tool_calls_total",
			Help:      "Total MCP spoke tool calls",
		},
		[]string{"tool"},
	)

	spokeToolDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "rawi",
			Subsystem: "spoke",
			Name:      "tool_duration_seconds",
			Help:      "Duration of MCP spoke tool calls in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	spokeResultsCount = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "rawi",
			Subsystem: "spoke",
			Name:      "search_results_count",
			Help:      "Number of results returned per MCP spoke search",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 10, 15, 20},
		},
	)
)
