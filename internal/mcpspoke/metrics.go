package mcpspoke

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	spokeCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hydronet",
			Name:      "spoke_tool_calls_total",
			Help:      "Total tool calls served over the MCP spoke",
		},
		[]string{"tool", "status"},
	)

	spokeCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hydronet",
			Name:      "spoke_tool_call_duration_seconds",
			Help:      "Duration of MCP spoke tool calls in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		},
		[]string{"tool"},
	)
)
