package chat

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hydronet",
			Name:      "chat_runs_total",
			Help:      "Total orchestrator runs",
		},
		[]string{"status"}, // "completed", "failed"
	)

	runsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "hydronet",
			Name:      "chat_runs_active",
			Help:      "Number of currently running chat orchestrations",
		},
	)

	providerCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hydronet",
			Name:      "provider_calls_total",
			Help:      "Total LLM provider streaming calls",
		},
		[]string{"phase", "status"}, // phase: "initial", "continuation"
	)

	providerCallDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "hydronet",
			Name:      "provider_call_duration_seconds",
			Help:      "Duration of LLM provider streaming calls in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		},
	)

	toolCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hydronet",
			Name:      "tool_calls_total",
			Help:      "Total tool invocations dispatched by the orchestrator",
		},
		[]string{"tool", "status"},
	)

	toolCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hydronet",
			Name:      "tool_call_duration_seconds",
			Help:      "Duration of tool invocations in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		},
		[]string{"tool"},
	)
)
