// Package metrics exposes Prometheus instruments for requests, tasks and
// tool calls.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tripdesk_requests_total",
		Help: "Total number of processed user requests",
	}, []string{"status"})

	requestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tripdesk_request_duration_seconds",
		Help:    "Request processing latency in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
	})

	tasksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tripdesk_tasks_total",
		Help: "Total number of delegated tasks",
	}, []string{"handler", "status"})

	toolCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tripdesk_tool_calls_total",
		Help: "Total number of tool invocations",
	}, []string{"tool", "outcome"})

	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tripdesk_active_sessions",
		Help: "Number of live conversation sessions",
	})
)

// RecordRequest records a finished request with its final status.
func RecordRequest(status string, started time.Time) {
	requestsTotal.WithLabelValues(status).Inc()
	requestDuration.Observe(time.Since(started).Seconds())
}

// RecordTask records a task that reached a terminal status.
func RecordTask(handler, status string) {
	tasksTotal.WithLabelValues(handler, status).Inc()
}

// RecordToolCall records a tool invocation. Outcome is "ok" or an error kind.
func RecordToolCall(tool, outcome string) {
	toolCallsTotal.WithLabelValues(tool, outcome).Inc()
}

func SessionOpened() {
	activeSessions.Inc()
}

func SessionClosed() {
	activeSessions.Dec()
}
