// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "kube_actions"

var (
	// KubectlExecutionsTotal counts kubectl invocations by verb and result
	// (ok, non_zero_exit, timeout, spawn, canceled, denied).
	KubectlExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kubectl_executions_total",
			Help:      "Total number of kubectl invocations by verb and result.",
		},
		[]string{"verb", "result"},
	)

	KubectlDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kubectl_duration_seconds",
			Help:      "Wall-clock duration of kubectl invocations in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		},
		[]string{"verb"},
	)

	// OrchestrationOutcomesTotal counts orchestrated requests by action and status.
	OrchestrationOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orchestration_outcomes_total",
			Help:      "Total number of orchestrated requests by action and outcome status.",
		},
		[]string{"action", "status"},
	)

	HTTPRequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by method, path, and status.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2.5, 10),
		},
		[]string{"method", "path"},
	)
)

func ObserveKubectl(verb, result string, d time.Duration) {
	KubectlExecutionsTotal.WithLabelValues(verb, result).Inc()
	KubectlDurationSeconds.WithLabelValues(verb).Observe(d.Seconds())
}

func ObserveOutcome(action, status string) {
	OrchestrationOutcomesTotal.WithLabelValues(action, status).Inc()
}

func ObserveHTTP(method, path string, status int, d time.Duration) {
	HTTPRequestTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	HTTPRequestDurationSeconds.WithLabelValues(method, path).Observe(d.Seconds())
}
