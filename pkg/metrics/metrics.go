// Copyright 2025 Author(s) of db2i-mcp-server
// SPDX-License-Identifier: Apache-2.0

// Package metrics implements the GET /metrics endpoint: per-tool
// invocation counters (by success/error outcome) and duration histograms,
// auth-session gauges and issuance counters, and per-source pool health.
// Invocations are not broken down per session.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "db2i_mcp"

var (
	registry = prometheus.NewRegistry()

	// InvocationsTotal counts every tool invocation by tool name and
	// outcome ("success" | "error").
	InvocationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tool_invocations_total",
		Help:      "Total tool invocations by tool and outcome.",
	}, []string{"tool", "outcome"})

	// InvocationDuration observes per-tool invocation latency in seconds.
	InvocationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "tool_invocation_duration_seconds",
		Help:      "Tool invocation latency in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"tool"})

	// AuthSessionsActive is the current number of live bearer sessions.
	AuthSessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "auth_sessions_active",
		Help:      "Number of currently active authenticated sessions.",
	})

	// AuthIssuedTotal counts session-issuance attempts by outcome.
	AuthIssuedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_sessions_issued_total",
		Help:      "Total auth session issuance attempts by outcome.",
	}, []string{"outcome"})

	// SourcePoolHealth is 1 when a named source pool is healthy, 0 otherwise.
	SourcePoolHealth = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "source_pool_healthy",
		Help:      "1 if the named source pool's last health check succeeded.",
	}, []string{"source"})
)

func init() {
	registry.MustRegister(InvocationsTotal, InvocationDuration, AuthSessionsActive, AuthIssuedTotal, SourcePoolHealth)
}

// Handler serves the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// RecordInvocation records one tool invocation's outcome and duration.
func RecordInvocation(tool string, success bool, seconds float64) {
	outcome := "success"
	if !success {
		outcome = "error"
	}
	InvocationsTotal.WithLabelValues(tool, outcome).Inc()
	InvocationDuration.WithLabelValues(tool).Observe(seconds)
}

// RecordAuthIssue records one session-issuance attempt's outcome.
func RecordAuthIssue(success bool) {
	outcome := "success"
	if !success {
		outcome = "error"
	}
	AuthIssuedTotal.WithLabelValues(outcome).Inc()
}

// SetSourceHealth records a source pool's last observed health.
func SetSourceHealth(source string, healthy bool) {
	v := 0.0
	if healthy {
		v = 1.0
	}
	SourcePoolHealth.WithLabelValues(source).Set(v)
}
