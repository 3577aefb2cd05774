// Package metrics holds Prometheus instruments that are used across the
// framework.  All collectors are registered with the global registry, so
// importing this package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	PropertySetsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "widgetkit_property_sets_total",
			Help: "Cumulative number of accepted property writes.",
		})

	CallbacksInvokedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "widgetkit_callbacks_invoked_total",
			Help: "Callbacks dispatched, by target (local or remote).",
		}, []string{"target"})

	CallbackErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "widgetkit_callback_errors_total",
			Help: "Callbacks that returned an error and aborted their dispatch, by target.",
		}, []string{"target"})

	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "widgetkit_active_sessions",
			Help: "Number of sessions currently attached.",
		})

	SessionOpenTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "widgetkit_session_open_total",
			Help: "Cumulative number of sessions opened.",
		})

	SessionDestroyedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "widgetkit_session_destroyed_total",
			Help: "Cumulative number of sessions torn down.",
		})

	SessionEvictTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "widgetkit_session_evict_total",
			Help: "Cumulative number of sessions evicted for idleness or pressure.",
		})

	TeardownErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "widgetkit_teardown_errors_total",
			Help: "Session teardowns aborted by a failing session_destroyed callback.",
		})
)

func init() {
	prometheus.MustRegister(
		PropertySetsTotal,
		CallbacksInvokedTotal,
		CallbackErrorsTotal,
		ActiveSessions,
		SessionOpenTotal,
		SessionDestroyedTotal,
		SessionEvictTotal,
		TeardownErrorsTotal,
	)
}
