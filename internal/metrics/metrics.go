// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shuttle_api_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shuttle_api_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	ReactorEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shuttle_reactor_events_total",
			Help: "Change events handled by reactor handlers, by outcome",
		},
		[]string{"handler", "outcome"}, // "ok", "failed"
	)

	ReactorHandlerDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shuttle_reactor_handler_duration_seconds",
			Help:    "Reactor handler latency including retries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"handler"},
	)

	ReconcileRepairsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shuttle_reconcile_repairs_total",
			Help: "Documents repaired by the reconciler",
		},
		[]string{"kind"}, // "orphan", "duplicate_like", "counter", "author_image"
	)

	ReconcileRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shuttle_reconcile_runs_total",
			Help: "Reconciler runs, by outcome",
		},
		[]string{"outcome"},
	)

	NotificationStreams = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "shuttle_notification_streams",
			Help: "Open notification websocket connections",
		},
	)
)

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordReactorEvent records one fully handled change event.
func RecordReactorEvent(handler string, duration time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "failed"
	}
	ReactorEventsTotal.WithLabelValues(handler, outcome).Inc()
	ReactorHandlerDuration.WithLabelValues(handler).Observe(duration.Seconds())
}
