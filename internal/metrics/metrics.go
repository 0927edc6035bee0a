// Package metrics exposes the engine's Prometheus metrics endpoint.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counter metrics
var (
	ScheduledRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "apex_predict",
		Name:      "scheduled_runs_total",
		Help:      "Total number of scheduled prediction runs",
	}, []string{"job", "status"})
	StreamLapsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "apex_predict",
		Name:      "stream_laps_total",
		Help:      "Total number of live laps received from the timing stream",
	})
	CacheInvalidationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "apex_predict",
		Name:      "cache_invalidations_total",
		Help:      "Total number of race-level prediction cache invalidations",
	})
)

// Gauge metrics
var (
	TrackedRaces = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "apex_predict",
		Name:      "tracked_races",
		Help:      "Number of races currently tracked for scheduled prediction",
	})
	StreamConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "apex_predict",
		Name:      "stream_connected",
		Help:      "Whether the live lap stream is connected (1) or not (0)",
	})
)

// Handler returns the Prometheus HTTP handler for the metrics endpoint.
// All packages register their collectors against the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordScheduledRun records the outcome of one scheduled prediction run.
func RecordScheduledRun(job, status string) {
	ScheduledRunsTotal.WithLabelValues(job, status).Inc()
}

// RecordStreamLap records one live lap received from the stream.
func RecordStreamLap() {
	StreamLapsTotal.Inc()
}

// RecordCacheInvalidation records a race-level cache invalidation.
func RecordCacheInvalidation() {
	CacheInvalidationsTotal.Inc()
}

// SetStreamConnected updates the stream connectivity gauge.
func SetStreamConnected(connected bool) {
	if connected {
		StreamConnected.Set(1)
	} else {
		StreamConnected.Set(0)
	}
}
