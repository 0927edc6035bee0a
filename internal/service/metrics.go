package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PredictionBundlesTotal counts completed prediction requests by outcome.
	PredictionBundlesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apex_predict_bundles_total",
			Help: "Total number of prediction bundles produced",
		},
		[]string{"status"},
	)

	// RiderEvaluationsTotal counts per-rider evaluations by outcome.
	RiderEvaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apex_predict_rider_evaluations_total",
			Help: "Total number of per-rider evaluations",
		},
		[]string{"status"},
	)

	// BundleDuration tracks end-to-end latency of one prediction request.
	BundleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "apex_predict_bundle_duration_seconds",
			Help:    "End-to-end duration of prediction bundle assembly",
			Buckets: prometheus.DefBuckets,
		},
	)

	// InflightRiders tracks rider evaluations currently running in the pool.
	InflightRiders = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "apex_predict_inflight_rider_evaluations",
			Help: "Number of rider evaluations currently in flight",
		},
	)

	// HistorySessionsExcluded counts historical sessions dropped during
	// feature assembly, by reason.
	HistorySessionsExcluded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apex_predict_history_sessions_excluded_total",
			Help: "Historical sessions excluded from feature assembly",
		},
		[]string{"reason"},
	)
)
