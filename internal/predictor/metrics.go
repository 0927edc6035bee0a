// Package predictor provides Prometheus metrics for model inference.
package predictor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ModelScoresTotal tracks total model scoring calls
	ModelScoresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "model_scores_total",
			Help: "Total number of model scoring calls",
		},
		[]string{"model_type", "cache_hit"},
	)

	// ModelScoreLatency tracks model scoring latency
	ModelScoreLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "model_score_latency_seconds",
			Help:    "Model scoring latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"model_type"},
	)

	// SchemaMismatchTotal tracks feature schema / artifact version mismatches
	SchemaMismatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "model_schema_mismatch_total",
			Help: "Total number of rejected scoring calls due to schema version mismatch",
		},
		[]string{"model_type"},
	)

	// ArtifactReloadsTotal tracks model artifact loads
	ArtifactReloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "model_artifact_reloads_total",
			Help: "Total number of model artifact loads",
		},
		[]string{"model_type", "status"},
	)

	// ScoreCacheHitRatio tracks the prediction cache hit ratio
	ScoreCacheHitRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "model_score_cache_hit_ratio",
			Help: "Prediction cache hit ratio",
		},
	)
)
