// Package logger provides pipeline-specific logging.
package logger

import (
	"github.com/sirupsen/logrus"
)

// PipelineLogger provides dedicated logging for inference pipeline runs.
type PipelineLogger struct {
	*logrus.Entry
}

// NewPipelineLogger creates a new pipeline logger.
func NewPipelineLogger(baseLogger *logrus.Logger) *PipelineLogger {
	return &PipelineLogger{
		Entry: baseLogger.WithField("component", "pipeline"),
	}
}

// LogFeatureAssembly logs the outcome of assembling one rider's feature vector.
func (pl *PipelineLogger) LogFeatureAssembly(riderID string, eligibleSessions int, excludedSessions int, schemaVersion string) {
	pl.WithFields(logrus.Fields{
		"rider_id":          riderID,
		"eligible_sessions": eligibleSessions,
		"excluded_sessions": excludedSessions,
		"schema_version":    schemaVersion,
	}).Debug("Feature vector assembled")
}

// LogModelScore logs a single model inference.
func (pl *PipelineLogger) LogModelScore(modelType string, modelVersion string, cacheHit bool, latencyMs float64) {
	pl.WithFields(logrus.Fields{
		"model_type":    modelType,
		"model_version": modelVersion,
		"cache_hit":     cacheHit,
		"latency_ms":    latencyMs,
	}).Debug("Model inference completed")
}

// LogRiderFailure logs a rider evaluation downgraded into a bundle error.
func (pl *PipelineLogger) LogRiderFailure(riderID string, reason string) {
	pl.WithFields(logrus.Fields{
		"rider_id":     riderID,
		"error_reason": reason,
	}).Warn("Rider prediction failed, recorded in bundle")
}

// LogBundleComplete logs the completion of one prediction request.
func (pl *PipelineLogger) LogBundleComplete(raceID string, predicted int, failed int, durationMs float64) {
	pl.WithFields(logrus.Fields{
		"race_id":     raceID,
		"predicted":   predicted,
		"failed":      failed,
		"duration_ms": durationMs,
	}).Info("Prediction bundle complete")
}
