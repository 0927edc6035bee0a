package predictor

import (
	"context"

	"github.com/yourusername/apex-predict/internal/models"
)

// The two model families are independent, interface-bound scoring services.
// The orchestrator depends only on these contracts, never on the tree or
// recurrent internals.

// OutcomeClassifier scores one feature vector into a calibrated probability
// distribution over {win, podium, outside podium}.
type OutcomeClassifier interface {
	Version() string
	SchemaVersion() string
	Score(ctx context.Context, vec *models.FeatureVector) (*models.PodiumDistribution, error)
}

// SequencePredictor forecasts the adjusted lap time of the next lap from
// the current race's lap sequence plus the rider's feature vector. It
// exposes a predictive distribution, not a bare scalar, so degradation-MAE
// evaluation stays possible downstream.
type SequencePredictor interface {
	Version() string
	SchemaVersion() string
	MinContext() int
	PredictNext(ctx context.Context, laps []float64, vec *models.FeatureVector) (*models.LapForecast, error)
	// Rollout feeds predictions back recursively to forecast several laps
	// ahead.
	Rollout(ctx context.Context, laps []float64, vec *models.FeatureVector, steps int) ([]models.LapForecast, error)
}

// OvertakeEstimator produces the pairwise probability of a position change
// from two riders' current-race degradation profiles and their gap.
type OvertakeEstimator interface {
	Version() string
	Estimate(trailing, leading *models.DegradationProfile, gapSeconds float64) (*models.OvertakeProbability, error)
}
