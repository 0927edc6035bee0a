package models

import (
	"time"

	"github.com/google/uuid"
)

// PodiumDistribution is a calibrated probability distribution over race
// outcome classes. The three probabilities sum to 1.
type PodiumDistribution struct {
	Win           float64 `json:"win"`
	Podium        float64 `json:"podium"`
	OutsidePodium float64 `json:"outside_podium"`
}

// Sum returns the total probability mass, used by simplex checks.
func (d PodiumDistribution) Sum() float64 {
	return d.Win + d.Podium + d.OutsidePodium
}

// LapForecast is a one-step predictive distribution for an upcoming lap.
type LapForecast struct {
	LapNumber int     `json:"lap_number"`
	Mean      float64 `json:"mean"`
	StdDev    float64 `json:"std_dev"`
}

// RiderPrediction is one rider's slot in a bundle: either a valid prediction
// or a typed failure reason, never a zero value masquerading as a result.
type RiderPrediction struct {
	RiderID      uuid.UUID           `json:"rider_id"`
	Podium       *PodiumDistribution `json:"podium,omitempty"`
	LapTrajectory []LapForecast      `json:"lap_trajectory,omitempty"`
	ErrorReason  string              `json:"error_reason,omitempty"`
}

// Failed reports whether this rider's evaluation was downgraded to an error.
func (p *RiderPrediction) Failed() bool {
	return p.ErrorReason != ""
}

// OvertakeProbability is the pairwise chance that the trailing rider passes
// the leading rider before the end of the race.
type OvertakeProbability struct {
	TrailingRiderID uuid.UUID `json:"trailing_rider_id"`
	LeadingRiderID  uuid.UUID `json:"leading_rider_id"`
	Probability     float64   `json:"probability"`
}

// PredictionBundle is the output artifact of one inference call. Stateless
// and immutable once returned; serialization-ready for the serving layer.
type PredictionBundle struct {
	RaceID       uuid.UUID             `json:"race_id"`
	ModelVersion string                `json:"model_version"`
	Riders       []RiderPrediction     `json:"riders"`
	Overtakes    []OvertakeProbability `json:"overtakes,omitempty"`
	GeneratedAt  time.Time             `json:"generated_at"`
}

// FailedRiders returns the IDs of riders whose slot carries an error reason.
func (b *PredictionBundle) FailedRiders() []uuid.UUID {
	var failed []uuid.UUID
	for i := range b.Riders {
		if b.Riders[i].Failed() {
			failed = append(failed, b.Riders[i].RiderID)
		}
	}
	return failed
}

// Rider returns the prediction slot for a rider, or nil if absent.
func (b *PredictionBundle) Rider(id uuid.UUID) *RiderPrediction {
	for i := range b.Riders {
		if b.Riders[i].RiderID == id {
			return &b.Riders[i]
		}
	}
	return nil
}
