// Package features transforms raw per-lap telemetry into the
// physically-motivated features consumed by the prediction models.
package features

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/apex-predict/internal/models"
)

// Normalizer converts raw lap times into fuel-adjusted lap times so laps
// from different race phases are comparable.
type Normalizer struct {
	// alpha is the fuel sensitivity in seconds per liter. It is a fixed
	// configuration constant; re-estimating it is a training-time concern.
	alpha  float64
	logger *logrus.Logger
}

// NewNormalizer creates a new lap record normalizer
func NewNormalizer(alpha float64, logger *logrus.Logger) *Normalizer {
	return &Normalizer{alpha: alpha, logger: logger}
}

// Normalize validates an ordered lap sequence for one session and produces
// the fuel-adjusted records, same cardinality. Out-of-order lap numbers or
// negative fuel loads fail the whole session.
func (n *Normalizer) Normalize(laps []models.LapRecord) ([]models.AdjustedLapRecord, error) {
	if err := n.validate(laps); err != nil {
		return nil, err
	}

	adjusted := make([]models.AdjustedLapRecord, len(laps))
	for i, lap := range laps {
		adjusted[i] = models.AdjustedLapRecord{
			RiderID:         lap.RiderID,
			SessionID:       lap.SessionID,
			LapNumber:       lap.LapNumber,
			AdjustedLapTime: lap.RawLapTime - n.alpha*lap.FuelRemaining,
		}
	}

	return adjusted, nil
}

// validate checks the integrity invariants of one session's lap stream.
func (n *Normalizer) validate(laps []models.LapRecord) error {
	prevLap := 0
	for i, lap := range laps {
		if lap.LapNumber <= prevLap {
			return fmt.Errorf("%w: lap number %d at index %d is not monotonically increasing",
				models.ErrDataIntegrity, lap.LapNumber, i)
		}
		if lap.FuelRemaining < 0 {
			return fmt.Errorf("%w: negative fuel load %.3f on lap %d",
				models.ErrDataIntegrity, lap.FuelRemaining, lap.LapNumber)
		}
		if lap.RawLapTime <= 0 {
			return fmt.Errorf("%w: non-positive lap time %.3f on lap %d",
				models.ErrDataIntegrity, lap.RawLapTime, lap.LapNumber)
		}
		prevLap = lap.LapNumber
	}
	return nil
}
