package features

import (
	"fmt"

	"github.com/yourusername/apex-predict/internal/models"
)

// ComputeISD returns the in-session sustainability delta: final lap time
// minus best lap time within one session's adjusted lap sequence. Positive
// values mean the rider finished slower than their best; small deltas signal
// strong tire management.
func ComputeISD(laps []models.AdjustedLapRecord) (float64, error) {
	if len(laps) < 2 {
		return 0, fmt.Errorf("%w: need at least 2 laps for sustainability delta", models.ErrInsufficientData)
	}

	best := laps[0].AdjustedLapTime
	for _, lap := range laps {
		if lap.AdjustedLapTime < best {
			best = lap.AdjustedLapTime
		}
	}
	final := laps[len(laps)-1].AdjustedLapTime
	return final - best, nil
}
