// Package datasource adapts external timing data into race inputs for the
// prediction pipeline.
package datasource

import (
	"context"

	"github.com/google/uuid"

	"github.com/yourusername/apex-predict/internal/models"
)

// RaceInputProvider loads the complete input for one race: every rider's
// historical sessions and laps, ranking tables, and any current-race laps.
type RaceInputProvider interface {
	RaceInput(ctx context.Context, raceID uuid.UUID) (*models.RaceInput, error)
}

// LapHandler receives live lap records as they arrive from a stream.
type LapHandler func(raceID uuid.UUID, lap models.LapRecord) error
