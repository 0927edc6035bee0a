package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionLaps pairs one historical session with the rider's ordered lap
// records from it.
type SessionLaps struct {
	Session Session     `json:"session"`
	Laps    []LapRecord `json:"laps"`
}

// RiderInput is everything the pipeline needs to evaluate one rider:
// historical sessions, any laps already completed in the current race, and
// the rider's live position for pairwise overtake scoring.
type RiderInput struct {
	RiderID     uuid.UUID     `json:"rider_id" validate:"required"`
	History     []SessionLaps `json:"history"`
	CurrentLaps []LapRecord   `json:"current_laps,omitempty"`
	// Position is the rider's running position in the current race,
	// 1-based. Zero means unknown; the rider is then excluded from
	// overtake pairing.
	Position int `json:"position,omitempty" validate:"gte=0"`
	// GapToAhead is the live gap in seconds to the rider one position
	// ahead. Only meaningful when Position > 1.
	GapToAhead float64 `json:"gap_to_ahead,omitempty" validate:"gte=0"`
}

// RaceInput is the full input of one prediction request. It is assembled by
// a data source adapter and treated as read-only by the pipeline.
type RaceInput struct {
	RaceID uuid.UUID `json:"race_id" validate:"required"`
	// ForecastTemp is the expected track temperature for the race in
	// degrees Celsius, used for conditions-similarity weighting.
	ForecastTemp float64 `json:"forecast_temp"`
	// ReferenceDate anchors recency decay; usually the race date.
	ReferenceDate time.Time `json:"reference_date" validate:"required"`
	// ForecastLaps is the rollout horizon for lap-time trajectories.
	// Zero defaults to a one-lap forecast.
	ForecastLaps int            `json:"forecast_laps,omitempty" validate:"gte=0"`
	Riders       []RiderInput   `json:"riders" validate:"required,min=1,dive"`
	Rankings     []EventRanking `json:"rankings,omitempty"`
}
