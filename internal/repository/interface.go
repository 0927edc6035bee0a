// Package repository provides read access to the timing store.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/apex-predict/internal/models"
)

// TimingRepository reads historical sessions, lap records and ranking
// tables from the timing store.
type TimingRepository interface {
	// SessionsForRider returns the rider's sessions dated within the
	// lookback window ending at reference, newest first.
	SessionsForRider(ctx context.Context, riderID uuid.UUID, reference time.Time, lookbackYears float64) ([]models.Session, error)

	// LapsForSession returns one rider's lap records for a session,
	// ordered by lap number.
	LapsForSession(ctx context.Context, riderID, sessionID uuid.UUID) ([]models.LapRecord, error)

	// RankingForEvent returns the event's qualifying and race-pace
	// ranking table.
	RankingForEvent(ctx context.Context, eventID uuid.UUID) (*models.EventRanking, error)

	// CurrentRaceLaps returns the laps completed so far in a live race,
	// per rider, ordered by lap number.
	CurrentRaceLaps(ctx context.Context, raceID, riderID uuid.UUID) ([]models.LapRecord, error)

	// RaceEntry returns the riders entered in a race with their live
	// position and gap, when the race is underway.
	RaceEntry(ctx context.Context, raceID uuid.UUID) ([]models.RiderInput, error)
}
