package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/apex-predict/internal/database"
	"github.com/yourusername/apex-predict/internal/models"
)

// StoreInputProvider assembles a full race input from the timing store. It
// satisfies the same provider contract as the feed-backed adapters, so the
// orchestrator never knows where its input came from.
type StoreInputProvider struct {
	db     *database.DB
	repo   TimingRepository
	logger *logrus.Logger
	// lookbackYears bounds how much history is fetched per rider.
	lookbackYears float64
}

// NewStoreInputProvider creates a store-backed race input provider
func NewStoreInputProvider(db *database.DB, repo TimingRepository, lookbackYears float64, logger *logrus.Logger) *StoreInputProvider {
	return &StoreInputProvider{
		db:            db,
		repo:          repo,
		lookbackYears: lookbackYears,
		logger:        logger,
	}
}

// RaceInput loads everything the pipeline needs for one race.
func (p *StoreInputProvider) RaceInput(ctx context.Context, raceID uuid.UUID) (*models.RaceInput, error) {
	input := &models.RaceInput{RaceID: raceID}

	query := `SELECT forecast_temp, race_date, total_laps FROM races WHERE id = $1`
	var totalLaps int
	err := p.db.GetPool().QueryRow(ctx, query, raceID).Scan(&input.ForecastTemp, &input.ReferenceDate, &totalLaps)
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("%w: race %s", models.ErrNotFound, raceID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load race: %w", err)
	}

	riders, err := p.repo.RaceEntry(ctx, raceID)
	if err != nil {
		return nil, err
	}

	rankedEvents := make(map[uuid.UUID]bool)

	for i := range riders {
		rider := &riders[i]

		sessions, err := p.repo.SessionsForRider(ctx, rider.RiderID, input.ReferenceDate, p.lookbackYears)
		if err != nil {
			return nil, err
		}

		for _, session := range sessions {
			laps, err := p.repo.LapsForSession(ctx, rider.RiderID, session.ID)
			if err != nil {
				return nil, err
			}
			if len(laps) == 0 {
				continue
			}
			rider.History = append(rider.History, models.SessionLaps{Session: session, Laps: laps})

			if !rankedEvents[session.EventID] {
				rankedEvents[session.EventID] = true
				ranking, err := p.repo.RankingForEvent(ctx, session.EventID)
				if err != nil {
					if IsNotFound(err) {
						continue
					}
					return nil, err
				}
				input.Rankings = append(input.Rankings, *ranking)
			}
		}

		current, err := p.repo.CurrentRaceLaps(ctx, raceID, rider.RiderID)
		if err != nil {
			return nil, err
		}
		rider.CurrentLaps = current
	}

	input.Riders = riders

	completed := 0
	for _, rider := range riders {
		if len(rider.CurrentLaps) > completed {
			completed = len(rider.CurrentLaps)
		}
	}
	if totalLaps > completed {
		input.ForecastLaps = totalLaps - completed
	}

	p.logger.WithFields(logrus.Fields{
		"race_id":  raceID,
		"riders":   len(input.Riders),
		"rankings": len(input.Rankings),
	}).Debug("Assembled race input from timing store")

	return input, nil
}
