package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/yourusername/apex-predict/internal/database"
	"github.com/yourusername/apex-predict/internal/models"
)

const errScanLap = "failed to scan lap record: %w"

// PostgresTimingRepository implements TimingRepository for PostgreSQL
type PostgresTimingRepository struct {
	db *database.DB
}

// NewPostgresTimingRepository creates a new timing repository
func NewPostgresTimingRepository(db *database.DB) TimingRepository {
	return &PostgresTimingRepository{db: db}
}

// SessionsForRider retrieves the rider's sessions within the lookback window
func (r *PostgresTimingRepository) SessionsForRider(ctx context.Context, riderID uuid.UUID, reference time.Time, lookbackYears float64) ([]models.Session, error) {
	query := `
		SELECT DISTINCT s.id, s.event_id, s.circuit_id, s.session_type, s.track_temp, s.is_wet, s.session_date
		FROM sessions s
		JOIN lap_records l ON l.session_id = s.id
		WHERE l.rider_id = $1 AND s.session_date <= $2 AND s.session_date >= $3
		ORDER BY s.session_date DESC
	`

	cutoff := reference.Add(-time.Duration(lookbackYears * 365.25 * 24 * float64(time.Hour)))
	rows, err := r.db.GetPool().Query(ctx, query, riderID, reference, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions for rider: %w", err)
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		var s models.Session
		err := rows.Scan(&s.ID, &s.EventID, &s.CircuitID, &s.Type, &s.TrackTemp, &s.IsWet, &s.Date)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}

	return sessions, rows.Err()
}

// LapsForSession retrieves one rider's ordered lap records for a session
func (r *PostgresTimingRepository) LapsForSession(ctx context.Context, riderID, sessionID uuid.UUID) ([]models.LapRecord, error) {
	query := `
		SELECT rider_id, session_id, lap_number, raw_lap_time, fuel_remaining, track_temp, compound_id
		FROM lap_records
		WHERE rider_id = $1 AND session_id = $2
		ORDER BY lap_number ASC
	`

	rows, err := r.db.GetPool().Query(ctx, query, riderID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query laps for session: %w", err)
	}
	defer rows.Close()

	return scanLaps(rows)
}

// RankingForEvent retrieves the event's ranking table
func (r *PostgresTimingRepository) RankingForEvent(ctx context.Context, eventID uuid.UUID) (*models.EventRanking, error) {
	query := `
		SELECT rider_id, qualifying_rank, avg_race_pace_rank
		FROM event_rankings
		WHERE event_id = $1
	`

	rows, err := r.db.GetPool().Query(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to query event ranking: %w", err)
	}
	defer rows.Close()

	ranking := &models.EventRanking{EventID: eventID}
	for rows.Next() {
		var row models.RiderRanking
		if err := rows.Scan(&row.RiderID, &row.QualifyingRank, &row.AvgRacePaceRank); err != nil {
			return nil, fmt.Errorf("failed to scan ranking row: %w", err)
		}
		ranking.Rankings = append(ranking.Rankings, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(ranking.Rankings) == 0 {
		return nil, fmt.Errorf("%w: ranking for event %s", models.ErrNotFound, eventID)
	}
	return ranking, nil
}

// CurrentRaceLaps retrieves laps completed so far in a live race
func (r *PostgresTimingRepository) CurrentRaceLaps(ctx context.Context, raceID, riderID uuid.UUID) ([]models.LapRecord, error) {
	query := `
		SELECT rider_id, session_id, lap_number, raw_lap_time, fuel_remaining, track_temp, compound_id
		FROM lap_records
		WHERE session_id = $1 AND rider_id = $2
		ORDER BY lap_number ASC
	`

	rows, err := r.db.GetPool().Query(ctx, query, raceID, riderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query current race laps: %w", err)
	}
	defer rows.Close()

	return scanLaps(rows)
}

// RaceEntry retrieves the entered riders with their live standing
func (r *PostgresTimingRepository) RaceEntry(ctx context.Context, raceID uuid.UUID) ([]models.RiderInput, error) {
	query := `
		SELECT rider_id, COALESCE(position, 0), COALESCE(gap_to_ahead, 0)
		FROM race_entries
		WHERE race_id = $1
		ORDER BY COALESCE(position, 0) ASC, rider_id ASC
	`

	rows, err := r.db.GetPool().Query(ctx, query, raceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query race entry: %w", err)
	}
	defer rows.Close()

	var riders []models.RiderInput
	for rows.Next() {
		var entry models.RiderInput
		if err := rows.Scan(&entry.RiderID, &entry.Position, &entry.GapToAhead); err != nil {
			return nil, fmt.Errorf("failed to scan race entry: %w", err)
		}
		riders = append(riders, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(riders) == 0 {
		return nil, fmt.Errorf("%w: race %s has no entries", models.ErrNotFound, raceID)
	}
	return riders, nil
}

func scanLaps(rows pgx.Rows) ([]models.LapRecord, error) {
	var laps []models.LapRecord
	for rows.Next() {
		var lap models.LapRecord
		err := rows.Scan(&lap.RiderID, &lap.SessionID, &lap.LapNumber, &lap.RawLapTime,
			&lap.FuelRemaining, &lap.TrackTemp, &lap.CompoundID)
		if err != nil {
			return nil, fmt.Errorf(errScanLap, err)
		}
		laps = append(laps, lap)
	}
	return laps, rows.Err()
}

// IsNotFound reports whether err marks missing timing data.
func IsNotFound(err error) bool {
	return errors.Is(err, models.ErrNotFound) || errors.Is(err, pgx.ErrNoRows)
}
