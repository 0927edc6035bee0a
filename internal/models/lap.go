package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionType identifies the kind of timed session a lap belongs to
type SessionType string

const (
	SessionTypePractice   SessionType = "Practice"
	SessionTypeQualifying SessionType = "Qualifying"
	SessionTypeSprint     SessionType = "Sprint"
	SessionTypeRace       SessionType = "Race"
)

// LapRecord is one cleaned per-lap telemetry record as delivered by the
// storage collaborator. Immutable once ingested; the core consumes it
// read-only.
type LapRecord struct {
	RiderID       uuid.UUID `db:"rider_id" json:"rider_id" validate:"required"`
	SessionID     uuid.UUID `db:"session_id" json:"session_id" validate:"required"`
	LapNumber     int       `db:"lap_number" json:"lap_number" validate:"required,gt=0"`
	RawLapTime    float64   `db:"raw_lap_time" json:"raw_lap_time" validate:"required,gt=0"`
	FuelRemaining float64   `db:"fuel_remaining" json:"fuel_remaining" validate:"gte=0"`
	TrackTemp     float64   `db:"track_temp" json:"track_temp"`
	CompoundID    string    `db:"compound_id" json:"compound_id"`
}

// AdjustedLapRecord is a LapRecord with the fuel-load effect removed:
// adjusted = raw - alpha*fuel_remaining. Produced once per LapRecord,
// never mutated.
type AdjustedLapRecord struct {
	RiderID         uuid.UUID `json:"rider_id"`
	SessionID       uuid.UUID `json:"session_id"`
	LapNumber       int       `json:"lap_number"`
	AdjustedLapTime float64   `json:"adjusted_lap_time"`
}

// Session describes one historical timed session and the context needed to
// weight it against an upcoming race.
type Session struct {
	ID        uuid.UUID   `db:"id" json:"id"`
	EventID   uuid.UUID   `db:"event_id" json:"event_id"`
	CircuitID uuid.UUID   `db:"circuit_id" json:"circuit_id"`
	Type      SessionType `db:"session_type" json:"session_type"`
	TrackTemp float64     `db:"track_temp" json:"track_temp"`
	IsWet     bool        `db:"is_wet" json:"is_wet"`
	Date      time.Time   `db:"date" json:"date"`
}

// IsDry reports whether the session ran in dry conditions. Wet sessions are
// not comparable to a dry forecast and are skipped during matching.
func (s *Session) IsDry() bool {
	return !s.IsWet
}
