package models

import "github.com/google/uuid"

// RiderRanking is one row of a per-event ranking table. Either rank may be
// absent when the rider missed that session; QRD computation requires both.
type RiderRanking struct {
	RiderID         uuid.UUID `db:"rider_id" json:"rider_id"`
	QualifyingRank  *int      `db:"qualifying_rank" json:"qualifying_rank"`
	AvgRacePaceRank *int      `db:"avg_race_pace_rank" json:"avg_race_pace_rank"`
}

// EventRanking is the full ranking table for one event.
type EventRanking struct {
	EventID  uuid.UUID      `json:"event_id"`
	Rankings []RiderRanking `json:"rankings"`
}

// QRDScore is the qualifying-to-race delta for one rider at one event:
// avg race-pace rank minus qualifying rank. Negative means the rider races
// better than they qualify.
type QRDScore struct {
	RiderID uuid.UUID `json:"rider_id"`
	EventID uuid.UUID `json:"event_id"`
	Score   float64   `json:"score"`
}
