package service

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/apex-predict/internal/models"
)

// DataValidator validates race inputs before they enter the pipeline. It
// catches malformed payloads at the boundary so the feature layer only ever
// sees structurally sound data; the feature layer still enforces its own
// integrity invariants on the values.
type DataValidator struct {
	validate *validator.Validate
	logger   *logrus.Logger
}

// NewDataValidator creates a new data validator
func NewDataValidator(logger *logrus.Logger) *DataValidator {
	return &DataValidator{
		validate: validator.New(),
		logger:   logger,
	}
}

// ValidateRaceInput checks the whole request payload. Struct tags handle
// presence and ranges; the checks below cover relations tags cannot express.
func (v *DataValidator) ValidateRaceInput(input *models.RaceInput) error {
	if input == nil {
		return fmt.Errorf("%w: nil race input", models.ErrDataIntegrity)
	}

	if err := v.validate.Struct(input); err != nil {
		return fmt.Errorf("%w: %v", models.ErrDataIntegrity, err)
	}

	var issues []string
	issues = append(issues, v.validateRiders(input)...)
	for _, ranking := range input.Rankings {
		issues = append(issues, v.ValidateEventRanking(ranking)...)
	}

	if len(issues) > 0 {
		for _, issue := range issues {
			v.logger.WithField("race_id", input.RaceID).Warn(issue)
		}
		return fmt.Errorf("%w: %d validation issues, first: %s", models.ErrDataIntegrity, len(issues), issues[0])
	}
	return nil
}

// validateRiders checks rider-level constraints across the field.
func (v *DataValidator) validateRiders(input *models.RaceInput) []string {
	var issues []string

	seen := make(map[string]bool, len(input.Riders))
	positions := make(map[int]string, len(input.Riders))

	for _, rider := range input.Riders {
		id := rider.RiderID.String()
		if seen[id] {
			issues = append(issues, fmt.Sprintf("duplicate rider %s in race input", id))
		}
		seen[id] = true

		if rider.Position > 0 {
			if other, taken := positions[rider.Position]; taken {
				issues = append(issues, fmt.Sprintf("riders %s and %s share position %d", other, id, rider.Position))
			}
			positions[rider.Position] = id
		}
		if rider.Position == 1 && rider.GapToAhead != 0 {
			issues = append(issues, fmt.Sprintf("rider %s leads but carries a gap to ahead", id))
		}

		for _, sl := range rider.History {
			issues = append(issues, v.validateSessionLaps(id, sl, input.ReferenceDate)...)
		}
		issues = append(issues, v.ValidateLapRecords(rider.CurrentLaps)...)
	}

	return issues
}

// validateSessionLaps checks one historical session's metadata against its
// lap records.
func (v *DataValidator) validateSessionLaps(riderID string, sl models.SessionLaps, referenceDate time.Time) []string {
	var issues []string

	if sl.Session.Date.After(referenceDate) {
		issues = append(issues, fmt.Sprintf("session %s for rider %s dated after the reference date", sl.Session.ID, riderID))
	}

	for _, lap := range sl.Laps {
		if lap.SessionID != sl.Session.ID {
			issues = append(issues, fmt.Sprintf("lap %d for rider %s belongs to session %s, expected %s",
				lap.LapNumber, riderID, lap.SessionID, sl.Session.ID))
		}
	}

	issues = append(issues, v.ValidateLapRecords(sl.Laps)...)
	return issues
}

// ValidateLapRecords validates a lap sequence for structural soundness.
// Ordering and value-range invariants are re-checked by the normalizer; this
// layer exists to reject bad payloads with a readable reason.
func (v *DataValidator) ValidateLapRecords(laps []models.LapRecord) []string {
	var issues []string

	for i, lap := range laps {
		if err := v.validate.Struct(lap); err != nil {
			issues = append(issues, fmt.Sprintf("lap record %d: %v", i, err))
		}
	}

	return issues
}

// ValidateEventRanking validates one event's ranking table: duplicate riders
// and out-of-range ranks. Partial rows are left to the QRD calculator, which
// owns that failure mode.
func (v *DataValidator) ValidateEventRanking(ranking models.EventRanking) []string {
	var issues []string

	seen := make(map[string]bool, len(ranking.Rankings))
	for _, row := range ranking.Rankings {
		id := row.RiderID.String()
		if seen[id] {
			issues = append(issues, fmt.Sprintf("duplicate rider %s in ranking for event %s", id, ranking.EventID))
		}
		seen[id] = true

		if row.QualifyingRank != nil && *row.QualifyingRank < 1 {
			issues = append(issues, fmt.Sprintf("rider %s has non-positive qualifying rank for event %s", id, ranking.EventID))
		}
		if row.AvgRacePaceRank != nil && *row.AvgRacePaceRank < 1 {
			issues = append(issues, fmt.Sprintf("rider %s has non-positive race pace rank for event %s", id, ranking.EventID))
		}
	}

	return issues
}
