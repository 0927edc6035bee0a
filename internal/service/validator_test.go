package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/apex-predict/internal/models"
)

func validRaceInput() *models.RaceInput {
	raceID := uuid.New()
	refDate := time.Now()
	rider := riderWithHistory(raceID, refDate, 1, 0, 0)
	return &models.RaceInput{
		RaceID:        raceID,
		ForecastTemp:  33.0,
		ReferenceDate: refDate,
		Riders:        []models.RiderInput{rider},
	}
}

func TestValidateRaceInputAccepts(t *testing.T) {
	v := NewDataValidator(testLogger())
	assert.NoError(t, v.ValidateRaceInput(validRaceInput()))
}

func TestValidateRaceInputRejectsNil(t *testing.T) {
	v := NewDataValidator(testLogger())
	assert.ErrorIs(t, v.ValidateRaceInput(nil), models.ErrDataIntegrity)
}

func TestValidateRaceInputRejectsNoRiders(t *testing.T) {
	v := NewDataValidator(testLogger())

	input := validRaceInput()
	input.Riders = nil
	assert.ErrorIs(t, v.ValidateRaceInput(input), models.ErrDataIntegrity)
}

func TestValidateRaceInputRejectsDuplicateRider(t *testing.T) {
	v := NewDataValidator(testLogger())

	input := validRaceInput()
	input.Riders = append(input.Riders, input.Riders[0])
	assert.ErrorIs(t, v.ValidateRaceInput(input), models.ErrDataIntegrity)
}

func TestValidateRaceInputRejectsSharedPosition(t *testing.T) {
	v := NewDataValidator(testLogger())

	input := validRaceInput()
	other := riderWithHistory(input.RaceID, input.ReferenceDate, 1, 0, 0)
	input.Riders = append(input.Riders, other)
	assert.ErrorIs(t, v.ValidateRaceInput(input), models.ErrDataIntegrity)
}

func TestValidateRaceInputRejectsLeaderWithGap(t *testing.T) {
	v := NewDataValidator(testLogger())

	input := validRaceInput()
	input.Riders[0].GapToAhead = 1.5
	assert.ErrorIs(t, v.ValidateRaceInput(input), models.ErrDataIntegrity)
}

func TestValidateRaceInputRejectsFutureSession(t *testing.T) {
	v := NewDataValidator(testLogger())

	input := validRaceInput()
	input.Riders[0].History[0].Session.Date = input.ReferenceDate.Add(48 * time.Hour)
	assert.ErrorIs(t, v.ValidateRaceInput(input), models.ErrDataIntegrity)
}

func TestValidateRaceInputRejectsLapSessionMismatch(t *testing.T) {
	v := NewDataValidator(testLogger())

	input := validRaceInput()
	input.Riders[0].History[0].Laps[0].SessionID = uuid.New()
	assert.ErrorIs(t, v.ValidateRaceInput(input), models.ErrDataIntegrity)
}

func TestValidateLapRecordsRejectsBadValues(t *testing.T) {
	v := NewDataValidator(testLogger())

	issues := v.ValidateLapRecords([]models.LapRecord{
		{RiderID: uuid.New(), SessionID: uuid.New(), LapNumber: 0, RawLapTime: 90.0},
	})
	assert.NotEmpty(t, issues)
}

func TestValidateEventRankingDuplicates(t *testing.T) {
	v := NewDataValidator(testLogger())
	riderID := uuid.New()
	rank := 1

	issues := v.ValidateEventRanking(models.EventRanking{
		EventID: uuid.New(),
		Rankings: []models.RiderRanking{
			{RiderID: riderID, QualifyingRank: &rank, AvgRacePaceRank: &rank},
			{RiderID: riderID, QualifyingRank: &rank, AvgRacePaceRank: &rank},
		},
	})
	require.Len(t, issues, 1)
}

func TestValidateEventRankingPartialRowsLeftToQRD(t *testing.T) {
	v := NewDataValidator(testLogger())
	rank := 2

	issues := v.ValidateEventRanking(models.EventRanking{
		EventID: uuid.New(),
		Rankings: []models.RiderRanking{
			{RiderID: uuid.New(), QualifyingRank: &rank},
		},
	})
	assert.Empty(t, issues)
}
