package features

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/apex-predict/internal/models"
)

func intPtr(v int) *int { return &v }

func TestQRDScoreSignConvention(t *testing.T) {
	calc := NewQRDCalculator()
	eventID := uuid.New()
	racer := uuid.New()
	qualifier := uuid.New()

	ranking := models.EventRanking{
		EventID: eventID,
		Rankings: []models.RiderRanking{
			// Qualified 10th, raced 2nd: race-pace specialist, negative score.
			{RiderID: racer, QualifyingRank: intPtr(10), AvgRacePaceRank: intPtr(2)},
			// Qualified 1st, raced 8th: one-lap qualifier, positive score.
			{RiderID: qualifier, QualifyingRank: intPtr(1), AvgRacePaceRank: intPtr(8)},
		},
	}

	scores, err := calc.Calculate(ranking)
	require.NoError(t, err)
	require.Len(t, scores, 2)

	assert.Equal(t, -8.0, scores[0].Score)
	assert.Equal(t, racer, scores[0].RiderID)
	assert.Equal(t, 7.0, scores[1].Score)
	assert.Equal(t, eventID, scores[1].EventID)
}

func TestQRDZeroForMatchingRanks(t *testing.T) {
	calc := NewQRDCalculator()

	ranking := models.EventRanking{
		EventID: uuid.New(),
		Rankings: []models.RiderRanking{
			{RiderID: uuid.New(), QualifyingRank: intPtr(3), AvgRacePaceRank: intPtr(3)},
		},
	}

	scores, err := calc.Calculate(ranking)
	require.NoError(t, err)
	assert.Equal(t, 0.0, scores[0].Score)
}

func TestQRDSkipsRidersWithNoRanks(t *testing.T) {
	calc := NewQRDCalculator()

	ranking := models.EventRanking{
		EventID: uuid.New(),
		Rankings: []models.RiderRanking{
			{RiderID: uuid.New()},
			{RiderID: uuid.New(), QualifyingRank: intPtr(2), AvgRacePaceRank: intPtr(5)},
		},
	}

	scores, err := calc.Calculate(ranking)
	require.NoError(t, err)
	assert.Len(t, scores, 1)
}

func TestQRDFailsOnPartialRow(t *testing.T) {
	calc := NewQRDCalculator()

	ranking := models.EventRanking{
		EventID: uuid.New(),
		Rankings: []models.RiderRanking{
			{RiderID: uuid.New(), QualifyingRank: intPtr(2)},
		},
	}

	_, err := calc.Calculate(ranking)
	assert.True(t, errors.Is(err, models.ErrIncompleteEvent))
}
