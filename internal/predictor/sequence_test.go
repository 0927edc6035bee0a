package predictor

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/apex-predict/internal/models"
)

func testSequenceArtifact() *SequenceArtifact {
	return &SequenceArtifact{
		ArtifactHeader: ArtifactHeader{
			Name:          "lap_sequence",
			Version:       "2026.08.1",
			SchemaVersion: "v1",
			TrainedAt:     time.Now().UTC(),
		},
		MinContext:   3,
		HiddenSize:   2,
		FeatureCount: 5,
		InputWeights: []float64{0.5, -0.3},
		HiddenWeights: [][]float64{
			{0.1, 0.2},
			{-0.1, 0.3},
		},
		HiddenBias: []float64{0.05, -0.05},
		InitWeights: [][]float64{
			{0.4, 0.1, 0.02, 0.05, 0.01},
			{-0.2, 0.3, 0.01, -0.04, 0.02},
		},
		OutputWeights: []float64{0.8, -0.6},
		OutputBias:    0.1,
		ResidualStd:   0.4,
		LapTimeMean:   90.0,
		LapTimeStd:    1.5,
	}
}

func loadTestSequenceModel(t *testing.T) *ElmanSequenceModel {
	t.Helper()
	model, err := LoadElmanSequenceModel(writeArtifact(t, testSequenceArtifact()), testLogger())
	require.NoError(t, err)
	return model
}

func TestRolloutForecastShape(t *testing.T) {
	model := loadTestSequenceModel(t)
	laps := []float64{90.2, 90.4, 90.5, 90.7}

	forecasts, err := model.Rollout(context.Background(), laps, testVector(), 3)
	require.NoError(t, err)
	require.Len(t, forecasts, 3)

	// Forecasts continue the observed sequence lap numbering.
	assert.Equal(t, 5, forecasts[0].LapNumber)
	assert.Equal(t, 6, forecasts[1].LapNumber)
	assert.Equal(t, 7, forecasts[2].LapNumber)
}

func TestRolloutUncertaintyWidens(t *testing.T) {
	model := loadTestSequenceModel(t)
	laps := []float64{90.2, 90.4, 90.5}

	forecasts, err := model.Rollout(context.Background(), laps, testVector(), 4)
	require.NoError(t, err)

	for i, f := range forecasts {
		expected := 0.4 * math.Sqrt(float64(i+1))
		assert.InDelta(t, expected, f.StdDev, 1e-9)
		if i > 0 {
			assert.Greater(t, f.StdDev, forecasts[i-1].StdDev)
		}
	}
}

func TestRolloutDeterministic(t *testing.T) {
	model := loadTestSequenceModel(t)
	laps := []float64{90.2, 90.4, 90.5}

	first, err := model.Rollout(context.Background(), laps, testVector(), 5)
	require.NoError(t, err)
	second, err := model.Rollout(context.Background(), laps, testVector(), 5)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRolloutMeansAreReasonableLapTimes(t *testing.T) {
	model := loadTestSequenceModel(t)
	laps := []float64{90.2, 90.4, 90.5}

	forecasts, err := model.Rollout(context.Background(), laps, testVector(), 2)
	require.NoError(t, err)

	// tanh bounds the hidden state, so the output stays within a few
	// standardized units of the training mean.
	for _, f := range forecasts {
		assert.Greater(t, f.Mean, 85.0)
		assert.Less(t, f.Mean, 95.0)
	}
}

func TestRolloutBelowMinContext(t *testing.T) {
	model := loadTestSequenceModel(t)

	_, err := model.Rollout(context.Background(), []float64{90.2, 90.4}, testVector(), 1)
	assert.True(t, errors.Is(err, models.ErrInsufficientSequence))
}

func TestRolloutSchemaMismatch(t *testing.T) {
	model := loadTestSequenceModel(t)
	vec := testVector()
	vec.SchemaVersion = "v0"

	_, err := model.Rollout(context.Background(), []float64{90.2, 90.4, 90.5}, vec, 1)
	assert.True(t, errors.Is(err, models.ErrSchemaVersion))
}

func TestRolloutNonPositiveSteps(t *testing.T) {
	model := loadTestSequenceModel(t)

	_, err := model.Rollout(context.Background(), []float64{90.2, 90.4, 90.5}, testVector(), 0)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestPredictNextMatchesOneStepRollout(t *testing.T) {
	model := loadTestSequenceModel(t)
	laps := []float64{90.2, 90.4, 90.5}

	next, err := model.PredictNext(context.Background(), laps, testVector())
	require.NoError(t, err)

	forecasts, err := model.Rollout(context.Background(), laps, testVector(), 1)
	require.NoError(t, err)

	assert.Equal(t, forecasts[0], *next)
}

func TestLoadSequenceRejectsBadDimensions(t *testing.T) {
	artifact := testSequenceArtifact()
	artifact.OutputWeights = []float64{0.8}

	_, err := LoadElmanSequenceModel(writeArtifact(t, artifact), testLogger())
	assert.True(t, errors.Is(err, ErrInvalidArtifact))
}

func TestLoadSequenceRejectsNonPositiveScale(t *testing.T) {
	artifact := testSequenceArtifact()
	artifact.LapTimeStd = 0

	_, err := LoadElmanSequenceModel(writeArtifact(t, artifact), testLogger())
	assert.True(t, errors.Is(err, ErrInvalidArtifact))
}
