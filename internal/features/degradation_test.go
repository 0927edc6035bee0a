package features

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/apex-predict/internal/models"
)

func makeLaps(times []float64) []models.AdjustedLapRecord {
	riderID := uuid.New()
	sessionID := uuid.New()
	laps := make([]models.AdjustedLapRecord, len(times))
	for i, ts := range times {
		laps[i] = models.AdjustedLapRecord{
			RiderID:         riderID,
			SessionID:       sessionID,
			LapNumber:       i + 1,
			AdjustedLapTime: ts,
		}
	}
	return laps
}

func TestFitRecoversPerfectLine(t *testing.T) {
	// y = 90 + 0.05x, no noise, no warmup exclusion
	est := NewEstimator(5, 0)
	var times []float64
	for lap := 1; lap <= 10; lap++ {
		times = append(times, 90+0.05*float64(lap))
	}

	profile, err := est.Fit(makeLaps(times))
	require.NoError(t, err)
	require.True(t, profile.Usable())

	assert.InDelta(t, 90.0, profile.Beta0, 1e-9)
	assert.InDelta(t, 0.05, profile.Beta1, 1e-9)
	assert.InDelta(t, 0.0, profile.ResidualVariance, 1e-9)
	assert.Equal(t, 10, profile.SampleCount)
}

func TestFitResidualVariance(t *testing.T) {
	// Alternating +-0.1 around a flat 90s pace. The fitted line is flat, so
	// SSR = n * 0.01 and variance = SSR / (n - 2).
	est := NewEstimator(5, 0)
	times := []float64{90.1, 89.9, 90.1, 89.9, 90.1, 89.9}

	profile, err := est.Fit(makeLaps(times))
	require.NoError(t, err)

	assert.InDelta(t, 0.0, profile.Beta1, 0.02)
	assert.Greater(t, profile.ResidualVariance, 0.0)
	assert.InDelta(t, 6*0.01/4.0, profile.ResidualVariance, 3e-3)
}

func TestFitInsufficientLaps(t *testing.T) {
	est := NewEstimator(5, 3)

	profile, err := est.Fit(makeLaps([]float64{91, 90.5, 90.2}))
	require.NoError(t, err)

	assert.True(t, profile.Insufficient)
	assert.False(t, profile.Usable())
	assert.Equal(t, 3, profile.SampleCount)
}

func TestFitEmptySequence(t *testing.T) {
	est := NewEstimator(5, 3)

	_, err := est.Fit(nil)
	assert.True(t, errors.Is(err, models.ErrInsufficientData))
}

func TestFitExcludesWarmupLaps(t *testing.T) {
	// Warm-up laps are far off the trend; excluding them changes the slope.
	est := NewEstimator(5, 3)
	times := []float64{95, 94, 93}
	for lap := 4; lap <= 12; lap++ {
		times = append(times, 90+0.05*float64(lap))
	}

	profile, err := est.Fit(makeLaps(times))
	require.NoError(t, err)
	assert.InDelta(t, 0.05, profile.Beta1, 1e-9)
}

func TestFitKeepsWarmupWhenTooFewRemain(t *testing.T) {
	// 6 laps, 3 warmup: only 3 would remain, below the minimum, so the fit
	// keeps all laps.
	est := NewEstimator(5, 3)
	times := []float64{95, 94, 93, 90.2, 90.25, 90.3}

	profile, err := est.Fit(makeLaps(times))
	require.NoError(t, err)
	require.True(t, profile.Usable())

	// Including the fast-improving warmup laps drags the slope negative.
	assert.Less(t, profile.Beta1, 0.0)
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		name     string
		beta1    float64
		expected PaceCategory
	}{
		{"strong improver", -0.5, PaceImprover},
		{"boundary improver", -0.100001, PaceImprover},
		{"maintainer low edge", -0.1, PaceMaintainer},
		{"flat", 0.0, PaceMaintainer},
		{"maintainer high edge", 0.1, PaceMaintainer},
		{"boundary degrader", 0.100001, PaceDegrader},
		{"strong degrader", 0.4, PaceDegrader},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile := &models.DegradationProfile{Beta1: tt.beta1}
			assert.Equal(t, tt.expected, Categorize(profile))
		})
	}
}
