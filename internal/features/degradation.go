package features

import (
	"fmt"

	"github.com/yourusername/apex-predict/internal/models"
)

// PaceCategory buckets a fitted slope into the rider's race-phase behavior.
// Thresholds follow the classic +-0.1 s/lap bands.
type PaceCategory string

const (
	PaceImprover   PaceCategory = "improver"
	PaceMaintainer PaceCategory = "maintainer"
	PaceDegrader   PaceCategory = "degrader"

	paceCategoryBand = 0.1
)

// Estimator fits the per-rider, per-session linear trend of adjusted lap
// time against lap number.
type Estimator struct {
	minLaps    int
	warmupLaps int
}

// NewEstimator creates a degradation estimator. Sessions with fewer than
// minLaps samples produce an insufficient-data profile instead of a
// numerically unstable fit. Warm-up laps are excluded from the fit when
// enough laps remain without them.
func NewEstimator(minLaps, warmupLaps int) *Estimator {
	return &Estimator{minLaps: minLaps, warmupLaps: warmupLaps}
}

// Fit computes the ordinary least squares fit for one (rider, session) lap
// sequence. The returned profile is flagged insufficient below the
// minimum-lap threshold; downstream consumers must treat that as missing,
// not as a zero slope.
func (e *Estimator) Fit(laps []models.AdjustedLapRecord) (*models.DegradationProfile, error) {
	if len(laps) == 0 {
		return nil, fmt.Errorf("%w: empty lap sequence", models.ErrInsufficientData)
	}

	profile := &models.DegradationProfile{
		RiderID:     laps[0].RiderID,
		SessionID:   laps[0].SessionID,
		SampleCount: len(laps),
	}

	if len(laps) < e.minLaps {
		profile.Insufficient = true
		return profile, nil
	}

	fitLaps := e.excludeWarmup(laps)
	beta0, beta1, residVar := fitOLS(fitLaps)

	profile.Beta0 = beta0
	profile.Beta1 = beta1
	profile.ResidualVariance = residVar
	return profile, nil
}

// excludeWarmup drops the tire warm-up phase when the remaining stint is
// still long enough for a stable fit.
func (e *Estimator) excludeWarmup(laps []models.AdjustedLapRecord) []models.AdjustedLapRecord {
	if e.warmupLaps <= 0 {
		return laps
	}
	warmed := make([]models.AdjustedLapRecord, 0, len(laps))
	for _, lap := range laps {
		if lap.LapNumber > e.warmupLaps {
			warmed = append(warmed, lap)
		}
	}
	if len(warmed) < e.minLaps {
		return laps
	}
	return warmed
}

// Categorize buckets a usable profile's slope into a pace category.
func Categorize(profile *models.DegradationProfile) PaceCategory {
	switch {
	case profile.Beta1 < -paceCategoryBand:
		return PaceImprover
	case profile.Beta1 > paceCategoryBand:
		return PaceDegrader
	default:
		return PaceMaintainer
	}
}

// fitOLS returns the intercept, slope and residual variance of the least
// squares line of adjusted lap time on lap number.
func fitOLS(laps []models.AdjustedLapRecord) (beta0, beta1, residualVariance float64) {
	n := float64(len(laps))

	var sumX, sumY float64
	for _, lap := range laps {
		sumX += float64(lap.LapNumber)
		sumY += lap.AdjustedLapTime
	}
	meanX := sumX / n
	meanY := sumY / n

	var sxx, sxy float64
	for _, lap := range laps {
		dx := float64(lap.LapNumber) - meanX
		sxx += dx * dx
		sxy += dx * (lap.AdjustedLapTime - meanY)
	}

	if sxx == 0 {
		// Degenerate: all laps share a lap number. Caught earlier by the
		// normalizer's monotonicity check, kept as a guard.
		return meanY, 0, 0
	}

	beta1 = sxy / sxx
	beta0 = meanY - beta1*meanX

	var ssr float64
	for _, lap := range laps {
		fitted := beta0 + beta1*float64(lap.LapNumber)
		resid := lap.AdjustedLapTime - fitted
		ssr += resid * resid
	}

	if len(laps) > 2 {
		residualVariance = ssr / (n - 2)
	}
	return beta0, beta1, residualVariance
}
