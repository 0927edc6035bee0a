package features

import "math"

// TemperatureMatcher weights historical sessions by closeness of their track
// temperature to the forecast for the upcoming race, using a Gaussian
// kernel. Sessions beyond the cutoff are excluded entirely rather than
// down-weighted to near-zero, to bound compute cost.
type TemperatureMatcher struct {
	sigma        float64
	cutoffSigmas float64
}

// NewTemperatureMatcher creates a matcher with the given kernel width in
// degrees Celsius and the cutoff expressed in standard deviations.
func NewTemperatureMatcher(sigma, cutoffSigmas float64) *TemperatureMatcher {
	return &TemperatureMatcher{sigma: sigma, cutoffSigmas: cutoffSigmas}
}

// Weight returns the Gaussian kernel weight for a historical session
// temperature against the forecast, and whether the session is inside the
// cutoff band at all.
func (m *TemperatureMatcher) Weight(histTemp, forecastTemp float64) (float64, bool) {
	delta := math.Abs(histTemp - forecastTemp)
	if delta > m.cutoffSigmas*m.sigma {
		return 0, false
	}
	return math.Exp(-(delta * delta) / (2 * m.sigma * m.sigma)), true
}

// CombineWeights merges the recency and temperature weights into the final
// historical weight. Combined weights are multiplicative.
func CombineWeights(recency, temperature float64) float64 {
	return recency * temperature
}
