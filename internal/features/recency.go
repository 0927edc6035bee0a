package features

import (
	"math"
	"time"
)

const hoursPerYear = 24 * 365.25

// RecencyWeighter assigns decaying influence to historical records by age.
// Pure function of (age, lambda); no side effects.
type RecencyWeighter struct {
	lambda float64
}

// NewRecencyWeighter creates a weighter with the given decay rate per year.
func NewRecencyWeighter(lambda float64) *RecencyWeighter {
	return &RecencyWeighter{lambda: lambda}
}

// Weight returns exp(-lambda * age_years) in (0,1]. Records dated at or
// after the reference date carry full weight.
func (w *RecencyWeighter) Weight(recordDate, referenceDate time.Time) float64 {
	ageYears := referenceDate.Sub(recordDate).Hours() / hoursPerYear
	if ageYears <= 0 {
		return 1.0
	}
	return math.Exp(-w.lambda * ageYears)
}

// WeightAge returns the decay factor for an age expressed in years.
func (w *RecencyWeighter) WeightAge(ageYears float64) float64 {
	if ageYears <= 0 {
		return 1.0
	}
	return math.Exp(-w.lambda * ageYears)
}
