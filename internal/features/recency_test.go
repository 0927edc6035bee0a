package features

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/yourusername/apex-predict/internal/config"
)

func TestRecencyWeightFresh(t *testing.T) {
	w := NewRecencyWeighter(config.DefaultRecencyLambda())
	now := time.Now()

	assert.Equal(t, 1.0, w.Weight(now, now))
}

func TestRecencyWeightFutureDateClamped(t *testing.T) {
	w := NewRecencyWeighter(config.DefaultRecencyLambda())
	now := time.Now()

	assert.Equal(t, 1.0, w.Weight(now.Add(24*time.Hour), now))
}

func TestRecencyWeightTwoYearsRetainsFifth(t *testing.T) {
	// lambda = ln(5)/2, so exp(-lambda * 2) = 1/5 exactly.
	w := NewRecencyWeighter(config.DefaultRecencyLambda())

	assert.InDelta(t, 0.2, w.WeightAge(2.0), 1e-9)
}

func TestRecencyWeightMonotonicDecay(t *testing.T) {
	w := NewRecencyWeighter(config.DefaultRecencyLambda())

	prev := 1.0
	for _, age := range []float64{0.5, 1, 2, 3, 5} {
		weight := w.WeightAge(age)
		assert.Less(t, weight, prev, "weight must decay with age %v", age)
		assert.Greater(t, weight, 0.0)
		prev = weight
	}
}

func TestRecencyWeightMatchesClosedForm(t *testing.T) {
	lambda := 0.5
	w := NewRecencyWeighter(lambda)

	for _, age := range []float64{0.25, 1.0, 4.0} {
		assert.InDelta(t, math.Exp(-lambda*age), w.WeightAge(age), 1e-12)
	}
}
