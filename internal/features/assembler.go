package features

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/apex-predict/internal/models"
)

// HistoricalSession bundles everything known about one of a rider's past
// sessions: its metadata, the fitted degradation profile, the sustainability
// delta, and the event QRD score when the session belongs to a race weekend.
type HistoricalSession struct {
	Session models.Session
	Profile *models.DegradationProfile
	ISD     *float64
	QRD     *models.QRDScore
}

// Assembler joins the weighted historical profiles and QRD scores into one
// fixed-schema feature vector per (rider, upcoming race) pair. Vectors are
// assembled fresh per prediction call and never persisted here.
type Assembler struct {
	recency     *RecencyWeighter
	temperature *TemperatureMatcher
	minHistory  int
	maxAgeYears float64
	logger      *logrus.Logger
}

// NewAssembler creates a feature assembler
func NewAssembler(recency *RecencyWeighter, temperature *TemperatureMatcher, minHistory int, maxAgeYears float64, logger *logrus.Logger) *Assembler {
	return &Assembler{
		recency:     recency,
		temperature: temperature,
		minHistory:  minHistory,
		maxAgeYears: maxAgeYears,
		logger:      logger,
	}
}

// Assemble emits the schema-v1 feature vector for one rider. History is
// filtered by wet conditions, the recency horizon and the temperature
// cutoff; insufficient-data profiles are excluded from the aggregate rather
// than treated as a zero slope. Zero eligible sessions is an
// insufficient-history failure the orchestrator must decide how to handle.
func (a *Assembler) Assemble(riderID, raceID uuid.UUID, history []HistoricalSession, forecastTemp float64, referenceDate time.Time) (*models.FeatureVector, error) {
	var (
		weightSum    float64
		beta1Sum     float64
		qrdSum       float64
		qrdWeightSum float64
		isdSum       float64
		isdWeightSum float64
		eligible     int
		excluded     int
		weighted     []weightedBeta1
	)

	for _, h := range history {
		w, ok := a.sessionWeight(h, forecastTemp, referenceDate)
		if !ok {
			excluded++
			continue
		}

		eligible++
		weightSum += w
		beta1Sum += w * h.Profile.Beta1
		weighted = append(weighted, weightedBeta1{weight: w, beta1: h.Profile.Beta1})

		if h.QRD != nil {
			qrdSum += w * h.QRD.Score
			qrdWeightSum += w
		}
		if h.ISD != nil {
			isdSum += w * (*h.ISD)
			isdWeightSum += w
		}
	}

	if a.logger != nil {
		a.logger.WithFields(logrus.Fields{
			"rider_id": riderID,
			"eligible": eligible,
			"excluded": excluded,
		}).Debug("Filtered rider history")
	}

	if eligible < a.minHistory || weightSum <= 0 {
		return nil, fmt.Errorf("%w: rider %s has %d eligible sessions (minimum %d)",
			models.ErrInsufficientHistory, riderID, eligible, a.minHistory)
	}

	beta1Mean := beta1Sum / weightSum

	var beta1Var float64
	for _, wb := range weighted {
		d := wb.beta1 - beta1Mean
		beta1Var += wb.weight * d * d
	}
	beta1Var /= weightSum

	var qrdMean float64
	if qrdWeightSum > 0 {
		qrdMean = qrdSum / qrdWeightSum
	}
	var isdMean float64
	if isdWeightSum > 0 {
		isdMean = isdSum / isdWeightSum
	}

	return &models.FeatureVector{
		RiderID:       riderID,
		RaceID:        raceID,
		SchemaVersion: SchemaVersionV1,
		Names:         SchemaV1Fields(),
		Values:        []float64{beta1Mean, beta1Var, qrdMean, isdMean, weightSum},
	}, nil
}

// sessionWeight computes the combined historical weight of one session, or
// reports it ineligible.
func (a *Assembler) sessionWeight(h HistoricalSession, forecastTemp float64, referenceDate time.Time) (float64, bool) {
	if h.Profile == nil || !h.Profile.Usable() {
		return 0, false
	}
	if h.Session.IsWet {
		return 0, false
	}

	ageYears := referenceDate.Sub(h.Session.Date).Hours() / hoursPerYear
	if ageYears > a.maxAgeYears {
		return 0, false
	}

	tempWeight, inBand := a.temperature.Weight(h.Session.TrackTemp, forecastTemp)
	if !inBand {
		return 0, false
	}

	return CombineWeights(a.recency.Weight(h.Session.Date, referenceDate), tempWeight), true
}

// PopulationAverage builds the fallback vector used when a rider has no
// eligible history: the unweighted mean of the field's assembled vectors.
func PopulationAverage(riderID, raceID uuid.UUID, vectors []*models.FeatureVector) (*models.FeatureVector, error) {
	if len(vectors) == 0 {
		return nil, fmt.Errorf("%w: no vectors available for population average", models.ErrInsufficientHistory)
	}

	values := make([]float64, len(SchemaV1Fields()))
	for _, v := range vectors {
		if v.SchemaVersion != SchemaVersionV1 || len(v.Values) != len(values) {
			return nil, fmt.Errorf("%w: population vector built on %q", models.ErrSchemaVersion, v.SchemaVersion)
		}
		for i, val := range v.Values {
			values[i] += val
		}
	}
	for i := range values {
		values[i] /= float64(len(vectors))
	}

	return &models.FeatureVector{
		RiderID:       riderID,
		RaceID:        raceID,
		SchemaVersion: SchemaVersionV1,
		Names:         SchemaV1Fields(),
		Values:        values,
	}, nil
}

type weightedBeta1 struct {
	weight float64
	beta1  float64
}
