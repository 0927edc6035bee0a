// Package service coordinates the feature pipeline and model inference into
// prediction bundles.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/apex-predict/internal/config"
	"github.com/yourusername/apex-predict/internal/features"
	"github.com/yourusername/apex-predict/internal/logger"
	"github.com/yourusername/apex-predict/internal/models"
	"github.com/yourusername/apex-predict/internal/predictor"
)

// InferenceOrchestrator fans one race input out over a bounded worker pool,
// one evaluation per rider, and folds the results into a single bundle.
// It is the only component allowed to downgrade a typed pipeline error into
// a per-rider bundle entry; every layer below returns errors unchanged.
type InferenceOrchestrator struct {
	cfg        *config.Config
	normalizer *features.Normalizer
	estimator  *features.Estimator
	qrdCalc    *features.QRDCalculator
	assembler  *features.Assembler
	classifier predictor.OutcomeClassifier
	sequence   predictor.SequencePredictor
	overtake   predictor.OvertakeEstimator
	cache      *predictor.ScoreCache
	logger     *logrus.Logger
	plog       *logger.PipelineLogger
}

// riderResult is the raw outcome of one rider evaluation before the
// orchestrator decides how to fold it into the bundle.
type riderResult struct {
	prediction models.RiderPrediction
	vector     *models.FeatureVector
	// currentProfile is the degradation fit over the rider's current-race
	// laps, used for pairwise overtake scoring.
	currentProfile *models.DegradationProfile
	err            error
}

// NewInferenceOrchestrator creates the orchestrator with its full pipeline.
func NewInferenceOrchestrator(
	cfg *config.Config,
	classifier predictor.OutcomeClassifier,
	sequence predictor.SequencePredictor,
	overtake predictor.OvertakeEstimator,
	cache *predictor.ScoreCache,
	log *logrus.Logger,
) *InferenceOrchestrator {
	f := cfg.Features
	return &InferenceOrchestrator{
		cfg:        cfg,
		normalizer: features.NewNormalizer(f.FuelAlpha, log),
		estimator:  features.NewEstimator(f.MinLapsForFit, f.WarmupLaps),
		qrdCalc:    features.NewQRDCalculator(),
		assembler: features.NewAssembler(
			features.NewRecencyWeighter(f.RecencyLambda),
			features.NewTemperatureMatcher(f.TempSigma, f.TempCutoffSigmas),
			f.MinHistorySessions,
			f.MaxHistoryYears,
			log,
		),
		classifier: classifier,
		sequence:   sequence,
		overtake:   overtake,
		cache:      cache,
		logger:     log,
		plog:       logger.NewPipelineLogger(log),
	}
}

// Predict evaluates every rider in the input concurrently and returns one
// bundle. Individual rider failures become error entries in the bundle;
// only context cancellation fails the request as a whole. Re-running the
// same input against the same artifacts produces an identical bundle apart
// from its timestamp.
func (o *InferenceOrchestrator) Predict(ctx context.Context, input *models.RaceInput) (*models.PredictionBundle, error) {
	start := time.Now()

	if input == nil || len(input.Riders) == 0 {
		return nil, fmt.Errorf("%w: race input has no riders", models.ErrDataIntegrity)
	}

	qrdIndex := o.buildQRDIndex(input.Rankings)

	results := make([]riderResult, len(input.Riders))
	sem := make(chan struct{}, o.cfg.Inference.ConcurrencyCap)
	var wg sync.WaitGroup

	for i := range input.Riders {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				results[idx] = riderResult{err: ctx.Err()}
				return
			}
			defer func() { <-sem }()

			InflightRiders.Inc()
			defer InflightRiders.Dec()

			results[idx] = o.evaluateWithTimeout(ctx, input, &input.Riders[idx], qrdIndex)
		}(i)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		PredictionBundlesTotal.WithLabelValues("canceled").Inc()
		return nil, err
	}

	if o.cfg.Features.PopulationFallback {
		o.applyPopulationFallback(ctx, input, results)
	}

	bundle := &models.PredictionBundle{
		RaceID:       input.RaceID,
		ModelVersion: o.classifier.Version(),
		Riders:       make([]models.RiderPrediction, len(results)),
		GeneratedAt:  time.Now().UTC(),
	}

	var failed int
	for i := range results {
		res := &results[i]
		if res.err != nil {
			res.prediction = models.RiderPrediction{
				RiderID:     input.Riders[i].RiderID,
				ErrorReason: res.err.Error(),
			}
			o.plog.LogRiderFailure(input.Riders[i].RiderID.String(), res.err.Error())
			RiderEvaluationsTotal.WithLabelValues("failure").Inc()
			failed++
		} else {
			RiderEvaluationsTotal.WithLabelValues("success").Inc()
		}
		bundle.Riders[i] = res.prediction
	}

	bundle.Overtakes = o.scoreOvertakes(input, results)

	duration := time.Since(start)
	BundleDuration.Observe(duration.Seconds())
	PredictionBundlesTotal.WithLabelValues("success").Inc()
	o.plog.LogBundleComplete(input.RaceID.String(), len(results)-failed, failed, float64(duration.Milliseconds()))

	return bundle, nil
}

// evaluateWithTimeout bounds one rider evaluation by the configured timeout,
// with an optional single retry when the first attempt timed out but the
// request as a whole is still live.
func (o *InferenceOrchestrator) evaluateWithTimeout(parent context.Context, input *models.RaceInput, rider *models.RiderInput, qrdIndex map[uuid.UUID]map[uuid.UUID]models.QRDScore) riderResult {
	res := o.evaluateOnce(parent, input, rider, qrdIndex)
	if res.err != nil && errors.Is(res.err, context.DeadlineExceeded) &&
		o.cfg.Inference.RetryOnTimeout && parent.Err() == nil {
		o.logger.WithField("rider_id", rider.RiderID).Warn("Rider evaluation timed out, retrying once")
		res = o.evaluateOnce(parent, input, rider, qrdIndex)
	}
	return res
}

func (o *InferenceOrchestrator) evaluateOnce(parent context.Context, input *models.RaceInput, rider *models.RiderInput, qrdIndex map[uuid.UUID]map[uuid.UUID]models.QRDScore) riderResult {
	ctx, cancel := context.WithTimeout(parent, o.cfg.InferenceTimeout())
	defer cancel()
	return o.evaluateRider(ctx, input, rider, qrdIndex)
}

// evaluateRider runs the full pipeline for one rider: history preparation,
// feature assembly, outcome classification and, when current-race laps are
// available, the lap-time trajectory.
func (o *InferenceOrchestrator) evaluateRider(ctx context.Context, input *models.RaceInput, rider *models.RiderInput, qrdIndex map[uuid.UUID]map[uuid.UUID]models.QRDScore) riderResult {
	currentProfile := o.fitCurrentProfile(rider)

	key := predictor.CacheKey{
		RaceID:       input.RaceID,
		RiderID:      rider.RiderID,
		ModelVersion: o.classifier.Version(),
	}
	if o.cache != nil {
		if cached := o.cache.Get(key); cached != nil {
			o.plog.LogModelScore("classifier", o.classifier.Version(), true, 0)
			return riderResult{prediction: *cached, currentProfile: currentProfile}
		}
	}

	history := o.prepareHistory(rider, qrdIndex)

	vec, err := o.assembler.Assemble(rider.RiderID, input.RaceID, history, input.ForecastTemp, input.ReferenceDate)
	if err != nil {
		return riderResult{currentProfile: currentProfile, err: err}
	}

	prediction, err := o.scoreVector(ctx, input, rider, vec)
	if err != nil {
		return riderResult{vector: vec, currentProfile: currentProfile, err: err}
	}

	if o.cache != nil {
		o.cache.Set(key, prediction)
	}

	return riderResult{prediction: *prediction, vector: vec, currentProfile: currentProfile}
}

// scoreVector runs both models over one assembled feature vector. The
// classifier is mandatory; the trajectory degrades gracefully when the
// current race has not produced enough laps yet.
func (o *InferenceOrchestrator) scoreVector(ctx context.Context, input *models.RaceInput, rider *models.RiderInput, vec *models.FeatureVector) (*models.RiderPrediction, error) {
	podium, err := o.classifier.Score(ctx, vec)
	if err != nil {
		return nil, err
	}

	prediction := &models.RiderPrediction{
		RiderID: rider.RiderID,
		Podium:  podium,
	}

	if len(rider.CurrentLaps) > 0 {
		trajectory, err := o.forecastTrajectory(ctx, input, rider, vec)
		switch {
		case err == nil:
			prediction.LapTrajectory = trajectory
		case errors.Is(err, models.ErrInsufficientSequence), errors.Is(err, models.ErrDataIntegrity):
			o.logger.WithFields(logrus.Fields{
				"rider_id": rider.RiderID,
				"reason":   err.Error(),
			}).Debug("Skipping lap trajectory")
		default:
			return nil, err
		}
	}

	return prediction, nil
}

func (o *InferenceOrchestrator) forecastTrajectory(ctx context.Context, input *models.RaceInput, rider *models.RiderInput, vec *models.FeatureVector) ([]models.LapForecast, error) {
	adjusted, err := o.normalizer.Normalize(rider.CurrentLaps)
	if err != nil {
		return nil, err
	}

	lapTimes := make([]float64, len(adjusted))
	for i, lap := range adjusted {
		lapTimes[i] = lap.AdjustedLapTime
	}

	steps := input.ForecastLaps
	if steps <= 0 {
		steps = 1
	}
	return o.sequence.Rollout(ctx, lapTimes, vec, steps)
}

// prepareHistory normalizes, fits and annotates every historical session the
// rider brings. Sessions failing integrity checks are excluded rather than
// failing the rider: a corrupt session is that session's problem.
func (o *InferenceOrchestrator) prepareHistory(rider *models.RiderInput, qrdIndex map[uuid.UUID]map[uuid.UUID]models.QRDScore) []features.HistoricalSession {
	history := make([]features.HistoricalSession, 0, len(rider.History))

	for _, sl := range rider.History {
		adjusted, err := o.normalizer.Normalize(sl.Laps)
		if err != nil {
			HistorySessionsExcluded.WithLabelValues("integrity").Inc()
			o.logger.WithFields(logrus.Fields{
				"rider_id":   rider.RiderID,
				"session_id": sl.Session.ID,
				"error":      err.Error(),
			}).Warn("Excluding historical session with corrupt lap data")
			continue
		}

		profile, err := o.estimator.Fit(adjusted)
		if err != nil {
			HistorySessionsExcluded.WithLabelValues("empty").Inc()
			continue
		}

		h := features.HistoricalSession{
			Session: sl.Session,
			Profile: profile,
		}

		if isd, err := features.ComputeISD(adjusted); err == nil {
			h.ISD = &isd
		}

		if byRider, ok := qrdIndex[sl.Session.EventID]; ok {
			if score, ok := byRider[rider.RiderID]; ok {
				h.QRD = &score
			}
		}

		history = append(history, h)
	}

	return history
}

// fitCurrentProfile fits the degradation trend over the current race's laps.
// Returns nil when the race is too young for a usable fit; overtake scoring
// then skips the rider.
func (o *InferenceOrchestrator) fitCurrentProfile(rider *models.RiderInput) *models.DegradationProfile {
	if len(rider.CurrentLaps) == 0 {
		return nil
	}

	adjusted, err := o.normalizer.Normalize(rider.CurrentLaps)
	if err != nil {
		return nil
	}
	profile, err := o.estimator.Fit(adjusted)
	if err != nil || !profile.Usable() {
		return nil
	}
	return profile
}

// buildQRDIndex precomputes QRD scores per (event, rider). A broken ranking
// table drops its whole event from the index; the affected riders simply
// lose that feature's contribution.
func (o *InferenceOrchestrator) buildQRDIndex(rankings []models.EventRanking) map[uuid.UUID]map[uuid.UUID]models.QRDScore {
	index := make(map[uuid.UUID]map[uuid.UUID]models.QRDScore, len(rankings))

	for _, ranking := range rankings {
		scores, err := o.qrdCalc.Calculate(ranking)
		if err != nil {
			o.logger.WithFields(logrus.Fields{
				"event_id": ranking.EventID,
				"error":    err.Error(),
			}).Warn("Excluding event with partial ranking table")
			continue
		}

		byRider := make(map[uuid.UUID]models.QRDScore, len(scores))
		for _, score := range scores {
			byRider[score.RiderID] = score
		}
		index[ranking.EventID] = byRider
	}

	return index
}

// applyPopulationFallback rescores riders who failed only on insufficient
// history using the unweighted mean of the field's assembled vectors. This
// is opt-in; the default is to abstain rather than guess.
func (o *InferenceOrchestrator) applyPopulationFallback(ctx context.Context, input *models.RaceInput, results []riderResult) {
	var vectors []*models.FeatureVector
	for i := range results {
		if results[i].err == nil && results[i].vector != nil {
			vectors = append(vectors, results[i].vector)
		}
	}
	if len(vectors) == 0 {
		return
	}

	for i := range results {
		res := &results[i]
		if res.err == nil || !errors.Is(res.err, models.ErrInsufficientHistory) {
			continue
		}

		rider := &input.Riders[i]
		vec, err := features.PopulationAverage(rider.RiderID, input.RaceID, vectors)
		if err != nil {
			continue
		}

		prediction, err := o.scoreVector(ctx, input, rider, vec)
		if err != nil {
			continue
		}

		o.logger.WithField("rider_id", rider.RiderID).Info("Scored rider on population-average fallback vector")
		res.prediction = *prediction
		res.err = nil
	}
}

// scoreOvertakes pairs riders adjacent in the running order and estimates
// the chance each trailing rider passes the rider ahead. Pairs lacking a
// usable current-race degradation fit on either side are skipped.
func (o *InferenceOrchestrator) scoreOvertakes(input *models.RaceInput, results []riderResult) []models.OvertakeProbability {
	if o.overtake == nil {
		return nil
	}

	type positioned struct {
		position int
		idx      int
	}
	var order []positioned
	for i := range input.Riders {
		if input.Riders[i].Position > 0 && results[i].currentProfile != nil {
			order = append(order, positioned{position: input.Riders[i].Position, idx: i})
		}
	}
	sort.Slice(order, func(a, b int) bool { return order[a].position < order[b].position })

	var overtakes []models.OvertakeProbability
	for i := 1; i < len(order); i++ {
		if order[i].position != order[i-1].position+1 {
			continue
		}

		leading := results[order[i-1].idx].currentProfile
		trailing := results[order[i].idx].currentProfile
		gap := input.Riders[order[i].idx].GapToAhead

		prob, err := o.overtake.Estimate(trailing, leading, gap)
		if err != nil {
			o.logger.WithFields(logrus.Fields{
				"trailing": trailing.RiderID,
				"leading":  leading.RiderID,
				"error":    err.Error(),
			}).Debug("Skipping overtake pair")
			continue
		}
		overtakes = append(overtakes, *prob)
	}

	return overtakes
}
