package service

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/apex-predict/internal/config"
	"github.com/yourusername/apex-predict/internal/models"
	"github.com/yourusername/apex-predict/internal/predictor"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "apex-predict-test", Environment: "development", LogLevel: "error"},
		Features: config.FeaturesConfig{
			FuelAlpha:          0.035,
			RecencyLambda:      config.DefaultRecencyLambda(),
			TempSigma:          5.0,
			TempCutoffSigmas:   3.0,
			MinLapsForFit:      5,
			WarmupLaps:         3,
			MinHistorySessions: 1,
			MaxHistoryYears:    5.0,
		},
		Inference: config.InferenceConfig{
			ConcurrencyCap: 4,
			TimeoutSeconds: 5,
		},
	}
}

func writeTestArtifact(t *testing.T, name string, artifact interface{}) string {
	t.Helper()
	data, err := json.Marshal(artifact)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func newTestOrchestrator(t *testing.T, cfg *config.Config) *InferenceOrchestrator {
	t.Helper()
	logger := testLogger()

	header := predictor.ArtifactHeader{
		Version:       "2026.08.1",
		SchemaVersion: "v1",
		TrainedAt:     time.Now().UTC(),
	}

	classifierPath := writeTestArtifact(t, "classifier.json", &predictor.ClassifierArtifact{
		ArtifactHeader: header,
		Classes:        []string{"win", "podium", "outside_podium"},
		BaseScores:     []float64{0, 0.5, 1.0},
		Forests: [][]Tree{
			{leafTree(0.0)},
			{leafTree(0.0)},
			{leafTree(0.0)},
		},
		FeatureCount: 5,
	})

	sequencePath := writeTestArtifact(t, "sequence.json", &predictor.SequenceArtifact{
		ArtifactHeader: header,
		MinContext:     3,
		HiddenSize:     2,
		FeatureCount:   5,
		InputWeights:   []float64{0.5, -0.3},
		HiddenWeights:  [][]float64{{0.1, 0.2}, {-0.1, 0.3}},
		HiddenBias:     []float64{0.05, -0.05},
		InitWeights: [][]float64{
			{0.4, 0.1, 0.02, 0.05, 0.01},
			{-0.2, 0.3, 0.01, -0.04, 0.02},
		},
		OutputWeights: []float64{0.8, -0.6},
		OutputBias:    0.1,
		ResidualStd:   0.4,
		LapTimeMean:   90.0,
		LapTimeStd:    1.5,
	})

	overtakePath := writeTestArtifact(t, "overtake.json", &predictor.OvertakeArtifact{
		ArtifactHeader: header,
		SlopeCoef:      4.0,
		GapCoef:        0.8,
		NoChangeBase:   0.1,
	})

	modelSet, err := predictor.LoadModelSet(classifierPath, sequencePath, overtakePath, logger)
	require.NoError(t, err)

	cache := predictor.NewScoreCache(time.Minute, 100)
	return NewInferenceOrchestrator(cfg, modelSet, modelSet, modelSet, cache, logger)
}

func leafTree(value float64) predictor.Tree {
	return predictor.Tree{Nodes: []predictor.TreeNode{{Leaf: true, Value: value}}}
}

// Tree aliases keep the artifact literals compact.
type Tree = predictor.Tree

func sessionLaps(riderID uuid.UUID, date time.Time, slope float64, lapCount int) models.SessionLaps {
	sessionID := uuid.New()
	session := models.Session{
		ID:        sessionID,
		EventID:   uuid.New(),
		CircuitID: uuid.New(),
		Type:      models.SessionTypeRace,
		TrackTemp: 32.0,
		IsWet:     false,
		Date:      date,
	}

	laps := make([]models.LapRecord, lapCount)
	for i := 0; i < lapCount; i++ {
		laps[i] = models.LapRecord{
			RiderID:       riderID,
			SessionID:     sessionID,
			LapNumber:     i + 1,
			RawLapTime:    90.0 + slope*float64(i+1),
			FuelRemaining: 0,
			TrackTemp:     32.0,
		}
	}
	return models.SessionLaps{Session: session, Laps: laps}
}

func currentLaps(riderID uuid.UUID, raceID uuid.UUID, count int) []models.LapRecord {
	laps := make([]models.LapRecord, count)
	for i := 0; i < count; i++ {
		laps[i] = models.LapRecord{
			RiderID:       riderID,
			SessionID:     raceID,
			LapNumber:     i + 1,
			RawLapTime:    90.3 + 0.04*float64(i+1),
			FuelRemaining: 0,
			TrackTemp:     33.0,
		}
	}
	return laps
}

func riderWithHistory(raceID uuid.UUID, refDate time.Time, position int, gap float64, liveLaps int) models.RiderInput {
	riderID := uuid.New()
	rider := models.RiderInput{
		RiderID:    riderID,
		Position:   position,
		GapToAhead: gap,
		History: []models.SessionLaps{
			sessionLaps(riderID, refDate.Add(-30*24*time.Hour), 0.05, 12),
			sessionLaps(riderID, refDate.Add(-60*24*time.Hour), 0.03, 10),
		},
	}
	if liveLaps > 0 {
		rider.CurrentLaps = currentLaps(riderID, raceID, liveLaps)
	}
	return rider
}

func testRaceInput(riders ...models.RiderInput) *models.RaceInput {
	return &models.RaceInput{
		RaceID:        uuid.New(),
		ForecastTemp:  33.0,
		ReferenceDate: time.Now(),
		ForecastLaps:  3,
		Riders:        riders,
	}
}

func TestPredictFullBundle(t *testing.T) {
	cfg := testConfig()
	o := newTestOrchestrator(t, cfg)

	raceID := uuid.New()
	refDate := time.Now()
	input := &models.RaceInput{
		RaceID:        raceID,
		ForecastTemp:  33.0,
		ReferenceDate: refDate,
		ForecastLaps:  3,
		Riders: []models.RiderInput{
			riderWithHistory(raceID, refDate, 1, 0, 6),
			riderWithHistory(raceID, refDate, 2, 1.2, 6),
			riderWithHistory(raceID, refDate, 3, 0.8, 6),
		},
	}

	bundle, err := o.Predict(context.Background(), input)
	require.NoError(t, err)
	require.Len(t, bundle.Riders, 3)

	assert.Equal(t, raceID, bundle.RaceID)
	assert.Equal(t, "2026.08.1", bundle.ModelVersion)
	assert.Empty(t, bundle.FailedRiders())

	for i, pred := range bundle.Riders {
		assert.Equal(t, input.Riders[i].RiderID, pred.RiderID, "bundle preserves input order")
		require.NotNil(t, pred.Podium)
		assert.InDelta(t, 1.0, pred.Podium.Sum(), 1e-9)
		require.Len(t, pred.LapTrajectory, 3)
		assert.Equal(t, 7, pred.LapTrajectory[0].LapNumber)
	}

	// Two adjacent pairs in the running order.
	require.Len(t, bundle.Overtakes, 2)
	assert.Equal(t, input.Riders[1].RiderID, bundle.Overtakes[0].TrailingRiderID)
	assert.Equal(t, input.Riders[0].RiderID, bundle.Overtakes[0].LeadingRiderID)
	for _, ov := range bundle.Overtakes {
		assert.GreaterOrEqual(t, ov.Probability, 0.0)
		assert.LessOrEqual(t, ov.Probability, 1.0)
	}
}

func TestPredictRiderWithoutHistoryGetsErrorSlot(t *testing.T) {
	cfg := testConfig()
	o := newTestOrchestrator(t, cfg)

	raceID := uuid.New()
	refDate := time.Now()
	good := riderWithHistory(raceID, refDate, 1, 0, 0)
	rookie := models.RiderInput{RiderID: uuid.New(), Position: 2, GapToAhead: 2.0}

	bundle, err := o.Predict(context.Background(), testRaceInput(good, rookie))
	require.NoError(t, err)
	require.Len(t, bundle.Riders, 2)

	assert.False(t, bundle.Riders[0].Failed())
	assert.True(t, bundle.Riders[1].Failed())
	assert.NotEmpty(t, bundle.Riders[1].ErrorReason)
	assert.Nil(t, bundle.Riders[1].Podium)

	failed := bundle.FailedRiders()
	require.Len(t, failed, 1)
	assert.Equal(t, rookie.RiderID, failed[0])
}

func TestPredictPopulationFallback(t *testing.T) {
	cfg := testConfig()
	cfg.Features.PopulationFallback = true
	o := newTestOrchestrator(t, cfg)

	raceID := uuid.New()
	refDate := time.Now()
	good := riderWithHistory(raceID, refDate, 1, 0, 0)
	rookie := models.RiderInput{RiderID: uuid.New(), Position: 2, GapToAhead: 2.0}

	bundle, err := o.Predict(context.Background(), testRaceInput(good, rookie))
	require.NoError(t, err)

	assert.Empty(t, bundle.FailedRiders())
	require.NotNil(t, bundle.Riders[1].Podium)
	assert.InDelta(t, 1.0, bundle.Riders[1].Podium.Sum(), 1e-9)
}

func TestPredictIdempotent(t *testing.T) {
	cfg := testConfig()
	o := newTestOrchestrator(t, cfg)

	raceID := uuid.New()
	refDate := time.Now()
	input := &models.RaceInput{
		RaceID:        raceID,
		ForecastTemp:  33.0,
		ReferenceDate: refDate,
		ForecastLaps:  2,
		Riders: []models.RiderInput{
			riderWithHistory(raceID, refDate, 1, 0, 6),
			riderWithHistory(raceID, refDate, 2, 0.5, 6),
		},
	}

	first, err := o.Predict(context.Background(), input)
	require.NoError(t, err)
	second, err := o.Predict(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, first.Riders, second.Riders)
	assert.Equal(t, first.Overtakes, second.Overtakes)
	assert.Equal(t, first.ModelVersion, second.ModelVersion)
}

func TestPredictExcludesCorruptHistorySession(t *testing.T) {
	cfg := testConfig()
	o := newTestOrchestrator(t, cfg)

	raceID := uuid.New()
	refDate := time.Now()
	rider := riderWithHistory(raceID, refDate, 0, 0, 0)

	// A third session with out-of-order lap numbers fails integrity checks
	// but must not take the rider down with it.
	corrupt := sessionLaps(rider.RiderID, refDate.Add(-10*24*time.Hour), 0.05, 8)
	corrupt.Laps[2].LapNumber = 1
	rider.History = append(rider.History, corrupt)

	bundle, err := o.Predict(context.Background(), testRaceInput(rider))
	require.NoError(t, err)

	assert.False(t, bundle.Riders[0].Failed())
	require.NotNil(t, bundle.Riders[0].Podium)
}

func TestPredictNoTrajectoryBelowMinContext(t *testing.T) {
	cfg := testConfig()
	o := newTestOrchestrator(t, cfg)

	raceID := uuid.New()
	refDate := time.Now()
	rider := riderWithHistory(raceID, refDate, 0, 0, 2)

	bundle, err := o.Predict(context.Background(), testRaceInput(rider))
	require.NoError(t, err)

	// Two laps are below the sequence model's context window: the podium
	// distribution survives while the trajectory is dropped.
	assert.False(t, bundle.Riders[0].Failed())
	require.NotNil(t, bundle.Riders[0].Podium)
	assert.Empty(t, bundle.Riders[0].LapTrajectory)
}

func TestPredictSkipsOvertakesWithoutUsableLiveFit(t *testing.T) {
	cfg := testConfig()
	o := newTestOrchestrator(t, cfg)

	raceID := uuid.New()
	refDate := time.Now()
	// Both riders positioned but with too few live laps for a usable fit.
	input := testRaceInput(
		riderWithHistory(raceID, refDate, 1, 0, 2),
		riderWithHistory(raceID, refDate, 2, 0.5, 2),
	)

	bundle, err := o.Predict(context.Background(), input)
	require.NoError(t, err)
	assert.Empty(t, bundle.Overtakes)
}

func TestPredictCanceledContext(t *testing.T) {
	cfg := testConfig()
	o := newTestOrchestrator(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	raceID := uuid.New()
	refDate := time.Now()
	_, err := o.Predict(ctx, testRaceInput(riderWithHistory(raceID, refDate, 1, 0, 0)))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPredictEmptyInput(t *testing.T) {
	cfg := testConfig()
	o := newTestOrchestrator(t, cfg)

	_, err := o.Predict(context.Background(), nil)
	assert.ErrorIs(t, err, models.ErrDataIntegrity)

	_, err = o.Predict(context.Background(), &models.RaceInput{RaceID: uuid.New()})
	assert.ErrorIs(t, err, models.ErrDataIntegrity)
}
