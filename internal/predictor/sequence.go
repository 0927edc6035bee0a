package predictor

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/apex-predict/internal/models"
)

// ElmanSequenceModel runs a pre-trained single-layer recurrent network over
// the current race's adjusted lap times. The rider's feature vector is
// projected into the initial hidden state so the trajectory reflects the
// rider's historical degradation behavior, not just the laps seen so far.
type ElmanSequenceModel struct {
	artifact *SequenceArtifact
	logger   *logrus.Logger
}

// LoadElmanSequenceModel loads and validates a sequence model artifact.
func LoadElmanSequenceModel(path string, logger *logrus.Logger) (*ElmanSequenceModel, error) {
	artifact := &SequenceArtifact{}
	if err := loadArtifact(path, artifact); err != nil {
		ArtifactReloadsTotal.WithLabelValues("sequence", "failure").Inc()
		return nil, err
	}

	if err := validateSequenceArtifact(artifact); err != nil {
		ArtifactReloadsTotal.WithLabelValues("sequence", "failure").Inc()
		return nil, err
	}

	ArtifactReloadsTotal.WithLabelValues("sequence", "success").Inc()
	logger.WithFields(logrus.Fields{
		"model_version":  artifact.Version,
		"schema_version": artifact.SchemaVersion,
		"hidden_size":    artifact.HiddenSize,
		"min_context":    artifact.MinContext,
	}).Info("Loaded sequence model artifact")

	return &ElmanSequenceModel{artifact: artifact, logger: logger}, nil
}

// Version returns the model artifact version.
func (m *ElmanSequenceModel) Version() string { return m.artifact.Version }

// SchemaVersion returns the feature schema version the model was trained on.
func (m *ElmanSequenceModel) SchemaVersion() string { return m.artifact.SchemaVersion }

// MinContext returns the minimum number of observed laps required.
func (m *ElmanSequenceModel) MinContext() int { return m.artifact.MinContext }

// PredictNext returns the one-step predictive distribution for the lap
// following the observed sequence.
func (m *ElmanSequenceModel) PredictNext(ctx context.Context, laps []float64, vec *models.FeatureVector) (*models.LapForecast, error) {
	forecasts, err := m.Rollout(ctx, laps, vec, 1)
	if err != nil {
		return nil, err
	}
	return &forecasts[0], nil
}

// Rollout recursively forecasts several laps ahead by feeding each
// prediction back as the next input. Uncertainty widens with the forecast
// horizon since later steps compound earlier errors.
func (m *ElmanSequenceModel) Rollout(ctx context.Context, laps []float64, vec *models.FeatureVector, steps int) ([]models.LapForecast, error) {
	start := time.Now()
	defer func() {
		ModelScoreLatency.WithLabelValues("sequence").Observe(time.Since(start).Seconds())
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a := m.artifact
	if vec.SchemaVersion != a.SchemaVersion {
		SchemaMismatchTotal.WithLabelValues("sequence").Inc()
		return nil, fmt.Errorf("%w: vector schema %q, sequence model trained on %q",
			models.ErrSchemaVersion, vec.SchemaVersion, a.SchemaVersion)
	}
	if len(vec.Values) != a.FeatureCount {
		return nil, fmt.Errorf("%w: expected %d features, got %d", ErrInvalidInput, a.FeatureCount, len(vec.Values))
	}
	if len(laps) < a.MinContext {
		return nil, fmt.Errorf("%w: %d laps observed, model requires %d",
			models.ErrInsufficientSequence, len(laps), a.MinContext)
	}
	if steps <= 0 {
		return nil, fmt.Errorf("%w: non-positive rollout steps", ErrInvalidInput)
	}

	// Seed the hidden state from the rider's historical features.
	hidden := make([]float64, a.HiddenSize)
	for i := 0; i < a.HiddenSize; i++ {
		var sum float64
		for j, f := range vec.Values {
			sum += a.InitWeights[i][j] * f
		}
		hidden[i] = math.Tanh(sum)
	}

	for _, lap := range laps {
		hidden = m.step(hidden, m.standardize(lap))
	}

	forecasts := make([]models.LapForecast, steps)
	nextLap := len(laps) + 1
	for s := 0; s < steps; s++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var out float64
		for i, h := range hidden {
			out += a.OutputWeights[i] * h
		}
		out += a.OutputBias
		mean := out*a.LapTimeStd + a.LapTimeMean

		forecasts[s] = models.LapForecast{
			LapNumber: nextLap + s,
			Mean:      mean,
			StdDev:    a.ResidualStd * math.Sqrt(float64(s+1)),
		}

		hidden = m.step(hidden, out)
	}

	ModelScoresTotal.WithLabelValues("sequence", "false").Inc()
	return forecasts, nil
}

// step advances the recurrence by one standardized lap-time input.
func (m *ElmanSequenceModel) step(hidden []float64, input float64) []float64 {
	a := m.artifact
	next := make([]float64, a.HiddenSize)
	for i := 0; i < a.HiddenSize; i++ {
		sum := a.InputWeights[i]*input + a.HiddenBias[i]
		for j, h := range hidden {
			sum += a.HiddenWeights[i][j] * h
		}
		next[i] = math.Tanh(sum)
	}
	return next
}

func (m *ElmanSequenceModel) standardize(lapTime float64) float64 {
	return (lapTime - m.artifact.LapTimeMean) / m.artifact.LapTimeStd
}

func validateSequenceArtifact(a *SequenceArtifact) error {
	if a.HiddenSize <= 0 || a.MinContext <= 0 || a.FeatureCount <= 0 {
		return fmt.Errorf("%w: non-positive dimensions", ErrInvalidArtifact)
	}
	if a.LapTimeStd <= 0 || a.ResidualStd <= 0 {
		return fmt.Errorf("%w: non-positive scale parameters", ErrInvalidArtifact)
	}
	if len(a.InputWeights) != a.HiddenSize ||
		len(a.HiddenWeights) != a.HiddenSize ||
		len(a.HiddenBias) != a.HiddenSize ||
		len(a.InitWeights) != a.HiddenSize ||
		len(a.OutputWeights) != a.HiddenSize {
		return fmt.Errorf("%w: weight dimensions do not match hidden size", ErrInvalidArtifact)
	}
	for i := range a.HiddenWeights {
		if len(a.HiddenWeights[i]) != a.HiddenSize {
			return fmt.Errorf("%w: hidden weight row %d has wrong width", ErrInvalidArtifact, i)
		}
		if len(a.InitWeights[i]) != a.FeatureCount {
			return fmt.Errorf("%w: init weight row %d has wrong width", ErrInvalidArtifact, i)
		}
	}
	if a.SchemaVersion == "" || a.Version == "" {
		return fmt.Errorf("%w: missing version tags", ErrInvalidArtifact)
	}
	return nil
}
