package predictor

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/apex-predict/internal/models"
)

// ModelSet holds the three model artifacts behind one hot-swappable handle.
// Reload loads fresh artifacts from the same paths and swaps them in
// atomically, so long-running services pick up retrained models without a
// restart. It implements all three scoring interfaces by delegation.
type ModelSet struct {
	classifierPath string
	sequencePath   string
	overtakePath   string
	logger         *logrus.Logger

	mu         sync.RWMutex
	classifier *GBTClassifier
	sequence   *ElmanSequenceModel
	overtake   *LogisticOvertakeModel
}

// LoadModelSet loads all three artifacts, failing if any is missing or invalid.
func LoadModelSet(classifierPath, sequencePath, overtakePath string, logger *logrus.Logger) (*ModelSet, error) {
	ms := &ModelSet{
		classifierPath: classifierPath,
		sequencePath:   sequencePath,
		overtakePath:   overtakePath,
		logger:         logger,
	}
	if err := ms.Reload(); err != nil {
		return nil, err
	}
	return ms, nil
}

// Reload loads fresh artifacts and swaps them in. On any failure the
// previous artifacts stay active.
func (ms *ModelSet) Reload() error {
	classifier, err := LoadGBTClassifier(ms.classifierPath, ms.logger)
	if err != nil {
		return err
	}
	sequence, err := LoadElmanSequenceModel(ms.sequencePath, ms.logger)
	if err != nil {
		return err
	}
	overtake, err := LoadLogisticOvertakeModel(ms.overtakePath, ms.logger)
	if err != nil {
		return err
	}

	ms.mu.Lock()
	ms.classifier = classifier
	ms.sequence = sequence
	ms.overtake = overtake
	ms.mu.Unlock()

	return nil
}

// Version returns the classifier artifact version, which tags bundles and
// cache keys.
func (ms *ModelSet) Version() string {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return ms.classifier.Version()
}

// SchemaVersion returns the feature schema version the models expect.
func (ms *ModelSet) SchemaVersion() string {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return ms.classifier.SchemaVersion()
}

// Score delegates to the active classifier.
func (ms *ModelSet) Score(ctx context.Context, vec *models.FeatureVector) (*models.PodiumDistribution, error) {
	ms.mu.RLock()
	c := ms.classifier
	ms.mu.RUnlock()
	return c.Score(ctx, vec)
}

// MinContext delegates to the active sequence model.
func (ms *ModelSet) MinContext() int {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return ms.sequence.MinContext()
}

// PredictNext delegates to the active sequence model.
func (ms *ModelSet) PredictNext(ctx context.Context, laps []float64, vec *models.FeatureVector) (*models.LapForecast, error) {
	ms.mu.RLock()
	s := ms.sequence
	ms.mu.RUnlock()
	return s.PredictNext(ctx, laps, vec)
}

// Rollout delegates to the active sequence model.
func (ms *ModelSet) Rollout(ctx context.Context, laps []float64, vec *models.FeatureVector, steps int) ([]models.LapForecast, error) {
	ms.mu.RLock()
	s := ms.sequence
	ms.mu.RUnlock()
	return s.Rollout(ctx, laps, vec, steps)
}

// Estimate delegates to the active overtake model.
func (ms *ModelSet) Estimate(trailing, leading *models.DegradationProfile, gapSeconds float64) (*models.OvertakeProbability, error) {
	ms.mu.RLock()
	o := ms.overtake
	ms.mu.RUnlock()
	return o.Estimate(trailing, leading, gapSeconds)
}
