package predictor

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/apex-predict/internal/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func writeArtifact(t *testing.T, artifact interface{}) string {
	t.Helper()
	data, err := json.Marshal(artifact)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "artifact.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func leafTree(value float64) Tree {
	return Tree{Nodes: []TreeNode{{Leaf: true, Value: value}}}
}

func testClassifierArtifact() *ClassifierArtifact {
	return &ClassifierArtifact{
		ArtifactHeader: ArtifactHeader{
			Name:          "podium_classifier",
			Version:       "2026.08.1",
			SchemaVersion: "v1",
			TrainedAt:     time.Now().UTC(),
		},
		Classes:      []string{"win", "podium", "outside_podium"},
		BaseScores:   []float64{0, 0, 0},
		Forests:      [][]Tree{{leafTree(2.0)}, {leafTree(1.0)}, {leafTree(0.0)}},
		FeatureCount: 5,
	}
}

func testVector() *models.FeatureVector {
	return &models.FeatureVector{
		SchemaVersion: "v1",
		Names:         []string{"beta1_weighted_mean", "beta1_weighted_variance", "qrd_weighted_mean", "isd_weighted_mean", "history_weight_sum"},
		Values:        []float64{0.05, 0.001, -2.0, 0.4, 1.8},
	}
}

func TestClassifierScoreSimplex(t *testing.T) {
	path := writeArtifact(t, testClassifierArtifact())
	clf, err := LoadGBTClassifier(path, testLogger())
	require.NoError(t, err)

	dist, err := clf.Score(context.Background(), testVector())
	require.NoError(t, err)

	assert.InDelta(t, 1.0, dist.Sum(), 1e-9)
	assert.Greater(t, dist.Win, 0.0)
	// The win forest carries the highest ensemble score.
	assert.Greater(t, dist.Win, dist.Podium)
	assert.Greater(t, dist.Podium, dist.OutsidePodium)
}

func TestClassifierScoreDeterministic(t *testing.T) {
	path := writeArtifact(t, testClassifierArtifact())
	clf, err := LoadGBTClassifier(path, testLogger())
	require.NoError(t, err)

	first, err := clf.Score(context.Background(), testVector())
	require.NoError(t, err)
	second, err := clf.Score(context.Background(), testVector())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestClassifierRejectsSchemaMismatch(t *testing.T) {
	path := writeArtifact(t, testClassifierArtifact())
	clf, err := LoadGBTClassifier(path, testLogger())
	require.NoError(t, err)

	vec := testVector()
	vec.SchemaVersion = "v2"

	_, err = clf.Score(context.Background(), vec)
	assert.True(t, errors.Is(err, models.ErrSchemaVersion))
}

func TestClassifierRejectsWrongVectorLength(t *testing.T) {
	path := writeArtifact(t, testClassifierArtifact())
	clf, err := LoadGBTClassifier(path, testLogger())
	require.NoError(t, err)

	vec := testVector()
	vec.Values = vec.Values[:3]

	_, err = clf.Score(context.Background(), vec)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestClassifierTreeSplitRouting(t *testing.T) {
	artifact := testClassifierArtifact()
	// Win forest splits on the slope mean: degraders (index 0 above 0.1)
	// score low for the win.
	artifact.Forests[0] = []Tree{{Nodes: []TreeNode{
		{Feature: 0, Threshold: 0.1, Left: 1, Right: 2},
		{Leaf: true, Value: 3.0},
		{Leaf: true, Value: -3.0},
	}}}

	path := writeArtifact(t, artifact)
	clf, err := LoadGBTClassifier(path, testLogger())
	require.NoError(t, err)

	improver := testVector()
	improver.Values[0] = -0.2
	degrader := testVector()
	degrader.Values[0] = 0.5

	distImprover, err := clf.Score(context.Background(), improver)
	require.NoError(t, err)
	distDegrader, err := clf.Score(context.Background(), degrader)
	require.NoError(t, err)

	assert.Greater(t, distImprover.Win, distDegrader.Win)
}

func TestClassifierScoreCanceledContext(t *testing.T) {
	path := writeArtifact(t, testClassifierArtifact())
	clf, err := LoadGBTClassifier(path, testLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = clf.Score(ctx, testVector())
	assert.Error(t, err)
}

func TestLoadClassifierMissingFile(t *testing.T) {
	_, err := LoadGBTClassifier(filepath.Join(t.TempDir(), "missing.json"), testLogger())
	assert.True(t, errors.Is(err, ErrArtifactNotFound))
}

func TestLoadClassifierCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := LoadGBTClassifier(path, testLogger())
	assert.True(t, errors.Is(err, ErrArtifactCorrupt))
}

func TestLoadClassifierWrongClassOrder(t *testing.T) {
	artifact := testClassifierArtifact()
	artifact.Classes = []string{"podium", "win", "outside_podium"}

	_, err := LoadGBTClassifier(writeArtifact(t, artifact), testLogger())
	assert.True(t, errors.Is(err, ErrInvalidArtifact))
}
