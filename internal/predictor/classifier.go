package predictor

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/apex-predict/internal/models"
)

// Expected class layout of the classifier artifact.
var outcomeClasses = []string{"win", "podium", "outside_podium"}

// GBTClassifier runs inference over a pre-trained gradient-boosted tree
// ensemble. The artifact is loaded once and treated as read-only for the
// lifetime of a prediction batch, so it is safe to share across concurrent
// rider evaluations.
type GBTClassifier struct {
	artifact *ClassifierArtifact
	logger   *logrus.Logger
}

// LoadGBTClassifier loads and validates a classifier artifact from disk.
func LoadGBTClassifier(path string, logger *logrus.Logger) (*GBTClassifier, error) {
	artifact := &ClassifierArtifact{}
	if err := loadArtifact(path, artifact); err != nil {
		ArtifactReloadsTotal.WithLabelValues("classifier", "failure").Inc()
		return nil, err
	}

	if err := validateClassifierArtifact(artifact); err != nil {
		ArtifactReloadsTotal.WithLabelValues("classifier", "failure").Inc()
		return nil, err
	}

	ArtifactReloadsTotal.WithLabelValues("classifier", "success").Inc()
	logger.WithFields(logrus.Fields{
		"model_version":  artifact.Version,
		"schema_version": artifact.SchemaVersion,
		"trees":          len(artifact.Forests[0]),
	}).Info("Loaded classification model artifact")

	return &GBTClassifier{artifact: artifact, logger: logger}, nil
}

// Version returns the model artifact version.
func (c *GBTClassifier) Version() string { return c.artifact.Version }

// SchemaVersion returns the feature schema version the model was trained on.
func (c *GBTClassifier) SchemaVersion() string { return c.artifact.SchemaVersion }

// Score produces the calibrated outcome distribution for one feature
// vector. A vector built against a different schema version is rejected,
// never coerced.
func (c *GBTClassifier) Score(ctx context.Context, vec *models.FeatureVector) (*models.PodiumDistribution, error) {
	start := time.Now()
	defer func() {
		ModelScoreLatency.WithLabelValues("classifier").Observe(time.Since(start).Seconds())
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if vec.SchemaVersion != c.artifact.SchemaVersion {
		SchemaMismatchTotal.WithLabelValues("classifier").Inc()
		return nil, fmt.Errorf("%w: vector schema %q, classifier trained on %q",
			models.ErrSchemaVersion, vec.SchemaVersion, c.artifact.SchemaVersion)
	}
	if len(vec.Values) != c.artifact.FeatureCount {
		return nil, fmt.Errorf("%w: expected %d features, got %d",
			ErrInvalidInput, c.artifact.FeatureCount, len(vec.Values))
	}

	scores := make([]float64, len(c.artifact.Forests))
	for class, forest := range c.artifact.Forests {
		score := c.artifact.BaseScores[class]
		for i := range forest {
			score += forest[i].Eval(vec.Values)
		}
		scores[class] = score
	}

	probs := softmax(scores)
	ModelScoresTotal.WithLabelValues("classifier", "false").Inc()

	return &models.PodiumDistribution{
		Win:           probs[0],
		Podium:        probs[1],
		OutsidePodium: probs[2],
	}, nil
}

func validateClassifierArtifact(a *ClassifierArtifact) error {
	if len(a.Classes) != len(outcomeClasses) {
		return fmt.Errorf("%w: expected %d classes, got %d", ErrInvalidArtifact, len(outcomeClasses), len(a.Classes))
	}
	for i, class := range outcomeClasses {
		if a.Classes[i] != class {
			return fmt.Errorf("%w: class %d is %q, expected %q", ErrInvalidArtifact, i, a.Classes[i], class)
		}
	}
	if len(a.Forests) != len(a.Classes) || len(a.BaseScores) != len(a.Classes) {
		return fmt.Errorf("%w: forest/base score count does not match classes", ErrInvalidArtifact)
	}
	if a.FeatureCount <= 0 {
		return fmt.Errorf("%w: non-positive feature count", ErrInvalidArtifact)
	}
	if a.SchemaVersion == "" || a.Version == "" {
		return fmt.Errorf("%w: missing version tags", ErrInvalidArtifact)
	}
	return nil
}

// softmax maps raw ensemble scores to a probability simplex. Shifting by the
// max keeps the exponentials stable.
func softmax(scores []float64) []float64 {
	maxScore := scores[0]
	for _, s := range scores[1:] {
		if s > maxScore {
			maxScore = s
		}
	}

	probs := make([]float64, len(scores))
	var sum float64
	for i, s := range scores {
		probs[i] = math.Exp(s - maxScore)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}
