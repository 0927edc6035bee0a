package predictor

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/apex-predict/internal/models"
)

// LogisticOvertakeModel estimates the probability of a position change from
// the degradation slope difference between two riders and the gap between
// them. The contract is symmetric: swapping roles flips the slope term, and
// P(A overtakes B) + P(B overtakes A) <= 1 with the remainder being the
// no-change residual.
type LogisticOvertakeModel struct {
	artifact *OvertakeArtifact
	logger   *logrus.Logger
}

// LoadLogisticOvertakeModel loads and validates an overtake artifact.
func LoadLogisticOvertakeModel(path string, logger *logrus.Logger) (*LogisticOvertakeModel, error) {
	artifact := &OvertakeArtifact{}
	if err := loadArtifact(path, artifact); err != nil {
		ArtifactReloadsTotal.WithLabelValues("overtake", "failure").Inc()
		return nil, err
	}

	if artifact.GapCoef < 0 || artifact.NoChangeBase < 0 || artifact.NoChangeBase >= 1 {
		ArtifactReloadsTotal.WithLabelValues("overtake", "failure").Inc()
		return nil, fmt.Errorf("%w: gap_coef must be >= 0 and no_change_base in [0,1)", ErrInvalidArtifact)
	}

	ArtifactReloadsTotal.WithLabelValues("overtake", "success").Inc()
	logger.WithField("model_version", artifact.Version).Info("Loaded overtake model artifact")

	return &LogisticOvertakeModel{artifact: artifact, logger: logger}, nil
}

// Version returns the model artifact version.
func (m *LogisticOvertakeModel) Version() string { return m.artifact.Version }

// Estimate returns the probability that the trailing rider passes the
// leading rider. Insufficient degradation profiles cannot be scored: a
// missing slope is missing, not zero.
func (m *LogisticOvertakeModel) Estimate(trailing, leading *models.DegradationProfile, gapSeconds float64) (*models.OvertakeProbability, error) {
	if trailing == nil || leading == nil {
		return nil, fmt.Errorf("%w: both degradation profiles are required", ErrInvalidInput)
	}
	if !trailing.Usable() || !leading.Usable() {
		return nil, fmt.Errorf("%w: degradation profile below minimum lap threshold", models.ErrInsufficientData)
	}
	if gapSeconds < 0 {
		return nil, fmt.Errorf("%w: gap must be non-negative", ErrInvalidInput)
	}

	a := m.artifact

	// A leading rider degrading faster than the chaser raises the pass
	// probability; the gap suppresses it symmetrically for both directions,
	// which keeps the two directed probabilities inside the unit budget.
	deltaBeta1 := leading.Beta1 - trailing.Beta1
	logit := a.SlopeCoef*deltaBeta1 - a.GapCoef*gapSeconds
	prob := (1 - a.NoChangeBase) * sigmoid(logit)

	ModelScoresTotal.WithLabelValues("overtake", "false").Inc()
	return &models.OvertakeProbability{
		TrailingRiderID: trailing.RiderID,
		LeadingRiderID:  leading.RiderID,
		Probability:     prob,
	}, nil
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
