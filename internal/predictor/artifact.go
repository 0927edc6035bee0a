package predictor

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Model artifacts are versioned JSON blobs exported by the training side.
// Each carries its name, version and the feature schema version it was
// trained against; the schema tag is checked on every scoring call.

// ArtifactHeader is the common envelope shared by all artifact kinds.
type ArtifactHeader struct {
	Name          string    `json:"name"`
	Version       string    `json:"version"`
	SchemaVersion string    `json:"schema_version"`
	TrainedAt     time.Time `json:"trained_at"`
}

// TreeNode is one node of a regression tree. Internal nodes split on a
// feature index against a threshold; leaves carry an additive score.
type TreeNode struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Leaf      bool    `json:"leaf"`
	Value     float64 `json:"value"`
}

// Tree is a single regression tree, nodes indexed from the root at 0.
type Tree struct {
	Nodes []TreeNode `json:"nodes"`
}

// Eval walks the tree for one feature vector.
func (t *Tree) Eval(features []float64) float64 {
	idx := 0
	for {
		node := t.Nodes[idx]
		if node.Leaf {
			return node.Value
		}
		if features[node.Feature] <= node.Threshold {
			idx = node.Left
		} else {
			idx = node.Right
		}
	}
}

// ClassifierArtifact holds a gradient-boosted ensemble: one tree forest per
// outcome class plus per-class base scores.
type ClassifierArtifact struct {
	ArtifactHeader
	Classes    []string  `json:"classes"`
	BaseScores []float64 `json:"base_scores"`
	Forests    [][]Tree  `json:"forests"`
	// FeatureCount pins the expected vector length.
	FeatureCount int `json:"feature_count"`
}

// SequenceArtifact holds a single-layer recurrent network over standardized
// lap times, with the rider feature vector projected into the initial
// hidden state.
type SequenceArtifact struct {
	ArtifactHeader
	MinContext   int         `json:"min_context"`
	HiddenSize   int         `json:"hidden_size"`
	FeatureCount int         `json:"feature_count"`
	InputWeights []float64   `json:"input_weights"`
	HiddenWeights [][]float64 `json:"hidden_weights"`
	HiddenBias   []float64   `json:"hidden_bias"`
	InitWeights  [][]float64 `json:"init_weights"`
	OutputWeights []float64  `json:"output_weights"`
	OutputBias   float64     `json:"output_bias"`
	ResidualStd  float64     `json:"residual_std"`
	LapTimeMean  float64     `json:"lap_time_mean"`
	LapTimeStd   float64     `json:"lap_time_std"`
}

// OvertakeArtifact holds the coefficients of the pairwise logistic model.
type OvertakeArtifact struct {
	ArtifactHeader
	SlopeCoef    float64 `json:"slope_coef"`
	GapCoef      float64 `json:"gap_coef"`
	NoChangeBase float64 `json:"no_change_base"`
}

// loadArtifact reads and decodes one artifact file into dst.
func loadArtifact(path string, dst interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrArtifactNotFound, path)
		}
		return fmt.Errorf("failed to read artifact %s: %w", path, err)
	}

	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrArtifactCorrupt, path, err)
	}
	return nil
}
