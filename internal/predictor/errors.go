// Package predictor provides in-process inference over the pre-trained
// model artifacts.
package predictor

import "errors"

var (
	// ErrArtifactNotFound indicates a model artifact file is missing
	ErrArtifactNotFound = errors.New("model artifact not found")

	// ErrArtifactCorrupt indicates a model artifact failed to parse
	ErrArtifactCorrupt = errors.New("model artifact corrupt")

	// ErrInvalidArtifact indicates a parsed artifact violates its structural
	// invariants
	ErrInvalidArtifact = errors.New("invalid model artifact")

	// ErrInvalidInput indicates a scoring input outside the model contract
	ErrInvalidInput = errors.New("invalid model input")
)
