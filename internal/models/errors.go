package models

import "errors"

// Error taxonomy for the prediction pipeline. Components return these
// wrapped with context; only the orchestrator downgrades them into
// per-rider bundle entries.
var (
	// ErrDataIntegrity indicates malformed or out-of-order input, fatal to
	// that session's processing
	ErrDataIntegrity = errors.New("data integrity violation")

	// ErrIncompleteEvent indicates a qualifying/race ranking mismatch, fatal
	// to that event's QRD computation
	ErrIncompleteEvent = errors.New("incomplete event ranking")

	// ErrInsufficientData indicates too few laps for a stable fit
	ErrInsufficientData = errors.New("insufficient data")

	// ErrInsufficientHistory indicates a rider has no eligible historical
	// sessions after recency/temperature filtering
	ErrInsufficientHistory = errors.New("insufficient history")

	// ErrInsufficientSequence indicates the current-race lap sequence is
	// shorter than the sequence model's minimum context
	ErrInsufficientSequence = errors.New("insufficient sequence context")

	// ErrSchemaVersion indicates a feature schema / model artifact version
	// mismatch, never silently coerced
	ErrSchemaVersion = errors.New("feature schema version mismatch")

	// ErrNotFound indicates a record is missing from storage
	ErrNotFound = errors.New("record not found")
)
