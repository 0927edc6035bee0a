package models

import "github.com/google/uuid"

// DegradationProfile holds the fitted linear trend of adjusted lap time vs
// lap number for one (rider, session) pair. Beta1 is the degradation slope
// in seconds per lap; a large positive slope means the tire is dropping off.
type DegradationProfile struct {
	RiderID          uuid.UUID `json:"rider_id"`
	SessionID        uuid.UUID `json:"session_id"`
	Beta0            float64   `json:"beta0"`
	Beta1            float64   `json:"beta1"`
	ResidualVariance float64   `json:"residual_variance"`
	SampleCount      int       `json:"sample_count"`
	// Insufficient marks a profile whose sample count fell below the
	// minimum-lap threshold. Consumers must treat the coefficients as
	// missing, not zero.
	Insufficient bool `json:"insufficient"`
}

// Usable reports whether the fitted coefficients may be consumed downstream.
func (p *DegradationProfile) Usable() bool {
	return !p.Insufficient
}
