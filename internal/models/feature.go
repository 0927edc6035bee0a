package models

import "github.com/google/uuid"

// FeatureVector is the assembled model input for one (rider, upcoming race)
// pair. Values are ordered according to the named schema version; models
// trained on a schema version only accept vectors built against it.
type FeatureVector struct {
	RiderID       uuid.UUID `json:"rider_id"`
	RaceID        uuid.UUID `json:"race_id"`
	SchemaVersion string    `json:"schema_version"`
	Names         []string  `json:"names"`
	Values        []float64 `json:"values"`
}

// Get returns the value of a named feature and whether it exists.
func (v *FeatureVector) Get(name string) (float64, bool) {
	for i, n := range v.Names {
		if n == name && i < len(v.Values) {
			return v.Values[i], true
		}
	}
	return 0, false
}

// Len returns the number of features in the vector.
func (v *FeatureVector) Len() int {
	return len(v.Values)
}
