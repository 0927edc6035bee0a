package features

// Feature schema versioning. A model artifact trained against a schema
// version only accepts vectors built with the exact same ordered field set;
// the check happens at score time, never coerced.

// SchemaVersionV1 is the current feature schema identifier.
const SchemaVersionV1 = "v1"

// Schema field names, in vector order.
const (
	FeatureBeta1WeightedMean     = "beta1_weighted_mean"
	FeatureBeta1WeightedVariance = "beta1_weighted_variance"
	FeatureQRDWeightedMean       = "qrd_weighted_mean"
	FeatureISDWeightedMean       = "isd_weighted_mean"
	FeatureHistoryWeightSum      = "history_weight_sum"
)

// SchemaV1Fields returns the ordered field names of schema v1. The order is
// part of the model contract and must never change within a version.
func SchemaV1Fields() []string {
	return []string{
		FeatureBeta1WeightedMean,
		FeatureBeta1WeightedVariance,
		FeatureQRDWeightedMean,
		FeatureISDWeightedMean,
		FeatureHistoryWeightSum,
	}
}
