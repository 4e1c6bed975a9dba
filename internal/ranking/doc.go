// Package ranking combines per-dimension compatibility sub-scores into a
// single explainable percentage, with calibration support for the blend
// weights.
//
// Basic Usage:
//
//	// Load calibration (typically at startup)
//	weights, err := ranking.LoadCalibration("configs/ranking.calibration.json")
//	if err != nil {
//		log.Warn("using default weights", "error", err)
//	}
//
//	components := []ranking.Component{
//		{Dimension: scoring.DimensionPersonality, Score: 0.95, Confidence: 1.0},
//		{Dimension: scoring.DimensionRole, Score: 1.0, Confidence: 1.0},
//		// ...
//	}
//	result, err := ranking.Aggregate(components, weights)
//
// Aggregation:
//
// The final score is a confidence-adjusted weighted average: each
// dimension contributes score * weight * confidence, normalized by the
// sum of weight * confidence. Dimensions with zero confidence drop out
// entirely rather than dragging the average down. A role sub-score of
// zero is a hard gate that forces the total to zero regardless of the
// other dimensions.
//
// Calibration:
//
// The calibration system allows deploy-time tuning of blend weights via a
// JSON configuration file loaded at startup. This enables A/B testing and
// weight substitution without code changes (but requires a restart to
// pick up new configuration). See configs/ranking.calibration.json for
// the default configuration.
package ranking
