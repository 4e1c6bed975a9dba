package ranking

import (
	"errors"
	"fmt"
	"math"

	"github.com/duskbound/affinity/internal/scoring"
)

// Aggregation errors.
var (
	// ErrInsufficientData means no dimension had nonzero confidence, so
	// there is nothing to blend. Surfaced to the caller, not retried.
	ErrInsufficientData = errors.New("no dimension with nonzero confidence")

	// ErrComputation means the blend produced a non-finite value. The
	// engine fails closed rather than returning a default score.
	ErrComputation = errors.New("compatibility computation produced a non-finite value")
)

// Component is one dimension's contribution to the blend.
type Component struct {
	Dimension  string
	Score      float64
	Confidence float64
}

// BreakdownEntry explains one dimension's part in a result: the raw
// sub-score and the effective weight (configured weight times confidence)
// that was applied to it.
type BreakdownEntry struct {
	SubScore float64 `json:"sub_score"`
	Weight   float64 `json:"weight"`
}

// Result is the combined compatibility outcome for one pair.
type Result struct {
	// Score is the compatibility percentage in [0,100].
	Score float64 `json:"score"`

	// Breakdown maps dimension name to its contribution, including
	// dimensions that were excluded (weight 0) so callers can explain
	// what was and wasn't known.
	Breakdown map[string]BreakdownEntry `json:"breakdown"`
}

// Aggregate blends dimension components into a Result using
// confidence-adjusted weights:
//
//	score = 100 * sum(score_i * weight_i * confidence_i) / sum(weight_i * confidence_i)
//
// A role component with sub-score 0 and nonzero confidence is a hard
// incompatibility: the total is forced to 0 no matter what the other
// dimensions say. That is a deliberate gate, not a consequence of the
// weights.
func Aggregate(components []Component, weights *Weights) (*Result, error) {
	if weights == nil {
		weights = DefaultWeights()
	}

	breakdown := make(map[string]BreakdownEntry, len(components))
	var weightedSum, effectiveTotal float64
	roleGated := false

	for _, c := range components {
		if !finite(c.Score) || !finite(c.Confidence) {
			return nil, fmt.Errorf("%w: dimension %s score=%v confidence=%v",
				ErrComputation, c.Dimension, c.Score, c.Confidence)
		}

		weight, _ := weights.ForDimension(c.Dimension)
		effective := weight * c.Confidence
		breakdown[c.Dimension] = BreakdownEntry{SubScore: c.Score, Weight: effective}

		weightedSum += c.Score * effective
		effectiveTotal += effective

		if c.Dimension == scoring.DimensionRole && c.Confidence > 0 && c.Score == 0 {
			roleGated = true
		}
	}

	if roleGated {
		return &Result{Score: 0, Breakdown: breakdown}, nil
	}
	if effectiveTotal == 0 {
		return nil, ErrInsufficientData
	}

	score := 100 * weightedSum / effectiveTotal
	if !finite(score) {
		return nil, fmt.Errorf("%w: aggregate score=%v", ErrComputation, score)
	}
	// Clamp float drift at the boundaries; sub-scores are already bounded.
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return &Result{Score: score, Breakdown: breakdown}, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
