package ranking

import (
	"errors"
	"math"
	"testing"

	"github.com/duskbound/affinity/internal/scoring"
)

func TestAggregateWorkedExample(t *testing.T) {
	// The reference pair: dominant vs submissive, personality vectors
	// 0.05 apart in four dimensions, traits {Trust,Honesty} vs
	// {Trust,Loyalty}, identical styles, no kink or location data.
	personality := 1 - 0.1/math.Sqrt(5)
	components := []Component{
		{Dimension: scoring.DimensionPersonality, Score: personality, Confidence: 1},
		{Dimension: scoring.DimensionRelationshipStyle, Score: 1, Confidence: 1},
		{Dimension: scoring.DimensionRole, Score: 1, Confidence: 1},
		{Dimension: scoring.DimensionTraits, Score: 1.0 / 3.0, Confidence: 0.4},
		{Dimension: scoring.DimensionKink, Score: 0.5, Confidence: 0},
		{Dimension: scoring.DimensionProximity, Score: 0, Confidence: 0},
	}

	result, err := Aggregate(components, DefaultWeights())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Effective weights: 0.30 + 0.20 + 0.20 + 0.15*0.4 = 0.76.
	want := 100 * (personality*0.30 + 1*0.20 + 1*0.20 + (1.0/3.0)*0.06) / 0.76
	if math.Abs(result.Score-want) > 1e-9 {
		t.Errorf("expected exact score %f, got %f", want, result.Score)
	}

	// Excluded dimensions still appear in the breakdown with weight 0.
	if entry, ok := result.Breakdown[scoring.DimensionKink]; !ok || entry.Weight != 0 {
		t.Errorf("expected kink in breakdown with weight 0, got %+v", entry)
	}
	if entry := result.Breakdown[scoring.DimensionTraits]; math.Abs(entry.Weight-0.06) > 1e-9 {
		t.Errorf("expected traits effective weight 0.06, got %f", entry.Weight)
	}
}

func TestAggregateRoleGate(t *testing.T) {
	// Two dominants: every other dimension is perfect, yet the score
	// must be forced to zero. The gate is a design rule, not a weight
	// artifact.
	components := []Component{
		{Dimension: scoring.DimensionPersonality, Score: 1, Confidence: 1},
		{Dimension: scoring.DimensionRelationshipStyle, Score: 1, Confidence: 1},
		{Dimension: scoring.DimensionRole, Score: 0, Confidence: 1},
		{Dimension: scoring.DimensionTraits, Score: 1, Confidence: 1},
	}

	result, err := Aggregate(components, DefaultWeights())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Score != 0 {
		t.Errorf("expected gated score 0, got %f", result.Score)
	}
	// The breakdown survives the gate for explainability.
	if len(result.Breakdown) != 4 {
		t.Errorf("expected full breakdown, got %+v", result.Breakdown)
	}
}

func TestAggregateZeroScoreWithoutRoleIsNotGated(t *testing.T) {
	// A zero sub-score on a non-role dimension is just a low signal.
	components := []Component{
		{Dimension: scoring.DimensionPersonality, Score: 0, Confidence: 1},
		{Dimension: scoring.DimensionRole, Score: 1, Confidence: 1},
	}

	result, err := Aggregate(components, DefaultWeights())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := 100 * (0.20) / 0.50
	if math.Abs(result.Score-want) > 1e-9 {
		t.Errorf("expected %f, got %f", want, result.Score)
	}
}

func TestAggregateInsufficientData(t *testing.T) {
	components := []Component{
		{Dimension: scoring.DimensionKink, Score: 0.5, Confidence: 0},
		{Dimension: scoring.DimensionProximity, Score: 0, Confidence: 0},
	}

	_, err := Aggregate(components, DefaultWeights())
	if !errors.Is(err, ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
}

func TestAggregateFailsClosedOnNaN(t *testing.T) {
	tests := []struct {
		name      string
		component Component
	}{
		{
			name:      "NaN score",
			component: Component{Dimension: scoring.DimensionPersonality, Score: math.NaN(), Confidence: 1},
		},
		{
			name:      "infinite confidence",
			component: Component{Dimension: scoring.DimensionPersonality, Score: 0.5, Confidence: math.Inf(1)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Aggregate([]Component{tt.component}, DefaultWeights())
			if !errors.Is(err, ErrComputation) {
				t.Errorf("expected ErrComputation, got %v", err)
			}
		})
	}
}

func TestAggregateBounds(t *testing.T) {
	tests := []struct {
		name       string
		components []Component
	}{
		{
			name: "all maximal",
			components: []Component{
				{Dimension: scoring.DimensionPersonality, Score: 1, Confidence: 1},
				{Dimension: scoring.DimensionRelationshipStyle, Score: 1, Confidence: 1},
				{Dimension: scoring.DimensionRole, Score: 1, Confidence: 1},
				{Dimension: scoring.DimensionTraits, Score: 1, Confidence: 1},
				{Dimension: scoring.DimensionKink, Score: 1, Confidence: 1},
				{Dimension: scoring.DimensionProximity, Score: 1, Confidence: 1},
			},
		},
		{
			name: "all minimal but role compatible",
			components: []Component{
				{Dimension: scoring.DimensionPersonality, Score: 0, Confidence: 1},
				{Dimension: scoring.DimensionRole, Score: 0.8, Confidence: 1},
			},
		},
		{
			name: "single dimension",
			components: []Component{
				{Dimension: scoring.DimensionRole, Score: 1, Confidence: 1},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Aggregate(tt.components, DefaultWeights())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.Score < 0 || result.Score > 100 {
				t.Errorf("score %f outside [0,100]", result.Score)
			}
		})
	}
}

func TestAggregateOrderIndependent(t *testing.T) {
	components := []Component{
		{Dimension: scoring.DimensionPersonality, Score: 0.7, Confidence: 1},
		{Dimension: scoring.DimensionRole, Score: 1, Confidence: 1},
		{Dimension: scoring.DimensionTraits, Score: 0.4, Confidence: 0.6},
	}
	reversed := []Component{components[2], components[1], components[0]}

	a, err := Aggregate(components, DefaultWeights())
	if err != nil {
		t.Fatal(err)
	}
	b, err := Aggregate(reversed, DefaultWeights())
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(a.Score-b.Score) > 1e-12 {
		t.Errorf("component order changed the score: %f vs %f", a.Score, b.Score)
	}
}
