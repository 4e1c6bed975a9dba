package scoring

import (
	"math"
	"testing"

	"github.com/duskbound/affinity/internal/geo"
	"github.com/duskbound/affinity/internal/profile"
)

const epsilon = 1e-9

func vec(role profile.Role) *profile.ProfileVector {
	return &profile.ProfileVector{
		UserID:              "u",
		Role:                role,
		PersonalityAnswered: true,
		StyleAnswered:       true,
	}
}

func TestPersonality(t *testing.T) {
	a := vec(profile.RoleDominant)
	b := vec(profile.RoleSubmissive)

	a.Personality = [5]float64{0.8, 0.7, 0.6, 0.9, 0.5}
	b.Personality = [5]float64{0.8, 0.7, 0.6, 0.9, 0.5}
	if got := Personality(a, b); math.Abs(got.Score-1) > epsilon || got.Confidence != 1 {
		t.Errorf("identical vectors: expected score 1 confidence 1, got %+v", got)
	}

	// Example pair from the worked scenario: four dimensions differ by
	// 0.05, so distance = sqrt(0.01) = 0.1 and score = 1 - 0.1/sqrt(5).
	b.Personality = [5]float64{0.75, 0.65, 0.55, 0.85, 0.5}
	want := 1 - 0.1/math.Sqrt(5)
	if got := Personality(a, b); math.Abs(got.Score-want) > epsilon {
		t.Errorf("expected score %f, got %f", want, got.Score)
	}

	// Maximum distance: all-zero vs all-one.
	a.Personality = [5]float64{0, 0, 0, 0, 0}
	b.Personality = [5]float64{1, 1, 1, 1, 1}
	if got := Personality(a, b); math.Abs(got.Score) > epsilon {
		t.Errorf("opposite vectors: expected score 0, got %f", got.Score)
	}
}

func TestRelationshipStyle(t *testing.T) {
	a := vec(profile.RoleDominant)
	b := vec(profile.RoleSubmissive)

	tests := []struct {
		name      string
		styleA    [6]float64
		styleB    [6]float64
		wantScore float64
	}{
		{
			name:      "identical direction",
			styleA:    [6]float64{1, 0.5, 0, 0, 0, 0},
			styleB:    [6]float64{1, 0.5, 0, 0, 0, 0},
			wantScore: 1,
		},
		{
			name:      "orthogonal",
			styleA:    [6]float64{1, 0, 0, 0, 0, 0},
			styleB:    [6]float64{0, 1, 0, 0, 0, 0},
			wantScore: 0.5,
		},
		{
			name:      "both zero vectors",
			styleA:    [6]float64{},
			styleB:    [6]float64{},
			wantScore: 1,
		},
		{
			name:      "one zero vector is neutral",
			styleA:    [6]float64{1, 0, 0, 0, 0, 0},
			styleB:    [6]float64{},
			wantScore: 0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a.RelationshipStyle = tt.styleA
			b.RelationshipStyle = tt.styleB
			got := RelationshipStyle(a, b)
			if math.Abs(got.Score-tt.wantScore) > epsilon {
				t.Errorf("expected score %f, got %f", tt.wantScore, got.Score)
			}
			if got.Confidence != 1 {
				t.Errorf("expected confidence 1, got %f", got.Confidence)
			}
			rev := RelationshipStyle(b, a)
			if math.Abs(got.Score-rev.Score) > epsilon {
				t.Errorf("not symmetric: %f vs %f", got.Score, rev.Score)
			}
		})
	}
}

func TestRoleCompatibilityMatrix(t *testing.T) {
	tests := []struct {
		a, b profile.Role
		want float64
	}{
		{profile.RoleDominant, profile.RoleSubmissive, 1.0},
		{profile.RoleSubmissive, profile.RoleDominant, 1.0},
		{profile.RoleDominant, profile.RoleDominant, 0.0},
		{profile.RoleSubmissive, profile.RoleSubmissive, 0.0},
		{profile.RoleSwitch, profile.RoleDominant, 0.8},
		{profile.RoleDominant, profile.RoleSwitch, 0.8},
		{profile.RoleSwitch, profile.RoleSubmissive, 0.8},
		{profile.RoleSubmissive, profile.RoleSwitch, 0.8},
		{profile.RoleSwitch, profile.RoleSwitch, 0.8},
	}

	for _, tt := range tests {
		t.Run(string(tt.a)+" with "+string(tt.b), func(t *testing.T) {
			got := RoleCompatibility(vec(tt.a), vec(tt.b))
			if got.Score != tt.want || got.Confidence != 1 {
				t.Errorf("expected score %f confidence 1, got %+v", tt.want, got)
			}
		})
	}
}

func TestTraitOverlap(t *testing.T) {
	tests := []struct {
		name           string
		traitsA        []string
		traitsB        []string
		wantScore      float64
		wantConfidence float64
	}{
		{
			name:           "partial overlap",
			traitsA:        []string{"Honesty", "Trust"},
			traitsB:        []string{"Loyalty", "Trust"},
			wantScore:      1.0 / 3.0,
			wantConfidence: 2.0 / 5.0,
		},
		{
			name:           "both empty is full overlap",
			traitsA:        nil,
			traitsB:        nil,
			wantScore:      1,
			wantConfidence: 0,
		},
		{
			name:           "one empty",
			traitsA:        []string{"Trust"},
			traitsB:        nil,
			wantScore:      0,
			wantConfidence: 0,
		},
		{
			name:           "identical large sets cap confidence",
			traitsA:        []string{"Trust", "Honesty", "Loyalty", "Patience", "Empathy", "Respect"},
			traitsB:        []string{"Trust", "Honesty", "Loyalty", "Patience", "Empathy", "Respect"},
			wantScore:      1,
			wantConfidence: 1,
		},
		{
			name:           "disjoint sets",
			traitsA:        []string{"Trust", "Honesty"},
			traitsB:        []string{"Loyalty", "Respect"},
			wantScore:      0,
			wantConfidence: 2.0 / 5.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := vec(profile.RoleDominant)
			b := vec(profile.RoleSubmissive)
			a.ImportantTraits = tt.traitsA
			b.ImportantTraits = tt.traitsB

			got := TraitOverlap(a, b)
			if math.Abs(got.Score-tt.wantScore) > epsilon {
				t.Errorf("expected score %f, got %f", tt.wantScore, got.Score)
			}
			if math.Abs(got.Confidence-tt.wantConfidence) > epsilon {
				t.Errorf("expected confidence %f, got %f", tt.wantConfidence, got.Confidence)
			}
		})
	}
}

func TestKinkOverlap(t *testing.T) {
	tests := []struct {
		name           string
		kinksA         map[string]float64
		kinksB         map[string]float64
		wantScore      float64
		wantConfidence float64
	}{
		{
			name:           "shared categories averaged",
			kinksA:         map[string]float64{"rope": 80, "wax": 40},
			kinksB:         map[string]float64{"rope": 60, "wax": 40},
			wantScore:      ((1 - 0.2) + 1) / 2,
			wantConfidence: 1,
		},
		{
			name:           "partial category overlap",
			kinksA:         map[string]float64{"rope": 100, "impact": 50},
			kinksB:         map[string]float64{"rope": 100, "sensation": 30},
			wantScore:      1,
			wantConfidence: 1.0 / 3.0,
		},
		{
			name:           "neither supplied data",
			kinksA:         nil,
			kinksB:         nil,
			wantScore:      0.5,
			wantConfidence: 0,
		},
		{
			name:           "no shared categories",
			kinksA:         map[string]float64{"rope": 50},
			kinksB:         map[string]float64{"wax": 50},
			wantScore:      0.5,
			wantConfidence: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := vec(profile.RoleDominant)
			b := vec(profile.RoleSubmissive)
			a.KinkPreferences = tt.kinksA
			b.KinkPreferences = tt.kinksB

			got := KinkOverlap(a, b)
			if math.Abs(got.Score-tt.wantScore) > epsilon {
				t.Errorf("expected score %f, got %f", tt.wantScore, got.Score)
			}
			if math.Abs(got.Confidence-tt.wantConfidence) > epsilon {
				t.Errorf("expected confidence %f, got %f", tt.wantConfidence, got.Confidence)
			}
			rev := KinkOverlap(b, a)
			if math.Abs(got.Score-rev.Score) > epsilon {
				t.Errorf("not symmetric: %f vs %f", got.Score, rev.Score)
			}
		})
	}
}

func TestProximity(t *testing.T) {
	berlin := geo.Point{Lat: 52.52, Lng: 13.405}
	hamburg := geo.Point{Lat: 53.5511, Lng: 9.9937}

	t.Run("same location", func(t *testing.T) {
		a := vec(profile.RoleDominant)
		b := vec(profile.RoleSubmissive)
		a.Location = &berlin
		b.Location = &berlin
		got := Proximity(a, b, DefaultProximityDecayKm)
		if math.Abs(got.Score-1) > epsilon || got.Confidence != 1 {
			t.Errorf("expected score 1 confidence 1, got %+v", got)
		}
	})

	t.Run("known distance", func(t *testing.T) {
		a := vec(profile.RoleDominant)
		b := vec(profile.RoleSubmissive)
		a.Location = &berlin
		b.Location = &hamburg
		got := Proximity(a, b, DefaultProximityDecayKm)
		want := 1 - geo.DistanceKm(berlin, hamburg)/DefaultProximityDecayKm
		if math.Abs(got.Score-want) > epsilon {
			t.Errorf("expected score %f, got %f", want, got.Score)
		}
	})

	t.Run("beyond decay floors at zero", func(t *testing.T) {
		a := vec(profile.RoleDominant)
		b := vec(profile.RoleSubmissive)
		a.Location = &berlin
		b.Location = &geo.Point{Lat: 40.7128, Lng: -74.0060}
		got := Proximity(a, b, DefaultProximityDecayKm)
		if got.Score != 0 {
			t.Errorf("expected score 0, got %f", got.Score)
		}
	})

	t.Run("missing location excludes dimension", func(t *testing.T) {
		a := vec(profile.RoleDominant)
		b := vec(profile.RoleSubmissive)
		a.Location = &berlin
		got := Proximity(a, b, DefaultProximityDecayKm)
		if got.Confidence != 0 {
			t.Errorf("expected confidence 0, got %f", got.Confidence)
		}
	})
}
