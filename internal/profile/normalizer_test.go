package profile

import (
	"errors"
	"math"
	"testing"

	"github.com/duskbound/affinity/internal/geo"
)

// validAnswers returns a full battery of answer index 0 for every question.
func validAnswers(n int) []int {
	return make([]int, n)
}

func completeRaw(userID string) *RawProfile {
	return &RawProfile{
		UserID:             userID,
		Role:               "dominant",
		PersonalityAnswers: validAnswers(PersonalityQuestions),
		StyleAnswers:       validAnswers(StyleQuestions),
		Version:            1,
	}
}

func TestNormalizeComplete(t *testing.T) {
	n := NewNormalizer(nil)

	vec, err := n.Normalize(completeRaw("user-1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !vec.Complete() {
		t.Error("expected vector to be complete")
	}
	if vec.Role != RoleDominant {
		t.Errorf("expected dominant role, got %q", vec.Role)
	}
	if vec.VectorVersion != 1 {
		t.Errorf("expected version 1, got %d", vec.VectorVersion)
	}
	for d, score := range vec.Personality {
		if score < 0 || score > 1 {
			t.Errorf("personality[%d] = %f outside [0,1]", d, score)
		}
	}
	for c, score := range vec.RelationshipStyle {
		if score < 0 || score > 1 {
			t.Errorf("style[%d] = %f outside [0,1]", c, score)
		}
	}
}

func TestNormalizePersonalityContribution(t *testing.T) {
	// With every answer 0, the emotional-intelligence questions (0, 5,
	// 10, 15) contribute 0+3+1+0 = 4, so the score is 4/12.
	n := NewNormalizer(nil)
	vec, err := n.Normalize(completeRaw("user-1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := 4.0 / 12.0
	if math.Abs(vec.Personality[DimEmotionalIntelligence]-want) > 1e-9 {
		t.Errorf("expected EI score %f, got %f", want, vec.Personality[DimEmotionalIntelligence])
	}
}

func TestNormalizeStyleContribution(t *testing.T) {
	// Style question 0 targets tpe_devotee; option 3 contributes 3, so
	// the category score is 3/3 = 1.
	raw := completeRaw("user-1")
	raw.StyleAnswers = []int{3, 0, 0, 0, 0, 0}

	vec, err := NewNormalizer(nil).Normalize(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(vec.RelationshipStyle[StyleTPEDevotee]-1.0) > 1e-9 {
		t.Errorf("expected tpe_devotee 1.0, got %f", vec.RelationshipStyle[StyleTPEDevotee])
	}
}

func TestNormalizeIncomplete(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RawProfile)
	}{
		{name: "missing role", mutate: func(r *RawProfile) { r.Role = "" }},
		{name: "missing personality battery", mutate: func(r *RawProfile) { r.PersonalityAnswers = nil }},
		{name: "missing style battery", mutate: func(r *RawProfile) { r.StyleAnswers = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := completeRaw("user-1")
			tt.mutate(raw)
			vec, err := NewNormalizer(nil).Normalize(raw)
			if err != nil {
				t.Fatalf("incomplete profile must not fail validation: %v", err)
			}
			if vec.Complete() {
				t.Error("expected incomplete vector")
			}
		})
	}
}

func TestNormalizeValidationFailures(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*RawProfile)
		wantCode string
	}{
		{
			name:     "invalid role",
			mutate:   func(r *RawProfile) { r.Role = "top" },
			wantCode: CodeOutOfRangeValue,
		},
		{
			name:     "wrong personality battery length",
			mutate:   func(r *RawProfile) { r.PersonalityAnswers = []int{0, 1, 2} },
			wantCode: CodeOutOfRangeValue,
		},
		{
			name: "answer index out of range",
			mutate: func(r *RawProfile) {
				r.PersonalityAnswers = validAnswers(PersonalityQuestions)
				r.PersonalityAnswers[7] = 4
			},
			wantCode: CodeOutOfRangeValue,
		},
		{
			name: "negative answer index",
			mutate: func(r *RawProfile) {
				r.StyleAnswers = validAnswers(StyleQuestions)
				r.StyleAnswers[2] = -1
			},
			wantCode: CodeOutOfRangeValue,
		},
		{
			name:     "unknown trait",
			mutate:   func(r *RawProfile) { r.Traits = []string{"Trust", "Telepathy"} },
			wantCode: CodeUnknownTrait,
		},
		{
			name:     "invalid latitude",
			mutate:   func(r *RawProfile) { r.Location = &geo.Point{Lat: 91, Lng: 0} },
			wantCode: CodeOutOfRangeValue,
		},
		{
			name:     "missing user id",
			mutate:   func(r *RawProfile) { r.UserID = "" },
			wantCode: CodeOutOfRangeValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := completeRaw("user-1")
			tt.mutate(raw)
			_, err := NewNormalizer(nil).Normalize(raw)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if !verr.HasCode(tt.wantCode) {
				t.Errorf("expected code %q in %+v", tt.wantCode, verr.Fields)
			}
		})
	}
}

func TestNormalizeCollectsAllFieldErrors(t *testing.T) {
	raw := completeRaw("user-1")
	raw.Role = "pillow"
	raw.Traits = []string{"Moonwalking"}

	_, err := NewNormalizer(nil).Normalize(raw)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if len(verr.Fields) != 2 {
		t.Errorf("expected 2 field errors, got %d: %+v", len(verr.Fields), verr.Fields)
	}
}

func TestNormalizeTraitsDeduplicatedAndSorted(t *testing.T) {
	raw := completeRaw("user-1")
	raw.Traits = []string{"Trust", "Honesty", "Trust", "Aftercare", "Honesty"}

	vec, err := NewNormalizer(nil).Normalize(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"Aftercare", "Honesty", "Trust"}
	if len(vec.ImportantTraits) != len(want) {
		t.Fatalf("expected %v, got %v", want, vec.ImportantTraits)
	}
	for i, label := range want {
		if vec.ImportantTraits[i] != label {
			t.Errorf("expected %v, got %v", want, vec.ImportantTraits)
			break
		}
	}
}

func TestNormalizeKinkClamping(t *testing.T) {
	raw := completeRaw("user-1")
	raw.KinkPreferences = map[string]float64{
		"rope":      150,
		"wax":       -20,
		"sensation": 60,
	}

	vec, err := NewNormalizer(nil).Normalize(raw)
	if err != nil {
		t.Fatalf("clamping must not fail validation: %v", err)
	}
	if vec.KinkPreferences["rope"] != 100 {
		t.Errorf("expected rope clamped to 100, got %f", vec.KinkPreferences["rope"])
	}
	if vec.KinkPreferences["wax"] != 0 {
		t.Errorf("expected wax clamped to 0, got %f", vec.KinkPreferences["wax"])
	}
	if vec.KinkPreferences["sensation"] != 60 {
		t.Errorf("expected sensation unchanged, got %f", vec.KinkPreferences["sensation"])
	}
}

func TestNormalizeLocationCoarsened(t *testing.T) {
	raw := completeRaw("user-1")
	raw.Location = &geo.Point{Lat: 37.774912345, Lng: -122.419412345}

	vec, err := NewNormalizer(nil).Normalize(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vec.Location == nil {
		t.Fatal("expected coarsened location")
	}
	// The stored point must be a cell center, not the raw coordinate.
	if *vec.Location != geo.Coarsen(*raw.Location) {
		t.Errorf("location not coarsened: %+v", vec.Location)
	}
	// City-level cells are small enough to stay within a few km.
	if geo.DistanceKm(*vec.Location, *raw.Location) > 5 {
		t.Errorf("coarsened location too far from original: %+v", vec.Location)
	}
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{in: "dominant", want: RoleDominant},
		{in: "Submissive", want: RoleSubmissive},
		{in: " SWITCH ", want: RoleSwitch},
		{in: "", want: RoleUnset},
		{in: "vanilla", wantErr: true},
	}

	for _, tt := range tests {
		t.Run("parse "+tt.in, func(t *testing.T) {
			got, err := ParseRole(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidRole) {
					t.Errorf("expected ErrInvalidRole, got %v", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ParseRole(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
			}
		})
	}
}
