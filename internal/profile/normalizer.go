package profile

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/duskbound/affinity/internal/geo"
)

// Validation failure codes carried on FieldError. The API layer maps them
// onto response error codes one to one.
const (
	CodeUnknownTrait    = "unknown_trait"
	CodeOutOfRangeValue = "out_of_range_value"
)

// FieldError describes one invalid input field on a raw profile.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationError is returned when a raw profile cannot be normalized.
// It lists every offending field so the caller can correct the whole
// submission in one round trip.
type ValidationError struct {
	UserID string
	Fields []FieldError
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = fmt.Sprintf("%s: %s", f.Field, f.Message)
	}
	return fmt.Sprintf("profile %s failed validation: %s", e.UserID, strings.Join(parts, "; "))
}

// HasCode reports whether any field failed with the given code.
func (e *ValidationError) HasCode(code string) bool {
	for _, f := range e.Fields {
		if f.Code == code {
			return true
		}
	}
	return false
}

// RawProfile is a read-only snapshot of one user's matching inputs as
// supplied by the profile store. Nil answer slices mean the battery has
// not been taken; the resulting vector is incomplete, not invalid.
type RawProfile struct {
	UserID             string             `json:"user_id"`
	Role               string             `json:"role"`
	PersonalityAnswers []int              `json:"personality_answers,omitempty"`
	StyleAnswers       []int              `json:"style_answers,omitempty"`
	Traits             []string           `json:"traits,omitempty"`
	KinkPreferences    map[string]float64 `json:"kink_preferences,omitempty"`
	Location           *geo.Point         `json:"location,omitempty"`
	Version            int64              `json:"version"`
}

// Normalizer converts raw profile snapshots into ProfileVectors.
// Normalization is pure given the snapshot; the logger only records
// clamped kink values, which are tolerated rather than rejected.
type Normalizer struct {
	logger *slog.Logger
}

// NewNormalizer creates a Normalizer. A nil logger falls back to the
// default slog logger.
func NewNormalizer(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{logger: logger}
}

// Normalize builds a ProfileVector from a raw snapshot, or returns a
// *ValidationError listing every out-of-range or unknown field. Missing
// role or batteries do not fail normalization; they leave the vector
// incomplete.
func (n *Normalizer) Normalize(raw *RawProfile) (*ProfileVector, error) {
	verr := &ValidationError{UserID: raw.UserID}

	if raw.UserID == "" {
		verr.Fields = append(verr.Fields, FieldError{
			Field:   "user_id",
			Code:    CodeOutOfRangeValue,
			Message: "user id is required",
		})
	}

	role, err := ParseRole(raw.Role)
	if err != nil {
		verr.Fields = append(verr.Fields, FieldError{
			Field:   "role",
			Code:    CodeOutOfRangeValue,
			Message: err.Error(),
		})
	}

	vec := &ProfileVector{
		UserID:        raw.UserID,
		Role:          role,
		VectorVersion: raw.Version,
	}

	n.normalizePersonality(raw, vec, verr)
	n.normalizeStyle(raw, vec, verr)
	n.normalizeTraits(raw, vec, verr)
	n.normalizeKinks(raw, vec)

	if raw.Location != nil {
		if err := raw.Location.Validate(); err != nil {
			verr.Fields = append(verr.Fields, FieldError{
				Field:   "location",
				Code:    CodeOutOfRangeValue,
				Message: err.Error(),
			})
		} else {
			coarse := geo.Coarsen(*raw.Location)
			vec.Location = &coarse
		}
	}

	if len(verr.Fields) > 0 {
		return nil, verr
	}
	return vec, nil
}

// normalizePersonality maps raw answer indices through the personality
// contribution table. Per-dimension score = sum / (3 * questions per
// dimension), which lands in [0,1].
func (n *Normalizer) normalizePersonality(raw *RawProfile, vec *ProfileVector, verr *ValidationError) {
	if raw.PersonalityAnswers == nil {
		return
	}
	if len(raw.PersonalityAnswers) != PersonalityQuestions {
		verr.Fields = append(verr.Fields, FieldError{
			Field:   "personality_answers",
			Code:    CodeOutOfRangeValue,
			Message: fmt.Sprintf("expected %d answers, got %d", PersonalityQuestions, len(raw.PersonalityAnswers)),
		})
		return
	}

	var sums [PersonalityDimensions]int
	for i, answer := range raw.PersonalityAnswers {
		if answer < 0 || answer >= PersonalityOptions {
			verr.Fields = append(verr.Fields, FieldError{
				Field:   fmt.Sprintf("personality_answers[%d]", i),
				Code:    CodeOutOfRangeValue,
				Message: fmt.Sprintf("answer index %d out of range [0,%d]", answer, PersonalityOptions-1),
			})
			continue
		}
		q := personalityBattery[i]
		sums[q.target] += q.contributions[answer]
	}
	if len(verr.Fields) > 0 {
		return
	}

	for d := 0; d < PersonalityDimensions; d++ {
		vec.Personality[d] = float64(sums[d]) / float64(3*PersonalityQuestionsPerDimension)
	}
	vec.PersonalityAnswered = true
}

// normalizeStyle maps raw answer indices through the style contribution
// table, one question per category.
func (n *Normalizer) normalizeStyle(raw *RawProfile, vec *ProfileVector, verr *ValidationError) {
	if raw.StyleAnswers == nil {
		return
	}
	if len(raw.StyleAnswers) != StyleQuestions {
		verr.Fields = append(verr.Fields, FieldError{
			Field:   "style_answers",
			Code:    CodeOutOfRangeValue,
			Message: fmt.Sprintf("expected %d answers, got %d", StyleQuestions, len(raw.StyleAnswers)),
		})
		return
	}

	var sums [StyleCategories]int
	for i, answer := range raw.StyleAnswers {
		if answer < 0 || answer >= StyleOptions {
			verr.Fields = append(verr.Fields, FieldError{
				Field:   fmt.Sprintf("style_answers[%d]", i),
				Code:    CodeOutOfRangeValue,
				Message: fmt.Sprintf("answer index %d out of range [0,%d]", answer, StyleOptions-1),
			})
			continue
		}
		q := styleBattery[i]
		sums[q.target] += q.contributions[answer]
	}
	if len(verr.Fields) > 0 {
		return
	}

	for c := 0; c < StyleCategories; c++ {
		vec.RelationshipStyle[c] = float64(sums[c]) / 3.0
	}
	vec.StyleAnswered = true
}

// normalizeTraits deduplicates trait labels and rejects labels outside
// the fixed catalog. The resulting set is sorted so vectors built from
// the same selections compare equal.
func (n *Normalizer) normalizeTraits(raw *RawProfile, vec *ProfileVector, verr *ValidationError) {
	seen := make(map[string]bool, len(raw.Traits))
	for _, label := range raw.Traits {
		if !TraitCatalog[label] {
			verr.Fields = append(verr.Fields, FieldError{
				Field:   "traits",
				Code:    CodeUnknownTrait,
				Message: fmt.Sprintf("unknown trait %q", label),
			})
			continue
		}
		seen[label] = true
	}

	traits := make([]string, 0, len(seen))
	for label := range seen {
		traits = append(traits, label)
	}
	sort.Strings(traits)
	vec.ImportantTraits = traits
}

// normalizeKinks clamps intensity percentages into [0,100]. Out-of-range
// values are hand-entered supplemental data, so they are logged and
// clamped rather than rejected.
func (n *Normalizer) normalizeKinks(raw *RawProfile, vec *ProfileVector) {
	if len(raw.KinkPreferences) == 0 {
		return
	}
	vec.KinkPreferences = make(map[string]float64, len(raw.KinkPreferences))
	for category, intensity := range raw.KinkPreferences {
		clamped := intensity
		if clamped < 0 {
			clamped = 0
		}
		if clamped > 100 {
			clamped = 100
		}
		if clamped != intensity {
			n.logger.Warn("clamped out-of-range kink intensity",
				"user_id", raw.UserID,
				"category", category,
				"value", intensity)
		}
		vec.KinkPreferences[category] = clamped
	}
}
