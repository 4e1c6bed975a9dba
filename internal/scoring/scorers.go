// Package scoring provides the per-dimension compatibility scorers. Each
// scorer compares two profile vectors and returns a bounded sub-score with
// a confidence weight; combination into a single percentage happens in the
// ranking package.
package scoring

import (
	"math"
	"sort"

	"github.com/duskbound/affinity/internal/geo"
	"github.com/duskbound/affinity/internal/profile"
)

// Dimension names used in breakdowns and weight configuration.
const (
	DimensionPersonality       = "personality"
	DimensionRelationshipStyle = "relationship_style"
	DimensionRole              = "role"
	DimensionTraits            = "traits"
	DimensionKink              = "kink"
	DimensionProximity         = "proximity"
)

// DefaultProximityDecayKm is the distance at which the proximity sub-score
// reaches zero.
const DefaultProximityDecayKm = 500.0

// traitConfidenceTarget is the selection count at which trait overlap
// reaches full confidence.
const traitConfidenceTarget = 5

// DimensionScore is one scorer's output: a sub-score in [0,1] and a
// confidence weight in [0,1]. Confidence 0 excludes the dimension from
// aggregation entirely.
type DimensionScore struct {
	Score      float64
	Confidence float64
}

// Personality scores similarity of the two five-dimensional personality
// vectors: 1 minus the euclidean distance normalized by the maximum
// possible distance sqrt(5). The test battery is mandatory, so confidence
// is always 1.
func Personality(a, b *profile.ProfileVector) DimensionScore {
	var sum float64
	for d := 0; d < profile.PersonalityDimensions; d++ {
		diff := a.Personality[d] - b.Personality[d]
		sum += diff * diff
	}
	dist := math.Sqrt(sum) / math.Sqrt(profile.PersonalityDimensions)
	return DimensionScore{Score: 1 - dist, Confidence: 1}
}

// RelationshipStyle scores alignment of the two style vectors as cosine
// similarity rescaled from [-1,1] to [0,1]. A zero-magnitude vector has
// no defined direction: two zero vectors count as perfectly aligned, a
// single zero vector scores neutral 0.5.
func RelationshipStyle(a, b *profile.ProfileVector) DimensionScore {
	var dot, normA, normB float64
	for c := 0; c < profile.StyleCategories; c++ {
		dot += a.RelationshipStyle[c] * b.RelationshipStyle[c]
		normA += a.RelationshipStyle[c] * a.RelationshipStyle[c]
		normB += b.RelationshipStyle[c] * b.RelationshipStyle[c]
	}

	if normA == 0 && normB == 0 {
		return DimensionScore{Score: 1, Confidence: 1}
	}
	if normA == 0 || normB == 0 {
		return DimensionScore{Score: 0.5, Confidence: 1}
	}

	cosine := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return DimensionScore{Score: (cosine + 1) / 2, Confidence: 1}
}

// roleMatrix is the fixed role compatibility matrix. Adding a role means
// extending this matrix and its tests; nothing downstream branches on
// specific roles.
var roleMatrix = map[profile.Role]map[profile.Role]float64{
	profile.RoleDominant: {
		profile.RoleDominant:   0.0,
		profile.RoleSubmissive: 1.0,
		profile.RoleSwitch:     0.8,
	},
	profile.RoleSubmissive: {
		profile.RoleDominant:   1.0,
		profile.RoleSubmissive: 0.0,
		profile.RoleSwitch:     0.8,
	},
	profile.RoleSwitch: {
		profile.RoleDominant:   0.8,
		profile.RoleSubmissive: 0.8,
		profile.RoleSwitch:     0.8,
	},
}

// RoleCompatibility looks up the pair in the role matrix. A 0.0 sub-score
// marks a hard incompatibility; the aggregator treats it as a gate.
func RoleCompatibility(a, b *profile.ProfileVector) DimensionScore {
	return DimensionScore{Score: roleMatrix[a.Role][b.Role], Confidence: 1}
}

// TraitOverlap scores the Jaccard similarity of the two important-trait
// sets. Two empty sets are defined as fully overlapping rather than a
// divide-by-zero. Confidence scales with how many traits the sparser
// profile selected, reaching 1 at five selections.
func TraitOverlap(a, b *profile.ProfileVector) DimensionScore {
	if len(a.ImportantTraits) == 0 && len(b.ImportantTraits) == 0 {
		return DimensionScore{Score: 1, Confidence: 0}
	}

	intersection := 0
	for _, label := range a.ImportantTraits {
		if b.HasTrait(label) {
			intersection++
		}
	}
	union := len(a.ImportantTraits) + len(b.ImportantTraits) - intersection

	smaller := len(a.ImportantTraits)
	if len(b.ImportantTraits) < smaller {
		smaller = len(b.ImportantTraits)
	}
	confidence := float64(smaller) / traitConfidenceTarget
	if confidence > 1 {
		confidence = 1
	}

	return DimensionScore{
		Score:      float64(intersection) / float64(union),
		Confidence: confidence,
	}
}

// KinkOverlap averages closeness of intensity over categories both users
// declared: 1 - |pA - pB| / 100 per shared category. Confidence is the
// shared fraction of all distinct categories across both profiles. With
// no shared data the sub-score is a neutral 0.5 at confidence 0, which
// the aggregator excludes.
func KinkOverlap(a, b *profile.ProfileVector) DimensionScore {
	distinct := make(map[string]bool, len(a.KinkPreferences)+len(b.KinkPreferences))
	for category := range a.KinkPreferences {
		distinct[category] = true
	}
	for category := range b.KinkPreferences {
		distinct[category] = true
	}
	if len(distinct) == 0 {
		return DimensionScore{Score: 0.5, Confidence: 0}
	}

	// Shared categories are summed in sorted order so repeated calls
	// accumulate floats identically and results stay bit-reproducible.
	shared := make([]string, 0, len(a.KinkPreferences))
	for category := range a.KinkPreferences {
		if _, ok := b.KinkPreferences[category]; ok {
			shared = append(shared, category)
		}
	}
	if len(shared) == 0 {
		return DimensionScore{Score: 0.5, Confidence: 0}
	}
	sort.Strings(shared)

	var sum float64
	for _, category := range shared {
		sum += 1 - math.Abs(a.KinkPreferences[category]-b.KinkPreferences[category])/100
	}

	return DimensionScore{
		Score:      sum / float64(len(shared)),
		Confidence: float64(len(shared)) / float64(len(distinct)),
	}
}

// Proximity scores linear decay of great-circle distance, reaching zero
// at decayKm. When either location is unknown the dimension is excluded
// (confidence 0), never penalized.
func Proximity(a, b *profile.ProfileVector, decayKm float64) DimensionScore {
	if a.Location == nil || b.Location == nil {
		return DimensionScore{Score: 0, Confidence: 0}
	}
	if decayKm <= 0 {
		decayKm = DefaultProximityDecayKm
	}

	km := geo.DistanceKm(*a.Location, *b.Location)
	score := 1 - km/decayKm
	if score < 0 {
		score = 0
	}
	return DimensionScore{Score: score, Confidence: 1}
}
