// Package profile defines the normalized matching representation of a user
// and the normalizer that builds it from raw onboarding signals.
package profile

import (
	"errors"
	"strings"

	"github.com/duskbound/affinity/internal/geo"
)

// Role is a user's declared dynamic role.
type Role string

// Recognized roles. RoleUnset marks a profile that has not picked a role
// yet; such profiles are incomplete and never ranked.
const (
	RoleUnset      Role = ""
	RoleDominant   Role = "dominant"
	RoleSubmissive Role = "submissive"
	RoleSwitch     Role = "switch"
)

// ErrInvalidRole is returned when a role string is not one of the
// recognized roles.
var ErrInvalidRole = errors.New("invalid role: must be dominant, submissive, or switch")

// ParseRole parses a role string case-insensitively. An empty string parses
// to RoleUnset without error; anything else unrecognized is rejected.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleUnset:
		return RoleUnset, nil
	case RoleDominant:
		return RoleDominant, nil
	case RoleSubmissive:
		return RoleSubmissive, nil
	case RoleSwitch:
		return RoleSwitch, nil
	default:
		return RoleUnset, ErrInvalidRole
	}
}

// Personality dimension indices. The order is fixed: battery tables,
// stored vectors, and breakdowns all use it.
const (
	DimEmotionalIntelligence = iota
	DimEthics
	DimSensuality
	DimStability
	DimDynamicCompatibility

	PersonalityDimensions = 5
)

// PersonalityDimensionNames maps dimension indices to their labels, in
// vector order.
var PersonalityDimensionNames = [PersonalityDimensions]string{
	"emotional_intelligence",
	"ethics",
	"sensuality",
	"stability",
	"dynamic_compatibility",
}

// ProfileVector is the normalized matching representation of one user.
// It is immutable once built; any change to the underlying profile
// produces a new vector with a higher VectorVersion.
type ProfileVector struct {
	UserID string
	Role   Role

	// Personality holds the five personality sub-scores in [0,1].
	// Only meaningful when PersonalityAnswered is true.
	Personality         [PersonalityDimensions]float64
	PersonalityAnswered bool

	// RelationshipStyle holds per-category style sub-scores in [0,1].
	// Only meaningful when StyleAnswered is true.
	RelationshipStyle [StyleCategories]float64
	StyleAnswered     bool

	// ImportantTraits is a deduplicated, sorted set of catalog labels.
	ImportantTraits []string

	// KinkPreferences maps category label to intensity in [0,100].
	// Absent categories are unknown, not zero.
	KinkPreferences map[string]float64

	// Location is the city-level coarsened coordinate, nil if unset.
	Location *geo.Point

	// VectorVersion strictly increases on any input change for the same
	// user. It is the cache fingerprint component.
	VectorVersion int64
}

// Complete reports whether the vector has every required component: a
// role and both answered batteries. Incomplete vectors are excluded from
// ranking until the missing inputs are supplied.
func (v *ProfileVector) Complete() bool {
	return v.Role != RoleUnset && v.PersonalityAnswered && v.StyleAnswered
}

// HasTrait reports whether the vector's trait set contains the label.
func (v *ProfileVector) HasTrait(label string) bool {
	for _, t := range v.ImportantTraits {
		if t == label {
			return true
		}
	}
	return false
}
