package ranking

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/duskbound/affinity/internal/scoring"
)

// Weights defines the blend weight for each scoring dimension.
type Weights struct {
	Personality       float64 `json:"personality"`        // Weight for personality similarity (default: 0.30)
	RelationshipStyle float64 `json:"relationship_style"` // Weight for style alignment (default: 0.20)
	Role              float64 `json:"role"`               // Weight for role compatibility (default: 0.20)
	Traits            float64 `json:"traits"`             // Weight for important-trait overlap (default: 0.15)
	Kink              float64 `json:"kink"`               // Weight for kink overlap (default: 0.10)
	Proximity         float64 `json:"proximity"`          // Weight for geographic proximity (default: 0.05)
}

// CalibrationConfig represents the JSON structure of the calibration file.
type CalibrationConfig struct {
	Version string  `json:"version"` // Config version for future compatibility
	Weights Weights `json:"weights"` // Weight configuration
}

// DefaultWeights returns the default blend weight configuration.
//
// Formula: score = 100 * sum(sub * weight * confidence) / sum(weight * confidence)
//   - Personality (30%): the mandatory test is the strongest signal
//   - Relationship style (20%): alignment of declared dynamics
//   - Role (20%): also acts as a hard gate at sub-score 0
//   - Traits (15%): self-selected values, confidence-scaled
//   - Kink (10%): optional supplemental data
//   - Proximity (5%): a tiebreaker, never dominant
func DefaultWeights() *Weights {
	return &Weights{
		Personality:       0.30,
		RelationshipStyle: 0.20,
		Role:              0.20,
		Traits:            0.15,
		Kink:              0.10,
		Proximity:         0.05,
	}
}

// ForDimension returns the configured weight for a scoring dimension name.
// Unknown dimensions get weight 0 and ok=false so they drop out of the
// blend instead of silently skewing it.
func (w *Weights) ForDimension(dimension string) (float64, bool) {
	switch dimension {
	case scoring.DimensionPersonality:
		return w.Personality, true
	case scoring.DimensionRelationshipStyle:
		return w.RelationshipStyle, true
	case scoring.DimensionRole:
		return w.Role, true
	case scoring.DimensionTraits:
		return w.Traits, true
	case scoring.DimensionKink:
		return w.Kink, true
	case scoring.DimensionProximity:
		return w.Proximity, true
	default:
		return 0, false
	}
}

// LoadCalibration loads blend weights from a JSON calibration file.
// Partial configurations are merged with defaults for graceful
// degradation; on any error the defaults are returned alongside the
// error so the engine can keep serving.
func LoadCalibration(filePath string) (*Weights, error) {
	if filePath == "" {
		return DefaultWeights(), nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		slog.Warn("failed to read calibration file, using defaults",
			"path", filePath,
			"error", err)
		return DefaultWeights(), fmt.Errorf("failed to read calibration file: %w", err)
	}

	var config CalibrationConfig
	if err := json.Unmarshal(data, &config); err != nil {
		slog.Warn("failed to parse calibration file, using defaults",
			"path", filePath,
			"error", err)
		return DefaultWeights(), fmt.Errorf("failed to parse calibration file: %w", err)
	}

	defaults := DefaultWeights()
	merged := MergeCalibration(defaults, &config.Weights)
	logCalibrationOverrides(defaults, merged)

	return merged, nil
}

// MergeCalibration merges override weights into base weights. Only
// non-zero override values apply, which allows partial calibration files.
func MergeCalibration(base *Weights, override *Weights) *Weights {
	if base == nil {
		return DefaultWeights()
	}
	if override == nil {
		result := *base
		return &result
	}

	result := *base

	if override.Personality != 0 {
		result.Personality = override.Personality
	}
	if override.RelationshipStyle != 0 {
		result.RelationshipStyle = override.RelationshipStyle
	}
	if override.Role != 0 {
		result.Role = override.Role
	}
	if override.Traits != 0 {
		result.Traits = override.Traits
	}
	if override.Kink != 0 {
		result.Kink = override.Kink
	}
	if override.Proximity != 0 {
		result.Proximity = override.Proximity
	}

	return &result
}

// logCalibrationOverrides logs which weights were overridden from defaults.
func logCalibrationOverrides(defaults *Weights, loaded *Weights) {
	var overrides []string

	pairs := []struct {
		name     string
		def, cal float64
	}{
		{scoring.DimensionPersonality, defaults.Personality, loaded.Personality},
		{scoring.DimensionRelationshipStyle, defaults.RelationshipStyle, loaded.RelationshipStyle},
		{scoring.DimensionRole, defaults.Role, loaded.Role},
		{scoring.DimensionTraits, defaults.Traits, loaded.Traits},
		{scoring.DimensionKink, defaults.Kink, loaded.Kink},
		{scoring.DimensionProximity, defaults.Proximity, loaded.Proximity},
	}
	for _, p := range pairs {
		if p.cal != p.def {
			overrides = append(overrides, fmt.Sprintf("%s: %.2f -> %.2f", p.name, p.def, p.cal))
		}
	}

	if len(overrides) > 0 {
		slog.Info("loaded ranking calibration with overrides",
			"overrides", overrides)
	} else {
		slog.Info("loaded ranking calibration (using all defaults)")
	}
}
