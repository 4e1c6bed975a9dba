// Package api provides HTTP API handlers for the matching service.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/duskbound/affinity/internal/match"
	"github.com/duskbound/affinity/internal/middleware"
	"github.com/duskbound/affinity/internal/profile"
	"github.com/duskbound/affinity/internal/ranking"
	"github.com/duskbound/affinity/internal/store"
)

// ScoreHandlers holds dependencies for pair compatibility HTTP handlers.
type ScoreHandlers struct {
	store      store.ProfileStore
	engine     *match.Engine
	normalizer *profile.Normalizer
	logger     *slog.Logger
}

// NewScoreHandlers creates a new ScoreHandlers instance.
func NewScoreHandlers(st store.ProfileStore, engine *match.Engine, logger *slog.Logger) *ScoreHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScoreHandlers{
		store:      st,
		engine:     engine,
		normalizer: profile.NewNormalizer(logger),
		logger:     logger,
	}
}

// CompatibilityResponse represents the response for a pair compatibility check.
type CompatibilityResponse struct {
	UserA          string                            `json:"user_a"`
	UserB          string                            `json:"user_b"`
	Score          float64                           `json:"score"`
	RoleCompatible bool                              `json:"role_compatible"`
	Breakdown      map[string]ranking.BreakdownEntry `json:"breakdown"`
	Versions       match.PairVersions                `json:"computed_at_version"`
}

// Compatibility handles GET /v1/compatibility?userA=...&userB=... and
// returns the full scored result for one pair, including the per-dimension
// breakdown.
func (h *ScoreHandlers) Compatibility(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	query := r.URL.Query()
	userA := strings.TrimSpace(query.Get("userA"))
	userB := strings.TrimSpace(query.Get("userB"))

	if userA == "" || userB == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Both 'userA' and 'userB' must be provided")
		return
	}
	if userA == userB {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "'userA' and 'userB' must be different users")
		return
	}

	vecA, ok := h.loadVector(w, r, userA)
	if !ok {
		return
	}
	vecB, ok := h.loadVector(w, r, userB)
	if !ok {
		return
	}

	result, err := h.engine.ScorePair(r.Context(), vecA, vecB)
	if err != nil {
		h.writeScoreError(w, r, err)
		return
	}

	response := CompatibilityResponse{
		UserA:          userA,
		UserB:          userB,
		Score:          result.Score,
		RoleCompatible: !result.RoleIncompatible(),
		Breakdown:      result.Breakdown,
		Versions:       result.ComputedAtVersion,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to encode compatibility response", "error", err)
	}
}

// loadVector fetches and normalizes one user's snapshot, writing the
// appropriate error response on failure.
func (h *ScoreHandlers) loadVector(w http.ResponseWriter, r *http.Request, userID string) (*profile.ProfileVector, bool) {
	raw, err := h.store.GetProfile(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrProfileNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "No profile found for user "+userID)
			return nil, false
		}
		h.logger.ErrorContext(r.Context(), "profile lookup failed", "user_id", userID, "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to load profile")
		return nil, false
	}

	vec, err := h.normalizer.Normalize(raw)
	if err != nil {
		code := ErrCodeValidation
		var verr *profile.ValidationError
		if errors.As(err, &verr) {
			switch {
			case verr.HasCode(profile.CodeUnknownTrait):
				code = ErrCodeUnknownTrait
			case verr.HasCode(profile.CodeOutOfRangeValue):
				code = ErrCodeOutOfRangeValue
			}
		}
		ctx := middleware.SetErrorCode(r.Context(), code)
		WriteError(w, ctx, http.StatusBadRequest, code, err.Error())
		return nil, false
	}
	return vec, true
}

// writeScoreError maps engine errors onto the API error taxonomy.
func (h *ScoreHandlers) writeScoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, match.ErrIncompleteProfile):
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeIncompleteProfile)
		WriteError(w, ctx, http.StatusUnprocessableEntity, ErrCodeIncompleteProfile, err.Error())
	case errors.Is(err, ranking.ErrInsufficientData):
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInsufficientData)
		WriteError(w, ctx, http.StatusUnprocessableEntity, ErrCodeInsufficientData, err.Error())
	case errors.Is(err, ranking.ErrComputation):
		h.logger.ErrorContext(r.Context(), "pair scoring failed closed", "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeComputationError)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeComputationError, "Scoring produced an invalid result")
	default:
		h.logger.ErrorContext(r.Context(), "pair scoring failed", "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to score pair")
	}
}
