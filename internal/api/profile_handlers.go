package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/duskbound/affinity/internal/middleware"
	"github.com/duskbound/affinity/internal/profile"
	"github.com/duskbound/affinity/internal/store"
)

// ProfileHandlers holds dependencies for profile snapshot HTTP handlers.
type ProfileHandlers struct {
	store      store.ProfileStore
	normalizer *profile.Normalizer
	logger     *slog.Logger
}

// NewProfileHandlers creates a new ProfileHandlers instance.
func NewProfileHandlers(st store.ProfileStore, logger *slog.Logger) *ProfileHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProfileHandlers{
		store:      st,
		normalizer: profile.NewNormalizer(logger),
		logger:     logger,
	}
}

// ProfileResponse represents one user's mirrored snapshot plus derived
// readiness information.
type ProfileResponse struct {
	Profile  *profile.RawProfile `json:"profile"`
	Complete bool                `json:"complete"`
}

// Profile handles GET /v1/users/{id}/profile - returns the mirrored
// snapshot and whether it is complete enough to be scored.
func (h *ProfileHandlers) Profile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	userID, ok := userIDFromPath(r.URL.Path, "profile")
	if !ok {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Path must be /v1/users/{id}/profile")
		return
	}

	raw, err := h.store.GetProfile(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrProfileNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "No profile found for user "+userID)
			return
		}
		h.logger.ErrorContext(r.Context(), "profile lookup failed", "user_id", userID, "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to load profile")
		return
	}

	// A snapshot that fails normalization is reported as incomplete
	// rather than an error: the caller asked about this user, not for a
	// scoring operation.
	complete := false
	if vec, err := h.normalizer.Normalize(raw); err == nil {
		complete = vec.Complete()
	}

	response := ProfileResponse{Profile: raw, Complete: complete}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to encode profile response", "error", err)
	}
}

// ExclusionRequest is the body for adding an exclusion.
type ExclusionRequest struct {
	ExcludedID string `json:"excluded_id"`
	Reason     string `json:"reason"`
}

// ExclusionsResponse lists the user ids excluded from a user's ranking.
type ExclusionsResponse struct {
	UserID     string   `json:"user_id"`
	Exclusions []string `json:"exclusions"`
	Count      int      `json:"count"`
}

// Exclusions handles /v1/users/{id}/exclusions:
//   - GET lists the excluded user ids.
//   - POST records a new exclusion ({"excluded_id": ..., "reason": "matched"|"passed"}).
func (h *ProfileHandlers) Exclusions(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromPath(r.URL.Path, "exclusions")
	if !ok {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Path must be /v1/users/{id}/exclusions")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.listExclusions(w, r, userID)
	case http.MethodPost:
		h.addExclusion(w, r, userID)
	default:
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
	}
}

func (h *ProfileHandlers) listExclusions(w http.ResponseWriter, r *http.Request, userID string) {
	exclusions, err := h.store.GetExclusions(r.Context(), userID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "exclusion fetch failed", "user_id", userID, "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to load exclusions")
		return
	}

	ids := make([]string, 0, len(exclusions))
	for id := range exclusions {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	response := ExclusionsResponse{UserID: userID, Exclusions: ids, Count: len(ids)}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to encode exclusions response", "error", err)
	}
}

func (h *ProfileHandlers) addExclusion(w http.ResponseWriter, r *http.Request, userID string) {
	var req ExclusionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Request body must be valid JSON")
		return
	}

	req.ExcludedID = strings.TrimSpace(req.ExcludedID)
	if req.ExcludedID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "'excluded_id' is required")
		return
	}
	if req.ExcludedID == userID {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "A user cannot exclude themself")
		return
	}

	switch req.Reason {
	case store.ExclusionMatched, store.ExclusionPassed:
	case "":
		req.Reason = store.ExclusionPassed
	default:
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "'reason' must be 'matched' or 'passed'")
		return
	}

	if err := h.store.AddExclusion(r.Context(), userID, req.ExcludedID, req.Reason); err != nil {
		h.logger.ErrorContext(r.Context(), "exclusion write failed", "user_id", userID, "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to record exclusion")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(map[string]bool{"ok": true}); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to encode exclusion response", "error", err)
	}
}
