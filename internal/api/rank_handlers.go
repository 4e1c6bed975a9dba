package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/duskbound/affinity/internal/match"
	"github.com/duskbound/affinity/internal/middleware"
	"github.com/duskbound/affinity/internal/profile"
	"github.com/duskbound/affinity/internal/store"
)

// DefaultCandidatePoolSize bounds how many snapshots are prefetched for
// one ranking request when the server config does not override it.
const DefaultCandidatePoolSize = 500

// RankHandlers holds dependencies for candidate ranking HTTP handlers.
type RankHandlers struct {
	store      store.ProfileStore
	engine     *match.Engine
	normalizer *profile.Normalizer
	poolSize   int
	logger     *slog.Logger
}

// NewRankHandlers creates a new RankHandlers instance. poolSize <= 0
// falls back to DefaultCandidatePoolSize.
func NewRankHandlers(st store.ProfileStore, engine *match.Engine, poolSize int, logger *slog.Logger) *RankHandlers {
	if poolSize <= 0 {
		poolSize = DefaultCandidatePoolSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RankHandlers{
		store:      st,
		engine:     engine,
		normalizer: profile.NewNormalizer(logger),
		poolSize:   poolSize,
		logger:     logger,
	}
}

// CandidatesResponse represents one page of ranked candidates.
type CandidatesResponse struct {
	UserID      string                  `json:"user_id"`
	Candidates  []match.RankedCandidate `json:"candidates"`
	NextCursor  string                  `json:"next_cursor,omitempty"`
	Diagnostics []match.Diagnostic      `json:"diagnostics,omitempty"`
	Count       int                     `json:"count"`
}

// Candidates handles GET /v1/users/{id}/candidates - ranks the candidate
// pool for one requester with cursor pagination.
//
// Query parameters:
//   - cursor: resume token from a previous page (optional)
//   - pageSize: entries per page, capped server-side (optional)
//   - includeIncompatible: keep role-gated zero scores in the page (optional)
func (h *RankHandlers) Candidates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	userID, ok := userIDFromPath(r.URL.Path, "candidates")
	if !ok {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Path must be /v1/users/{id}/candidates")
		return
	}

	query := r.URL.Query()

	pageSize := 0
	if raw := query.Get("pageSize"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "pageSize must be a positive integer")
			return
		}
		pageSize = parsed
	}

	includeIncompatible := false
	if raw := query.Get("includeIncompatible"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "includeIncompatible must be a boolean")
			return
		}
		includeIncompatible = parsed
	}

	requester, ok := h.loadRequester(w, r, userID)
	if !ok {
		return
	}

	pool, err := h.store.ListCandidates(r.Context(), userID, h.poolSize)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "candidate pool fetch failed", "user_id", userID, "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to load candidate pool")
		return
	}

	exclusions, err := h.store.GetExclusions(r.Context(), userID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "exclusion fetch failed", "user_id", userID, "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to load exclusions")
		return
	}

	page, err := h.engine.RankCandidates(r.Context(), match.RankRequest{
		Requester:           requester,
		Pool:                pool,
		Exclude:             exclusions,
		Cursor:              query.Get("cursor"),
		PageSize:            pageSize,
		IncludeIncompatible: includeIncompatible,
	})
	if err != nil {
		h.writeRankError(w, r, err)
		return
	}

	response := CandidatesResponse{
		UserID:      userID,
		Candidates:  page.Candidates,
		NextCursor:  page.NextCursor,
		Diagnostics: page.Diagnostics,
		Count:       len(page.Candidates),
	}
	if response.Candidates == nil {
		response.Candidates = []match.RankedCandidate{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to encode candidates response", "error", err)
	}
}

// loadRequester fetches and normalizes the requesting user's snapshot.
func (h *RankHandlers) loadRequester(w http.ResponseWriter, r *http.Request, userID string) (*profile.ProfileVector, bool) {
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
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, err.Error())
		return nil, false
	}
	return vec, true
}

// writeRankError maps ranking errors onto the API error taxonomy.
func (h *RankHandlers) writeRankError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, match.ErrInvalidCursor):
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidCursor)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidCursor, "Cursor is malformed or expired; restart from the first page")
	case errors.Is(err, match.ErrIncompleteProfile):
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeIncompleteProfile)
		WriteError(w, ctx, http.StatusUnprocessableEntity, ErrCodeIncompleteProfile, err.Error())
	default:
		h.logger.ErrorContext(r.Context(), "candidate ranking failed", "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to rank candidates")
	}
}

// userIDFromPath extracts the user id from /v1/users/{id}/{subresource}.
func userIDFromPath(path, subresource string) (string, bool) {
	parts := strings.Split(path, "/")
	// ["", "v1", "users", "{id}", subresource]
	if len(parts) != 5 || parts[1] != "v1" || parts[2] != "users" || parts[3] == "" || parts[4] != subresource {
		return "", false
	}
	return parts[3], true
}
