package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/duskbound/affinity/internal/middleware"
)

// RouterConfig wires handlers into the service mux.
type RouterConfig struct {
	Score   *ScoreHandlers
	Rank    *RankHandlers
	Profile *ProfileHandlers
	Health  *HealthHandlers

	// Metrics serves GET /metrics when set (promhttp handler).
	Metrics http.Handler

	// ScoreLimiter and RankLimiter, when set, wrap the pair scoring and
	// candidate ranking routes with their stricter rate limit tiers.
	// The global tier stays with the rest of the middleware chain.
	ScoreLimiter func(http.Handler) http.Handler
	RankLimiter  func(http.Handler) http.Handler
}

// NewRouter builds the service mux. Middleware (request id, logging,
// metrics, rate limiting) is layered on by the caller so tests can
// exercise routes without the full chain.
func NewRouter(cfg RouterConfig) *http.ServeMux {
	mux := http.NewServeMux()

	score := http.Handler(http.HandlerFunc(cfg.Score.Compatibility))
	if cfg.ScoreLimiter != nil {
		score = cfg.ScoreLimiter(score)
	}
	mux.Handle("/v1/compatibility", score)

	rank := http.Handler(http.HandlerFunc(cfg.Rank.Candidates))
	if cfg.RankLimiter != nil {
		rank = cfg.RankLimiter(rank)
	}

	// /v1/users/{id}/candidates | profile | exclusions
	mux.HandleFunc("/v1/users/", func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/candidates"):
			rank.ServeHTTP(w, r)
		case strings.HasSuffix(r.URL.Path, "/profile"):
			cfg.Profile.Profile(w, r)
		case strings.HasSuffix(r.URL.Path, "/exclusions"):
			cfg.Profile.Exclusions(w, r)
		default:
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "The requested resource was not found")
		}
	})

	mux.HandleFunc("/health", cfg.Health.Health)
	mux.HandleFunc("/ready", cfg.Health.Ready)

	if cfg.Metrics != nil {
		mux.Handle("/metrics", cfg.Metrics)
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		// Only handle exact root path, everything else returns 404
		if r.URL.Path != "/" {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "The requested resource was not found")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		payload := map[string]string{"service": "affinity-api", "version": "0.1.0"}
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			slog.Error("failed to write root response", "error", err)
		}
	})

	return mux
}
