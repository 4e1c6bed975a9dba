package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/duskbound/affinity/internal/match"
	"github.com/duskbound/affinity/internal/middleware"
	"github.com/duskbound/affinity/internal/store"
)

func newTestRouter(t *testing.T) (*http.ServeMux, *store.InMemoryProfileStore) {
	t.Helper()
	st := store.NewInMemoryProfileStore()
	engine := match.NewEngine(match.Config{})
	return NewRouter(RouterConfig{
		Score:   NewScoreHandlers(st, engine, nil),
		Rank:    NewRankHandlers(st, engine, 0, nil),
		Profile: NewProfileHandlers(st, nil),
		Health:  NewHealthHandlers(HealthHandlersConfig{}),
	}), st
}

func TestRouter_Dispatch(t *testing.T) {
	router, st := newTestRouter(t)
	seedProfile(t, st, "alice", "dominant", 1, 1)
	seedProfile(t, st, "bob", "submissive", 1, 1)

	tests := []struct {
		name       string
		target     string
		wantStatus int
	}{
		{name: "compatibility", target: "/v1/compatibility?userA=alice&userB=bob", wantStatus: http.StatusOK},
		{name: "candidates", target: "/v1/users/alice/candidates", wantStatus: http.StatusOK},
		{name: "profile", target: "/v1/users/alice/profile", wantStatus: http.StatusOK},
		{name: "exclusions", target: "/v1/users/alice/exclusions", wantStatus: http.StatusOK},
		{name: "health", target: "/health", wantStatus: http.StatusOK},
		{name: "ready", target: "/ready", wantStatus: http.StatusOK},
		{name: "root", target: "/", wantStatus: http.StatusOK},
		{name: "unknown subresource", target: "/v1/users/alice/friends", wantStatus: http.StatusNotFound},
		{name: "unknown path", target: "/v2/anything", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("GET %s status = %d, want %d (body: %s)", tt.target, rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestRouter_RankLimiterTier(t *testing.T) {
	st := store.NewInMemoryProfileStore()
	engine := match.NewEngine(match.Config{})
	seedProfile(t, st, "alice", "dominant", 1, 1)
	seedProfile(t, st, "bob", "submissive", 1, 1)

	limitStore := middleware.NewInMemoryRateLimitStore()
	rankLimit := middleware.RateLimitConfig{RequestsPerWindow: 2, WindowDuration: time.Minute}
	scoreLimit := middleware.RateLimitConfig{RequestsPerWindow: 10, WindowDuration: time.Minute}

	router := NewRouter(RouterConfig{
		Score:   NewScoreHandlers(st, engine, nil),
		Rank:    NewRankHandlers(st, engine, 0, nil),
		Profile: NewProfileHandlers(st, nil),
		Health:  NewHealthHandlers(HealthHandlersConfig{}),
		ScoreLimiter: middleware.RateLimiter(limitStore, scoreLimit,
			middleware.ScopedKeyFunc("score", middleware.IPKeyFunc()), nil),
		RankLimiter: middleware.RateLimiter(limitStore, rankLimit,
			middleware.ScopedKeyFunc("rank", middleware.IPKeyFunc()), nil),
	})

	// Ranking exhausts its tighter tier on the third request.
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/v1/users/alice/candidates", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		want := http.StatusOK
		if i >= 2 {
			want = http.StatusTooManyRequests
		}
		if rec.Code != want {
			t.Errorf("candidates request %d status = %d, want %d", i+1, rec.Code, want)
		}
	}

	// Pair scoring runs on its own tier; the exhausted rank bucket does
	// not bleed over.
	req := httptest.NewRequest(http.MethodGet, "/v1/compatibility?userA=alice&userB=bob", nil)
	req.RemoteAddr = "192.168.1.1:12345"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("compatibility status = %d, want %d (body: %s)", rec.Code, http.StatusOK, rec.Body.String())
	}

	// Other routes skip both tiers entirely.
	req = httptest.NewRequest(http.MethodGet, "/v1/users/alice/profile", nil)
	req.RemoteAddr = "192.168.1.1:12345"
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("profile status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestRouter_RootPayload(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var payload map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if payload["service"] != "affinity-api" {
		t.Errorf("service = %s, want affinity-api", payload["service"])
	}
}

func TestRouter_NotFoundEnvelope(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if resp := decodeErrorResponse(t, rec); resp.Error.Code != ErrCodeNotFound {
		t.Errorf("error code = %s, want %s", resp.Error.Code, ErrCodeNotFound)
	}
}

func TestRouter_MetricsOptional(t *testing.T) {
	st := store.NewInMemoryProfileStore()
	engine := match.NewEngine(match.Config{})
	router := NewRouter(RouterConfig{
		Score:   NewScoreHandlers(st, engine, nil),
		Rank:    NewRankHandlers(st, engine, 0, nil),
		Profile: NewProfileHandlers(st, nil),
		Health:  NewHealthHandlers(HealthHandlersConfig{}),
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
