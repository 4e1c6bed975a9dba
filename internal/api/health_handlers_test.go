package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type stubChecker struct {
	err error
}

func (c stubChecker) HealthCheck(ctx context.Context) error {
	return c.err
}

func TestHealth(t *testing.T) {
	h := NewHealthHandlers(HealthHandlersConfig{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.Health(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Status != "healthy" {
		t.Errorf("status = %s, want healthy", resp.Status)
	}
	if resp.Checks["runtime"] != "ok" {
		t.Errorf("runtime check = %s, want ok", resp.Checks["runtime"])
	}
}

func TestReady_NoCheckers(t *testing.T) {
	h := NewHealthHandlers(HealthHandlersConfig{})

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec := httptest.NewRecorder()
	h.Ready(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}
	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Status != "healthy" {
		t.Errorf("status = %s, want healthy", resp.Status)
	}
}

func TestReady_AllHealthy(t *testing.T) {
	h := NewHealthHandlers(HealthHandlersConfig{
		DBChecker:    stubChecker{},
		RedisChecker: stubChecker{},
	})

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec := httptest.NewRecorder()
	h.Ready(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}
	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	for _, check := range []string{"database", "redis", "metrics"} {
		if resp.Checks[check] != "ok" {
			t.Errorf("%s check = %s, want ok", check, resp.Checks[check])
		}
	}
}

func TestReady_DatabaseDown(t *testing.T) {
	h := NewHealthHandlers(HealthHandlersConfig{
		DBChecker:    stubChecker{err: errors.New("connection refused")},
		RedisChecker: stubChecker{},
	})

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec := httptest.NewRecorder()
	h.Ready(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503 (body: %s)", rec.Code, rec.Body.String())
	}
	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Status != "unhealthy" {
		t.Errorf("status = %s, want unhealthy", resp.Status)
	}
	if resp.Checks["database"] != "error" {
		t.Errorf("database check = %s, want error", resp.Checks["database"])
	}
	if resp.Checks["redis"] != "ok" {
		t.Errorf("redis check = %s, want ok", resp.Checks["redis"])
	}
}

func TestHealth_MethodNotAllowed(t *testing.T) {
	h := NewHealthHandlers(HealthHandlersConfig{})

	req := httptest.NewRequest(http.MethodPost, "/health", nil)
	rec := httptest.NewRecorder()
	h.Health(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}
