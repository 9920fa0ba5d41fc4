package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
)

func TestHealthHandler_Liveness(t *testing.T) {
	c, rec := newContext(http.MethodGet, "/health", "")
	if err := NewHealthHandler().Liveness(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestReadinessHandler(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	cases := []struct {
		name     string
		checks   map[string]Pinger
		wantCode int
		wantDeps map[string]string
	}{
		{"all up", map[string]Pinger{"postgres": ok, "redis": ok}, http.StatusOK, map[string]string{"postgres": "ok", "redis": "ok"}},
		{"redis down", map[string]Pinger{"postgres": ok, "redis": down}, http.StatusServiceUnavailable, map[string]string{"postgres": "ok", "redis": "unhealthy"}},
		{"no deps", map[string]Pinger{}, http.StatusOK, map[string]string{}},
	}

	for _, tc := range cases {
		c, rec := newContext(http.MethodGet, "/health/ready", "")
		if err := NewReadinessHandler(tc.checks).Readiness(c); err != nil {
			t.Fatalf("%s: handler error: %v", tc.name, err)
		}
		if rec.Code != tc.wantCode {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.wantCode, rec.Code)
		}
		var resp readinessResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("%s: invalid json: %v", tc.name, err)
		}
		for name, want := range tc.wantDeps {
			if resp.Dependencies[name].Status != want {
				t.Fatalf("%s: expected %s=%s, got %+v", tc.name, name, want, resp.Dependencies)
			}
		}
	}
}

func TestWelcome(t *testing.T) {
	c, rec := newContext(http.MethodGet, "/", "")
	if err := Welcome(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Body.String() != "Welcome to API Login" {
		t.Fatalf("unexpected body: %q", rec.Body.String())
	}
}
