package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func TestHealthHandler_Liveness(t *testing.T) {
	c, rec := newContext(http.MethodGet, "/health", "")
	if err := NewHealthHandler(nil, zerolog.Nop()).Liveness(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestHealthHandler_Readiness(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("dial tcp 10.1.2.3:6379: connect: connection refused") }

	tests := []struct {
		name       string
		checks     map[string]HealthChecker
		wantCode   int
		wantStatus string
	}{
		{"no dependencies", nil, http.StatusOK, "ok"},
		{"all healthy", map[string]HealthChecker{"postgres": ok, "redis": ok}, http.StatusOK, "ok"},
		{"one down", map[string]HealthChecker{"postgres": ok, "redis": down}, http.StatusServiceUnavailable, "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/health/ready", nil), rec)

			var logs bytes.Buffer
			if err := NewHealthHandler(tt.checks, zerolog.New(&logs)).Readiness(c); err != nil {
				t.Fatalf("handler error: %v", err)
			}
			if rec.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d", tt.wantCode, rec.Code)
			}

			var resp readinessResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("invalid json: %v", err)
			}
			if resp.Status != tt.wantStatus {
				t.Fatalf("expected status %q, got %q", tt.wantStatus, resp.Status)
			}
			if len(resp.Dependencies) != len(tt.checks) {
				t.Fatalf("expected %d dependencies, got %d", len(tt.checks), len(resp.Dependencies))
			}
			if tt.wantCode != http.StatusOK {
				if resp.Dependencies["redis"].Status != "unhealthy" {
					t.Fatalf("expected redis to be unhealthy, got %+v", resp.Dependencies["redis"])
				}
				if strings.Contains(rec.Body.String(), "10.1.2.3") {
					t.Fatalf("dependency error leaked to client: %s", rec.Body.String())
				}
				if !strings.Contains(logs.String(), "10.1.2.3") || !strings.Contains(logs.String(), `"dependency":"redis"`) {
					t.Fatalf("expected failure cause in logs, got %q", logs.String())
				}
			}
		})
	}
}
