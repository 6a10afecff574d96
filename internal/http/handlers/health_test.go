package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/geocoder89/todohub/internal/http/handlers"
)

func TestReadyz(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]handlers.PingFunc
		wantStatus int
		wantBody   string
	}{
		{
			name:       "no_checks",
			checks:     nil,
			wantStatus: http.StatusOK,
		},
		{
			name: "all_up",
			checks: map[string]handlers.PingFunc{
				"postgres": func(context.Context) error { return nil },
				"redis":    nil,
			},
			wantStatus: http.StatusOK,
			wantBody:   `"postgres":"up"`,
		},
		{
			name: "db_down",
			checks: map[string]handlers.PingFunc{
				"postgres": func(context.Context) error { return errors.New("refused") },
			},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   `"postgres":"down"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handlers.NewHealthHandler(tt.checks)
			r := setupRouter(http.MethodGet, "/readyz", h.Readyz)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			if w.Code != tt.wantStatus {
				t.Fatalf("got %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantBody != "" && !strings.Contains(w.Body.String(), tt.wantBody) {
				t.Fatalf("body %s missing %s", w.Body.String(), tt.wantBody)
			}
			if strings.Contains(w.Body.String(), "redis") {
				t.Fatalf("nil checks should be skipped")
			}
		})
	}
}
