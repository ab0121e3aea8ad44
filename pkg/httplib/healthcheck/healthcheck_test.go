package healthcheck

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHealthCheck_Handler(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	testCases := []struct {
		name     string
		path     string
		checks   map[string]Check
		wantCode int
		wantBody string
	}{
		{
			name:     "liveness",
			path:     "/health",
			wantCode: http.StatusOK,
			wantBody: "ok",
		},
		{
			name: "ready",
			path: "/ready",
			checks: map[string]Check{
				"postgres": func(context.Context) error { return nil },
			},
			wantCode: http.StatusOK,
			wantBody: `"postgres":"ok"`,
		},
		{
			name: "not ready",
			path: "/ready",
			checks: map[string]Check{
				"redis": func(context.Context) error { return errors.New("down") },
			},
			wantCode: http.StatusServiceUnavailable,
			wantBody: `"redis":"down"`,
		},
		{
			name:     "passes through",
			path:     "/metrics",
			wantCode: http.StatusTeapot,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			HealthCheck{Checks: tc.checks}.Handler(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))

			assert.Equal(t, tc.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.wantBody)
		})
	}
}
