package healthcheck

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Check probes one dependency.
type Check func(ctx context.Context) error

// HealthCheck is the health check handler. Liveness is served on /health,
// readiness (every registered check) on /ready.
type HealthCheck struct {
	Checks  map[string]Check
	Timeout time.Duration
}

// Handler is used to control the flow of the health endpoints
func (hc HealthCheck) Handler(h http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		switch {
		case IsHealthCheckRequest(r):
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok\n"))
		case IsReadinessRequest(r):
			hc.ServeHTTP(w, r)
		default:
			h.ServeHTTP(w, r)
		}
	}

	return http.HandlerFunc(fn)
}

// ServeHTTP runs every check and reports per-dependency status.
func (hc HealthCheck) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	timeout := hc.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	status := http.StatusOK
	result := make(map[string]string, len(hc.Checks))
	for name, check := range hc.Checks {
		if err := check(ctx); err != nil {
			result[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		result[name] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(result)
}

// IsHealthCheckRequest is used to check if the request is a health check request
func IsHealthCheckRequest(r *http.Request) bool {
	return r.Method == http.MethodGet && r.URL.Path == "/health"
}

// IsReadinessRequest reports whether r targets the readiness endpoint.
func IsReadinessRequest(r *http.Request) bool {
	return r.Method == http.MethodGet && r.URL.Path == "/ready"
}
