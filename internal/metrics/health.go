package metrics

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// HealthStatus represents the health status of the service.
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

var (
	startTime = time.Now()
	version   = "dev"
)

// SetVersion sets the application version.
func SetVersion(v string) {
	version = v
}

// HealthHandler returns a handler for health check endpoints.
func HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := HealthStatus{
			Status:    "healthy",
			Timestamp: time.Now(),
			Version:   version,
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(status)
	}
}

// ReadinessHandler returns a handler for readiness checks. backendHealthCheck
// is typically the storage backend's reachability probe; if the archive uses
// KMIPWrapped key sealing, callers should wrap KeyManager.HealthCheck into
// the same func signature and compose it (e.g. run both, return the first
// error) before passing it in here.
//
// If m is non-nil, the probe's latency and outcome are recorded on the
// backend operation series, under the synthetic operation name
// "readiness_probe" — this makes a flapping backend visible in the backend
// dashboards, not just the ops surface's request counters. Reader and
// Writer do not record to these series.
func ReadinessHandler(backendHealthCheck func(context.Context) error, m *Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		status := HealthStatus{
			Status:    "ready",
			Timestamp: time.Now(),
			Version:   version,
		}

		if backendHealthCheck != nil {
			start := time.Now()
			err := backendHealthCheck(ctx)
			if m != nil {
				m.RecordBackendOperation(ctx, "readiness_probe", "backend", time.Since(start))
			}
			if err != nil {
				if m != nil {
					m.RecordBackendError(ctx, "readiness_probe", "backend", "unreachable")
				}
				status.Status = "not_ready"
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(status)
				return
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(status)
	}
}

// LivenessHandler returns a handler for liveness checks.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := HealthStatus{
			Status:    "alive",
			Timestamp: time.Now(),
			Version:   version,
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(status)
	}
}
