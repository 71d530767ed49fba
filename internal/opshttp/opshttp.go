package opshttp

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/kenneth/zerostash-objectstore/internal/metrics"
)

// Handler serves the ops surface: health/readiness/liveness probes and the
// Prometheus metrics endpoint, separate from any data-plane traffic.
type Handler struct {
	backendHealthCheck func(context.Context) error
	logger             *logrus.Logger
	metrics            *metrics.Metrics
}

// NewHandler builds an ops Handler. backendHealthCheck is consulted by the
// readiness probe; pass nil to make readiness unconditional.
func NewHandler(backendHealthCheck func(context.Context) error, logger *logrus.Logger, m *metrics.Metrics) *Handler {
	return &Handler{
		backendHealthCheck: backendHealthCheck,
		logger:             logger,
		metrics:            m,
	}
}

// RegisterRoutes wires the ops endpoints onto r.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/healthz", h.handleHealth).Methods("GET")
	r.HandleFunc("/readyz", h.handleReady).Methods("GET")
	r.HandleFunc("/livez", h.handleLive).Methods("GET")
	r.Handle("/metrics", h.metrics.Handler()).Methods("GET")
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	handler := metrics.HealthHandler()
	handler(w, r)
	h.metrics.RecordOpsRequest(r.Context(), "GET", "/healthz", http.StatusOK, time.Since(start), 0)
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	handler := metrics.ReadinessHandler(h.backendHealthCheck, h.metrics)
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	handler(rec, r)
	h.metrics.RecordOpsRequest(r.Context(), "GET", "/readyz", rec.status, time.Since(start), 0)
	if rec.status != http.StatusOK {
		h.logger.WithField("status", rec.status).Warn("opshttp: readiness check failed")
	}
}

func (h *Handler) handleLive(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	handler := metrics.LivenessHandler()
	handler(w, r)
	h.metrics.RecordOpsRequest(r.Context(), "GET", "/livez", http.StatusOK, time.Since(start), 0)
}

// statusRecorder captures the status code a downstream handler wrote so it
// can be folded into the ops-request metric after the fact.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}
