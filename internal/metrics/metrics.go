package metrics

import (
	"context"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"
)

var (
	// defaultRegistry is the default Prometheus registry
	defaultRegistry = prometheus.DefaultRegisterer
)

// Config holds metrics configuration.
type Config struct {
	EnableBackendLabel bool
}

// Metrics holds all application metrics for the object store.
type Metrics struct {
	config Config

	opsRequestsTotal   *prometheus.CounterVec
	opsRequestDuration *prometheus.HistogramVec
	opsRequestBytes    *prometheus.CounterVec

	backendOperationsTotal   *prometheus.CounterVec
	backendOperationDuration *prometheus.HistogramVec
	backendOperationErrors   *prometheus.CounterVec

	sealOperations *prometheus.CounterVec
	sealDuration   *prometheus.HistogramVec
	sealErrors     *prometheus.CounterVec
	sealedBytes    *prometheus.CounterVec

	rotatedReads *prometheus.CounterVec

	bufferPoolHits   *prometheus.CounterVec
	bufferPoolMisses *prometheus.CounterVec

	activeWriters prometheus.Gauge
	goroutines    prometheus.Gauge
	memoryAllocBytes prometheus.Gauge
	memorySysBytes   prometheus.Gauge

	hardwareAccelerationEnabled *prometheus.GaugeVec
}

// NewMetrics creates a new metrics instance with default configuration.
func NewMetrics() *Metrics {
	return NewMetricsWithConfig(Config{EnableBackendLabel: true})
}

// NewMetricsWithConfig creates a new metrics instance with the provided configuration.
func NewMetricsWithConfig(cfg Config) *Metrics {
	return newMetricsWithRegistry(defaultRegistry, cfg)
}

// NewMetricsWithRegistry creates a new metrics instance with a custom registry.
// This is useful for testing to avoid metric registration conflicts.
func NewMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	return newMetricsWithRegistry(reg, Config{EnableBackendLabel: true})
}

// newMetricsWithRegistry creates a new metrics instance with a custom registry (for testing).
func newMetricsWithRegistry(reg prometheus.Registerer, cfg Config) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		config: cfg,
		opsRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ops_http_requests_total",
				Help: "Total number of requests served by the ops HTTP surface (healthz/readyz/metrics)",
			},
			[]string{"method", "path", "status"},
		),
		opsRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ops_http_request_duration_seconds",
				Help:    "Ops HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		opsRequestBytes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ops_http_request_bytes_total",
				Help: "Total bytes transferred through the ops HTTP surface",
			},
			[]string{"method", "path"},
		),
		backendOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backend_operations_total",
				Help: "Total number of storage backend operations (read/write/delete object)",
			},
			[]string{"operation", "backend"},
		),
		backendOperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "backend_operation_duration_seconds",
				Help:    "Storage backend operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "backend"},
		),
		backendOperationErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backend_operation_errors_total",
				Help: "Total number of storage backend operation errors",
			},
			[]string{"operation", "backend", "error_type"},
		),
		sealOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seal_operations_total",
				Help: "Total number of chunk/header seal and open operations",
			},
			[]string{"operation"}, // "seal_chunk", "open_chunk", "seal_header", "open_header"
		),
		sealDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "seal_duration_seconds",
				Help:    "Seal/open operation duration in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
			},
			[]string{"operation"},
		),
		sealErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seal_errors_total",
				Help: "Total number of seal/open errors",
			},
			[]string{"operation", "error_type"},
		),
		sealedBytes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sealed_bytes_total",
				Help: "Total plaintext bytes sealed or opened",
			},
			[]string{"operation"},
		),
		rotatedReads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "key_version_rotated_reads_total",
				Help: "Total number of header opens using a non-active KMIP key version",
			},
			[]string{"key_version", "active_version"},
		),
		bufferPoolHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "buffer_pool_hits_total",
				Help: "Total number of buffer pool hits",
			},
			[]string{"size_class"},
		),
		bufferPoolMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "buffer_pool_misses_total",
				Help: "Total number of buffer pool misses",
			},
			[]string{"size_class"},
		),
		activeWriters: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "active_writers",
				Help: "Number of writer slots currently leased out of the balancer",
			},
		),
		goroutines: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "goroutines_total",
				Help: "Number of goroutines",
			},
		),
		memoryAllocBytes: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "memory_alloc_bytes",
				Help: "Number of bytes allocated and not yet freed",
			},
		),
		memorySysBytes: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "memory_sys_bytes",
				Help: "Total bytes of memory obtained from OS",
			},
		),
		hardwareAccelerationEnabled: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "hardware_acceleration_enabled",
				Help: "Hardware acceleration status (1=enabled, 0=disabled)",
			},
			[]string{"type"},
		),
	}
}

// SetHardwareAccelerationStatus sets the hardware acceleration status metric.
func (m *Metrics) SetHardwareAccelerationStatus(accelType string, enabled bool) {
	val := 0.0
	if enabled {
		val = 1.0
	}
	m.hardwareAccelerationEnabled.WithLabelValues(accelType).Set(val)
}

// GetHardwareAccelerationEnabledMetric returns the hardware acceleration enabled metric (for testing).
func (m *Metrics) GetHardwareAccelerationEnabledMetric() *prometheus.GaugeVec {
	return m.hardwareAccelerationEnabled
}

// GetRotatedReadsMetric returns the rotated reads metric (for testing).
func (m *Metrics) GetRotatedReadsMetric() *prometheus.CounterVec {
	return m.rotatedReads
}

// RecordOpsRequest records a request served by the ops HTTP surface.
func (m *Metrics) RecordOpsRequest(ctx context.Context, method, path string, status int, duration time.Duration, bytes int64) {
	label := sanitizePathLabel(path)
	labels := prometheus.Labels{"method": method, "path": label, "status": http.StatusText(status)}

	if exemplar := getExemplar(ctx); exemplar != nil {
		if adder, ok := m.opsRequestsTotal.With(labels).(prometheus.ExemplarAdder); ok {
			adder.AddWithExemplar(1, exemplar)
		} else {
			m.opsRequestsTotal.With(labels).Inc()
		}

		if observer, ok := m.opsRequestDuration.With(labels).(prometheus.ExemplarObserver); ok {
			observer.ObserveWithExemplar(duration.Seconds(), exemplar)
		} else {
			m.opsRequestDuration.With(labels).Observe(duration.Seconds())
		}
	} else {
		m.opsRequestsTotal.With(labels).Inc()
		m.opsRequestDuration.With(labels).Observe(duration.Seconds())
	}

	m.opsRequestBytes.WithLabelValues(method, label).Add(float64(bytes))
}

// sanitizePathLabel reduces high-cardinality paths to stable labels.
func sanitizePathLabel(path string) string {
	if path == "" || path == "/" {
		return "/"
	}
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	segs := strings.Split(strings.TrimPrefix(path, "/"), "/")
	if len(segs) <= 1 {
		return "/" + segs[0]
	}
	return "/" + segs[0] + "/*"
}

// RecordBackendOperation records a storage backend operation.
func (m *Metrics) RecordBackendOperation(ctx context.Context, operation, backend string, duration time.Duration) {
	backendLabel := backend
	if !m.config.EnableBackendLabel {
		backendLabel = "*"
	}

	if exemplar := getExemplar(ctx); exemplar != nil {
		if adder, ok := m.backendOperationsTotal.WithLabelValues(operation, backendLabel).(prometheus.ExemplarAdder); ok {
			adder.AddWithExemplar(1, exemplar)
		} else {
			m.backendOperationsTotal.WithLabelValues(operation, backendLabel).Inc()
		}

		if observer, ok := m.backendOperationDuration.WithLabelValues(operation, backendLabel).(prometheus.ExemplarObserver); ok {
			observer.ObserveWithExemplar(duration.Seconds(), exemplar)
		} else {
			m.backendOperationDuration.WithLabelValues(operation, backendLabel).Observe(duration.Seconds())
		}
	} else {
		m.backendOperationsTotal.WithLabelValues(operation, backendLabel).Inc()
		m.backendOperationDuration.WithLabelValues(operation, backendLabel).Observe(duration.Seconds())
	}
}

// RecordBackendError records a storage backend operation error.
func (m *Metrics) RecordBackendError(ctx context.Context, operation, backend, errorType string) {
	backendLabel := backend
	if !m.config.EnableBackendLabel {
		backendLabel = "*"
	}

	if exemplar := getExemplar(ctx); exemplar != nil {
		if adder, ok := m.backendOperationErrors.WithLabelValues(operation, backendLabel, errorType).(prometheus.ExemplarAdder); ok {
			adder.AddWithExemplar(1, exemplar)
		} else {
			m.backendOperationErrors.WithLabelValues(operation, backendLabel, errorType).Inc()
		}
	} else {
		m.backendOperationErrors.WithLabelValues(operation, backendLabel, errorType).Inc()
	}
}

// RecordSealOperation records a chunk/header seal or open operation.
func (m *Metrics) RecordSealOperation(ctx context.Context, operation string, duration time.Duration, bytes int64) {
	if exemplar := getExemplar(ctx); exemplar != nil {
		if adder, ok := m.sealOperations.WithLabelValues(operation).(prometheus.ExemplarAdder); ok {
			adder.AddWithExemplar(1, exemplar)
		} else {
			m.sealOperations.WithLabelValues(operation).Inc()
		}

		if observer, ok := m.sealDuration.WithLabelValues(operation).(prometheus.ExemplarObserver); ok {
			observer.ObserveWithExemplar(duration.Seconds(), exemplar)
		} else {
			m.sealDuration.WithLabelValues(operation).Observe(duration.Seconds())
		}
	} else {
		m.sealOperations.WithLabelValues(operation).Inc()
		m.sealDuration.WithLabelValues(operation).Observe(duration.Seconds())
	}

	m.sealedBytes.WithLabelValues(operation).Add(float64(bytes))
}

// RecordSealError records a seal/open error.
func (m *Metrics) RecordSealError(ctx context.Context, operation, errorType string) {
	if exemplar := getExemplar(ctx); exemplar != nil {
		if adder, ok := m.sealErrors.WithLabelValues(operation, errorType).(prometheus.ExemplarAdder); ok {
			adder.AddWithExemplar(1, exemplar)
		} else {
			m.sealErrors.WithLabelValues(operation, errorType).Inc()
		}
	} else {
		m.sealErrors.WithLabelValues(operation, errorType).Inc()
	}
}

// RecordRotatedRead records a header open using a rotated (non-active) KMIP key version.
func (m *Metrics) RecordRotatedRead(ctx context.Context, keyVersion, activeVersion int) {
	if exemplar := getExemplar(ctx); exemplar != nil {
		if adder, ok := m.rotatedReads.WithLabelValues(strconv.Itoa(keyVersion), strconv.Itoa(activeVersion)).(prometheus.ExemplarAdder); ok {
			adder.AddWithExemplar(1, exemplar)
		} else {
			m.rotatedReads.WithLabelValues(strconv.Itoa(keyVersion), strconv.Itoa(activeVersion)).Inc()
		}
	} else {
		m.rotatedReads.WithLabelValues(
			strconv.Itoa(keyVersion),
			strconv.Itoa(activeVersion),
		).Inc()
	}
}

// RecordBufferPoolHit records a buffer pool hit.
func (m *Metrics) RecordBufferPoolHit(sizeClass string) {
	m.bufferPoolHits.WithLabelValues(sizeClass).Inc()
}

// RecordBufferPoolMiss records a buffer pool miss.
func (m *Metrics) RecordBufferPoolMiss(sizeClass string) {
	m.bufferPoolMisses.WithLabelValues(sizeClass).Inc()
}

// UpdateSystemMetrics updates system-level metrics (goroutines, memory).
func (m *Metrics) UpdateSystemMetrics() {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	m.goroutines.Set(float64(runtime.NumGoroutine()))
	m.memoryAllocBytes.Set(float64(memStats.Alloc))
	m.memorySysBytes.Set(float64(memStats.Sys))
}

// SetActiveWriters sets the number of writer slots currently leased.
func (m *Metrics) SetActiveWriters(n int) {
	m.activeWriters.Set(float64(n))
}

// StartSystemMetricsCollector starts a goroutine that periodically updates system metrics.
func (m *Metrics) StartSystemMetricsCollector() {
	ticker := time.NewTicker(5 * time.Second)
	go func() {
		for range ticker.C {
			m.UpdateSystemMetrics()
		}
	}()
}

// Handler returns the HTTP handler for metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}

// getExemplar extracts trace ID from context and returns prometheus Labels for exemplar.
func getExemplar(ctx context.Context) prometheus.Labels {
	if ctx == nil {
		return nil
	}
	spanContext := trace.SpanFromContext(ctx).SpanContext()
	if spanContext.IsValid() {
		return prometheus.Labels{"trace_id": spanContext.TraceID().String()}
	}
	return nil
}
