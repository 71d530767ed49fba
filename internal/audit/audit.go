package audit

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/kenneth/zerostash-objectstore/internal/config"
	"github.com/ryanuber/go-glob"
)

// EventType represents the type of audit event.
type EventType string

const (
	// EventTypeSealChunk represents a chunk being sealed into an object.
	EventTypeSealChunk EventType = "seal_chunk"
	// EventTypeOpenChunk represents a chunk being opened from an object.
	EventTypeOpenChunk EventType = "open_chunk"
	// EventTypeSealHeader represents a header being sealed for an archive.
	EventTypeSealHeader EventType = "seal_header"
	// EventTypeOpenHeader represents a header being opened (credentials checked).
	EventTypeOpenHeader EventType = "open_header"
	// EventTypeDeviceTouch represents a hardware challenge-response round trip.
	EventTypeDeviceTouch EventType = "device_touch"
	// EventTypeKeyRotation represents a KMIP key version rotation.
	EventTypeKeyRotation EventType = "key_rotation"
)

// AuditEvent represents a single audit log event.
type AuditEvent struct {
	Timestamp  time.Time              `json:"timestamp"`
	EventType  EventType              `json:"event_type"`
	Operation  string                 `json:"operation"`
	ObjectID   string                 `json:"object_id,omitempty"`
	Mode       string                 `json:"mode,omitempty"`
	RequestID  string                 `json:"request_id,omitempty"`
	Algorithm  string                 `json:"algorithm,omitempty"`
	KeyVersion int                    `json:"key_version,omitempty"`
	Success    bool                   `json:"success"`
	Error      string                 `json:"error,omitempty"`
	Duration   time.Duration          `json:"duration_ms"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// Logger is the interface for audit logging.
type Logger interface {
	// Log logs an audit event.
	Log(event *AuditEvent) error

	// LogSeal logs a chunk or header seal operation.
	LogSeal(eventType EventType, objectID, algorithm string, keyVersion int, success bool, err error, duration time.Duration, metadata map[string]interface{})

	// LogOpen logs a chunk or header open operation.
	LogOpen(eventType EventType, objectID, algorithm string, keyVersion int, success bool, err error, duration time.Duration, metadata map[string]interface{})

	// LogKeyRotation logs a KMIP key rotation.
	LogKeyRotation(keyVersion int, success bool, err error)

	// LogDeviceTouch logs a hardware challenge-response round trip.
	LogDeviceTouch(requestID string, success bool, err error, duration time.Duration)

	// GetEvents returns all audit events (for testing/querying).
	GetEvents() []*AuditEvent

	// Close closes the logger and its underlying writer.
	Close() error
}

// auditLogger implements the Logger interface.
type auditLogger struct {
	mu          sync.Mutex
	events      []*AuditEvent
	maxEvents   int
	writer      EventWriter
	redactGlobs []string
}

// EventWriter is an interface for writing audit events.
type EventWriter interface {
	WriteEvent(event *AuditEvent) error
}

// NewLogger creates a new audit logger.
func NewLogger(maxEvents int, writer EventWriter) Logger {
	return NewLoggerWithRedaction(maxEvents, writer, nil)
}

// NewLoggerWithRedaction creates a new audit logger with glob patterns (see
// github.com/ryanuber/go-glob) matched against metadata keys for redaction,
// e.g. "*password*" or "challenge_response".
func NewLoggerWithRedaction(maxEvents int, writer EventWriter, redactGlobs []string) Logger {
	if writer == nil {
		writer = &defaultWriter{}
	}

	return &auditLogger{
		events:      make([]*AuditEvent, 0, maxEvents),
		maxEvents:   maxEvents,
		writer:      writer,
		redactGlobs: redactGlobs,
	}
}

// NewLoggerFromConfig creates a new audit logger from configuration.
func NewLoggerFromConfig(cfg config.AuditConfig) (Logger, error) {
	var writer EventWriter

	switch cfg.Sink.Type {
	case "http":
		writer = NewHTTPSink(cfg.Sink.Endpoint, cfg.Sink.Headers)
	case "file":
		writer = NewFileSink(cfg.Sink.FilePath)
	case "stdout", "":
		writer = &defaultWriter{}
	default:
		return nil, fmt.Errorf("unknown sink type: %s", cfg.Sink.Type)
	}

	if cfg.Sink.BatchSize > 0 || cfg.Sink.FlushInterval > 0 {
		writer = NewBatchSink(writer, cfg.Sink.BatchSize, cfg.Sink.FlushInterval, cfg.Sink.RetryCount, cfg.Sink.RetryBackoff)
	}

	return NewLoggerWithRedaction(cfg.MaxEvents, writer, cfg.RedactMetadataKeys), nil
}

// Log logs an audit event.
func (l *auditLogger) Log(event *AuditEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.writer != nil {
		l.writer.WriteEvent(event)
	}

	l.events = append(l.events, event)
	if len(l.events) > l.maxEvents {
		l.events = l.events[len(l.events)-l.maxEvents:]
	}

	return nil
}

// Close closes the logger and its underlying writer.
func (l *auditLogger) Close() error {
	if closer, ok := l.writer.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

// redactMetadata blanks any metadata value whose key matches one of the
// configured glob patterns.
func (l *auditLogger) redactMetadata(metadata map[string]interface{}) map[string]interface{} {
	if len(l.redactGlobs) == 0 || len(metadata) == 0 {
		return metadata
	}

	needsRedaction := false
	for k := range metadata {
		if matchesAny(l.redactGlobs, k) {
			needsRedaction = true
			break
		}
	}
	if !needsRedaction {
		return metadata
	}

	clone := make(map[string]interface{}, len(metadata))
	for k, v := range metadata {
		if matchesAny(l.redactGlobs, k) {
			clone[k] = "[REDACTED]"
		} else {
			clone[k] = v
		}
	}
	return clone
}

func matchesAny(patterns []string, key string) bool {
	for _, p := range patterns {
		if glob.Glob(p, key) {
			return true
		}
	}
	return false
}

// LogSeal logs a chunk or header seal operation.
func (l *auditLogger) LogSeal(eventType EventType, objectID, algorithm string, keyVersion int, success bool, err error, duration time.Duration, metadata map[string]interface{}) {
	event := &AuditEvent{
		Timestamp:  time.Now(),
		EventType:  eventType,
		Operation:  string(eventType),
		ObjectID:   objectID,
		Algorithm:  algorithm,
		KeyVersion: keyVersion,
		Success:    success,
		Duration:   duration,
		Metadata:   l.redactMetadata(metadata),
	}
	if err != nil {
		event.Error = err.Error()
	}
	l.Log(event)
}

// LogOpen logs a chunk or header open operation.
func (l *auditLogger) LogOpen(eventType EventType, objectID, algorithm string, keyVersion int, success bool, err error, duration time.Duration, metadata map[string]interface{}) {
	event := &AuditEvent{
		Timestamp:  time.Now(),
		EventType:  eventType,
		Operation:  string(eventType),
		ObjectID:   objectID,
		Algorithm:  algorithm,
		KeyVersion: keyVersion,
		Success:    success,
		Duration:   duration,
		Metadata:   l.redactMetadata(metadata),
	}
	if err != nil {
		event.Error = err.Error()
	}
	l.Log(event)
}

// LogKeyRotation logs a KMIP key rotation.
func (l *auditLogger) LogKeyRotation(keyVersion int, success bool, err error) {
	event := &AuditEvent{
		Timestamp:  time.Now(),
		EventType:  EventTypeKeyRotation,
		Operation:  "key_rotation",
		KeyVersion: keyVersion,
		Success:    success,
	}
	if err != nil {
		event.Error = err.Error()
	}
	l.Log(event)
}

// LogDeviceTouch logs a hardware challenge-response round trip.
func (l *auditLogger) LogDeviceTouch(requestID string, success bool, err error, duration time.Duration) {
	event := &AuditEvent{
		Timestamp: time.Now(),
		EventType: EventTypeDeviceTouch,
		Operation: string(EventTypeDeviceTouch),
		RequestID: requestID,
		Success:   success,
		Duration:  duration,
	}
	if err != nil {
		event.Error = err.Error()
	}
	l.Log(event)
}

// GetEvents returns all audit events (for testing/querying).
func (l *auditLogger) GetEvents() []*AuditEvent {
	l.mu.Lock()
	defer l.mu.Unlock()

	events := make([]*AuditEvent, len(l.events))
	copy(events, l.events)
	return events
}

// defaultWriter is a default implementation that writes to stdout as JSON.
type defaultWriter struct{}

func (w *defaultWriter) WriteEvent(event *AuditEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	fmt.Printf("%s\n", string(data))
	return nil
}
