package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration for an archive process: which storage
// backend it talks to, how its key hierarchy is sealed, and the ambient
// logging/metrics/audit/telemetry stack around it.
type Config struct {
	Environment string          `yaml:"environment" json:"environment"`
	Backend     BackendConfig   `yaml:"backend" json:"backend"`
	KeySource   KeySourceConfig `yaml:"key_source" json:"key_source"`
	Cache       CacheConfig     `yaml:"cache" json:"cache"`
	Audit       AuditConfig     `yaml:"audit" json:"audit"`
	Logging     LoggingConfig   `yaml:"logging" json:"logging"`
	Metrics     MetricsConfig   `yaml:"metrics" json:"metrics"`
	Telemetry   TelemetryConfig `yaml:"telemetry" json:"telemetry"`
	Ops         OpsConfig       `yaml:"ops" json:"ops"`
}

// BackendConfig selects and configures the storage backend.
type BackendConfig struct {
	Type string `yaml:"type" json:"type"` // "memory" or "s3"

	S3Endpoint     string `yaml:"s3_endpoint" json:"s3_endpoint"`
	S3Bucket       string `yaml:"s3_bucket" json:"s3_bucket"`
	S3Region       string `yaml:"s3_region" json:"s3_region"`
	S3ForcePathStyle bool `yaml:"s3_force_path_style" json:"s3_force_path_style"`
	WriterSlots    int    `yaml:"writer_slots" json:"writer_slots"`
}

// KeySourceConfig selects and configures the header sealing mode.
type KeySourceConfig struct {
	Mode string `yaml:"mode" json:"mode"` // "symmetric", "hardware", "kmip"

	Hardware HardwareConfig `yaml:"hardware" json:"hardware"`
	KMIP     KMIPConfig     `yaml:"kmip" json:"kmip"`
}

// HardwareConfig configures the HardwareChallengeResponse key source.
type HardwareConfig struct {
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// KMIPConfig configures the KMIPWrapped key source's connection to the
// key management server.
type KMIPConfig struct {
	Endpoint       string        `yaml:"endpoint" json:"endpoint"`
	ClientCertPath string        `yaml:"client_cert_path" json:"client_cert_path"`
	ClientKeyPath  string        `yaml:"client_key_path" json:"client_key_path"`
	CACertPath     string        `yaml:"ca_cert_path" json:"ca_cert_path"`
	DialTimeout    time.Duration `yaml:"dial_timeout" json:"dial_timeout"`
}

// CacheConfig configures the decrypted-object cache.
type CacheConfig struct {
	Type          string        `yaml:"type" json:"type"` // "none", "lru", "redis"
	LRUCapacity   int           `yaml:"lru_capacity" json:"lru_capacity"`
	RedisAddr     string        `yaml:"redis_addr" json:"redis_addr"`
	RedisTTL      time.Duration `yaml:"redis_ttl" json:"redis_ttl"`
	FallbackLRU   int           `yaml:"fallback_lru" json:"fallback_lru"`
}

// AuditConfig configures the audit trail.
type AuditConfig struct {
	Enabled             bool       `yaml:"enabled" json:"enabled"`
	MaxEvents           int        `yaml:"max_events" json:"max_events"`
	RedactMetadataKeys  []string   `yaml:"redact_metadata_keys" json:"redact_metadata_keys"`
	Sink                SinkConfig `yaml:"sink" json:"sink"`
}

// SinkConfig configures where audit events are written.
type SinkConfig struct {
	Type          string            `yaml:"type" json:"type"` // "stdout", "file", "http"
	FilePath      string            `yaml:"file_path" json:"file_path"`
	Endpoint      string            `yaml:"endpoint" json:"endpoint"`
	Headers       map[string]string `yaml:"headers" json:"headers"`
	BatchSize     int               `yaml:"batch_size" json:"batch_size"`
	FlushInterval time.Duration     `yaml:"flush_interval" json:"flush_interval"`
	RetryCount    int               `yaml:"retry_count" json:"retry_count"`
	RetryBackoff  time.Duration     `yaml:"retry_backoff" json:"retry_backoff"`
}

// LoggingConfig configures logrus.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"` // "json" or "text"
}

// MetricsConfig configures the Prometheus registry exposed by the ops surface.
type MetricsConfig struct {
	Enabled            bool `yaml:"enabled" json:"enabled"`
	EnableBackendLabel bool `yaml:"enable_backend_label" json:"enable_backend_label"`
}

// TelemetryConfig configures OTEL tracing.
type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled" json:"enabled"`
	Exporter string `yaml:"exporter" json:"exporter"` // "stdout", "jaeger", "otlp"
	Endpoint string `yaml:"endpoint" json:"endpoint"`
}

// OpsConfig configures the healthz/readyz/metrics HTTP surface.
type OpsConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

// LoadFromFile loads configuration from a YAML (or, as a fallback, JSON) file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return nil, fmt.Errorf("parsing config file (tried YAML and JSON): %w", err)
		}
	}

	setDefaults(cfg)
	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.Backend.Type == "" {
		cfg.Backend.Type = "memory"
	}
	if cfg.Backend.WriterSlots == 0 {
		cfg.Backend.WriterSlots = 4
	}
	if cfg.KeySource.Mode == "" {
		cfg.KeySource.Mode = "symmetric"
	}
	if cfg.KeySource.Hardware.Timeout == 0 {
		cfg.KeySource.Hardware.Timeout = 5 * time.Second
	}
	if cfg.KeySource.KMIP.DialTimeout == 0 {
		cfg.KeySource.KMIP.DialTimeout = 10 * time.Second
	}
	if cfg.Cache.Type == "" {
		cfg.Cache.Type = "none"
	}
	if cfg.Cache.LRUCapacity == 0 {
		cfg.Cache.LRUCapacity = 256
	}
	if cfg.Cache.FallbackLRU == 0 {
		cfg.Cache.FallbackLRU = 64
	}
	if cfg.Audit.MaxEvents == 0 {
		cfg.Audit.MaxEvents = 10000
	}
	if cfg.Audit.Sink.Type == "" {
		cfg.Audit.Sink.Type = "stdout"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Telemetry.Exporter == "" {
		cfg.Telemetry.Exporter = "stdout"
	}
	if cfg.Ops.Addr == "" {
		cfg.Ops.Addr = ":9090"
	}
}

// Watch reloads the config file on every write or create event and calls
// onChange with the freshly parsed config; a reload that fails to parse is
// logged and the previous configuration is kept. The watch goroutine runs
// until the returned *fsnotify.Watcher is closed.
func Watch(path string, onChange func(*Config)) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating config watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watching config file: %w", err)
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				cfg, err := LoadFromFile(path)
				if err != nil {
					logrus.WithError(err).Warn("config: reload failed, keeping previous configuration")
					continue
				}
				onChange(cfg)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logrus.WithError(err).Warn("config: watcher error")
			}
		}
	}()

	return watcher, nil
}
