package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFromFile_YAML(t *testing.T) {
	path := writeTempFile(t, "config.yaml", `
environment: production
backend:
  type: s3
  s3_bucket: my-bucket
  writer_slots: 8
key_source:
  mode: kmip
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "s3", cfg.Backend.Type)
	assert.Equal(t, "my-bucket", cfg.Backend.S3Bucket)
	assert.Equal(t, 8, cfg.Backend.WriterSlots)
	assert.Equal(t, "kmip", cfg.KeySource.Mode)
	// defaults still fill in untouched fields
	assert.Equal(t, 5*time.Second, cfg.KeySource.Hardware.Timeout)
	assert.Equal(t, "none", cfg.Cache.Type)
}

func TestLoadFromFile_JSON(t *testing.T) {
	path := writeTempFile(t, "config.json", `{
		"environment": "staging",
		"backend": {"type": "memory"},
		"logging": {"level": "debug"}
	}`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, "memory", cfg.Backend.Type)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadFromFile_Defaults(t *testing.T) {
	path := writeTempFile(t, "empty.yaml", ``)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "memory", cfg.Backend.Type)
	assert.Equal(t, 4, cfg.Backend.WriterSlots)
	assert.Equal(t, "symmetric", cfg.KeySource.Mode)
	assert.Equal(t, 10*time.Second, cfg.KeySource.KMIP.DialTimeout)
	assert.Equal(t, 256, cfg.Cache.LRUCapacity)
	assert.Equal(t, 64, cfg.Cache.FallbackLRU)
	assert.Equal(t, 10000, cfg.Audit.MaxEvents)
	assert.Equal(t, "stdout", cfg.Audit.Sink.Type)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "stdout", cfg.Telemetry.Exporter)
	assert.Equal(t, ":9090", cfg.Ops.Addr)
}

func TestLoadFromFile_MissingFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	assert.Error(t, err)
}

func TestLoadFromFile_Malformed(t *testing.T) {
	path := writeTempFile(t, "bad.yaml", `backend: [this is not: valid: {yaml`)
	_, err := LoadFromFile(path)
	assert.Error(t, err)
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := writeTempFile(t, "config.yaml", "environment: development\n")

	changed := make(chan *Config, 4)
	watcher, err := Watch(path, func(cfg *Config) {
		changed <- cfg
	})
	require.NoError(t, err)
	defer watcher.Close()

	require.NoError(t, os.WriteFile(path, []byte("environment: production\n"), 0o600))

	select {
	case cfg := <-changed:
		assert.Equal(t, "production", cfg.Environment)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for config reload")
	}
}

func TestWatch_MissingFile(t *testing.T) {
	_, err := Watch(filepath.Join(t.TempDir(), "nope.yaml"), func(*Config) {})
	assert.Error(t, err)
}
