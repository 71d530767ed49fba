package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kenneth/zerostash-objectstore/internal/config"
)

func TestNew_Disabled(t *testing.T) {
	p, err := New(context.Background(), config.TelemetryConfig{Enabled: false}, "objectbench")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Nil(t, p.tp)

	// no-op provider must shut down cleanly
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNew_StdoutExporter(t *testing.T) {
	p, err := New(context.Background(), config.TelemetryConfig{
		Enabled:  true,
		Exporter: "stdout",
	}, "objectbench")
	require.NoError(t, err)
	require.NotNil(t, p.tp)

	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNew_UnknownExporter(t *testing.T) {
	_, err := New(context.Background(), config.TelemetryConfig{
		Enabled:  true,
		Exporter: "carrier-pigeon",
	}, "objectbench")
	assert.Error(t, err)
}

func TestShutdown_NilProvider(t *testing.T) {
	var p *Provider
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestTracer_ReturnsUsableTracer(t *testing.T) {
	tr := Tracer("objectbench-test")
	require.NotNil(t, tr)

	_, span := tr.Start(context.Background(), "test-span")
	defer span.End()
}
