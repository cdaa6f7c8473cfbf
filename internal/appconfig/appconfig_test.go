package appconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := LoadWithPath(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 4747, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.False(t, cfg.Tracing.Enabled)
}

func TestLoadRejectsInvalidLogLevel(t *testing.T) {
	t.Setenv("RUNG_LOG_LEVEL", "verbose")
	_, err := LoadWithPath(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logging.level")
}

func TestLoadRejectsTracingEnabledWithoutEndpoint(t *testing.T) {
	t.Setenv("RUNG_TRACING_ENABLED", "true")
	t.Setenv("RUNG_TRACING_ENDPOINT", "")
	_, err := LoadWithPath(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tracing.endpoint")
}

func TestLoadHonorsOTLPEndpointEnvVar(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	cfg, err := LoadWithPath(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "localhost:4317", cfg.Tracing.Endpoint)
}
