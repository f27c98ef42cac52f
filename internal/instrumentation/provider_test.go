package instrumentation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider_Disabled(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{ServiceName: "test-service"})
	require.NoError(t, err)

	assert.False(t, provider.Enabled())
	assert.False(t, provider.PrometheusEnabled())
	require.NotNil(t, provider.Metrics())
	assert.NotNil(t, provider.Tracer("test"))

	// Recording on a disabled provider must not panic.
	provider.Metrics().RecordAPIRequest(context.Background(), "GET", "/audits", 200, time.Millisecond)
	assert.NoError(t, provider.Shutdown(context.Background()))
}

func TestNewProvider_Exporters(t *testing.T) {
	tests := []struct {
		name       string
		cfg        Config
		prometheus bool
	}{
		{
			name:       "prometheus",
			cfg:        Config{MetricsExporter: ExporterPrometheus, TracingExporter: ExporterNone},
			prometheus: true,
		},
		{
			name: "stdout",
			cfg:  Config{MetricsExporter: ExporterStdout, TracingExporter: ExporterStdout, TraceSamplingRate: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			tt.cfg.ServiceName = "test-service"
			tt.cfg.ServiceVersion = "1.0.0"
			tt.cfg.Enabled = true

			provider, err := NewProvider(ctx, tt.cfg)
			require.NoError(t, err)
			defer func() { _ = provider.Shutdown(ctx) }()

			assert.True(t, provider.Enabled())
			assert.Equal(t, tt.prometheus, provider.PrometheusEnabled())
			assert.NotNil(t, provider.Metrics())
		})
	}
}

func TestNewProvider_InvalidConfig(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{
		Enabled:         true,
		MetricsExporter: ExporterOTLP,
	})
	assert.Error(t, err)
}
