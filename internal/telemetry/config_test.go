package telemetry

import (
	"testing"

	"github.com/aws/smithy-go/ptr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/menu-importer/internal/versions"
)

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		config  *Config
		wantErr string
	}{
		{
			name:   "nil config",
			config: nil,
		},
		{
			name: "disabled config ignores invalid sections",
			config: &Config{
				Tracing: &TracingConfig{Enabled: true, Sampling: ptr.Float64(7)},
				Metrics: &MetricsConfig{Enabled: true, Exporter: "statsd"},
			},
		},
		{
			name:   "enabled without sections",
			config: &Config{Enabled: true},
		},
		{
			name: "zero sampling is explicit",
			config: &Config{
				Enabled: true,
				Tracing: &TracingConfig{Enabled: true, Sampling: ptr.Float64(0)},
			},
		},
		{
			name: "sampling bounds are inclusive",
			config: &Config{
				Enabled: true,
				Tracing: &TracingConfig{Enabled: true, Sampling: ptr.Float64(1)},
			},
		},
		{
			name: "disabled tracing is not checked",
			config: &Config{
				Enabled: true,
				Tracing: &TracingConfig{Sampling: ptr.Float64(-1)},
			},
		},
		{
			name: "sampling above one",
			config: &Config{
				Enabled: true,
				Tracing: &TracingConfig{Enabled: true, Sampling: ptr.Float64(1.1)},
			},
			wantErr: "tracing: sampling must be between 0.0 and 1.0",
		},
		{
			name: "negative sampling",
			config: &Config{
				Enabled: true,
				Tracing: &TracingConfig{Enabled: true, Sampling: ptr.Float64(-0.1)},
			},
			wantErr: "tracing: sampling",
		},
		{
			name: "prometheus exporter",
			config: &Config{
				Enabled: true,
				Metrics: &MetricsConfig{Enabled: true, Exporter: MetricsExporterPrometheus},
			},
		},
		{
			name: "unknown exporter",
			config: &Config{
				Enabled: true,
				Metrics: &MetricsConfig{Enabled: true, Exporter: "statsd"},
			},
			wantErr: `metrics: exporter must be otlp or prometheus, got "statsd"`,
		},
		{
			name: "both sections invalid",
			config: &Config{
				Enabled: true,
				Tracing: &TracingConfig{Enabled: true, Sampling: ptr.Float64(2)},
				Metrics: &MetricsConfig{Enabled: true, Exporter: "statsd"},
			},
			wantErr: "metrics: exporter",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.config.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_Defaults(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		Enabled: true,
		Tracing: &TracingConfig{Enabled: true},
		Metrics: &MetricsConfig{Enabled: true},
	}

	assert.Equal(t, DefaultServiceName, cfg.serviceName())
	assert.Equal(t, versions.GetVersionInfo().Version, cfg.serviceVersion())
	assert.Equal(t, DefaultEndpoint, cfg.endpoint())
	assert.InDelta(t, DefaultSampling, cfg.Tracing.samplingRatio(), 1e-9)
	assert.Equal(t, MetricsExporterOTLP, cfg.Metrics.exporter())
	assert.False(t, cfg.scraped())

	cfg.ServiceName = "footer-sync"
	cfg.ServiceVersion = "1.4.0"
	cfg.Endpoint = "otel-collector:4318"
	cfg.Tracing.Sampling = ptr.Float64(0.25)
	cfg.Metrics.Exporter = MetricsExporterPrometheus

	assert.Equal(t, "footer-sync", cfg.serviceName())
	assert.Equal(t, "1.4.0", cfg.serviceVersion())
	assert.Equal(t, "otel-collector:4318", cfg.endpoint())
	assert.InDelta(t, 0.25, cfg.Tracing.samplingRatio(), 1e-9)
	assert.True(t, cfg.scraped())

	cfg.Tracing.Sampling = ptr.Float64(0)
	assert.Zero(t, cfg.Tracing.samplingRatio())
}

func TestConfig_SectionSwitches(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		config      *Config
		wantTracing bool
		wantMetrics bool
	}{
		{name: "nil", config: nil},
		{
			name: "global switch off",
			config: &Config{
				Tracing: &TracingConfig{Enabled: true},
				Metrics: &MetricsConfig{Enabled: true},
			},
		},
		{name: "no sections", config: &Config{Enabled: true}},
		{
			name:        "tracing only",
			config:      &Config{Enabled: true, Tracing: &TracingConfig{Enabled: true}},
			wantTracing: true,
		},
		{
			name:        "metrics only",
			config:      &Config{Enabled: true, Metrics: &MetricsConfig{Enabled: true}},
			wantMetrics: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.wantTracing, tt.config.tracingEnabled())
			assert.Equal(t, tt.wantMetrics, tt.config.metricsEnabled())
		})
	}
}
