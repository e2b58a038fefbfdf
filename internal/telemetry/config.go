// Package telemetry wires OpenTelemetry into the menu importer: OTLP traces,
// metrics pushed over OTLP or scraped by Prometheus, the HTTP instrumentation
// of the API and the instruments recorded by import runs.
package telemetry

import (
	"errors"
	"fmt"

	"github.com/stacklok/menu-importer/internal/versions"
)

// Metrics exporters
const (
	MetricsExporterOTLP       = "otlp"
	MetricsExporterPrometheus = "prometheus"
)

// Defaults applied to unset fields
const (
	DefaultServiceName = "menu-importer"
	DefaultEndpoint    = "localhost:4318"
	DefaultSampling    = 0.05
)

// Config is the telemetry section of the importer configuration
type Config struct {
	// Enabled switches every provider on or off. Disabled telemetry installs nothing.
	Enabled bool `yaml:"enabled"`

	ServiceName string `yaml:"serviceName,omitempty"`

	// ServiceVersion defaults to the build version of the binary
	ServiceVersion string `yaml:"serviceVersion,omitempty"`

	// Endpoint is the OTLP/HTTP collector as host:port
	Endpoint string `yaml:"endpoint,omitempty"`

	// Insecure sends OTLP over plain HTTP
	Insecure bool `yaml:"insecure,omitempty"`

	Tracing *TracingConfig `yaml:"tracing,omitempty"`
	Metrics *MetricsConfig `yaml:"metrics,omitempty"`
}

// TracingConfig controls span export
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`

	// Sampling is the ratio of sampled traces, DefaultSampling when unset
	Sampling *float64 `yaml:"sampling,omitempty"`
}

// MetricsConfig controls metric export
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`

	// Exporter is otlp (default) or prometheus
	Exporter string `yaml:"exporter,omitempty"`
}

// tracingEnabled reports whether spans should be exported
func (c *Config) tracingEnabled() bool {
	return c != nil && c.Enabled && c.Tracing != nil && c.Tracing.Enabled
}

// metricsEnabled reports whether instruments should be exported
func (c *Config) metricsEnabled() bool {
	return c != nil && c.Enabled && c.Metrics != nil && c.Metrics.Enabled
}

// scraped reports whether metrics are served on /metrics instead of pushed
func (c *Config) scraped() bool {
	return c.metricsEnabled() && c.Metrics.exporter() == MetricsExporterPrometheus
}

func (c *Config) serviceName() string {
	if c.ServiceName == "" {
		return DefaultServiceName
	}
	return c.ServiceName
}

func (c *Config) serviceVersion() string {
	if c.ServiceVersion == "" {
		return versions.GetVersionInfo().Version
	}
	return c.ServiceVersion
}

func (c *Config) endpoint() string {
	if c.Endpoint == "" {
		return DefaultEndpoint
	}
	return c.Endpoint
}

func (c *TracingConfig) samplingRatio() float64 {
	if c.Sampling == nil {
		return DefaultSampling
	}
	return *c.Sampling
}

func (c *MetricsConfig) exporter() string {
	if c.Exporter == "" {
		return MetricsExporterOTLP
	}
	return c.Exporter
}

// Validate checks the enabled sections. A nil or disabled config is valid.
func (c *Config) Validate() error {
	if c == nil || !c.Enabled {
		return nil
	}

	var errs []error
	if c.tracingEnabled() {
		if ratio := c.Tracing.samplingRatio(); ratio < 0 || ratio > 1 {
			errs = append(errs, fmt.Errorf("tracing: sampling must be between 0.0 and 1.0, got %g", ratio))
		}
	}
	if c.metricsEnabled() {
		switch c.Metrics.exporter() {
		case MetricsExporterOTLP, MetricsExporterPrometheus:
		default:
			errs = append(errs, fmt.Errorf("metrics: exporter must be %s or %s, got %q",
				MetricsExporterOTLP, MetricsExporterPrometheus, c.Metrics.Exporter))
		}
	}
	return errors.Join(errs...)
}
