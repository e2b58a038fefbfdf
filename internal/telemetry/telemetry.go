package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Telemetry owns the providers built from a Config. Providers that are not
// enabled stay nil, and the accessors then return nil interfaces so callers
// can skip instrumentation entirely.
type Telemetry struct {
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	registry       *prometheus.Registry
}

// New builds the providers enabled in cfg. The caller must call Shutdown.
func New(ctx context.Context, cfg *Config) (*Telemetry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid telemetry configuration: %w", err)
	}

	t := &Telemetry{}
	if !cfg.tracingEnabled() && !cfg.metricsEnabled() {
		slog.Debug("Telemetry disabled")
		return t, nil
	}

	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if cfg.tracingEnabled() {
		t.tracerProvider, err = newTracerProvider(ctx, cfg, res)
		if err != nil {
			return nil, err
		}
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))
		if cfg.Insecure {
			slog.Warn("Traces are exported over unencrypted HTTP")
		}
		slog.Info("Tracing enabled",
			"endpoint", cfg.endpoint(),
			"sampling_ratio", cfg.Tracing.samplingRatio())
	}

	if cfg.metricsEnabled() {
		// Scraped metrics get their own registry so /metrics serves only the importer's series
		if cfg.scraped() {
			t.registry = prometheus.NewRegistry()
		}
		t.meterProvider, err = newMeterProvider(ctx, cfg, res, t.registry)
		if err != nil {
			_ = t.Shutdown(ctx)
			return nil, err
		}
		slog.Info("Metrics enabled", "exporter", cfg.Metrics.exporter())
	}

	return t, nil
}

// TracerProvider returns the span provider, or nil when tracing is off
func (t *Telemetry) TracerProvider() trace.TracerProvider {
	if t == nil || t.tracerProvider == nil {
		return nil
	}
	return t.tracerProvider
}

// MeterProvider returns the metric provider, or nil when metrics are off
func (t *Telemetry) MeterProvider() metric.MeterProvider {
	if t == nil || t.meterProvider == nil {
		return nil
	}
	return t.meterProvider
}

// MetricsHandler returns the scrape handler for /metrics, or nil unless
// metrics use the prometheus exporter
func (t *Telemetry) MetricsHandler() http.Handler {
	if t == nil || t.registry == nil {
		return nil
	}
	return promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{})
}

// Shutdown flushes and stops the enabled providers
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil {
		return nil
	}

	var errs []error
	if t.tracerProvider != nil {
		if err := t.tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown tracer provider: %w", err))
		}
	}
	if t.meterProvider != nil {
		if err := t.meterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown meter provider: %w", err))
		}
	}
	return errors.Join(errs...)
}
