package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ImportMetricsMeterName is the name used for the import metrics meter
const ImportMetricsMeterName = "github.com/stacklok/menu-importer/import"

// Item actions reported by ImportMetrics.RecordItems
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
	ActionSkipped = "skipped"
	ActionLinked  = "linked"
)

// ImportMetrics holds the OpenTelemetry instruments for import runs
type ImportMetrics struct {
	importDuration metric.Float64Histogram
	itemsTotal     metric.Int64Counter
}

// ItemCounts is the per-action breakdown of one import run
type ItemCounts struct {
	Created int
	Updated int
	Deleted int
	Skipped int
	Linked  int
}

// NewImportMetrics creates a new ImportMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewImportMetrics(provider metric.MeterProvider) (*ImportMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(ImportMetricsMeterName)

	importDuration, err := meter.Float64Histogram(
		"menu_importer_import_duration_seconds",
		metric.WithDescription("Duration of menu import runs in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300),
	)
	if err != nil {
		return nil, err
	}

	itemsTotal, err := meter.Int64Counter(
		"menu_importer_items_total",
		metric.WithDescription("Number of menu items processed by action"),
		metric.WithUnit("{item}"),
	)
	if err != nil {
		return nil, err
	}

	return &ImportMetrics{
		importDuration: importDuration,
		itemsTotal:     itemsTotal,
	}, nil
}

// RecordImportDuration records the duration of an import run for a collection
func (m *ImportMetrics) RecordImportDuration(ctx context.Context, collection string, duration time.Duration, success bool) {
	if m == nil || m.importDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("collection", collection),
		attribute.Bool("success", success),
	}

	m.importDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordItems adds the counts of one run to the items counter. Zero counts are not recorded.
func (m *ImportMetrics) RecordItems(ctx context.Context, collection string, counts ItemCounts) {
	if m == nil || m.itemsTotal == nil {
		return
	}

	for _, c := range []struct {
		action string
		n      int
	}{
		{ActionCreated, counts.Created},
		{ActionUpdated, counts.Updated},
		{ActionDeleted, counts.Deleted},
		{ActionSkipped, counts.Skipped},
		{ActionLinked, counts.Linked},
	} {
		if c.n == 0 {
			continue
		}
		m.itemsTotal.Add(ctx, int64(c.n), metric.WithAttributes(
			attribute.String("collection", collection),
			attribute.String("action", c.action),
		))
	}
}
