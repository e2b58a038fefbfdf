// Package otel provides OpenTelemetry instrumentation utilities for the menu importer.
package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Common attribute keys for business context used across the application.
// Using shared keys ensures consistent attribute naming in traces.
const (
	AttrCollection  = attribute.Key("menu.collection")
	AttrEndpoint    = attribute.Key("menu.endpoint")
	AttrRunID       = attribute.Key("import.run_id")
	AttrRecordCount = attribute.Key("import.record_count")
	AttrCreated     = attribute.Key("import.created")
	AttrUpdated     = attribute.Key("import.updated")
	AttrDeleted     = attribute.Key("import.deleted")
	AttrSkipped     = attribute.Key("import.skipped")
	AttrLinked      = attribute.Key("import.linked")
)

// StartSpan starts a new span if the tracer is non-nil, otherwise returns a no-op span.
// This provides graceful degradation when tracing is disabled.
func StartSpan(
	ctx context.Context,
	tracer trace.Tracer,
	name string,
	opts ...trace.SpanStartOption,
) (context.Context, trace.Span) {
	if tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, name, opts...)
}

// RecordError records an error on a span and sets the span status to error.
// It safely handles nil spans and nil errors.
// Note: The status description is intentionally generic to prevent sensitive
// information (e.g., SQL queries, connection strings) from appearing in trace
// status. The full error details are still available via span events for debugging.
func RecordError(span trace.Span, err error) {
	if err != nil && span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "operation failed")
	}
}
