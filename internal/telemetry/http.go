package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// HTTPScope is the instrumentation scope of the API middlewares
const HTTPScope = "github.com/stacklok/menu-importer/http"

// unmatchedRoute labels requests chi could not route, keeping raw paths out of labels
const unmatchedRoute = "unmatched"

// routePattern returns the chi pattern that served r, such as /v1/menus/{collection}.
// It is only complete once the router has run.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return unmatchedRoute
}

type httpInstruments struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

// MetricsMiddleware counts API requests and records their latency as
// menu_importer_http_requests_total and menu_importer_http_request_duration_seconds,
// labelled by method, route and status. A nil provider yields a pass-through middleware.
func MetricsMiddleware(provider metric.MeterProvider) (func(http.Handler) http.Handler, error) {
	if provider == nil {
		return func(next http.Handler) http.Handler { return next }, nil
	}

	meter := provider.Meter(HTTPScope)
	requests, err := meter.Int64Counter("menu_importer_http_requests_total",
		metric.WithDescription("API requests served"),
		metric.WithUnit("{request}"))
	if err != nil {
		return nil, err
	}
	// Import requests block for the whole fetch and reconcile, hence the long tail
	duration, err := meter.Float64Histogram("menu_importer_http_request_duration_seconds",
		metric.WithDescription("API request latency"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.025, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60))
	if err != nil {
		return nil, err
	}

	in := &httpInstruments{requests: requests, duration: duration}
	return in.wrap, nil
}

func (in *httpInstruments) wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		// The request context may already be cancelled, which metric recording ignores
		attrs := metric.WithAttributes(
			attribute.String("method", r.Method),
			attribute.String("route", routePattern(r)),
			attribute.String("status_code", strconv.Itoa(ww.Status())),
		)
		in.requests.Add(r.Context(), 1, attrs)
		in.duration.Record(r.Context(), time.Since(start).Seconds(), attrs)
	})
}

// TracingMiddleware opens a server span per API request, continuing any W3C
// trace context sent by the caller. Spans are named "METHOD route" once routing
// is done. A nil provider yields a pass-through middleware.
func TracingMiddleware(provider trace.TracerProvider) func(http.Handler) http.Handler {
	if provider == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	tracer := provider.Tracer(HTTPScope)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			ctx, span := tracer.Start(ctx, r.Method,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					semconv.HTTPRequestMethodKey.String(r.Method),
					semconv.URLPath(r.URL.Path),
					semconv.UserAgentOriginal(r.UserAgent()),
				))
			defer span.End()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			r = r.WithContext(ctx)
			next.ServeHTTP(ww, r)

			route := routePattern(r)
			span.SetName(r.Method + " " + route)
			span.SetAttributes(
				semconv.HTTPRouteKey.String(route),
				semconv.HTTPResponseStatusCode(ww.Status()),
			)
			// Client errors are the caller's problem; only server failures mark the span
			if ww.Status() >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(ww.Status()))
			}
		})
	}
}
