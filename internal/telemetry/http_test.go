package telemetry_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/stacklok/menu-importer/internal/api"
	"github.com/stacklok/menu-importer/internal/httpclient"
	"github.com/stacklok/menu-importer/internal/importer"
	"github.com/stacklok/menu-importer/internal/jsonapi"
	"github.com/stacklok/menu-importer/internal/status"
	"github.com/stacklok/menu-importer/internal/storage/memory"
	"github.com/stacklok/menu-importer/internal/telemetry"
)

const mainMenu = `{
  "data": [
    {"type": "menu_link_content--menu_link_content", "id": "home",
     "attributes": {"title": "Home", "link": {"uri": "internal:/"}}},
    {"type": "menu_link_content--menu_link_content", "id": "about",
     "attributes": {"title": "About", "link": {"uri": "internal:/about"}}},
    {"type": "menu_link_content--menu_link_content", "id": "team",
     "attributes": {"title": "Team", "link": {"uri": "internal:/about/team"},
                    "parent": "menu_link_content:about"}}
  ]
}`

// newCMS serves body with code for every request
func newCMS(t *testing.T, code int, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/vnd.api+json")
		w.WriteHeader(code)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

// newInstrumentedAPI builds the API router over a real importer and memory
// storage, with the importer reporting to the same providers as the middleware
func newInstrumentedAPI(t *testing.T, importerOpts []importer.Option, mw ...func(http.Handler) http.Handler) http.Handler {
	t.Helper()

	repo := memory.NewRepository()
	persistence := status.NewFileStatusPersistence(t.TempDir())
	importerOpts = append(importerOpts, importer.WithStatusPersistence(persistence))
	svc := importer.New(jsonapi.NewFetcher(httpclient.NewDefaultClient(5*time.Second)), repo, importerOpts...)

	return api.NewServer(svc, repo, persistence, api.WithMiddlewares(mw...))
}

func serve(t *testing.T, h http.Handler, method, path, body string) int {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func importBody(endpoint string) string {
	return `{"endpoint": "` + endpoint + `"}`
}

// findMetric returns the named metric from the given instrumentation scope
func findMetric(t *testing.T, reader *sdkmetric.ManualReader, scope, name string) metricdata.Metrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		if sm.Scope.Name != scope {
			continue
		}
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m
			}
		}
	}
	require.Failf(t, "metric not found", "%s in scope %s", name, scope)
	return metricdata.Metrics{}
}

func attr(set attribute.Set, key string) string {
	v, _ := set.Value(attribute.Key(key))
	return v.Emit()
}

func TestMetricsMiddleware_APIRoutes(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	mw, err := telemetry.MetricsMiddleware(mp)
	require.NoError(t, err)
	importMetrics, err := telemetry.NewImportMetrics(mp)
	require.NoError(t, err)

	cms := newCMS(t, http.StatusOK, mainMenu)
	h := newInstrumentedAPI(t, []importer.Option{importer.WithMetrics(importMetrics)}, mw)

	require.Equal(t, http.StatusOK, serve(t, h, http.MethodPost, "/v1/imports", importBody(cms.URL+"/jsonapi/menu_items/main")))
	require.Equal(t, http.StatusBadRequest, serve(t, h, http.MethodPost, "/v1/imports", `{"endpoint": ""}`))
	require.Equal(t, http.StatusOK, serve(t, h, http.MethodGet, "/v1/menus/main", ""))
	require.Equal(t, http.StatusOK, serve(t, h, http.MethodGet, "/v1/menus/footer", ""))
	require.Equal(t, http.StatusNotFound, serve(t, h, http.MethodGet, "/v1/imports/status/footer", ""))

	requests := findMetric(t, reader, telemetry.HTTPScope, "menu_importer_http_requests_total")
	sum, ok := requests.Data.(metricdata.Sum[int64])
	require.True(t, ok)

	got := map[string]int64{}
	for _, dp := range sum.DataPoints {
		got[attr(dp.Attributes, "method")+" "+attr(dp.Attributes, "route")+" "+attr(dp.Attributes, "status_code")] = dp.Value
	}
	assert.Equal(t, map[string]int64{
		"POST /v1/imports 200":                    1,
		"POST /v1/imports 400":                    1,
		"GET /v1/menus/{collection} 200":          2,
		"GET /v1/imports/status/{collection} 404": 1,
	}, got, "routes are labelled by pattern, never by collection name")

	latency := findMetric(t, reader, telemetry.HTTPScope, "menu_importer_http_request_duration_seconds")
	hist, ok := latency.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	var observations uint64
	for _, dp := range hist.DataPoints {
		observations += dp.Count
	}
	assert.Equal(t, uint64(5), observations)

	items := findMetric(t, reader, telemetry.ImportMetricsMeterName, "menu_importer_items_total")
	itemSum, ok := items.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	byAction := map[string]int64{}
	for _, dp := range itemSum.DataPoints {
		assert.Equal(t, "main", attr(dp.Attributes, "collection"))
		byAction[attr(dp.Attributes, "action")] = dp.Value
	}
	assert.Equal(t, map[string]int64{telemetry.ActionCreated: 3, telemetry.ActionLinked: 1}, byAction)
}

func TestTracingMiddleware_ImportSpans(t *testing.T) {
	t.Parallel()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	cms := newCMS(t, http.StatusOK, mainMenu)
	h := newInstrumentedAPI(t,
		[]importer.Option{importer.WithTracer(tp.Tracer("github.com/stacklok/menu-importer/importer"))},
		telemetry.TracingMiddleware(tp))

	require.Equal(t, http.StatusOK, serve(t, h, http.MethodPost, "/v1/imports", importBody(cms.URL+"/jsonapi/menu_items/main")))

	byName := map[string]sdktrace.ReadOnlySpan{}
	for _, span := range recorder.Ended() {
		byName[span.Name()] = span
	}

	server, ok := byName["POST /v1/imports"]
	require.True(t, ok, "server span is renamed to the route pattern")
	assert.Equal(t, "/v1/imports", spanAttr(server, "http.route"))
	assert.Equal(t, "200", spanAttr(server, "http.response.status_code"))
	assert.Equal(t, codes.Unset, server.Status().Code)

	run, ok := byName["importer.ImportMenus"]
	require.True(t, ok)
	assert.Equal(t, server.SpanContext().SpanID(), run.Parent().SpanID(), "the import runs inside the request span")
	assert.Equal(t, "main", spanAttr(run, "menu.collection"))
	assert.Equal(t, "3", spanAttr(run, "import.created"))
	assert.Equal(t, "1", spanAttr(run, "import.linked"))

	for _, pass := range []string{"reconcile.delete", "reconcile.upsert", "reconcile.link"} {
		span, ok := byName[pass]
		require.True(t, ok, "missing %s span", pass)
		assert.Equal(t, run.SpanContext().SpanID(), span.Parent().SpanID(), "%s belongs to the import run", pass)
		assert.Equal(t, run.SpanContext().TraceID(), span.SpanContext().TraceID())
	}
}

func TestTracingMiddleware_StatusMapping(t *testing.T) {
	t.Parallel()

	failing := newCMS(t, http.StatusInternalServerError, "unavailable")

	tests := []struct {
		name       string
		body       string
		wantCode   int
		wantStatus codes.Code
	}{
		{
			name:       "failed import marks the span",
			body:       importBody(failing.URL + "/jsonapi/menu_items/main"),
			wantCode:   http.StatusBadGateway,
			wantStatus: codes.Error,
		},
		{
			name:       "rejected request leaves the span unset",
			body:       `{"endpoint": "not a url"}`,
			wantCode:   http.StatusBadRequest,
			wantStatus: codes.Unset,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			recorder := tracetest.NewSpanRecorder()
			tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
			defer func() { _ = tp.Shutdown(context.Background()) }()

			h := newInstrumentedAPI(t, nil, telemetry.TracingMiddleware(tp))
			require.Equal(t, tt.wantCode, serve(t, h, http.MethodPost, "/v1/imports", tt.body))

			var server sdktrace.ReadOnlySpan
			for _, span := range recorder.Ended() {
				if span.Name() == "POST /v1/imports" {
					server = span
				}
			}
			require.NotNil(t, server)
			assert.Equal(t, tt.wantStatus, server.Status().Code)
			assert.Equal(t, strconv.Itoa(tt.wantCode), spanAttr(server, "http.response.status_code"))
		})
	}
}

func TestMiddlewares_NilProviders(t *testing.T) {
	t.Parallel()

	metricsMW, err := telemetry.MetricsMiddleware(nil)
	require.NoError(t, err)

	h := newInstrumentedAPI(t, nil, metricsMW, telemetry.TracingMiddleware(nil))
	assert.Equal(t, http.StatusOK, serve(t, h, http.MethodGet, "/v1/menus/main", ""))
}

func spanAttr(span sdktrace.ReadOnlySpan, key string) string {
	for _, kv := range span.Attributes() {
		if string(kv.Key) == key {
			return kv.Value.Emit()
		}
	}
	return ""
}
