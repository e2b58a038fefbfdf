package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/menu-importer/internal/api"
	appstorage "github.com/stacklok/menu-importer/internal/app/storage"
	"github.com/stacklok/menu-importer/internal/config"
	"github.com/stacklok/menu-importer/internal/coordinator"
	"github.com/stacklok/menu-importer/internal/httpclient"
	"github.com/stacklok/menu-importer/internal/importer"
	"github.com/stacklok/menu-importer/internal/jsonapi"
	"github.com/stacklok/menu-importer/internal/status"
	"github.com/stacklok/menu-importer/internal/storage"
	"github.com/stacklok/menu-importer/internal/telemetry"
	"github.com/stacklok/menu-importer/internal/versions"
)

const (
	defaultHTTPAddress = ":8080"
	// Imports run inside a request, so the request timeout must cover a full fetch and reconcile
	defaultRequestTimeout = 60 * time.Second
	defaultReadTimeout    = 10 * time.Second
	defaultWriteTimeout   = 75 * time.Second
	defaultIdleTimeout    = 60 * time.Second

	tracerName = "github.com/stacklok/menu-importer/importer"
)

// ImporterAppOptions is a function that configures the importer app builder
type ImporterAppOptions func(*importerAppConfig) error

// importerAppConfig holds everything needed to build the app.
// It supports dependency injection for testing while providing sensible defaults for production.
type importerAppConfig struct {
	config *config.Config

	// Optional component overrides (primarily for testing)
	repository  storage.Repository
	httpClient  httpclient.Client
	coordinator coordinator.Coordinator

	// HTTP server options
	address        string
	middlewares    []func(http.Handler) http.Handler
	requestTimeout time.Duration
	readTimeout    time.Duration
	writeTimeout   time.Duration
	idleTimeout    time.Duration

	// Data directory for status files. Defaults to the configured dataDir.
	dataDir string

	// Telemetry components
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
	metricsHandler http.Handler
}

func baseConfig(opts ...ImporterAppOptions) (*importerAppConfig, error) {
	cfg := &importerAppConfig{
		address:        defaultHTTPAddress,
		requestTimeout: defaultRequestTimeout,
		readTimeout:    defaultReadTimeout,
		writeTimeout:   defaultWriteTimeout,
		idleTimeout:    defaultIdleTimeout,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.dataDir == "" {
		cfg.dataDir = cfg.config.GetDataDir()
	}

	return cfg, nil
}

// NewComponents builds the importer and its storage without an HTTP server.
// The caller must Close the returned components.
func NewComponents(ctx context.Context, opts ...ImporterAppOptions) (*AppComponents, error) {
	cfg, err := baseConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build base configuration: %w", err)
	}
	return buildImportComponents(ctx, cfg)
}

// NewImporterApp creates the server application: API, coordinator and importer
func NewImporterApp(ctx context.Context, opts ...ImporterAppOptions) (*ImporterApp, error) {
	cfg, err := baseConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build base configuration: %w", err)
	}

	components, err := buildImportComponents(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// Ensure cleanup happens on error
	cleanupNeeded := true
	defer func() {
		if cleanupNeeded {
			if err := components.Close(); err != nil {
				slog.Warn("Failed to close repository", "error", err)
			}
		}
	}()

	components.Coordinator = cfg.coordinator
	if components.Coordinator == nil {
		components.Coordinator = coordinator.New(components.Importer, components.StatusPersistence, cfg.config.Menus)
	}

	httpServer, err := buildHTTPServer(ctx, cfg, components)
	if err != nil {
		return nil, fmt.Errorf("failed to build HTTP server: %w", err)
	}

	appCtx, cancel := context.WithCancel(ctx)

	// Cleanup is now handled by the app
	cleanupNeeded = false

	return &ImporterApp{
		config:     cfg.config,
		components: components,
		httpServer: httpServer,
		ctx:        appCtx,
		cancelFunc: cancel,
	}, nil
}

// WithConfig sets the configuration
func WithConfig(c *config.Config) ImporterAppOptions {
	return func(cfg *importerAppConfig) error {
		cfg.config = c
		return nil
	}
}

// WithAddress sets the HTTP server address
func WithAddress(addr string) ImporterAppOptions {
	return func(cfg *importerAppConfig) error {
		if addr == "" {
			return fmt.Errorf("address cannot be empty")
		}

		host, port, found := strings.Cut(addr, ":")
		if !found || port == "" {
			return fmt.Errorf("address is not a valid port: %s", addr)
		}
		if host == "localhost" {
			host = "127.0.0.1"
		}
		if host == "" {
			host = "0.0.0.0"
		}

		if _, err := netip.ParseAddrPort(host + ":" + port); err != nil {
			return fmt.Errorf("address is not a valid port: %w", err)
		}

		cfg.address = addr
		return nil
	}
}

// WithMiddlewares sets custom HTTP middlewares
func WithMiddlewares(mw ...func(http.Handler) http.Handler) ImporterAppOptions {
	return func(cfg *importerAppConfig) error {
		cfg.middlewares = mw
		return nil
	}
}

// WithDataDirectory sets the directory holding import status files
func WithDataDirectory(dir string) ImporterAppOptions {
	return func(cfg *importerAppConfig) error {
		cfg.dataDir = dir
		return nil
	}
}

// WithRepository injects a repository instead of opening the configured one.
// An injected repository is not closed by the app.
func WithRepository(repo storage.Repository) ImporterAppOptions {
	return func(cfg *importerAppConfig) error {
		cfg.repository = repo
		return nil
	}
}

// WithHTTPClient injects the client used to fetch menu documents
func WithHTTPClient(client httpclient.Client) ImporterAppOptions {
	return func(cfg *importerAppConfig) error {
		cfg.httpClient = client
		return nil
	}
}

// WithCoordinator injects the import coordinator (for testing)
func WithCoordinator(c coordinator.Coordinator) ImporterAppOptions {
	return func(cfg *importerAppConfig) error {
		cfg.coordinator = c
		return nil
	}
}

// WithMeterProvider sets the OpenTelemetry meter provider for import and HTTP metrics
func WithMeterProvider(mp metric.MeterProvider) ImporterAppOptions {
	return func(cfg *importerAppConfig) error {
		cfg.meterProvider = mp
		return nil
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider
func WithTracerProvider(tp trace.TracerProvider) ImporterAppOptions {
	return func(cfg *importerAppConfig) error {
		cfg.tracerProvider = tp
		return nil
	}
}

// WithMetricsHandler serves Prometheus metrics on /metrics
func WithMetricsHandler(h http.Handler) ImporterAppOptions {
	return func(cfg *importerAppConfig) error {
		cfg.metricsHandler = h
		return nil
	}
}

// buildHTTPClient creates the fetch client from the httpClient configuration
func buildHTTPClient(cfg *config.Config) httpclient.Client {
	opts := []httpclient.Option{httpclient.WithUserAgent(versions.UserAgent())}

	if cfg.HTTPClient != nil && cfg.HTTPClient.CircuitBreaker != nil && cfg.HTTPClient.CircuitBreaker.Enabled {
		cb := cfg.HTTPClient.CircuitBreaker
		settings := httpclient.DefaultBreakerSettings("menu-fetch")
		settings.ConsecutiveFailures = cb.GetConsecutiveFailures()
		settings.Timeout = cb.GetOpenTimeout()
		opts = append(opts, httpclient.WithCircuitBreaker(settings))
		slog.Info("Circuit breaker enabled for menu fetches",
			"consecutive_failures", settings.ConsecutiveFailures,
			"open_timeout", settings.Timeout)
	}

	return httpclient.NewDefaultClient(cfg.GetHTTPTimeout(), opts...)
}

// buildImportComponents opens storage and wires the importer
func buildImportComponents(ctx context.Context, b *importerAppConfig) (*AppComponents, error) {
	slog.Info("Initializing import components")

	components := &AppComponents{
		Repository:        b.repository,
		StatusPersistence: status.NewFileStatusPersistence(b.dataDir),
	}
	if components.Repository == nil {
		repo, err := appstorage.NewRepository(ctx, b.config)
		if err != nil {
			return nil, fmt.Errorf("failed to open storage: %w", err)
		}
		components.Repository = repo
		components.ownsRepository = true
	}

	if b.httpClient == nil {
		b.httpClient = buildHTTPClient(b.config)
	}

	importerOpts := []importer.Option{
		importer.WithStatusPersistence(components.StatusPersistence),
	}

	if b.meterProvider != nil {
		importMetrics, err := telemetry.NewImportMetrics(b.meterProvider)
		if err != nil {
			_ = components.Close()
			return nil, fmt.Errorf("failed to create import metrics: %w", err)
		}
		if importMetrics != nil {
			importerOpts = append(importerOpts, importer.WithMetrics(importMetrics))
			slog.Info("Import metrics enabled")
		}
	}
	if b.tracerProvider != nil {
		importerOpts = append(importerOpts, importer.WithTracer(b.tracerProvider.Tracer(tracerName)))
	}

	components.Importer = importer.New(jsonapi.NewFetcher(b.httpClient), components.Repository, importerOpts...)

	slog.Info("Import components initialized successfully",
		"storage", b.config.GetStorageType(),
		"data_dir", b.dataDir)
	return components, nil
}

// buildHTTPServer builds the HTTP server with router and middleware
//
//nolint:unparam // we prefer having a similar interface
func buildHTTPServer(_ context.Context, b *importerAppConfig, components *AppComponents) (*http.Server, error) {
	slog.Info("Initializing HTTP server")

	// Use default middlewares if not provided
	if b.middlewares == nil {
		b.middlewares = []func(http.Handler) http.Handler{
			middleware.RequestID,
			middleware.RealIP,
			middleware.Recoverer,
			middleware.Timeout(b.requestTimeout),
			api.LoggingMiddleware,
		}
	}

	// Tracing goes first so every other middleware runs inside the request span
	if b.tracerProvider != nil {
		b.middlewares = append([]func(http.Handler) http.Handler{telemetry.TracingMiddleware(b.tracerProvider)},
			b.middlewares...)
	}

	if b.meterProvider != nil {
		metricsMiddleware, err := telemetry.MetricsMiddleware(b.meterProvider)
		if err != nil {
			return nil, fmt.Errorf("failed to create metrics middleware: %w", err)
		}
		if metricsMiddleware != nil {
			b.middlewares = append([]func(http.Handler) http.Handler{metricsMiddleware}, b.middlewares...)
			slog.Info("HTTP metrics middleware enabled")
		}
	}

	serverOpts := []api.ServerOption{
		api.WithMiddlewares(b.middlewares...),
		api.WithMetricsHandler(b.metricsHandler),
	}
	if pinger, ok := components.Repository.(storage.Pinger); ok {
		serverOpts = append(serverOpts, api.WithReadinessCheck(pinger.Ping))
	}

	router := api.NewServer(components.Importer, components.Repository, components.StatusPersistence, serverOpts...)

	server := &http.Server{
		Addr:         b.address,
		Handler:      router,
		ReadTimeout:  b.readTimeout,
		WriteTimeout: b.writeTimeout,
		IdleTimeout:  b.idleTimeout,
	}

	slog.Info("HTTP server configured", "address", b.address)
	return server, nil
}
