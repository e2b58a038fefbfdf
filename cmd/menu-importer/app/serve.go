package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	importerapp "github.com/stacklok/menu-importer/internal/app"
	"github.com/stacklok/menu-importer/internal/telemetry"
)

const (
	defaultGracefulTimeout = 30 * time.Second // Kubernetes-friendly shutdown time
	telemetryShutdownTime  = 5 * time.Second
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the menu importer API server",
		Long: `Start the HTTP API and import the configured menus on their schedule.

The configuration file (--config) lists the menus to import, the storage backend
and telemetry settings. See examples/ directory for a sample configuration.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	cmd.Flags().String("address", ":8080", "Address to listen on")
	addConfigFlags(cmd)

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	v, err := newViper(cmd)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(v)
	if err != nil {
		return err
	}

	tel, err := telemetry.New(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), telemetryShutdownTime)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			slog.Error("Failed to shutdown telemetry", "error", err)
		}
	}()

	// Providers that are switched off come back nil and leave the app uninstrumented
	opts := []importerapp.ImporterAppOptions{
		importerapp.WithConfig(cfg),
		importerapp.WithAddress(v.GetString("address")),
		importerapp.WithMeterProvider(tel.MeterProvider()),
		importerapp.WithTracerProvider(tel.TracerProvider()),
		importerapp.WithMetricsHandler(tel.MetricsHandler()),
	}

	app, err := importerapp.NewImporterApp(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Start()
	}()

	// Wait for interrupt signal or a server failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		if stopErr := app.Stop(defaultGracefulTimeout); stopErr != nil {
			slog.Error("Failed to stop application", "error", stopErr)
		}
		return err
	case sig := <-quit:
		slog.Info("Received signal", "signal", sig.String())
	}

	return app.Stop(defaultGracefulTimeout)
}
