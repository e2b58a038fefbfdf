// Package app provides application lifecycle management for the menu importer.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/stacklok/menu-importer/internal/config"
)

// ImporterApp encapsulates all components needed to run the menu importer server
// It provides lifecycle management and graceful shutdown capabilities
type ImporterApp struct {
	config     *config.Config
	components *AppComponents
	httpServer *http.Server

	// Lifecycle management
	ctx        context.Context
	cancelFunc context.CancelFunc
}

// Start starts the application components (HTTP server and scheduled imports)
// This method blocks until the HTTP server stops or encounters an error
func (app *ImporterApp) Start() error {
	// Start import coordinator in background
	go func() {
		if err := app.components.Coordinator.Start(app.ctx); err != nil {
			slog.Error("Import coordinator failed", "error", err)
		}
	}()

	// Start HTTP server (blocks until stopped)
	slog.Info("Server listening", "address", app.httpServer.Addr)
	if err := app.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}

// Stop gracefully stops the application with the given timeout
// It stops the import coordinator, shuts down the HTTP server and closes storage
func (app *ImporterApp) Stop(timeout time.Duration) error {
	slog.Info("Shutting down server...")

	// Stop import coordinator first
	if err := app.components.Coordinator.Stop(); err != nil {
		slog.Error("Failed to stop import coordinator", "error", err)
	}

	// Cancel the application context
	if app.cancelFunc != nil {
		app.cancelFunc()
	}

	// Graceful HTTP server shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	shutdownErr := app.httpServer.Shutdown(shutdownCtx)

	// Storage is closed after in-flight imports have drained
	if err := app.components.Close(); err != nil {
		slog.Error("Failed to close storage", "error", err)
	}

	if shutdownErr != nil {
		return fmt.Errorf("server forced to shutdown: %w", shutdownErr)
	}

	slog.Info("Server shutdown complete")
	return nil
}

// GetConfig returns the application configuration
func (app *ImporterApp) GetConfig() *config.Config {
	return app.config
}

// GetHTTPServer returns the HTTP server (useful for testing to get the actual port)
func (app *ImporterApp) GetHTTPServer() *http.Server {
	return app.httpServer
}

// GetComponents returns the wired application components
func (app *ImporterApp) GetComponents() *AppComponents {
	return app.components
}
