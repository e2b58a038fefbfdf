package coordinator

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/stacklok/menu-importer/internal/config"
	"github.com/stacklok/menu-importer/internal/importer"
	"github.com/stacklok/menu-importer/internal/status"
)

const (
	// basePollingInterval is the base interval at which the coordinator checks for due menus
	basePollingInterval = 2 * time.Minute
	// pollingJitter is the maximum random offset (±30 seconds) applied to the polling interval
	pollingJitter = 30 * time.Second
)

// Coordinator manages background import scheduling for the configured menus
type Coordinator interface {
	// Start begins background import coordination for all menus.
	// Blocks until the context is cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop gracefully stops the coordinator and waits for a running import to finish
	Stop() error
}

// defaultCoordinator is the default implementation of Coordinator
type defaultCoordinator struct {
	importer          importer.Service
	statusPersistence status.StatusPersistence
	menus             []config.MenuConfig

	basePolling time.Duration
	jitter      time.Duration
	now         func() time.Time

	// Lifecycle management
	mu         sync.Mutex
	cancelFunc context.CancelFunc
	done       chan struct{}
}

// Option is a function that configures the coordinator
type Option func(*defaultCoordinator)

// WithPollingInterval overrides the base polling interval and its jitter
func WithPollingInterval(base, jitter time.Duration) Option {
	return func(c *defaultCoordinator) {
		c.basePolling = base
		c.jitter = jitter
	}
}

// New creates a new coordinator with injected dependencies
func New(
	importSvc importer.Service,
	statusPersistence status.StatusPersistence,
	menus []config.MenuConfig,
	opts ...Option,
) Coordinator {
	c := &defaultCoordinator{
		importer:          importSvc,
		statusPersistence: statusPersistence,
		menus:             menus,
		basePolling:       basePollingInterval,
		jitter:            pollingJitter,
		now:               time.Now,
		done:              make(chan struct{}),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// calculatePollingInterval returns the base polling interval with a random jitter applied.
// The jitter prevents several instances from hitting the CMS at the same moment.
func (c *defaultCoordinator) calculatePollingInterval() time.Duration {
	if c.jitter <= 0 {
		return c.basePolling
	}
	//nolint:gosec // G404: Non-cryptographic randomness is sufficient for polling jitter
	jitterOffset := time.Duration(rand.Int64N(int64(2*c.jitter))) - c.jitter
	return c.basePolling + jitterOffset
}

// Start begins background import coordination for all menus
func (c *defaultCoordinator) Start(ctx context.Context) error {
	slog.Info("Starting background import coordinator", "menu_count", len(c.menus))

	coordCtx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancelFunc = cancel
	c.mu.Unlock()
	defer func() {
		cancel()
		close(c.done)
		slog.Info("Background import coordinator shutting down")
	}()

	pollingInterval := c.calculatePollingInterval()
	slog.Info("Configured coordinator polling interval",
		"base_interval", c.basePolling,
		"actual_interval", pollingInterval)

	ticker := time.NewTicker(pollingInterval)
	defer ticker.Stop()

	// Perform initial import pass
	c.importDueMenus(coordCtx)

	for {
		select {
		case <-ticker.C:
			c.importDueMenus(coordCtx)

			// Recalculate interval with new jitter for next iteration
			ticker.Reset(c.calculatePollingInterval())
		case <-coordCtx.Done():
			slog.Info("Import coordinator stopping")
			return nil
		}
	}
}

// Stop gracefully stops the coordinator
func (c *defaultCoordinator) Stop() error {
	c.mu.Lock()
	cancel := c.cancelFunc
	c.mu.Unlock()

	if cancel != nil {
		slog.Info("Stopping import coordinator")
		cancel()
		// Wait for coordinator to finish
		<-c.done
	}
	return nil
}

// importDueMenus runs every due menu import in configuration order
func (c *defaultCoordinator) importDueMenus(ctx context.Context) {
	for i := range c.menus {
		if ctx.Err() != nil {
			return
		}

		menuCfg := &c.menus[i]
		collection, err := menuCfg.GetName()
		if err != nil {
			slog.Error("Skipping menu with no collection name", "endpoint", menuCfg.Endpoint, "error", err)
			continue
		}

		importStatus, err := c.statusPersistence.LoadStatus(ctx, collection)
		if err != nil {
			slog.Error("Error loading import status", "collection", collection, "error", err)
			continue
		}

		if !isDue(importStatus, menuCfg.GetInterval(), c.now()) {
			slog.Debug("Menu does not need import",
				"collection", collection,
				"last_import", importStatus.LastImportTime)
			continue
		}

		// Failures are logged and recorded in the status by the importer
		_, _ = c.importer.ImportMenus(ctx, menuCfg.Endpoint, collection)
	}
}
