// Package storage creates the storage.Repository selected by configuration.
package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/stacklok/menu-importer/internal/config"
	menustore "github.com/stacklok/menu-importer/internal/storage"
	"github.com/stacklok/menu-importer/internal/storage/memory"
	"github.com/stacklok/menu-importer/internal/storage/postgres"
	"github.com/stacklok/menu-importer/internal/storage/sqlite"
)

// NewRepository opens the repository for the configured storage type.
// The caller owns the returned repository and must Close it.
func NewRepository(ctx context.Context, cfg *config.Config) (menustore.Repository, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	switch cfg.GetStorageType() {
	case config.StorageTypeMemory:
		slog.Info("Using in-memory storage; menu items are lost on exit")
		return memory.NewRepository(), nil
	case config.StorageTypeSQLite:
		path := cfg.GetSQLitePath()
		slog.Info("Using SQLite storage", "path", path)
		return sqlite.Open(ctx, path)
	case config.StorageTypePostgres:
		slog.Info("Using PostgreSQL storage")
		return postgres.Open(ctx, cfg.Database)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.GetStorageType())
	}
}
