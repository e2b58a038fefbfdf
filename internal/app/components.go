package app

import (
	"github.com/stacklok/menu-importer/internal/coordinator"
	"github.com/stacklok/menu-importer/internal/importer"
	"github.com/stacklok/menu-importer/internal/status"
	"github.com/stacklok/menu-importer/internal/storage"
)

// AppComponents groups all application components
//
//nolint:revive // This name is fine
type AppComponents struct {
	// Importer runs menu imports
	Importer importer.Service

	// Coordinator schedules the configured menu imports. Nil for one-shot imports.
	Coordinator coordinator.Coordinator

	// Repository stores menu items
	Repository storage.Repository

	// StatusPersistence records the outcome of each import
	StatusPersistence status.StatusPersistence

	// ownsRepository is false when the repository was injected
	ownsRepository bool
}

// Close releases the repository if the components opened it
func (c *AppComponents) Close() error {
	if c == nil || c.Repository == nil || !c.ownsRepository {
		return nil
	}
	return c.Repository.Close()
}
