// Package status provides import status tracking and persistence for menu collections.
package status

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

//go:generate mockgen -destination=mocks/mock_status_persistence.go -package=mocks -source=persistence.go StatusPersistence

const (
	// StatusFileName is the name of the status file
	StatusFileName = "status.json"
)

// StatusPersistence defines the interface for import status persistence
//
//nolint:revive // This name is fine
type StatusPersistence interface {
	// SaveStatus saves the import status of a collection
	SaveStatus(ctx context.Context, collection string, status *ImportStatus) error

	// LoadStatus loads the import status of a collection
	// Returns an empty ImportStatus if none was saved yet (first run)
	LoadStatus(ctx context.Context, collection string) (*ImportStatus, error)

	// LoadAllStatus loads the import status of every collection
	LoadAllStatus(ctx context.Context) (map[string]*ImportStatus, error)
}

// fileStatusPersistence implements StatusPersistence using local filesystem
type fileStatusPersistence struct {
	basePath string
}

// NewFileStatusPersistence creates a new file-based status persistence
// basePath is the base directory where per-collection status files will be stored
func NewFileStatusPersistence(basePath string) StatusPersistence {
	return &fileStatusPersistence{
		basePath: basePath,
	}
}

// collectionDir returns the directory of a collection, rejecting names that
// would escape basePath.
func (f *fileStatusPersistence) collectionDir(collection string) (string, error) {
	if collection == "" || !filepath.IsLocal(collection) || strings.ContainsAny(collection, `/\`) {
		return "", fmt.Errorf("invalid collection name '%s'", collection)
	}
	return filepath.Join(f.basePath, collection), nil
}

// SaveStatus saves the import status to a JSON file in a collection-specific directory
func (f *fileStatusPersistence) SaveStatus(_ context.Context, collection string, status *ImportStatus) error {
	dir, err := f.collectionDir(collection)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create status directory for collection '%s': %w", collection, err)
	}

	filePath := filepath.Join(dir, StatusFileName)

	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal status data for collection '%s': %w", collection, err)
	}

	// Write to temporary file first for atomic operation
	tempPath := filePath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary status file for collection '%s': %w", collection, err)
	}

	if err := os.Rename(tempPath, filePath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename status file for collection '%s': %w", collection, err)
	}

	return nil
}

// LoadStatus loads the import status from a JSON file for a specific collection
// Returns an empty ImportStatus if the file doesn't exist
func (f *fileStatusPersistence) LoadStatus(_ context.Context, collection string) (*ImportStatus, error) {
	dir, err := f.collectionDir(collection)
	if err != nil {
		return nil, err
	}
	filePath := filepath.Join(dir, StatusFileName)

	// #nosec G304 -- filePath is basePath joined with a validated collection name
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &ImportStatus{}, nil
		}
		return nil, fmt.Errorf("failed to read status file for collection '%s': %w", collection, err)
	}

	var status ImportStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("failed to unmarshal status data for collection '%s': %w", collection, err)
	}

	return &status, nil
}

// LoadAllStatus loads import status for all collections
func (f *fileStatusPersistence) LoadAllStatus(ctx context.Context) (map[string]*ImportStatus, error) {
	result := make(map[string]*ImportStatus)

	entries, err := os.ReadDir(f.basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return result, nil
		}
		return nil, fmt.Errorf("failed to read status directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		collection := entry.Name()
		if _, err := os.Stat(filepath.Join(f.basePath, collection, StatusFileName)); err != nil {
			continue
		}

		status, err := f.LoadStatus(ctx, collection)
		if err != nil {
			// Partial results are better than none
			slog.Warn("Skipping unreadable status file", "collection", collection, "error", err)
			continue
		}

		result[collection] = status
	}

	return result, nil
}
