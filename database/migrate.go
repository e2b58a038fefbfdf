package database

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
)

// MigrateUp applies every pending migration. An up-to-date schema is not an error.
func MigrateUp(m Migrator) error {
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	logVersion(m)
	return nil
}

// MigrateDown reverts numSteps migrations, or all of them when numSteps is 0.
func MigrateDown(m Migrator, numSteps int) error {
	var err error
	if numSteps > 0 {
		err = m.Steps(-numSteps)
	} else {
		err = m.Down()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to revert migrations: %w", err)
	}
	logVersion(m)
	return nil
}

// CloseMigrator releases the source and database handles of m
func CloseMigrator(m Migrator) error {
	srcErr, dbErr := m.Close()
	return errors.Join(srcErr, dbErr)
}

func logVersion(m Migrator) {
	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		slog.Info("Database schema is empty")
	case err != nil:
		slog.Warn("Failed to read schema version", "error", err)
	default:
		slog.Info("Database schema version", "version", version, "dirty", dirty)
	}
}
