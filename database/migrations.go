// Package database provides database migration tooling.
package database

import (
	"embed"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5" // registers pgx5://
	_ "github.com/golang-migrate/migrate/v4/database/sqlite" // registers sqlite://
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

const (
	postgresMigrations = "migrations/postgres"
	sqliteMigrations   = "migrations/sqlite"
)

// migrationsFromSource returns a migration source driver from the embedded migrations.
func migrationsFromSource(dir string) source.Driver {
	d, err := iofs.New(migrationsFS, dir)
	if err != nil {
		panic(err)
	}
	return d
}

// Migrator is the interface for the migration tooling.
type Migrator interface {
	Up() error
	Down() error
	Steps(int) error
	Version() (uint, bool, error)
	Close() (error, error)
}

// NewPostgresMigrator returns a migration instance for a postgres:// connection string.
func NewPostgresMigrator(connString string) (Migrator, error) {
	pgxURL, ok := strings.CutPrefix(connString, "postgres://")
	if !ok {
		pgxURL, ok = strings.CutPrefix(connString, "postgresql://")
	}
	if !ok {
		return nil, fmt.Errorf("unsupported connection string scheme, expected postgres://")
	}

	return migrate.NewWithSourceInstance("iofs", migrationsFromSource(postgresMigrations), "pgx5://"+pgxURL)
}

// NewSQLiteMigrator returns a migration instance for the SQLite database file at path.
func NewSQLiteMigrator(path string) (Migrator, error) {
	return migrate.NewWithSourceInstance("iofs", migrationsFromSource(sqliteMigrations), "sqlite://"+path)
}
