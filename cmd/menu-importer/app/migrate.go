package app

import (
	"bufio"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stacklok/menu-importer/database"
	"github.com/stacklok/menu-importer/internal/config"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration tool",
		Long: `Database migration tool for managing schema versions of the sqlite and postgres
storage backends. Use with 'up' or 'down' subcommands.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Usage()
		},
	}

	cmd.PersistentFlags().BoolP("yes", "y", false, "Answer yes to all questions")
	cmd.PersistentFlags().UintP("num-steps", "n", 0, "Number of steps to migrate down (0 = all)")
	cmd.PersistentFlags().String(flagConfig, "", "Path to configuration file (YAML format)")
	cmd.PersistentFlags().String(flagStorage, "", "Storage backend: sqlite or postgres (overrides storage.type)")
	cmd.PersistentFlags().String(flagDataDir, "", "Data directory holding the default SQLite database")

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending database migrations",
		Long: `Apply all pending database migrations to bring the schema up to date.
Repositories also migrate on startup, so this is only needed to prepare a
database ahead of time.`,
		Args: cobra.NoArgs,
		RunE: runMigrateUp,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Migrate the database down",
		Long: `Migrate the database schema down by reverting migrations.
WARNING: This operation can result in data loss. Use with caution.

Examples:
  # Migrate down by 1 step
  menu-importer migrate down --config config.yaml --num-steps 1 --yes

  # Migrate down all the way (WARNING: destroys all menu items)
  menu-importer migrate down --config config.yaml --yes`,
		Args: cobra.NoArgs,
		RunE: runMigrateDown,
	})

	return cmd
}

// migrationTarget describes the database a migration runs against
type migrationTarget struct {
	migrator    database.Migrator
	description string
}

// setupMigration loads configuration and opens a migrator for the configured backend
func setupMigration(cmd *cobra.Command) (*viper.Viper, *migrationTarget, error) {
	v, err := newViper(cmd)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := loadConfig(v)
	if err != nil {
		return nil, nil, err
	}

	target := &migrationTarget{}
	switch cfg.GetStorageType() {
	case config.StorageTypeSQLite:
		path := cfg.GetSQLitePath()
		target.description = "sqlite database " + path
		if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		target.migrator, err = database.NewSQLiteMigrator(path)
	case config.StorageTypePostgres:
		if cfg.Database == nil {
			return nil, nil, fmt.Errorf("database configuration is required")
		}
		connString, connErr := cfg.Database.GetConnectionString()
		if connErr != nil {
			return nil, nil, fmt.Errorf("failed to build connection string: %w", connErr)
		}
		target.description = fmt.Sprintf("postgres database %s@%s:%d/%s",
			cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database)
		target.migrator, err = database.NewPostgresMigrator(connString)
	default:
		return nil, nil, fmt.Errorf("storage type %q has no schema to migrate", cfg.GetStorageType())
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create migrator: %w", err)
	}

	return v, target, nil
}

func (t *migrationTarget) close() {
	if err := database.CloseMigrator(t.migrator); err != nil {
		slog.Error("Error closing migrator", "error", err)
	}
}

func runMigrateUp(cmd *cobra.Command, _ []string) error {
	v, target, err := setupMigration(cmd)
	if err != nil {
		return err
	}
	defer target.close()

	if !v.GetBool("yes") {
		if !confirm(cmd, fmt.Sprintf("About to apply migrations to %s. Continue?", target.description)) {
			slog.Info("Migration cancelled by user")
			return nil
		}
	}

	slog.Info("Applying database migrations", "target", target.description)
	if err := database.MigrateUp(target.migrator); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func runMigrateDown(cmd *cobra.Command, _ []string) error {
	v, target, err := setupMigration(cmd)
	if err != nil {
		return err
	}
	defer target.close()

	numSteps := v.GetUint("num-steps")
	if numSteps > math.MaxInt32 {
		return fmt.Errorf("number of steps exceeds maximum allowed value")
	}

	if !v.GetBool("yes") {
		var prompt string
		if numSteps == 0 {
			prompt = "WARNING: This will migrate down ALL steps and remove every menu item. Continue?"
		} else {
			prompt = fmt.Sprintf("WARNING: This will migrate down %d step(s) and may result in data loss. Continue?", numSteps)
		}
		if !confirm(cmd, prompt) {
			slog.Info("Migration cancelled")
			return fmt.Errorf("migration cancelled by user")
		}
	}

	if numSteps == 0 {
		slog.Warn("Migrating down all steps - this will remove all schema!", "target", target.description)
	} else {
		slog.Info("Migrating down", "steps", numSteps, "target", target.description)
	}
	if err := database.MigrateDown(target.migrator, int(numSteps)); err != nil { // #nosec G115 -- bounded above
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// confirm asks a yes/no question on the command's input
func confirm(cmd *cobra.Command, prompt string) bool {
	if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s (yes/no): ", prompt); err != nil {
		return false
	}
	response, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && response == "" {
		return false
	}
	response = strings.ToLower(strings.TrimSpace(response))
	return response == "yes" || response == "y"
}
