package app

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stacklok/menu-importer/internal/config"
)

// Flag names shared by several commands
const (
	flagConfig  = "config"
	flagStorage = "storage"
	flagDataDir = "data-dir"
)

// addConfigFlags registers the flags every command uses to locate configuration
func addConfigFlags(cmd *cobra.Command) {
	cmd.Flags().String(flagConfig, "", "Path to configuration file (YAML format)")
	cmd.Flags().String(flagDataDir, "", "Directory for import status files (overrides dataDir)")
}

// newViper binds the command flags and MENU_IMPORTER_* environment variables.
// A flag named "data-dir" is read from MENU_IMPORTER_DATA_DIR.
func newViper(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(config.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}
	return v, nil
}

// loadConfig reads the configuration file, or the defaults when none is given,
// then applies flag overrides and validates the result.
func loadConfig(v *viper.Viper) (*config.Config, error) {
	var cfg *config.Config

	if path := v.GetString(flagConfig); path != "" {
		loaded, err := config.LoadConfig(config.WithConfigPath(path))
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		cfg = loaded
		slog.Info("Loaded configuration", "path", path, "storage", cfg.GetStorageType(), "menus", len(cfg.Menus))
	} else {
		cfg = config.Default()
	}

	if storageType := v.GetString(flagStorage); storageType != "" {
		if cfg.Storage == nil {
			cfg.Storage = &config.StorageConfig{}
		}
		cfg.Storage.Type = storageType
	}
	if dataDir := v.GetString(flagDataDir); dataDir != "" {
		cfg.DataDir = dataDir
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
