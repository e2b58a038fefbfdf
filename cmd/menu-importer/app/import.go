package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	importerapp "github.com/stacklok/menu-importer/internal/app"
	"github.com/stacklok/menu-importer/internal/importer"
)

const flagEndpoint = "endpoint"

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a menu collection once",
		Long: `Fetch the JSON:API document at --endpoint and reconcile it into a menu collection.

The collection name defaults to the last non-empty path segment of the endpoint,
so https://cms.example.com/jsonapi/menu_items/footer/ imports into "footer".

Examples:
  # Import into a local SQLite database under ./data
  menu-importer import --endpoint https://cms.example.com/jsonapi/menu_items/main

  # Import into PostgreSQL using a config file
  menu-importer import --config config.yaml --storage postgres \
    --endpoint https://cms.example.com/jsonapi/menu_items/main --collection header`,
		Args: cobra.NoArgs,
		RunE: runImport,
	}

	cmd.Flags().String(flagEndpoint, "", "JSON:API endpoint of the menu collection (required)")
	cmd.Flags().String("collection", "", "Collection name (derived from the endpoint when empty)")
	cmd.Flags().String(flagStorage, "", "Storage backend: memory, sqlite or postgres (overrides storage.type)")
	addConfigFlags(cmd)

	return cmd
}

func runImport(cmd *cobra.Command, _ []string) error {
	v, err := newViper(cmd)
	if err != nil {
		return err
	}

	endpoint := v.GetString(flagEndpoint)
	if endpoint == "" {
		return fmt.Errorf("--%s is required", flagEndpoint)
	}

	cfg, err := loadConfig(v)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	components, err := importerapp.NewComponents(ctx, importerapp.WithConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to initialize importer: %w", err)
	}
	defer func() {
		if err := components.Close(); err != nil {
			slog.Error("Failed to close storage", "error", err)
		}
	}()

	result, err := components.Importer.ImportMenus(ctx, endpoint, v.GetString("collection"))
	if err != nil {
		// The cause is already logged by the importer
		if !errors.Is(err, importer.ErrImportFailed) {
			slog.Error("Import failed", "error", err)
		}
		return errors.New(importer.FailureMessage)
	}

	out := cmd.OutOrStdout()
	if _, err := fmt.Fprintln(out, importer.SuccessMessage); err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "collection=%s created=%d updated=%d deleted=%d skipped=%d linked=%d\n",
		result.Collection, result.Created, result.Updated, result.Deleted, result.Skipped, result.Linked)
	return err
}
