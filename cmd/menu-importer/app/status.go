package app

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/stacklok/menu-importer/internal/status"
)

const (
	formatTable = "table"
	formatJSON  = "json"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the last import of every collection",
		Args:  cobra.NoArgs,
		RunE:  runStatus,
	}

	cmd.Flags().String("format", formatTable, "Output format (table or json)")
	addConfigFlags(cmd)

	return cmd
}

func runStatus(cmd *cobra.Command, _ []string) error {
	v, err := newViper(cmd)
	if err != nil {
		return err
	}

	format := v.GetString("format")
	if format != formatTable && format != formatJSON {
		return fmt.Errorf("unsupported format %q, expected %s or %s", format, formatTable, formatJSON)
	}

	cfg, err := loadConfig(v)
	if err != nil {
		return err
	}

	all, err := status.NewFileStatusPersistence(cfg.GetDataDir()).LoadAllStatus(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load import status: %w", err)
	}

	if format == formatJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(all)
	}
	return renderStatusTable(cmd.OutOrStdout(), all)
}

// renderStatusTable writes one row per collection, sorted by name
func renderStatusTable(w io.Writer, all map[string]*status.ImportStatus) error {
	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)

	table := tablewriter.NewWriter(w)
	table.Header("Collection", "Phase", "Last Import", "Created", "Updated", "Deleted", "Skipped", "Attempts", "Message")

	for _, name := range names {
		s := all[name]
		if err := table.Append(
			name,
			string(s.Phase),
			formatTime(s.LastImportTime),
			strconv.Itoa(s.Created),
			strconv.Itoa(s.Updated),
			strconv.Itoa(s.Deleted),
			strconv.Itoa(s.Skipped),
			strconv.Itoa(s.AttemptCount),
			s.Message,
		); err != nil {
			return fmt.Errorf("failed to render status of %s: %w", name, err)
		}
	}

	return table.Render()
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.UTC().Format(time.RFC3339)
}
