package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/dcmindex/db"
	"github.com/teranos/dcmindex/display"
	"github.com/teranos/dcmindex/errors"
	"github.com/teranos/dcmindex/sym"
)

// DbCmd represents the db (database) command
var DbCmd = &cobra.Command{
	Use:   "db",
	Short: sym.DB + " Inspect the index database",
	Long: sym.DB + ` db - Inspect the index database

Examples:
  dcmindex db stats                   # Show entity counts
  dcmindex db stats --json            # Same, as JSON`,
}

var dbStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index statistics",
	Long:  "Display patient, study, series, instance and reference counts for the index database",
	RunE:  runDbStats,
}

func init() {
	DbCmd.AddCommand(dbStatsCmd)
	dbStatsCmd.Flags().Bool("json", false, "Output statistics as JSON")
}

func runDbStats(cmd *cobra.Command, args []string) error {
	ix, err := openIndex(cmd, false)
	if err != nil {
		return errors.Wrap(err, "failed to open database")
	}
	defer ix.Close()

	stats, err := ix.store.Stats(context.Background())
	if err != nil {
		return err
	}

	schema, err := db.SchemaVersion(ix.db)
	if err != nil {
		return err
	}

	dbPath, _ := cmd.Flags().GetString("db")
	if dbPath == "" {
		dbPath = ix.cfg.GetDatabasePath()
	}

	out := cmd.OutOrStdout()
	if display.ShouldOutputJSON(cmd) {
		return display.WriteJSON(out, struct {
			Path   string `json:"path"`
			Size   int64  `json:"size_bytes"`
			Schema string `json:"schema_version"`
			Stats  any    `json:"stats"`
		}{dbPath, fileSize(dbPath), schema, stats})
	}

	fmt.Fprintf(out, "%s Index Statistics\n", sym.DB)
	fmt.Fprintf(out, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")
	fmt.Fprintf(out, "Database Path: %s\n", dbPath)
	fmt.Fprintf(out, "Size:          %d bytes\n", fileSize(dbPath))
	fmt.Fprintf(out, "Schema:        %s\n", schema)
	fmt.Fprintf(out, "%s Patients:    %d\n", sym.Patient, stats.Patients)
	fmt.Fprintf(out, "%s Studies:     %d\n", sym.Study, stats.Studies)
	fmt.Fprintf(out, "%s Series:      %d\n", sym.Series, stats.Series)
	fmt.Fprintf(out, "%s Instances:   %d\n", sym.Instance, stats.Instances)
	fmt.Fprintf(out, "  References:  %d\n", stats.References)
	return nil
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
