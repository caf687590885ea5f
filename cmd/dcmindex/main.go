package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/dcmindex/cmd/dcmindex/commands"
	"github.com/teranos/dcmindex/logger"
)

var rootCmd = &cobra.Command{
	Use:   "dcmindex",
	Short: "dcmindex - DICOM metadata index",
	Long: `dcmindex - Index DICOM files into a searchable Patient/Study/Series/Instance tree.

Files are read once, their identifying attributes stored in SQLite, and the
full attribute set re-read from disk on demand.

Available commands:
  am     - Manage dcmindex configuration ("I am")
  ix     - Import directories of DICOM files
  ax     - Search the index
  db     - Inspect the index database

Examples:
  dcmindex ix ~/scans --recurse         # Import a directory tree
  dcmindex ax smith                     # Free-text search
  dcmindex ax --modality CT --level series
  dcmindex db stats                     # Show index counts`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		jsonLogs, _ := cmd.Flags().GetBool("json-logs")
		if err := logger.Initialize(jsonLogs, verbosity); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger.Debugw("Logger initialized", "verbosity", logger.LevelName(verbosity), "command", cmd.CommandPath())
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv)")
	rootCmd.PersistentFlags().Bool("json-logs", false, "Emit logs as JSON")
	rootCmd.PersistentFlags().String("db", "", "Index database path (overrides database.path)")

	rootCmd.AddCommand(commands.AmCmd)
	rootCmd.AddCommand(commands.IxCmd)
	rootCmd.AddCommand(commands.AxCmd)
	rootCmd.AddCommand(commands.DbCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
