package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/dcmindex/display"
	"github.com/teranos/dcmindex/ixgest/dicomdir"
	"github.com/teranos/dcmindex/logger"
	"github.com/teranos/dcmindex/sym"
)

// IxCmd imports a directory of DICOM files
var IxCmd = &cobra.Command{
	Use:   "ix <directory>",
	Short: sym.IX + " Import DICOM files into the index",
	Long: sym.IX + ` ix - Import a directory of DICOM files

Every regular, non-hidden file is parsed; files that are not DICOM are counted
and skipped. Presentation states and instances already in the index are not
stored again. Writes are batched: one transaction per --buffer instances.

Examples:
  dcmindex ix ./scans                   # Import top-level files only
  dcmindex ix ./scans --recurse         # Descend into subdirectories
  dcmindex ix ./scans -r --buffer 1000  # Larger transactions
  dcmindex ix watch ./inbox -r          # Import files as they arrive`,
	Args: cobra.ExactArgs(1),
	RunE: runIx,
}

var ixWatchCmd = &cobra.Command{
	Use:   "watch <directory>",
	Short: "Import files as they appear in a directory",
	Long: `Watch a directory and import new files after a quiet period.

Files already present are imported first unless --skip-existing is set.
Stop with Ctrl+C; files seen before the interrupt are still imported.`,
	Args: cobra.ExactArgs(1),
	RunE: runIxWatch,
}

func init() {
	for _, c := range []*cobra.Command{IxCmd, ixWatchCmd} {
		c.Flags().BoolP("recurse", "r", false, "Descend into subdirectories (default from import.recurse)")
		c.Flags().Int("buffer", 0, "Instances per transaction (default from import.buffer_size)")
		c.Flags().Bool("json", false, "Output results in JSON format")
	}
	ixWatchCmd.Flags().Duration("debounce", 0, "Quiet period before importing a batch (default from import.watch_debounce_ms)")
	ixWatchCmd.Flags().Bool("skip-existing", false, "Do not import files present when the watch starts")

	IxCmd.AddCommand(ixWatchCmd)
}

// importSettings resolves flags against configuration.
func importSettings(cmd *cobra.Command, ix *index) (recurse bool, buffer int) {
	recurse = ix.cfg.Import.Recurse
	if cmd.Flags().Changed("recurse") {
		recurse, _ = cmd.Flags().GetBool("recurse")
	}
	buffer = ix.cfg.Import.BufferSize
	if b, _ := cmd.Flags().GetInt("buffer"); b != 0 {
		buffer = b
	}
	return recurse, buffer
}

func newImporter(cmd *cobra.Command, ix *index) (*dicomdir.Importer, bool, error) {
	recurse, buffer := importSettings(cmd, ix)
	log := logger.ComponentLogger("ix")
	pipeline, err := dicomdir.NewPipeline(ix.store, buffer, log)
	if err != nil {
		return nil, false, err
	}
	return dicomdir.NewImporter(ix.factory, pipeline, log), recurse, nil
}

func runIx(cmd *cobra.Command, args []string) error {
	ix, err := openIndex(cmd, false)
	if err != nil {
		return err
	}
	defer ix.Close()

	importer, recurse, err := newImporter(cmd, ix)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	useJSON := display.ShouldOutputJSON(cmd)
	var spinner *pterm.SpinnerPrinter
	if !useJSON {
		spinner, _ = pterm.DefaultSpinner.Start(fmt.Sprintf("Importing %s...", args[0]))
	}

	res, err := importer.ImportDirectory(ctx, args[0], recurse)
	if spinner != nil {
		spinner.Stop()
	}

	if useJSON {
		if jerr := display.WriteJSON(cmd.OutOrStdout(), res); jerr != nil {
			return jerr
		}
		return err
	}
	if res != nil {
		printImportResult(res)
	}
	return err
}

func printImportResult(res *dicomdir.ImportResult) {
	if res.Success {
		pterm.Success.Printfln("Imported %s", res.Path)
	} else {
		pterm.Warning.Printfln("Import of %s stopped: %s", res.Path, res.Message)
	}
	pterm.Printfln("  Files seen:          %d", res.FilesSeen)
	pterm.Printfln("  Instances stored:    %s", pterm.Green(res.Stored))
	pterm.Printfln("  Already indexed:     %d", res.Existing)
	pterm.Printfln("  Presentation states: %d", res.PresentationStates)
	pterm.Printfln("  Unreadable:          %d", res.Unreadable)
	pterm.Printfln("  New patients/studies/series: %d/%d/%d", res.Patients, res.Studies, res.Series)
	pterm.Printfln("  Transactions:        %d", res.Flushes)
	pterm.Printfln("  Time:                %s", res.EndTime.Sub(res.StartTime).Round(time.Millisecond))
}

func runIxWatch(cmd *cobra.Command, args []string) error {
	ix, err := openIndex(cmd, false)
	if err != nil {
		return err
	}
	defer ix.Close()

	importer, recurse, err := newImporter(cmd, ix)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	useJSON := display.ShouldOutputJSON(cmd)
	if skip, _ := cmd.Flags().GetBool("skip-existing"); !skip {
		res, err := importer.ImportDirectory(ctx, args[0], recurse)
		if err != nil {
			return err
		}
		if !useJSON {
			printImportResult(res)
		}
	}

	debounce := time.Duration(ix.cfg.Import.WatchDebounceMS) * time.Millisecond
	if d, _ := cmd.Flags().GetDuration("debounce"); d > 0 {
		debounce = d
	}

	w := dicomdir.NewWatcher(importer, debounce, logger.ComponentLogger("ix"))
	enc := json.NewEncoder(cmd.OutOrStdout())
	w.OnBatch = func(b dicomdir.BatchResult, err error) {
		switch {
		case useJSON:
			enc.Encode(b)
		case err != nil:
			pterm.Error.Printfln("Batch of %d files failed: %v", b.Files, err)
		default:
			pterm.Info.Printfln("%s %d files, %d stored, %d already indexed",
				sym.IX, b.Files, b.Flush.Stored, b.Flush.Existing)
		}
	}

	if !useJSON {
		pterm.Info.Printfln("Watching %s (Ctrl+C to stop)", args[0])
	}
	return w.Watch(ctx, args[0], recurse)
}
