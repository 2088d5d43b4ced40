// =============================================================================
// Cattle Text - Parse Command
// =============================================================================
//
// This file defines the 'parse' command, the main command of the tool. It
// turns each capture into a metrics document.
//
// COMMAND USAGE:
//   cattletext parse [flags] <capture>...
//
// FLAGS:
//   --output   : Directory for the documents (overrides output_dir)
//   --tables   : Parser tables file (overrides tables_file)
//   --xlsx     : Also write an XLSX workbook per document
//   --dry-run  : Parse and report without writing anything
//   --force    : Write even when the data is unchanged
//
// PROCESSING PIPELINE:
//   1. Load the parser tables and reject captures whose documents would
//      share an output path
//   2. For each capture (concurrently, up to max_concurrency):
//      a. Load and normalize the capture
//      b. Parse it into a dataset
//      c. Report empty regions and incomplete records
//      d. Archive the previous document and write the new one
//   3. Print a summary table
//   4. Write a failure log and prune old archives
//
// =============================================================================

package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mcmanusm/cattle-text/internal/config"
	"github.com/mcmanusm/cattle-text/internal/converter"
	"github.com/mcmanusm/cattle-text/internal/linesource"
	"github.com/mcmanusm/cattle-text/internal/validation"
	"github.com/mcmanusm/cattle-text/pkg/utils"
	"github.com/spf13/cobra"

	// Registers the .xlsx tables reader.
	_ "github.com/mcmanusm/cattle-text/internal/xlsxparser"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

// runFlags are the flags shared by the parse and templates commands.
type runFlags struct {
	outputDir  string
	tablesFile string
	xlsx       bool
	dryRun     bool
	force      bool
}

var parseFlags runFlags

// =============================================================================
// PARSE COMMAND DEFINITION
// =============================================================================

// parseCmd represents the 'parse' command.
var parseCmd = &cobra.Command{
	Use:   "parse <capture>...",
	Short: "Parse market report captures into metrics JSON",
	Long: `The parse command reads one or more captures of the cattle market report
and writes one metrics document per capture to the output directory.

A capture is either a text file (one value per line) or a .json file holding
the grid rows as an array of arrays of strings, where null marks an empty
cell. Use "-" to read a text capture from stdin.

Captures are processed concurrently. A failure in one capture does not stop
the others; failures are listed in a failure log in the output directory.

When a document already exists and its data is unchanged (ignoring
updated_at), nothing is written. Otherwise the existing document is copied to
the archive directory before it is replaced.`,
	Args: cobra.MinimumNArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		return runCaptures(converter.KindMetrics, args, parseFlags)
	},
}

func init() {
	rootCmd.AddCommand(parseCmd)
	addRunFlags(parseCmd, &parseFlags, true)
}

// addRunFlags registers the shared flags on cmd.
func addRunFlags(cmd *cobra.Command, flags *runFlags, withXLSX bool) {
	cmd.Flags().StringVarP(&flags.outputDir, "output", "o", "", "Directory for the output documents (overrides output_dir)")
	cmd.Flags().StringVar(&flags.tablesFile, "tables", "", "Parser tables file: .yaml, .json5 or .xlsx (overrides tables_file)")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Parse and report without writing output files")
	cmd.Flags().BoolVar(&flags.force, "force", false, "Write output even when the data is unchanged")
	if withXLSX {
		cmd.Flags().BoolVar(&flags.xlsx, "xlsx", false, "Also write an XLSX workbook next to each document")
	}
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// runCaptures processes every capture with one converter per capture.
func runCaptures(kind converter.Kind, captures []string, flags runFlags) error {
	startTime := time.Now()

	// =========================================================================
	// STEP 1: LOAD TABLES
	// =========================================================================

	tables, err := loadTables(flags.tablesFile)
	if err != nil {
		return err
	}

	cfg := *mainConfig
	if flags.outputDir != "" {
		cfg.OutputDir = flags.outputDir
	}

	captures = uniqueCaptures(captures)
	conflicts := outputConflicts(kind, &cfg, captures)

	if !flags.dryRun {
		if err := utils.NewFileManager(cfg.OutputDir, cfg.ArchiveDir).EnsureDirectories(); err != nil {
			return err
		}
	}

	// =========================================================================
	// STEP 2: PROCESS CAPTURES CONCURRENTLY
	// =========================================================================

	options := converter.Options{DryRun: flags.dryRun, Force: flags.force, XLSX: flags.xlsx}

	var wg sync.WaitGroup
	results := make(chan converter.Result, len(captures))
	sem := make(chan struct{}, cfg.MaxConcurrency)

	for _, capture := range captures {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			if err, ok := conflicts[path]; ok {
				results <- converter.Result{FilePath: path, Error: err}
				return
			}
			sem <- struct{}{}
			defer func() { <-sem }()

			results <- converter.New(path, kind, &cfg, tables, slog.Default()).WithOptions(options).Run()
		}(capture)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	// =========================================================================
	// STEP 3: COLLECT RESULTS
	// =========================================================================

	collected := make(map[string]converter.Result, len(captures))
	for result := range results {
		collected[result.FilePath] = result
	}

	ordered := make([]converter.Result, 0, len(captures))
	for _, capture := range captures {
		ordered = append(ordered, collected[capture])
	}

	// =========================================================================
	// STEP 4: PRINT SUMMARY
	// =========================================================================

	var failures []utils.FailureLogEntry
	for _, result := range ordered {
		if !result.Success {
			failures = append(failures, utils.FailureLogEntry{
				Timestamp:    time.Now(),
				Capture:      result.FilePath,
				ErrorType:    errorType(result.Error),
				ErrorMessage: result.Error.Error(),
			})
		}
	}

	renderSummary(kind, ordered)
	printWarnings(ordered)

	fmt.Println("\n=== Processing Complete ===")
	fmt.Printf("Total captures:  %d\n", len(ordered))
	fmt.Printf("Successful:      %d\n", len(ordered)-len(failures))
	fmt.Printf("Errors:          %d\n", len(failures))
	fmt.Printf("Time elapsed:    %s\n", time.Since(startTime).Round(time.Millisecond))

	// =========================================================================
	// STEP 5: FAILURE LOG AND ARCHIVE RETENTION
	// =========================================================================

	if len(failures) > 0 && !flags.dryRun {
		logPath, err := utils.WriteFailureLog(failures, cfg.OutputDir)
		if err != nil {
			slog.Error("failure log could not be written", "err", err)
		} else {
			fmt.Printf("\nErrors have been logged to %s\n", logPath)
		}
	}

	if !flags.dryRun {
		pruneArchives(&cfg)
	}

	if len(failures) > 0 {
		return fmt.Errorf("%d of %d capture(s) failed", len(failures), len(ordered))
	}
	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// renderSummary prints one table row per capture.
func renderSummary(kind converter.Kind, results []converter.Result) {
	t := newTable()

	if kind == converter.KindTemplates {
		t.AppendHeader(table.Row{"Capture", "Status", "Output", "Templates"})
	} else {
		t.AppendHeader(table.Row{"Capture", "Status", "Output", "National", "States", "Records", "Empty Regions"})
	}

	for _, r := range results {
		name := displayName(r.FilePath)
		if !r.Success {
			t.AppendRow(table.Row{name, "✗ failed", r.Error.Error()})
			continue
		}

		row := table.Row{name, status(r), r.OutputFile}
		if kind == converter.KindTemplates {
			row = append(row, r.Stats.Templates)
		} else {
			row = append(row,
				r.Report.National,
				len(r.Dataset.States),
				r.Stats.Records,
				strings.Join(r.Report.EmptyRegions, ", "),
			)
		}
		t.AppendRow(row)
	}

	t.Render()
}

// printWarnings lists the report warnings of every parsed capture.
func printWarnings(results []converter.Result) {
	for _, r := range results {
		if r.Report == nil {
			continue
		}
		warnings := r.Report.Warnings()
		if len(warnings) == 0 {
			continue
		}
		fmt.Printf("\n%s: %s\n", displayName(r.FilePath), validation.FormatIssues(warnings))
	}
}

// status describes a successful result.
func status(r converter.Result) string {
	switch {
	case r.DryRun:
		return "✓ dry run"
	case r.Skipped:
		return "✓ unchanged"
	default:
		return "✓ written"
	}
}

// errorType groups failures in the failure log.
func errorType(err error) string {
	var acqErr *linesource.AcquisitionError
	switch {
	case errors.As(err, &acqErr):
		return "acquisition"
	case errors.Is(err, converter.ErrOutputConflict):
		return "conflict"
	default:
		return "processing"
	}
}

// displayName returns the capture path as given, or "stdin".
func displayName(path string) string {
	if path == linesource.StdinPath {
		return "stdin"
	}
	return path
}

// uniqueCaptures drops repeated capture arguments.
func uniqueCaptures(captures []string) []string {
	seen := make(map[string]bool, len(captures))
	out := make([]string, 0, len(captures))
	for _, c := range captures {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

// outputConflicts finds captures whose documents resolve to the same output
// path, such as a/weekly.txt and b/weekly.json. Every capture in such a
// group fails; none of them is written.
func outputConflicts(kind converter.Kind, cfg *config.MainConfig, captures []string) map[string]error {
	byOutput := make(map[string][]string)
	var outputs []string
	for _, c := range captures {
		out := filepath.Clean(converter.OutputPath(kind, cfg, c))
		if _, ok := byOutput[out]; !ok {
			outputs = append(outputs, out)
		}
		byOutput[out] = append(byOutput[out], c)
	}

	conflicts := make(map[string]error)
	for _, out := range outputs {
		group := byOutput[out]
		if len(group) < 2 {
			continue
		}
		for _, c := range group {
			conflicts[c] = fmt.Errorf("%w: %s would be written by %s", converter.ErrOutputConflict, out, strings.Join(group, ", "))
		}
	}
	return conflicts
}

// pruneArchives removes archived documents older than the retention period.
func pruneArchives(cfg *config.MainConfig) {
	maxAge := time.Duration(cfg.ArchiveRetentionDays) * 24 * time.Hour
	removed, err := utils.NewFileManager(cfg.OutputDir, cfg.ArchiveDir).CleanOldArchives(maxAge)
	if err != nil {
		slog.Warn("old archives could not be pruned", "archive", cfg.ArchiveDir, "err", err)
		return
	}
	if removed > 0 {
		slog.Info("pruned old archives", "removed", removed, "retention_days", cfg.ArchiveRetentionDays)
	}
}
