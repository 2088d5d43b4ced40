// =============================================================================
// Cattle Text - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. Every other command
// is attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (cattletext)
//   ├── parseCmd     (cattletext parse)
//   ├── templatesCmd (cattletext templates)
//   ├── tablesCmd    (cattletext tables)
//   └── versionCmd   (cattletext version)
//
// CONFIGURATION:
//   Before any subcommand runs, the root command:
//   1. Loads a .env file from the working directory, if there is one
//   2. Loads the main configuration (config file, then CATTLETEXT_* vars)
//   3. Sets up the structured logger on stderr
//
// =============================================================================

package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/mcmanusm/cattle-text/internal/config"
	"github.com/spf13/cobra"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// verbose forces debug logging regardless of log_level.
var verbose bool

// mainConfig is loaded once before any subcommand runs.
var mainConfig *config.MainConfig

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "cattletext",
	Short: "Cattle Text - Turn Power BI cattle market captures into JSON",

	Long: `Cattle Text parses the flattened text (or grid rows) captured from the
Power BI cattle market report into structured JSON documents.

The capture is a single column of lines: region labels, category names and
the metric values that follow each category. The parser walks that column,
assigns every category to the region above it, and writes one document per
capture:

  {"updated_at": "...", "national": [...], "states": [{"state": "NSW", ...}]}

Key Features:
  - Vocabulary (regions, categories, junk lines, fields) kept in data tables
  - Text and JSON grid-row captures, UTF-8 or UTF-16
  - Writes are skipped when the data has not changed
  - Previous documents are archived before being replaced
  - Optional XLSX workbook next to every metrics document

Example Usage:
  cattletext parse capture.txt                  # Write output/capture.json
  cattletext parse --xlsx national.txt nsw.json # Several captures at once
  cat capture.txt | cattletext parse -          # Read the capture from stdin
  cattletext templates sms.txt                  # Parse the text-message page
  cattletext tables --tables tables.yaml        # Check a tables file`,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute adds all child commands to the root command and runs it.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true

	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file (default is config.yaml)",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable verbose output for debugging",
	)
}

// initConfig loads the environment, the main configuration and the logger.
func initConfig() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg, err := config.LoadMainConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load main config: %w", err)
	}
	mainConfig = cfg

	slog.SetDefault(newLogger(cfg.LogLevel, verbose))
	return nil
}

// newLogger builds the stderr text logger at the configured level.
func newLogger(level string, verbose bool) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	if verbose {
		lvl = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// loadTables loads the parser tables. The --tables flag wins over the
// tables_file setting; with neither, the built-in tables are used.
func loadTables(flagPath string) (config.Tables, error) {
	path := flagPath
	if path == "" {
		path = mainConfig.TablesFile
	}

	tables, err := config.LoadTables(path)
	if err != nil {
		return config.Tables{}, fmt.Errorf("failed to load tables: %w", err)
	}
	if path != "" {
		slog.Debug("loaded tables", "path", path)
	}
	return tables, nil
}
