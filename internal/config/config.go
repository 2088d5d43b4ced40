// =============================================================================
// Cattle Text - Configuration Module
// =============================================================================
//
// This module loads the application configuration (config.yaml) and the
// parser tables (tables.go). The main configuration only controls where
// captures are written and how the host behaves; everything the parser
// matches against lives in the tables.
//
// CONFIGURATION SOURCES (lowest to highest priority):
//   1. Built-in defaults (applyMainConfigDefaults)
//   2. config.yaml (or the file named by --config)
//   3. CATTLETEXT_* environment variables, optionally from a .env file
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
type MainConfig struct {
	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// OutputDir is the directory where parsed JSON documents are written.
	// Default: "./output"
	OutputDir string `yaml:"output_dir"`

	// OutputNameFormat names the metrics document written for a capture.
	// Placeholders:
	//   {original}  - Capture file name without extension
	//   {date}      - Current date (YYYYMMDD)
	//   {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
	//   {uuid}      - A random UUID
	// Default: "{original}.json"
	OutputNameFormat string `yaml:"output_name_format"`

	// TemplatesNameFormat names the text-message templates document.
	// Default: "{original}-templates.json"
	TemplatesNameFormat string `yaml:"templates_name_format"`

	// XLSXOutput also writes an .xlsx workbook next to every metrics document.
	XLSXOutput bool `yaml:"xlsx_output"`

	// WriteUnchanged rewrites the output even when the parsed data matches
	// the previous document (only updated_at would differ).
	WriteUnchanged bool `yaml:"write_unchanged"`

	// =========================================================================
	// ARCHIVE SETTINGS
	// =========================================================================

	// ArchiveDir receives a copy of the previous output before it is replaced.
	// Default: "./output_archive"
	ArchiveDir string `yaml:"archive_dir"`

	// ArchiveSubdirs stores archived documents under YYYY/MM/DD.
	ArchiveSubdirs bool `yaml:"archive_subdirs"`

	// ArchiveRetentionDays removes archived documents older than this.
	// 0 uses the default of 30 days, a negative value keeps everything.
	ArchiveRetentionDays int `yaml:"archive_retention_days"`

	// =========================================================================
	// PARSER SETTINGS
	// =========================================================================

	// TablesFile overrides the built-in parser tables.
	// Supported formats: .yaml, .yml, .json, .json5, .xlsx
	TablesFile string `yaml:"tables_file"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// MaxConcurrency is the maximum number of captures parsed at once.
	// Default: 4
	MaxConcurrency int `yaml:"max_concurrency"`
}

// DefaultRetentionDays is used when archive_retention_days is unset.
const DefaultRetentionDays = 30

// validLogLevels lists the accepted log_level values.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// LoadMainConfig loads the main configuration from a YAML file.
//
// A missing file is not an error: the defaults are returned instead, so the
// tool works out of the box in an empty directory.
//
// PARAMETERS:
//   - configPath: The path to the main configuration file.
//
// RETURNS:
//   - A pointer to the MainConfig struct.
//   - An error if the file exists but cannot be read, parsed or validated.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	var config MainConfig

	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// Defaults only.
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := ApplyEnvOverrides(&config); err != nil {
		return nil, fmt.Errorf("invalid environment override: %w", err)
	}

	applyMainConfigDefaults(&config)

	if err := validateMainConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// ApplyEnvOverrides copies CATTLETEXT_* environment variables onto the config.
//
// Recognised variables:
//   CATTLETEXT_OUTPUT_DIR, CATTLETEXT_ARCHIVE_DIR, CATTLETEXT_TABLES_FILE,
//   CATTLETEXT_LOG_LEVEL, CATTLETEXT_MAX_CONCURRENCY
func ApplyEnvOverrides(config *MainConfig) error {
	if v := os.Getenv("CATTLETEXT_OUTPUT_DIR"); v != "" {
		config.OutputDir = v
	}
	if v := os.Getenv("CATTLETEXT_ARCHIVE_DIR"); v != "" {
		config.ArchiveDir = v
	}
	if v := os.Getenv("CATTLETEXT_TABLES_FILE"); v != "" {
		config.TablesFile = v
	}
	if v := os.Getenv("CATTLETEXT_LOG_LEVEL"); v != "" {
		config.LogLevel = v
	}
	if v := os.Getenv("CATTLETEXT_MAX_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CATTLETEXT_MAX_CONCURRENCY: %w", err)
		}
		config.MaxConcurrency = n
	}
	return nil
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.OutputDir == "" {
		config.OutputDir = "./output"
	}
	if config.OutputNameFormat == "" {
		config.OutputNameFormat = "{original}.json"
	}
	if config.TemplatesNameFormat == "" {
		config.TemplatesNameFormat = "{original}-templates.json"
	}
	if config.ArchiveDir == "" {
		config.ArchiveDir = "./output_archive"
	}
	if config.ArchiveRetentionDays == 0 {
		config.ArchiveRetentionDays = DefaultRetentionDays
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.MaxConcurrency == 0 {
		config.MaxConcurrency = 4
	}
}

// validateMainConfig validates the main configuration.
func validateMainConfig(config *MainConfig) error {
	config.LogLevel = strings.ToLower(config.LogLevel)
	if !validLogLevels[config.LogLevel] {
		return fmt.Errorf("unknown log_level %q", config.LogLevel)
	}
	if config.MaxConcurrency < 1 {
		return fmt.Errorf("max_concurrency must be at least 1, got %d", config.MaxConcurrency)
	}
	if strings.ContainsAny(config.OutputNameFormat, `/\`) {
		return fmt.Errorf("output_name_format must be a file name, got %q", config.OutputNameFormat)
	}
	if strings.ContainsAny(config.TemplatesNameFormat, `/\`) {
		return fmt.Errorf("templates_name_format must be a file name, got %q", config.TemplatesNameFormat)
	}
	return nil
}
