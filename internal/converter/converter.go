// =============================================================================
// Cattle Text - Converter Module
// =============================================================================
//
// This module runs the whole pipeline for a single capture, from loading the
// file to writing the output documents.
//
// CONVERSION PIPELINE:
//   1. Acquire the capture (text dump or grid rows)
//   2. Normalize it into the cleaned line sequence
//   3. Parse the lines (metrics dataset or text-message templates)
//   4. Report counts and empty canonical regions
//   5. Skip the write when the data matches the previous document
//   6. Archive the previous document
//   7. Write the JSON document
//   8. Write the XLSX workbook (metrics, when enabled)
//
// CONCURRENCY:
//   Each capture is processed by its own Converter, usually in its own
//   goroutine. Converters share nothing mutable; the parser components they
//   build from the tables are immutable.
//
// =============================================================================

package converter

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mcmanusm/cattle-text/internal/assembler"
	"github.com/mcmanusm/cattle-text/internal/classifier"
	"github.com/mcmanusm/cattle-text/internal/config"
	"github.com/mcmanusm/cattle-text/internal/linesource"
	"github.com/mcmanusm/cattle-text/internal/normalizer"
	"github.com/mcmanusm/cattle-text/internal/templates"
	"github.com/mcmanusm/cattle-text/internal/types"
	"github.com/mcmanusm/cattle-text/internal/validation"
	"github.com/mcmanusm/cattle-text/internal/writer"
	"github.com/mcmanusm/cattle-text/pkg/utils"
)

// ErrOutputConflict is reported for captures whose documents would be
// written to the same path.
var ErrOutputConflict = errors.New("output conflict")

// Kind selects which document a capture is parsed into.
type Kind int

const (
	// KindMetrics parses the price table into a metrics dataset.
	KindMetrics Kind = iota
	// KindTemplates parses the text-message page into a template set.
	KindTemplates
)

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	if k == KindTemplates {
		return "templates"
	}
	return "metrics"
}

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of processing a single capture.
type Result struct {
	// RunID identifies this run in the logs.
	RunID string

	// FilePath is the capture that was processed.
	FilePath string

	// OutputFile is the JSON document path. It is set for skipped and
	// dry runs too, so callers can show where output would go.
	OutputFile string

	// XLSXFile is the workbook path, when one was written.
	XLSXFile string

	// ArchivedFile is the archived copy of the previous document, if any.
	ArchivedFile string

	// Skipped is true when the data matched the previous document and
	// nothing was written.
	Skipped bool

	// DryRun is true when nothing was written because of --dry-run.
	DryRun bool

	// Success indicates whether the processing was successful.
	Success bool

	// Error contains the error if processing failed.
	Error error

	// Dataset is the parsed metrics dataset (KindMetrics).
	Dataset *types.Dataset

	// Templates is the parsed template set (KindTemplates).
	Templates *types.TemplateSet

	// Report is the post-parse report (KindMetrics).
	Report *validation.Report

	// Stats contains processing statistics.
	Stats ProcessingStats
}

// ProcessingStats contains statistics about the processing.
type ProcessingStats struct {
	// LinesRead is the number of raw lines (or non-nil cells) in the capture.
	LinesRead int

	// LinesKept is the number of lines left after normalization.
	LinesKept int

	// Records is the number of metric records parsed.
	Records int

	// Regions is the number of regions with at least one record.
	Regions int

	// Templates is the number of template rows parsed.
	Templates int

	// ProcessingTime is the time taken to process the capture.
	ProcessingTime time.Duration
}

// Options are per-invocation switches set from the command line.
type Options struct {
	// DryRun parses and reports without writing anything.
	DryRun bool

	// Force writes even when the data is unchanged.
	Force bool

	// XLSX writes a workbook next to the metrics document.
	XLSX bool
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Converter handles the processing of a single capture.
type Converter struct {
	input      string
	kind       Kind
	mainConfig *config.MainConfig
	options    Options

	normalizer *normalizer.Normalizer
	classifier *classifier.Classifier
	assembler  *assembler.Assembler
	files      *utils.FileManager

	logger *slog.Logger
	now    func() time.Time
}

// =============================================================================
// CONSTRUCTOR
// =============================================================================

// New creates a new Converter instance.
//
// PARAMETERS:
//   - input: The capture path, or "-" for stdin.
//   - kind: The document to produce.
//   - mainConfig: The main application configuration.
//   - tables: The parser tables, already validated.
//   - logger: The structured logger. Nil uses slog.Default().
//
// RETURNS:
//   - A new Converter instance.
func New(input string, kind Kind, mainConfig *config.MainConfig, tables config.Tables, logger *slog.Logger) *Converter {
	if logger == nil {
		logger = slog.Default()
	}

	norm := normalizer.New(tables.Junk)
	cls := classifier.New(tables)

	files := utils.NewFileManager(mainConfig.OutputDir, mainConfig.ArchiveDir)
	files.UseTimestampSubdirs = mainConfig.ArchiveSubdirs

	return &Converter{
		input:      input,
		kind:       kind,
		mainConfig: mainConfig,
		normalizer: norm,
		classifier: cls,
		assembler:  assembler.New(cls, norm.Junk(), tables.Fields),
		files:      files,
		logger:     logger,
		now:        time.Now,
	}
}

// WithOptions sets the per-invocation options.
func (c *Converter) WithOptions(options Options) *Converter {
	c.options = options
	return c
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Run executes the pipeline for the capture.
//
// RETURNS:
//   - A Result struct containing the outcome of the processing. Failures
//     are reported in Result.Error; Run never panics on bad content.
func (c *Converter) Run() (result Result) {
	startTime := time.Now()
	result = Result{
		RunID:    uuid.New().String(),
		FilePath: c.input,
	}
	log := c.logger.With("run_id", result.RunID, "input", c.input, "kind", c.kind.String())

	defer func() {
		result.Stats.ProcessingTime = time.Since(startTime)
	}()

	// =========================================================================
	// STEP 1: ACQUIRE CAPTURE
	// =========================================================================

	log.Debug("loading capture")

	capture, err := linesource.Load(c.input)
	if err != nil {
		result.Error = err
		log.Error("capture could not be loaded", "err", err)
		return result
	}

	// =========================================================================
	// STEP 2: NORMALIZE
	// =========================================================================

	var lines []string
	if capture.IsRows() {
		result.Stats.LinesRead = countCells(capture.Rows)
		lines = c.normalizer.Rows(capture.Rows)
	} else {
		result.Stats.LinesRead = normalizer.Count(capture.Text)
		lines = c.normalizer.Text(capture.Text)
	}
	result.Stats.LinesKept = len(lines)

	log.Debug("normalized capture", "lines_read", result.Stats.LinesRead, "lines_kept", result.Stats.LinesKept)

	// =========================================================================
	// STEP 3: PARSE
	// =========================================================================

	updatedAt := c.now().UTC().Truncate(time.Second)

	var document any

	switch c.kind {
	case KindTemplates:
		set := &types.TemplateSet{UpdatedAt: updatedAt, Templates: templates.Parse(lines)}
		result.Templates = set
		result.Stats.Templates = len(set.Templates)
		document = set

		log.Info("parsed templates", "templates", result.Stats.Templates)
		if result.Stats.Templates == 0 {
			log.Warn("no template rows found in capture")
		}

	default:
		ds, err := c.assembler.Assemble(lines)
		if err != nil {
			result.Error = fmt.Errorf("failed to parse capture: %w", err)
			return result
		}
		ds.UpdatedAt = updatedAt
		result.Dataset = ds
		result.Stats.Records = ds.RecordCount()
		result.Stats.Regions = len(ds.States)
		if len(ds.National) > 0 {
			result.Stats.Regions++
		}
		document = ds

		// =====================================================================
		// STEP 4: REPORT
		// =====================================================================

		result.Report = validation.Build(ds, c.classifier)
		c.logReport(log, result.Report)
	}

	// =========================================================================
	// STEP 5: UNCHANGED CHECK
	// =========================================================================

	result.OutputFile = OutputPath(c.kind, c.mainConfig, capture.Source)
	wantXLSX := c.kind == KindMetrics && (c.options.XLSX || c.mainConfig.XLSXOutput)

	if !c.options.Force && !c.mainConfig.WriteUnchanged {
		previous, err := c.readPrevious(result.OutputFile)
		switch {
		case err == nil && writer.Unchanged(previous, document):
			log.Info("data unchanged, skipping write", "output", result.OutputFile)
			result.Skipped = true

			// A workbook requested after the document was written is still due.
			if wantXLSX && !c.options.DryRun && !utils.FileExists(utils.XLSXPath(result.OutputFile)) {
				if err := c.writeWorkbook(log, &result); err != nil {
					result.Error = err
					return result
				}
			}
			result.Success = true
			return result
		case err == nil:
			log.Debug("data changed", "diff", writer.Diff(previous, document))
		case !errors.Is(err, fs.ErrNotExist):
			log.Warn("previous output could not be read, overwriting", "output", result.OutputFile, "err", err)
		}
	}

	if c.options.DryRun {
		log.Info("dry run, nothing written", "output", result.OutputFile)
		result.DryRun = true
		result.Success = true
		return result
	}

	// =========================================================================
	// STEP 6: ARCHIVE PREVIOUS OUTPUT
	// =========================================================================

	archived, err := c.files.ArchiveOutputFile(result.OutputFile)
	if err != nil {
		result.Error = fmt.Errorf("failed to archive previous output: %w", err)
		return result
	}
	if archived != "" {
		result.ArchivedFile = archived
		log.Debug("archived previous output", "archive", archived)
	}

	// =========================================================================
	// STEP 7: WRITE JSON
	// =========================================================================

	if err := writer.WriteJSON(result.OutputFile, document); err != nil {
		result.Error = fmt.Errorf("failed to write output: %w", err)
		return result
	}
	log.Info("wrote output", "output", result.OutputFile)

	// =========================================================================
	// STEP 8: WRITE XLSX
	// =========================================================================

	if wantXLSX {
		if err := c.writeWorkbook(log, &result); err != nil {
			result.Error = err
			return result
		}
	}

	result.Success = true
	return result
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// OutputPath returns where the document of the given kind is written for
// the capture at input.
func OutputPath(kind Kind, mainConfig *config.MainConfig, input string) string {
	format := mainConfig.OutputNameFormat
	if kind == KindTemplates {
		format = mainConfig.TemplatesNameFormat
	}
	files := utils.NewFileManager(mainConfig.OutputDir, mainConfig.ArchiveDir)
	return files.OutputPath(format, linesource.CaptureName(input))
}

// readPrevious loads the document currently at path.
func (c *Converter) readPrevious(path string) (any, error) {
	if c.kind == KindTemplates {
		return writer.ReadTemplateSet(path)
	}
	return writer.ReadDataset(path)
}

// writeWorkbook writes the XLSX workbook next to the JSON document.
func (c *Converter) writeWorkbook(log *slog.Logger, result *Result) error {
	xlsxPath := utils.XLSXPath(result.OutputFile)
	if err := writer.ExportXLSX(xlsxPath, result.Dataset, c.assembler.Fields()); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	result.XLSXFile = xlsxPath
	log.Info("wrote workbook", "output", xlsxPath)
	return nil
}

// logReport logs the counts and flags every empty canonical region.
func (c *Converter) logReport(log *slog.Logger, report *validation.Report) {
	attrs := []any{"national", report.National, "total_categories", report.TotalCategories}
	for _, s := range report.States {
		attrs = append(attrs, s.Region, s.Count)
	}
	log.Info("parsed dataset", attrs...)

	for _, issue := range report.Issues {
		switch issue.Severity {
		case validation.SeverityWarning:
			log.Warn(issue.Message, "region", issue.Region)
		default:
			log.Debug(issue.Message, "region", issue.Region, "category", issue.Category)
		}
	}
}

// countCells counts the non-nil cells of grid rows.
func countCells(rows [][]*string) int {
	n := 0
	for _, row := range rows {
		for _, cell := range row {
			if cell != nil {
				n++
			}
		}
	}
	return n
}
