// =============================================================================
// Cattle Text - XLSX Export
// =============================================================================
//
// Writes a metrics dataset as a workbook for people who read the prices in
// a spreadsheet. Layout:
//
//   - one sheet per region: "National" first, then each state in output order
//   - row 1: Category | Stock Group | <metric fields in table order>
//   - one row per record; null fields are left blank
//
// =============================================================================

package writer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mcmanusm/cattle-text/internal/config"
	"github.com/mcmanusm/cattle-text/internal/types"
	"github.com/xuri/excelize/v2"
)

// XLSXHeader returns the header row written to every sheet.
func XLSXHeader(fields []string) []string {
	header := make([]string, 0, len(fields)+2)
	header = append(header, "Category", "Stock Group")
	return append(header, fields...)
}

// ExportXLSX writes ds to an .xlsx workbook at path.
//
// PARAMETERS:
//   - path: The workbook path.
//   - ds: The dataset to export.
//   - fields: The metric field order, used for the columns.
//
// RETURNS:
//   - An error if the workbook cannot be built or saved.
func ExportXLSX(path string, ds *types.Dataset, fields []string) error {
	f := excelize.NewFile()
	defer f.Close()

	// The first sheet of a new workbook is renamed rather than added.
	if err := f.SetSheetName(f.GetSheetName(0), config.NationalRegion); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", config.NationalRegion, err)
	}
	if err := writeSheet(f, config.NationalRegion, ds.National, fields); err != nil {
		return err
	}

	for _, bucket := range ds.States {
		if _, err := f.NewSheet(bucket.State); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", bucket.State, err)
		}
		if err := writeSheet(f, bucket.State, bucket.Categories, fields); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

// writeSheet streams the header and one row per record into sheet.
func writeSheet(f *excelize.File, sheet string, records []types.MetricRecord, fields []string) error {
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("failed to open sheet %s: %w", sheet, err)
	}

	// Column widths must be set before any row is written.
	if err := sw.SetColWidth(1, 1, 24); err != nil {
		return err
	}
	if err := sw.SetColWidth(2, len(fields)+2, 16); err != nil {
		return err
	}

	header := XLSXHeader(fields)
	headerRow := make([]interface{}, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	if err := sw.SetRow("A1", headerRow); err != nil {
		return fmt.Errorf("failed to write header to sheet %s: %w", sheet, err)
	}

	for i, rec := range records {
		row := make([]interface{}, 0, len(fields)+2)
		row = append(row, rec.Category, rec.StockGroup)
		for _, name := range fields {
			v, _ := rec.Value(name)
			if v == nil {
				row = append(row, "")
				continue
			}
			row = append(row, *v)
		}

		cell, _ := excelize.CoordinatesToCellName(1, i+2) // A2, A3, ...
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("failed to write row %d to sheet %s: %w", i+2, sheet, err)
		}
	}

	return sw.Flush()
}
