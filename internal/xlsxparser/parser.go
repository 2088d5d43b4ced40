// =============================================================================
// Cattle Text - XLSX Tables Parser
// =============================================================================
//
// The parser tables can be maintained in a workbook, which is how the people
// tuning them against real captures prefer to edit them. Each table is one
// sheet; row 1 of every sheet is a header and is skipped.
//
//   | Sheet       | Column A         | Column B   | Column C...      |
//   |-------------|------------------|------------|------------------|
//   | Regions     | canonical code   | alias      | more aliases     |
//   | Categories  | category name    |            |                  |
//   | StockGroups | name prefix      | group      |                  |
//   | Junk        | equals|contains  | text       |                  |
//   | Fields      | field name       |            |                  |
//
// A StockGroups row with an empty prefix sets the default group.
// A missing sheet leaves that table unset, so it keeps its default when the
// workbook is overlaid onto the built-in tables.
//
// Importing this package registers the ".xlsx" tables reader with config.
//
// =============================================================================

package xlsxparser

import (
	"fmt"
	"strings"

	"github.com/mcmanusm/cattle-text/internal/config"
	"github.com/xuri/excelize/v2"
)

// Sheet names.
const (
	SheetRegions     = "Regions"
	SheetCategories  = "Categories"
	SheetStockGroups = "StockGroups"
	SheetJunk        = "Junk"
	SheetFields      = "Fields"
)

// dataStartRow is the zero-based index of the first data row.
const dataStartRow = 1

func init() {
	config.RegisterTablesReader(".xlsx", ParseTables)
}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// ParseTables reads parser tables from an XLSX workbook.
//
// PARAMETERS:
//   - path: The path to the workbook.
//
// RETURNS:
//   - The tables found in the workbook. Tables without a sheet are unset.
//   - An error if the workbook cannot be read or a row is malformed.
func ParseTables(path string) (config.Tables, error) {
	var tables config.Tables

	f, err := excelize.OpenFile(path)
	if err != nil {
		return tables, fmt.Errorf("failed to open tables workbook: %w", err)
	}
	defer f.Close()

	sheets := make(map[string]bool)
	for _, name := range f.GetSheetList() {
		sheets[name] = true
	}

	if sheets[SheetRegions] {
		rows, err := dataRows(f, SheetRegions)
		if err != nil {
			return tables, err
		}
		for _, row := range rows {
			entry := config.RegionEntry{Code: row[0]}
			for i := 1; i < len(row); i++ {
				if alias := cell(row, i); alias != "" {
					entry.Aliases = append(entry.Aliases, alias)
				}
			}
			tables.Regions = append(tables.Regions, entry)
		}
	}

	if sheets[SheetCategories] {
		rows, err := dataRows(f, SheetCategories)
		if err != nil {
			return tables, err
		}
		tables.Categories = firstColumn(rows)
	}

	if sheets[SheetFields] {
		rows, err := dataRows(f, SheetFields)
		if err != nil {
			return tables, err
		}
		tables.Fields = firstColumn(rows)
	}

	if sheets[SheetStockGroups] {
		rows, err := dataRows(f, SheetStockGroups)
		if err != nil {
			return tables, err
		}
		for _, row := range rows {
			group := cell(row, 1)
			if group == "" {
				return tables, fmt.Errorf("sheet %s: prefix %q has no group", SheetStockGroups, row[0])
			}
			if row[0] == "" {
				tables.StockGroups.Default = group
				continue
			}
			tables.StockGroups.Rules = append(tables.StockGroups.Rules, config.StockGroupRule{Prefix: row[0], Group: group})
		}
	}

	if sheets[SheetJunk] {
		rows, err := dataRows(f, SheetJunk)
		if err != nil {
			return tables, err
		}
		for _, row := range rows {
			// Contains entries keep their spacing ("Date ").
			text := rawCell(row, 1)
			switch strings.ToLower(row[0]) {
			case "equals":
				tables.Junk.Equals = append(tables.Junk.Equals, text)
			case "contains":
				tables.Junk.Contains = append(tables.Junk.Contains, text)
			default:
				return tables, fmt.Errorf("sheet %s: unknown rule kind %q (want equals or contains)", SheetJunk, row[0])
			}
		}
	}

	return tables, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// dataRows returns the non-empty rows after the header. Column A of every
// row is trimmed; other cells are trimmed by cell.
func dataRows(f *excelize.File, sheet string) ([][]string, error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}

	var out [][]string
	for i := dataStartRow; i < len(rows); i++ {
		row := rows[i]
		if isRowEmpty(row) {
			continue
		}
		row[0] = strings.TrimSpace(row[0])
		out = append(out, row)
	}
	return out, nil
}

// firstColumn returns column A of rows, skipping blanks.
func firstColumn(rows [][]string) []string {
	var out []string
	for _, row := range rows {
		if row[0] != "" {
			out = append(out, row[0])
		}
	}
	return out
}

// cell returns the trimmed value at index, or "" when the row is shorter.
func cell(row []string, index int) string {
	return strings.TrimSpace(rawCell(row, index))
}

func rawCell(row []string, index int) string {
	if index >= len(row) {
		return ""
	}
	return row[index]
}

// isRowEmpty checks if all cells in a row are empty.
func isRowEmpty(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
