// =============================================================================
// Cattle Text - Tables Command
// =============================================================================
//
// This file defines the 'tables' command. It loads the parser tables the same
// way the parse commands do, validates them and prints them, so a tables file
// can be checked before it is used on a capture.
//
// COMMAND USAGE:
//   cattletext tables [--tables <file>]
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mcmanusm/cattle-text/internal/classifier"
	"github.com/mcmanusm/cattle-text/internal/config"
	"github.com/spf13/cobra"
)

var tablesFile string

// tablesCmd represents the 'tables' command.
var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "Validate and print the effective parser tables",
	Long: `The tables command loads the built-in parser tables, overlays the tables
file (and its .local sibling) on top, validates the result and prints it.

Use it after editing a tables file: every problem is reported at once.`,
	Args: cobra.NoArgs,

	RunE: func(cmd *cobra.Command, args []string) error {
		tables, err := loadTables(tablesFile)
		if err != nil {
			return err
		}
		printTables(cmd.OutOrStdout(), tables)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tablesCmd)
	tablesCmd.Flags().StringVar(&tablesFile, "tables", "", "Parser tables file: .yaml, .json5 or .xlsx (overrides tables_file)")
}

// printTables renders every table.
func printTables(out io.Writer, tables config.Tables) {
	cls := classifier.New(tables)

	t := newTableTo(out)
	t.SetTitle("Regions")
	t.AppendHeader(table.Row{"Code", "Aliases"})
	for _, code := range tables.RegionCodes() {
		t.AppendRow(table.Row{code, strings.Join(tables.SortedAliases(code), ", ")})
	}
	t.Render()

	t = newTableTo(out)
	t.SetTitle("Categories")
	t.AppendHeader(table.Row{"#", "Category", "Stock Group"})
	for i, c := range tables.Categories {
		t.AppendRow(table.Row{i + 1, c, cls.StockGroup(c)})
	}
	t.Render()

	t = newTableTo(out)
	t.SetTitle("Fields")
	t.AppendHeader(table.Row{"Position", "Field"})
	for i, f := range tables.Fields {
		t.AppendRow(table.Row{i + 1, f})
	}
	t.Render()

	t = newTableTo(out)
	t.SetTitle("Junk")
	t.AppendHeader(table.Row{"Rule", "Text"})
	for _, e := range tables.Junk.Equals {
		t.AppendRow(table.Row{"equals", e})
	}
	for _, c := range tables.Junk.Contains {
		t.AppendRow(table.Row{"contains", fmt.Sprintf("%q", c)})
	}
	t.Render()
}

// newTable returns a rounded table writer on stdout.
func newTable() table.Writer {
	return newTableTo(os.Stdout)
}

func newTableTo(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleRounded)
	return t
}
