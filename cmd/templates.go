// =============================================================================
// Cattle Text - Templates Command
// =============================================================================
//
// This file defines the 'templates' command. It parses captures of the
// text-message page, where every row is a stock category followed by its
// $/head and c/kg text, into template documents.
//
// COMMAND USAGE:
//   cattletext templates [flags] <capture>...
//
// FLAGS:
//   --output   : Directory for the documents (overrides output_dir)
//   --tables   : Parser tables file (overrides tables_file)
//   --dry-run  : Parse and report without writing anything
//   --force    : Write even when the data is unchanged
//
// =============================================================================

package cmd

import (
	"github.com/mcmanusm/cattle-text/internal/converter"
	"github.com/spf13/cobra"
)

var templatesFlags runFlags

// templatesCmd represents the 'templates' command.
var templatesCmd = &cobra.Command{
	Use:   "templates <capture>...",
	Short: "Parse text-message page captures into template JSON",
	Long: `The templates command reads captures of the text-message page and writes
one template document per capture, named after templates_name_format.

Each template row is three consecutive lines: the stock category, the $/head
text (which contains "$") and the c/kg text (which contains "c"). Lines that
do not start such a row are skipped.`,
	Args: cobra.MinimumNArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		return runCaptures(converter.KindTemplates, args, templatesFlags)
	},
}

func init() {
	rootCmd.AddCommand(templatesCmd)
	addRunFlags(templatesCmd, &templatesFlags, false)
}
