// =============================================================================
// Cattle Text - Version Command
// =============================================================================
//
// COMMAND USAGE:
//   cattletext version
//
// OUTPUT:
//   Cattle Text
//   Version:    0.3.0
//   Build Date: 2025-05-06
//   Go Version: go1.24.11
//
// =============================================================================

package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// These variables are set at build time using ldflags:
//
//	go build -ldflags "-X 'github.com/mcmanusm/cattle-text/cmd.Version=0.3.0' -X 'github.com/mcmanusm/cattle-text/cmd.BuildDate=2025-05-06'"

// Version is the application version.
var Version = "dev"

// BuildDate is the date the application was built.
var BuildDate = "unknown"

// versionCmd represents the 'version' command.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display the application version",
	Long:  `Display the application version, build date, and Go runtime version.`,
	// The version never needs the config file.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "Cattle Text")
		fmt.Fprintf(cmd.OutOrStdout(), "Version:    %s\n", Version)
		fmt.Fprintf(cmd.OutOrStdout(), "Build Date: %s\n", BuildDate)
		fmt.Fprintf(cmd.OutOrStdout(), "Go Version: %s\n", runtime.Version())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
