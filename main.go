// =============================================================================
// Cattle Text - Main Entry Point
// =============================================================================
//
// This is the main entry point for the cattletext CLI. It delegates command
// execution to the cmd package.
//
// USAGE:
//   cattletext parse <capture>...      - Parse captures into metrics JSON
//   cattletext templates <capture>...  - Parse text-message page captures
//   cattletext tables                  - Validate and print the parser tables
//   cattletext version                 - Display the application version
//
// ARCHITECTURE:
//   - cmd/           : CLI command definitions (Cobra)
//   - internal/      : Parsing pipeline and output writers
//   - pkg/           : Shared file utilities
//
// =============================================================================

package main

import (
	"github.com/mcmanusm/cattle-text/cmd"
)

func main() {
	cmd.Execute()
}
