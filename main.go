// =============================================================================
// Landed Cost Calculator - Main Entry Point
// =============================================================================
//
// USAGE:
//   landedcost process    - Process every invoice in the input directory
//   landedcost inspect    - Parse one invoice and print the result
//   landedcost validate   - Validate configuration and seller profiles
//   landedcost version    - Display the application version
//
// ARCHITECTURE:
//   cmd/                  : CLI commands (Cobra) and the batch driver
//   internal/textsource   : PDF and text loading
//   internal/currency     : currency detection, amount parsing, conversion
//   internal/header       : order header extraction
//   internal/items        : item section scanning and field parsing
//   internal/overhead     : overhead distribution and reconciliation
//   internal/converter    : per-document pipeline and record assembly
//   internal/csvwriter    : CSV sink
//   internal/xlsxwriter   : Excel sink
//   pkg/utils             : file discovery, archiving, run logs
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/invoice-landed-cost/cmd"
)

func main() {
	cmd.Execute()
}
