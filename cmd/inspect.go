// =============================================================================
// Landed Cost Calculator - Inspect Command
// =============================================================================
//
// This file defines the 'inspect' command, which parses one invoice and
// prints everything the parser found, without writing any files.
//
// COMMAND USAGE:
//   landedcost inspect <file> [--csv]
//
// OUTPUT:
//   YAML: detected currency, header, items, overhead distribution and
//   diagnostics. With --csv, the output records as CSV instead.
//
// A missing config.yaml is fine here; the defaults apply.
//
// =============================================================================

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/invoice-landed-cost/internal/config"
	"github.com/ginjaninja78/invoice-landed-cost/internal/converter"
	"github.com/ginjaninja78/invoice-landed-cost/internal/csvwriter"
	"github.com/ginjaninja78/invoice-landed-cost/internal/logging"
)

// inspectCSV prints records as CSV instead of the YAML dump.
var inspectCSV bool

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Parse one invoice and print the result",
	Long: `The inspect command parses a single invoice (.pdf or .txt) and prints
the parse result as YAML: currency detection, order header, items, the
overhead distribution and any diagnostics. Nothing is written or archived.

Use it to check how a new seller's invoices are read before adding them
to a batch, or to tune a seller profile.`,
	Args: cobra.ExactArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig(true)
		if err != nil {
			return err
		}

		level := "warn"
		if verbose {
			level = "debug"
		}
		logger, err := logging.New(level, "")
		if err != nil {
			return err
		}
		defer logger.Sync()

		profiles, err := config.LoadProfiles(cfg.ProfilesDir)
		if err != nil {
			return fmt.Errorf("failed to load profiles: %w", err)
		}

		path := args[0]
		parser, profile := config.ParserFor(cfg, profiles, path)
		result := converter.New(path, converter.NewOptions(cfg, parser)).
			WithLogger(logger).
			WithProfile(profile).
			Run(cmd.Context())
		if !result.Success {
			return result.Error
		}

		out := cmd.OutOrStdout()
		if inspectCSV {
			comma, err := config.Delimiter(cfg.CSVDelimiter)
			if err != nil {
				return err
			}
			return csvwriter.WriteTo(out, result.Document.Records, csvwriter.Options{Comma: comma})
		}

		if profile != "" {
			fmt.Fprintf(out, "# profile: %s\n", profile)
		}
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(result.Document); err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		return enc.Close()
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().BoolVar(
		&inspectCSV,
		"csv",
		false,
		"Print the output records as CSV instead of YAML",
	)
}
