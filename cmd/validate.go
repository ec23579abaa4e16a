// =============================================================================
// Landed Cost Calculator - Validate Command
// =============================================================================
//
// This file defines the 'validate' command, which loads config.yaml and the
// seller profiles and reports what a run would use, without touching any
// invoice or directory.
//
// COMMAND USAGE:
//   landedcost validate
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/invoice-landed-cost/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration and seller profiles",
	Long: `The validate command parses config.yaml (with any .env and LANDEDCOST_*
overrides applied) and every seller profile, reports the first problem it
finds, and otherwise prints the effective settings.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig(false)
		if err != nil {
			return err
		}

		profiles, err := config.LoadProfiles(cfg.ProfilesDir)
		if err != nil {
			return fmt.Errorf("failed to load profiles: %w", err)
		}

		printConfig(cmd.OutOrStdout(), cfg, profiles)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func printConfig(w io.Writer, cfg *config.MainConfig, profiles []*config.Profile) {
	fmt.Fprintf(w, "Configuration OK: %s\n\n", cfgFile)
	fmt.Fprintf(w, "Input:            %s\n", cfg.InputDir)
	fmt.Fprintf(w, "Output:           %s\n", cfg.OutputDir)
	if cfg.ArchiveInputs {
		fmt.Fprintf(w, "Archive:          %s\n", cfg.InputArchiveDir)
	} else {
		fmt.Fprintf(w, "Archive:          off\n")
	}
	fmt.Fprintf(w, "Output formats:   %s (%s)\n", strings.Join(cfg.OutputFormats, ", "), cfg.OutputNameFormat)
	fmt.Fprintf(w, "CSV delimiter:    %s\n", cfg.CSVDelimiter)
	fmt.Fprintf(w, "Concurrency:      %d (continue on error: %v)\n", cfg.MaxConcurrency, cfg.KeepGoing())
	fmt.Fprintf(w, "Dollar default:   %s\n", cfg.Parser.DollarDefault)

	if base := cfg.Currency.BaseCurrency; base != "" {
		codes := make([]string, 0, len(cfg.Currency.ExchangeRates))
		for code := range cfg.Currency.ExchangeRates {
			codes = append(codes, code)
		}
		sort.Strings(codes)
		fmt.Fprintf(w, "Base currency:    %s\n", base)
		if rf := cfg.Currency.RatesFile; rf != "" {
			fmt.Fprintf(w, "Rates file:       %s\n", rf)
		}
		for _, code := range codes {
			fmt.Fprintf(w, "  1 %s = %v %s\n", strings.ToUpper(code), cfg.Currency.ExchangeRates[code], base)
		}
	}

	fmt.Fprintf(w, "\nProfiles (%s): %d\n", cfg.ProfilesDir, len(profiles))
	for _, p := range profiles {
		fmt.Fprintf(w, "  %s: %s\n", p.Name, strings.Join(p.FileMatchingPatterns, ", "))
	}
}
