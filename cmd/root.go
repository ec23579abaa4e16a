// =============================================================================
// Landed Cost Calculator - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. Every subcommand
// hangs off it and shares its --config and --verbose flags.
//
// COBRA CLI STRUCTURE:
//   rootCmd (landedcost)
//   ├── processCmd  (landedcost process)
//   ├── inspectCmd  (landedcost inspect <file>)
//   ├── validateCmd (landedcost validate)
//   └── versionCmd  (landedcost version)
//
// STARTUP:
//   Commands that need configuration call loadRuntime, which reads .env,
//   loads config.yaml (with LANDEDCOST_* overrides), merges the exchange
//   rate table if one is configured, and builds the logger.
//
// =============================================================================

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ginjaninja78/invoice-landed-cost/internal/config"
	"github.com/ginjaninja78/invoice-landed-cost/internal/csvparser"
	"github.com/ginjaninja78/invoice-landed-cost/internal/logging"
	"github.com/ginjaninja78/invoice-landed-cost/internal/xlsxparser"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// envFile holds the path to an optional .env file.
var envFile string

// verbose forces debug logging regardless of log_level.
var verbose bool

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

var rootCmd = &cobra.Command{
	Use:   "landedcost",
	Short: "Landed Cost Calculator - spread order overhead across BrickLink invoice items",
	Long: `Landed Cost Calculator reads BrickLink-style order invoices (PDF or
pre-extracted text), extracts the order header and item list, and spreads
shipping, insurance and other charges across the items in proportion to
their value.

Each item gets an overhead amount and an adjusted unit price. The results
are written as a flat CSV, an Excel workbook with a per-currency summary,
or an XML document grouped by order.

Example Usage:
  landedcost process                      # Process every invoice in input_dir
  landedcost process --file order.pdf     # Process a single invoice
  landedcost inspect order.pdf            # Dump the parse result as YAML
  landedcost validate                     # Check config.yaml and profiles`,

	SilenceUsage: true,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command. It is called by main.main().
// An interrupt stops the batch from starting further files.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file",
	)

	rootCmd.PersistentFlags().StringVar(
		&envFile,
		"env-file",
		".env",
		"Path to an optional .env file of LANDEDCOST_* overrides",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)
}

// =============================================================================
// SHARED STARTUP
// =============================================================================

// loadRuntime loads the environment file, the main configuration and the
// logger. The caller must Sync the logger before exiting.
//
// RETURNS:
//   - The validated configuration.
//   - A logger at log_level, or debug when --verbose is set.
//   - An error if any step fails.
func loadRuntime() (*config.MainConfig, *zap.SugaredLogger, error) {
	if _, err := config.LoadEnvFile(envFile); err != nil {
		return nil, nil, err
	}

	cfg, err := config.LoadMainConfig(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load main config: %w", err)
	}
	if err := loadRatesFile(cfg); err != nil {
		return nil, nil, err
	}

	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	logger, err := logging.New(level, cfg.LogFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logging: %w", err)
	}

	logger.Debugf("Using config file %s", cfgFile)
	return cfg, logger, nil
}

// readConfig parses the configuration without creating any directories.
// When allowMissing is set, a missing config file yields the defaults.
func readConfig(allowMissing bool) (*config.MainConfig, error) {
	if _, err := config.LoadEnvFile(envFile); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(cfgFile)
	if err != nil {
		if !allowMissing || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		data = nil
	}

	cfg, err := config.ParseMainConfig(data)
	if err != nil {
		return nil, err
	}
	if err := loadRatesFile(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadRatesFile merges the exchange rate table named by
// currency.rates_file into the configuration.
func loadRatesFile(cfg *config.MainConfig) error {
	path := cfg.Currency.RatesFile
	if path == "" {
		return nil
	}

	var (
		rates map[string]float64
		err   error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		rates, err = xlsxparser.ParseRates(path, cfg.Currency.RatesSheet)
	default:
		comma, derr := config.Delimiter(cfg.CSVDelimiter)
		if derr != nil {
			return derr
		}
		rates, err = csvparser.ParseRates(path, comma)
	}
	if err != nil {
		return fmt.Errorf("failed to load exchange rates: %w", err)
	}

	return cfg.MergeExchangeRates(rates)
}
