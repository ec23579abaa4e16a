// =============================================================================
// Landed Cost Calculator - Process Command
// =============================================================================
//
// This file defines the 'process' command, the batch driver. It runs every
// invoice in the input directory through the converter and writes the
// combined results.
//
// COMMAND USAGE:
//   landedcost process [flags]
//
// FLAGS:
//   --dry-run  : Parse and report without writing outputs or archiving
//   --file     : Process a single invoice instead of the input directory
//   --format   : Override output_formats: csv, xlsx, xml, both or all
//
// PROCESSING PIPELINE:
//   1. Load seller profiles
//   2. Discover .pdf and .txt invoices in the input directory
//   3. Process each file concurrently (bounded by max_concurrency)
//   4. Collect results in file name order and validate the records
//   5. Write the combined CSV and XLSX outputs
//   6. Archive successfully processed invoices
//   7. Write the error log and processing summary
//
// A document that fails never stops the others unless continue_on_error is
// false, in which case files not yet started are skipped.
//
// =============================================================================

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/invoice-landed-cost/internal/config"
	"github.com/ginjaninja78/invoice-landed-cost/internal/converter"
	"github.com/ginjaninja78/invoice-landed-cost/internal/csvwriter"
	"github.com/ginjaninja78/invoice-landed-cost/internal/textsource"
	"github.com/ginjaninja78/invoice-landed-cost/internal/types"
	"github.com/ginjaninja78/invoice-landed-cost/internal/validation"
	"github.com/ginjaninja78/invoice-landed-cost/internal/xlsxwriter"
	"github.com/ginjaninja78/invoice-landed-cost/internal/xmlwriter"
	"github.com/ginjaninja78/invoice-landed-cost/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

// dryRun parses every file but writes nothing.
var dryRun bool

// filePath is a single invoice to process instead of the input directory.
var filePath string

// outputFormat overrides output_formats from the configuration.
var outputFormat string

// =============================================================================
// PROCESS COMMAND DEFINITION
// =============================================================================

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Process invoices and write landed cost records",
	Long: `The process command scans the input directory for invoices (.pdf and
.txt), parses each one, spreads its overhead across the items and writes
one combined output for the run.

Files are processed concurrently. A file that fails to parse is reported
in the error log and left in the input directory; the others continue.

On success:
  - landed_costs_<timestamp>.csv (.xlsx, .xml) are written to the output directory
  - processed invoices are moved to the input archive when archive_inputs is set
  - a processing summary with per-currency totals is written

Documents with warnings (skipped items, reconciliation failures, unknown
currency) still produce records; the warnings are listed in the error log
and the Diagnostics sheet.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadRuntime()
		if err != nil {
			return err
		}
		defer logger.Sync()

		if outputFormat != "" {
			formats, err := parseFormatFlag(outputFormat)
			if err != nil {
				return err
			}
			cfg.OutputFormats = formats
		}

		summary, err := runBatch(cmd.Context(), cfg, batchOptions{DryRun: dryRun, File: filePath}, logger)
		if err != nil {
			return err
		}
		printSummary(cmd.OutOrStdout(), summary, dryRun)

		if summary.FailedFiles > 0 && !cfg.KeepGoing() {
			return fmt.Errorf("processing stopped: %d file(s) failed", summary.FailedFiles)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().BoolVar(
		&dryRun,
		"dry-run",
		false,
		"Parse and report without writing outputs or archiving inputs",
	)

	processCmd.Flags().StringVar(
		&filePath,
		"file",
		"",
		"Process a single invoice file instead of the input directory",
	)

	processCmd.Flags().StringVar(
		&outputFormat,
		"format",
		"",
		"Output format: csv, xlsx, xml, both or all (default from output_formats)",
	)
}

// parseFormatFlag maps the --format value to output_formats entries.
func parseFormatFlag(value string) ([]string, error) {
	switch strings.ToLower(value) {
	case config.FormatCSV:
		return []string{config.FormatCSV}, nil
	case config.FormatXLSX:
		return []string{config.FormatXLSX}, nil
	case config.FormatXML:
		return []string{config.FormatXML}, nil
	case "both":
		return []string{config.FormatCSV, config.FormatXLSX}, nil
	case "all":
		return []string{config.FormatCSV, config.FormatXLSX, config.FormatXML}, nil
	}
	return nil, fmt.Errorf("unknown --format %q (want csv, xlsx, xml, both or all)", value)
}

// =============================================================================
// BATCH DRIVER
// =============================================================================

// batchOptions are the per-invocation switches of a batch run.
type batchOptions struct {
	DryRun bool
	File   string
}

// runBatch processes a set of invoices and writes the run's outputs.
//
// PARAMETERS:
//   - ctx: Cancelling it skips files that have not started yet.
//   - cfg: The validated main configuration.
//   - opts: Dry run and single-file switches.
//   - logger: Receives progress and per-document diagnostics.
//
// RETURNS:
//   - The run summary. Failed documents are counted in it, not returned
//     as errors.
//   - An error only if the run itself cannot proceed (profiles, discovery,
//     output files).
func runBatch(ctx context.Context, cfg *config.MainConfig, opts batchOptions, logger converter.Logger) (*utils.ProcessingSummary, error) {
	summary := &utils.ProcessingSummary{
		RunID:     uuid.New().String(),
		StartTime: time.Now(),
	}

	// =========================================================================
	// STEP 1: LOAD PROFILES
	// =========================================================================

	profiles, err := config.LoadProfiles(cfg.ProfilesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load profiles: %w", err)
	}
	logger.Infof("Loaded %d seller profile(s)", len(profiles))

	// =========================================================================
	// STEP 2: DISCOVER INPUT FILES
	// =========================================================================

	fm := utils.NewFileManager(cfg.InputDir, cfg.OutputDir, cfg.InputArchiveDir)
	fm.ArchiveOnSuccess = cfg.ArchiveInputs && !opts.DryRun

	inputFiles, err := discoverInputs(fm, opts.File)
	if err != nil {
		return nil, err
	}
	summary.TotalFiles = len(inputFiles)

	if len(inputFiles) == 0 {
		logger.Infof("No invoice files found in %s", cfg.InputDir)
		summary.EndTime = time.Now()
		return summary, nil
	}
	logger.Infof("Found %d file(s) to process (run %s)", len(inputFiles), summary.RunID)

	// =========================================================================
	// STEP 3: PROCESS FILES CONCURRENTLY
	// =========================================================================

	results := processFiles(ctx, cfg, profiles, inputFiles, logger)

	// =========================================================================
	// STEP 4: COLLECT RESULTS
	// =========================================================================

	var (
		records        []types.OutputRecord
		diagnostics    []xlsxwriter.FileDiagnostic
		errorEntries   []utils.ErrorLogEntry
		processedPaths []string
	)

	for _, result := range results {
		name := filepath.Base(result.FilePath)
		now := time.Now()

		if !result.Success {
			kind := failureType(result)
			summary.FailedFiles++
			summary.FailedFilesList = append(summary.FailedFilesList, utils.FailedFileInfo{
				InputFile:    result.FilePath,
				ErrorMessage: result.Error.Error(),
				ErrorType:    kind,
			})
			errorEntries = append(errorEntries, utils.ErrorLogEntry{
				Timestamp:    now,
				FileName:     name,
				ErrorType:    kind,
				ErrorMessage: result.Error.Error(),
			})
			diagnostics = append(diagnostics, xlsxwriter.FileDiagnostic{
				Source: name,
				Diagnostic: types.Diagnostic{
					Severity: types.SeverityError,
					Flag:     types.Flag(kind),
					Message:  result.Error.Error(),
				},
			})
			logger.Errorf("%s: %v", name, result.Error)
			continue
		}

		doc := result.Document
		summary.SuccessfulFiles++
		if doc.PartiallyParsed() {
			summary.PartialFiles++
		}
		summary.TotalItems += len(doc.Records)
		summary.SkippedItems += doc.ItemsSkipped
		records = append(records, doc.Records...)

		flags := make([]string, len(doc.Flags))
		for i, f := range doc.Flags {
			flags[i] = string(f)
		}
		summary.ProcessedFiles = append(summary.ProcessedFiles, utils.ProcessedFileInfo{
			InputFile:   result.FilePath,
			OrderNumber: doc.Header.OrderNumber,
			Currency:    string(doc.ReportingCurrency),
			Items:       len(doc.Records),
			Skipped:     doc.ItemsSkipped,
			Flags:       flags,
			ProcessTime: result.Stats.ProcessingTime,
		})
		processedPaths = append(processedPaths, result.FilePath)

		for _, d := range doc.Diagnostics {
			diagnostics = append(diagnostics, xlsxwriter.FileDiagnostic{Source: name, Diagnostic: d})
			if d.Severity == types.SeverityInfo {
				continue
			}
			errorEntries = append(errorEntries, utils.ErrorLogEntry{
				Timestamp:    now,
				FileName:     name,
				ErrorType:    string(d.Flag),
				ErrorMessage: d.Message,
				RawText:      d.RawText,
			})
		}
	}

	summary.Currencies = converter.Summarize(records)

	checked := validation.NewValidator(validation.DefaultValidationOptions()).ValidateAll(records)
	for _, finding := range checked.Errors {
		name := filepath.Base(finding.Source)
		diagnostics = append(diagnostics, xlsxwriter.FileDiagnostic{Source: name, Diagnostic: finding.Diagnostic()})
		errorEntries = append(errorEntries, utils.ErrorLogEntry{
			Timestamp:    time.Now(),
			FileName:     name,
			ErrorType:    finding.Rule,
			ErrorMessage: finding.Error(),
		})
	}
	if len(checked.Errors) > 0 {
		logger.Warnf("Validation: %d error(s), %d warning(s) in %d record(s)",
			checked.ErrorCount, checked.WarningCount, checked.RecordsValidated)
	}

	if opts.DryRun {
		summary.EndTime = time.Now()
		return summary, nil
	}

	// =========================================================================
	// STEP 5: WRITE OUTPUTS
	// =========================================================================

	if err := fm.EnsureDirectories(); err != nil {
		return summary, err
	}

	if summary.SuccessfulFiles > 0 {
		written, err := writeOutputs(cfg, summary, records, diagnostics)
		summary.OutputFiles = written
		if err != nil {
			return summary, err
		}
		for _, path := range written {
			logger.Infof("Wrote %s", path)
		}
	}

	// =========================================================================
	// STEP 6: ARCHIVE PROCESSED FILES
	// =========================================================================
	// Only after the outputs exist, so a failed write never loses an input.

	for i, path := range processedPaths {
		archived, err := fm.ArchiveInputFile(path)
		if err != nil {
			logger.Warnf("Failed to archive %s: %v", path, err)
			continue
		}
		if archived != path {
			summary.ProcessedFiles[i].ArchivePath = archived
		}
	}

	// =========================================================================
	// STEP 7: WRITE LOGS
	// =========================================================================

	summary.EndTime = time.Now()

	if logPath, err := utils.WriteErrorLog(errorEntries, cfg.OutputDir, summary.RunID, summary.StartTime); err != nil {
		logger.Warnf("Failed to write error log: %v", err)
	} else if logPath != "" {
		logger.Infof("Errors and warnings logged to %s", logPath)
	}

	if summaryPath, err := utils.WriteSummaryLog(*summary, cfg.OutputDir); err != nil {
		logger.Warnf("Failed to write processing summary: %v", err)
	} else {
		logger.Infof("Summary written to %s", summaryPath)
	}

	return summary, nil
}

// discoverInputs returns the single requested file, or every supported
// invoice in the input directory.
func discoverInputs(fm *utils.FileManager, single string) ([]string, error) {
	if single == "" {
		files, err := fm.DiscoverInputFiles(textsource.Extensions...)
		if err != nil {
			return nil, fmt.Errorf("failed to discover input files: %w", err)
		}
		return files, nil
	}

	if !textsource.Supported(single) {
		return nil, fmt.Errorf("unsupported file type %q (want %s)", single, strings.Join(textsource.Extensions, ", "))
	}
	if !utils.FileExists(single) {
		return nil, fmt.Errorf("input file not found: %s", single)
	}
	return []string{single}, nil
}

// processFiles runs one converter per file, at most max_concurrency at a
// time, and returns the results sorted by file path.
func processFiles(ctx context.Context, cfg *config.MainConfig, profiles []*config.Profile, inputFiles []string, logger converter.Logger) []converter.Result {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	results := make(chan converter.Result, len(inputFiles))
	slots := make(chan struct{}, cfg.MaxConcurrency)

	for _, file := range inputFiles {
		wg.Add(1)

		go func(path string) {
			defer wg.Done()

			slots <- struct{}{}
			defer func() { <-slots }()

			parser, profile := config.ParserFor(cfg, profiles, path)
			result := converter.New(path, converter.NewOptions(cfg, parser)).
				WithLogger(logger).
				WithProfile(profile).
				Run(ctx)

			if !result.Success && !cfg.KeepGoing() {
				cancel()
			}
			results <- result
		}(file)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	collected := make([]converter.Result, 0, len(inputFiles))
	for result := range results {
		collected = append(collected, result)
	}
	sort.Slice(collected, func(i, j int) bool {
		return collected[i].FilePath < collected[j].FilePath
	})
	return collected
}

// failureType classifies a failed result for the error log.
func failureType(result converter.Result) string {
	switch {
	case errors.Is(result.Error, context.Canceled), errors.Is(result.Error, context.DeadlineExceeded):
		return "skipped"
	case result.StructureFailure():
		return "structure"
	case errors.Is(result.Error, textsource.ErrNoText):
		return "no-text"
	}
	return "load"
}

// writeOutputs writes one combined file per configured output format.
//
// RETURNS:
//   - The paths written so far.
//   - An error if a file cannot be written.
func writeOutputs(cfg *config.MainConfig, summary *utils.ProcessingSummary, records []types.OutputRecord, diagnostics []xlsxwriter.FileDiagnostic) ([]string, error) {
	params := map[string]string{"uuid": summary.RunID}
	var written []string

	if cfg.WantsFormat(config.FormatCSV) {
		comma, err := config.Delimiter(cfg.CSVDelimiter)
		if err != nil {
			return written, err
		}
		name := utils.GenerateOutputFileName(cfg.OutputNameFormat, ".csv", summary.StartTime, params)
		path := filepath.Join(cfg.OutputDir, name)
		if err := csvwriter.Write(path, records, csvwriter.Options{Comma: comma}); err != nil {
			return written, fmt.Errorf("failed to write CSV output: %w", err)
		}
		written = append(written, path)
	}

	if cfg.WantsFormat(config.FormatXLSX) {
		name := utils.GenerateOutputFileName(cfg.OutputNameFormat, ".xlsx", summary.StartTime, params)
		path := filepath.Join(cfg.OutputDir, name)
		wb := xlsxwriter.Workbook{
			Records:     records,
			Summary:     summary.Currencies,
			Diagnostics: diagnostics,
		}
		if err := xlsxwriter.Write(path, wb); err != nil {
			return written, fmt.Errorf("failed to write XLSX output: %w", err)
		}
		written = append(written, path)
	}

	if cfg.WantsFormat(config.FormatXML) {
		name := utils.GenerateOutputFileName(cfg.OutputNameFormat, ".xml", summary.StartTime, params)
		path := filepath.Join(cfg.OutputDir, name)
		options := xmlwriter.DefaultGenerateOptions()
		options.RootAttributes["run"] = summary.RunID
		if err := xmlwriter.Write(path, records, options); err != nil {
			return written, fmt.Errorf("failed to write XML output: %w", err)
		}
		written = append(written, path)
	}

	return written, nil
}

// =============================================================================
// CONSOLE SUMMARY
// =============================================================================

func printSummary(w io.Writer, s *utils.ProcessingSummary, dryRun bool) {
	title := "Processing Complete"
	if dryRun {
		title = "Dry Run Complete (nothing written)"
	}

	fmt.Fprintf(w, "\n=== %s ===\n", title)
	fmt.Fprintf(w, "Total files:     %d\n", s.TotalFiles)
	fmt.Fprintf(w, "Successful:      %d\n", s.SuccessfulFiles)
	fmt.Fprintf(w, "Partial:         %d\n", s.PartialFiles)
	fmt.Fprintf(w, "Failed:          %d\n", s.FailedFiles)
	fmt.Fprintf(w, "Items:           %d (%d skipped)\n", s.TotalItems, s.SkippedItems)
	fmt.Fprintf(w, "Time elapsed:    %s\n", s.EndTime.Sub(s.StartTime).Round(time.Millisecond))

	for _, c := range s.Currencies {
		fmt.Fprintf(w, "  %-4s %3d order(s)  original %12s  overhead %10s  adjusted %12s\n",
			c.Currency, c.Orders,
			c.OriginalTotal.StringFixed(2), c.Overhead().StringFixed(2), c.AdjustedTotal.StringFixed(2))
	}

	for _, f := range s.FailedFilesList {
		fmt.Fprintf(w, "  ✗ %s: %s\n", filepath.Base(f.InputFile), f.ErrorMessage)
	}
	for _, path := range s.OutputFiles {
		fmt.Fprintf(w, "Output: %s\n", path)
	}
}
