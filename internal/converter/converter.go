// =============================================================================
// Landed Cost Calculator - Converter Module
// =============================================================================
//
// This module orchestrates the processing of a single invoice file, from
// text extraction to flat output records.
//
// PROCESSING PIPELINE:
//   1. Load the file text (PDF or pre-extracted .txt)
//   2. Detect the invoice currency
//   3. Extract the order header
//   4. Scan the items section into blocks and parse each block
//   5. Convert to the base currency, when configured
//   6. Distribute the order overhead across items and reconcile
//   7. Assemble one output record per item
//
// Steps 2-7 live in Process, which is pure and never logs. The Converter
// wraps it with file loading, logging and statistics for the batch driver.
//
// CONCURRENCY:
//   A Converter handles one file. The batch driver runs one Converter per
//   goroutine; nothing is shared between them.
//
// =============================================================================

package converter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ginjaninja78/invoice-landed-cost/internal/textsource"
	"github.com/ginjaninja78/invoice-landed-cost/internal/types"
)

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of processing a single file.
type Result struct {
	// FilePath is the path to the input file that was processed.
	FilePath string

	// Profile is the seller profile applied to the file, if any.
	Profile string

	// Document holds the parse result. It is nil if processing failed.
	Document *Document

	// Success indicates whether the document produced a result. A
	// partially parsed or unreconciled document still succeeds.
	Success bool

	// Error contains the error if processing failed.
	Error error

	// Stats contains processing statistics.
	Stats ProcessingStats
}

// StructureFailure reports whether the file failed because a mandatory
// marker was missing, as opposed to an I/O problem.
func (r Result) StructureFailure() bool {
	var se *types.StructureError
	return errors.As(r.Error, &se)
}

// ProcessingStats contains statistics about the processing.
type ProcessingStats struct {
	// Pages and Lines describe the extracted text.
	Pages int
	Lines int

	// ItemsParsed is the number of items that produced a record.
	ItemsParsed int

	// ItemsSkipped is the number of item blocks that failed to parse.
	ItemsSkipped int

	// NoiseBlocks is the number of discarded text runs in the items section.
	NoiseBlocks int

	// Warnings is the number of warning diagnostics.
	Warnings int

	// ProcessingTime is the time taken to process the file.
	ProcessingTime time.Duration
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Converter processes a single invoice file.
type Converter struct {
	// path is the path to the input file.
	path string

	// profile names the seller profile whose settings built opts.
	profile string

	// opts are the parse options for this file.
	opts Options

	// logger receives progress messages.
	logger Logger
}

// Logger is the printf-style logging interface the converter needs.
// *zap.SugaredLogger satisfies it.
type Logger interface {
	Debugf(template string, args ...interface{})
	Infof(template string, args ...interface{})
	Warnf(template string, args ...interface{})
	Errorf(template string, args ...interface{})
}

// =============================================================================
// CONSTRUCTOR
// =============================================================================

// New creates a new Converter instance.
//
// PARAMETERS:
//   - path: The path to the input .pdf or .txt file.
//   - opts: The parse options for the file.
//
// RETURNS:
//   - A new Converter that logs nowhere until WithLogger is called.
func New(path string, opts Options) *Converter {
	return &Converter{
		path:   path,
		opts:   opts,
		logger: zap.NewNop().Sugar(),
	}
}

// WithLogger sets the logger and returns the converter.
func (c *Converter) WithLogger(logger Logger) *Converter {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// WithProfile records the seller profile used to build the options.
func (c *Converter) WithProfile(name string) *Converter {
	c.profile = name
	return c
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Run processes the file.
//
// RETURNS:
//   - A Result struct containing the outcome of the processing.
//
// A cancelled context stops the file before any work is done; once
// started, a document is always processed to completion.
func (c *Converter) Run(ctx context.Context) (result Result) {
	startTime := time.Now()
	result = Result{
		FilePath: c.path,
		Profile:  c.profile,
	}
	defer func() {
		result.Stats.ProcessingTime = time.Since(startTime)
	}()

	if err := ctx.Err(); err != nil {
		result.Error = fmt.Errorf("skipped %s: %w", c.path, err)
		return result
	}

	// =========================================================================
	// STEP 1: LOAD TEXT
	// =========================================================================

	if c.profile != "" {
		c.logger.Infof("Processing file: %s (profile %s)", c.path, c.profile)
	} else {
		c.logger.Infof("Processing file: %s", c.path)
	}

	raw, err := textsource.Load(c.path)
	if err != nil {
		result.Error = fmt.Errorf("failed to load text: %w", err)
		return result
	}

	result.Stats.Pages = len(raw.Pages)
	result.Stats.Lines = len(raw.Lines())
	c.logger.Debugf("Extracted %d lines from %d pages", result.Stats.Lines, result.Stats.Pages)

	// =========================================================================
	// STEP 2: PARSE AND DISTRIBUTE
	// =========================================================================

	doc, err := Process(raw, c.opts)
	if err != nil {
		result.Error = fmt.Errorf("failed to parse invoice: %w", err)
		return result
	}

	result.Document = doc
	result.Stats.ItemsParsed = len(doc.Items)
	result.Stats.ItemsSkipped = doc.ItemsSkipped
	result.Stats.NoiseBlocks = doc.NoiseBlocks

	c.logger.Debugf("Order %s: currency %s (%s), %d items, %d skipped",
		doc.Header.OrderNumber, doc.Currency.Code, doc.Currency.Confidence,
		len(doc.Items), doc.ItemsSkipped)

	// =========================================================================
	// STEP 3: REPORT DIAGNOSTICS
	// =========================================================================

	for _, d := range doc.Diagnostics {
		switch d.Severity {
		case types.SeverityWarning, types.SeverityError:
			result.Stats.Warnings++
			c.logger.Warnf("%s: %s: %s", c.path, d.Flag, d.Message)
		default:
			c.logger.Debugf("%s: %s: %s", c.path, d.Flag, d.Message)
		}
	}

	// =========================================================================
	// COMPLETE
	// =========================================================================

	result.Success = true
	c.logger.Infof("Order %s: %d records, overhead %s %s at rate %s",
		doc.Header.OrderNumber, len(doc.Records), doc.Distribution.OverheadTotal.StringFixed(2),
		doc.ReportingCurrency, doc.Distribution.OverheadRate.StringFixed(4))

	return result
}
