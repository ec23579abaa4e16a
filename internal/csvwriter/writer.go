// =============================================================================
// Landed Cost Calculator - CSV Writer Module
// =============================================================================
//
// This module writes output records to a CSV file, one row per item with
// the order header fields repeated on every row.
//
// FORMAT:
//   - First row: types.OutputColumns
//   - Money: totals and header amounts with two decimal places, unit-level
//     amounts exact (BrickLink prints three-decimal unit prices)
//   - Delimiter: configurable (comma, tab, pipe, semicolon)
//   - Encoding: UTF-8, no byte order mark
//
// =============================================================================

package csvwriter

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/ginjaninja78/invoice-landed-cost/internal/types"
)

// Options configures the CSV output.
type Options struct {
	// Comma is the field delimiter. Zero means ','.
	Comma rune

	// UseCRLF ends rows with \r\n instead of \n.
	UseCRLF bool
}

// =============================================================================
// WRITER FUNCTIONS
// =============================================================================

// Write creates path and writes every record to it.
//
// PARAMETERS:
//   - path: The output file path. Its directory must exist.
//   - records: The rows to write, in order.
//   - opts: Delimiter and line ending settings.
//
// RETURNS:
//   - An error if the file cannot be created or written. A partially
//     written file is removed.
func Write(path string, records []types.OutputRecord, opts Options) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close CSV file: %w", cerr)
		}
		if err != nil {
			os.Remove(path)
		}
	}()

	buf := bufio.NewWriter(file)
	if err := WriteTo(buf, records, opts); err != nil {
		return err
	}
	if err := buf.Flush(); err != nil {
		return fmt.Errorf("failed to write CSV file: %w", err)
	}
	return nil
}

// WriteTo writes the header row and records to w.
func WriteTo(w io.Writer, records []types.OutputRecord, opts Options) error {
	csvWriter := csv.NewWriter(w)
	configureWriter(csvWriter, opts)

	if err := csvWriter.Write(types.OutputColumns); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for i, rec := range records {
		if err := csvWriter.Write(rec.Strings()); err != nil {
			return fmt.Errorf("failed to write CSV row %d: %w", i+1, err)
		}
	}

	csvWriter.Flush()
	if err := csvWriter.Error(); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	return nil
}

// configureWriter applies the options to a csv.Writer.
func configureWriter(writer *csv.Writer, opts Options) {
	if opts.Comma != 0 {
		writer.Comma = opts.Comma
	}
	writer.UseCRLF = opts.UseCRLF
}
