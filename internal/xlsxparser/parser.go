// =============================================================================
// Landed Cost Calculator - XLSX Table Parser
// =============================================================================
//
// This module reads side tables kept in Excel workbooks, currently the
// exchange rate table named by currency.rates_file.
//
// TABLE LAYOUT:
//   | Column A | Column B |
//   |----------|----------|
//   | Currency | Rate     |
//   | USD      | 1.52     |
//   | EUR      | 1.64     |
//
// Columns are found by header name, so extra columns (a date, a source
// note) and any column order are fine. The first sheet is read unless a
// sheet name is given.
//
// =============================================================================

package xlsxparser

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/invoice-landed-cost/internal/currency"
)

// Table is one sheet read as text.
type Table struct {
	// SourceFile and Sheet identify where the table was read from.
	SourceFile string
	Sheet      string

	// Headers is the first row; Rows are the rows after it.
	Headers []string
	Rows    [][]string
}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads one sheet of a workbook.
//
// PARAMETERS:
//   - path: The path to the .xlsx file.
//   - sheet: The sheet to read; "" means the first sheet.
//
// RETURNS:
//   - The sheet's header row and data rows, as displayed text.
//   - An error if the file, or the sheet, cannot be read.
func Parse(path, sheet string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
		if sheet == "" {
			return nil, fmt.Errorf("workbook has no sheets")
		}
	} else if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, fmt.Errorf("workbook has no sheet %q", sheet)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheet)
	}

	return &Table{
		SourceFile: path,
		Sheet:      sheet,
		Headers:    rows[0],
		Rows:       rows[1:],
	}, nil
}

// ParseRates reads an exchange rate table from a workbook.
//
// RETURNS:
//   - Rates keyed by currency code.
//   - An error if the sheet cannot be read or a row is invalid.
func ParseRates(path, sheet string) (map[string]float64, error) {
	table, err := Parse(path, sheet)
	if err != nil {
		return nil, err
	}
	rates, err := currency.ParseRateTable(table.Headers, table.Rows)
	if err != nil {
		return nil, fmt.Errorf("%s [%s]: %w", path, table.Sheet, err)
	}
	return rates, nil
}
