// =============================================================================
// Landed Cost Calculator - CSV Table Parser
// =============================================================================
//
// This module reads small CSV side tables, currently the exchange rate table
// named by currency.rates_file. Invoices themselves are never CSV.
//
// FORMAT:
//   - First row: headers (blank headers become Column_N)
//   - Delimiter: the configured csv_delimiter
//   - Ragged rows and lazy quotes are accepted; values are trimmed
//   - A UTF-8 byte order mark from spreadsheet exports is dropped
//
// =============================================================================

package csvparser

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/ginjaninja78/invoice-landed-cost/internal/currency"
)

// CSVData represents a parsed CSV file.
type CSVData struct {
	// Headers contains the cleaned column headers.
	Headers []string

	// Rows contains every row after the header. encoding/csv drops empty
	// lines, so row numbers count non-empty lines only.
	Rows [][]string

	// SourceFile is the path to the source CSV file.
	SourceFile string
}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads a CSV file with a single header row.
//
// PARAMETERS:
//   - filePath: The path to the CSV file.
//   - comma: The field delimiter; zero means ','.
//
// RETURNS:
//   - The parsed headers and rows.
//   - An error if the file cannot be read or is empty.
func Parse(filePath string, comma rune) (*CSVData, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	csvReader := csv.NewReader(bufio.NewReader(file))
	configureReader(csvReader, comma)

	allRows, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(allRows) == 0 {
		return nil, fmt.Errorf("CSV file is empty")
	}

	if len(allRows[0]) > 0 {
		allRows[0][0] = strings.TrimPrefix(allRows[0][0], "\ufeff")
	}

	return &CSVData{
		Headers:    cleanHeaders(allRows[0]),
		Rows:       allRows[1:],
		SourceFile: filePath,
	}, nil
}

// ParseRates reads an exchange rate table from a CSV file.
//
// RETURNS:
//   - Rates keyed by currency code.
//   - An error if the file cannot be read or a row is invalid.
func ParseRates(filePath string, comma rune) (map[string]float64, error) {
	data, err := Parse(filePath, comma)
	if err != nil {
		return nil, err
	}
	rates, err := currency.ParseRateTable(data.Headers, data.Rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filePath, err)
	}
	return rates, nil
}

// configureReader sets the delimiter and relaxes the reader for
// hand-edited files.
func configureReader(reader *csv.Reader, comma rune) {
	if comma != 0 {
		reader.Comma = comma
	}
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
}

// cleanHeaders trims headers and names blank ones by position.
func cleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))
	for i, header := range headers {
		header = strings.TrimSpace(header)
		if header == "" {
			header = fmt.Sprintf("Column_%d", i+1)
		}
		cleaned[i] = header
	}
	return cleaned
}
