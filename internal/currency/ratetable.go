package currency

import (
	"fmt"
	"strconv"
	"strings"
)

// Header names accepted for the two columns of a rate table, compared
// case-insensitively with spaces and underscores treated alike.
var (
	rateCodeHeaders  = []string{"currency", "code", "currency code"}
	rateValueHeaders = []string{"rate", "exchange rate", "to base"}
)

// ParseRateTable reads exchange rates from tabular data: a header row with
// a currency column and a rate column, then one currency per row. Rates
// use the same direction as the exchange_rates setting. Blank rows are
// skipped.
//
// RETURNS:
//   - Rates keyed by upper-case currency code.
//   - An error naming the first bad row (1-based, header is row 1).
func ParseRateTable(headers []string, rows [][]string) (map[string]float64, error) {
	codeCol := findColumn(headers, rateCodeHeaders)
	rateCol := findColumn(headers, rateValueHeaders)
	if codeCol < 0 || rateCol < 0 {
		return nil, fmt.Errorf("rate table needs a Currency and a Rate column, found %q", headers)
	}

	rates := make(map[string]float64)
	for i, row := range rows {
		line := i + 2
		code := strings.ToUpper(cell(row, codeCol))
		value := cell(row, rateCol)
		if code == "" && value == "" {
			continue
		}
		if code == "" {
			return nil, fmt.Errorf("row %d: missing currency code", line)
		}
		if _, dup := rates[code]; dup {
			return nil, fmt.Errorf("row %d: %s listed twice", line, code)
		}

		if !strings.Contains(value, ".") {
			value = strings.Replace(value, ",", ".", 1)
		}
		rate, err := strconv.ParseFloat(value, 64)
		if err != nil || rate <= 0 {
			return nil, fmt.Errorf("row %d: rate %q for %s must be a positive number", line, cell(row, rateCol), code)
		}
		rates[code] = rate
	}
	return rates, nil
}

func findColumn(headers []string, names []string) int {
	for i, h := range headers {
		h = strings.Join(strings.Fields(strings.ReplaceAll(strings.ToLower(h), "_", " ")), " ")
		for _, name := range names {
			if h == name {
				return i
			}
		}
	}
	return -1
}

func cell(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}
