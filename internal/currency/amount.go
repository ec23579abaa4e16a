// =============================================================================
// Landed Cost Calculator - Amount Parsing
// =============================================================================
//
// Amounts are printed in many shapes: "AU $1,234.50", "€123,45",
// "1.234,56 kr", "(3.00)". ParseAmount reduces a token to digits and
// separators, then decides which separator is the decimal point.
//
// SEPARATOR RULES:
//   1. Both "." and "," present: the one appearing last is the decimal
//      separator, the other is a thousands separator.
//   2. Only ",": decimal when it occurs once and either the currency writes
//      comma decimals (EUR, SEK, DKK) or it is not followed by exactly three
//      digits. Otherwise it separates thousands.
//   3. Only ".": decimal unless it occurs more than once. Unit prices are
//      routinely printed with three decimals, so "0.125" stays 0.125.
//      ParseTotal reads order totals, which never carry three decimals: a
//      comma-decimal currency's single "." before exactly three digits
//      separates thousands there, so "€1.234" is 1234.
//
// Parentheses around the token or a leading minus sign make it negative.
//
// =============================================================================

package currency

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/invoice-landed-cost/internal/types"
)

// ErrNoDigits is returned when a token contains no numeric content.
var ErrNoDigits = errors.New("no digits in amount")

// AmountPattern matches one printed amount with an optional currency prefix
// or suffix. It is shared by the header and item parsers so both locate
// amounts the same way.
const AmountPattern = `\(?(?:-\s?)?(?:[A-Z]{1,3} ?)?[$€£]?\s?-?\d(?:[\d.,]*\d)?(?: ?(?:kr\.?|€|[A-Z]{3}\b))?\)?`

var amountRe = regexp.MustCompile(AmountPattern)

// ParseAmount converts a printed amount into a decimal. The symbol recorded
// in info is stripped first; any remaining non-numeric characters are
// ignored, which is also the fallback for an unknown currency.
func ParseAmount(raw string, info types.CurrencyInfo) (decimal.Decimal, error) {
	return parseAmount(raw, info, false)
}

// ParseTotal is ParseAmount for order-level totals; see separator rule 3.
func ParseTotal(raw string, info types.CurrencyInfo) (decimal.Decimal, error) {
	return parseAmount(raw, info, true)
}

func parseAmount(raw string, info types.CurrencyInfo, total bool) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if info.Symbol != "" {
		s = strings.ReplaceAll(s, info.Symbol, " ")
	}

	negative := strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")")

	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.', r == ',':
			b.WriteRune(r)
		case r == '-' || r == '−':
			if b.Len() == 0 {
				negative = true
			}
		}
	}

	digits := strings.TrimRight(b.String(), ".,")
	if strings.Trim(digits, ".,") == "" {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", raw, ErrNoDigits)
	}
	if digits[0] == '.' || digits[0] == ',' {
		digits = "0" + digits
	}

	normalized := normalizeSeparators(digits, info.Code, total)

	value, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", raw, err)
	}
	if negative {
		value = value.Neg()
	}
	return value, nil
}

// FindAmount locates the first amount token in s and parses it. The second
// return value is the matched token.
func FindAmount(s string, info types.CurrencyInfo) (decimal.Decimal, string, bool) {
	for _, loc := range amountRe.FindAllStringIndex(s, -1) {
		token := strings.TrimSpace(s[loc[0]:loc[1]])
		value, err := ParseAmount(token, info)
		if err == nil {
			return value, token, true
		}
	}
	return decimal.Zero, "", false
}

// FindAmounts returns every parseable amount in s, in order.
func FindAmounts(s string, info types.CurrencyInfo) []decimal.Decimal {
	var out []decimal.Decimal
	for _, token := range amountRe.FindAllString(s, -1) {
		if value, err := ParseAmount(token, info); err == nil {
			out = append(out, value)
		}
	}
	return out
}

func normalizeSeparators(digits string, code types.CurrencyCode, total bool) string {
	lastDot := strings.LastIndex(digits, ".")
	lastComma := strings.LastIndex(digits, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			digits = strings.ReplaceAll(digits, ".", "")
			return strings.Replace(digits, ",", ".", 1)
		}
		return strings.ReplaceAll(digits, ",", "")

	case lastComma >= 0:
		fraction := len(digits) - lastComma - 1
		if strings.Count(digits, ",") == 1 && (code.CommaDecimal() || fraction != 3) {
			return strings.Replace(digits, ",", ".", 1)
		}
		return strings.ReplaceAll(digits, ",", "")

	case lastDot >= 0:
		if strings.Count(digits, ".") > 1 {
			return strings.ReplaceAll(digits, ".", "")
		}
		if total && code.CommaDecimal() && len(digits)-lastDot-1 == 3 {
			return strings.Replace(digits, ".", "", 1)
		}
	}
	return digits
}
