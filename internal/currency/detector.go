// =============================================================================
// Landed Cost Calculator - Currency Detection
// =============================================================================
//
// This module scans raw invoice text for currency symbols and ISO codes and
// returns a canonical currency together with the symbol variant actually
// observed. Downstream amount parsing uses the symbol to strip it cleanly.
//
// DETECTION RULES:
//   Rules are data, not branches. Each rule is a named pattern bound to a
//   currency code and a confidence. Definite rules are all evaluated and the
//   currency with the most matches wins; ties go to the earlier rule. Only
//   when no definite rule matches are the heuristic rules tried, in order.
//
//   | Rule            | Matches          | Code | Confidence        |
//   |-----------------|------------------|------|-------------------|
//   | au-dollar       | "AU $", "AU$"    | AUD  | definite          |
//   | us-dollar       | "US $", "US$"    | USD  | definite          |
//   | ca-dollar       | "CA $", "C$"     | CAD  | definite          |
//   | nz-dollar       | "NZ $", "NZ$"    | NZD  | definite          |
//   | dk-dollar       | "DK $", "DK$"    | DKK  | definite          |
//   | eu-dollar       | "EU $", "EUR $"  | EUR  | definite          |
//   | euro-sign       | "€"              | EUR  | definite          |
//   | pound-sign      | "£"              | GBP  | definite          |
//   | danish-krone    | "DK kr"          | DKK  | definite          |
//   | swedish-krona   | "SE kr"          | SEK  | definite          |
//   | iso-*           | "AUD", "EUR", …  | *    | definite          |
//   | bare-krona      | "kr"             | SEK  | heuristic-default |
//   | bare-dollar     | "$"              | USD  | heuristic-default |
//
// =============================================================================

package currency

import (
	"regexp"

	"github.com/ginjaninja78/invoice-landed-cost/internal/types"
)

// =============================================================================
// RULE TABLE
// =============================================================================

// Rule is a single currency detection pattern.
type Rule struct {
	// Name identifies the rule in tests and diagnostics.
	Name string

	// Code is the currency the rule detects.
	Code types.CurrencyCode

	// Pattern matches the symbol or code in the text. The matched text
	// becomes CurrencyInfo.Symbol.
	Pattern *regexp.Regexp

	// Confidence is attached to the result when this rule decides it.
	Confidence types.Confidence
}

// Match returns the first occurrence of the rule's pattern and the number
// of occurrences.
func (r Rule) Match(text string) (string, int) {
	all := r.Pattern.FindAllString(text, -1)
	if len(all) == 0 {
		return "", 0
	}
	return all[0], len(all)
}

func definite(name string, code types.CurrencyCode, pattern string) Rule {
	return Rule{Name: name, Code: code, Pattern: regexp.MustCompile(pattern), Confidence: types.ConfidenceDefinite}
}

func heuristic(name string, code types.CurrencyCode, pattern string) Rule {
	return Rule{Name: name, Code: code, Pattern: regexp.MustCompile(pattern), Confidence: types.ConfidenceHeuristic}
}

// DefiniteRules are unambiguous markers, in tie-break priority order.
var DefiniteRules = []Rule{
	definite("au-dollar", types.AUD, `\bAU ?\$|\bA\$`),
	definite("us-dollar", types.USD, `\bUS ?\$`),
	definite("ca-dollar", types.CAD, `\bCA ?\$|\bC\$`),
	definite("nz-dollar", types.NZD, `\bNZ ?\$`),
	definite("dk-dollar", types.DKK, `\bDK ?\$`),
	definite("eu-dollar", types.EUR, `\bEUR? ?\$`),
	definite("euro-sign", types.EUR, `€`),
	definite("pound-sign", types.GBP, `£`),
	definite("danish-krone", types.DKK, `\bDK ?kr\.?`),
	definite("swedish-krona", types.SEK, `\bSE ?kr\.?`),
	definite("iso-aud", types.AUD, `\bAUD\b`),
	definite("iso-usd", types.USD, `\bUSD\b`),
	definite("iso-cad", types.CAD, `\bCAD\b`),
	definite("iso-nzd", types.NZD, `\bNZD\b`),
	definite("iso-eur", types.EUR, `\bEUR\b`),
	definite("iso-gbp", types.GBP, `\bGBP\b`),
	definite("iso-dkk", types.DKK, `\bDKK\b`),
	definite("iso-sek", types.SEK, `\bSEK\b`),
}

// HeuristicRules are tried in order when no definite rule matches.
var HeuristicRules = []Rule{
	heuristic("bare-krona", types.SEK, `\bkr\b\.?`),
	heuristic("bare-dollar", types.USD, `\$`),
}

// =============================================================================
// DETECTION
// =============================================================================

// Detect returns the currency of an invoice text. It never fails: when no
// rule matches the result has code UnknownCurrency and confidence none, and
// callers fall back to symbol-agnostic amount parsing.
func Detect(text string) types.CurrencyInfo {
	return DetectWith(text, types.USD)
}

// DetectWith is Detect with a configurable currency for a bare "$".
func DetectWith(text string, dollarDefault types.CurrencyCode) types.CurrencyInfo {
	type tally struct {
		count  int
		symbol string
		best   int
	}

	counts := make(map[types.CurrencyCode]*tally)
	var order []types.CurrencyCode

	for _, rule := range DefiniteRules {
		symbol, n := rule.Match(text)
		if n == 0 {
			continue
		}
		t, ok := counts[rule.Code]
		if !ok {
			t = &tally{}
			counts[rule.Code] = t
			order = append(order, rule.Code)
		}
		t.count += n
		// The most frequent variant is the one amounts are written with.
		if n > t.best {
			t.best = n
			t.symbol = symbol
		}
	}

	if len(order) > 0 {
		winner := order[0]
		for _, code := range order[1:] {
			if counts[code].count > counts[winner].count {
				winner = code
			}
		}
		return types.CurrencyInfo{
			Code:       winner,
			Symbol:     counts[winner].symbol,
			Confidence: types.ConfidenceDefinite,
		}
	}

	for _, rule := range HeuristicRules {
		if symbol, n := rule.Match(text); n > 0 {
			code := rule.Code
			if rule.Name == "bare-dollar" && dollarDefault != "" {
				code = dollarDefault
			}
			return types.CurrencyInfo{Code: code, Symbol: symbol, Confidence: rule.Confidence}
		}
	}

	return types.CurrencyInfo{Code: types.UnknownCurrency, Confidence: types.ConfidenceNone}
}

// Diagnostics returns the flags a detection result should raise.
func Diagnostics(info types.CurrencyInfo) []types.Diagnostic {
	switch info.Confidence {
	case types.ConfidenceHeuristic:
		return []types.Diagnostic{{
			Severity: types.SeverityWarning,
			Flag:     types.FlagLowConfidenceCurrency,
			Message:  "currency " + string(info.Code) + " assumed from ambiguous symbol " + quote(info.Symbol),
		}}
	case types.ConfidenceNone:
		return []types.Diagnostic{{
			Severity: types.SeverityWarning,
			Flag:     types.FlagUnknownCurrency,
			Message:  "no currency symbol or code found; amounts parsed without a currency",
		}}
	}
	return nil
}

func quote(s string) string {
	return "\"" + s + "\""
}
