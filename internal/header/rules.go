// =============================================================================
// Landed Cost Calculator - Order Header Rules
// =============================================================================
//
// Every header field is located by an ordered list of named label rules.
// Rules are plain data: adding a synonym means adding a table entry, not a
// branch. Each rule is tested independently in rules_test.go.
//
// LABEL MATCHING:
//   - Labels are anchored at the start of a line and matched
//     case-insensitively with flexible whitespace.
//   - The amount follows the label on the same line, or stands alone on the
//     next non-blank line.
//   - Text after a label that does not start with an amount rejects the
//     match, so "Shipping Method: Standard" never yields a shipping cost.
//
// =============================================================================

package header

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/invoice-landed-cost/internal/currency"
	"github.com/ginjaninja78/invoice-landed-cost/internal/types"
)

// Mode decides what happens when a field's label occurs more than once.
type Mode int

const (
	// First keeps the first occurrence.
	First Mode = iota

	// Sum adds every occurrence (additional charges, credits).
	Sum
)

// Rule is a named label pattern for one monetary header field.
type Rule struct {
	Name  string
	Field types.HeaderField
	Label *regexp.Regexp
}

func rule(name string, field types.HeaderField, label string) Rule {
	return Rule{
		Name:  name,
		Field: field,
		Label: regexp.MustCompile(`(?i)^\s*` + label + `\b[\s:.\-]*`),
	}
}

// AmountRules lists the monetary label rules in priority order. Longer
// labels come before their prefixes.
var AmountRules = []Rule{
	rule("order-total", types.FieldSubtotal, `order\s+total`),
	rule("subtotal", types.FieldSubtotal, `sub\s*-?\s*total`),
	rule("items-total", types.FieldSubtotal, `items?\s+total`),

	rule("shipping-handling", types.FieldShipping, `shipping\s*(?:&|and)\s*handling`),
	rule("shipping-cost", types.FieldShipping, `shipping\s+(?:cost|fee|charges?)`),
	rule("shipping", types.FieldShipping, `shipping`),
	rule("postage", types.FieldShipping, `postage(?:\s*(?:&|and)\s*packing)?`),

	rule("insurance", types.FieldInsurance, `(?:shipping\s+)?insurance`),

	rule("additional-charges", types.FieldAdditionalCharges, `additional\s+charges?(?:\s*\d+)?`),
	rule("handling-fee", types.FieldAdditionalCharges, `handling\s+(?:fee|charge)`),

	rule("coupon-credit", types.FieldCredit, `coupon\s+credit`),
	rule("store-credit", types.FieldCredit, `store\s+credit`),
	rule("credit", types.FieldCredit, `credits?`),
	rule("discount", types.FieldCredit, `discount`),

	rule("grand-total", types.FieldGrandTotal, `grand\s*-?\s*total`),
}

// FieldModes maps each monetary field to its repetition policy.
var FieldModes = map[types.HeaderField]Mode{
	types.FieldSubtotal:          First,
	types.FieldShipping:          First,
	types.FieldInsurance:         First,
	types.FieldAdditionalCharges: Sum,
	types.FieldCredit:            Sum,
	types.FieldGrandTotal:        First,
}

var (
	leadingAmountRe = regexp.MustCompile(`^` + currency.AmountPattern)
	soleAmountRe    = regexp.MustCompile(`^` + currency.AmountPattern + `$`)
)

// Amount tries the rule against lines[i]. On success it returns the amount
// and the index of the last line the match used.
func (r Rule) Amount(lines []string, i int, info types.CurrencyInfo) (decimal.Decimal, int, bool) {
	loc := r.Label.FindStringIndex(lines[i])
	if loc == nil {
		return decimal.Zero, i, false
	}

	rest := strings.TrimSpace(lines[i][loc[1]:])
	if rest != "" {
		token := leadingAmountRe.FindString(rest)
		if token == "" {
			return decimal.Zero, i, false
		}
		value, err := currency.ParseTotal(token, info)
		return value, i, err == nil
	}

	for j := i + 1; j < len(lines); j++ {
		next := strings.TrimSpace(lines[j])
		if next == "" {
			continue
		}
		if !soleAmountRe.MatchString(next) {
			return decimal.Zero, i, false
		}
		value, err := currency.ParseTotal(next, info)
		return value, j, err == nil
	}
	return decimal.Zero, i, false
}

// =============================================================================
// IDENTIFIER RULES
// =============================================================================

// IdentifierRule extracts a text value through its first capture group.
type IdentifierRule struct {
	Name    string
	Field   types.HeaderField
	Pattern *regexp.Regexp
}

// Value returns the captured value on lines[i], looking at the next
// non-blank line when the label stands alone.
func (r IdentifierRule) Value(lines []string, i int) (string, bool) {
	m := r.Pattern.FindStringSubmatch(lines[i])
	if m == nil {
		return "", false
	}
	if v := strings.TrimSpace(m[1]); v != "" {
		return v, true
	}
	for j := i + 1; j < len(lines); j++ {
		if next := strings.TrimSpace(lines[j]); next != "" {
			return next, true
		}
	}
	return "", false
}

// OrderNumberRules locate the order number. The captured token must
// contain a digit so that "Order Notes" is not mistaken for one.
var OrderNumberRules = []IdentifierRule{
	{
		Name:    "order-hash",
		Field:   types.FieldOrderNumber,
		Pattern: regexp.MustCompile(`(?i)\border\s*(?:#|no\.?|number|id)\s*:?\s*#?\s*([A-Z0-9-]*\d[A-Z0-9-]*)`),
	},
	{
		Name:    "invoice-number",
		Field:   types.FieldOrderNumber,
		Pattern: regexp.MustCompile(`(?i)\binvoice\s*(?:#|no\.?|number)\s*:?\s*#?\s*([A-Z0-9-]*\d[A-Z0-9-]*)`),
	},
}

// OrderDateRules locate the order date text.
var OrderDateRules = []IdentifierRule{
	{
		Name:    "order-date",
		Field:   types.FieldOrderDate,
		Pattern: regexp.MustCompile(`(?i)\border\s+date\s*:?\s*(.*)$`),
	},
	{
		Name:    "date-ordered",
		Field:   types.FieldOrderDate,
		Pattern: regexp.MustCompile(`(?i)\b(?:date\s+ordered|ordered\s+on)\s*:?\s*(.*)$`),
	},
}
