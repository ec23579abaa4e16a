package items

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/invoice-landed-cost/internal/currency"
	"github.com/ginjaninja78/invoice-landed-cost/internal/types"
)

// =============================================================================
// FIELD PARSER
// =============================================================================

// FieldParser turns item blocks into item records.
type FieldParser struct {
	settings Settings
	colors   vocabulary
}

// NewFieldParser creates a parser with the given settings.
func NewFieldParser(settings Settings) *FieldParser {
	settings = settings.withDefaults()
	return &FieldParser{
		settings: settings,
		colors:   newVocabulary(settings.Colors),
	}
}

// terminal holds what the quantity/price line yielded.
type terminal struct {
	index     int
	leading   string
	condition string
	quantity  string
	price     string
	lineTotal string
	weight    string
}

// Parse extracts an item record from a block.
//
// PARAMETERS:
//   - block: one item block from BlockScanner
//
// RETURNS:
//   - types.ItemRecord: the parsed item
//   - *types.ParseFailure: non-nil when quantity or unit price cannot be
//     located or is implausible; the record is then the zero value
//
// Lines not claimed by any field form the description, joined by a single
// space.
func (p *FieldParser) Parse(block types.ItemBlock) (types.ItemRecord, *types.ParseFailure) {
	var rec types.ItemRecord

	term, ok := findTerminal(block.Lines)
	if !ok {
		return rec, missingTerminal(block)
	}

	qty, err := strconv.Atoi(term.quantity)
	if err != nil {
		return rec, &types.ParseFailure{Block: block, Field: "quantity", Reason: fmt.Sprintf("%q is not a whole number", term.quantity)}
	}
	if qty < 1 || qty > p.settings.MaxQuantity {
		return rec, &types.ParseFailure{Block: block, Field: "quantity", Reason: fmt.Sprintf("%d is outside 1..%d", qty, p.settings.MaxQuantity)}
	}

	price, _, found := currency.FindAmount(term.price, p.settings.Currency)
	if !found {
		return rec, &types.ParseFailure{Block: block, Field: "unit price", Reason: fmt.Sprintf("no amount in %q", term.price)}
	}
	if price.IsNegative() {
		return rec, &types.ParseFailure{Block: block, Field: "unit price", Reason: fmt.Sprintf("negative price %s", price)}
	}

	rec.Quantity = qty
	rec.OriginalUnitPrice = price
	rec.Condition = normalizeCondition(term.condition)

	if term.lineTotal != "" {
		if total, err := currency.ParseAmount(term.lineTotal, p.settings.Currency); err == nil {
			rec.LineTotal = &total
		}
	}
	if term.weight != "" {
		rec.Weight = parseWeight(term.weight)
	}

	// Every line other than the terminal is open to the remaining fields;
	// whatever survives becomes the description.
	rest := make([]string, 0, len(block.Lines))
	for i, line := range block.Lines {
		if i == term.index {
			if term.leading != "" {
				rest = append(rest, term.leading)
			}
			continue
		}
		rest = append(rest, line)
	}

	rest = p.claimColor(&rec, rest)

	for i, line := range rest {
		if rec.PartNumber == "" {
			if m := partNumberRe.FindStringSubmatch(line); m != nil {
				rec.PartNumber = m[1]
				line = strings.TrimSpace(partNumberRe.ReplaceAllString(line, ""))
			}
		}
		if m := conditionRe.FindStringSubmatch(line); m != nil {
			if rec.Condition == "" {
				rec.Condition = normalizeCondition(m[1])
			}
			line = ""
		}
		if rec.Weight == nil {
			if m := weightLineRe.FindStringSubmatch(line); m != nil {
				rec.Weight = parseWeight(m[1])
				line = ""
			}
		}
		rest[i] = line
	}

	rec.Description = strings.Join(strings.Fields(strings.Join(rest, " ")), " ")
	return rec, nil
}

// claimColor removes the color from the lines and records it. A line that
// is exactly a color wins over a color prefix on the first line.
func (p *FieldParser) claimColor(rec *types.ItemRecord, lines []string) []string {
	for i, line := range lines {
		if c, ok := p.colors.Exact(line); ok {
			rec.Color = c
			return append(lines[:i:i], lines[i+1:]...)
		}
	}
	if len(lines) > 0 {
		if c, rest, ok := p.colors.Prefix(lines[0]); ok {
			rec.Color = c
			lines[0] = rest
		}
	}
	return lines
}

// findTerminal locates the last quantity/price line of a block.
func findTerminal(lines []string) (terminal, bool) {
	for i := len(lines) - 1; i >= 0; i-- {
		if m := tableTerminalRe.FindStringSubmatch(lines[i]); m != nil {
			return terminal{
				index:     i,
				condition: m[1],
				quantity:  m[2],
				price:     m[3],
				lineTotal: m[4],
				weight:    m[5],
			}, true
		}
		if m := labelledTerminalRe.FindStringSubmatch(lines[i]); m != nil {
			t := terminal{
				index:    i,
				leading:  strings.TrimSpace(m[1]),
				quantity: m[2],
				price:    m[3],
			}
			if cond, rest, ok := splitCondition(t.leading); ok {
				t.condition, t.leading = cond, rest
			}
			return t, true
		}
	}
	return terminal{}, false
}

// missingTerminal explains why a block has no usable quantity/price line,
// naming the bad token when a table row is present.
func missingTerminal(block types.ItemBlock) *types.ParseFailure {
	for i := len(block.Lines) - 1; i >= 0; i-- {
		m := looseTableRowRe.FindStringSubmatch(block.Lines[i])
		if m == nil {
			continue
		}
		if _, err := strconv.Atoi(m[1]); err != nil {
			return &types.ParseFailure{Block: block, Field: "quantity", Reason: fmt.Sprintf("%q is not a whole number", m[1])}
		}
		return &types.ParseFailure{Block: block, Field: "unit price", Reason: fmt.Sprintf("no amount in %q", m[2])}
	}
	return &types.ParseFailure{Block: block, Field: "quantity", Reason: "no quantity and price line"}
}

func splitCondition(s string) (string, string, bool) {
	fields := strings.Fields(s)
	if len(fields) == 0 || !conditionRe.MatchString(fields[0]) {
		return "", s, false
	}
	return fields[0], strings.Join(fields[1:], " "), true
}

func normalizeCondition(s string) string {
	switch strings.ToLower(s) {
	case "new":
		return "New"
	case "used":
		return "Used"
	}
	return ""
}

func parseWeight(s string) *decimal.Decimal {
	w, err := decimal.NewFromString(strings.Replace(s, ",", ".", 1))
	if err != nil {
		return nil
	}
	return &w
}
