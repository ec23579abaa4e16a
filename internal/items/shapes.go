// =============================================================================
// Landed Cost Calculator - Item Line Shapes
// =============================================================================
//
// This module defines the line shapes the item scanner and field parser
// agree on: section markers, skippable column headers and page furniture,
// the quantity/price line that closes an item, and the trailing part-number
// and weight lines that may follow it.
//
// TERMINAL LINE SHAPES:
//   Table row:   "New 2 AU $0.125 AU $0.25 1.2g"
//                condition, quantity, unit price, line total, weight
//   Labelled:    "Qty: 4  Price: $2.50"
//
// Money in a table row must carry a currency marker, so a line of bare
// numbers (a set inventory count, a postcode) never closes an item.
//
// =============================================================================

package items

import (
	"regexp"
	"sort"
	"strings"

	"github.com/ginjaninja78/invoice-landed-cost/internal/types"
)

// =============================================================================
// SETTINGS
// =============================================================================

// Default limits.
const (
	DefaultLookaheadLines = 8
	DefaultMaxQuantity    = 100000
)

// DefaultColors is the built-in color vocabulary. A line consisting of
// exactly one of these names starts a new item.
var DefaultColors = []string{
	"Black", "White", "Red", "Blue", "Yellow", "Green", "Brown", "Orange",
	"Purple", "Pink", "Tan", "Gray", "Lime", "Magenta",
	"Dark Blue", "Dark Red", "Dark Green", "Dark Tan", "Dark Orange",
	"Dark Azure", "Dark Brown", "Dark Pink", "Dark Purple", "Dark Bluish Gray",
	"Light Blue", "Light Gray", "Light Bluish Gray", "Light Nougat",
	"Medium Blue", "Medium Nougat", "Medium Azure", "Medium Lavender",
	"Reddish Brown", "Bright Green", "Bright Light Orange", "Bright Light Yellow",
	"Bright Light Blue", "Bright Pink", "Sand Green", "Sand Blue", "Olive Green",
	"Pearl Gold", "Flat Silver", "Metallic Silver", "Chrome Gold", "Nougat",
	"Trans-Clear", "Trans-Orange", "Trans-Red", "Trans-Blue", "Trans-Light Blue",
	"Trans-Green", "Trans-Yellow", "Trans-Dark Blue", "Trans-Neon Green",
	"Trans-Black", "Trans-Purple", "Trans-Pink",
}

// Settings tunes item scanning and parsing.
type Settings struct {
	// Colors is the color vocabulary. Empty means DefaultColors.
	Colors []string

	// LookaheadLines bounds how many lines an unterminated item may
	// accumulate before its oldest lines are discarded as noise.
	LookaheadLines int

	// MaxQuantity is the largest plausible quantity.
	MaxQuantity int

	// Currency is used to parse prices.
	Currency types.CurrencyInfo
}

// DefaultSettings returns settings with the built-in vocabulary and limits.
func DefaultSettings() Settings {
	return Settings{
		Colors:         DefaultColors,
		LookaheadLines: DefaultLookaheadLines,
		MaxQuantity:    DefaultMaxQuantity,
	}
}

// WithExtraColors returns a copy of s whose vocabulary also includes extra.
func (s Settings) WithExtraColors(extra []string) Settings {
	colors := make([]string, 0, len(s.Colors)+len(extra))
	colors = append(colors, s.Colors...)
	colors = append(colors, extra...)
	s.Colors = colors
	return s
}

func (s Settings) withDefaults() Settings {
	if len(s.Colors) == 0 {
		s.Colors = DefaultColors
	}
	if s.LookaheadLines <= 0 {
		s.LookaheadLines = DefaultLookaheadLines
	}
	if s.MaxQuantity <= 0 {
		s.MaxQuantity = DefaultMaxQuantity
	}
	return s
}

// vocabulary is a case-insensitive color lookup.
type vocabulary struct {
	exact   map[string]string
	longest []string
}

func newVocabulary(colors []string) vocabulary {
	v := vocabulary{exact: make(map[string]string, len(colors))}
	for _, c := range colors {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		key := strings.ToLower(c)
		if _, dup := v.exact[key]; dup {
			continue
		}
		v.exact[key] = c
		v.longest = append(v.longest, c)
	}
	sort.SliceStable(v.longest, func(i, j int) bool {
		return len(v.longest[i]) > len(v.longest[j])
	})
	return v
}

// Exact returns the canonical color when line is exactly a color name.
func (v vocabulary) Exact(line string) (string, bool) {
	c, ok := v.exact[strings.ToLower(strings.TrimSpace(line))]
	return c, ok
}

// Prefix returns the longest color that starts line as a whole word, and
// the rest of the line.
func (v vocabulary) Prefix(line string) (string, string, bool) {
	line = strings.TrimSpace(line)
	for _, c := range v.longest {
		if len(line) <= len(c) || !strings.EqualFold(line[:len(c)], c) {
			continue
		}
		if line[len(c)] != ' ' {
			continue
		}
		return c, strings.TrimSpace(line[len(c):]), true
	}
	return "", "", false
}

// =============================================================================
// LINE SHAPES
// =============================================================================

const money = `(?:(?:[A-Z]{1,3} ?)?[$€£] ?\d(?:[\d.,]*\d)?|[A-Z]{3} ?\d(?:[\d.,]*\d)?|\d(?:[\d.,]*\d)? ?(?:kr\.?|€|[A-Z]{3}))`

var (
	startMarkerRe = regexp.MustCompile(`(?i)^\s*(?:items\s+in\s+order|order\s+items|items\s+ordered)\b`)
	endMarkerRe   = regexp.MustCompile(`(?i)^\s*(?:buyer\s+information|estimated\s+weight|order\s+summary|sub\s*-?\s*total|grand\s*-?\s*total)\b`)
	batchTotalRe  = regexp.MustCompile(`(?i)^\s*batch\s+total\b`)

	// tableTerminalRe captures condition, quantity, unit price, line total
	// and weight.
	tableTerminalRe = regexp.MustCompile(`^(?:((?i:new|used))\b.*?\s)?(\d+)\s+(` + money + `)\s+(` + money + `)(?:\s+(\d+(?:[.,]\d+)?) ?g)?$`)

	// looseTableRowRe matches a table row whose quantity or money did not
	// parse, capturing the quantity token and the rest of the row.
	looseTableRowRe = regexp.MustCompile(`^(?i:new|used)\s+(\S+)(?:\s+(.*))?$`)

	// labelledTerminalRe captures leading text, the quantity token and the
	// price text.
	labelledTerminalRe = regexp.MustCompile(`(?i)^(.*?)\bq(?:ty|uantity)\.?\s*:?\s*(\S+)\s+(?:unit\s+)?price\.?\s*:?\s*(.+)$`)

	partNumberRe = regexp.MustCompile(`(?i)\b(?:(?:part|item)\s*(?:no\.?|#|number)|sku)\s*:?\s*([A-Z0-9][A-Z0-9.\-]*)`)
	weightLineRe = regexp.MustCompile(`(?i)^(?:weight\s*:?\s*)?(\d+(?:[.,]\d+)?)\s?g$`)
	weightAnyRe  = regexp.MustCompile(`\d(?:[.,]\d+)?\s?g\b`)
	conditionRe  = regexp.MustCompile(`(?i)^(?:condition\s*:?\s*)?(new|used)$`)
)

var skipLineRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(?:image|condition|item\s+description|description|lots?|qty|quantity|price|unit\s+price|each|total|weight)$`),
	regexp.MustCompile(`(?i)^(?:image\s+)?(?:condition\s+)?item\s+description\b`),
	regexp.MustCompile(`(?i)^batch\s*(?:#|no\b|total\b)`),
	regexp.MustCompile(`(?i)^submitted\s+on\b`),
	regexp.MustCompile(`^\*`),
	regexp.MustCompile(`(?i)^parts?:`),
	regexp.MustCompile(`(?i)^page\s+\d+(?:\s*(?:of|/)\s*\d+)?$`),
	regexp.MustCompile(`(?i)\(continued\)$`),
	regexp.MustCompile(`(?i)^continued\b`),
	regexp.MustCompile(`^[-=_]{3,}$`),
	startMarkerRe,
}

// isSkipLine reports whether a trimmed line is a column header, batch line
// or page furniture.
func isSkipLine(text string) bool {
	for _, re := range skipLineRes {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

func isTerminal(text string) bool {
	return tableTerminalRe.MatchString(text) || labelledTerminalRe.MatchString(text)
}
