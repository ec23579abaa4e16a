// =============================================================================
// Landed Cost Calculator - Shared Types
// =============================================================================
//
// This package contains shared types used across multiple modules to avoid
// import cycles. Types defined here are used by:
//   - currency
//   - header
//   - items
//   - overhead
//   - converter
//   - csvwriter / xlsxwriter
//
// MONEY:
//   Every monetary amount is a decimal.Decimal. Binary floats are never used
//   for money so that the reconciliation check compares exact sums.
//
// =============================================================================

package types

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// RAW DOCUMENT
// =============================================================================

// RawDocument is the text of one invoice as produced by the text extraction
// step: an ordered list of lines for each page.
type RawDocument struct {
	// Source identifies where the text came from (usually a file path).
	Source string

	// Pages holds the lines of each page, in page order.
	Pages [][]string
}

// NewRawDocument builds a single-page document from raw text.
// A form feed character starts a new page.
func NewRawDocument(source, text string) *RawDocument {
	doc := &RawDocument{Source: source}
	for _, page := range strings.Split(text, "\f") {
		page = strings.ReplaceAll(page, "\r\n", "\n")
		doc.Pages = append(doc.Pages, strings.Split(page, "\n"))
	}
	return doc
}

// Lines returns every line of the document in order, each paired with the
// 1-indexed page it came from.
func (d *RawDocument) Lines() []Line {
	var lines []Line
	for p, page := range d.Pages {
		for _, text := range page {
			lines = append(lines, Line{Text: text, Page: p + 1, Index: len(lines)})
		}
	}
	return lines
}

// Text returns the whole document joined with newlines.
func (d *RawDocument) Text() string {
	var b strings.Builder
	for p, page := range d.Pages {
		if p > 0 {
			b.WriteString("\n")
		}
		b.WriteString(strings.Join(page, "\n"))
	}
	return b.String()
}

// Line is a single text line of a RawDocument.
type Line struct {
	Text  string
	Page  int
	Index int
}

// =============================================================================
// CURRENCY TYPES
// =============================================================================

// CurrencyCode is a supported ISO currency code.
type CurrencyCode string

const (
	USD             CurrencyCode = "USD"
	AUD             CurrencyCode = "AUD"
	EUR             CurrencyCode = "EUR"
	GBP             CurrencyCode = "GBP"
	SEK             CurrencyCode = "SEK"
	CAD             CurrencyCode = "CAD"
	NZD             CurrencyCode = "NZD"
	DKK             CurrencyCode = "DKK"
	UnknownCurrency CurrencyCode = "UNKNOWN"
)

// CommaDecimal reports whether amounts in this currency are usually written
// with a comma as the decimal separator.
func (c CurrencyCode) CommaDecimal() bool {
	switch c {
	case EUR, SEK, DKK:
		return true
	}
	return false
}

// Confidence grades how a currency was detected.
type Confidence string

const (
	// ConfidenceDefinite means an unambiguous code or symbol matched.
	ConfidenceDefinite Confidence = "definite"

	// ConfidenceHeuristic means a fallback rule picked the currency,
	// e.g. a bare "$" defaulting to USD.
	ConfidenceHeuristic Confidence = "heuristic-default"

	// ConfidenceNone means nothing matched.
	ConfidenceNone Confidence = "none"
)

// CurrencyInfo is the result of currency detection.
type CurrencyInfo struct {
	// Code is the detected currency, or UnknownCurrency.
	Code CurrencyCode `yaml:"code"`

	// Symbol is the currency marker exactly as it appears in the text
	// ("AU $", "€", "EUR", "$"). Empty when Code is UnknownCurrency.
	Symbol string `yaml:"symbol"`

	// Confidence tells callers whether the detection needs review.
	Confidence Confidence `yaml:"confidence"`
}

// LowConfidence reports whether the detection came from a fallback rule.
func (c CurrencyInfo) LowConfidence() bool {
	return c.Confidence != ConfidenceDefinite
}

// =============================================================================
// ORDER HEADER
// =============================================================================

// HeaderField names an order header field.
type HeaderField string

const (
	FieldOrderNumber       HeaderField = "order_number"
	FieldOrderDate         HeaderField = "order_date"
	FieldSubtotal          HeaderField = "subtotal"
	FieldShipping          HeaderField = "shipping"
	FieldInsurance         HeaderField = "insurance"
	FieldAdditionalCharges HeaderField = "additional_charges"
	FieldCredit            HeaderField = "credit"
	FieldGrandTotal        HeaderField = "grand_total"
)

// FieldSet records which header fields were actually found in the text.
type FieldSet map[HeaderField]bool

// OrderDate keeps the date text as printed and, when it could be parsed,
// the parsed value.
type OrderDate struct {
	Raw    string    `yaml:"raw"`
	Time   time.Time `yaml:"time,omitempty"`
	Parsed bool      `yaml:"parsed"`
}

// String returns the ISO date when parsed, the raw text otherwise.
func (d OrderDate) String() string {
	if d.Parsed {
		return d.Time.Format("2006-01-02")
	}
	return d.Raw
}

// OrderHeader holds the order-level fields of an invoice.
type OrderHeader struct {
	OrderNumber       string          `yaml:"order_number"`
	OrderDate         OrderDate       `yaml:"order_date"`
	Subtotal          decimal.Decimal `yaml:"subtotal"`
	Shipping          decimal.Decimal `yaml:"shipping"`
	Insurance         decimal.Decimal `yaml:"insurance"`
	AdditionalCharges decimal.Decimal `yaml:"additional_charges"`

	// Credit is a non-negative magnitude that is subtracted from the order.
	Credit decimal.Decimal `yaml:"credit"`

	GrandTotal decimal.Decimal `yaml:"grand_total"`

	// Found lists the fields that were present in the text.
	Found FieldSet `yaml:"found"`
}

// DefaultOrderHeader returns a header with every field set to its default:
// zero for money and the empty string for identifiers. Extraction starts
// from this value and overwrites only what it finds, so a missing field can
// never reach the arithmetic as anything but zero.
func DefaultOrderHeader() OrderHeader {
	return OrderHeader{
		Subtotal:          decimal.Zero,
		Shipping:          decimal.Zero,
		Insurance:         decimal.Zero,
		AdditionalCharges: decimal.Zero,
		Credit:            decimal.Zero,
		GrandTotal:        decimal.Zero,
		Found:             FieldSet{},
	}
}

// OverheadTotal is shipping + insurance + additional charges - credit.
func (h OrderHeader) OverheadTotal() decimal.Decimal {
	return h.Shipping.Add(h.Insurance).Add(h.AdditionalCharges).Sub(h.Credit)
}

// =============================================================================
// ITEM TYPES
// =============================================================================

// ItemBlock is the contiguous run of text lines describing one line item.
type ItemBlock struct {
	// Lines are the block's text lines, trimmed.
	Lines []string

	// FirstLine is the document-wide index of the first line.
	FirstLine int

	// Pages lists the pages the block spans.
	Pages []int

	// Terminated is true when the block ends with a quantity/price line.
	Terminated bool
}

// RawText returns the block joined with newlines, for diagnostics.
func (b ItemBlock) RawText() string {
	return strings.Join(b.Lines, "\n")
}

// ItemRecord is one parsed line item.
type ItemRecord struct {
	Condition   string `yaml:"condition"`
	Color       string `yaml:"color"`
	Description string `yaml:"description"`
	PartNumber  string `yaml:"part_number"`

	// Quantity is always >= 1.
	Quantity int `yaml:"quantity"`

	OriginalUnitPrice decimal.Decimal `yaml:"original_unit_price"`

	// LineTotal is the item total as printed on the invoice, if any.
	LineTotal *decimal.Decimal `yaml:"line_total,omitempty"`

	// Weight is the printed weight in grams, if any.
	Weight *decimal.Decimal `yaml:"weight,omitempty"`
}

// AdjustedItemRecord is an item with its share of the order overhead.
type AdjustedItemRecord struct {
	ItemRecord `yaml:",inline"`

	OverheadRate       decimal.Decimal `yaml:"overhead_rate"`
	OverheadPercentage decimal.Decimal `yaml:"overhead_percentage"`
	OverheadAmount     decimal.Decimal `yaml:"overhead_amount"`
	AdjustedUnitPrice  decimal.Decimal `yaml:"adjusted_unit_price"`
	OriginalTotal      decimal.Decimal `yaml:"original_total"`
	AdjustedTotal      decimal.Decimal `yaml:"adjusted_total"`
}

// Distribution is the output of the overhead distribution engine.
type Distribution struct {
	Items []AdjustedItemRecord `yaml:"items"`

	OverheadTotal decimal.Decimal `yaml:"overhead_total"`
	OverheadRate  decimal.Decimal `yaml:"overhead_rate"`

	// ExpectedTotal is subtotal + overhead total.
	ExpectedTotal decimal.Decimal `yaml:"expected_total"`

	// AdjustedSum is the sum of every item's adjusted total.
	AdjustedSum decimal.Decimal `yaml:"adjusted_sum"`

	// Discrepancy is |AdjustedSum - ExpectedTotal|.
	Discrepancy decimal.Decimal `yaml:"discrepancy"`

	// Tolerance is one minor unit per item.
	Tolerance decimal.Decimal `yaml:"tolerance"`

	Flags []Flag `yaml:"flags,omitempty"`
}

// =============================================================================
// OUTPUT RECORD
// =============================================================================

// OutputRecord is one flat row handed to an output sink. Header fields are
// repeated on every item row.
type OutputRecord struct {
	SourceFile         string
	OrderNumber        string
	OrderDate          string
	Currency           CurrencyCode
	OriginalCurrency   CurrencyCode
	ExchangeRate       decimal.Decimal
	Condition          string
	Color              string
	Description        string
	PartNumber         string
	Quantity           int
	OriginalUnitPrice  decimal.Decimal
	OverheadPercentage decimal.Decimal
	OverheadAmount     decimal.Decimal
	AdjustedUnitPrice  decimal.Decimal
	OriginalTotal      decimal.Decimal
	AdjustedTotal      decimal.Decimal
	Weight             *decimal.Decimal
	Subtotal           decimal.Decimal
	Shipping           decimal.Decimal
	Insurance          decimal.Decimal
	AdditionalCharges  decimal.Decimal
	Credit             decimal.Decimal
	GrandTotal         decimal.Decimal
}

// =============================================================================
// DIAGNOSTICS
// =============================================================================

// Flag marks a condition a downstream consumer may want to review.
type Flag string

const (
	FlagPartiallyParsed        Flag = "partially-parsed"
	FlagLowConfidenceCurrency  Flag = "low-confidence-currency"
	FlagUnknownCurrency        Flag = "unknown-currency"
	FlagUnreliableOverheadRate Flag = "unreliable-overhead-rate"
	FlagReconciliationFailure  Flag = "reconciliation-failure"
	FlagGrandTotalMismatch     Flag = "grand-total-mismatch"
	FlagNoiseDiscarded         Flag = "noise-discarded"
	FlagNoItems                Flag = "no-items"
	FlagUnconvertedCurrency    Flag = "unconverted-currency"
)

// Severity grades a diagnostic.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Diagnostic is a single per-document or per-item finding.
type Diagnostic struct {
	Severity Severity `yaml:"severity"`
	Flag     Flag     `yaml:"flag"`
	Message  string   `yaml:"message"`

	// RawText holds the offending source text, when there is one.
	RawText string `yaml:"raw_text,omitempty"`
}
