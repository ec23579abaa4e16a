package converter

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/invoice-landed-cost/internal/config"
	"github.com/ginjaninja78/invoice-landed-cost/internal/currency"
	"github.com/ginjaninja78/invoice-landed-cost/internal/header"
	"github.com/ginjaninja78/invoice-landed-cost/internal/items"
	"github.com/ginjaninja78/invoice-landed-cost/internal/overhead"
	"github.com/ginjaninja78/invoice-landed-cost/internal/types"
)

// =============================================================================
// OPTIONS
// =============================================================================

// Options tunes the parse of one document.
type Options struct {
	// Items configures block scanning and field parsing. Its Currency is
	// filled in from detection.
	Items items.Settings

	// DollarDefault is the currency assumed for a bare "$".
	DollarDefault types.CurrencyCode

	// Exchange converts amounts to a base currency. The zero value
	// leaves amounts in the invoice currency.
	Exchange currency.Exchange
}

// DefaultOptions returns options with the built-in vocabulary, a USD
// dollar default and no conversion.
func DefaultOptions() Options {
	return Options{
		Items:         items.DefaultSettings(),
		DollarDefault: types.USD,
	}
}

// NewOptions builds the options for one file from the main configuration
// and the parser settings chosen for it (see config.ParserFor).
func NewOptions(cfg *config.MainConfig, parser config.ParserSettings) Options {
	settings := items.DefaultSettings().WithExtraColors(parser.ExtraColors)
	if parser.LookaheadLines > 0 {
		settings.LookaheadLines = parser.LookaheadLines
	}
	if parser.MaxQuantity > 0 {
		settings.MaxQuantity = parser.MaxQuantity
	}

	opts := Options{
		Items:         settings,
		DollarDefault: types.USD,
	}
	if parser.DollarDefault != "" {
		opts.DollarDefault = types.CurrencyCode(parser.DollarDefault)
	}
	if cfg != nil && cfg.Currency.BaseCurrency != "" {
		opts.Exchange = currency.NewExchange(cfg.Currency.BaseCurrency, cfg.Currency.ExchangeRates)
	}
	return opts
}

// =============================================================================
// DOCUMENT
// =============================================================================

// Document is everything learned from one invoice.
type Document struct {
	Source string `yaml:"source"`

	// Currency is the detected invoice currency.
	Currency types.CurrencyInfo `yaml:"currency"`

	// Header holds the order fields as printed.
	Header types.OrderHeader `yaml:"header"`

	// Items are the successfully parsed items, as printed.
	Items []types.ItemRecord `yaml:"items"`

	// ReportingCurrency is the currency of Distribution and Records: the
	// base currency when conversion applied, the invoice currency otherwise.
	ReportingCurrency types.CurrencyCode `yaml:"reporting_currency"`
	ExchangeRate      decimal.Decimal    `yaml:"exchange_rate"`

	Distribution types.Distribution   `yaml:"distribution"`
	Records      []types.OutputRecord `yaml:"-"`

	// ItemsSkipped counts blocks that failed field parsing.
	ItemsSkipped int `yaml:"items_skipped"`

	// NoiseBlocks counts runs of text discarded by the block scanner.
	NoiseBlocks int `yaml:"noise_blocks"`

	Diagnostics []types.Diagnostic `yaml:"diagnostics,omitempty"`
	Flags       []types.Flag       `yaml:"flags,omitempty"`
}

// HasFlag reports whether the document carries f.
func (d *Document) HasFlag(f types.Flag) bool {
	return overhead.HasFlag(d.Flags, f)
}

// PartiallyParsed reports whether any item block was skipped.
func (d *Document) PartiallyParsed() bool {
	return d.HasFlag(types.FlagPartiallyParsed)
}

func (d *Document) diagnose(diags ...types.Diagnostic) {
	for _, diag := range diags {
		d.Diagnostics = append(d.Diagnostics, diag)
		if !d.HasFlag(diag.Flag) {
			d.Flags = append(d.Flags, diag.Flag)
		}
	}
}

// =============================================================================
// PIPELINE
// =============================================================================

// Process runs the full parse of one document: currency detection, header
// extraction, item scanning and parsing, overhead distribution and record
// assembly.
//
// PARAMETERS:
//   - doc: the invoice text
//   - opts: parse options
//
// RETURNS:
//   - *Document: the parse result with diagnostics, even when items were
//     skipped or reconciliation failed
//   - error: a *types.StructureError when the order number, every monetary
//     total or an item section marker is missing
//
// Process is a pure function of its inputs: it never logs and the same text
// always yields the same Document.
func Process(doc *types.RawDocument, opts Options) (*Document, error) {
	info := currency.DetectWith(doc.Text(), opts.DollarDefault)

	hdr, err := header.Extract(doc, info)
	if err != nil {
		return nil, err
	}

	settings := opts.Items
	settings.Currency = info
	scanner, err := items.NewBlockScanner(doc, settings)
	if err != nil {
		return nil, err
	}

	result := &Document{
		Source:   doc.Source,
		Currency: info,
		Header:   hdr,
	}
	result.diagnose(currency.Diagnostics(info)...)

	// =========================================================================
	// ITEMS
	// =========================================================================

	parser := items.NewFieldParser(settings)
	for scanner.Next() {
		rec, failure := parser.Parse(scanner.Block())
		if failure != nil {
			result.ItemsSkipped++
			result.diagnose(failure.Diagnostic())
			continue
		}
		result.Items = append(result.Items, rec)
	}

	for _, noise := range scanner.Noise() {
		result.NoiseBlocks++
		result.diagnose(types.Diagnostic{
			Severity: types.SeverityInfo,
			Flag:     types.FlagNoiseDiscarded,
			Message:  fmt.Sprintf("discarded %d line(s) at line %d that match no item shape", len(noise.Lines), noise.FirstLine+1),
			RawText:  noise.RawText(),
		})
	}

	if overhead.GrandTotalMismatch(hdr) {
		result.diagnose(types.Diagnostic{
			Severity: types.SeverityWarning,
			Flag:     types.FlagGrandTotalMismatch,
			Message: fmt.Sprintf("printed grand total %s differs from subtotal plus overhead %s",
				hdr.GrandTotal.StringFixed(2), hdr.Subtotal.Add(hdr.OverheadTotal()).StringFixed(2)),
		})
	}

	// =========================================================================
	// CONVERSION AND DISTRIBUTION
	// =========================================================================

	reportHeader, reportItems := hdr, result.Items
	result.ReportingCurrency = info.Code
	result.ExchangeRate = decimal.NewFromInt(1)

	rate, err := opts.Exchange.Rate(info.Code)
	switch {
	case err != nil:
		result.diagnose(types.Diagnostic{
			Severity: types.SeverityWarning,
			Flag:     types.FlagUnconvertedCurrency,
			Message:  err.Error() + "; amounts left in the invoice currency",
		})
	case opts.Exchange.Enabled():
		result.ReportingCurrency = opts.Exchange.Base
		result.ExchangeRate = rate
		if !rate.Equal(decimal.NewFromInt(1)) {
			reportHeader = currency.ConvertHeader(hdr, rate)
			reportItems = currency.ConvertItems(result.Items, rate)
		}
	}

	dist := overhead.Distribute(reportHeader, reportItems)
	result.Distribution = dist
	for _, f := range dist.Flags {
		result.diagnose(distributionDiagnostic(f, reportHeader, dist))
	}

	result.Records = Assemble(reportHeader, Origin{
		SourceFile:       doc.Source,
		Currency:         result.ReportingCurrency,
		OriginalCurrency: info.Code,
		ExchangeRate:     result.ExchangeRate,
	}, dist.Items)

	return result, nil
}

// distributionDiagnostic describes a flag raised by the distribution engine.
func distributionDiagnostic(f types.Flag, h types.OrderHeader, dist types.Distribution) types.Diagnostic {
	diag := types.Diagnostic{Severity: types.SeverityWarning, Flag: f}
	switch f {
	case types.FlagUnreliableOverheadRate:
		diag.Message = fmt.Sprintf("subtotal is %s; overhead %s not distributed",
			h.Subtotal.StringFixed(2), dist.OverheadTotal.StringFixed(2))
	case types.FlagReconciliationFailure:
		diag.Message = fmt.Sprintf("adjusted totals sum to %s but order total is %s (discrepancy %s, tolerance %s)",
			dist.AdjustedSum.StringFixed(2), dist.ExpectedTotal.StringFixed(2),
			dist.Discrepancy.StringFixed(2), dist.Tolerance.StringFixed(2))
	case types.FlagNoItems:
		diag.Message = "no items could be parsed"
	default:
		diag.Message = string(f)
	}
	return diag
}
