package converter

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/invoice-landed-cost/internal/config"
	"github.com/ginjaninja78/invoice-landed-cost/internal/currency"
	"github.com/ginjaninja78/invoice-landed-cost/internal/types"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func rawDoc(lines ...string) *types.RawDocument {
	return types.NewRawDocument("order.txt", strings.Join(lines, "\n"))
}

// brickLinkInvoice is a two-item AUD order: subtotal 1.50, shipping 0.15.
var brickLinkInvoice = []string{
	"Order #21345678",
	"Order Date: Mar 5, 2024 10:31",
	"Seller: Example Bricks",
	"Items in Order",
	"Image Condition Item Description Lots Qty Price Total Weight",
	"Batch #1",
	"Red",
	"Brick 2 x 4",
	"New 2 AU $0.500 AU $1.00 4.6g",
	"Part No: 3001",
	"Light Bluish Gray",
	"Plate 1 x 2 with",
	"Door Rail",
	"New 10 AU $0.050 AU $0.50 3.2g",
	"Part No: 32028",
	"Batch Total: AU $1.50",
	"Order Summary",
	"Order Total: AU $1.50",
	"Shipping: AU $0.15",
	"Grand Total: AU $1.65",
	"Buyer Information",
}

// dollarInvoice has three items, the second with an unreadable quantity.
var dollarInvoice = []string{
	"Order #1001",
	"Order Date: 2024-01-15",
	"Items in Order",
	"Red",
	"Brick 2 x 4",
	"Qty: 2 Price: $5.00",
	"Blue",
	"Plate 1 x 1",
	"Qty: abc Price: $1.00",
	"Green",
	"Tile 1 x 2",
	"Qty: 4 Price: $2.50",
	"Order Summary",
	"Subtotal: $20.00",
	"Shipping: $2.00",
	"Grand Total: $22.00",
}

func TestProcessBrickLinkInvoice(t *testing.T) {
	doc, err := Process(rawDoc(brickLinkInvoice...), DefaultOptions())
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if doc.Currency.Code != types.AUD || doc.Currency.LowConfidence() {
		t.Errorf("currency = %+v", doc.Currency)
	}
	if doc.Header.OrderNumber != "21345678" {
		t.Errorf("order number = %q", doc.Header.OrderNumber)
	}
	if len(doc.Flags) != 0 {
		t.Errorf("flags = %v, diagnostics = %+v", doc.Flags, doc.Diagnostics)
	}
	if len(doc.Records) != 2 {
		t.Fatalf("got %d records, want 2", len(doc.Records))
	}

	tests := []struct {
		partNumber, color  string
		quantity           int
		unit, adjustedUnit string
		adjustedTotal      string
	}{
		{"3001", "Red", 2, "0.5", "0.55", "1.10"},
		{"32028", "Light Bluish Gray", 10, "0.05", "0.055", "0.55"},
	}
	for i, tt := range tests {
		r := doc.Records[i]
		if r.PartNumber != tt.partNumber || r.Color != tt.color || r.Quantity != tt.quantity {
			t.Errorf("record %d = %+v", i, r)
		}
		if !r.OriginalUnitPrice.Equal(dec(tt.unit)) {
			t.Errorf("record %d unit = %s, want %s", i, r.OriginalUnitPrice, tt.unit)
		}
		if !r.AdjustedUnitPrice.Equal(dec(tt.adjustedUnit)) {
			t.Errorf("record %d adjusted unit = %s, want %s", i, r.AdjustedUnitPrice, tt.adjustedUnit)
		}
		if !r.AdjustedTotal.Equal(dec(tt.adjustedTotal)) {
			t.Errorf("record %d adjusted total = %s, want %s", i, r.AdjustedTotal, tt.adjustedTotal)
		}
		if r.OrderDate != "2024-03-05" || r.Currency != types.AUD || !r.Shipping.Equal(dec("0.15")) {
			t.Errorf("record %d header fields = %+v", i, r)
		}
		if !r.OverheadPercentage.Equal(dec("10")) {
			t.Errorf("record %d percentage = %s", i, r.OverheadPercentage)
		}
	}

	if !doc.Distribution.AdjustedSum.Equal(dec("1.65")) {
		t.Errorf("adjusted sum = %s", doc.Distribution.AdjustedSum)
	}
}

func TestProcessSkipsUnparseableItem(t *testing.T) {
	doc, err := Process(rawDoc(dollarInvoice...), DefaultOptions())
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if !doc.PartiallyParsed() {
		t.Error("document not flagged partially parsed")
	}
	if !doc.HasFlag(types.FlagLowConfidenceCurrency) {
		t.Errorf("flags = %v, want low-confidence-currency", doc.Flags)
	}
	if doc.ItemsSkipped != 1 || len(doc.Items) != 2 {
		t.Fatalf("skipped = %d, items = %d", doc.ItemsSkipped, len(doc.Items))
	}
	if doc.Items[0].Color != "Red" || doc.Items[1].Color != "Green" {
		t.Errorf("items = %+v", doc.Items)
	}

	var raw string
	for _, d := range doc.Diagnostics {
		if d.Flag == types.FlagPartiallyParsed {
			raw = d.RawText
		}
	}
	if !strings.Contains(raw, "Qty: abc") {
		t.Errorf("raw text = %q", raw)
	}

	// The surviving items still reconcile against the printed subtotal.
	if doc.HasFlag(types.FlagReconciliationFailure) {
		t.Errorf("unexpected reconciliation failure: %+v", doc.Distribution)
	}
}

func TestProcessSkipsBadTableRow(t *testing.T) {
	lines := append([]string(nil), brickLinkInvoice...)
	for i, l := range lines {
		if l == "New 2 AU $0.500 AU $1.00 4.6g" {
			lines[i] = "New abc AU $0.500 AU $1.00 4.6g"
		}
	}

	doc, err := Process(rawDoc(lines...), DefaultOptions())
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if !doc.PartiallyParsed() {
		t.Errorf("flags = %v, want partially-parsed", doc.Flags)
	}
	if doc.HasFlag(types.FlagNoiseDiscarded) || doc.NoiseBlocks != 0 {
		t.Errorf("item reported as noise: %+v", doc.Diagnostics)
	}
	if doc.ItemsSkipped != 1 || len(doc.Items) != 1 {
		t.Fatalf("skipped = %d, items = %d", doc.ItemsSkipped, len(doc.Items))
	}
	if doc.Items[0].PartNumber != "32028" {
		t.Errorf("surviving item = %+v", doc.Items[0])
	}

	for _, d := range doc.Diagnostics {
		if d.Flag != types.FlagPartiallyParsed {
			continue
		}
		if d.Severity != types.SeverityWarning || !strings.Contains(d.RawText, "New abc") || !strings.Contains(d.Message, `"abc"`) {
			t.Errorf("diagnostic = %+v", d)
		}
	}
}

func TestProcessIsIdempotent(t *testing.T) {
	text := rawDoc(dollarInvoice...)

	first, err := Process(text, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	second, err := Process(text, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}

	a, err := yaml.Marshal(first)
	if err != nil {
		t.Fatal(err)
	}
	b, err := yaml.Marshal(second)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Errorf("outputs differ:\n%s\n---\n%s", a, b)
	}
	if !reflect.DeepEqual(first.Records, second.Records) {
		t.Error("records differ between runs")
	}
}

func TestProcessStructureErrors(t *testing.T) {
	tests := []struct {
		name    string
		lines   []string
		missing string
	}{
		{"no order number", []string{"Items in Order", "Subtotal: $1.00"}, "order number"},
		{"no totals", []string{"Order #5", "Items in Order", "Buyer Information"}, "order subtotal or grand total"},
		{"no items section", []string{"Order #5", "Subtotal: $1.00"}, "item section start marker"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Process(rawDoc(tt.lines...), DefaultOptions())
			var se *types.StructureError
			if !errors.As(err, &se) {
				t.Fatalf("err = %v, want *types.StructureError", err)
			}
			if se.Missing != tt.missing {
				t.Errorf("missing = %q, want %q", se.Missing, tt.missing)
			}
		})
	}
}

func TestProcessGrandTotalMismatch(t *testing.T) {
	lines := append([]string(nil), dollarInvoice...)
	for i, l := range lines {
		if strings.HasPrefix(l, "Grand Total") {
			lines[i] = "Grand Total: $25.00"
		}
	}

	doc, err := Process(rawDoc(lines...), DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if !doc.HasFlag(types.FlagGrandTotalMismatch) {
		t.Errorf("flags = %v", doc.Flags)
	}
}

func TestProcessDollarDefault(t *testing.T) {
	opts := DefaultOptions()
	opts.DollarDefault = types.AUD

	doc, err := Process(rawDoc(dollarInvoice...), opts)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Currency.Code != types.AUD || doc.Records[0].Currency != types.AUD {
		t.Errorf("currency = %+v", doc.Currency)
	}
}

func TestProcessConvertsToBaseCurrency(t *testing.T) {
	opts := DefaultOptions()
	opts.Exchange = currency.NewExchange("usd", map[string]float64{"AUD": 0.5})

	doc, err := Process(rawDoc(brickLinkInvoice...), opts)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if doc.ReportingCurrency != types.USD || !doc.ExchangeRate.Equal(dec("0.5")) {
		t.Errorf("reporting = %s at %s", doc.ReportingCurrency, doc.ExchangeRate)
	}
	if !doc.Header.Subtotal.Equal(dec("1.50")) {
		t.Errorf("printed header changed: %s", doc.Header.Subtotal)
	}

	r := doc.Records[0]
	if r.Currency != types.USD || r.OriginalCurrency != types.AUD {
		t.Errorf("record currencies = %s / %s", r.Currency, r.OriginalCurrency)
	}
	if !r.Subtotal.Equal(dec("0.75")) || !r.OriginalUnitPrice.Equal(dec("0.25")) {
		t.Errorf("record not converted: %+v", r)
	}
	if doc.HasFlag(types.FlagReconciliationFailure) {
		t.Errorf("reconciliation failed after conversion: %+v", doc.Distribution)
	}
}

func TestProcessMissingExchangeRate(t *testing.T) {
	opts := DefaultOptions()
	opts.Exchange = currency.NewExchange("EUR", map[string]float64{"USD": 0.9})

	doc, err := Process(rawDoc(brickLinkInvoice...), opts)
	if err != nil {
		t.Fatal(err)
	}
	if !doc.HasFlag(types.FlagUnconvertedCurrency) {
		t.Errorf("flags = %v", doc.Flags)
	}
	if doc.ReportingCurrency != types.AUD || doc.Records[0].Currency != types.AUD {
		t.Errorf("reporting currency = %s", doc.ReportingCurrency)
	}
}

func TestAssembleCopiesHeaderOntoEveryRow(t *testing.T) {
	h := types.DefaultOrderHeader()
	h.OrderNumber = "77"
	h.OrderDate = types.OrderDate{Raw: "sometime"}
	h.Subtotal = dec("10")
	h.Credit = dec("1")

	adjusted := []types.AdjustedItemRecord{
		{ItemRecord: types.ItemRecord{PartNumber: "A", Quantity: 1}, AdjustedTotal: dec("4")},
		{ItemRecord: types.ItemRecord{PartNumber: "B", Quantity: 2}, AdjustedTotal: dec("5")},
	}
	origin := Origin{SourceFile: "x.pdf", Currency: types.GBP, OriginalCurrency: types.GBP, ExchangeRate: dec("1")}

	records := Assemble(h, origin, adjusted)
	if len(records) != 2 {
		t.Fatalf("got %d records", len(records))
	}
	for i, r := range records {
		if r.OrderNumber != "77" || r.OrderDate != "sometime" || r.SourceFile != "x.pdf" {
			t.Errorf("record %d = %+v", i, r)
		}
		if !r.Credit.Equal(dec("1")) || r.Currency != types.GBP {
			t.Errorf("record %d header money = %+v", i, r)
		}
		if r.PartNumber != adjusted[i].PartNumber || !r.AdjustedTotal.Equal(adjusted[i].AdjustedTotal) {
			t.Errorf("record %d item fields = %+v", i, r)
		}
	}

	if got := Assemble(h, origin, nil); len(got) != 0 {
		t.Errorf("no items produced %d records", len(got))
	}
}

func TestNewOptions(t *testing.T) {
	cfg, err := config.ParseMainConfig([]byte("currency: {base_currency: AUD, exchange_rates: {USD: 1.5}}"))
	if err != nil {
		t.Fatal(err)
	}
	opts := NewOptions(cfg, config.ParserSettings{
		ExtraColors:    []string{"Coral"},
		LookaheadLines: 5,
		DollarDefault:  "CAD",
	})

	if opts.DollarDefault != types.CAD || opts.Items.LookaheadLines != 5 {
		t.Errorf("opts = %+v", opts)
	}
	if opts.Items.MaxQuantity != 100000 {
		t.Errorf("max quantity = %d", opts.Items.MaxQuantity)
	}
	if last := opts.Items.Colors[len(opts.Items.Colors)-1]; last != "Coral" {
		t.Errorf("extra color missing, last = %q", last)
	}
	if !opts.Exchange.Enabled() || opts.Exchange.Base != types.AUD {
		t.Errorf("exchange = %+v", opts.Exchange)
	}
}

// =============================================================================
// CONVERTER TESTS
// =============================================================================

func writeInvoice(t *testing.T, name string, lines []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestConverterRun(t *testing.T) {
	path := writeInvoice(t, "order_1001.txt", dollarInvoice)

	result := New(path, DefaultOptions()).WithProfile("default").Run(context.Background())
	if !result.Success || result.Error != nil {
		t.Fatalf("Run: %+v", result)
	}
	if result.Profile != "default" || result.Document == nil {
		t.Errorf("result = %+v", result)
	}

	s := result.Stats
	if s.Lines != len(dollarInvoice) || s.Pages != 1 {
		t.Errorf("lines/pages = %d/%d", s.Lines, s.Pages)
	}
	if s.ItemsParsed != 2 || s.ItemsSkipped != 1 {
		t.Errorf("items = %d parsed, %d skipped", s.ItemsParsed, s.ItemsSkipped)
	}
	if s.Warnings != 2 {
		t.Errorf("warnings = %d, want 2 (currency, skipped item)", s.Warnings)
	}
	if s.ProcessingTime <= 0 {
		t.Errorf("processing time = %v", s.ProcessingTime)
	}
}

func TestConverterRunFailures(t *testing.T) {
	structure := writeInvoice(t, "broken.txt", []string{"Subtotal: $1.00"})
	result := New(structure, DefaultOptions()).Run(context.Background())
	if result.Success || !result.StructureFailure() {
		t.Errorf("structure failure not reported: %+v", result)
	}

	missing := filepath.Join(t.TempDir(), "nope.txt")
	result = New(missing, DefaultOptions()).Run(context.Background())
	if result.Success || result.Error == nil || result.StructureFailure() {
		t.Errorf("missing file result = %+v", result)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result = New(writeInvoice(t, "ok.txt", dollarInvoice), DefaultOptions()).Run(ctx)
	if result.Success || !errors.Is(result.Error, context.Canceled) {
		t.Errorf("cancelled result = %+v", result)
	}
}
