package items

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/invoice-landed-cost/internal/types"
)

var (
	aud    = types.CurrencyInfo{Code: types.AUD, Symbol: "AU $", Confidence: types.ConfidenceDefinite}
	dollar = types.CurrencyInfo{Code: types.USD, Symbol: "$", Confidence: types.ConfidenceHeuristic}
)

func newDoc(lines ...string) *types.RawDocument {
	return types.NewRawDocument("items.txt", strings.Join(lines, "\n"))
}

func scanAll(t *testing.T, doc *types.RawDocument, settings Settings) ([]types.ItemBlock, []types.ItemBlock) {
	t.Helper()
	scanner, err := NewBlockScanner(doc, settings)
	if err != nil {
		t.Fatalf("NewBlockScanner: %v", err)
	}
	var blocks []types.ItemBlock
	for scanner.Next() {
		blocks = append(blocks, scanner.Block())
	}
	return blocks, scanner.Noise()
}

func settingsFor(info types.CurrencyInfo) Settings {
	s := DefaultSettings()
	s.Currency = info
	return s
}

// =============================================================================
// SCANNER TESTS
// =============================================================================

func TestScannerBrickLinkLayout(t *testing.T) {
	doc := newDoc(
		"Order #21345678",
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
		"Buyer Information",
		"Red",
	)

	blocks, noise := scanAll(t, doc, settingsFor(aud))
	if len(blocks) != 2 {
		t.Fatalf("got %d blocks, want 2: %+v", len(blocks), blocks)
	}
	if len(noise) != 0 {
		t.Errorf("unexpected noise: %+v", noise)
	}

	want := [][]string{
		{"Red", "Brick 2 x 4", "New 2 AU $0.500 AU $1.00 4.6g", "Part No: 3001"},
		{"Light Bluish Gray", "Plate 1 x 2 with", "Door Rail", "New 10 AU $0.050 AU $0.50 3.2g", "Part No: 32028"},
	}
	for i, b := range blocks {
		if strings.Join(b.Lines, "|") != strings.Join(want[i], "|") {
			t.Errorf("block %d = %q, want %q", i, b.Lines, want[i])
		}
		if !b.Terminated {
			t.Errorf("block %d not terminated", i)
		}
	}
	if blocks[0].FirstLine != 4 {
		t.Errorf("first block starts at line %d, want 4", blocks[0].FirstLine)
	}
}

func TestScannerPageBreak(t *testing.T) {
	text := strings.Join([]string{
		"Order #1",
		"Items in Order",
		"Red",
		"Brick 2 x 4",
		"Page 1 of 2",
	}, "\n") + "\f" + strings.Join([]string{
		"Page 2 of 2",
		"Items in Order (continued)",
		"Image Condition Item Description Lots Qty Price Total Weight",
		"New 2 AU $0.500 AU $1.00",
		"Buyer Information",
	}, "\n")

	blocks, noise := scanAll(t, types.NewRawDocument("paged.txt", text), settingsFor(aud))
	if len(blocks) != 1 {
		t.Fatalf("got %d blocks, want 1", len(blocks))
	}
	if len(noise) != 0 {
		t.Errorf("unexpected noise: %+v", noise)
	}
	b := blocks[0]
	if len(b.Lines) != 3 {
		t.Errorf("lines = %q", b.Lines)
	}
	if len(b.Pages) != 2 || b.Pages[0] != 1 || b.Pages[1] != 2 {
		t.Errorf("pages = %v, want [1 2]", b.Pages)
	}
}

func TestScannerDiscardsInterleavedNoise(t *testing.T) {
	doc := newDoc(
		"Items in Order",
		"Red",
		"Brick",
		"New 1 AU $1.00 AU $1.00",
		"Free shipping on orders over $50!",
		"Visit our store",
		"Blue",
		"Plate",
		"New 3 AU $0.10 AU $0.30",
		"Buyer Information",
	)

	blocks, noise := scanAll(t, doc, settingsFor(aud))
	if len(blocks) != 2 {
		t.Fatalf("got %d blocks, want 2", len(blocks))
	}
	if len(noise) != 1 {
		t.Fatalf("got %d noise runs, want 1: %+v", len(noise), noise)
	}
	if got := strings.Join(noise[0].Lines, "|"); got != "Free shipping on orders over $50!|Visit our store" {
		t.Errorf("noise = %q", got)
	}
}

func TestScannerLookaheadShedsOldestLines(t *testing.T) {
	settings := settingsFor(dollar)
	settings.LookaheadLines = 3

	doc := newDoc(
		"Order Items",
		"Red",
		"a", "b", "c", "d", "e",
		"Qty: 1 Price: $1.00",
		"Order Summary",
	)

	blocks, noise := scanAll(t, doc, settings)
	if len(blocks) != 1 {
		t.Fatalf("got %d blocks, want 1", len(blocks))
	}
	if got := strings.Join(blocks[0].Lines, "|"); got != "c|d|e|Qty: 1 Price: $1.00" {
		t.Errorf("block = %q", got)
	}
	if len(noise) != 1 || strings.Join(noise[0].Lines, "|") != "Red|a|b" {
		t.Errorf("noise = %+v", noise)
	}
}

func TestScannerUnterminatedTailIsNoise(t *testing.T) {
	doc := newDoc(
		"Items in Order",
		"Blue",
		"Plate",
		"Qty: 3 Price: $0.30",
		"Thank you for your order",
		"Batch Total: $0.90",
	)

	blocks, noise := scanAll(t, doc, settingsFor(dollar))
	if len(blocks) != 1 {
		t.Fatalf("got %d blocks, want 1", len(blocks))
	}
	if len(noise) != 1 || noise[0].Lines[0] != "Thank you for your order" {
		t.Errorf("noise = %+v", noise)
	}
}

func TestScannerEmitsUnterminatedItem(t *testing.T) {
	doc := newDoc(
		"Items in Order",
		"Red",
		"Brick 2 x 4",
		"New abc AU $0.500 AU $1.00 4.6g",
		"Part No: 3001",
		"Light Bluish Gray",
		"Plate 1 x 2",
		"New 10 AU $0.050 AU $0.50 3.2g",
		"Blue",
		"Tile 1 x 1",
		"Buyer Information",
	)

	blocks, noise := scanAll(t, doc, settingsFor(aud))
	if len(noise) != 0 {
		t.Errorf("unexpected noise: %+v", noise)
	}
	if len(blocks) != 3 {
		t.Fatalf("got %d blocks, want 3: %+v", len(blocks), blocks)
	}

	want := []struct {
		first      string
		lines      int
		terminated bool
	}{
		{"Red", 4, false},
		{"Light Bluish Gray", 3, true},
		{"Blue", 2, false},
	}
	for i, w := range want {
		b := blocks[i]
		if b.Lines[0] != w.first || len(b.Lines) != w.lines || b.Terminated != w.terminated {
			t.Errorf("block %d = %q (terminated %v)", i, b.Lines, b.Terminated)
		}
	}

	p := NewFieldParser(settingsFor(aud))
	if _, fail := p.Parse(blocks[0]); fail == nil || fail.Field != "quantity" || !strings.Contains(fail.Reason, `"abc"`) {
		t.Errorf("first block failure = %v", fail)
	}
	if _, fail := p.Parse(blocks[2]); fail == nil || fail.Reason != "no quantity and price line" {
		t.Errorf("last block failure = %v", fail)
	}
}

func TestScannerConditionLineBeforeColor(t *testing.T) {
	doc := newDoc(
		"Items in Order",
		"Used",
		"Black",
		"Tile 1 x 1",
		"Qty: 5 Price: $0.02",
		"Grand Total: $0.10",
	)

	blocks, noise := scanAll(t, doc, settingsFor(dollar))
	if len(blocks) != 1 || len(noise) != 0 {
		t.Fatalf("blocks = %+v, noise = %+v", blocks, noise)
	}
	rec, fail := NewFieldParser(settingsFor(dollar)).Parse(blocks[0])
	if fail != nil {
		t.Fatalf("Parse: %v", fail)
	}
	if rec.Condition != "Used" || rec.Color != "Black" || rec.Description != "Tile 1 x 1" {
		t.Errorf("record = %+v", rec)
	}
}

func TestScannerStructureErrors(t *testing.T) {
	tests := []struct {
		name    string
		doc     *types.RawDocument
		missing string
	}{
		{"no start marker", newDoc("Order #1", "Red", "Qty: 1 Price: $1", "Buyer Information"), "item section start marker"},
		{"no end marker", newDoc("Items in Order", "Red", "Qty: 1 Price: $1"), "item section end marker"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBlockScanner(tt.doc, DefaultSettings())
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

func TestScannerBatchTotalFallback(t *testing.T) {
	doc := newDoc(
		"Items in Order",
		"Red",
		"Brick",
		"New 1 AU $1.00 AU $1.00",
		"Batch Total: AU $1.00",
		"Seller notes: Red",
	)

	blocks, _ := scanAll(t, doc, settingsFor(aud))
	if len(blocks) != 1 {
		t.Fatalf("got %d blocks, want 1", len(blocks))
	}
}

// =============================================================================
// FIELD PARSER TESTS
// =============================================================================

func TestParseMultiLineDescription(t *testing.T) {
	block := types.ItemBlock{Lines: []string{
		"Brick 2 x 4 with",
		"extra long stud",
		"Qty: 4  Price: $2.50",
	}}

	rec, fail := NewFieldParser(settingsFor(dollar)).Parse(block)
	if fail != nil {
		t.Fatalf("Parse: %v", fail)
	}
	if rec.Quantity != 4 {
		t.Errorf("quantity = %d, want 4", rec.Quantity)
	}
	if !rec.OriginalUnitPrice.Equal(decimal.RequireFromString("2.50")) {
		t.Errorf("unit price = %s, want 2.50", rec.OriginalUnitPrice)
	}
	if rec.Description != "Brick 2 x 4 with extra long stud" {
		t.Errorf("description = %q", rec.Description)
	}
}

func TestParseBrickLinkBlock(t *testing.T) {
	block := types.ItemBlock{Lines: []string{
		"Light Bluish Gray",
		"Plate 1 x 2 with",
		"Door Rail",
		"New 10 AU $0.050 AU $0.50 3.2g",
		"Part No: 32028",
	}}

	rec, fail := NewFieldParser(settingsFor(aud)).Parse(block)
	if fail != nil {
		t.Fatalf("Parse: %v", fail)
	}

	if rec.Color != "Light Bluish Gray" {
		t.Errorf("color = %q", rec.Color)
	}
	if rec.Condition != "New" {
		t.Errorf("condition = %q", rec.Condition)
	}
	if rec.PartNumber != "32028" {
		t.Errorf("part number = %q", rec.PartNumber)
	}
	if rec.Quantity != 10 {
		t.Errorf("quantity = %d", rec.Quantity)
	}
	if !rec.OriginalUnitPrice.Equal(decimal.RequireFromString("0.05")) {
		t.Errorf("unit price = %s", rec.OriginalUnitPrice)
	}
	if rec.LineTotal == nil || !rec.LineTotal.Equal(decimal.RequireFromString("0.5")) {
		t.Errorf("line total = %v", rec.LineTotal)
	}
	if rec.Weight == nil || !rec.Weight.Equal(decimal.RequireFromString("3.2")) {
		t.Errorf("weight = %v", rec.Weight)
	}
	if rec.Description != "Plate 1 x 2 with Door Rail" {
		t.Errorf("description = %q", rec.Description)
	}
}

func TestParseColorPrefixAndLeadingText(t *testing.T) {
	p := NewFieldParser(settingsFor(dollar))

	rec, fail := p.Parse(types.ItemBlock{Lines: []string{
		"Reddish Brown Arch 1 x 6",
		"Qty: 1 Price: $0.25",
	}})
	if fail != nil {
		t.Fatalf("Parse: %v", fail)
	}
	if rec.Color != "Reddish Brown" || rec.Description != "Arch 1 x 6" {
		t.Errorf("record = %+v", rec)
	}

	rec, fail = p.Parse(types.ItemBlock{Lines: []string{
		"Used Tile 1 x 1 SKU: T-11 Qty: 3 Price: $0.05",
	}})
	if fail != nil {
		t.Fatalf("Parse: %v", fail)
	}
	if rec.Condition != "Used" || rec.PartNumber != "T-11" || rec.Description != "Tile 1 x 1" {
		t.Errorf("record = %+v", rec)
	}
}

func TestParseFailures(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		field string
	}{
		{"non numeric quantity", []string{"Red", "Brick", "Qty: abc Price: $1.00"}, "quantity"},
		{"zero quantity", []string{"Brick", "Qty: 0 Price: $1.00"}, "quantity"},
		{"huge quantity", []string{"Brick", "Qty: 100001 Price: $1.00"}, "quantity"},
		{"no terminal", []string{"Red", "Brick"}, "quantity"},
		{"table row without price", []string{"Red", "Brick", "New 2 TBD"}, "unit price"},
		{"table row with bad quantity", []string{"Red", "Brick", "Used x2 AU $0.10 AU $0.20"}, "quantity"},
		{"no price", []string{"Brick", "Qty: 2 Price: TBD"}, "unit price"},
		{"negative price", []string{"Brick", "Qty: 2 Price: -$1.00"}, "unit price"},
	}

	p := NewFieldParser(settingsFor(dollar))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			block := types.ItemBlock{Lines: tt.lines, FirstLine: 7}
			_, fail := p.Parse(block)
			if fail == nil {
				t.Fatal("Parse succeeded, want failure")
			}
			if fail.Field != tt.field {
				t.Errorf("field = %q, want %q", fail.Field, tt.field)
			}
			d := fail.Diagnostic()
			if d.Flag != types.FlagPartiallyParsed {
				t.Errorf("flag = %s", d.Flag)
			}
			if d.RawText != strings.Join(tt.lines, "\n") {
				t.Errorf("raw text = %q", d.RawText)
			}
		})
	}
}

func TestExtraColors(t *testing.T) {
	settings := settingsFor(dollar).WithExtraColors([]string{"Vibrant Coral"})
	rec, fail := NewFieldParser(settings).Parse(types.ItemBlock{Lines: []string{
		"Vibrant Coral",
		"Slope 45",
		"Qty: 2 Price: $0.10",
	}})
	if fail != nil {
		t.Fatalf("Parse: %v", fail)
	}
	if rec.Color != "Vibrant Coral" {
		t.Errorf("color = %q", rec.Color)
	}
}
