// =============================================================================
// Landed Cost Calculator - XLSX Writer Module
// =============================================================================
//
// This module writes a run's results to an Excel workbook using excelize.
//
// WORKBOOK LAYOUT:
//   Items        one row per item, columns as types.OutputColumns
//   Summary      one row per reporting currency: orders, items, units,
//                original total, overhead and adjusted total
//   Diagnostics  every flag raised while parsing, plus failed documents
//
// Money is written as numbers with a fixed display format, so the sheet
// can be summed directly. The CSV sink keeps the exact decimal text.
//
// =============================================================================

package xlsxwriter

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/invoice-landed-cost/internal/converter"
	"github.com/ginjaninja78/invoice-landed-cost/internal/types"
)

// Sheet names.
const (
	ItemsSheet       = "Items"
	SummarySheet     = "Summary"
	DiagnosticsSheet = "Diagnostics"
)

// Workbook is the content of one output workbook.
type Workbook struct {
	Records     []types.OutputRecord
	Summary     []converter.CurrencySummary
	Diagnostics []FileDiagnostic
}

// FileDiagnostic is a diagnostic tagged with the file it came from.
type FileDiagnostic struct {
	Source string
	types.Diagnostic
}

var (
	summaryColumns     = []string{"Currency", "Orders", "Items", "Units", "Original_Total", "Overhead", "Adjusted_Total"}
	diagnosticsColumns = []string{"Source_File", "Severity", "Flag", "Message", "Raw_Text"}

	// Column formats of the Items sheet, by OutputColumns position.
	unitColumns  = []string{"L", "N", "O"}
	moneyColumns = []string{"M", "P", "Q", "S", "T", "U", "V", "W", "X"}
)

// =============================================================================
// WRITER FUNCTIONS
// =============================================================================

// Write builds the workbook and saves it to path.
//
// PARAMETERS:
//   - path: The output file path, normally ending in .xlsx.
//   - wb: The records, summary and diagnostics to write.
//
// RETURNS:
//   - An error if any sheet cannot be built or the file cannot be saved.
func Write(path string, wb Workbook) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ItemsSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	for _, name := range []string{SummarySheet, DiagnosticsSheet} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", name, err)
		}
	}

	styles, err := newStyles(f)
	if err != nil {
		return err
	}

	if err := writeItems(f, styles, wb.Records); err != nil {
		return fmt.Errorf("failed to write %s sheet: %w", ItemsSheet, err)
	}
	if err := writeSummary(f, styles, wb.Summary); err != nil {
		return fmt.Errorf("failed to write %s sheet: %w", SummarySheet, err)
	}
	if err := writeDiagnostics(f, styles, wb.Diagnostics); err != nil {
		return fmt.Errorf("failed to write %s sheet: %w", DiagnosticsSheet, err)
	}

	f.SetActiveSheet(0)
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

type styleSet struct {
	header int
	money  int
	unit   int
}

func newStyles(f *excelize.File) (styleSet, error) {
	var s styleSet
	var err error

	s.header, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDEBF7"}},
	})
	if err != nil {
		return s, fmt.Errorf("failed to create header style: %w", err)
	}

	moneyFmt, unitFmt := "0.00", "0.0000"
	if s.money, err = f.NewStyle(&excelize.Style{CustomNumFmt: &moneyFmt}); err != nil {
		return s, fmt.Errorf("failed to create money style: %w", err)
	}
	if s.unit, err = f.NewStyle(&excelize.Style{CustomNumFmt: &unitFmt}); err != nil {
		return s, fmt.Errorf("failed to create unit price style: %w", err)
	}
	return s, nil
}

// writeHeader writes a bold header row, freezes it and sizes the columns.
func writeHeader(f *excelize.File, sheet string, styles styleSet, columns []string) error {
	row := make([]interface{}, len(columns))
	for i, c := range columns {
		row[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &row); err != nil {
		return err
	}

	last, err := excelize.CoordinatesToCellName(len(columns), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, styles.header); err != nil {
		return err
	}

	lastCol, err := excelize.ColumnNumberToName(len(columns))
	if err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "A", lastCol, 16); err != nil {
		return err
	}

	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func writeItems(f *excelize.File, styles styleSet, records []types.OutputRecord) error {
	for _, col := range unitColumns {
		if err := f.SetColStyle(ItemsSheet, col, styles.unit); err != nil {
			return err
		}
	}
	for _, col := range moneyColumns {
		if err := f.SetColStyle(ItemsSheet, col, styles.money); err != nil {
			return err
		}
	}
	if err := writeHeader(f, ItemsSheet, styles, types.OutputColumns); err != nil {
		return err
	}
	if err := f.SetColWidth(ItemsSheet, "I", "I", 40); err != nil {
		return err
	}

	for i, rec := range records {
		values := rec.Values()
		row := make([]interface{}, len(values))
		for j, v := range values {
			row[j] = cellValue(v)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(ItemsSheet, cell, &row); err != nil {
			return err
		}
	}

	if len(records) > 0 {
		last, err := excelize.CoordinatesToCellName(len(types.OutputColumns), len(records)+1)
		if err != nil {
			return err
		}
		if err := f.AutoFilter(ItemsSheet, "A1:"+last, nil); err != nil {
			return err
		}
	}
	return nil
}

func writeSummary(f *excelize.File, styles styleSet, summary []converter.CurrencySummary) error {
	if err := f.SetColStyle(SummarySheet, "E:G", styles.money); err != nil {
		return err
	}
	if err := writeHeader(f, SummarySheet, styles, summaryColumns); err != nil {
		return err
	}

	for i, s := range summary {
		row := []interface{}{
			string(s.Currency), s.Orders, s.Items, s.Units,
			cellValue(s.OriginalTotal), cellValue(s.Overhead()), cellValue(s.AdjustedTotal),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SummarySheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func writeDiagnostics(f *excelize.File, styles styleSet, diags []FileDiagnostic) error {
	if err := writeHeader(f, DiagnosticsSheet, styles, diagnosticsColumns); err != nil {
		return err
	}
	if err := f.SetColWidth(DiagnosticsSheet, "D", "E", 60); err != nil {
		return err
	}

	for i, d := range diags {
		row := []interface{}{d.Source, string(d.Severity), string(d.Flag), d.Message, d.RawText}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(DiagnosticsSheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

// cellValue converts a record value to something excelize stores natively.
func cellValue(v interface{}) interface{} {
	switch x := v.(type) {
	case decimal.Decimal:
		return x.InexactFloat64()
	case nil:
		return ""
	}
	return v
}
