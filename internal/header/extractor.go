package header

import (
	"strings"
	"time"

	"github.com/ginjaninja78/invoice-landed-cost/internal/types"
)

// =============================================================================
// EXTRACTION
// =============================================================================

// Extract locates the order header fields of a document.
//
// PARAMETERS:
//   - doc: the document text
//   - info: detected currency, used to parse amounts
//
// RETURNS:
//   - types.OrderHeader: fields found in the text, defaults for the rest
//   - error: *types.StructureError when the order number is missing or
//     neither the subtotal nor the grand total could be found
//
// Missing optional fields never fail extraction; they keep the value from
// types.DefaultOrderHeader and are absent from OrderHeader.Found.
func Extract(doc *types.RawDocument, info types.CurrencyInfo) (types.OrderHeader, error) {
	h := types.DefaultOrderHeader()

	var lines []string
	for _, l := range doc.Lines() {
		lines = append(lines, l.Text)
	}

	consumed := make(map[int]bool)

	for i := 0; i < len(lines); i++ {
		if consumed[i] {
			continue
		}

		if !h.Found[types.FieldOrderNumber] {
			for _, r := range OrderNumberRules {
				if v, ok := r.Value(lines, i); ok {
					h.OrderNumber = v
					h.Found[types.FieldOrderNumber] = true
					break
				}
			}
		}

		if !h.Found[types.FieldOrderDate] {
			for _, r := range OrderDateRules {
				if v, ok := r.Value(lines, i); ok {
					h.OrderDate = ParseDate(v)
					h.Found[types.FieldOrderDate] = true
					break
				}
			}
		}

		for _, r := range AmountRules {
			if FieldModes[r.Field] == First && h.Found[r.Field] {
				continue
			}
			value, last, ok := r.Amount(lines, i, info)
			if !ok {
				continue
			}

			switch r.Field {
			case types.FieldSubtotal:
				h.Subtotal = value
			case types.FieldShipping:
				h.Shipping = value
			case types.FieldInsurance:
				h.Insurance = value
			case types.FieldAdditionalCharges:
				h.AdditionalCharges = h.AdditionalCharges.Add(value)
			case types.FieldCredit:
				// Credits are printed both as "-2.00" and "2.00".
				h.Credit = h.Credit.Add(value.Abs())
			case types.FieldGrandTotal:
				h.GrandTotal = value
			}
			h.Found[r.Field] = true

			for j := i; j <= last; j++ {
				consumed[j] = true
			}
			break
		}
	}

	if !h.Found[types.FieldOrderNumber] {
		return h, &types.StructureError{Source: doc.Source, Missing: "order number"}
	}
	if !h.Found[types.FieldSubtotal] && !h.Found[types.FieldGrandTotal] {
		return h, &types.StructureError{Source: doc.Source, Missing: "order subtotal or grand total"}
	}

	return h, nil
}

// =============================================================================
// DATES
// =============================================================================

// dateLayouts are tried in order against the date text and its shorter
// prefixes, so trailing times or time zones are tolerated.
var dateLayouts = []string{
	"Jan 2, 2006",
	"January 2, 2006",
	"Mon Jan 2, 2006",
	"Monday, January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"02.01.2006",
	"Jan-02-2006",
}

// ParseDate parses a printed order date. The raw text is always kept;
// Parsed is false when no layout matched.
func ParseDate(raw string) types.OrderDate {
	raw = strings.TrimSpace(raw)
	d := types.OrderDate{Raw: raw}

	fields := strings.Fields(raw)
	for n := len(fields); n > 0; n-- {
		candidate := strings.TrimRight(strings.Join(fields[:n], " "), ",;")
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, candidate); err == nil {
				d.Time = t
				d.Parsed = true
				return d
			}
		}
	}
	return d
}
