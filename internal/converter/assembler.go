package converter

import (
	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/invoice-landed-cost/internal/types"
)

// Origin carries the per-document values repeated on every output row
// besides the header fields.
type Origin struct {
	SourceFile       string
	Currency         types.CurrencyCode
	OriginalCurrency types.CurrencyCode
	ExchangeRate     decimal.Decimal
}

// Assemble flattens a document into one OutputRecord per adjusted item.
// Header fields are copied onto every row; nothing is computed.
func Assemble(h types.OrderHeader, origin Origin, adjusted []types.AdjustedItemRecord) []types.OutputRecord {
	records := make([]types.OutputRecord, 0, len(adjusted))
	for _, item := range adjusted {
		records = append(records, types.OutputRecord{
			SourceFile:         origin.SourceFile,
			OrderNumber:        h.OrderNumber,
			OrderDate:          h.OrderDate.String(),
			Currency:           origin.Currency,
			OriginalCurrency:   origin.OriginalCurrency,
			ExchangeRate:       origin.ExchangeRate,
			Condition:          item.Condition,
			Color:              item.Color,
			Description:        item.Description,
			PartNumber:         item.PartNumber,
			Quantity:           item.Quantity,
			OriginalUnitPrice:  item.OriginalUnitPrice,
			OverheadPercentage: item.OverheadPercentage,
			OverheadAmount:     item.OverheadAmount,
			AdjustedUnitPrice:  item.AdjustedUnitPrice,
			OriginalTotal:      item.OriginalTotal,
			AdjustedTotal:      item.AdjustedTotal,
			Weight:             item.Weight,
			Subtotal:           h.Subtotal,
			Shipping:           h.Shipping,
			Insurance:          h.Insurance,
			AdditionalCharges:  h.AdditionalCharges,
			Credit:             h.Credit,
			GrandTotal:         h.GrandTotal,
		})
	}
	return records
}
