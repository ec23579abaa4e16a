package converter

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/invoice-landed-cost/internal/types"
)

// CurrencySummary totals the records of one reporting currency.
type CurrencySummary struct {
	Currency      types.CurrencyCode
	Orders        int
	Items         int
	Units         int
	OriginalTotal decimal.Decimal
	AdjustedTotal decimal.Decimal
}

// Overhead is the cost added on top of the listed prices.
func (s CurrencySummary) Overhead() decimal.Decimal {
	return s.AdjustedTotal.Sub(s.OriginalTotal)
}

// Summarize groups records by currency, sorted by currency code. An order
// is identified by its source file and order number.
func Summarize(records []types.OutputRecord) []CurrencySummary {
	byCode := map[types.CurrencyCode]*CurrencySummary{}
	orders := map[types.CurrencyCode]map[string]bool{}

	for _, r := range records {
		s, ok := byCode[r.Currency]
		if !ok {
			s = &CurrencySummary{
				Currency:      r.Currency,
				OriginalTotal: decimal.Zero,
				AdjustedTotal: decimal.Zero,
			}
			byCode[r.Currency] = s
			orders[r.Currency] = map[string]bool{}
		}
		s.Items++
		s.Units += r.Quantity
		s.OriginalTotal = s.OriginalTotal.Add(r.OriginalTotal)
		s.AdjustedTotal = s.AdjustedTotal.Add(r.AdjustedTotal)
		orders[r.Currency][r.SourceFile+"\x00"+r.OrderNumber] = true
	}

	out := make([]CurrencySummary, 0, len(byCode))
	for code, s := range byCode {
		s.Orders = len(orders[code])
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Currency < out[j].Currency })
	return out
}
