package currency

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/invoice-landed-cost/internal/types"
)

// =============================================================================
// EXCHANGE RATES
// =============================================================================

// Exchange converts amounts into a base currency. Rates are expressed as
// "one unit of the source currency buys Rate units of the base currency".
// A zero-value Exchange (empty Base) converts nothing.
type Exchange struct {
	Base  types.CurrencyCode
	Rates map[types.CurrencyCode]decimal.Decimal
}

// NewExchange builds an Exchange from configuration values.
func NewExchange(base string, rates map[string]float64) Exchange {
	ex := Exchange{
		Base:  types.CurrencyCode(strings.ToUpper(base)),
		Rates: make(map[types.CurrencyCode]decimal.Decimal, len(rates)),
	}
	for code, rate := range rates {
		ex.Rates[types.CurrencyCode(strings.ToUpper(code))] = decimal.NewFromFloat(rate)
	}
	return ex
}

// Enabled reports whether a base currency is configured.
func (e Exchange) Enabled() bool {
	return e.Base != ""
}

// Rate returns the multiplier from code to the base currency.
func (e Exchange) Rate(code types.CurrencyCode) (decimal.Decimal, error) {
	if !e.Enabled() || code == e.Base {
		return decimal.NewFromInt(1), nil
	}
	if code == types.UnknownCurrency {
		return decimal.Zero, fmt.Errorf("convert to %s: currency unknown", e.Base)
	}
	rate, ok := e.Rates[code]
	if !ok {
		return decimal.Zero, fmt.Errorf("convert %s to %s: no exchange rate configured", code, e.Base)
	}
	if !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("convert %s to %s: rate %s must be positive", code, e.Base, rate)
	}
	return rate, nil
}

// ConvertHeader returns a copy of h with every monetary field multiplied by
// rate. Conversion happens before distribution so that the reconciliation
// check compares amounts in one currency.
func ConvertHeader(h types.OrderHeader, rate decimal.Decimal) types.OrderHeader {
	h.Subtotal = h.Subtotal.Mul(rate)
	h.Shipping = h.Shipping.Mul(rate)
	h.Insurance = h.Insurance.Mul(rate)
	h.AdditionalCharges = h.AdditionalCharges.Mul(rate)
	h.Credit = h.Credit.Mul(rate)
	h.GrandTotal = h.GrandTotal.Mul(rate)
	return h
}

// ConvertItems returns converted copies of items. The input slice is not
// modified.
func ConvertItems(items []types.ItemRecord, rate decimal.Decimal) []types.ItemRecord {
	out := make([]types.ItemRecord, len(items))
	for i, item := range items {
		item.OriginalUnitPrice = item.OriginalUnitPrice.Mul(rate)
		if item.LineTotal != nil {
			total := item.LineTotal.Mul(rate)
			item.LineTotal = &total
		}
		out[i] = item
	}
	return out
}
