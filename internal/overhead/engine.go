// =============================================================================
// Landed Cost Calculator - Overhead Distribution
// =============================================================================
//
// This module spreads order-level overhead across line items in proportion
// to each item's unit price.
//
// ALGORITHM:
//   overhead_total   = shipping + insurance + additional_charges - credit
//   overhead_rate    = overhead_total / subtotal       (0 when subtotal <= 0)
//   overhead_amount  = unit_price * overhead_rate
//   adjusted_unit    = unit_price + overhead_amount
//   original_total   = unit_price * quantity
//   adjusted_total   = adjusted_unit * quantity
//
// ROUNDING:
//   Arithmetic is exact decimal arithmetic. Results are rounded only for
//   presentation, each from the unrounded value: unit-level amounts to 4
//   places, totals to 2 places, the percentage to 2 places. Rounding totals
//   from unrounded units keeps the per-item error under half a cent.
//
// RECONCILIATION:
//   |sum(adjusted_total) - (subtotal + overhead_total)| must not exceed one
//   cent per item. A larger gap points at parsing drift (a misread subtotal,
//   a skipped item) and is flagged, never fatal.
//
// =============================================================================

package overhead

import (
	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/invoice-landed-cost/internal/types"
)

// Rounding places.
const (
	UnitPlaces       int32 = 4
	TotalPlaces      int32 = 2
	PercentagePlaces int32 = 2

	// ratePrecision bounds the digits kept when dividing by the subtotal.
	ratePrecision int32 = 16
)

var (
	hundred   = decimal.NewFromInt(100)
	minorUnit = decimal.RequireFromString("0.01")
)

// Distribute allocates the header's overhead across items.
//
// PARAMETERS:
//   - header: order totals; only subtotal, shipping, insurance, additional
//     charges and credit are used
//   - items: parsed line items
//
// RETURNS:
//   - types.Distribution: adjusted items in input order, the rate, the
//     reconciliation figures and any flags raised
func Distribute(header types.OrderHeader, items []types.ItemRecord) types.Distribution {
	overheadTotal := header.OverheadTotal()

	dist := types.Distribution{
		OverheadTotal: overheadTotal,
		OverheadRate:  decimal.Zero,
		ExpectedTotal: header.Subtotal.Add(overheadTotal),
		AdjustedSum:   decimal.Zero,
		Tolerance:     minorUnit.Mul(decimal.NewFromInt(int64(len(items)))),
	}

	reliable := header.Subtotal.IsPositive()
	if reliable {
		dist.OverheadRate = overheadTotal.DivRound(header.Subtotal, ratePrecision)
	} else {
		dist.Flags = append(dist.Flags, types.FlagUnreliableOverheadRate)
	}
	percentage := dist.OverheadRate.Mul(hundred).Round(PercentagePlaces)

	for _, item := range items {
		qty := decimal.NewFromInt(int64(item.Quantity))
		unit := item.OriginalUnitPrice

		// Multiplying before dividing keeps the unit share exact for any
		// subtotal that divides the product.
		amount := decimal.Zero
		if reliable {
			amount = unit.Mul(overheadTotal).DivRound(header.Subtotal, ratePrecision)
		}
		adjustedUnit := unit.Add(amount)

		adjusted := types.AdjustedItemRecord{
			ItemRecord:         item,
			OverheadRate:       dist.OverheadRate,
			OverheadPercentage: percentage,
			OverheadAmount:     amount.Round(UnitPlaces),
			AdjustedUnitPrice:  adjustedUnit.Round(UnitPlaces),
			OriginalTotal:      unit.Mul(qty).Round(TotalPlaces),
			AdjustedTotal:      adjustedUnit.Mul(qty).Round(TotalPlaces),
		}

		dist.AdjustedSum = dist.AdjustedSum.Add(adjusted.AdjustedTotal)
		dist.Items = append(dist.Items, adjusted)
	}

	if len(items) == 0 {
		dist.Flags = append(dist.Flags, types.FlagNoItems)
		return dist
	}

	dist.Discrepancy = dist.AdjustedSum.Sub(dist.ExpectedTotal).Abs()
	if dist.Discrepancy.GreaterThan(dist.Tolerance) {
		dist.Flags = append(dist.Flags, types.FlagReconciliationFailure)
	}

	return dist
}

// GrandTotalMismatch reports whether a printed grand total disagrees with
// subtotal + overhead by more than one cent. Headers without both a
// subtotal and a grand total never mismatch.
func GrandTotalMismatch(h types.OrderHeader) bool {
	if !h.Found[types.FieldSubtotal] || !h.Found[types.FieldGrandTotal] {
		return false
	}
	expected := h.Subtotal.Add(h.OverheadTotal())
	return h.GrandTotal.Sub(expected).Abs().GreaterThan(minorUnit)
}

// HasFlag reports whether flags contains f.
func HasFlag(flags []types.Flag, f types.Flag) bool {
	for _, x := range flags {
		if x == f {
			return true
		}
	}
	return false
}
