package types

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// OutputColumns names the columns of a flat output row, in order. Every
// sink writes this layout.
var OutputColumns = []string{
	"Source_File", "Order_Number", "Order_Date", "Currency", "Original_Currency",
	"Exchange_Rate", "Condition", "Color", "Description", "Part_Number", "Quantity",
	"Original_Unit_Price", "Overhead_Percentage", "Overhead_Amount",
	"Adjusted_Unit_Price", "Original_Total", "Adjusted_Total", "Weight",
	"Order_Subtotal", "Shipping", "Insurance", "Additional_Charges", "Credit",
	"Grand_Total",
}

// Values returns the row in OutputColumns order. Text columns are strings,
// Quantity is an int and money columns are decimals; an absent weight is
// nil.
func (r OutputRecord) Values() []interface{} {
	var weight interface{}
	if r.Weight != nil {
		weight = *r.Weight
	}
	return []interface{}{
		r.SourceFile, r.OrderNumber, r.OrderDate, string(r.Currency), string(r.OriginalCurrency),
		r.ExchangeRate, r.Condition, r.Color, r.Description, r.PartNumber, r.Quantity,
		r.OriginalUnitPrice, r.OverheadPercentage, r.OverheadAmount,
		r.AdjustedUnitPrice, r.OriginalTotal, r.AdjustedTotal, weight,
		r.Subtotal, r.Shipping, r.Insurance, r.AdditionalCharges, r.Credit,
		r.GrandTotal,
	}
}

// Strings returns the row as text. Totals and header amounts use two
// decimal places; unit-level amounts keep their exact value.
func (r OutputRecord) Strings() []string {
	money := func(d decimal.Decimal) string { return d.StringFixed(2) }

	weight := ""
	if r.Weight != nil {
		weight = r.Weight.String()
	}
	return []string{
		r.SourceFile, r.OrderNumber, r.OrderDate, string(r.Currency), string(r.OriginalCurrency),
		r.ExchangeRate.String(), r.Condition, r.Color, r.Description, r.PartNumber,
		strconv.Itoa(r.Quantity),
		r.OriginalUnitPrice.String(), r.OverheadPercentage.StringFixed(2), r.OverheadAmount.String(),
		r.AdjustedUnitPrice.String(), money(r.OriginalTotal), money(r.AdjustedTotal), weight,
		money(r.Subtotal), money(r.Shipping), money(r.Insurance), money(r.AdditionalCharges),
		money(r.Credit), money(r.GrandTotal),
	}
}
