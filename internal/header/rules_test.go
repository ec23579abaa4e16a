package header

import (
	"testing"

	"github.com/ginjaninja78/invoice-landed-cost/internal/types"
)

func amountRule(t *testing.T, name string) Rule {
	t.Helper()
	for _, r := range AmountRules {
		if r.Name == name {
			return r
		}
	}
	t.Fatalf("no amount rule %q", name)
	return Rule{}
}

func TestAmountRules(t *testing.T) {
	tests := []struct {
		rule  string
		line  string
		want  string
		field types.HeaderField
	}{
		{"order-total", "Order Total: AU $45.20", "45.20", types.FieldSubtotal},
		{"subtotal", "Sub-Total: AU $10.00", "10", types.FieldSubtotal},
		{"items-total", "Items Total AU $3.00", "3", types.FieldSubtotal},
		{"shipping-handling", "Shipping & Handling: AU $4.00", "4", types.FieldShipping},
		{"shipping-cost", "Shipping Cost: AU $9.80", "9.80", types.FieldShipping},
		{"shipping", "SHIPPING: AU $9.80", "9.80", types.FieldShipping},
		{"postage", "Postage and Packing: AU $3.10", "3.10", types.FieldShipping},
		{"insurance", "Shipping Insurance: AU $0.30", "0.30", types.FieldInsurance},
		{"additional-charges", "Additional Charges 2: AU $0.50", "0.50", types.FieldAdditionalCharges},
		{"handling-fee", "Handling Fee - AU $0.75", "0.75", types.FieldAdditionalCharges},
		{"coupon-credit", "Coupon Credit: AU $1.00", "1", types.FieldCredit},
		{"store-credit", "Store Credit AU $2.00", "2", types.FieldCredit},
		{"credit", "Credits: AU $0.25", "0.25", types.FieldCredit},
		{"discount", "Discount: AU $0.40", "0.40", types.FieldCredit},
		{"grand-total", "Grand Total: AU $53.50", "53.50", types.FieldGrandTotal},
	}

	covered := map[string]bool{}
	for _, tt := range tests {
		t.Run(tt.rule, func(t *testing.T) {
			r := amountRule(t, tt.rule)
			if r.Field != tt.field {
				t.Errorf("field = %s, want %s", r.Field, tt.field)
			}
			got, last, ok := r.Amount([]string{tt.line}, 0, aud)
			if !ok {
				t.Fatalf("%q not matched", tt.line)
			}
			if !got.Equal(dec(tt.want)) || last != 0 {
				t.Errorf("amount = %s at line %d, want %s at line 0", got, last, tt.want)
			}
		})
		covered[tt.rule] = true
	}

	for _, r := range AmountRules {
		if !covered[r.Name] {
			t.Errorf("rule %q has no test case", r.Name)
		}
	}
}

func TestAmountRulesReject(t *testing.T) {
	tests := []struct {
		rule string
		line string
	}{
		{"shipping", "Shipping Method: Standard"},
		{"shipping", "Shipping Cost: AU $9.80"},
		{"shipping", "Shipping Insurance: AU $0.30"},
		{"insurance", "Insured by: Example Post"},
		{"credit", "Credit card ending 4242"},
		{"order-total", "Order Notes: leave at door"},
		{"grand-total", "Total: AU $1.00"},
	}

	for _, tt := range tests {
		t.Run(tt.rule+"/"+tt.line, func(t *testing.T) {
			if got, _, ok := amountRule(t, tt.rule).Amount([]string{tt.line}, 0, aud); ok {
				t.Errorf("%q matched with %s", tt.line, got)
			}
		})
	}
}

func TestAmountRuleNextLine(t *testing.T) {
	r := amountRule(t, "shipping")

	got, last, ok := r.Amount([]string{"Shipping:", "", "AU $9.80"}, 0, aud)
	if !ok || !got.Equal(dec("9.80")) || last != 2 {
		t.Errorf("got %s, %d, %v; want 9.80 at line 2", got, last, ok)
	}

	if _, _, ok := r.Amount([]string{"Shipping", "Standard"}, 0, aud); ok {
		t.Error("label followed by text matched")
	}
	if _, _, ok := r.Amount([]string{"Shipping"}, 0, aud); ok {
		t.Error("label at end of text matched")
	}
}

func TestIdentifierRules(t *testing.T) {
	tests := []struct {
		name  string
		rules []IdentifierRule
		rule  string
		lines []string
		want  string
		ok    bool
	}{
		{"order hash", OrderNumberRules, "order-hash", []string{"Order #21345678"}, "21345678", true},
		{"order number label", OrderNumberRules, "order-hash", []string{"ORDER NUMBER: A-77"}, "A-77", true},
		{"order notes", OrderNumberRules, "order-hash", []string{"Order Notes: none"}, "", false},
		{"invoice number", OrderNumberRules, "invoice-number", []string{"Invoice No. 5521"}, "5521", true},
		{"invoice without digits", OrderNumberRules, "invoice-number", []string{"Invoice number: pending"}, "", false},
		{"order date", OrderDateRules, "order-date", []string{"Order Date: Mar 5, 2024 10:31"}, "Mar 5, 2024 10:31", true},
		{"order date next line", OrderDateRules, "order-date", []string{"Order Date:", "", "2024-03-05"}, "2024-03-05", true},
		{"order date missing", OrderDateRules, "order-date", []string{"Order Date:"}, "", false},
		{"date ordered", OrderDateRules, "date-ordered", []string{"Ordered on 5 March 2024"}, "5 March 2024", true},
	}

	covered := map[string]bool{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rule *IdentifierRule
			for i := range tt.rules {
				if tt.rules[i].Name == tt.rule {
					rule = &tt.rules[i]
				}
			}
			if rule == nil {
				t.Fatalf("no identifier rule %q", tt.rule)
			}
			got, ok := rule.Value(tt.lines, 0)
			if ok != tt.ok || got != tt.want {
				t.Errorf("Value = %q, %v; want %q, %v", got, ok, tt.want, tt.ok)
			}
		})
		covered[tt.rule] = true
	}

	for _, rules := range [][]IdentifierRule{OrderNumberRules, OrderDateRules} {
		for _, r := range rules {
			if !covered[r.Name] {
				t.Errorf("rule %q has no test case", r.Name)
			}
		}
	}
}

func TestAmountRuleCommaDecimalThousands(t *testing.T) {
	eur := types.CurrencyInfo{Code: types.EUR, Symbol: "€", Confidence: types.ConfidenceDefinite}

	got, _, ok := amountRule(t, "subtotal").Amount([]string{"Subtotal: €1.234"}, 0, eur)
	if !ok || !got.Equal(dec("1234")) {
		t.Errorf("subtotal = %s, %v; want 1234", got, ok)
	}
}
