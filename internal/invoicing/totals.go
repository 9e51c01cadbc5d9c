package invoicing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// moneyPlaces is the number of decimal places shown on documents.
const moneyPlaces = 2

// TaxPolicy is the flat tax applied to the discounted subtotal.
type TaxPolicy struct {
	RatePercent decimal.Decimal
	Label       string
}

// DefaultTaxPolicy is 10% GST.
func DefaultTaxPolicy() TaxPolicy {
	return TaxPolicy{RatePercent: decimal.NewFromInt(10), Label: "GST"}
}

// Validate rejects negative rates and rates above 100%.
func (p TaxPolicy) Validate() error {
	if p.RatePercent.IsNegative() || p.RatePercent.GreaterThan(hundred) {
		return fmt.Errorf("invoicing: tax rate %s%% outside 0..100", p.RatePercent)
	}
	return nil
}

// LineLabel renders e.g. "GST (10%)".
func (p TaxPolicy) LineLabel() string {
	label := strings.TrimSpace(p.Label)
	if label == "" {
		label = "Tax"
	}
	return fmt.Sprintf("%s (%s%%)", label, p.RatePercent.String())
}

// TotalsBreakdown is the financial result of a generation run.
type TotalsBreakdown struct {
	Subtotal            decimal.Decimal `json:"subtotal"`
	DiscountAmount      decimal.Decimal `json:"discount_amount"`
	AmountAfterDiscount decimal.Decimal `json:"amount_after_discount"`
	TaxAmount           decimal.Decimal `json:"tax_amount"`
	GrandTotal          decimal.Decimal `json:"grand_total"`
}

// CalculateTotals aggregates items and applies discount and tax at full precision.
// An empty list yields a zero breakdown.
func CalculateTotals(items []WorkItem, discountPercent decimal.Decimal, policy TaxPolicy) TotalsBreakdown {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(AggregateWork(item).Total)
	}
	discount := subtotal.Mul(discountPercent).Div(hundred)
	after := subtotal.Sub(discount)
	tax := after.Mul(policy.RatePercent).Div(hundred)
	return TotalsBreakdown{
		Subtotal:            subtotal,
		DiscountAmount:      discount,
		AmountAfterDiscount: after,
		TaxAmount:           tax,
		GrandTotal:          after.Add(tax),
	}
}

// Rounded returns the breakdown at 2 decimal places, rounding half away from zero.
// Subtotal, discount and tax are rounded once from full precision; the derived
// fields are recomputed from those so the printed figures add up exactly.
func (t TotalsBreakdown) Rounded() TotalsBreakdown {
	subtotal := roundMoney(t.Subtotal)
	discount := roundMoney(t.DiscountAmount)
	tax := roundMoney(t.TaxAmount)
	after := subtotal.Sub(discount)
	return TotalsBreakdown{
		Subtotal:            subtotal,
		DiscountAmount:      discount,
		AmountAfterDiscount: after,
		TaxAmount:           tax,
		GrandTotal:          after.Add(tax),
	}
}

func roundMoney(v decimal.Decimal) decimal.Decimal {
	return v.Round(moneyPlaces)
}
