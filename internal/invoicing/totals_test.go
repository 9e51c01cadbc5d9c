package invoicing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func requireMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Equal(t, want, got.StringFixed(2))
}

func TestAggregateWorkComputesLabourAndMaterials(t *testing.T) {
	item := WorkItem{
		Title:       "Rewire kitchen",
		LabourHours: dec("2"),
		LabourRate:  dec("50"),
		Materials:   []MaterialLine{{Name: "Cable", UnitCost: dec("10"), Quantity: 3}},
	}
	cost := AggregateWork(item)
	requireMoney(t, "100.00", cost.Labour)
	requireMoney(t, "30.00", cost.Material)
	requireMoney(t, "130.00", cost.Total)
}

func TestAggregateWorkOverrideReplacesComputedValue(t *testing.T) {
	item := WorkItem{
		Title:              "Fixed-price callout",
		LabourHours:        dec("2"),
		LabourRate:         dec("50"),
		LabourCostOverride: decimal.NewNullDecimal(dec("500")),
	}
	cost := AggregateWork(item)
	requireMoney(t, "500.00", cost.Labour)
	requireMoney(t, "500.00", cost.Total)

	item.Materials = []MaterialLine{{Name: "Conduit", UnitCost: dec("4.50"), Quantity: 10}}
	item.MaterialCostOverride = decimal.NewNullDecimal(decimal.Zero)
	cost = AggregateWork(item)
	requireMoney(t, "0.00", cost.Material)
	requireMoney(t, "500.00", cost.Total)
}

func TestAggregateWorkZeroQuantityContributesNothing(t *testing.T) {
	cost := AggregateWork(WorkItem{
		Title:     "Spare parts",
		Materials: []MaterialLine{{Name: "Fuse", UnitCost: dec("7"), Quantity: 0}},
	})
	require.True(t, cost.Total.IsZero())
}

func TestCalculateTotalsConcreteScenario(t *testing.T) {
	items := []WorkItem{{
		Title:       "Install lights",
		LabourHours: dec("2"),
		LabourRate:  dec("50"),
		Materials:   []MaterialLine{{Name: "Downlight", UnitCost: dec("10"), Quantity: 3}},
	}}
	totals := CalculateTotals(items, dec("10"), DefaultTaxPolicy()).Rounded()

	requireMoney(t, "130.00", totals.Subtotal)
	requireMoney(t, "13.00", totals.DiscountAmount)
	requireMoney(t, "117.00", totals.AmountAfterDiscount)
	requireMoney(t, "11.70", totals.TaxAmount)
	requireMoney(t, "128.70", totals.GrandTotal)
}

func TestCalculateTotalsEmptyListIsZero(t *testing.T) {
	totals := CalculateTotals(nil, decimal.Zero, DefaultTaxPolicy()).Rounded()
	for _, v := range []decimal.Decimal{totals.Subtotal, totals.DiscountAmount, totals.AmountAfterDiscount, totals.TaxAmount, totals.GrandTotal} {
		require.True(t, v.IsZero())
	}
}

func TestCalculateTotalsFullDiscount(t *testing.T) {
	items := []WorkItem{{Title: "Inspection", LabourHours: dec("1.5"), LabourRate: dec("80")}}
	totals := CalculateTotals(items, dec("100"), DefaultTaxPolicy()).Rounded()
	requireMoney(t, "120.00", totals.Subtotal)
	requireMoney(t, "120.00", totals.DiscountAmount)
	requireMoney(t, "0.00", totals.TaxAmount)
	requireMoney(t, "0.00", totals.GrandTotal)
}

func TestCalculateTotalsIsOrderIndependent(t *testing.T) {
	items := []WorkItem{
		{Title: "A", LabourHours: dec("1.25"), LabourRate: dec("95")},
		{Title: "B", Materials: []MaterialLine{{Name: "Pipe", UnitCost: dec("3.33"), Quantity: 7}}},
		{Title: "C", LabourCostOverride: decimal.NewNullDecimal(dec("42.42"))},
	}
	reversed := []WorkItem{items[2], items[1], items[0]}

	forward := CalculateTotals(items, dec("12.5"), DefaultTaxPolicy())
	backward := CalculateTotals(reversed, dec("12.5"), DefaultTaxPolicy())
	require.True(t, forward.Subtotal.Equal(backward.Subtotal))
	require.True(t, forward.GrandTotal.Equal(backward.GrandTotal))

	brute := decimal.Zero
	for _, item := range items {
		brute = brute.Add(LabourCost(item)).Add(MaterialCost(item))
	}
	require.True(t, brute.Equal(forward.Subtotal))
}

func TestRoundedKeepsDisplayedFiguresConsistent(t *testing.T) {
	items := []WorkItem{{Title: "Odd", Materials: []MaterialLine{{Name: "Clip", UnitCost: dec("3.335"), Quantity: 3}}}}
	totals := CalculateTotals(items, dec("7"), DefaultTaxPolicy()).Rounded()

	requireMoney(t, "10.01", totals.Subtotal)
	require.True(t, totals.AmountAfterDiscount.Equal(totals.Subtotal.Sub(totals.DiscountAmount)))
	require.True(t, totals.GrandTotal.Equal(totals.AmountAfterDiscount.Add(totals.TaxAmount)))

	again := totals.Rounded()
	require.True(t, again.Subtotal.Equal(totals.Subtotal))
	require.True(t, again.TaxAmount.Equal(totals.TaxAmount))
	require.True(t, again.GrandTotal.Equal(totals.GrandTotal))
}

func TestTaxPolicyIsConfigurable(t *testing.T) {
	policy := TaxPolicy{RatePercent: dec("15"), Label: "VAT"}
	require.NoError(t, policy.Validate())
	require.Equal(t, "VAT (15%)", policy.LineLabel())

	totals := CalculateTotals([]WorkItem{{Title: "Job", LabourCostOverride: decimal.NewNullDecimal(dec("200"))}}, decimal.Zero, policy).Rounded()
	requireMoney(t, "30.00", totals.TaxAmount)
	requireMoney(t, "230.00", totals.GrandTotal)

	require.Error(t, TaxPolicy{RatePercent: dec("-1")}.Validate())
	require.Equal(t, "Tax (0%)", TaxPolicy{RatePercent: decimal.Zero}.LineLabel())
}
