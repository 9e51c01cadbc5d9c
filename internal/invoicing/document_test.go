package invoicing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func build(req DocumentRequest) Document {
	policy := DefaultTaxPolicy()
	return BuildDocument(req, CalculateTotals(req.WorkItems, req.DiscountPercent, policy), policy, DefaultFormat())
}

func TestBuildDocumentTotalsBlock(t *testing.T) {
	doc := build(sampleRequest())

	labels := make([]string, 0, len(doc.Totals.Lines))
	for _, line := range doc.Totals.Lines {
		labels = append(labels, line.Label)
	}
	require.Equal(t, []string{"Subtotal:", "Discount (10%):", "GST (10%):", "TOTAL:"}, labels)
	requireMoney(t, "-13.00", doc.Totals.Lines[1].Amount)
	require.True(t, doc.Totals.Lines[3].Emphasized)
	require.Equal(t, "-$13.00", doc.Format.Money(doc.Totals.Lines[1].Amount))
	requireMoney(t, "128.70", doc.Summary.Total)
	require.Equal(t, "Quote Total", doc.Summary.TotalCaption)
}

func TestBuildDocumentDiscountLineFollowsPercent(t *testing.T) {
	req := sampleRequest()
	req.DiscountPercent = decimal.Zero
	require.False(t, build(req).Totals.Has(TotalDiscount))

	req.WorkItems = nil
	req.DiscountPercent = dec("10")
	doc := build(req)
	require.True(t, doc.Totals.Has(TotalDiscount))
	require.True(t, doc.Totals.Lines[1].Amount.IsZero())
}

func TestBuildDocumentHeaderByType(t *testing.T) {
	req := sampleRequest()
	due := issued.AddDate(0, 0, 30)
	req.DueDate = &due

	quote := build(req)
	require.Equal(t, "QUOTE", quote.Header.Label)
	require.Equal(t, "Quote #", quote.Header.NumberLabel)
	require.Empty(t, quote.Header.DueDate)

	req.Type = DocumentInvoice
	invoice := build(req)
	require.Equal(t, "INVOICE", invoice.Header.Label)
	require.Equal(t, "Invoice #", invoice.Header.NumberLabel)
	require.Equal(t, "31/05/2024", invoice.Header.DueDate)
	require.Equal(t, "01/05/2024", invoice.Header.IssueDate)
	require.Equal(t, "Amount Due", invoice.Summary.TotalCaption)
}

func TestBuildDocumentClientPlaceholder(t *testing.T) {
	req := sampleRequest()
	req.Client = nil
	doc := build(req)
	require.True(t, doc.Client.Placeholder)
	require.Equal(t, NoClientPlaceholder, doc.Client.Name)
	require.Empty(t, doc.Client.Lines())
}

func TestBuildDocumentVisibleLinesFollowFlags(t *testing.T) {
	req := sampleRequest()
	doc := build(req)
	require.NotNil(t, doc.Items[0].Labour)
	require.Len(t, doc.Items[0].Materials, 1)
	requireMoney(t, "130.00", doc.Items[0].Amount)

	req.ShowLabour = false
	req.ShowMaterials = false
	doc = build(req)
	require.Nil(t, doc.Items[0].Labour)
	require.Empty(t, doc.Items[0].Materials)
	requireMoney(t, "130.00", doc.Items[0].Amount)

	req = sampleRequest()
	req.WorkItems[0].LabourHours = decimal.Zero
	require.Nil(t, build(req).Items[0].Labour)
}

func TestBuildDocumentFixedMaterials(t *testing.T) {
	req := sampleRequest()
	req.WorkItems[0].MaterialCostOverride = decimal.NewNullDecimal(dec("75"))
	item := build(req).Items[0]
	require.NotNil(t, item.FixedMaterials)
	requireMoney(t, "75.00", *item.FixedMaterials)
	requireMoney(t, "175.00", item.Amount)
}

func TestBuildDocumentFooter(t *testing.T) {
	req := sampleRequest()
	doc := build(req)
	require.NotNil(t, doc.Footer.Payment)
	require.Equal(t, "Q-7-1", doc.Footer.Payment.Reference)
	require.Equal(t, "Payment within 14 days.", doc.Footer.Terms)
	require.Equal(t, "Thank you for your business!", doc.Footer.Notes)

	req.Notes = "Access via side gate."
	req.Settings.BSB = ""
	req.Settings.Terms = ""
	doc = build(req)
	require.Nil(t, doc.Footer.Payment)
	require.Empty(t, doc.Footer.Terms)
	require.Equal(t, "Access via side gate.", doc.Footer.Notes)
}

func TestBuildDocumentRequestTermsOverrideSettings(t *testing.T) {
	req := sampleRequest()
	req.Terms = "  50% deposit before work starts.  "
	require.Equal(t, "50% deposit before work starts.", build(req).Footer.Terms)

	req.Terms = "   "
	require.Equal(t, "Payment within 14 days.", build(req).Footer.Terms)

	req.Settings = nil
	require.Empty(t, req.ResolvedTerms())
}

func TestIssuerLines(t *testing.T) {
	doc := build(sampleRequest())
	require.Equal(t, []string{
		"ABN: 12 345 678 901",
		"4 Trade St",
		"Newtown NSW 2042",
		"Phone: 02 9000 0000",
		"Email: office@sparks.test",
	}, doc.Issuer.Lines())
}
