package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/tradesdesk/tradesdesk/internal/invoicing"
)

func request() invoicing.DocumentRequest {
	return invoicing.DocumentRequest{
		Type:           invoicing.DocumentQuote,
		DocumentNumber: "Q-7-1",
		JobNumber:      7,
		IssueDate:      time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		WorkItems: []invoicing.WorkItem{{
			Title:       "Install lights",
			LabourHours: decimal.NewFromInt(2),
			LabourRate:  decimal.NewFromInt(50),
			Materials:   []invoicing.MaterialLine{{Name: "Downlight", UnitCost: decimal.NewFromInt(10), Quantity: 3}},
		}},
		Settings:        &invoicing.BusinessSettings{BusinessName: "Sparks Electrical"},
		DiscountPercent: decimal.NewFromInt(10),
	}
}

func open(t *testing.T, req invoicing.DocumentRequest) [][]string {
	t.Helper()
	gen, err := invoicing.NewGenerator()
	require.NoError(t, err)
	res, err := gen.Generate(req)
	require.NoError(t, err)

	out, err := WriteBreakdown(res, req)
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	require.Equal(t, []string{SheetName}, f.GetSheetList())

	rows, err := f.GetRows(SheetName, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	return rows
}

func at(rows [][]string, row int, col int) string {
	if row-1 >= len(rows) || col >= len(rows[row-1]) {
		return ""
	}
	return rows[row-1][col]
}

func totalsByLabel(rows [][]string) map[string]string {
	out := map[string]string{}
	for _, r := range rows[HeaderRow:] {
		if len(r) > 6 && r[5] != "" && r[1] == "" {
			out[r[5]] = r[6]
		}
	}
	return out
}

func TestWriteBreakdownLayout(t *testing.T) {
	rows := open(t, request())

	require.Equal(t, "Quote Q-7-1 cost breakdown", at(rows, 1, 0))
	require.Equal(t, "Job #7", at(rows, 2, 0))
	require.Equal(t, "Date: 01/05/2024", at(rows, 3, 0))
	require.Equal(t, headers, rows[HeaderRow-1])

	item := HeaderRow + 1
	require.Equal(t, "1", at(rows, item, 0))
	require.Equal(t, "Install lights", at(rows, item, 1))
	require.Equal(t, "2", at(rows, item, 2))
	require.Equal(t, "50", at(rows, item, 3))
	require.Equal(t, "100", at(rows, item, 4))
	require.Equal(t, "30", at(rows, item, 5))
	require.Equal(t, "130", at(rows, item, 6))

	require.Equal(t, "  Downlight", at(rows, item+1, 1))
	require.Equal(t, "3", at(rows, item+1, 2))
	require.Equal(t, "30", at(rows, item+1, 5))
}

func TestWriteBreakdownTotalsMatchDocument(t *testing.T) {
	totals := totalsByLabel(open(t, request()))
	require.Equal(t, "130", totals["Subtotal:"])
	require.Equal(t, "-13", totals["Discount (10%):"])
	require.Equal(t, "128.7", totals["TOTAL:"])
	require.Len(t, totals, 4)
}

func TestWriteBreakdownOverridesAndSanitising(t *testing.T) {
	req := request()
	req.DiscountPercent = decimal.Zero
	req.WorkItems = []invoicing.WorkItem{{
		Title:                "=HYPERLINK(\"http://x\")",
		LabourHours:          decimal.NewFromInt(3),
		LabourRate:           decimal.NewFromInt(80),
		LabourCostOverride:   decimal.NewNullDecimal(decimal.NewFromInt(200)),
		MaterialCostOverride: decimal.NewNullDecimal(decimal.RequireFromString("45.5")),
		Materials:            []invoicing.MaterialLine{{Name: "Cable", UnitCost: decimal.NewFromInt(2), Quantity: 10}},
	}}
	rows := open(t, req)

	item := HeaderRow + 1
	require.Equal(t, "'=HYPERLINK(\"http://x\")", at(rows, item, 1))
	require.Equal(t, "", at(rows, item, 2))
	require.Equal(t, "200", at(rows, item, 4))
	require.Equal(t, "45.5", at(rows, item, 5))
	require.Equal(t, "245.5", at(rows, item, 6))
	require.Equal(t, "  Materials (fixed price)", at(rows, item+2, 1))

	totals := totalsByLabel(rows)
	require.NotContains(t, totals, "Discount (0%):")
	require.Equal(t, "270.05", totals["TOTAL:"])
}
