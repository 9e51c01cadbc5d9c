// Package export writes spreadsheet views of a generation run.
package export

import (
	"bytes"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/tradesdesk/tradesdesk/internal/invoicing"
)

// SheetName is the single worksheet of the breakdown workbook.
const SheetName = "Breakdown"

// ContentType of the produced workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// HeaderRow is the row holding the column captions; work rows follow it.
const HeaderRow = 5

var (
	columns = []string{"A", "B", "C", "D", "E", "F", "G"}
	headers = []string{"#", "Description", "Qty / Hours", "Rate / Unit", "Labour", "Materials", "Total"}
	widths  = []float64{5, 44, 12, 12, 14, 14, 14}
)

const moneyFormat = "#,##0.00"

type styles struct {
	title, subtitle, header, item, sub, label, money, total int
}

// WriteBreakdown renders the full cost breakdown of req as an xlsx workbook.
// Every work item is listed with labour and material figures regardless of the
// document's display flags. The totals block reuses the document's rounded lines.
func WriteBreakdown(result invoicing.Result, req invoicing.DocumentRequest) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, fmt.Errorf("export: rename sheet: %w", err)
	}
	for i, col := range columns {
		if err := f.SetColWidth(SheetName, col, col, widths[i]); err != nil {
			return nil, fmt.Errorf("export: col width %s: %w", col, err)
		}
	}
	st, err := newStyles(f)
	if err != nil {
		return nil, err
	}
	w := sheetWriter{f: f}
	last := columns[len(columns)-1]

	header := result.Document.Header
	w.set("A1", fmt.Sprintf("%s %s cost breakdown", req.Type.Title(), header.Number))
	w.style("A1", last+"1", st.title)
	w.set("A2", result.Document.Summary.JobLabel)
	w.set("A3", "Date: "+header.IssueDate)
	w.style("A2", last+"3", st.subtitle)

	for i, h := range headers {
		w.set(cell(columns[i], HeaderRow), h)
	}
	w.style(cell("A", HeaderRow), cell(last, HeaderRow), st.header)

	row := HeaderRow + 1
	for i, item := range req.WorkItems {
		cost := invoicing.AggregateWork(item)
		w.set(cell("A", row), i+1)
		w.set(cell("B", row), sanitize(item.Title))
		if !item.LabourCostOverride.Valid {
			w.money(cell("C", row), item.LabourHours)
			w.money(cell("D", row), item.LabourRate)
		}
		w.money(cell("E", row), money(cost.Labour))
		w.money(cell("F", row), money(cost.Material))
		w.money(cell("G", row), money(cost.Total))
		w.style(cell("A", row), cell(last, row), st.item)
		w.style(cell("C", row), cell(last, row), st.money)
		row++

		for _, line := range item.Materials {
			w.set(cell("B", row), "  "+sanitize(line.Name))
			w.set(cell("C", row), line.Quantity)
			w.money(cell("D", row), line.UnitCost)
			w.money(cell("F", row), money(invoicing.MaterialLineTotal(line)))
			w.style(cell("A", row), cell(last, row), st.sub)
			w.style(cell("C", row), cell(last, row), st.money)
			row++
		}
		if item.MaterialCostOverride.Valid && len(item.Materials) > 0 {
			w.set(cell("B", row), "  Materials (fixed price)")
			w.money(cell("F", row), money(item.MaterialCostOverride.Decimal))
			w.style(cell("A", row), cell(last, row), st.sub)
			w.style(cell("C", row), cell(last, row), st.money)
			row++
		}
	}

	row++
	for _, line := range result.Document.Totals.Lines {
		w.set(cell("F", row), line.Label)
		w.money(cell("G", row), line.Amount)
		if line.Emphasized {
			w.style(cell("F", row), cell("G", row), st.total)
		} else {
			w.style(cell("F", row), cell("F", row), st.label)
			w.style(cell("G", row), cell("G", row), st.money)
		}
		row++
	}
	if w.err != nil {
		return nil, fmt.Errorf("export: %w", w.err)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("export: write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// sheetWriter keeps the first cell error so the layout code reads linearly.
type sheetWriter struct {
	f   *excelize.File
	err error
}

func (w *sheetWriter) set(ref string, v any) {
	if w.err != nil {
		return
	}
	w.err = w.f.SetCellValue(SheetName, ref, v)
}

func (w *sheetWriter) money(ref string, v decimal.Decimal) {
	w.set(ref, v.InexactFloat64())
}

func (w *sheetWriter) style(from, to string, id int) {
	if w.err != nil {
		return
	}
	w.err = w.f.SetCellStyle(SheetName, from, to, id)
}

func newStyles(f *excelize.File) (styles, error) {
	numFmt := moneyFormat
	var out styles
	defs := []struct {
		dst *int
		st  *excelize.Style
	}{
		{&out.title, &excelize.Style{Font: &excelize.Font{Bold: true, Size: 16}}},
		{&out.subtitle, &excelize.Style{Font: &excelize.Font{Size: 11, Color: "#6C757D"}}},
		{&out.header, &excelize.Style{
			Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
			Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#343A40"}},
			Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
			Border:    thinBorders(),
		}},
		{&out.item, &excelize.Style{Font: &excelize.Font{Bold: true}, Border: thinBorders()}},
		{&out.sub, &excelize.Style{Font: &excelize.Font{Size: 10, Color: "#495057"}, Border: thinBorders()}},
		{&out.label, &excelize.Style{Font: &excelize.Font{Bold: true}, Alignment: &excelize.Alignment{Horizontal: "right"}}},
		{&out.money, &excelize.Style{CustomNumFmt: &numFmt}},
		{&out.total, &excelize.Style{Font: &excelize.Font{Bold: true, Size: 12}, CustomNumFmt: &numFmt, Border: thinBorders()}},
	}
	for i, def := range defs {
		id, err := f.NewStyle(def.st)
		if err != nil {
			return styles{}, fmt.Errorf("export: style %d: %w", i, err)
		}
		*def.dst = id
	}
	return out, nil
}

func money(v decimal.Decimal) decimal.Decimal { return v.Round(2) }

func cell(col string, row int) string { return fmt.Sprintf("%s%d", col, row) }

// sanitize stops user text from being evaluated as a formula.
func sanitize(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r', '|':
		return "'" + s
	}
	return s
}

func thinBorders() []excelize.Border {
	sides := []string{"left", "top", "bottom", "right"}
	borders := make([]excelize.Border, len(sides))
	for i, side := range sides {
		borders[i] = excelize.Border{Type: side, Color: "#CCCCCC", Style: 1}
	}
	return borders
}
