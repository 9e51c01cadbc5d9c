package render

import (
	"bytes"
	"context"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"github.com/tradesdesk/tradesdesk/internal/invoicing"
)

const fontFamily = "Helvetica"

// PDF draws a layout plan directly with gofpdf core fonts.
type PDF struct {
	creator string
}

// NewPDF constructs the coordinate sink.
func NewPDF() *PDF {
	return &PDF{creator: "tradesdesk"}
}

// Name identifies the sink in logs and metrics.
func (p *PDF) Name() string { return "gofpdf" }

// ContentType of the produced bytes.
func (p *PDF) ContentType() string { return "application/pdf" }

// Extension of the produced file.
func (p *PDF) Extension() string { return "pdf" }

// Render draws every page of plan. Output is byte-identical for identical plans.
func (p *PDF) Render(ctx context.Context, plan invoicing.LayoutPlan) ([]byte, error) {
	if len(plan.Pages) == 0 {
		return nil, fmt.Errorf("render: plan has no pages")
	}
	doc := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: plan.PageWidth, Ht: plan.PageHeight},
	})
	doc.SetAutoPageBreak(false, 0)
	doc.SetMargins(0, 0, 0)
	doc.SetCatalogSort(true)
	if !plan.Meta.CreatedAt.IsZero() {
		doc.SetCreationDate(plan.Meta.CreatedAt)
	}
	doc.SetTitle(plan.Meta.Title, true)
	doc.SetSubject(plan.Meta.Subject, true)
	doc.SetAuthor(plan.Meta.Author, true)
	doc.SetCreator(p.creator, true)
	tr := doc.UnicodeTranslatorFromDescriptor("")

	for _, page := range plan.Pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc.AddPage()
		for _, in := range page.Instructions {
			if err := drawPDF(doc, tr, in); err != nil {
				return nil, fmt.Errorf("render: page %d: %w", page.Number, err)
			}
		}
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("render: gofpdf output: %w", err)
	}
	return buf.Bytes(), nil
}

func drawPDF(doc *gofpdf.Fpdf, tr func(string) string, in invoicing.Instruction) error {
	switch in.Kind {
	case invoicing.KindText:
		st, err := lookup(textStyles, in)
		if err != nil {
			return err
		}
		weight := ""
		if st.bold {
			weight = "B"
		}
		doc.SetFont(fontFamily, weight, st.size)
		doc.SetTextColor(st.color.r, st.color.g, st.color.b)
		text := tr(in.Text)
		width := in.Width
		if width <= 0 {
			width = doc.GetStringWidth(text) + 1
		}
		doc.SetXY(in.X, in.Y)
		doc.CellFormat(width, st.size*1.2, text, "", 0, pdfAlign(in.Align)+"T", false, 0, "")
	case invoicing.KindRule:
		st, err := lookup(strokeStyles, in)
		if err != nil {
			return err
		}
		doc.SetDrawColor(st.color.r, st.color.g, st.color.b)
		doc.SetLineWidth(st.width)
		doc.Line(in.X, in.Y, in.X2, in.Y2)
	case invoicing.KindRect:
		fill, err := lookup(fillStyles, in)
		if err != nil {
			return err
		}
		doc.SetFillColor(fill.r, fill.g, fill.b)
		doc.Rect(in.X, in.Y, in.Width, in.Height, "F")
	default:
		return fmt.Errorf("render: unknown instruction kind %q", in.Kind)
	}
	return doc.Error()
}

func pdfAlign(a invoicing.Align) string {
	switch a {
	case invoicing.AlignCenter:
		return "C"
	case invoicing.AlignRight:
		return "R"
	default:
		return "L"
	}
}
