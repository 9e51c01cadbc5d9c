package render

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strconv"
	"strings"

	"github.com/tradesdesk/tradesdesk/internal/invoicing"
	"github.com/tradesdesk/tradesdesk/web"
)

// PDFClient exposes the subset of the report client used by the HTML sink.
type PDFClient interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// HTML lays every instruction out as an absolutely positioned element and
// converts the page through a headless-browser PDF service.
type HTML struct {
	tpl    *template.Template
	client PDFClient
}

// NewHTML parses the plan template and wires the PDF client.
func NewHTML(client PDFClient) (*HTML, error) {
	if client == nil {
		return nil, fmt.Errorf("render: pdf client required")
	}
	tpl, err := template.New("plan.html").ParseFS(web.Templates, "templates/documents/plan.html")
	if err != nil {
		return nil, err
	}
	return &HTML{tpl: tpl, client: client}, nil
}

// Name identifies the sink in logs and metrics.
func (h *HTML) Name() string { return "gotenberg" }

// ContentType of the produced bytes.
func (h *HTML) ContentType() string { return "application/pdf" }

// Extension of the produced file.
func (h *HTML) Extension() string { return "pdf" }

// Render builds the HTML and converts it to PDF.
func (h *HTML) Render(ctx context.Context, plan invoicing.LayoutPlan) ([]byte, error) {
	html, err := h.BuildHTML(plan)
	if err != nil {
		return nil, err
	}
	pdf, err := h.client.RenderHTML(ctx, html)
	if err != nil {
		return nil, fmt.Errorf("render: convert html: %w", err)
	}
	return pdf, nil
}

type htmlDoc struct {
	Title string
	Pages []htmlPage
}

type htmlPage struct {
	Number int
	CSS    template.CSS
	Items  []htmlItem
}

type htmlItem struct {
	Class string
	CSS   template.CSS
	Text  string
}

// BuildHTML renders plan as a standalone HTML document. Text is escaped by the template.
func (h *HTML) BuildHTML(plan invoicing.LayoutPlan) (string, error) {
	if len(plan.Pages) == 0 {
		return "", fmt.Errorf("render: plan has no pages")
	}
	doc := htmlDoc{Title: plan.Meta.Title, Pages: make([]htmlPage, 0, len(plan.Pages))}
	pageCSS := template.CSS(fmt.Sprintf("width:%s;height:%s", pt(plan.PageWidth), pt(plan.PageHeight)))
	for _, page := range plan.Pages {
		out := htmlPage{Number: page.Number, CSS: pageCSS, Items: make([]htmlItem, 0, len(page.Instructions))}
		for _, in := range page.Instructions {
			item, err := htmlFor(in)
			if err != nil {
				return "", fmt.Errorf("render: page %d: %w", page.Number, err)
			}
			out.Items = append(out.Items, item)
		}
		doc.Pages = append(doc.Pages, out)
	}

	var buf bytes.Buffer
	if err := h.tpl.Execute(&buf, doc); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func htmlFor(in invoicing.Instruction) (htmlItem, error) {
	var css strings.Builder
	fmt.Fprintf(&css, "left:%s;top:%s;", pt(in.X), pt(in.Y))

	switch in.Kind {
	case invoicing.KindText:
		st, err := lookup(textStyles, in)
		if err != nil {
			return htmlItem{}, err
		}
		fmt.Fprintf(&css, "font-size:%s;color:%s;", pt(st.size), st.color.hex())
		if st.bold {
			css.WriteString("font-weight:bold;")
		}
		if in.Width > 0 {
			fmt.Fprintf(&css, "width:%s;text-align:%s;", pt(in.Width), in.Align)
		}
		return htmlItem{Class: "text", CSS: template.CSS(css.String()), Text: in.Text}, nil
	case invoicing.KindRule:
		st, err := lookup(strokeStyles, in)
		if err != nil {
			return htmlItem{}, err
		}
		border := fmt.Sprintf("%s solid %s", pt(st.width), st.color.hex())
		switch {
		case in.Y == in.Y2:
			fmt.Fprintf(&css, "width:%s;border-top:%s;", pt(in.X2-in.X), border)
		case in.X == in.X2:
			fmt.Fprintf(&css, "height:%s;border-left:%s;", pt(in.Y2-in.Y), border)
		default:
			return htmlItem{}, fmt.Errorf("render: diagonal rules are not supported")
		}
		return htmlItem{Class: "rule", CSS: template.CSS(css.String())}, nil
	case invoicing.KindRect:
		fill, err := lookup(fillStyles, in)
		if err != nil {
			return htmlItem{}, err
		}
		fmt.Fprintf(&css, "width:%s;height:%s;background:%s;", pt(in.Width), pt(in.Height), fill.hex())
		return htmlItem{Class: "rect", CSS: template.CSS(css.String())}, nil
	default:
		return htmlItem{}, fmt.Errorf("render: unknown instruction kind %q", in.Kind)
	}
}

func pt(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "pt"
}
