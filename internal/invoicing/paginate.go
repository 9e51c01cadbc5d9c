package invoicing

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Stage is one step of a layout run. Stages run strictly in declaration order.
type Stage int

const (
	StageHeader Stage = iota
	StageIssuerClient
	StageSummaryBox
	StageWorkTable
	StageTotals
	StageFooter
	StageFinalized
)

var stageNames = [...]string{"header", "issuer_client", "summary_box", "work_table", "totals", "footer", "finalized"}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "stage(" + strconv.Itoa(int(s)) + ")"
	}
	return stageNames[s]
}

// ErrPageLimit is returned when a document needs more than LayoutConfig.MaxPages pages.
var ErrPageLimit = errors.New("invoicing: page limit exceeded")

// StageError reports the stage a layout run failed in. A failed run yields no plan.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("invoicing: layout stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Paginate places doc onto fixed-size pages. The run is a fold over the
// stages carrying a cursor value; any stage failure aborts the whole run.
func Paginate(doc Document, cfg LayoutConfig) (LayoutPlan, error) {
	if err := cfg.Validate(); err != nil {
		return LayoutPlan{}, err
	}
	l := layout{doc: doc, cfg: cfg}
	steps := []struct {
		stage Stage
		run   func(cursor) (cursor, error)
	}{
		{StageHeader, l.header},
		{StageIssuerClient, l.issuerClient},
		{StageSummaryBox, l.summaryBox},
		{StageWorkTable, l.workTable},
		{StageTotals, l.totals},
		{StageFooter, l.footer},
		{StageFinalized, l.finalize},
	}

	c := cursor{y: cfg.Margin}
	for _, step := range steps {
		next, err := step.run(c)
		if err != nil {
			return LayoutPlan{}, &StageError{Stage: step.stage, Err: err}
		}
		c = next
	}

	return LayoutPlan{
		PageWidth:  cfg.PageWidth,
		PageHeight: cfg.PageHeight,
		Meta: PlanMeta{
			Title:     doc.Type.Title() + " " + doc.Header.Number,
			Subject:   doc.Summary.JobLabel,
			Author:    doc.Issuer.Name,
			CreatedAt: doc.Header.IssuedAt,
		},
		Pages: c.pages,
	}, nil
}

// cursor is the fold state. Every method returns a modified copy; appends go
// through a full slice expression so an earlier cursor never sees later writes.
type cursor struct {
	y      float64
	page   []Instruction
	pages  []Page
	placed int // blocks on the current page
	items  int // work items on the current page, drives zebra striping
}

func (c cursor) emit(ins ...Instruction) cursor {
	c.page = append(c.page[:len(c.page):len(c.page)], ins...)
	return c
}

func (c cursor) advance(dy float64) cursor {
	c.y += dy
	return c
}

func (c cursor) closePage(top float64) cursor {
	c.pages = append(c.pages[:len(c.pages):len(c.pages)], Page{Number: len(c.pages) + 1, Instructions: c.page})
	c.page = nil
	c.y = top
	c.placed = 0
	c.items = 0
	return c
}

// row is an unbreakable line. Its instructions are relative to the row's top edge.
type row struct {
	height float64
	draw   []Instruction
}

func (r row) at(top float64) []Instruction {
	out := make([]Instruction, len(r.draw))
	for i, in := range r.draw {
		out[i] = in.Shift(top)
	}
	return out
}

// block is a run of rows kept together on one page whenever it fits.
type block struct {
	rows    []row
	height  float64
	padding float64
	shade   Style
	item    bool
}

func (b *block) add(r row) {
	b.rows = append(b.rows, r)
	b.height += r.height
}

type layout struct {
	doc Document
	cfg LayoutConfig
}

func (l layout) fits(c cursor, h float64) bool {
	return c.y+h <= l.cfg.ContentBottom
}

func (l layout) newPage(c cursor, cont func(cursor) cursor) (cursor, error) {
	if len(c.pages)+2 > l.cfg.MaxPages {
		return c, fmt.Errorf("%w: more than %d pages", ErrPageLimit, l.cfg.MaxPages)
	}
	c = c.closePage(l.cfg.ContentTop)
	if cont != nil {
		c = cont(c)
	}
	return c, nil
}

// capacity is the usable height of a fresh continuation page.
func (l layout) capacity(cont func(cursor) cursor) float64 {
	c := cursor{y: l.cfg.ContentTop}
	if cont != nil {
		c = cont(c)
	}
	return l.cfg.ContentBottom - c.y
}

// place puts b on the current page, or moves it whole to a new page. A block
// taller than an empty page is broken between rows instead.
func (l layout) place(c cursor, b block, cont func(cursor) cursor) (cursor, error) {
	var err error
	oversized := b.height > l.capacity(cont)
	if !l.fits(c, b.height) && c.placed > 0 && !oversized {
		if c, err = l.newPage(c, cont); err != nil {
			return c, err
		}
	}

	if l.fits(c, b.height) {
		c = l.shade(c, b, c.y, b.height)
		for _, r := range b.rows {
			c = c.emit(r.at(c.y)...).advance(r.height)
		}
	} else {
		// Each page segment of a broken block is shaded as its own stripe.
		var seg []row
		top := c.y
		for _, r := range b.rows {
			if !l.fits(c, r.height) {
				c = l.emitSegment(c, b, seg, top)
				seg = nil
				if c, err = l.newPage(c, cont); err != nil {
					return c, err
				}
				if !l.fits(c, r.height) {
					return c, layoutErr(fmt.Sprintf("row of %gpt does not fit an empty page", r.height))
				}
				top = c.y
			}
			seg = append(seg, r)
			c = c.advance(r.height)
		}
		c = l.emitSegment(c, b, seg, top)
	}

	c.placed++
	if b.item {
		c.items++
	}
	return c.advance(b.padding), nil
}

// shade emits the background of a block part spanning [top, top+height).
// Work items alternate by their index on the current page.
func (l layout) shade(c cursor, b block, top, height float64) cursor {
	style := b.shade
	if b.item && c.items%2 == 1 {
		style = StyleZebra
	}
	if style == "" {
		return c
	}
	return c.emit(RectAt(l.cfg.Margin, top-b.padding/2, l.cfg.ContentWidth(), height+b.padding, style))
}

// emitSegment draws rows that were laid out from top down to c.y.
func (l layout) emitSegment(c cursor, b block, rows []row, top float64) cursor {
	if len(rows) == 0 {
		return c
	}
	c = l.shade(c, b, top, c.y-top)
	y := top
	for _, r := range rows {
		c = c.emit(r.at(y)...)
		y += r.height
	}
	return c
}

func (l layout) header(c cursor) (cursor, error) {
	cfg, lh, h := l.cfg, l.cfg.LineHeights, l.doc.Header
	c = c.emit(
		TextAt(h.Label, cfg.Margin, cfg.Margin, StyleTitle),
		TextAt(l.doc.Issuer.Name, cfg.Margin, cfg.Margin+lh.Title, StyleBodyBold).Boxed(cfg.MetaX-cfg.Margin-10, AlignLeft),
	)

	meta := []string{fmt.Sprintf("%s: %s", h.NumberLabel, h.Number), "Date: " + h.IssueDate}
	if h.DueDate != "" {
		meta = append(meta, "Due Date: "+h.DueDate)
	}
	y := cfg.Margin + 5
	for _, line := range meta {
		c = c.emit(TextAt(line, cfg.MetaX, y, StyleBody).Boxed(cfg.RightEdge()-cfg.MetaX, AlignLeft))
		y += lh.Body
	}

	bottom := max(cfg.Margin+lh.Title+lh.Body, y) + cfg.SectionGap
	c = c.emit(RuleFrom(cfg.Margin, bottom, cfg.RightEdge(), bottom, StyleRule))
	c.y = bottom + cfg.SectionGap
	c.placed++
	return c, nil
}

func (l layout) issuerClient(c cursor) (cursor, error) {
	cfg, lh := l.cfg, l.cfg.LineHeights
	var b block
	b.add(row{height: lh.Heading, draw: []Instruction{
		TextAt("FROM:", cfg.Margin, 0, StyleHeading),
		TextAt("BILL TO:", cfg.ClientX, 0, StyleHeading),
	}})

	left := append([]string{l.doc.Issuer.Name}, l.doc.Issuer.Lines()...)
	right := append([]string{l.doc.Client.Name}, l.doc.Client.Lines()...)
	for i := 0; i < max(len(left), len(right)); i++ {
		var draw []Instruction
		if i < len(left) {
			draw = append(draw, TextAt(left[i], cfg.Margin, 0, partyStyle(i, false)).Boxed(cfg.ClientX-cfg.Margin-10, AlignLeft))
		}
		if i < len(right) {
			draw = append(draw, TextAt(right[i], cfg.ClientX, 0, partyStyle(i, l.doc.Client.Placeholder)).Boxed(cfg.RightEdge()-cfg.ClientX, AlignLeft))
		}
		b.add(row{height: lh.Body, draw: draw})
	}

	mid := cfg.SectionGap / 2
	b.add(row{height: cfg.SectionGap, draw: []Instruction{RuleFrom(cfg.Margin, mid, cfg.RightEdge(), mid, StyleRule)}})
	b.padding = mid
	return l.place(c, b, nil)
}

func partyStyle(line int, placeholder bool) Style {
	switch {
	case placeholder:
		return StyleMuted
	case line == 0:
		return StyleBodyBold
	default:
		return StyleBody
	}
}

func (l layout) summaryBox(c cursor) (cursor, error) {
	cfg, s := l.cfg, l.doc.Summary
	draw := []Instruction{
		TextAt(s.JobLabel, cfg.Margin+cfg.ItemPadding, 0, StyleBodyBold),
		TextAt(s.TotalCaption+":", cfg.TotalsX, 0, StyleBodyBold).Boxed(cfg.Amount.X-cfg.TotalsX, AlignLeft),
		TextAt(l.doc.Format.Money(s.Total), cfg.Amount.X, 0, StyleTotal).Boxed(cfg.Amount.Width, AlignRight),
	}
	if due := l.doc.Header.DueDate; due != "" {
		draw = append(draw, TextAt("Due "+due, cfg.Quantity.X-60, 0, StyleBody))
	}
	b := block{shade: StyleSummary, padding: cfg.ItemPadding * 2}
	b.add(row{height: cfg.LineHeights.Heading, draw: draw})
	return l.place(c, b, nil)
}

func (l layout) workTable(c cursor) (cursor, error) {
	if len(l.doc.Items) == 0 {
		return c, nil
	}
	var err error
	// The header stays with the first item, or its first line when the item
	// is taller than a page and will be broken anyway.
	first := l.itemBlock(l.doc.Items[0])
	need := first.height
	if need > l.capacity(l.tableHeader) {
		need = first.rows[0].height
	}
	if !l.fits(c, l.cfg.tableHeaderHeight()+need) {
		if c, err = l.newPage(c, nil); err != nil {
			return c, err
		}
	}
	c = l.tableHeader(c)
	for _, item := range l.doc.Items {
		if c, err = l.place(c, l.itemBlock(item), l.tableHeader); err != nil {
			return c, err
		}
	}
	return c, nil
}

func (l layout) tableHeader(c cursor) cursor {
	cfg, y := l.cfg, c.y
	rule := y + cfg.LineHeights.Body
	c = c.emit(
		TextAt("Description", cfg.Description.X, y, StyleBodyBold),
		TextAt("Qty", cfg.Quantity.X, y, StyleBodyBold).Boxed(cfg.Quantity.Width, AlignCenter),
		TextAt("Unit Price", cfg.UnitPrice.X, y, StyleBodyBold).Boxed(cfg.UnitPrice.Width, AlignRight),
		TextAt("Amount", cfg.Amount.X, y, StyleBodyBold).Boxed(cfg.Amount.Width, AlignRight),
		RuleFrom(cfg.Margin, rule, cfg.RightEdge(), rule, StyleRule),
	)
	return c.advance(cfg.tableHeaderHeight())
}

// itemBlock grows the block one conditional line at a time.
func (l layout) itemBlock(item ItemBlock) block {
	cfg, lh, f := l.cfg, l.cfg.LineHeights, l.doc.Format
	b := block{item: true, padding: cfg.ItemPadding}
	b.add(row{height: lh.Body, draw: []Instruction{
		TextAt(item.Title, cfg.Description.X, 0, StyleBodyBold).Boxed(cfg.Amount.X-cfg.Description.X-10, AlignLeft),
		TextAt(f.Money(item.Amount), cfg.Amount.X, 0, StyleBody).Boxed(cfg.Amount.Width, AlignRight),
	}})
	for _, line := range wrapText(item.Description, cfg.WrapChars) {
		b.add(row{height: lh.Small, draw: []Instruction{TextAt(line, cfg.Description.X, 0, StyleMuted)}})
	}
	if lab := item.Labour; lab != nil {
		if lab.Overridden {
			b.add(l.detailRow("Labour (fixed price)", "", "", f.Money(lab.Cost)))
		} else {
			b.add(l.detailRow("Labour", lab.Hours.String()+" h", f.Money(lab.Rate)+"/h", f.Money(lab.Cost)))
		}
	}
	for _, m := range item.Materials {
		b.add(l.detailRow(m.Name, strconv.Itoa(m.Quantity), f.Money(m.UnitCost), f.Money(m.Total)))
	}
	if item.FixedMaterials != nil {
		b.add(l.detailRow("Materials (fixed price)", "", "", f.Money(*item.FixedMaterials)))
	}
	return b
}

func (l layout) detailRow(name, qty, unit, amount string) row {
	cfg := l.cfg
	indent := cfg.Description.X + 10
	draw := []Instruction{TextAt(name, indent, 0, StyleSmall).Boxed(cfg.Quantity.X-indent-5, AlignLeft)}
	if qty != "" {
		draw = append(draw, TextAt(qty, cfg.Quantity.X, 0, StyleSmall).Boxed(cfg.Quantity.Width, AlignCenter))
	}
	if unit != "" {
		draw = append(draw, TextAt(unit, cfg.UnitPrice.X, 0, StyleSmall).Boxed(cfg.UnitPrice.Width, AlignRight))
	}
	draw = append(draw, TextAt(amount, cfg.Amount.X, 0, StyleSmall).Boxed(cfg.Amount.Width, AlignRight))
	return row{height: cfg.LineHeights.Small, draw: draw}
}

func (l layout) totals(c cursor) (cursor, error) {
	cfg, lh, f := l.cfg, l.cfg.LineHeights, l.doc.Format
	labelWidth := cfg.Amount.X - cfg.TotalsX

	b := block{padding: cfg.SectionGap}
	mid := cfg.SectionGap / 2
	b.add(row{height: cfg.SectionGap, draw: []Instruction{RuleFrom(cfg.TotalsX, mid, cfg.RightEdge(), mid, StyleRule)}})
	for _, line := range l.doc.Totals.Lines {
		amount := TextAt(f.Money(line.Amount), cfg.Amount.X, 0, StyleBody).Boxed(cfg.Amount.Width, AlignRight)
		if !line.Emphasized {
			b.add(row{height: lh.Heading, draw: []Instruction{
				TextAt(line.Label, cfg.TotalsX, 0, StyleBody).Boxed(labelWidth, AlignLeft),
				amount,
			}})
			continue
		}
		amount.Style = StyleTotal
		b.add(row{height: lh.Small + lh.Heading, draw: []Instruction{
			RuleFrom(cfg.TotalsX, lh.Small/2, cfg.RightEdge(), lh.Small/2, StyleRule),
			TextAt(line.Label, cfg.TotalsX, lh.Small, StyleTotal).Boxed(labelWidth, AlignLeft),
			amount.Shift(lh.Small),
		}})
	}
	return l.place(c, b, nil)
}

func (l layout) footer(c cursor) (cursor, error) {
	ft, wrap := l.doc.Footer, l.cfg.WrapChars
	var sections []block
	if p := ft.Payment; p != nil {
		var lines []string
		if p.AccountName != "" {
			lines = append(lines, "Account Name: "+p.AccountName)
		}
		lines = append(lines, "BSB: "+p.BSB)
		if p.AccountNumber != "" {
			lines = append(lines, "Account Number: "+p.AccountNumber)
		}
		lines = append(lines, "Reference: "+p.Reference)
		sections = append(sections, l.section("Payment Details", lines))
	}
	if ft.Terms != "" {
		sections = append(sections, l.section("Terms", wrapText(ft.Terms, wrap)))
	}
	if ft.Notes != "" {
		sections = append(sections, l.section("Notes", wrapText(ft.Notes, wrap)))
	}

	var err error
	for _, s := range sections {
		if c, err = l.place(c, s, nil); err != nil {
			return c, err
		}
	}
	return c, nil
}

func (l layout) section(title string, lines []string) block {
	cfg, lh := l.cfg, l.cfg.LineHeights
	b := block{padding: cfg.SectionGap / 2}
	b.add(row{height: lh.Heading, draw: []Instruction{TextAt(title, cfg.Margin, 0, StyleHeading)}})
	for _, line := range lines {
		b.add(row{height: lh.Small, draw: []Instruction{TextAt(line, cfg.Margin, 0, StyleSmall).Boxed(cfg.ContentWidth(), AlignLeft)}})
	}
	return b
}

// finalize closes the last page and stamps the fixed-position running header
// and page footer now that the page count is known.
func (l layout) finalize(c cursor) (cursor, error) {
	cfg, lh := l.cfg, l.cfg.LineHeights
	c = c.closePage(cfg.ContentTop)
	total := len(c.pages)

	pages := make([]Page, total)
	for i, p := range c.pages {
		ins := make([]Instruction, 0, len(p.Instructions)+5)
		ins = append(ins, p.Instructions...)
		if p.Number > 1 {
			rule := cfg.RunningHeaderY + lh.Body + 3
			ins = append(ins,
				TextAt(fmt.Sprintf("%s %s (continued)", l.doc.Header.Label, l.doc.Header.Number), cfg.Margin, cfg.RunningHeaderY, StyleBodyBold),
				TextAt(l.doc.Issuer.Name, cfg.Margin, cfg.RunningHeaderY, StyleSmall).Boxed(cfg.ContentWidth(), AlignRight),
				RuleFrom(cfg.Margin, rule, cfg.RightEdge(), rule, StyleRuleLight),
			)
		}
		ins = append(ins,
			RuleFrom(cfg.Margin, cfg.PageFooterY-6, cfg.RightEdge(), cfg.PageFooterY-6, StyleRuleLight),
			TextAt(fmt.Sprintf("Page %d of %d", p.Number, total), cfg.Margin, cfg.PageFooterY, StyleSmall).Boxed(cfg.ContentWidth(), AlignCenter),
		)
		pages[i] = Page{Number: p.Number, Instructions: ins}
	}
	c.pages = pages
	return c, nil
}

// wrapText breaks s into lines of at most width characters at word boundaries.
func wrapText(s string, width int) []string {
	var out []string
	for _, para := range splitLines(s) {
		line := ""
		for _, word := range strings.Fields(para) {
			switch {
			case line == "":
				line = word
			case utf8.RuneCountInString(line)+1+utf8.RuneCountInString(word) <= width:
				line += " " + word
			default:
				out = append(out, line)
				line = word
			}
		}
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
