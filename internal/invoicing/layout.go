package invoicing

import (
	"fmt"
	"time"
)

// InstructionKind is the draw primitive understood by every render sink.
type InstructionKind string

const (
	KindText InstructionKind = "text"
	KindRule InstructionKind = "rule"
	KindRect InstructionKind = "rect"
)

// Style names a text, stroke or fill style. Sinks map styles to concrete fonts and colours.
type Style string

const (
	StyleTitle     Style = "title"
	StyleHeading   Style = "heading"
	StyleBody      Style = "body"
	StyleBodyBold  Style = "body_bold"
	StyleSmall     Style = "small"
	StyleMuted     Style = "muted"
	StyleTotal     Style = "total"
	StyleRule      Style = "rule"
	StyleRuleLight Style = "rule_light"
	StyleZebra     Style = "zebra"
	StyleSummary   Style = "summary"
)

// Align is the horizontal alignment of text inside its box.
type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

// Instruction is one positioned draw operation. Coordinates are points from
// the top-left corner of the page; Y is the top edge of a text line.
type Instruction struct {
	Kind   InstructionKind `json:"kind"`
	Text   string          `json:"text,omitempty"`
	X      float64         `json:"x"`
	Y      float64         `json:"y"`
	X2     float64         `json:"x2,omitempty"`
	Y2     float64         `json:"y2,omitempty"`
	Width  float64         `json:"width,omitempty"`
	Height float64         `json:"height,omitempty"`
	Style  Style           `json:"style"`
	Align  Align           `json:"align,omitempty"`
}

// TextAt places left-aligned, unboxed text.
func TextAt(text string, x, y float64, style Style) Instruction {
	return Instruction{Kind: KindText, Text: text, X: x, Y: y, Style: style, Align: AlignLeft}
}

// RuleFrom draws a straight line.
func RuleFrom(x1, y1, x2, y2 float64, style Style) Instruction {
	return Instruction{Kind: KindRule, X: x1, Y: y1, X2: x2, Y2: y2, Style: style}
}

// RectAt fills a rectangle.
func RectAt(x, y, w, h float64, style Style) Instruction {
	return Instruction{Kind: KindRect, X: x, Y: y, Width: w, Height: h, Style: style}
}

// Boxed constrains text to width and aligns it inside that box.
func (in Instruction) Boxed(width float64, align Align) Instruction {
	in.Width = width
	in.Align = align
	return in
}

// Shift moves the instruction down by dy.
func (in Instruction) Shift(dy float64) Instruction {
	in.Y += dy
	if in.Kind == KindRule {
		in.Y2 += dy
	}
	return in
}

// Page is an ordered list of instructions. Number is 1-based.
type Page struct {
	Number       int           `json:"number"`
	Instructions []Instruction `json:"instructions"`
}

// Texts returns the text content of the page in draw order.
func (p Page) Texts() []string {
	out := make([]string, 0, len(p.Instructions))
	for _, in := range p.Instructions {
		if in.Kind == KindText {
			out = append(out, in.Text)
		}
	}
	return out
}

// PlanMeta carries document properties for sinks that embed them.
type PlanMeta struct {
	Title     string    `json:"title"`
	Subject   string    `json:"subject"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
}

// LayoutPlan is the finished, sink-independent output of the layout engine.
type LayoutPlan struct {
	PageWidth  float64  `json:"page_width"`
	PageHeight float64  `json:"page_height"`
	Meta       PlanMeta `json:"meta"`
	Pages      []Page   `json:"pages"`
}

// PageCount returns the number of pages.
func (p LayoutPlan) PageCount() int { return len(p.Pages) }

// Column is a horizontal slot of the work table.
type Column struct {
	X     float64 `json:"x"`
	Width float64 `json:"width"`
}

// LineHeights is the fixed line-height estimate per style tier.
type LineHeights struct {
	Title   float64 `json:"title"`
	Heading float64 `json:"heading"`
	Body    float64 `json:"body"`
	Small   float64 `json:"small"`
}

func (h LineHeights) max() float64 {
	m := h.Title
	for _, v := range []float64{h.Heading, h.Body, h.Small} {
		if v > m {
			m = v
		}
	}
	return m
}

// LayoutConfig is the single source of page geometry.
type LayoutConfig struct {
	PageWidth  float64 `json:"page_width"`
	PageHeight float64 `json:"page_height"`
	Margin     float64 `json:"margin"`

	// RunningHeaderY is where continuation pages repeat the document identity.
	RunningHeaderY float64 `json:"running_header_y"`
	// ContentTop is the first usable y on continuation pages.
	ContentTop float64 `json:"content_top"`
	// ContentBottom is the boundary no block may cross.
	ContentBottom float64 `json:"content_bottom"`
	PageFooterY   float64 `json:"page_footer_y"`

	MetaX   float64 `json:"meta_x"`
	ClientX float64 `json:"client_x"`
	TotalsX float64 `json:"totals_x"`

	Description Column `json:"description"`
	Quantity    Column `json:"quantity"`
	UnitPrice   Column `json:"unit_price"`
	Amount      Column `json:"amount"`

	LineHeights LineHeights `json:"line_heights"`
	ItemPadding float64     `json:"item_padding"`
	SectionGap  float64     `json:"section_gap"`

	// WrapChars approximates how many characters fit across the description
	// column; longer descriptions and footer paragraphs are broken into lines.
	WrapChars int `json:"wrap_chars"`
	MaxPages  int `json:"max_pages"`
}

// DefaultLayoutConfig is US Letter in points with a 50pt margin and a 550pt right edge.
func DefaultLayoutConfig() LayoutConfig {
	return LayoutConfig{
		PageWidth:      612,
		PageHeight:     792,
		Margin:         50,
		RunningHeaderY: 40,
		ContentTop:     75,
		ContentBottom:  730,
		PageFooterY:    750,
		MetaX:          400,
		ClientX:        300,
		TotalsX:        350,
		Description:    Column{X: 50, Width: 190},
		Quantity:       Column{X: 250, Width: 50},
		UnitPrice:      Column{X: 320, Width: 80},
		Amount:         Column{X: 470, Width: 80},
		LineHeights:    LineHeights{Title: 30, Heading: 20, Body: 15, Small: 13},
		ItemPadding:    10,
		SectionGap:     20,
		WrapChars:      95,
		MaxPages:       500,
	}
}

// RightEdge is the right-hand end of the work table.
func (c LayoutConfig) RightEdge() float64 { return c.Amount.X + c.Amount.Width }

// ContentWidth spans margin to right edge.
func (c LayoutConfig) ContentWidth() float64 { return c.RightEdge() - c.Margin }

func (c LayoutConfig) tableHeaderHeight() float64 { return c.LineHeights.Body * 2 }

// Validate checks that the geometry leaves room for at least one row of every kind.
func (c LayoutConfig) Validate() error {
	switch {
	case c.PageWidth <= 0 || c.PageHeight <= 0:
		return layoutErr("page size must be positive")
	case c.Margin < 0:
		return layoutErr("margin must not be negative")
	case c.LineHeights.Title <= 0 || c.LineHeights.Heading <= 0 || c.LineHeights.Body <= 0 || c.LineHeights.Small <= 0:
		return layoutErr("line heights must be positive")
	case c.ItemPadding < 0 || c.SectionGap < 0:
		return layoutErr("padding must not be negative")
	case !(c.Description.X < c.Quantity.X && c.Quantity.X < c.UnitPrice.X && c.UnitPrice.X < c.Amount.X):
		return layoutErr("table columns out of order")
	case c.Description.X < c.Margin || c.RightEdge() > c.PageWidth:
		return layoutErr("table wider than page")
	case c.RunningHeaderY >= c.ContentTop:
		return layoutErr("running header overlaps content")
	case c.ContentBottom > c.PageFooterY || c.PageFooterY > c.PageHeight:
		return layoutErr("page footer outside page")
	case c.ContentBottom-c.ContentTop < c.tableHeaderHeight()+c.LineHeights.max()+c.ItemPadding:
		return layoutErr("content area too short")
	case c.WrapChars < 10:
		return layoutErr("wrap width too small")
	case c.MaxPages < 1:
		return layoutErr("max pages must be at least 1")
	}
	return nil
}

func layoutErr(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidLayout, msg)
}
