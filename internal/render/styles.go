// Package render turns layout plans into document bytes.
package render

import (
	"context"
	"errors"
	"fmt"

	"github.com/tradesdesk/tradesdesk/internal/invoicing"
)

// ErrUnknownStyle is returned for an instruction whose style has no mapping in the sink.
var ErrUnknownStyle = errors.New("render: unknown style")

type rgb struct{ r, g, b int }

func (c rgb) hex() string { return fmt.Sprintf("#%02x%02x%02x", c.r, c.g, c.b) }

var (
	black     = rgb{0, 0, 0}
	ink       = rgb{33, 37, 41}
	grey      = rgb{108, 117, 125}
	lightGrey = rgb{204, 204, 204}
)

type textStyle struct {
	bold  bool
	size  float64
	color rgb
}

type strokeStyle struct {
	width float64
	color rgb
}

var textStyles = map[invoicing.Style]textStyle{
	invoicing.StyleTitle:    {bold: true, size: 24, color: black},
	invoicing.StyleHeading:  {bold: true, size: 14, color: black},
	invoicing.StyleBody:     {size: 12, color: ink},
	invoicing.StyleBodyBold: {bold: true, size: 12, color: ink},
	invoicing.StyleSmall:    {size: 10, color: ink},
	invoicing.StyleMuted:    {size: 10, color: grey},
	invoicing.StyleTotal:    {bold: true, size: 14, color: black},
}

var strokeStyles = map[invoicing.Style]strokeStyle{
	invoicing.StyleRule:      {width: 1, color: black},
	invoicing.StyleRuleLight: {width: 0.5, color: lightGrey},
}

var fillStyles = map[invoicing.Style]rgb{
	invoicing.StyleZebra:   {245, 245, 245},
	invoicing.StyleSummary: {234, 240, 247},
}

func lookup[V any](table map[invoicing.Style]V, in invoicing.Instruction) (V, error) {
	v, ok := table[in.Style]
	if !ok {
		return v, fmt.Errorf("%w %q for %s", ErrUnknownStyle, in.Style, in.Kind)
	}
	return v, nil
}

// Sink turns a layout plan into document bytes.
type Sink interface {
	Name() string
	ContentType() string
	Extension() string
	Render(ctx context.Context, plan invoicing.LayoutPlan) ([]byte, error)
}

// New returns the sink registered under name. client is only needed for "gotenberg".
func New(name string, client PDFClient) (Sink, error) {
	switch name {
	case "", "gofpdf":
		return NewPDF(), nil
	case "gotenberg":
		h, err := NewHTML(client)
		if err != nil {
			return nil, err
		}
		return h, nil
	default:
		return nil, fmt.Errorf("render: unknown sink %q", name)
	}
}
