package invoicing

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// NoClientPlaceholder is printed in the client block when the job has no client.
const NoClientPlaceholder = "No client specified"

// Format controls how money and dates are written into the document.
type Format struct {
	CurrencySymbol string `json:"currency_symbol"`
	DateLayout     string `json:"date_layout"`
}

// DefaultFormat prints amounts as $1234.50 and dates as dd/mm/yyyy.
func DefaultFormat() Format {
	return Format{CurrencySymbol: "$", DateLayout: "02/01/2006"}
}

// Money writes a pre-rounded amount with two decimals.
func (f Format) Money(v decimal.Decimal) string {
	if v.IsNegative() {
		return "-" + f.CurrencySymbol + v.Neg().StringFixed(moneyPlaces)
	}
	return f.CurrencySymbol + v.StringFixed(moneyPlaces)
}

// Document is the immutable, type-tagged descriptor consumed by the layout engine.
type Document struct {
	Type    DocumentType    `json:"type"`
	Format  Format          `json:"format"`
	Header  HeaderBlock     `json:"header"`
	Issuer  IssuerBlock     `json:"issuer"`
	Client  ClientBlock     `json:"client"`
	Summary SummaryBlock    `json:"summary"`
	Items   []ItemBlock     `json:"items"`
	Totals  TotalsBlock     `json:"totals"`
	Footer  FooterBlock     `json:"footer"`
	Figures TotalsBreakdown `json:"figures"`
}

// HeaderBlock holds the document identity shown in the page header.
type HeaderBlock struct {
	Label       string `json:"label"`
	NumberLabel string `json:"number_label"`
	Number      string `json:"number"`
	JobNumber   int    `json:"job_number"`
	IssueDate   string `json:"issue_date"`
	DueDate     string `json:"due_date,omitempty"`

	IssuedAt time.Time `json:"issued_at"`
}

// IssuerBlock is the "FROM" section.
type IssuerBlock struct {
	Name    string `json:"name"`
	TaxID   string `json:"tax_id,omitempty"`
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	Logo    string `json:"logo,omitempty"`
}

// Lines returns the printable issuer lines below the business name.
func (b IssuerBlock) Lines() []string {
	lines := make([]string, 0, 6)
	if b.TaxID != "" {
		lines = append(lines, "ABN: "+b.TaxID)
	}
	lines = append(lines, splitLines(b.Address)...)
	if b.Phone != "" {
		lines = append(lines, "Phone: "+b.Phone)
	}
	if b.Email != "" {
		lines = append(lines, "Email: "+b.Email)
	}
	return lines
}

// ClientBlock is the "BILL TO" section.
type ClientBlock struct {
	Name        string `json:"name"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Address     string `json:"address,omitempty"`
	Placeholder bool   `json:"placeholder"`
}

// Lines returns the printable client lines below the name.
func (b ClientBlock) Lines() []string {
	if b.Placeholder {
		return nil
	}
	lines := splitLines(b.Address)
	if b.Phone != "" {
		lines = append(lines, "Phone: "+b.Phone)
	}
	if b.Email != "" {
		lines = append(lines, "Email: "+b.Email)
	}
	return lines
}

// SummaryBlock is the shaded box repeating the headline figure.
type SummaryBlock struct {
	JobLabel     string          `json:"job_label"`
	TotalCaption string          `json:"total_caption"`
	Total        decimal.Decimal `json:"total"`
}

// ItemBlock is one work item as it appears in the work table.
type ItemBlock struct {
	Index       int             `json:"index"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Labour      *LabourLine     `json:"labour,omitempty"`
	Materials   []MaterialRow   `json:"materials,omitempty"`

	// FixedMaterials is set when a material override replaces the listed lines.
	FixedMaterials *decimal.Decimal `json:"fixed_materials,omitempty"`
}

// LabourLine summarises the labour component of an item.
type LabourLine struct {
	Hours      decimal.Decimal `json:"hours"`
	Rate       decimal.Decimal `json:"rate"`
	Cost       decimal.Decimal `json:"cost"`
	Overridden bool            `json:"overridden"`
}

// MaterialRow is one printed material line.
type MaterialRow struct {
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	UnitCost decimal.Decimal `json:"unit_cost"`
	Total    decimal.Decimal `json:"total"`
}

// TotalKind identifies a row of the totals block.
type TotalKind string

const (
	TotalSubtotal TotalKind = "subtotal"
	TotalDiscount TotalKind = "discount"
	TotalTax      TotalKind = "tax"
	TotalGrand    TotalKind = "grand_total"
)

// TotalLine is one label/amount row of the totals block.
type TotalLine struct {
	Kind       TotalKind       `json:"kind"`
	Label      string          `json:"label"`
	Amount     decimal.Decimal `json:"amount"`
	Emphasized bool            `json:"emphasized"`
}

// TotalsBlock lists the totals rows in print order.
type TotalsBlock struct {
	Lines []TotalLine `json:"lines"`
}

// Has reports whether a line of the given kind is present.
func (b TotalsBlock) Has(kind TotalKind) bool {
	for _, line := range b.Lines {
		if line.Kind == kind {
			return true
		}
	}
	return false
}

// PaymentBlock carries bank transfer details.
type PaymentBlock struct {
	AccountName   string `json:"account_name,omitempty"`
	BSB           string `json:"bsb"`
	AccountNumber string `json:"account_number,omitempty"`
	Reference     string `json:"reference"`
}

// FooterBlock groups the optional closing sections.
type FooterBlock struct {
	Payment *PaymentBlock `json:"payment,omitempty"`
	Terms   string        `json:"terms,omitempty"`
	Notes   string        `json:"notes,omitempty"`
}

// BuildDocument assembles the document descriptor. totals are taken at full
// precision and rounded here, once, for everything that enters the model.
func BuildDocument(req DocumentRequest, totals TotalsBreakdown, policy TaxPolicy, format Format) Document {
	figures := totals.Rounded()
	settings := BusinessSettings{}
	if req.Settings != nil {
		settings = *req.Settings
	}

	header := HeaderBlock{
		Label:       req.Type.Label(),
		NumberLabel: req.Type.NumberLabel(),
		Number:      req.DocumentNumber,
		JobNumber:   req.JobNumber,
		IssueDate:   req.IssueDate.Format(format.DateLayout),
		IssuedAt:    req.IssueDate,
	}
	if req.Type == DocumentInvoice && req.DueDate != nil {
		header.DueDate = req.DueDate.Format(format.DateLayout)
	}

	caption := "Quote Total"
	if req.Type == DocumentInvoice {
		caption = "Amount Due"
	}

	return Document{
		Type:   req.Type,
		Format: format,
		Header: header,
		Issuer: IssuerBlock{
			Name:    strings.TrimSpace(settings.BusinessName),
			TaxID:   strings.TrimSpace(settings.ABN),
			Address: strings.TrimSpace(settings.Address),
			Phone:   strings.TrimSpace(settings.Phone),
			Email:   strings.TrimSpace(settings.Email),
			Logo:    settings.Logo,
		},
		Client:  buildClient(req.Client),
		Summary: SummaryBlock{JobLabel: fmt.Sprintf("Job #%d", req.JobNumber), TotalCaption: caption, Total: figures.GrandTotal},
		Items:   buildItems(req),
		Totals:  buildTotals(req, figures, policy),
		Footer:  buildFooter(req, settings),
		Figures: figures,
	}
}

func buildClient(c *Client) ClientBlock {
	if c == nil || strings.TrimSpace(c.Name) == "" {
		return ClientBlock{Name: NoClientPlaceholder, Placeholder: true}
	}
	return ClientBlock{
		Name:    strings.TrimSpace(c.Name),
		Email:   strings.TrimSpace(c.Email),
		Phone:   strings.TrimSpace(c.Phone),
		Address: strings.TrimSpace(c.Address),
	}
}

func buildItems(req DocumentRequest) []ItemBlock {
	items := make([]ItemBlock, 0, len(req.WorkItems))
	for i, work := range req.WorkItems {
		cost := AggregateWork(work)
		block := ItemBlock{
			Index:       i,
			Title:       strings.TrimSpace(work.Title),
			Description: strings.TrimSpace(work.Description),
			Amount:      roundMoney(cost.Total),
		}
		if req.ShowLabour && work.LabourHours.IsPositive() {
			block.Labour = &LabourLine{
				Hours:      work.LabourHours,
				Rate:       roundMoney(work.LabourRate),
				Cost:       roundMoney(cost.Labour),
				Overridden: work.LabourCostOverride.Valid,
			}
		}
		if req.ShowMaterials && work.MaterialCostOverride.Valid {
			fixed := roundMoney(cost.Material)
			block.FixedMaterials = &fixed
		}
		if req.ShowMaterials && len(work.Materials) > 0 {
			block.Materials = make([]MaterialRow, 0, len(work.Materials))
			for _, m := range work.Materials {
				block.Materials = append(block.Materials, MaterialRow{
					Name:     strings.TrimSpace(m.Name),
					Quantity: m.Quantity,
					UnitCost: roundMoney(m.UnitCost),
					Total:    roundMoney(MaterialLineTotal(m)),
				})
			}
		}
		items = append(items, block)
	}
	return items
}

func buildTotals(req DocumentRequest, figures TotalsBreakdown, policy TaxPolicy) TotalsBlock {
	lines := []TotalLine{{Kind: TotalSubtotal, Label: "Subtotal:", Amount: figures.Subtotal}}
	if req.DiscountPercent.IsPositive() {
		lines = append(lines, TotalLine{
			Kind:   TotalDiscount,
			Label:  fmt.Sprintf("Discount (%s%%):", req.DiscountPercent.String()),
			Amount: figures.DiscountAmount.Neg(),
		})
	}
	lines = append(lines,
		TotalLine{Kind: TotalTax, Label: policy.LineLabel() + ":", Amount: figures.TaxAmount},
		TotalLine{Kind: TotalGrand, Label: "TOTAL:", Amount: figures.GrandTotal, Emphasized: true},
	)
	return TotalsBlock{Lines: lines}
}

func buildFooter(req DocumentRequest, settings BusinessSettings) FooterBlock {
	footer := FooterBlock{
		Terms: req.ResolvedTerms(),
		Notes: req.ResolvedNotes(),
	}
	if settings.HasPaymentDetails() {
		footer.Payment = &PaymentBlock{
			AccountName:   strings.TrimSpace(settings.AccountName),
			BSB:           strings.TrimSpace(settings.BSB),
			AccountNumber: strings.TrimSpace(settings.AccountNumber),
			Reference:     req.DocumentNumber,
		}
	}
	return footer
}

func splitLines(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	raw := strings.Split(strings.ReplaceAll(v, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
