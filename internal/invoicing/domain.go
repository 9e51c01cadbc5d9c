// Package invoicing turns a job's work breakdown into quote and invoice totals
// and a paginated layout plan for a render sink.
package invoicing

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DocumentType selects between the quote and invoice variants.
type DocumentType string

const (
	DocumentQuote   DocumentType = "quote"
	DocumentInvoice DocumentType = "invoice"
)

// ParseDocumentType normalises v into a DocumentType.
func ParseDocumentType(v string) (DocumentType, error) {
	switch DocumentType(strings.ToLower(strings.TrimSpace(v))) {
	case DocumentQuote:
		return DocumentQuote, nil
	case DocumentInvoice:
		return DocumentInvoice, nil
	default:
		return "", fmt.Errorf("%w: unknown document type %q", ErrInvalidRequest, v)
	}
}

// Valid reports whether t is one of the known variants.
func (t DocumentType) Valid() bool {
	return t == DocumentQuote || t == DocumentInvoice
}

// Label is the heading printed at the top of the first page.
func (t DocumentType) Label() string {
	if t == DocumentInvoice {
		return "INVOICE"
	}
	return "QUOTE"
}

// NumberLabel is the caption shown next to the document number.
func (t DocumentType) NumberLabel() string {
	if t == DocumentInvoice {
		return "Invoice #"
	}
	return "Quote #"
}

// Title is the mixed-case name used in file names and summaries.
func (t DocumentType) Title() string {
	if t == DocumentInvoice {
		return "Invoice"
	}
	return "Quote"
}

// MaterialLine is a single material used by a work item.
type MaterialLine struct {
	Name     string          `json:"name"`
	UnitCost decimal.Decimal `json:"unit_cost"`
	Quantity int             `json:"quantity"`
}

// WorkItem is a billable unit of labour plus its materials.
type WorkItem struct {
	Title                string              `json:"title"`
	Description          string              `json:"description,omitempty"`
	LabourHours          decimal.Decimal     `json:"labour_hours"`
	LabourRate           decimal.Decimal     `json:"labour_rate"`
	LabourCostOverride   decimal.NullDecimal `json:"labour_cost_override"`
	MaterialCostOverride decimal.NullDecimal `json:"material_cost_override"`
	Materials            []MaterialLine      `json:"materials,omitempty"`
}

// Client is the billed party. A nil *Client renders a placeholder block.
type Client struct {
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

// BusinessSettings describes the issuer of the document.
type BusinessSettings struct {
	BusinessName  string `json:"business_name"`
	ABN           string `json:"abn,omitempty"`
	Address       string `json:"address,omitempty"`
	Phone         string `json:"phone,omitempty"`
	Email         string `json:"email,omitempty"`
	AccountName   string `json:"account_name,omitempty"`
	BSB           string `json:"bsb,omitempty"`
	AccountNumber string `json:"account_number,omitempty"`
	Terms         string `json:"terms,omitempty"`
	DefaultNotes  string `json:"default_notes,omitempty"`
	Logo          string `json:"logo,omitempty"`
}

// HasPaymentDetails reports whether the bank transfer box should be printed.
// The routing number is the minimum requirement.
func (s BusinessSettings) HasPaymentDetails() bool {
	return strings.TrimSpace(s.BSB) != ""
}

// DocumentRequest is the complete input of a generation run.
type DocumentRequest struct {
	Type            DocumentType      `json:"type"`
	DocumentNumber  string            `json:"document_number"`
	JobNumber       int               `json:"job_number"`
	IssueDate       time.Time         `json:"issue_date"`
	DueDate         *time.Time        `json:"due_date,omitempty"`
	WorkItems       []WorkItem        `json:"work_items"`
	Client          *Client           `json:"client,omitempty"`
	Settings        *BusinessSettings `json:"settings"`
	DiscountPercent decimal.Decimal   `json:"discount_percent"`
	ShowMaterials   bool              `json:"show_materials"`
	ShowLabour      bool              `json:"show_labour"`
	Notes           string            `json:"notes,omitempty"`
	Terms           string            `json:"terms,omitempty"`
}

// ResolvedTerms returns the request terms, falling back to the issuer's standing terms.
func (r DocumentRequest) ResolvedTerms() string {
	if terms := strings.TrimSpace(r.Terms); terms != "" {
		return terms
	}
	if r.Settings == nil {
		return ""
	}
	return strings.TrimSpace(r.Settings.Terms)
}

// ResolvedNotes returns the request notes, falling back to the issuer default.
func (r DocumentRequest) ResolvedNotes() string {
	if notes := strings.TrimSpace(r.Notes); notes != "" {
		return notes
	}
	if r.Settings == nil {
		return ""
	}
	return strings.TrimSpace(r.Settings.DefaultNotes)
}

var (
	// ErrInvalidRequest marks a malformed DocumentRequest.
	ErrInvalidRequest = errors.New("invoicing: invalid document request")
	// ErrSettingsIncomplete means the issuer has not been configured yet.
	ErrSettingsIncomplete = errors.New("invoicing: business settings incomplete")
	// ErrInvalidLayout marks an unusable LayoutConfig.
	ErrInvalidLayout = errors.New("invoicing: invalid layout config")
)

var hundred = decimal.NewFromInt(100)

// Validate rejects requests the engine cannot turn into a document.
func (r DocumentRequest) Validate() error {
	if r.Settings == nil || strings.TrimSpace(r.Settings.BusinessName) == "" {
		return ErrSettingsIncomplete
	}
	if !r.Type.Valid() {
		return invalidf("unknown document type %q", r.Type)
	}
	if strings.TrimSpace(r.DocumentNumber) == "" {
		return invalidf("document number required")
	}
	if r.JobNumber < 0 {
		return invalidf("job number must not be negative")
	}
	if r.IssueDate.IsZero() {
		return invalidf("issue date required")
	}
	if r.DueDate != nil && r.DueDate.Before(r.IssueDate) {
		return invalidf("due date before issue date")
	}
	if r.DiscountPercent.IsNegative() || r.DiscountPercent.GreaterThan(hundred) {
		return invalidf("discount percent %s outside 0..100", r.DiscountPercent)
	}
	for i, item := range r.WorkItems {
		if err := item.validate(); err != nil {
			return fmt.Errorf("%w (work item %d)", err, i+1)
		}
	}
	return nil
}

func (w WorkItem) validate() error {
	if strings.TrimSpace(w.Title) == "" {
		return invalidf("title required")
	}
	if w.LabourHours.IsNegative() {
		return invalidf("labour hours must not be negative")
	}
	if w.LabourRate.IsNegative() {
		return invalidf("labour rate must not be negative")
	}
	if w.LabourCostOverride.Valid && w.LabourCostOverride.Decimal.IsNegative() {
		return invalidf("labour cost override must not be negative")
	}
	if w.MaterialCostOverride.Valid && w.MaterialCostOverride.Decimal.IsNegative() {
		return invalidf("material cost override must not be negative")
	}
	for _, m := range w.Materials {
		if strings.TrimSpace(m.Name) == "" {
			return invalidf("material name required")
		}
		if m.UnitCost.IsNegative() {
			return invalidf("material %q unit cost must not be negative", m.Name)
		}
		if m.Quantity < 0 {
			return invalidf("material %q quantity must not be negative", m.Name)
		}
	}
	return nil
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}
