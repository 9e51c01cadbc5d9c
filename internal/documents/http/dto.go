package documentshttp

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/tradesdesk/tradesdesk/internal/invoicing"
)

const dateLayout = "2006-01-02"

// GenerateDTO is the JSON body accepted by the generation endpoints.
type GenerateDTO struct {
	Type            string          `json:"type" validate:"required,oneof=quote invoice"`
	DocumentID      string          `json:"document_id" validate:"omitempty,max=32,alphanum"`
	DocumentNumber  string          `json:"document_number" validate:"omitempty,max=64"`
	JobNumber       int             `json:"job_number" validate:"gte=0"`
	IssueDate       string          `json:"issue_date" validate:"omitempty,datetime=2006-01-02"`
	DueDate         string          `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	DueDays         *int            `json:"due_days" validate:"omitempty,gte=0,lte=365"`
	WorkItems       []WorkItemDTO   `json:"work_items" validate:"max=500,dive"`
	Client          *ClientDTO      `json:"client" validate:"omitempty"`
	Settings        *SettingsDTO    `json:"settings" validate:"required"`
	DiscountPercent decimal.Decimal `json:"discount_percent" validate:"gte=0,lte=100"`
	ShowMaterials   bool            `json:"show_materials"`
	ShowLabour      bool            `json:"show_labour"`
	Notes           string          `json:"notes" validate:"max=4000"`
	Terms           string          `json:"terms" validate:"max=4000"`
}

// WorkItemDTO is one work item of the request body.
type WorkItemDTO struct {
	Title                string              `json:"title" validate:"required,max=200"`
	Description          string              `json:"description" validate:"max=2000"`
	LabourHours          decimal.Decimal     `json:"labour_hours" validate:"gte=0"`
	LabourRate           decimal.Decimal     `json:"labour_rate" validate:"gte=0"`
	LabourCostOverride   decimal.NullDecimal `json:"labour_cost_override" validate:"omitempty,gte=0"`
	MaterialCostOverride decimal.NullDecimal `json:"material_cost_override" validate:"omitempty,gte=0"`
	Materials            []MaterialDTO       `json:"materials" validate:"max=200,dive"`
}

// MaterialDTO is one material line.
type MaterialDTO struct {
	Name     string          `json:"name" validate:"required,max=200"`
	UnitCost decimal.Decimal `json:"unit_cost" validate:"gte=0"`
	Quantity int             `json:"quantity" validate:"gte=0"`
}

// ClientDTO is the billed party.
type ClientDTO struct {
	Name    string `json:"name" validate:"max=200"`
	Email   string `json:"email" validate:"omitempty,email"`
	Phone   string `json:"phone" validate:"max=50"`
	Address string `json:"address" validate:"max=500"`
}

// SettingsDTO describes the issuing business.
type SettingsDTO struct {
	BusinessName  string `json:"business_name" validate:"max=200"`
	ABN           string `json:"abn" validate:"max=20"`
	Address       string `json:"address" validate:"max=500"`
	Phone         string `json:"phone" validate:"max=50"`
	Email         string `json:"email" validate:"omitempty,email"`
	AccountName   string `json:"account_name" validate:"max=200"`
	BSB           string `json:"bsb" validate:"max=20"`
	AccountNumber string `json:"account_number" validate:"max=30"`
	Terms         string `json:"terms" validate:"max=4000"`
	DefaultNotes  string `json:"default_notes" validate:"max=4000"`
}

// NewValidator returns a validator that compares decimals numerically.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{}, decimal.NullDecimal{})
	return v
}

func decimalValue(field reflect.Value) any {
	switch d := field.Interface().(type) {
	case decimal.Decimal:
		return d.InexactFloat64()
	case decimal.NullDecimal:
		if !d.Valid {
			return nil
		}
		return d.Decimal.InexactFloat64()
	}
	return nil
}

// Defaults applied while converting a DTO.
type Defaults struct {
	Now     time.Time
	DueDays int
}

// ToRequest converts a validated DTO into an engine request. An explicit
// document_number wins; otherwise document_id is numbered per type. With
// neither, the number stays empty and the service assigns one.
func (d GenerateDTO) ToRequest(def Defaults) (invoicing.DocumentRequest, error) {
	docType, err := invoicing.ParseDocumentType(d.Type)
	if err != nil {
		return invoicing.DocumentRequest{}, err
	}
	issue := time.Date(def.Now.Year(), def.Now.Month(), def.Now.Day(), 0, 0, 0, 0, time.UTC)
	if d.IssueDate != "" {
		if issue, err = time.Parse(dateLayout, d.IssueDate); err != nil {
			return invoicing.DocumentRequest{}, fmt.Errorf("issue_date: %w", err)
		}
	}

	req := invoicing.DocumentRequest{
		Type:            docType,
		DocumentNumber:  strings.TrimSpace(d.DocumentNumber),
		JobNumber:       d.JobNumber,
		IssueDate:       issue,
		DiscountPercent: d.DiscountPercent,
		ShowMaterials:   d.ShowMaterials,
		ShowLabour:      d.ShowLabour,
		Notes:           d.Notes,
		Terms:           d.Terms,
	}
	if req.DocumentNumber == "" && strings.TrimSpace(d.DocumentID) != "" {
		req.DocumentNumber = invoicing.DocumentNumber(docType, d.JobNumber, d.DocumentID)
	}

	switch {
	case d.DueDate != "":
		due, err := time.Parse(dateLayout, d.DueDate)
		if err != nil {
			return invoicing.DocumentRequest{}, fmt.Errorf("due_date: %w", err)
		}
		req.DueDate = &due
	case docType == invoicing.DocumentInvoice:
		days := def.DueDays
		if d.DueDays != nil {
			days = *d.DueDays
		}
		due := invoicing.DueDateFrom(issue, days)
		req.DueDate = &due
	}

	req.WorkItems = make([]invoicing.WorkItem, 0, len(d.WorkItems))
	for _, w := range d.WorkItems {
		item := invoicing.WorkItem{
			Title:                w.Title,
			Description:          w.Description,
			LabourHours:          w.LabourHours,
			LabourRate:           w.LabourRate,
			LabourCostOverride:   w.LabourCostOverride,
			MaterialCostOverride: w.MaterialCostOverride,
		}
		for _, m := range w.Materials {
			item.Materials = append(item.Materials, invoicing.MaterialLine{Name: m.Name, UnitCost: m.UnitCost, Quantity: m.Quantity})
		}
		req.WorkItems = append(req.WorkItems, item)
	}
	if d.Client != nil {
		req.Client = &invoicing.Client{Name: d.Client.Name, Email: d.Client.Email, Phone: d.Client.Phone, Address: d.Client.Address}
	}
	if s := d.Settings; s != nil {
		req.Settings = &invoicing.BusinessSettings{
			BusinessName:  s.BusinessName,
			ABN:           s.ABN,
			Address:       s.Address,
			Phone:         s.Phone,
			Email:         s.Email,
			AccountName:   s.AccountName,
			BSB:           s.BSB,
			AccountNumber: s.AccountNumber,
			Terms:         s.Terms,
			DefaultNotes:  s.DefaultNotes,
		}
	}
	return req, nil
}
