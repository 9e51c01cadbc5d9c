package invoicing

import (
	"fmt"
	"strings"
	"time"
)

// DefaultDueDays is the payment window applied when an invoice has no explicit due date.
const DefaultDueDays = 30

// QuoteNumber formats the caller-assigned id of a quote for job jobNumber.
func QuoteNumber(jobNumber int, id string) string {
	return fmt.Sprintf("Q-%d-%s", jobNumber, strings.TrimSpace(id))
}

// InvoiceNumber formats the caller-assigned id of an invoice for job jobNumber.
func InvoiceNumber(jobNumber int, id string) string {
	return fmt.Sprintf("INV-%d-%s", jobNumber, strings.TrimSpace(id))
}

// DocumentNumber dispatches to QuoteNumber or InvoiceNumber.
func DocumentNumber(t DocumentType, jobNumber int, id string) string {
	if t == DocumentInvoice {
		return InvoiceNumber(jobNumber, id)
	}
	return QuoteNumber(jobNumber, id)
}

// DueDateFrom adds dueDays calendar days to issue. Negative values use DefaultDueDays.
func DueDateFrom(issue time.Time, dueDays int) time.Time {
	if dueDays < 0 {
		dueDays = DefaultDueDays
	}
	return issue.AddDate(0, 0, dueDays)
}

var fileStampReplacer = strings.NewReplacer(":", "_", ".", "_")

// FileName builds the stored file name, e.g. Invoice_42_2024-05-01T10_20_30_000Z.pdf.
func FileName(t DocumentType, jobNumber int, at time.Time, ext string) string {
	stamp := fileStampReplacer.Replace(at.UTC().Format("2006-01-02T15:04:05.000Z"))
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		ext = "pdf"
	}
	return fmt.Sprintf("%s_%d_%s.%s", t.Title(), jobNumber, stamp, ext)
}
