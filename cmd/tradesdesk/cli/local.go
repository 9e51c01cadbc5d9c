// Package cli implements the tradesdesk sub-commands that run without the HTTP server.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/tradesdesk/tradesdesk/internal/documents"
	documentshttp "github.com/tradesdesk/tradesdesk/internal/documents/http"
	"github.com/tradesdesk/tradesdesk/internal/export"
	"github.com/tradesdesk/tradesdesk/internal/invoicing"
	"github.com/tradesdesk/tradesdesk/internal/render"
)

// LocalOptions configures the offline render and breakdown commands.
type LocalOptions struct {
	In        string
	Out       string
	Generator *invoicing.Generator
	Sink      render.Sink
	Now       time.Time
	DueDays   int
	Stdout    io.Writer
}

// LoadRequest decodes a JSON request body exactly as the HTTP API does.
func LoadRequest(r io.Reader, def documentshttp.Defaults) (invoicing.DocumentRequest, error) {
	var dto documentshttp.GenerateDTO
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&dto); err != nil {
		return invoicing.DocumentRequest{}, fmt.Errorf("cli: decode request: %w", err)
	}
	if err := documentshttp.NewValidator().Struct(dto); err != nil {
		return invoicing.DocumentRequest{}, fmt.Errorf("cli: %w: %v", invoicing.ErrInvalidRequest, err)
	}
	return dto.ToRequest(def)
}

func (o LocalOptions) generate() (invoicing.DocumentRequest, invoicing.Result, error) {
	if o.Generator == nil {
		return invoicing.DocumentRequest{}, invoicing.Result{}, errors.New("cli: generator required")
	}
	if o.In == "" || o.Out == "" {
		return invoicing.DocumentRequest{}, invoicing.Result{}, errors.New("cli: --in and --out required")
	}
	f, err := os.Open(o.In)
	if err != nil {
		return invoicing.DocumentRequest{}, invoicing.Result{}, err
	}
	defer f.Close()

	now := o.Now
	if now.IsZero() {
		now = time.Now()
	}
	req, err := LoadRequest(f, documentshttp.Defaults{Now: now, DueDays: o.DueDays})
	if err != nil {
		return invoicing.DocumentRequest{}, invoicing.Result{}, err
	}
	if strings.TrimSpace(req.DocumentNumber) == "" {
		req.DocumentNumber = invoicing.DocumentNumber(req.Type, req.JobNumber, documents.PreviewNumberID)
	}
	res, err := o.Generator.Generate(req)
	if err != nil {
		return invoicing.DocumentRequest{}, invoicing.Result{}, err
	}
	return req, res, nil
}

// RenderFile generates the document described by In and writes it to Out.
func RenderFile(ctx context.Context, opts LocalOptions) error {
	if opts.Sink == nil {
		return errors.New("cli: sink required")
	}
	req, res, err := opts.generate()
	if err != nil {
		return err
	}
	body, err := opts.Sink.Render(ctx, res.Plan)
	if err != nil {
		return fmt.Errorf("cli: render with %s: %w", opts.Sink.Name(), err)
	}
	if err := os.WriteFile(opts.Out, body, 0o644); err != nil {
		return err
	}
	if opts.Stdout != nil {
		fmt.Fprintf(opts.Stdout, "%s %s: %d page(s), total %s -> %s\n",
			req.Type.Title(), req.DocumentNumber, res.Plan.PageCount(), res.Totals.GrandTotal.StringFixed(2), opts.Out)
	}
	return nil
}

// BreakdownFile writes the xlsx cost breakdown of the request in In to Out.
func BreakdownFile(_ context.Context, opts LocalOptions) error {
	req, res, err := opts.generate()
	if err != nil {
		return err
	}
	book, err := export.WriteBreakdown(res, req)
	if err != nil {
		return err
	}
	if err := os.WriteFile(opts.Out, book, 0o644); err != nil {
		return err
	}
	if opts.Stdout != nil {
		fmt.Fprintf(opts.Stdout, "%s %s: %d item(s) -> %s\n", req.Type.Title(), req.DocumentNumber, len(req.WorkItems), opts.Out)
	}
	return nil
}
