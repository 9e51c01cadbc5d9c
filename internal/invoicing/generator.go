package invoicing

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Result bundles everything one generation run produces.
type Result struct {
	Totals   TotalsBreakdown `json:"totals"`
	Document Document        `json:"document"`
	Plan     LayoutPlan      `json:"plan"`
}

// Generator runs validation, totals, document building and pagination with a
// fixed configuration. It holds no mutable state and is safe for concurrent use.
type Generator struct {
	policy TaxPolicy
	layout LayoutConfig
	format Format
}

// Option customises a Generator.
type Option func(*Generator)

// WithTaxPolicy overrides the default 10% GST.
func WithTaxPolicy(p TaxPolicy) Option {
	return func(g *Generator) { g.policy = p }
}

// WithLayout overrides the page geometry.
func WithLayout(cfg LayoutConfig) Option {
	return func(g *Generator) { g.layout = cfg }
}

// WithFormat overrides currency and date formatting.
func WithFormat(f Format) Option {
	return func(g *Generator) { g.format = f }
}

// NewGenerator validates the configuration once so Generate only fails on bad input.
func NewGenerator(opts ...Option) (*Generator, error) {
	g := &Generator{
		policy: DefaultTaxPolicy(),
		layout: DefaultLayoutConfig(),
		format: DefaultFormat(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if err := g.policy.Validate(); err != nil {
		return nil, err
	}
	if err := g.layout.Validate(); err != nil {
		return nil, err
	}
	if g.format.DateLayout == "" {
		return nil, fmt.Errorf("invoicing: date layout required")
	}
	return g, nil
}

// TaxPolicy returns the configured policy.
func (g *Generator) TaxPolicy() TaxPolicy { return g.policy }

// Generate produces the rounded totals, the document model and its layout plan.
// Identical requests always yield identical results.
func (g *Generator) Generate(req DocumentRequest) (Result, error) {
	if err := req.Validate(); err != nil {
		return Result{}, err
	}
	totals := CalculateTotals(req.WorkItems, req.DiscountPercent, g.policy)
	doc := BuildDocument(req, totals, g.policy, g.format)
	plan, err := Paginate(doc, g.layout)
	if err != nil {
		return Result{}, err
	}
	return Result{Totals: doc.Figures, Document: doc, Plan: plan}, nil
}

// Fingerprint identifies the generator configuration; results cached under one
// fingerprint are invalid under another.
func (g *Generator) Fingerprint() string {
	payload := fmt.Sprintf("%s|%s|%+v|%+v", g.policy.RatePercent.String(), g.policy.Label, g.layout, g.format)
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:8])
}
