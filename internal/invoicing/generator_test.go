package invoicing

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGeneratorGenerate(t *testing.T) {
	gen, err := NewGenerator()
	require.NoError(t, err)

	res, err := gen.Generate(sampleRequest())
	require.NoError(t, err)
	requireMoney(t, "128.70", res.Totals.GrandTotal)
	require.Equal(t, res.Totals, res.Document.Figures)
	require.Equal(t, 1, res.Plan.PageCount())
}

func TestGeneratorFailsFastOnInvalidRequest(t *testing.T) {
	gen, err := NewGenerator()
	require.NoError(t, err)

	req := sampleRequest()
	req.WorkItems[0].LabourHours = dec("-1")
	res, err := gen.Generate(req)
	require.ErrorIs(t, err, ErrInvalidRequest)
	require.Empty(t, res.Plan.Pages)

	req = sampleRequest()
	req.Settings = nil
	_, err = gen.Generate(req)
	require.ErrorIs(t, err, ErrSettingsIncomplete)
}

func TestGeneratorReturnsNoPlanOnStageFailure(t *testing.T) {
	cfg := DefaultLayoutConfig()
	cfg.MaxPages = 1
	gen, err := NewGenerator(WithLayout(cfg))
	require.NoError(t, err)

	req := sampleRequest()
	req.WorkItems = manyItems(40)
	res, err := gen.Generate(req)
	require.ErrorIs(t, err, ErrPageLimit)
	require.Empty(t, res.Plan.Pages)
	require.True(t, res.Totals.GrandTotal.IsZero())
}

func TestNewGeneratorValidatesOptions(t *testing.T) {
	_, err := NewGenerator(WithTaxPolicy(TaxPolicy{RatePercent: dec("120"), Label: "GST"}))
	require.Error(t, err)

	bad := DefaultLayoutConfig()
	bad.PageWidth = 0
	_, err = NewGenerator(WithLayout(bad))
	require.ErrorIs(t, err, ErrInvalidLayout)

	_, err = NewGenerator(WithFormat(Format{CurrencySymbol: "$"}))
	require.Error(t, err)
}

func TestGeneratorIsIdempotent(t *testing.T) {
	gen, err := NewGenerator()
	require.NoError(t, err)
	req := sampleRequest()
	req.WorkItems = manyItems(30)

	first, err := gen.Generate(req)
	require.NoError(t, err)
	second, err := gen.Generate(req)
	require.NoError(t, err)

	a, err := json.Marshal(first.Totals)
	require.NoError(t, err)
	b, err := json.Marshal(second.Totals)
	require.NoError(t, err)
	require.Equal(t, string(a), string(b))
	require.Equal(t, first.Plan, second.Plan)
}

func TestGeneratorConcurrentUse(t *testing.T) {
	gen, err := NewGenerator()
	require.NoError(t, err)
	req := sampleRequest()
	req.WorkItems = manyItems(20)

	want, err := gen.Generate(req)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]Result, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = gen.Generate(req)
		}(i)
	}
	wg.Wait()
	for _, got := range results {
		require.Equal(t, want.Plan, got.Plan)
	}
}

func TestGeneratorFormatAndFingerprint(t *testing.T) {
	base, err := NewGenerator()
	require.NoError(t, err)
	euro, err := NewGenerator(WithFormat(Format{CurrencySymbol: "€", DateLayout: "2006-01-02"}))
	require.NoError(t, err)
	again, err := NewGenerator()
	require.NoError(t, err)

	require.Equal(t, base.Fingerprint(), again.Fingerprint())
	require.NotEqual(t, base.Fingerprint(), euro.Fingerprint())
	require.Len(t, base.Fingerprint(), 16)

	wide := DefaultLayoutConfig()
	wide.SectionGap++
	spaced, err := NewGenerator(WithLayout(wide))
	require.NoError(t, err)
	require.NotEqual(t, base.Fingerprint(), spaced.Fingerprint())

	res, err := euro.Generate(sampleRequest())
	require.NoError(t, err)
	texts := res.Plan.Pages[0].Texts()
	require.Contains(t, texts, "€128.70")
	require.Contains(t, texts, "Date: 2024-05-01")
}
