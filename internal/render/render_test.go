package render

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/tradesdesk/tradesdesk/internal/invoicing"
	"github.com/tradesdesk/tradesdesk/report"
)

func samplePlan(t *testing.T, items int) invoicing.LayoutPlan {
	t.Helper()
	work := make([]invoicing.WorkItem, items)
	for i := range work {
		work[i] = invoicing.WorkItem{
			Title:       "Replace <power> point & test",
			LabourHours: decimal.NewFromInt(1),
			LabourRate:  decimal.NewFromInt(95),
			Materials:   []invoicing.MaterialLine{{Name: "GPO", UnitCost: decimal.NewFromFloat(12.5), Quantity: 2}},
		}
	}
	gen, err := invoicing.NewGenerator()
	require.NoError(t, err)
	res, err := gen.Generate(invoicing.DocumentRequest{
		Type:           invoicing.DocumentInvoice,
		DocumentNumber: "INV-3-9",
		JobNumber:      3,
		IssueDate:      time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		WorkItems:      work,
		Settings:       &invoicing.BusinessSettings{BusinessName: "Sparks Electrical", BSB: "062-000"},
		ShowMaterials:  true,
		ShowLabour:     true,
	})
	require.NoError(t, err)
	return res.Plan
}

func TestPDFRender(t *testing.T) {
	sink := NewPDF()
	plan := samplePlan(t, 30)
	require.Greater(t, plan.PageCount(), 1)

	out, err := sink.Render(context.Background(), plan)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(out, []byte("%PDF-")))

	again, err := sink.Render(context.Background(), plan)
	require.NoError(t, err)
	require.Equal(t, out, again)
}

func TestPDFRenderRejectsUnknownStyle(t *testing.T) {
	plan := samplePlan(t, 1)
	plan.Pages[0].Instructions = append(plan.Pages[0].Instructions, invoicing.TextAt("x", 10, 10, "neon"))

	_, err := NewPDF().Render(context.Background(), plan)
	require.ErrorIs(t, err, ErrUnknownStyle)
}

func TestPDFRenderHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewPDF().Render(ctx, samplePlan(t, 1))
	require.ErrorIs(t, err, context.Canceled)

	_, err = NewPDF().Render(context.Background(), invoicing.LayoutPlan{})
	require.Error(t, err)
}

type stubPDFClient struct {
	html string
	err  error
}

func (s *stubPDFClient) RenderHTML(ctx context.Context, html string) ([]byte, error) {
	s.html = html
	if s.err != nil {
		return nil, s.err
	}
	return []byte("%PDF-1.7 stub"), nil
}

func TestHTMLBuildEscapesAndPositions(t *testing.T) {
	sink, err := NewHTML(&stubPDFClient{})
	require.NoError(t, err)

	html, err := sink.BuildHTML(samplePlan(t, 2))
	require.NoError(t, err)
	require.Contains(t, html, "<title>Invoice INV-3-9</title>")
	require.Contains(t, html, "Replace &lt;power&gt; point &amp; test")
	require.NotContains(t, html, "<power>")
	require.Contains(t, html, "width:612pt;height:792pt")
	require.Contains(t, html, "text-align:right")
	require.Contains(t, html, "Page 1 of 1")
	require.Equal(t, 1, strings.Count(html, `class="page"`))
}

func TestHTMLRenderDelegatesToClient(t *testing.T) {
	client := &stubPDFClient{}
	sink, err := NewHTML(client)
	require.NoError(t, err)

	out, err := sink.Render(context.Background(), samplePlan(t, 1))
	require.NoError(t, err)
	require.Equal(t, "%PDF-1.7 stub", string(out))
	require.Contains(t, client.html, "INVOICE")

	client.err = errors.New("gotenberg down")
	_, err = sink.Render(context.Background(), samplePlan(t, 1))
	require.ErrorContains(t, err, "gotenberg down")
}

func TestHTMLRenderThroughGotenberg(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/forms/chromium/convert/html", r.URL.Path)
		file, _, err := r.FormFile("files")
		require.NoError(t, err)
		body, err := io.ReadAll(file)
		require.NoError(t, err)
		require.Contains(t, string(body), "Sparks Electrical")
		_, _ = w.Write([]byte("%PDF-1.4 converted"))
	}))
	defer srv.Close()

	sink, err := New("gotenberg", report.NewClient(srv.URL))
	require.NoError(t, err)
	out, err := sink.Render(context.Background(), samplePlan(t, 1))
	require.NoError(t, err)
	require.Equal(t, "%PDF-1.4 converted", string(out))
}

func TestNewSink(t *testing.T) {
	sink, err := New("", nil)
	require.NoError(t, err)
	require.Equal(t, "gofpdf", sink.Name())

	_, err = New("gotenberg", nil)
	require.Error(t, err)

	_, err = New("wkhtml", nil)
	require.Error(t, err)
}
