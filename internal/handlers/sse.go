package handlers

import (
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/starfederation/datastar-go/datastar"

	"marketplace-dashboard/internal/aggregator"
	"marketplace-dashboard/internal/errors"
	"marketplace-dashboard/internal/models"
	"marketplace-dashboard/internal/services"
)

const (
	maxTableRows = 50
	maxProducts  = 20
)

var templateFuncs = template.FuncMap{
	"magnitude": func(v float64) string { return aggregator.FormatMagnitude(v) },
}

var summaryTemplate = template.Must(template.New("summary").Funcs(templateFuncs).Parse(`
<div id="summary-cards" class="metric-grid">
<div class="metric-card"><span class="metric-label">Total Sales</span><strong>{{.SalesDisplay}}</strong></div>
<div class="metric-card"><span class="metric-label">Total Revenue</span><strong>{{.RevenueDisplay}}</strong></div>
<div class="metric-card"><span class="metric-label">Average Rating</span><strong>{{printf "%.2f" .AverageRating}}</strong></div>
<div class="metric-card"><span class="metric-label">Products</span><strong>{{.UniqueProducts}}</strong></div>
</div>`))

var contributionTemplate = template.Must(template.New("contribution").Funcs(templateFuncs).Parse(`
<div id="contribution-content">
<table class="modern-table">
<thead><tr><th>Product</th><th>Revenue</th><th>% of Revenue</th></tr></thead>
<tbody>
{{range $i, $item := .Data}}{{if lt $i $.MaxRows}}<tr>
<td title="{{.ProductName}}">{{.ShortName}}</td>
<td><strong>{{magnitude .Revenue}}</strong></td>
<td>{{printf "%.2f" .Percentage}}%</td>
</tr>{{end}}{{end}}
</tbody>
</table>
</div>`))

type SSEHandlers struct {
	dashboard *services.Dashboard
	logger    *slog.Logger
}

func NewSSEHandlers(dashboard *services.Dashboard, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		dashboard: dashboard,
		logger:    logger,
	}
}

// signals mirrors the datastar signals the dashboard page keeps.
type signals struct {
	Filters  map[string]string `json:"filters"`
	ProductA string            `json:"productA"`
	ProductB string            `json:"productB"`
	Metric   string            `json:"metric"`
}

func (h *SSEHandlers) readSignals(r *http.Request) (signals, aggregator.FilterSpec, error) {
	var sig signals
	if err := datastar.ReadSignals(r, &sig); err != nil {
		return sig, nil, errors.BadRequest("Malformed datastar signals").WithDetails("%v", err)
	}
	spec := h.dashboard.Spec(func(field string) string {
		return sig.Filters[field]
	})
	return sig, spec, nil
}

type templateData struct {
	Data    any
	MaxRows int
}

func renderSummary(summary models.Summary) (string, error) {
	var buf strings.Builder
	err := summaryTemplate.Execute(&buf, summary)
	return buf.String(), err
}

func renderContribution(shares []models.RevenueShare) (string, error) {
	var buf strings.Builder

	if len(shares) > maxTableRows {
		shares = shares[:maxTableRows]
	}

	err := contributionTemplate.Execute(&buf, templateData{Data: shares, MaxRows: maxTableRows})
	return buf.String(), err
}

func limitProducts(products []models.ProductMetric) []models.ProductMetric {
	if len(products) > maxProducts {
		return products[:maxProducts]
	}
	return products
}

// HandleDashboard recomputes the dashboard for the filters in the request
// signals, patching the summary cards and contribution table and replacing
// the chart signals.
func (h *SSEHandlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	_, spec, err := h.readSignals(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	view, err := h.dashboard.Query(r.Context(), spec)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	summaryHTML, err := renderSummary(view.Summary)
	if err != nil {
		h.logger.Error("render summary cards", "error", err)
		return
	}
	contributionHTML, err := renderContribution(view.Contribution)
	if err != nil {
		h.logger.Error("render contribution table", "error", err)
		return
	}

	chartSignals, err := json.Marshal(map[string]any{
		"priceData":        view.PriceDistribution,
		"salesData":        limitProducts(view.TopSales),
		"revenueData":      limitProducts(view.TopRevenue),
		"contributionData": view.Contribution,
		"monthlyData":      view.MonthlyRevenue,
	})
	if err != nil {
		h.logger.Error("marshal chart signals", "error", err)
		return
	}

	sse := datastar.NewSSE(w, r)
	sse.PatchElements(summaryHTML)
	sse.PatchElements(contributionHTML)
	sse.PatchSignals(chartSignals)

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

// HandleCompare sends the timeline of the two products named in the signals.
func (h *SSEHandlers) HandleCompare(w http.ResponseWriter, r *http.Request) {
	sig, spec, err := h.readSignals(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if sig.Metric == "" {
		sig.Metric = string(aggregator.FieldSales)
	}

	cmp, err := h.dashboard.Compare(r.Context(), spec, sig.ProductA, sig.ProductB, sig.Metric)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	jsonData, err := json.Marshal(map[string]any{
		"compareData": cmp,
	})
	if err != nil {
		h.logger.Error("marshal compare data", "error", err)
		return
	}

	sse := datastar.NewSSE(w, r)
	sse.PatchSignals(jsonData)
	sse.PatchElements(`<div id="compare-content">Comparing ` + template.HTMLEscapeString(sig.ProductA) +
		` and ` + template.HTMLEscapeString(sig.ProductB) + `</div>`)

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
