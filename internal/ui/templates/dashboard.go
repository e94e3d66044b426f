// Package templates renders the dashboard shell. Every number on the page is
// filled in afterwards by datastar patches from the /sse endpoints.
package templates

import (
	"context"
	"encoding/json"
	"html/template"
	"io"

	"github.com/a-h/templ"

	"marketplace-dashboard/internal/models"
)

const datastarScript = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0-RC.6/bundles/datastar.js"

// Page is what the shell needs to lay out its controls.
type Page struct {
	Title    string
	Filters  []models.FilterOption
	Products []string
}

type pageData struct {
	Page
	Script  string
	Signals string
}

var pageTemplate = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<script type="module" src="{{.Script}}"></script>
</head>
<body data-signals="{{.Signals}}" data-on-load="@get('/sse/dashboard')">
<header><h1>{{.Title}}</h1></header>
<section id="filters">
{{range .Filters}}<label>{{.Field}}
<select data-bind="filters.{{.Field}}" data-on-change="@get('/sse/dashboard')">
<option value="">All</option>
{{$selected := .Selected}}{{range .Values}}<option value="{{.}}"{{if eq . $selected}} selected{{end}}>{{.}}</option>
{{end}}</select>
</label>
{{end}}<a href="/api/export.xlsx">Download workbook</a>
</section>
<div id="summary-cards" class="metric-grid"></div>
<section class="charts">
<div id="price-chart" data-chart="priceData"></div>
<div id="sales-chart" data-chart="salesData"></div>
<div id="revenue-chart" data-chart="revenueData"></div>
<div id="monthly-chart" data-chart="monthlyData"></div>
</section>
<div id="contribution-content"></div>
<section id="compare">
<select data-bind="productA">{{range .Products}}<option value="{{.}}">{{.}}</option>{{end}}</select>
<select data-bind="productB">{{range .Products}}<option value="{{.}}">{{.}}</option>{{end}}</select>
<select data-bind="metric"><option value="sales">Sales</option><option value="revenue">Revenue</option></select>
<button data-on-click="@get('/sse/compare')">Compare</button>
<div id="compare-content"></div>
<div id="compare-chart" data-chart="compareData"></div>
</section>
</body>
</html>
`))

// initialSignals seeds the datastar store with the default filter selection
// and the first two products for the comparison.
func initialSignals(p Page) (string, error) {
	filters := make(map[string]string, len(p.Filters))
	for _, f := range p.Filters {
		filters[f.Field] = f.Selected
	}

	var productA, productB string
	if len(p.Products) > 0 {
		productA, productB = p.Products[0], p.Products[0]
	}
	if len(p.Products) > 1 {
		productB = p.Products[1]
	}

	b, err := json.Marshal(map[string]any{
		"filters":  filters,
		"productA": productA,
		"productB": productB,
		"metric":   "sales",
	})
	return string(b), err
}

func Dashboard(page Page) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		signals, err := initialSignals(page)
		if err != nil {
			return err
		}
		return pageTemplate.Execute(w, pageData{Page: page, Script: datastarScript, Signals: signals})
	})
}
