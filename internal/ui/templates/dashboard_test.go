package templates

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"marketplace-dashboard/internal/models"
)

func TestDashboard_Render(t *testing.T) {
	page := Page{
		Title: "Baby Care <2025>",
		Filters: []models.FilterOption{
			{Field: "month", Values: []string{"June", "July"}, Selected: "July"},
			{Field: "brand", Values: []string{"Acme", "Bloom"}, Selected: "Bloom"},
		},
		Products: []string{"Acme Day Cream", "Bloom Serum"},
	}

	var buf bytes.Buffer
	if err := Dashboard(page).Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render() failed: %v", err)
	}
	html := buf.String()

	expected := []string{
		"<title>Baby Care &lt;2025&gt;</title>",
		`data-bind="filters.month"`,
		`<option value="July" selected>July</option>`,
		`<option value="Bloom" selected>Bloom</option>`,
		`data-on-load="@get('/sse/dashboard')"`,
		`id="summary-cards"`,
		`<option value="Acme Day Cream">Acme Day Cream</option>`,
	}
	for _, content := range expected {
		if !strings.Contains(html, content) {
			t.Errorf("expected HTML to contain %q", content)
		}
	}

	if strings.Contains(html, "<2025>") {
		t.Error("title should be escaped")
	}
}

func TestInitialSignals(t *testing.T) {
	signals, err := initialSignals(Page{
		Filters:  []models.FilterOption{{Field: "month", Selected: "July"}},
		Products: []string{"A", "B", "C"},
	})
	if err != nil {
		t.Fatalf("initialSignals() failed: %v", err)
	}

	want := `{"filters":{"month":"July"},"metric":"sales","productA":"A","productB":"B"}`
	if signals != want {
		t.Errorf("initialSignals() = %s, want %s", signals, want)
	}
}

func TestInitialSignals_Empty(t *testing.T) {
	signals, err := initialSignals(Page{})
	if err != nil {
		t.Fatalf("initialSignals() failed: %v", err)
	}

	if signals != `{"filters":{},"metric":"sales","productA":"","productB":""}` {
		t.Errorf("unexpected signals %s", signals)
	}
}
