package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"marketplace-dashboard/internal/models"
)

func sseRequest(target, signals string) *http.Request {
	return httptest.NewRequest(http.MethodGet, target+"?datastar="+url.QueryEscape(signals), nil)
}

func TestNewSSEHandlers(t *testing.T) {
	dashboard := createTestDashboard()
	logger := testLogger()

	handlers := NewSSEHandlers(dashboard, logger)

	if handlers == nil {
		t.Fatal("NewSSEHandlers() returned nil")
	}

	if handlers.dashboard != dashboard {
		t.Error("NewSSEHandlers() should set dashboard field")
	}

	if handlers.logger != logger {
		t.Error("NewSSEHandlers() should set logger field")
	}
}

func TestRenderSummary(t *testing.T) {
	html, err := renderSummary(models.Summary{
		AverageRating:  4.5,
		UniqueProducts: 2,
		SalesDisplay:   "17 units",
		RevenueDisplay: "1.5M Rupiah",
	})
	if err != nil {
		t.Fatalf("renderSummary() failed: %v", err)
	}

	expectedContent := []string{
		`<div id="summary-cards"`,
		"17 units",
		"1.5M Rupiah",
		"4.50",
		"<strong>2</strong>",
	}

	for _, content := range expectedContent {
		if !strings.Contains(html, content) {
			t.Errorf("expected HTML to contain %q", content)
		}
	}
}

func TestRenderContribution_LimitsRows(t *testing.T) {
	shares := make([]models.RevenueShare, 75)
	for i := range shares {
		shares[i] = models.RevenueShare{ShortName: "Product", Revenue: 2_500_000, Percentage: 1.25}
	}

	html, err := renderContribution(shares)
	if err != nil {
		t.Fatalf("renderContribution() failed: %v", err)
	}

	rowCount := strings.Count(html, "<tr>") - 1
	if rowCount != maxTableRows {
		t.Errorf("expected %d rows, got %d", maxTableRows, rowCount)
	}

	if !strings.Contains(html, "2.5M") || !strings.Contains(html, "1.25%") {
		t.Error("expected formatted revenue and percentage in table")
	}
}

func TestRenderContribution_EscapesNames(t *testing.T) {
	html, err := renderContribution([]models.RevenueShare{{ShortName: "<b>Cream</b>", ProductName: "<b>Cream</b>"}})
	if err != nil {
		t.Fatalf("renderContribution() failed: %v", err)
	}

	if strings.Contains(html, "<b>") {
		t.Error("product names should be escaped")
	}
}

func TestSSEHandlers_HandleDashboard(t *testing.T) {
	handlers := NewSSEHandlers(createTestDashboard(), testLogger())

	req := sseRequest("/sse/dashboard", `{"filters":{"month":"June","brand":"Acme"}}`)
	w := httptest.NewRecorder()

	handlers.HandleDashboard(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "text/event-stream") {
		t.Errorf("expected content-type to contain 'text/event-stream', got %q", ct)
	}

	if cc := w.Header().Get("Cache-Control"); cc != "no-cache" {
		t.Errorf("expected cache-control 'no-cache', got %q", cc)
	}

	body := w.Body.String()
	expected := []string{
		"summary-cards",
		"17 units",
		"400 Rupiah",
		"contribution-content",
		"priceData",
		"salesData",
		"revenueData",
		"contributionData",
		"monthlyData",
	}
	for _, content := range expected {
		if !strings.Contains(body, content) {
			t.Errorf("expected SSE stream to contain %q", content)
		}
	}
}

func TestSSEHandlers_HandleDashboard_NoSignals(t *testing.T) {
	handlers := NewSSEHandlers(createTestDashboard(), testLogger())

	req := sseRequest("/sse/dashboard", `{}`)
	w := httptest.NewRecorder()

	handlers.HandleDashboard(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	if !strings.Contains(w.Body.String(), "25 units") {
		t.Error("expected the unfiltered totals without filter signals")
	}
}

func TestSSEHandlers_HandleDashboard_MalformedSignals(t *testing.T) {
	handlers := NewSSEHandlers(createTestDashboard(), testLogger())

	req := sseRequest("/sse/dashboard", `{"filters":`)
	w := httptest.NewRecorder()

	handlers.HandleDashboard(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestSSEHandlers_HandleCompare(t *testing.T) {
	handlers := NewSSEHandlers(createTestDashboard(), testLogger())

	req := sseRequest("/sse/compare", `{"filters":{"month":"June"},"productA":"Acme Day Cream","productB":"Bloom Serum","metric":"revenue"}`)
	w := httptest.NewRecorder()

	handlers.HandleCompare(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	body := w.Body.String()
	for _, content := range []string{"compareData", "compare-content", "Acme Day Cream", "revenue"} {
		if !strings.Contains(body, content) {
			t.Errorf("expected SSE stream to contain %q", content)
		}
	}
}

func TestSSEHandlers_HandleCompare_InvalidMetric(t *testing.T) {
	handlers := NewSSEHandlers(createTestDashboard(), testLogger())

	req := sseRequest("/sse/compare", `{"productA":"A","productB":"B","metric":"rating"}`)
	w := httptest.NewRecorder()

	handlers.HandleCompare(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}

	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected JSON error envelope, got %q", ct)
	}
}
