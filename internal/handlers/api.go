package handlers

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"strings"
	"time"

	"marketplace-dashboard/internal/aggregator"
	"marketplace-dashboard/internal/errors"
	"marketplace-dashboard/internal/exporter"
	"marketplace-dashboard/internal/observability"
	"marketplace-dashboard/internal/services"
)

const cacheMaxAge = "public, max-age=300"

var cacheHeaders = map[string]string{
	"Cache-Control": cacheMaxAge,
}

type APIHandlers struct {
	dashboard *services.Dashboard
	title     string
	logger    *slog.Logger
}

func NewAPIHandlers(dashboard *services.Dashboard, title string, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		dashboard: dashboard,
		title:     title,
		logger:    logger,
	}
}

// filterSpec reads the configured filter fields from the query string.
func (h *APIHandlers) filterSpec(r *http.Request) aggregator.FilterSpec {
	return h.dashboard.Spec(r.URL.Query().Get)
}

func (h *APIHandlers) HandleOptions(w http.ResponseWriter, r *http.Request) {
	data, err := h.dashboard.Options(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	errors.WriteSuccessWithHeaders(w, data, cacheHeaders)
}

func (h *APIHandlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	data, err := h.dashboard.Query(r.Context(), h.filterSpec(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	errors.WriteSuccessWithHeaders(w, data, cacheHeaders)
}

func (h *APIHandlers) HandleSummary(w http.ResponseWriter, r *http.Request) {
	data, err := h.dashboard.Summary(r.Context(), h.filterSpec(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	errors.WriteSuccessWithHeaders(w, data, cacheHeaders)
}

func (h *APIHandlers) HandlePriceDistribution(w http.ResponseWriter, r *http.Request) {
	data, err := h.dashboard.PriceDistribution(r.Context(), h.filterSpec(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	errors.WriteSuccessWithHeaders(w, data, cacheHeaders)
}

// HandleProducts ranks products by the "by" parameter, sales unless given.
func (h *APIHandlers) HandleProducts(w http.ResponseWriter, r *http.Request) {
	by := r.URL.Query().Get("by")
	if by == "" {
		by = string(aggregator.FieldSales)
	}

	data, err := h.dashboard.ProductRanking(r.Context(), h.filterSpec(r), by)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	errors.WriteSuccessWithHeaders(w, data, cacheHeaders)
}

func (h *APIHandlers) HandleProductNames(w http.ResponseWriter, r *http.Request) {
	data, err := h.dashboard.ProductNames(r.Context(), h.filterSpec(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	errors.WriteSuccessWithHeaders(w, data, cacheHeaders)
}

func (h *APIHandlers) HandleContribution(w http.ResponseWriter, r *http.Request) {
	data, err := h.dashboard.Contribution(r.Context(), h.filterSpec(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	errors.WriteSuccessWithHeaders(w, data, cacheHeaders)
}

func (h *APIHandlers) HandleMonthlyRevenue(w http.ResponseWriter, r *http.Request) {
	data, err := h.dashboard.MonthlyRevenue(r.Context(), h.filterSpec(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	errors.WriteSuccessWithHeaders(w, data, cacheHeaders)
}

func (h *APIHandlers) HandleCompare(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	metric := q.Get("metric")
	if metric == "" {
		metric = string(aggregator.FieldSales)
	}

	data, err := h.dashboard.Compare(r.Context(), h.filterSpec(r), q.Get("product_a"), q.Get("product_b"), metric)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	errors.WriteSuccessWithHeaders(w, data, cacheHeaders)
}

// HandleExport streams the filtered dashboard as an xlsx workbook.
func (h *APIHandlers) HandleExport(w http.ResponseWriter, r *http.Request) {
	view, err := h.dashboard.Query(r.Context(), h.filterSpec(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	f, err := exporter.Export(h.title, view)
	if err != nil {
		writeError(w, r, h.logger, errors.InternalWrap(err, "Failed to build workbook"))
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", exporter.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportFilename(view.Filters)))
	if err := f.Write(w); err != nil {
		h.logger.Error("write workbook", "error", err)
	}
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	healthData := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
	}

	errors.WriteSuccess(w, healthData)
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, h.dashboard.Stats())
}

// writeError maps service errors onto the API error envelope.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var appErr *errors.AppError
	switch {
	case stderrors.As(err, &appErr):
	case stderrors.Is(err, services.ErrInvalidMetric), stderrors.Is(err, services.ErrMissingProduct):
		err = errors.BadRequest("Invalid request").WithDetails("%v", err)
	default:
		err = errors.ServiceUnavailableWrap(err, "Dataset is not available")
	}

	errors.WriteError(w, logger, err, observability.GetRequestID(r.Context()))
}

func exportFilename(filters map[string]string) string {
	name := "dashboard"
	for _, field := range slices.Sorted(maps.Keys(filters)) {
		name += "-" + strings.ToLower(strings.ReplaceAll(filters[field], " ", "_"))
	}
	return name + ".xlsx"
}
