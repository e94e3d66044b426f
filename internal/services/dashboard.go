package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"marketplace-dashboard/internal/aggregator"
	"marketplace-dashboard/internal/dataset"
	"marketplace-dashboard/internal/metrics"
	"marketplace-dashboard/internal/models"
	"marketplace-dashboard/internal/observability"
)

var (
	ErrInvalidMetric  = errors.New("metric must be sales or revenue")
	ErrMissingProduct = errors.New("two products are required for a comparison")
)

// TableSource hands out the loaded dataset.
type TableSource interface {
	Table(ctx context.Context) (*aggregator.Table, error)
	Stats() dataset.LoadStats
}

type Options struct {
	FilterFields []string
	Currency     string
}

// Dashboard answers every widget query by filtering the shared table and
// recomputing aggregates from scratch. It holds no per-request state.
type Dashboard struct {
	source       TableSource
	filterFields []aggregator.Field
	currency     string
	logger       *slog.Logger
	metrics      *metrics.Metrics
}

func NewDashboard(source TableSource, opts Options, logger *slog.Logger, m *metrics.Metrics) *Dashboard {
	if logger == nil {
		logger = slog.Default()
	}
	fields := make([]aggregator.Field, 0, len(opts.FilterFields))
	for _, name := range opts.FilterFields {
		if f, ok := aggregator.ParseField(name); ok {
			fields = append(fields, f)
		}
	}
	return &Dashboard{
		source:       source,
		filterFields: fields,
		currency:     opts.Currency,
		logger:       logger,
		metrics:      m,
	}
}

// FilterFields lists the fields the dashboard lets users filter on.
func (d *Dashboard) FilterFields() []aggregator.Field {
	return append([]aggregator.Field(nil), d.filterFields...)
}

// Spec keeps only the configured filter fields with a non-empty value.
func (d *Dashboard) Spec(lookup func(field string) string) aggregator.FilterSpec {
	spec := aggregator.FilterSpec{}
	for _, f := range d.filterFields {
		if v := lookup(string(f)); v != "" {
			spec[f] = v
		}
	}
	return spec
}

// query loads the table, applies spec and runs fn on the result, timing the
// whole pass.
func (d *Dashboard) query(ctx context.Context, name string, spec aggregator.FilterSpec, fn func(all, view aggregator.View)) error {
	ctx, span := observability.StartSpan(ctx, "dashboard."+name)
	defer span.End(observability.LoggerFrom(ctx, d.logger))

	table, err := d.source.Table(ctx)
	if err != nil {
		span.SetError(err)
		return fmt.Errorf("load dataset: %w", err)
	}

	start := time.Now()
	all := table.All()
	view := aggregator.Filter(all, spec)
	fn(all, view)

	d.metrics.ObserveQuery(name, view.Len(), time.Since(start))
	span.SetTag("rows", strconv.Itoa(view.Len()))
	return nil
}

// Query builds every section of the dashboard for one selection.
func (d *Dashboard) Query(ctx context.Context, spec aggregator.FilterSpec) (*models.DashboardView, error) {
	var out *models.DashboardView
	err := d.query(ctx, "dashboard", spec, func(all, view aggregator.View) {
		out = &models.DashboardView{
			Filters:           spec.Strings(),
			Summary:           d.summary(view),
			PriceDistribution: priceDistribution(view),
			TopSales:          productRanking(view, aggregator.FieldSales),
			TopRevenue:        productRanking(view, aggregator.FieldRevenue),
			Contribution:      contribution(view),
			MonthlyRevenue:    monthlyRevenue(aggregator.Filter(all, spec.Without(aggregator.FieldMonth))),
		}
	})
	return out, err
}

func (d *Dashboard) Summary(ctx context.Context, spec aggregator.FilterSpec) (models.Summary, error) {
	var out models.Summary
	err := d.query(ctx, "summary", spec, func(_, view aggregator.View) {
		out = d.summary(view)
	})
	return out, err
}

func (d *Dashboard) PriceDistribution(ctx context.Context, spec aggregator.FilterSpec) ([]models.PriceBucket, error) {
	var out []models.PriceBucket
	err := d.query(ctx, "price_distribution", spec, func(_, view aggregator.View) {
		out = priceDistribution(view)
	})
	return out, err
}

// ProductRanking ranks shortened product names by total sales or revenue.
func (d *Dashboard) ProductRanking(ctx context.Context, spec aggregator.FilterSpec, by string) ([]models.ProductMetric, error) {
	field, err := rankingField(by)
	if err != nil {
		return nil, err
	}
	var out []models.ProductMetric
	err = d.query(ctx, "product_ranking", spec, func(_, view aggregator.View) {
		out = productRanking(view, field)
	})
	return out, err
}

func (d *Dashboard) Contribution(ctx context.Context, spec aggregator.FilterSpec) ([]models.RevenueShare, error) {
	var out []models.RevenueShare
	err := d.query(ctx, "contribution", spec, func(_, view aggregator.View) {
		out = contribution(view)
	})
	return out, err
}

// MonthlyRevenue ignores any month filter so the trend spans the whole year.
func (d *Dashboard) MonthlyRevenue(ctx context.Context, spec aggregator.FilterSpec) ([]models.MonthlyRevenue, error) {
	var out []models.MonthlyRevenue
	err := d.query(ctx, "monthly_revenue", spec.Without(aggregator.FieldMonth), func(_, view aggregator.View) {
		out = monthlyRevenue(view)
	})
	return out, err
}

// Options lists the selectable values of each filter field. The default
// selection is the last value, which for months is the latest scrape.
func (d *Dashboard) Options(ctx context.Context) ([]models.FilterOption, error) {
	out := make([]models.FilterOption, 0, len(d.filterFields))
	err := d.query(ctx, "options", nil, func(all, _ aggregator.View) {
		for _, f := range d.filterFields {
			values := aggregator.Distinct(all, f)
			opt := models.FilterOption{Field: string(f), Values: values}
			if len(values) > 0 {
				opt.Selected = values[len(values)-1]
			}
			out = append(out, opt)
		}
	})
	return out, err
}

// ProductNames lists the products present in the selection, for the
// comparison pickers.
func (d *Dashboard) ProductNames(ctx context.Context, spec aggregator.FilterSpec) ([]string, error) {
	var out []string
	err := d.query(ctx, "product_names", spec, func(_, view aggregator.View) {
		out = aggregator.Distinct(view, aggregator.FieldProductName)
	})
	return out, err
}

// Compare plots two products' daily sales or revenue across every month of
// the selection.
func (d *Dashboard) Compare(ctx context.Context, spec aggregator.FilterSpec, productA, productB, metric string) (*models.Comparison, error) {
	field, err := rankingField(metric)
	if err != nil {
		return nil, err
	}
	if productA == "" || productB == "" {
		return nil, ErrMissingProduct
	}

	var out *models.Comparison
	err = d.query(ctx, "compare", spec.Without(aggregator.FieldMonth), func(_, view aggregator.View) {
		out = &models.Comparison{
			Metric: string(field),
			Series: aggregator.Timeline(view, []string{productA, productB}, field),
		}
	})
	return out, err
}

// Stats reports dataset and configuration facts for the admin endpoint.
func (d *Dashboard) Stats() map[string]any {
	stats := d.source.Stats()
	fields := make([]string, len(d.filterFields))
	for i, f := range d.filterFields {
		fields[i] = string(f)
	}
	return map[string]any{
		"record_count":  stats.Rows,
		"skipped_rows":  stats.Skipped,
		"source":        stats.Path,
		"from_snapshot": stats.FromSnapshot,
		"load_duration": stats.Duration.String(),
		"last_loaded":   stats.LoadedAt,
		"filter_fields": fields,
	}
}

func rankingField(name string) (aggregator.Field, error) {
	switch aggregator.Field(name) {
	case aggregator.FieldSales:
		return aggregator.FieldSales, nil
	case aggregator.FieldRevenue:
		return aggregator.FieldRevenue, nil
	}
	return "", fmt.Errorf("%w, got %q", ErrInvalidMetric, name)
}

func (d *Dashboard) summary(view aggregator.View) models.Summary {
	s := aggregator.Summarize(view)
	revenue := aggregator.FormatMagnitude(s.Revenue)
	if d.currency != "" {
		revenue += " " + d.currency
	}
	return models.Summary{
		TotalSales:     s.Sales,
		TotalRevenue:   s.Revenue,
		AverageRating:  s.AverageRating,
		UniqueProducts: s.UniqueProducts,
		Records:        s.Records,
		SalesDisplay:   aggregator.FormatMagnitude(s.Sales) + " units",
		RevenueDisplay: revenue,
	}
}

var (
	sumSales    = aggregator.SumOf(aggregator.FieldSales)
	sumRevenue  = aggregator.SumOf(aggregator.FieldRevenue)
	minPrice    = aggregator.MinOf(aggregator.FieldMinPrice)
	monthNumber = aggregator.MinOf(aggregator.FieldMonth)
)

func priceDistribution(view aggregator.View) []models.PriceBucket {
	groups := aggregator.Aggregate(view, aggregator.FieldPriceRange,
		[]aggregator.Metric{sumSales, minPrice}, aggregator.OrderBy(minPrice, false))

	out := make([]models.PriceBucket, len(groups))
	for i, g := range groups {
		out[i] = models.PriceBucket{
			PriceRange: g.Key,
			MinPrice:   int64(g.Value(minPrice)),
			Sales:      g.Value(sumSales),
		}
	}
	return out
}

func productRanking(view aggregator.View, by aggregator.Field) []models.ProductMetric {
	groups := aggregator.Aggregate(view, aggregator.FieldShortName,
		[]aggregator.Metric{sumSales, sumRevenue}, aggregator.OrderBy(aggregator.SumOf(by), true))

	out := make([]models.ProductMetric, len(groups))
	for i, g := range groups {
		out[i] = models.ProductMetric{
			ShortName:   g.Key,
			ProductName: g.Label,
			Sales:       g.Value(sumSales),
			Revenue:     g.Value(sumRevenue),
		}
	}
	return out
}

func contribution(view aggregator.View) []models.RevenueShare {
	groups := aggregator.Aggregate(view, aggregator.FieldShortName, []aggregator.Metric{sumRevenue})
	shares := aggregator.PercentageOfTotal(groups, sumRevenue)

	out := make([]models.RevenueShare, len(shares))
	for i, s := range shares {
		out[i] = models.RevenueShare{
			ShortName:   s.Key,
			ProductName: s.Label,
			Revenue:     s.Value(sumRevenue),
			Percentage:  s.Percentage,
		}
	}
	return out
}

func monthlyRevenue(view aggregator.View) []models.MonthlyRevenue {
	groups := aggregator.Aggregate(view, aggregator.FieldMonth,
		[]aggregator.Metric{sumRevenue}, aggregator.OrderBy(monthNumber, false))

	out := make([]models.MonthlyRevenue, len(groups))
	for i, g := range groups {
		out[i] = models.MonthlyRevenue{Month: g.Key, Revenue: g.Value(sumRevenue)}
	}
	return out
}
