package aggregator

import (
	"slices"

	"marketplace-dashboard/internal/models"
)

// Summary holds the headline numbers of a view.
type Summary struct {
	Sales          float64
	Revenue        float64
	AverageRating  float64
	UniqueProducts int
	Records        int
}

// Summarize totals sales and revenue, averages the rated rows and counts
// distinct products. An empty view gives a zero Summary.
func Summarize(view View) Summary {
	s := Summary{Records: view.Len()}
	products := make(map[string]struct{})
	var ratingSum float64
	var rated int

	for i := 0; i < view.Len(); i++ {
		r := view.Record(i)
		s.Sales += r.Sales
		s.Revenue += r.Revenue
		if r.HasRating {
			ratingSum += r.Rating
			rated++
		}
		if r.ProductName != "" {
			products[r.ProductName] = struct{}{}
		}
	}

	if rated > 0 {
		s.AverageRating = round2(ratingSum / float64(rated))
	}
	s.UniqueProducts = len(products)
	return s
}

// Distinct lists the non-empty values of f in first-occurrence order.
func Distinct(view View, f Field) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for i := 0; i < view.Len(); i++ {
		v := view.Dimension(i, f)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Timeline builds one series per product of metric over scrape dates. Rows
// without a scrape date are skipped; points are ordered by date.
func Timeline(view View, products []string, metric Field) []models.ProductSeries {
	order := make([]string, 0, len(products))
	points := make(map[string][]models.TimelinePoint, len(products))
	for _, p := range products {
		if _, ok := points[p]; ok {
			continue
		}
		order = append(order, p)
		points[p] = make([]models.TimelinePoint, 0)
	}

	for i := 0; i < view.Len(); i++ {
		r := view.Record(i)
		series, ok := points[r.ProductName]
		if !ok || r.ScrapedAt.IsZero() {
			continue
		}
		v, ok := view.Measure(i, metric)
		if !ok {
			continue
		}
		points[r.ProductName] = append(series, models.TimelinePoint{Date: r.ScrapedAt, Value: v})
	}

	out := make([]models.ProductSeries, 0, len(order))
	for _, p := range order {
		series := points[p]
		slices.SortStableFunc(series, func(a, b models.TimelinePoint) int {
			return a.Date.Compare(b.Date)
		})
		out = append(out, models.ProductSeries{ProductName: p, Points: series})
	}
	return out
}
