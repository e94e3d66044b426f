package models

import "time"

type Summary struct {
	TotalSales     float64 `json:"total_sales"`
	TotalRevenue   float64 `json:"total_revenue"`
	AverageRating  float64 `json:"average_rating"`
	UniqueProducts int     `json:"unique_products"`
	Records        int     `json:"records"`
	SalesDisplay   string  `json:"sales_display"`
	RevenueDisplay string  `json:"revenue_display"`
}

type PriceBucket struct {
	PriceRange string  `json:"price_range"`
	MinPrice   int64   `json:"min_price"`
	Sales      float64 `json:"sales"`
}

type ProductMetric struct {
	ShortName   string  `json:"short_name"`
	ProductName string  `json:"product_name"`
	Sales       float64 `json:"sales"`
	Revenue     float64 `json:"revenue"`
}

type RevenueShare struct {
	ShortName   string  `json:"short_name"`
	ProductName string  `json:"product_name"`
	Revenue     float64 `json:"revenue"`
	Percentage  float64 `json:"pct_revenue"`
}

type MonthlyRevenue struct {
	Month   string  `json:"month"`
	Revenue float64 `json:"revenue"`
}

// DashboardView is everything the page needs for one filter selection. It is
// rebuilt on every request and never cached.
type DashboardView struct {
	Filters           map[string]string `json:"filters"`
	Summary           Summary           `json:"summary"`
	PriceDistribution []PriceBucket     `json:"price_distribution"`
	TopSales          []ProductMetric   `json:"top_sales"`
	TopRevenue        []ProductMetric   `json:"top_revenue"`
	Contribution      []RevenueShare    `json:"contribution"`
	MonthlyRevenue    []MonthlyRevenue  `json:"monthly_revenue"`
}

type FilterOption struct {
	Field    string   `json:"field"`
	Values   []string `json:"values"`
	Selected string   `json:"selected"`
}

type TimelinePoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

type ProductSeries struct {
	ProductName string          `json:"product_name"`
	Points      []TimelinePoint `json:"points"`
}

type Comparison struct {
	Metric string          `json:"metric"`
	Series []ProductSeries `json:"series"`
}
