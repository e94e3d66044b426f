package exporter

import (
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"

	"marketplace-dashboard/internal/models"
)

const (
	SheetSummary      = "Summary"
	SheetProducts     = "Products"
	SheetPriceRanges  = "Price Ranges"
	SheetContribution = "Contribution"
	SheetMonthly      = "Monthly Revenue"
)

// ContentType is the MIME type of the workbooks Export produces.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Export lays one dashboard view out as a workbook, one sheet per section.
// The caller owns the returned file and must Close it.
func Export(title string, view *models.DashboardView) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E2E8F0"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create header style: %w", err)
	}

	sheets := []struct {
		name string
		rows [][]any
	}{
		{SheetSummary, summaryRows(title, view)},
		{SheetProducts, productRows(view.TopRevenue)},
		{SheetPriceRanges, priceRows(view.PriceDistribution)},
		{SheetContribution, contributionRows(view.Contribution)},
		{SheetMonthly, monthlyRows(view.MonthlyRevenue)},
	}

	for _, s := range sheets {
		if s.name != SheetSummary {
			if _, err := f.NewSheet(s.name); err != nil {
				f.Close()
				return nil, fmt.Errorf("create sheet %q: %w", s.name, err)
			}
		}
		if err := writeRows(f, s.name, s.rows); err != nil {
			f.Close()
			return nil, err
		}
		f.SetRowStyle(s.name, 1, 1, headerStyle)
		f.SetColWidth(s.name, "A", "A", 40)
		f.SetColWidth(s.name, "B", "E", 18)
	}

	return f, nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		for j, val := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, val); err != nil {
				return fmt.Errorf("write %s!%s: %w", sheet, cell, err)
			}
		}
	}
	return nil
}

func summaryRows(title string, view *models.DashboardView) [][]any {
	s := view.Summary
	rows := [][]any{
		{"Metric", "Value"},
		{"Dashboard", title},
	}

	fields := make([]string, 0, len(view.Filters))
	for field := range view.Filters {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		rows = append(rows, []any{"Filter: " + field, view.Filters[field]})
	}

	return append(rows,
		[]any{"Total Sales", s.TotalSales},
		[]any{"Total Revenue", s.TotalRevenue},
		[]any{"Average Rating", s.AverageRating},
		[]any{"Products", s.UniqueProducts},
		[]any{"Records", s.Records},
	)
}

func productRows(products []models.ProductMetric) [][]any {
	rows := [][]any{{"Product", "Short Name", "Sales", "Revenue"}}
	for _, p := range products {
		rows = append(rows, []any{p.ProductName, p.ShortName, p.Sales, p.Revenue})
	}
	return rows
}

func priceRows(buckets []models.PriceBucket) [][]any {
	rows := [][]any{{"Price Range", "Min Price", "Sales"}}
	for _, b := range buckets {
		rows = append(rows, []any{b.PriceRange, b.MinPrice, b.Sales})
	}
	return rows
}

func contributionRows(shares []models.RevenueShare) [][]any {
	rows := [][]any{{"Product", "Short Name", "Revenue", "% of Revenue"}}
	for _, s := range shares {
		rows = append(rows, []any{s.ProductName, s.ShortName, s.Revenue, s.Percentage})
	}
	return rows
}

func monthlyRows(months []models.MonthlyRevenue) [][]any {
	rows := [][]any{{"Month", "Revenue"}}
	for _, m := range months {
		rows = append(rows, []any{m.Month, m.Revenue})
	}
	return rows
}
