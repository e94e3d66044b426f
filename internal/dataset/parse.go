package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"marketplace-dashboard/internal/models"
)

const (
	defaultBatchSize = 10000
	defaultWorkers   = 10
)

type column int

const (
	colMonth column = iota
	colDate
	colBrand
	colCategory
	colProduct
	colPriceRange
	colSales
	colRevenue
	colRating
	numColumns
)

// headerAliases maps normalised header names to columns. The three source
// exports disagree on casing and naming.
var headerAliases = map[string]column{
	"month":         colMonth,
	"scraping_date": colDate,
	"date":          colDate,
	"brand":         colBrand,
	"categories":    colCategory,
	"category":      colCategory,
	"product_name":  colProduct,
	"nama_produk":   colProduct,
	"product":       colProduct,
	"price_bins":    colPriceRange,
	"price_range":   colPriceRange,
	"sales":         colSales,
	"revenue":       colRevenue,
	"rating":        colRating,
}

var dateLayouts = []string{
	time.DateOnly,
	time.DateTime,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"01/02/2006",
	"1/2/2006",
}

var errNoValidRows = errors.New("no valid records found")

// layout records where each known column sits in a row; -1 when absent.
type layout [numColumns]int

func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.Join(strings.Fields(h), "_")
}

func newLayout(header []string) (layout, error) {
	var l layout
	for i := range l {
		l[i] = -1
	}
	for i, h := range header {
		if c, ok := headerAliases[normalizeHeader(h)]; ok && l[c] < 0 {
			l[c] = i
		}
	}
	if l[colMonth] < 0 && l[colDate] < 0 {
		return l, fmt.Errorf("header has neither a month nor a scraping_date column")
	}
	if l[colSales] < 0 && l[colRevenue] < 0 {
		return l, fmt.Errorf("header has neither a sales nor a revenue column")
	}
	return l, nil
}

func (l layout) field(row []string, c column) string {
	i := l[c]
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// parseRecord turns one CSV row into a record. Rows that cannot be read are
// reported with an error and dropped by the caller.
func (l layout) parseRecord(row []string, width int) (models.Record, error) {
	if len(row) > width {
		return models.Record{}, fmt.Errorf("expected at most %d fields, got %d", width, len(row))
	}

	rec := models.Record{
		Brand:       l.field(row, colBrand),
		Category:    l.field(row, colCategory),
		ProductName: l.field(row, colProduct),
		PriceRange:  l.field(row, colPriceRange),
	}

	if raw := l.field(row, colDate); raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			return models.Record{}, err
		}
		rec.ScrapedAt = t
	}

	if raw := l.field(row, colMonth); raw != "" {
		m, ok := models.ParseMonth(raw)
		if !ok {
			return models.Record{}, fmt.Errorf("invalid month %q", raw)
		}
		rec.Month = m
	} else if !rec.ScrapedAt.IsZero() {
		rec.Month = models.Month(rec.ScrapedAt.Month())
	}
	if !rec.Month.Valid() {
		return models.Record{}, fmt.Errorf("row has no month")
	}

	var err error
	if rec.Sales, _, err = parseNumber(l.field(row, colSales)); err != nil || rec.Sales < 0 {
		return models.Record{}, fmt.Errorf("invalid sales %q", l.field(row, colSales))
	}
	if rec.Revenue, _, err = parseNumber(l.field(row, colRevenue)); err != nil || rec.Revenue < 0 {
		return models.Record{}, fmt.Errorf("invalid revenue %q", l.field(row, colRevenue))
	}
	rating, ok, err := parseNumber(l.field(row, colRating))
	if err != nil || rating < 0 || rating > 5 {
		return models.Record{}, fmt.Errorf("invalid rating %q", l.field(row, colRating))
	}
	rec.Rating, rec.HasRating = rating, ok

	return rec, nil
}

// parseNumber reads a float; an empty cell is absent rather than an error.
func parseNumber(raw string) (float64, bool, error) {
	if raw == "" || strings.EqualFold(raw, "nan") {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}

func parseDate(raw string) (time.Time, error) {
	for _, format := range dateLayouts {
		if t, err := time.Parse(format, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", raw)
}

// Parse reads a dataset CSV. Malformed rows are skipped and counted; only a
// missing header, an unreadable stream or a file without any valid row fail.
func Parse(ctx context.Context, r io.Reader, batchSize, workers int) ([]models.Record, int, error) {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if workers <= 0 {
		workers = defaultWorkers
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, 0, fmt.Errorf("empty file")
	}
	if err != nil {
		return nil, 0, fmt.Errorf("read header: %w", err)
	}
	l, err := newLayout(header)
	if err != nil {
		return nil, 0, err
	}

	records := make([]models.Record, 0)
	skipped := 0
	batch := make([][]string, 0, batchSize)

	flush := func() error {
		parsed, bad, err := parseBatch(ctx, l, len(header), batch, workers)
		if err != nil {
			return err
		}
		records = append(records, parsed...)
		skipped += bad
		batch = batch[:0]
		return nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}

		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			skipped++
			continue
		}
		if err != nil {
			return nil, 0, fmt.Errorf("read row: %w", err)
		}

		batch = append(batch, row)
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return nil, 0, err
			}
		}
	}

	if len(batch) > 0 {
		if err := flush(); err != nil {
			return nil, 0, err
		}
	}

	if len(records) == 0 {
		return nil, skipped, errNoValidRows
	}

	return records, skipped, nil
}

// parseBatch converts rows concurrently while keeping file order.
func parseBatch(ctx context.Context, l layout, width int, rows [][]string, workers int) ([]models.Record, int, error) {
	type slot struct {
		rec   models.Record
		valid bool
	}
	slots := make([]slot, len(rows))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, row := range rows {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rec, err := l.parseRecord(row, width)
			if err != nil {
				return nil
			}
			slots[i] = slot{rec: rec, valid: true}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	out := make([]models.Record, 0, len(rows))
	skipped := 0
	for _, s := range slots {
		if !s.valid {
			skipped++
			continue
		}
		out = append(out, s.rec)
	}
	return out, skipped, nil
}
