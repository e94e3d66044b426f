// Package aggregator filters, groups and reduces an immutable table of sales
// records. Every function here is pure: inputs are never modified and results
// are freshly allocated on each call.
package aggregator

import (
	"strconv"

	"marketplace-dashboard/internal/models"
)

const DefaultShortNameLength = 25

// Field names a column of a record, or a value derived from one.
type Field string

const (
	FieldMonth       Field = "month"
	FieldBrand       Field = "brand"
	FieldCategory    Field = "category"
	FieldProductName Field = "product_name"
	FieldPriceRange  Field = "price_range"
	FieldSales       Field = "sales"
	FieldRevenue     Field = "revenue"
	FieldRating      Field = "rating"

	// Derived fields.
	FieldShortName Field = "short_name"
	FieldMinPrice  Field = "min_price"
)

var knownFields = map[Field]bool{
	FieldMonth: true, FieldBrand: true, FieldCategory: true, FieldProductName: true,
	FieldPriceRange: true, FieldSales: true, FieldRevenue: true, FieldRating: true,
	FieldShortName: true, FieldMinPrice: true,
}

// ParseField resolves a field by name.
func ParseField(name string) (Field, bool) {
	f := Field(name)
	return f, knownFields[f]
}

// Table owns the loaded records. It is built once per dataset load and shared
// by reference; nothing in this package writes to it afterwards.
type Table struct {
	records     []models.Record
	shortLength int
}

type TableOption func(*Table)

// WithShortNameLength sets how many runes of a product name FieldShortName keeps.
func WithShortNameLength(n int) TableOption {
	return func(t *Table) {
		if n > 0 {
			t.shortLength = n
		}
	}
}

// NewTable copies records into a new table.
func NewTable(records []models.Record, opts ...TableOption) *Table {
	t := &Table{
		records:     make([]models.Record, len(records)),
		shortLength: DefaultShortNameLength,
	}
	copy(t.records, records)
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.records)
}

// Record returns a copy of the i-th record.
func (t *Table) Record(i int) models.Record {
	return t.records[i]
}

// All returns a view over every record in table order.
func (t *Table) All() View {
	n := t.Len()
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	return View{table: t, indices: indices}
}

func (t *Table) dimension(i int, f Field) string {
	r := &t.records[i]
	switch f {
	case FieldMonth:
		return r.Month.String()
	case FieldBrand:
		return r.Brand
	case FieldCategory:
		return r.Category
	case FieldProductName:
		return r.ProductName
	case FieldPriceRange:
		return r.PriceRange
	case FieldShortName:
		return ShortenName(r.ProductName, t.shortLength)
	case FieldMinPrice:
		return strconv.FormatInt(ExtractMinPrice(r.PriceRange), 10)
	}
	if v, ok := t.measure(i, f); ok {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

func (t *Table) measure(i int, f Field) (float64, bool) {
	r := &t.records[i]
	switch f {
	case FieldSales:
		return r.Sales, true
	case FieldRevenue:
		return r.Revenue, true
	case FieldRating:
		return r.Rating, r.HasRating
	case FieldMinPrice:
		return float64(ExtractMinPrice(r.PriceRange)), true
	case FieldMonth:
		// Calendar position, so months can be ordered by a min/max reduction.
		return float64(r.Month), r.Month.Valid()
	}
	return 0, false
}

// View is an ordered subsequence of a table, held as row indices. Views share
// the parent table and are cheap to copy.
type View struct {
	table   *Table
	indices []int
}

func (v View) Len() int {
	return len(v.indices)
}

func (v View) Record(i int) models.Record {
	return v.table.Record(v.indices[i])
}

// Records returns copies of the records in view order.
func (v View) Records() []models.Record {
	out := make([]models.Record, len(v.indices))
	for i, idx := range v.indices {
		out[i] = v.table.Record(idx)
	}
	return out
}

// Indices returns the table positions of the view's rows.
func (v View) Indices() []int {
	out := make([]int, len(v.indices))
	copy(out, v.indices)
	return out
}

func (v View) Dimension(i int, f Field) string {
	return v.table.dimension(v.indices[i], f)
}

func (v View) Measure(i int, f Field) (float64, bool) {
	return v.table.measure(v.indices[i], f)
}
