package aggregator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace-dashboard/internal/models"
)

func sampleTable() *Table {
	return NewTable([]models.Record{
		{Month: 6, Brand: "Acme", Category: "Cream", ProductName: "Acme Day Cream", PriceRange: "Rp 50.000 - Rp 100.000", Sales: 10, Revenue: 100, Rating: 4.5, HasRating: true},
		{Month: 6, Brand: "Bloom", Category: "Serum", ProductName: "Bloom Serum", PriceRange: "Rp 0 - Rp 50.000", Sales: 5, Revenue: 0, Rating: 4.0, HasRating: true},
		{Month: 7, Brand: "Acme", Category: "Cream", ProductName: "Acme Night Cream", PriceRange: "Rp 50.000 - Rp 100.000", Sales: 3, Revenue: 300},
		{Month: 6, Brand: "Acme", Category: "Serum", ProductName: "Acme Serum", PriceRange: "Rp 100.000 - Rp 150.000", Sales: 7, Revenue: 300, Rating: 3.9, HasRating: true},
	})
}

func TestFilter_SubsequenceMatchingAllPredicates(t *testing.T) {
	table := sampleTable()
	spec := FilterSpec{FieldMonth: "June", FieldBrand: "Acme"}

	view := Filter(table.All(), spec)

	require.Equal(t, []int{0, 3}, view.Indices())
	for i := 0; i < view.Len(); i++ {
		assert.Equal(t, "June", view.Dimension(i, FieldMonth))
		assert.Equal(t, "Acme", view.Dimension(i, FieldBrand))
	}
}

func TestFilter_EmptySpecKeepsEverything(t *testing.T) {
	table := sampleTable()

	view := Filter(table.All(), nil)

	assert.Equal(t, []int{0, 1, 2, 3}, view.Indices())
}

func TestFilter_NoMatchIsEmpty(t *testing.T) {
	view := Filter(sampleTable().All(), FilterSpec{FieldBrand: "Nobody"})

	assert.Equal(t, 0, view.Len())
	assert.Empty(t, Aggregate(view, FieldProductName, []Metric{SumOf(FieldRevenue)}))
	assert.Equal(t, Summary{}, Summarize(view))
}

func TestFilter_Idempotent(t *testing.T) {
	table := sampleTable()
	before := table.All().Records()
	spec := FilterSpec{FieldCategory: "Cream"}

	first := Filter(table.All(), spec)
	second := Filter(table.All(), spec)
	twice := Filter(first, spec)

	assert.Equal(t, first.Indices(), second.Indices())
	assert.Equal(t, first.Indices(), twice.Indices())
	assert.Equal(t, before, table.All().Records())
}

func TestFilter_DerivedField(t *testing.T) {
	view := Filter(sampleTable().All(), FilterSpec{FieldMinPrice: "50000"})

	assert.Equal(t, []int{0, 2}, view.Indices())
}

func TestAggregate_SumsPerGroup(t *testing.T) {
	view := sampleTable().All()

	aggs := Aggregate(view, FieldBrand, []Metric{SumOf(FieldSales), SumOf(FieldRevenue), CountOf(FieldProductName)})

	require.Len(t, aggs, 2)
	assert.Equal(t, "Acme", aggs[0].Key)
	assert.Equal(t, 20.0, aggs[0].Value(SumOf(FieldSales)))
	assert.Equal(t, 700.0, aggs[0].Value(SumOf(FieldRevenue)))
	assert.Equal(t, 3.0, aggs[0].Value(CountOf(FieldProductName)))
	assert.Equal(t, 3, aggs[0].Count)
	assert.Equal(t, "Acme Day Cream", aggs[0].Label)

	assert.Equal(t, "Bloom", aggs[1].Key)
	assert.Equal(t, 5.0, aggs[1].Value(SumOf(FieldSales)))
}

func TestAggregate_GroupSumsMatchRecords(t *testing.T) {
	view := sampleTable().All()

	aggs := Aggregate(view, FieldCategory, []Metric{SumOf(FieldRevenue)})

	var total float64
	for _, g := range aggs {
		var want float64
		for _, r := range Filter(view, FilterSpec{FieldCategory: g.Key}).Records() {
			want += r.Revenue
		}
		assert.Equal(t, want, g.Value(SumOf(FieldRevenue)), g.Key)
		total += g.Value(SumOf(FieldRevenue))
	}
	assert.Equal(t, 700.0, total)
}

func TestAggregate_Reductions(t *testing.T) {
	view := sampleTable().All()
	metrics := []Metric{MeanOf(FieldRating), MinOf(FieldSales), MaxOf(FieldSales), CountOf(FieldRating)}

	aggs := Aggregate(view, FieldBrand, metrics)

	require.Len(t, aggs, 2)
	acme := aggs[0]
	assert.InDelta(t, 4.2, acme.Value(MeanOf(FieldRating)), 1e-9)
	assert.Equal(t, 3.0, acme.Value(MinOf(FieldSales)))
	assert.Equal(t, 10.0, acme.Value(MaxOf(FieldSales)))
	assert.Equal(t, 2.0, acme.Value(CountOf(FieldRating)))
}

func TestAggregate_MeanWithoutValuesIsZero(t *testing.T) {
	view := Filter(sampleTable().All(), FilterSpec{FieldMonth: "July"})

	aggs := Aggregate(view, FieldBrand, []Metric{MeanOf(FieldRating)})

	require.Len(t, aggs, 1)
	assert.Equal(t, 0.0, aggs[0].Value(MeanOf(FieldRating)))
}

func TestAggregate_OrderBy(t *testing.T) {
	view := sampleTable().All()

	desc := Aggregate(view, FieldProductName, []Metric{SumOf(FieldRevenue)}, OrderBy(SumOf(FieldRevenue), true))
	asc := Aggregate(view, FieldProductName, nil, OrderBy(SumOf(FieldSales), false))

	keys := func(aggs []GroupAggregate) []string {
		out := make([]string, len(aggs))
		for i, g := range aggs {
			out[i] = g.Key
		}
		return out
	}
	// Equal revenue keeps first-occurrence order.
	assert.Equal(t, []string{"Acme Night Cream", "Acme Serum", "Acme Day Cream", "Bloom Serum"}, keys(desc))
	assert.Equal(t, []string{"Acme Night Cream", "Bloom Serum", "Acme Serum", "Acme Day Cream"}, keys(asc))
	assert.Equal(t, 3.0, asc[0].Value(SumOf(FieldSales)))
}

func TestAggregate_MonthOrderViaMinReduction(t *testing.T) {
	table := NewTable([]models.Record{
		{Month: 9, Revenue: 1},
		{Month: 2, Revenue: 2},
		{Month: 5, Revenue: 3},
	})

	aggs := Aggregate(table.All(), FieldMonth, []Metric{SumOf(FieldRevenue)}, OrderBy(MinOf(FieldMonth), false))

	require.Len(t, aggs, 3)
	assert.Equal(t, "February", aggs[0].Key)
	assert.Equal(t, "May", aggs[1].Key)
	assert.Equal(t, "September", aggs[2].Key)
}

func TestAggregate_ShortNameGrouping(t *testing.T) {
	table := NewTable([]models.Record{
		{ProductName: "Lotion Extra Gentle 100ml", Revenue: 1},
		{ProductName: "Lotion Extra Gentle 200ml", Revenue: 2},
	}, WithShortNameLength(10))

	aggs := Aggregate(table.All(), FieldShortName, []Metric{SumOf(FieldRevenue)})

	require.Len(t, aggs, 1)
	assert.Equal(t, "Lotion Ext...", aggs[0].Key)
	assert.Equal(t, "Lotion Extra Gentle 100ml", aggs[0].Label)
	assert.Equal(t, 3.0, aggs[0].Value(SumOf(FieldRevenue)))
}

func TestPercentageOfTotal(t *testing.T) {
	table := NewTable([]models.Record{
		{ProductName: "A", Revenue: 100},
		{ProductName: "B", Revenue: 0},
		{ProductName: "C", Revenue: 300},
	})
	revenue := SumOf(FieldRevenue)
	aggs := Aggregate(table.All(), FieldProductName, []Metric{revenue})

	shares := PercentageOfTotal(aggs, revenue)

	require.Len(t, shares, 3)
	assert.Equal(t, 25.0, shares[0].Percentage)
	assert.Equal(t, 0.0, shares[1].Percentage)
	assert.Equal(t, 75.0, shares[2].Percentage)
}

func TestPercentageOfTotal_SumsToHundred(t *testing.T) {
	table := NewTable([]models.Record{
		{ProductName: "A", Revenue: 1},
		{ProductName: "B", Revenue: 3},
		{ProductName: "C", Revenue: 4},
		{ProductName: "A", Revenue: 0},
	})
	revenue := SumOf(FieldRevenue)

	shares := PercentageOfTotal(Aggregate(table.All(), FieldProductName, []Metric{revenue}), revenue)

	var total float64
	for _, s := range shares {
		total += s.Percentage
	}
	assert.InDelta(t, 100.0, total, 0.01)
}

func TestPercentageOfTotal_ZeroTotal(t *testing.T) {
	table := NewTable([]models.Record{
		{ProductName: "A", Revenue: 0},
		{ProductName: "B", Revenue: 0},
	})
	revenue := SumOf(FieldRevenue)

	shares := PercentageOfTotal(Aggregate(table.All(), FieldProductName, []Metric{revenue}), revenue)

	require.Len(t, shares, 2)
	for _, s := range shares {
		assert.Equal(t, 0.0, s.Percentage)
	}
	assert.Empty(t, PercentageOfTotal(nil, revenue))
}

func TestPercentageOfTotal_DoesNotMutateInput(t *testing.T) {
	revenue := SumOf(FieldRevenue)
	aggs := Aggregate(sampleTable().All(), FieldBrand, []Metric{revenue})

	shares := PercentageOfTotal(aggs, revenue)
	shares[0].Values[revenue.Key()] = -1

	assert.Equal(t, 700.0, aggs[0].Value(revenue))
}

func TestFormatMagnitude(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"small", 999, "999"},
		{"thousands", 12500.0, "12,500"},
		{"rounds half to even", 2.5, "2"},
		{"millions", 1_500_000, "1.5M"},
		{"billions", 2_300_000_000.0, "2.3Bn"},
		{"negative millions", -1_500_000, "-1.5M"},
		{"nil", nil, "-"},
		{"nil pointer", (*float64)(nil), "-"},
		{"numeric string", "1500000", "1.5M"},
		{"text", "n/a", "n/a"},
		{"struct", struct{ A int }{1}, "{1}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatMagnitude(tt.value))
		})
	}
}

func TestShortenName(t *testing.T) {
	assert.Equal(t, "short", ShortenName("short", 25))
	assert.Equal(t, "abcde...", ShortenName("abcdefgh", 5))
	assert.Equal(t, "séru...", ShortenName("sérum lembut", 4))
	assert.Equal(t, "unchanged", ShortenName("unchanged", 0))
}

func TestExtractMinPrice(t *testing.T) {
	assert.Equal(t, int64(10000), ExtractMinPrice("Rp 10.000 - Rp 25.000"))
	assert.Equal(t, int64(25000), ExtractMinPrice("25,000+"))
	assert.Equal(t, int64(0), ExtractMinPrice("unknown"))
}

func TestSummarize(t *testing.T) {
	view := Filter(sampleTable().All(), FilterSpec{FieldMonth: "June"})

	s := Summarize(view)

	assert.Equal(t, 22.0, s.Sales)
	assert.Equal(t, 400.0, s.Revenue)
	assert.Equal(t, 4.13, s.AverageRating)
	assert.Equal(t, 3, s.UniqueProducts)
	assert.Equal(t, 3, s.Records)
}

func TestDistinct(t *testing.T) {
	view := sampleTable().All()

	assert.Equal(t, []string{"June", "July"}, Distinct(view, FieldMonth))
	assert.Equal(t, []string{"Acme", "Bloom"}, Distinct(view, FieldBrand))
}

func TestTimeline(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2025, 6, d, 0, 0, 0, 0, time.UTC) }
	table := NewTable([]models.Record{
		{ProductName: "A", Sales: 3, ScrapedAt: day(3)},
		{ProductName: "B", Sales: 9, ScrapedAt: day(1)},
		{ProductName: "A", Sales: 1, ScrapedAt: day(1)},
		{ProductName: "A", Sales: 5},
		{ProductName: "C", Sales: 7, ScrapedAt: day(2)},
	})

	series := Timeline(table.All(), []string{"A", "B", "A"}, FieldSales)

	require.Len(t, series, 2)
	assert.Equal(t, "A", series[0].ProductName)
	require.Len(t, series[0].Points, 2)
	assert.Equal(t, day(1), series[0].Points[0].Date)
	assert.Equal(t, 1.0, series[0].Points[0].Value)
	assert.Equal(t, 3.0, series[0].Points[1].Value)
	assert.Equal(t, "B", series[1].ProductName)
	assert.Len(t, series[1].Points, 1)
}
