package aggregator

import (
	"cmp"
	"math"
	"slices"
)

// Reduction is how a metric folds the values of a group into one number.
type Reduction string

const (
	Sum   Reduction = "sum"
	Mean  Reduction = "mean"
	Count Reduction = "count"
	Min   Reduction = "min"
	Max   Reduction = "max"
)

// Metric pairs a field with a reduction.
type Metric struct {
	Field     Field
	Reduction Reduction
}

// Key identifies the metric inside GroupAggregate.Values, e.g. "sum(revenue)".
func (m Metric) Key() string {
	return string(m.Reduction) + "(" + string(m.Field) + ")"
}

func SumOf(f Field) Metric { return Metric{Field: f, Reduction: Sum} }

func MeanOf(f Field) Metric { return Metric{Field: f, Reduction: Mean} }

func MinOf(f Field) Metric { return Metric{Field: f, Reduction: Min} }

func MaxOf(f Field) Metric { return Metric{Field: f, Reduction: Max} }

func CountOf(f Field) Metric { return Metric{Field: f, Reduction: Count} }

// GroupAggregate holds the reduced metrics of all rows sharing a group key.
// Label is the smallest product name in the group, used as a readable caption.
type GroupAggregate struct {
	Key    string             `json:"key"`
	Label  string             `json:"label"`
	Count  int                `json:"count"`
	Values map[string]float64 `json:"values"`
}

// Value returns the reduced value of m, or 0 if m was not computed.
func (g GroupAggregate) Value(m Metric) float64 {
	return g.Values[m.Key()]
}

type aggregateOptions struct {
	order      *Metric
	descending bool
}

type AggregateOption func(*aggregateOptions)

// OrderBy sorts groups by m. Ties keep first-occurrence order. Without it,
// groups come back in the order their key first appears in the view.
func OrderBy(m Metric, descending bool) AggregateOption {
	return func(o *aggregateOptions) {
		o.order = &m
		o.descending = descending
	}
}

type accumulator struct {
	sum float64
	n   int
	min float64
	max float64
}

func (a *accumulator) add(v float64) {
	if a.n == 0 || v < a.min {
		a.min = v
	}
	if a.n == 0 || v > a.max {
		a.max = v
	}
	a.sum += v
	a.n++
}

func (a *accumulator) result(r Reduction) float64 {
	if r == Count {
		return float64(a.n)
	}
	if a.n == 0 {
		return 0
	}
	switch r {
	case Sum:
		return a.sum
	case Mean:
		return a.sum / float64(a.n)
	case Min:
		return a.min
	case Max:
		return a.max
	}
	return 0
}

type groupState struct {
	key   string
	label string
	count int
	accs  []accumulator
}

// Aggregate groups view by groupField and reduces each metric per group.
// An empty view yields an empty, non-nil slice.
func Aggregate(view View, groupField Field, metrics []Metric, opts ...AggregateOption) []GroupAggregate {
	var o aggregateOptions
	for _, opt := range opts {
		opt(&o)
	}

	computed := slices.Clone(metrics)
	if o.order != nil && !slices.Contains(computed, *o.order) {
		computed = append(computed, *o.order)
	}

	index := make(map[string]int)
	groups := make([]*groupState, 0)

	for i := 0; i < view.Len(); i++ {
		key := view.Dimension(i, groupField)
		pos, ok := index[key]
		if !ok {
			pos = len(groups)
			index[key] = pos
			groups = append(groups, &groupState{
				key:   key,
				label: view.Dimension(i, FieldProductName),
				accs:  make([]accumulator, len(computed)),
			})
		}
		g := groups[pos]
		g.count++
		if name := view.Dimension(i, FieldProductName); name < g.label {
			g.label = name
		}
		for j, m := range computed {
			if v, ok := fieldValue(view, i, m); ok {
				g.accs[j].add(v)
			}
		}
	}

	out := make([]GroupAggregate, len(groups))
	for i, g := range groups {
		values := make(map[string]float64, len(computed))
		for j, m := range computed {
			values[m.Key()] = g.accs[j].result(m.Reduction)
		}
		out[i] = GroupAggregate{
			Key:    g.key,
			Label:  g.label,
			Count:  g.count,
			Values: values,
		}
	}

	if o.order != nil {
		key := o.order.Key()
		slices.SortStableFunc(out, func(a, b GroupAggregate) int {
			c := cmp.Compare(a.Values[key], b.Values[key])
			if o.descending {
				return -c
			}
			return c
		})
	}

	return out
}

// fieldValue yields the number a metric folds for row i. Count also accepts
// non-numeric fields, counting rows where the field is set.
func fieldValue(view View, i int, m Metric) (float64, bool) {
	v, ok := view.Measure(i, m.Field)
	if ok && !math.IsNaN(v) {
		return v, true
	}
	if m.Reduction == Count && view.Dimension(i, m.Field) != "" {
		return 1, true
	}
	return 0, false
}
