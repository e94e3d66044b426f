package aggregator

import (
	"maps"

	"github.com/shopspring/decimal"
)

// Contribution is a group's share of the total of one metric, 0 to 100.
type Contribution struct {
	GroupAggregate
	Percentage float64 `json:"percentage"`
}

// PercentageOfTotal computes each group's share of m's total, rounded to two
// decimals. When the total is exactly zero every share is 0.
func PercentageOfTotal(aggs []GroupAggregate, m Metric) []Contribution {
	var total float64
	for _, g := range aggs {
		total += g.Value(m)
	}

	out := make([]Contribution, len(aggs))
	for i, g := range aggs {
		g.Values = maps.Clone(g.Values)
		out[i] = Contribution{GroupAggregate: g}
		if total == 0 {
			continue
		}
		out[i].Percentage = round2(100 * g.Value(m) / total)
	}
	return out
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
