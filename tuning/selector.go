package tuning

import (
	"sort"

	"github.com/aokisawa/riskbench/models"
	"github.com/aokisawa/riskbench/pkg/errors"
)

// Selection identifies the winning candidate of a comparison round.
type Selection struct {
	Family   string
	Point    models.Point
	Mean     float64
	Variance float64
}

// Select picks the winner among aggregated candidates: highest mean metric,
// breaking exact mean ties by lower cross-fold variance, then by earlier
// position in the input. Incomplete candidates never win. It returns
// ErrEmptyData when no complete candidate exists.
func Select(aggs []Aggregate) (*Selection, error) {
	best := -1
	for i, a := range aggs {
		if a.Incomplete {
			continue
		}
		if best < 0 || better(a, aggs[best]) {
			best = i
		}
	}
	if best < 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "no complete candidate to select from")
	}
	w := aggs[best]
	return &Selection{
		Family:   w.Family,
		Point:    w.Point.Clone(),
		Mean:     w.Mean,
		Variance: w.Variance(),
	}, nil
}

// Rank returns complete candidates ordered best-first under the same
// criterion Select uses, for the comparison table.
func Rank(aggs []Aggregate) []Aggregate {
	ranked := make([]Aggregate, 0, len(aggs))
	for _, a := range aggs {
		if !a.Incomplete {
			ranked = append(ranked, a)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return better(ranked[i], ranked[j])
	})
	return ranked
}

// Excluded returns the incomplete candidates, for reporting.
func Excluded(aggs []Aggregate) []Aggregate {
	var out []Aggregate
	for _, a := range aggs {
		if a.Incomplete {
			out = append(out, a)
		}
	}
	return out
}

func better(a, b Aggregate) bool {
	if a.Mean != b.Mean {
		return a.Mean > b.Mean
	}
	return a.Variance() < b.Variance()
}
