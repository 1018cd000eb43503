package ranking

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"restaurant-rank/core/types"
)

// Summary describes the score distribution of a run
type Summary struct {
	Count      int     `json:"count"`
	Skipped    int     `json:"skipped"`
	Degenerate int     `json:"degenerate"`
	Mean       float64 `json:"mean"`
	StdDev     float64 `json:"std_dev"`
	Median     float64 `json:"median"`
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
}

// Summarize computes statistics over every scored result
func Summarize(results []types.RankedResult, skipped int) Summary {
	s := Summary{Count: len(results), Skipped: skipped}
	if len(results) == 0 {
		return s
	}

	scores := make([]float64, len(results))
	for i, r := range results {
		scores[i] = r.Score
		if r.Degenerate {
			s.Degenerate++
		}
	}

	s.Mean = stat.Mean(scores, nil)
	if len(scores) > 1 {
		s.StdDev = stat.StdDev(scores, nil)
	}
	s.Min = floats.Min(scores)
	s.Max = floats.Max(scores)

	sort.Float64s(scores)
	s.Median = median(scores)
	return s
}

// median expects sorted input and averages the two middle values of an even count
func median(sorted []float64) float64 {
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
