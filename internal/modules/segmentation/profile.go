// README: Profiler: per-cluster means and modes.
package segmentation

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	"hotelsegments/internal/types"
)

// round2 rounds to 2 decimals with halves going to the even neighbour.
func round2(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}

// Profile summarizes labeled rows per cluster: the mean of each numeric field
// rounded to 2 decimals, ignoring missing values, and the most frequent
// categorical value, first seen winning ties.
func Profile(labeled []LabeledRecord, numeric, categorical []string) ProfileTable {
	table := ProfileTable{
		NumericFields:     append([]string(nil), numeric...),
		CategoricalFields: append([]string(nil), categorical...),
		Rows:              []ProfileRow{},
	}
	groups := map[int][]int{}
	for i, r := range labeled {
		groups[r.Cluster] = append(groups[r.Cluster], i)
	}
	labels := make([]int, 0, len(groups))
	for l := range groups {
		labels = append(labels, l)
	}
	sort.Ints(labels)

	for _, l := range labels {
		members := groups[l]
		row := ProfileRow{
			Cluster: l,
			Size:    len(members),
			Means:   make([]types.NullFloat64, len(numeric)),
			Modes:   make([]types.NullString, len(categorical)),
		}
		for j, field := range numeric {
			var vals stats.Float64Data
			for _, i := range members {
				if v, ok := labeled[i].Numeric(field); ok {
					vals = append(vals, v)
				}
			}
			mean, err := stats.Mean(vals)
			if err != nil {
				continue
			}
			row.Means[j] = types.Float(round2(mean))
		}
		for j, field := range categorical {
			row.Modes[j] = mode(labeled, members, field)
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

func mode(labeled []LabeledRecord, members []int, field string) types.NullString {
	counts := map[string]int{}
	var order []string
	for _, i := range members {
		v := labeled[i].Category(field)
		if !v.Valid {
			continue
		}
		if counts[v.String] == 0 {
			order = append(order, v.String)
		}
		counts[v.String]++
	}
	var best types.NullString
	bestCount := 0
	for _, v := range order {
		if counts[v] > bestCount {
			best, bestCount = types.String(v), counts[v]
		}
	}
	return best
}
