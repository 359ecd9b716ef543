package clustering

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Silhouette returns the mean silhouette coefficient of labels over x using
// Euclidean distance. Members of singleton groups score 0. When sampleSize is
// positive and smaller than the row count, the mean is taken over a seeded
// random sample of rows (distances still run against every row).
func Silhouette(x mat.Matrix, labels []int, sampleSize int, seed int64) (float64, error) {
	rows := toRows(x)
	n := len(rows)
	if n != len(labels) {
		return 0, fmt.Errorf("silhouette: %d rows but %d labels", n, len(labels))
	}
	sizes := map[int]int{}
	for _, l := range labels {
		sizes[l]++
	}
	if len(sizes) < 2 || len(sizes) > n-1 {
		return 0, fmt.Errorf("silhouette: need 2 <= groups <= n-1, got %d groups for %d rows", len(sizes), n)
	}
	groups := make([]int, 0, len(sizes))
	for l := range sizes {
		groups = append(groups, l)
	}
	sort.Ints(groups)

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	if sampleSize > 0 && sampleSize < n {
		rng := rand.New(rand.NewSource(seed))
		idx = rng.Perm(n)[:sampleSize]
		sort.Ints(idx)
	}

	var total float64
	sums := make(map[int]float64, len(groups))
	for _, i := range idx {
		own := labels[i]
		if sizes[own] == 1 {
			continue
		}
		for _, g := range groups {
			sums[g] = 0
		}
		for j, r := range rows {
			if j == i {
				continue
			}
			sums[labels[j]] += math.Sqrt(sqDist(rows[i], r))
		}
		a := sums[own] / float64(sizes[own]-1)
		b := math.Inf(1)
		for _, g := range groups {
			if g == own {
				continue
			}
			if m := sums[g] / float64(sizes[g]); m < b {
				b = m
			}
		}
		if denom := math.Max(a, b); denom > 0 {
			total += (b - a) / denom
		}
	}
	return total / float64(len(idx)), nil
}
