// README: Seeded k-means with k-means++ initialization and restarts.
package clustering

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// PartitionError reports a degenerate partition. It is never papered over
// with a fallback.
type PartitionError struct {
	K      int
	Reason string
}

func (e *PartitionError) Error() string {
	return fmt.Sprintf("partition with k=%d: %s", e.K, e.Reason)
}

// Partition is a fitted centroid model.
type Partition struct {
	K          int         `json:"k"`
	Centroids  [][]float64 `json:"centroids"`
	Inertia    float64     `json:"inertia"`
	Iterations int         `json:"iterations"`
}

// NewPartition rebuilds a partition from stored centroids.
func NewPartition(centroids [][]float64) (*Partition, error) {
	if len(centroids) == 0 {
		return nil, fmt.Errorf("partition: no centroids")
	}
	dim := len(centroids[0])
	cs := make([][]float64, len(centroids))
	for i, c := range centroids {
		if len(c) != dim || dim == 0 {
			return nil, fmt.Errorf("partition: centroid %d has %d dims, want %d", i, len(c), dim)
		}
		cs[i] = append([]float64(nil), c...)
	}
	return &Partition{K: len(cs), Centroids: cs}, nil
}

// Dim is the dimensionality of the centroids.
func (p *Partition) Dim() int {
	if len(p.Centroids) == 0 {
		return 0
	}
	return len(p.Centroids[0])
}

// Predict labels each row of x with its nearest centroid. Ties go to the
// lowest label.
func (p *Partition) Predict(x mat.Matrix) ([]int, error) {
	n, d := x.Dims()
	if n == 0 {
		return []int{}, nil
	}
	if d != p.Dim() {
		return nil, fmt.Errorf("partition: input has %d columns, centroids have %d", d, p.Dim())
	}
	labels := make([]int, n)
	row := make([]float64, d)
	for i := 0; i < n; i++ {
		mat.Row(row, i, x)
		labels[i], _ = nearest(row, p.Centroids)
	}
	return labels, nil
}

// KMeans configures one k-means fit.
type KMeans struct {
	K        int
	Restarts int
	MaxIter  int
	// Tol is scaled by the mean per-column variance of the input.
	Tol  float64
	Seed int64
}

// Fit runs Restarts independent k-means++ initialized Lloyd runs and keeps
// the one with the lowest inertia. An input with fewer rows than K, or a
// final partition with an empty group, yields *PartitionError.
func (km KMeans) Fit(x mat.Matrix) (*Partition, error) {
	if km.K < 1 {
		return nil, &PartitionError{K: km.K, Reason: "k must be positive"}
	}
	rows := toRows(x)
	if len(rows) < km.K {
		return nil, &PartitionError{K: km.K, Reason: fmt.Sprintf("only %d rows", len(rows))}
	}
	restarts, maxIter := km.Restarts, km.MaxIter
	if restarts < 1 {
		restarts = 1
	}
	if maxIter < 1 {
		maxIter = 300
	}
	tol := km.Tol * meanVariance(rows)

	rng := rand.New(rand.NewSource(km.Seed))
	var best *Partition
	var bestErr error
	for r := 0; r < restarts; r++ {
		centroids := seedPlusPlus(rows, km.K, rng)
		p, err := lloyd(rows, centroids, maxIter, tol)
		if err != nil {
			if bestErr == nil {
				bestErr = err
			}
			continue
		}
		if best == nil || p.Inertia < best.Inertia {
			best = p
		}
	}
	if best == nil {
		return nil, bestErr
	}
	return best, nil
}

func lloyd(rows [][]float64, centroids [][]float64, maxIter int, tol float64) (*Partition, error) {
	k, d := len(centroids), len(rows[0])
	labels := make([]int, len(rows))
	for i := range labels {
		labels[i] = -1
	}
	iter := 0
	for iter < maxIter {
		iter++
		changed := false
		for i, r := range rows {
			l, _ := nearest(r, centroids)
			if l != labels[i] {
				changed = true
				labels[i] = l
			}
		}
		if !changed {
			break
		}
		next := means(rows, labels, k, d, centroids)
		var shift float64
		for c := range next {
			shift += sqDist(next[c], centroids[c])
		}
		centroids = next
		if shift <= tol {
			break
		}
	}

	counts := make([]int, k)
	var inertia float64
	for i, r := range rows {
		l, dist := nearest(r, centroids)
		labels[i] = l
		counts[l]++
		inertia += dist
	}
	for c, n := range counts {
		if n == 0 {
			return nil, &PartitionError{K: k, Reason: fmt.Sprintf("group %d is empty", c)}
		}
	}
	return &Partition{K: k, Centroids: centroids, Inertia: inertia, Iterations: iter}, nil
}

// means returns the per-label mean rows. A label with no rows keeps its
// previous centroid.
func means(rows [][]float64, labels []int, k, d int, prev [][]float64) [][]float64 {
	sums := make([][]float64, k)
	for c := range sums {
		sums[c] = make([]float64, d)
	}
	counts := make([]int, k)
	for i, r := range rows {
		l := labels[i]
		counts[l]++
		for j, v := range r {
			sums[l][j] += v
		}
	}
	for c := range sums {
		if counts[c] == 0 {
			copy(sums[c], prev[c])
			continue
		}
		for j := range sums[c] {
			sums[c][j] /= float64(counts[c])
		}
	}
	return sums
}

// seedPlusPlus is greedy k-means++: each new center is the best of several
// D²-weighted candidates.
func seedPlusPlus(rows [][]float64, k int, rng *rand.Rand) [][]float64 {
	n := len(rows)
	trials := 2 + int(math.Log(float64(k)))
	centers := make([][]float64, 0, k)
	centers = append(centers, clone(rows[rng.Intn(n)]))

	closest := make([]float64, n)
	var pot float64
	for i, r := range rows {
		closest[i] = sqDist(r, centers[0])
		pot += closest[i]
	}

	for len(centers) < k {
		bestIdx, bestPot := -1, math.Inf(1)
		var bestClosest []float64
		for t := 0; t < trials; t++ {
			cand := sampleWeighted(closest, pot, rng)
			cc := make([]float64, n)
			var cp float64
			for i, r := range rows {
				cc[i] = math.Min(closest[i], sqDist(r, rows[cand]))
				cp += cc[i]
			}
			if cp < bestPot {
				bestIdx, bestPot, bestClosest = cand, cp, cc
			}
		}
		centers = append(centers, clone(rows[bestIdx]))
		closest, pot = bestClosest, bestPot
	}
	return centers
}

func sampleWeighted(weights []float64, total float64, rng *rand.Rand) int {
	if total <= 0 {
		return rng.Intn(len(weights))
	}
	target := rng.Float64() * total
	var acc float64
	for i, w := range weights {
		acc += w
		if acc > target {
			return i
		}
	}
	return len(weights) - 1
}

func nearest(r []float64, centroids [][]float64) (int, float64) {
	best, bestDist := 0, math.Inf(1)
	for c, cen := range centroids {
		if d := sqDist(r, cen); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best, bestDist
}

func sqDist(a, b []float64) float64 {
	var s float64
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s
}

func meanVariance(rows [][]float64) float64 {
	n, d := len(rows), len(rows[0])
	var total float64
	for j := 0; j < d; j++ {
		var mean float64
		for _, r := range rows {
			mean += r[j]
		}
		mean /= float64(n)
		var ss float64
		for _, r := range rows {
			dv := r[j] - mean
			ss += dv * dv
		}
		total += ss / float64(n)
	}
	return total / float64(d)
}

func toRows(x mat.Matrix) [][]float64 {
	n, d := x.Dims()
	if n == 0 || d == 0 {
		return nil
	}
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = mat.Row(nil, i, x)
	}
	return rows
}

func clone(v []float64) []float64 { return append([]float64(nil), v...) }
