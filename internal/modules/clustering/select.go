package clustering

import (
	"fmt"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// Candidate is the outcome of one candidate group count.
type Candidate struct {
	K     int     `json:"k"`
	Score float64 `json:"score"`
}

// Selection is the chosen partition and the scores of every candidate, in
// evaluation order.
type Selection struct {
	K          int
	Score      float64
	Partition  *Partition
	Candidates []Candidate
}

// Selector fits one KMeans per candidate k and keeps the best silhouette.
type Selector struct {
	Restarts   int
	MaxIter    int
	Tol        float64
	SampleSize int
	Seed       int64
	Log        *zap.Logger
}

// Select evaluates ks in the given order. The first candidate is the initial
// best and a later one replaces it only with a strictly higher score. Any
// degenerate partition fails the whole selection.
func (s Selector) Select(x mat.Matrix, ks []int) (*Selection, error) {
	if len(ks) == 0 {
		return nil, fmt.Errorf("select: no candidate group counts")
	}
	log := s.Log
	if log == nil {
		log = zap.NewNop()
	}

	var best *Selection
	var candidates []Candidate
	for _, k := range ks {
		km := KMeans{K: k, Restarts: s.Restarts, MaxIter: s.MaxIter, Tol: s.Tol, Seed: s.Seed}
		p, err := km.Fit(x)
		if err != nil {
			return nil, err
		}
		labels, err := p.Predict(x)
		if err != nil {
			return nil, err
		}
		score, err := Silhouette(x, labels, s.SampleSize, s.Seed)
		if err != nil {
			return nil, &PartitionError{K: k, Reason: err.Error()}
		}
		if math.IsNaN(score) {
			return nil, &PartitionError{K: k, Reason: "silhouette is NaN"}
		}
		log.Info("scored candidate", zap.Int("k", k), zap.Float64("silhouette", score), zap.Float64("inertia", p.Inertia))
		candidates = append(candidates, Candidate{K: k, Score: score})

		if best == nil || score > best.Score {
			best = &Selection{K: k, Score: score, Partition: p}
		}
	}
	best.Candidates = candidates
	return best, nil
}
