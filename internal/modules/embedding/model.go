// README: Masked-feature autoencoder parameters and inference-only forward pass.
package embedding

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

const normEpsilon = 1e-5

// ErrEmptyMatrix is returned when fitting on zero rows.
var ErrEmptyMatrix = errors.New("embedding: empty input matrix")

// Params is the complete learned state of a Model. Weight matrices are
// row-major: W1 is InputDim x HiddenDim, W2 is HiddenDim x EmbeddingDim and
// W3 is EmbeddingDim x InputDim.
type Params struct {
	InputDim     int `json:"input_dim"`
	HiddenDim    int `json:"hidden_dim"`
	EmbeddingDim int `json:"embedding_dim"`

	W1 []float64 `json:"w1"`
	B1 []float64 `json:"b1"`
	W2 []float64 `json:"w2"`
	B2 []float64 `json:"b2"`
	W3 []float64 `json:"w3"`
	B3 []float64 `json:"b3"`

	RunningMean []float64 `json:"running_mean"`
	RunningVar  []float64 `json:"running_var"`
}

func (p Params) clone() Params {
	c := p
	for _, s := range []*[]float64{&c.W1, &c.B1, &c.W2, &c.B2, &c.W3, &c.B3, &c.RunningMean, &c.RunningVar} {
		*s = append([]float64(nil), (*s)...)
	}
	return c
}

func (p Params) validate() error {
	d, h, e := p.InputDim, p.HiddenDim, p.EmbeddingDim
	if d <= 0 || h <= 0 || e <= 0 {
		return fmt.Errorf("embedding: invalid dims %dx%dx%d", d, h, e)
	}
	checks := []struct {
		name string
		got  int
		want int
	}{
		{"w1", len(p.W1), d * h}, {"b1", len(p.B1), h},
		{"w2", len(p.W2), h * e}, {"b2", len(p.B2), e},
		{"w3", len(p.W3), e * d}, {"b3", len(p.B3), d},
		{"running_mean", len(p.RunningMean), d}, {"running_var", len(p.RunningVar), d},
	}
	for _, c := range checks {
		if c.got != c.want {
			return fmt.Errorf("embedding: %s has %d values, want %d", c.name, c.got, c.want)
		}
	}
	return nil
}

// Model is a fitted encoder. It is safe for concurrent Transform calls.
type Model struct {
	p          Params
	w1, w2, w3 *mat.Dense
}

// NewModel wraps p after checking its shapes. The model keeps its own copy.
func NewModel(p Params) (*Model, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	return bind(p.clone()), nil
}

// bind wraps the parameter slices without copying; updates to the slices are
// visible through the matrices.
func bind(p Params) *Model {
	return &Model{
		p:  p,
		w1: mat.NewDense(p.InputDim, p.HiddenDim, p.W1),
		w2: mat.NewDense(p.HiddenDim, p.EmbeddingDim, p.W2),
		w3: mat.NewDense(p.EmbeddingDim, p.InputDim, p.W3),
	}
}

// Params returns a copy of the learned state.
func (m *Model) Params() Params { return m.p.clone() }

func (m *Model) InputDim() int     { return m.p.InputDim }
func (m *Model) EmbeddingDim() int { return m.p.EmbeddingDim }

// Transform embeds every row of x using the running normalization statistics.
// It returns the n x EmbeddingDim embedding and the n x InputDim reconstruction
// of the normalized input.
func (m *Model) Transform(x mat.Matrix) (*mat.Dense, *mat.Dense, error) {
	n, d := x.Dims()
	if d != m.p.InputDim {
		return nil, nil, fmt.Errorf("embedding: input has %d columns, model expects %d", d, m.p.InputDim)
	}
	if n == 0 {
		return &mat.Dense{}, &mat.Dense{}, nil
	}
	xn := m.normalizeRunning(x)
	_, z, r := m.forward(xn)
	return z, r, nil
}

func (m *Model) normalizeRunning(x mat.Matrix) *mat.Dense {
	n, d := x.Dims()
	out := mat.NewDense(n, d, nil)
	for j := 0; j < d; j++ {
		mean, sd := m.p.RunningMean[j], math.Sqrt(m.p.RunningVar[j]+normEpsilon)
		for i := 0; i < n; i++ {
			out.Set(i, j, (x.At(i, j)-mean)/sd)
		}
	}
	return out
}

// forward returns the hidden activations, the embedding and the reconstruction.
func (m *Model) forward(in mat.Matrix) (h, z, r *mat.Dense) {
	h = new(mat.Dense)
	h.Mul(in, m.w1)
	addBias(h, m.p.B1)
	h.Apply(func(_, _ int, v float64) float64 { return math.Max(0, v) }, h)

	z = new(mat.Dense)
	z.Mul(h, m.w2)
	addBias(z, m.p.B2)

	r = new(mat.Dense)
	r.Mul(z, m.w3)
	addBias(r, m.p.B3)
	return h, z, r
}

func addBias(m *mat.Dense, b []float64) {
	m.Apply(func(_, j int, v float64) float64 { return v + b[j] }, m)
}
