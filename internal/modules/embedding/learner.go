// README: Self-supervised pretraining: random feature masking, reconstruction loss, Adam, early stopping.
package embedding

import (
	"fmt"
	"math"
	"math/rand"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

const (
	adamBeta1   = 0.9
	adamBeta2   = 0.999
	adamEpsilon = 1e-8
	lossEpsilon = 1e-9
)

// Config controls the network shape and the training loop.
type Config struct {
	HiddenDim        int
	EmbeddingDim     int
	MaxEpochs        int
	Patience         int
	BatchSize        int
	VirtualBatchSize int
	LearningRate     float64
	MaskRatio        float64
	Momentum         float64
	Seed             int64
}

// DefaultConfig returns the settings used by the training pipeline.
func DefaultConfig() Config {
	return Config{
		HiddenDim:        16,
		EmbeddingDim:     8,
		MaxEpochs:        100,
		Patience:         10,
		BatchSize:        256,
		VirtualBatchSize: 128,
		LearningRate:     1e-3,
		MaskRatio:        0.2,
		Momentum:         0.02,
		Seed:             42,
	}
}

func (c Config) validate() error {
	switch {
	case c.HiddenDim <= 0 || c.EmbeddingDim <= 0:
		return fmt.Errorf("embedding: hidden and embedding dims must be positive")
	case c.MaxEpochs <= 0:
		return fmt.Errorf("embedding: max epochs must be positive")
	case c.BatchSize <= 0 || c.VirtualBatchSize <= 0:
		return fmt.Errorf("embedding: batch sizes must be positive")
	case c.VirtualBatchSize > c.BatchSize:
		return fmt.Errorf("embedding: virtual batch %d larger than batch %d", c.VirtualBatchSize, c.BatchSize)
	case c.MaskRatio <= 0 || c.MaskRatio >= 1:
		return fmt.Errorf("embedding: mask ratio %v outside (0, 1)", c.MaskRatio)
	case c.LearningRate <= 0:
		return fmt.Errorf("embedding: learning rate must be positive")
	}
	return nil
}

// Report summarizes one Fit call.
type Report struct {
	Epochs    int       `json:"epochs"`
	BestEpoch int       `json:"best_epoch"`
	BestLoss  float64   `json:"best_loss"`
	History   []float64 `json:"history"`
	// EarlyStopped is false when training ran for all MaxEpochs.
	EarlyStopped bool `json:"early_stopped"`
}

// Learner fits Models. A Learner holds no state between Fit calls.
type Learner struct {
	cfg Config
	log *zap.Logger
}

// NewLearner creates a Learner. A nil logger discards output.
func NewLearner(cfg Config, log *zap.Logger) *Learner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Learner{cfg: cfg, log: log}
}

// Fit trains on x and evaluates early stopping on x itself.
func (l *Learner) Fit(x mat.Matrix) (*Model, Report, error) {
	return l.FitWithEval(x, x)
}

// FitWithEval trains on x and tracks the masked reconstruction loss on eval.
// The returned model carries the parameters of the best evaluated epoch.
func (l *Learner) FitWithEval(x, eval mat.Matrix) (*Model, Report, error) {
	cfg := l.cfg
	if err := cfg.validate(); err != nil {
		return nil, Report{}, err
	}
	n, d := x.Dims()
	if n == 0 || d == 0 {
		return nil, Report{}, ErrEmptyMatrix
	}
	en, ed := eval.Dims()
	if ed != d {
		return nil, Report{}, fmt.Errorf("embedding: eval has %d columns, train has %d", ed, d)
	}
	if en == 0 {
		return nil, Report{}, fmt.Errorf("embedding: empty eval matrix")
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	m := bind(initParams(d, cfg.HiddenDim, cfg.EmbeddingDim, rng))
	opt := newAdam(cfg.LearningRate, m.trainable())
	evalMask := drawMask(rng, en, d, cfg.MaskRatio)

	rep := Report{BestLoss: math.Inf(1)}
	best := m.p.clone()
	for epoch := 0; epoch < cfg.MaxEpochs; epoch++ {
		order := rng.Perm(n)
		for start := 0; start < n; start += cfg.BatchSize {
			end := start + cfg.BatchSize
			if end > n {
				end = n
			}
			xb := gather(x, order[start:end])
			xn := m.normalizeGhost(xb, cfg.VirtualBatchSize, cfg.Momentum)
			mask := drawMask(rng, end-start, d, cfg.MaskRatio)
			m.step(xn, mask, opt)
		}

		loss := m.maskedLoss(m.normalizeRunning(eval), evalMask)
		rep.History = append(rep.History, loss)
		rep.Epochs = epoch + 1
		l.log.Debug("pretrain epoch", zap.Int("epoch", epoch), zap.Float64("eval_loss", loss))

		if loss < rep.BestLoss {
			rep.BestLoss = loss
			rep.BestEpoch = epoch
			best = m.p.clone()
			continue
		}
		if cfg.Patience > 0 && epoch-rep.BestEpoch >= cfg.Patience {
			rep.EarlyStopped = true
			break
		}
	}

	l.log.Info("pretraining finished",
		zap.Int("epochs", rep.Epochs),
		zap.Int("best_epoch", rep.BestEpoch),
		zap.Float64("best_loss", rep.BestLoss),
		zap.Bool("early_stopped", rep.EarlyStopped),
	)
	return bind(best), rep, nil
}

// initParams draws Glorot-uniform weights and zero biases.
func initParams(d, h, e int, rng *rand.Rand) Params {
	glorot := func(in, out int) []float64 {
		limit := math.Sqrt(6 / float64(in+out))
		w := make([]float64, in*out)
		for i := range w {
			w[i] = (2*rng.Float64() - 1) * limit
		}
		return w
	}
	runVar := make([]float64, d)
	for i := range runVar {
		runVar[i] = 1
	}
	return Params{
		InputDim: d, HiddenDim: h, EmbeddingDim: e,
		W1: glorot(d, h), B1: make([]float64, h),
		W2: glorot(h, e), B2: make([]float64, e),
		W3: glorot(e, d), B3: make([]float64, d),
		RunningMean: make([]float64, d),
		RunningVar:  runVar,
	}
}

func (m *Model) trainable() [][]float64 {
	return [][]float64{m.p.W1, m.p.B1, m.p.W2, m.p.B2, m.p.W3, m.p.B3}
}

// normalizeGhost standardizes each virtual batch of xb with its own statistics
// and folds them into the running statistics.
func (m *Model) normalizeGhost(xb *mat.Dense, vbs int, momentum float64) *mat.Dense {
	n, d := xb.Dims()
	out := mat.NewDense(n, d, nil)
	for start := 0; start < n; start += vbs {
		end := start + vbs
		if end > n {
			end = n
		}
		size := float64(end - start)
		for j := 0; j < d; j++ {
			var mean float64
			for i := start; i < end; i++ {
				mean += xb.At(i, j)
			}
			mean /= size
			var ss float64
			for i := start; i < end; i++ {
				dv := xb.At(i, j) - mean
				ss += dv * dv
			}
			variance := ss / size
			sd := math.Sqrt(variance + normEpsilon)
			for i := start; i < end; i++ {
				out.Set(i, j, (xb.At(i, j)-mean)/sd)
			}

			unbiased := variance
			if end-start > 1 {
				unbiased = ss / (size - 1)
			}
			m.p.RunningMean[j] = (1-momentum)*m.p.RunningMean[j] + momentum*mean
			m.p.RunningVar[j] = (1-momentum)*m.p.RunningVar[j] + momentum*unbiased
		}
	}
	return out
}

// maskedLoss is the mean over rows of the squared reconstruction error on the
// masked cells divided by the number of masked cells in that row.
func (m *Model) maskedLoss(xn *mat.Dense, mask *mat.Dense) float64 {
	in := new(mat.Dense)
	in.MulElem(xn, invert(mask))
	_, _, r := m.forward(in)
	n, d := xn.Dims()
	var total float64
	for i := 0; i < n; i++ {
		var sum, cnt float64
		for j := 0; j < d; j++ {
			if mask.At(i, j) == 0 {
				continue
			}
			dv := r.At(i, j) - xn.At(i, j)
			sum += dv * dv
			cnt++
		}
		total += sum / (cnt + lossEpsilon)
	}
	return total / float64(n)
}

// step runs one forward/backward pass on a normalized batch and applies Adam.
func (m *Model) step(xn, mask *mat.Dense, opt *adam) {
	n, d := xn.Dims()
	in := new(mat.Dense)
	in.MulElem(xn, invert(mask))
	h, z, r := m.forward(in)

	dR := mat.NewDense(n, d, nil)
	for i := 0; i < n; i++ {
		var cnt float64
		for j := 0; j < d; j++ {
			cnt += mask.At(i, j)
		}
		scale := 2 / ((cnt + lossEpsilon) * float64(n))
		for j := 0; j < d; j++ {
			if mask.At(i, j) != 0 {
				dR.Set(i, j, scale*(r.At(i, j)-xn.At(i, j)))
			}
		}
	}

	p := m.p
	gW3 := mat.NewDense(p.EmbeddingDim, p.InputDim, nil)
	gW3.Mul(z.T(), dR)
	gB3 := colSums(dR)
	dZ := new(mat.Dense)
	dZ.Mul(dR, m.w3.T())

	gW2 := mat.NewDense(p.HiddenDim, p.EmbeddingDim, nil)
	gW2.Mul(h.T(), dZ)
	gB2 := colSums(dZ)
	dH := new(mat.Dense)
	dH.Mul(dZ, m.w2.T())
	dH.Apply(func(i, j int, v float64) float64 {
		if h.At(i, j) <= 0 {
			return 0
		}
		return v
	}, dH)

	gW1 := mat.NewDense(p.InputDim, p.HiddenDim, nil)
	gW1.Mul(in.T(), dH)
	gB1 := colSums(dH)

	opt.update([][]float64{
		gW1.RawMatrix().Data, gB1,
		gW2.RawMatrix().Data, gB2,
		gW3.RawMatrix().Data, gB3,
	})
}

func gather(x mat.Matrix, idx []int) *mat.Dense {
	_, d := x.Dims()
	out := mat.NewDense(len(idx), d, nil)
	for i, src := range idx {
		for j := 0; j < d; j++ {
			out.Set(i, j, x.At(src, j))
		}
	}
	return out
}

// drawMask returns a 0/1 matrix with each cell set with probability ratio.
func drawMask(rng *rand.Rand, n, d int, ratio float64) *mat.Dense {
	data := make([]float64, n*d)
	for i := range data {
		if rng.Float64() < ratio {
			data[i] = 1
		}
	}
	return mat.NewDense(n, d, data)
}

func invert(mask *mat.Dense) *mat.Dense {
	out := new(mat.Dense)
	out.Apply(func(_, _ int, v float64) float64 { return 1 - v }, mask)
	return out
}

func colSums(m *mat.Dense) []float64 {
	n, d := m.Dims()
	out := make([]float64, d)
	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			out[j] += m.At(i, j)
		}
	}
	return out
}

type adam struct {
	lr     float64
	t      int
	params [][]float64
	m, v   [][]float64
}

func newAdam(lr float64, params [][]float64) *adam {
	a := &adam{lr: lr, params: params}
	for _, p := range params {
		a.m = append(a.m, make([]float64, len(p)))
		a.v = append(a.v, make([]float64, len(p)))
	}
	return a
}

func (a *adam) update(grads [][]float64) {
	a.t++
	c1 := 1 - math.Pow(adamBeta1, float64(a.t))
	c2 := 1 - math.Pow(adamBeta2, float64(a.t))
	for k, p := range a.params {
		g, m, v := grads[k], a.m[k], a.v[k]
		for i := range p {
			m[i] = adamBeta1*m[i] + (1-adamBeta1)*g[i]
			v[i] = adamBeta2*v[i] + (1-adamBeta2)*g[i]*g[i]
			p[i] -= a.lr * (m[i] / c1) / (math.Sqrt(v[i]/c2) + adamEpsilon)
		}
	}
}
