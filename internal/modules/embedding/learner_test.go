// README: Representation learner tests (determinism, shapes, early stopping).
package embedding

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// blobs returns n rows drawn around two well separated centers.
func blobs(n, d int, seed int64) *mat.Dense {
	rng := rand.New(rand.NewSource(seed))
	x := mat.NewDense(n, d, nil)
	for i := 0; i < n; i++ {
		center := 0.0
		if i%2 == 1 {
			center = 10
		}
		for j := 0; j < d; j++ {
			x.Set(i, j, center+rng.NormFloat64())
		}
	}
	return x
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.MaxEpochs = 15
	cfg.BatchSize = 64
	cfg.VirtualBatchSize = 32
	cfg.LearningRate = 1e-2
	return cfg
}

func TestFitIsDeterministic(t *testing.T) {
	x := blobs(150, 6, 1)

	a, repA, err := NewLearner(testConfig(), zap.NewNop()).Fit(x)
	require.NoError(t, err)
	b, repB, err := NewLearner(testConfig(), nil).Fit(x)
	require.NoError(t, err)

	assert.Equal(t, a.Params(), b.Params())
	assert.Equal(t, repA, repB)

	za, _, err := a.Transform(x)
	require.NoError(t, err)
	zb, _, err := b.Transform(x)
	require.NoError(t, err)
	assert.True(t, mat.Equal(za, zb))
}

func TestFitDifferentSeedsDiffer(t *testing.T) {
	x := blobs(100, 4, 2)
	cfg := testConfig()
	a, _, err := NewLearner(cfg, nil).Fit(x)
	require.NoError(t, err)
	cfg.Seed++
	b, _, err := NewLearner(cfg, nil).Fit(x)
	require.NoError(t, err)
	assert.NotEqual(t, a.Params().W1, b.Params().W1)
}

func TestTransformShapes(t *testing.T) {
	x := blobs(90, 11, 3)
	m, _, err := NewLearner(testConfig(), nil).Fit(x)
	require.NoError(t, err)

	z, r, err := m.Transform(x)
	require.NoError(t, err)
	rows, cols := z.Dims()
	assert.Equal(t, 90, rows)
	assert.Equal(t, DefaultConfig().EmbeddingDim, cols)
	rows, cols = r.Dims()
	assert.Equal(t, 90, rows)
	assert.Equal(t, 11, cols)
	for i := 0; i < 90; i++ {
		for j := 0; j < DefaultConfig().EmbeddingDim; j++ {
			assert.False(t, math.IsNaN(z.At(i, j)))
		}
	}

	_, _, err = m.Transform(mat.NewDense(2, 3, nil))
	require.Error(t, err)
}

func TestFitImprovesOnInitialLoss(t *testing.T) {
	x := blobs(200, 5, 4)
	_, rep, err := NewLearner(testConfig(), nil).Fit(x)
	require.NoError(t, err)
	require.NotEmpty(t, rep.History)
	assert.LessOrEqual(t, rep.BestLoss, rep.History[0])
	assert.Equal(t, rep.History[rep.BestEpoch], rep.BestLoss)
	assert.LessOrEqual(t, rep.Epochs, testConfig().MaxEpochs)
}

func TestEarlyStoppingHonorsPatience(t *testing.T) {
	// constant input leaves nothing to learn after the first epochs
	x := mat.NewDense(64, 3, nil)
	cfg := testConfig()
	cfg.MaxEpochs = 100
	cfg.Patience = 3
	_, rep, err := NewLearner(cfg, nil).Fit(x)
	require.NoError(t, err)
	require.True(t, rep.EarlyStopped)
	assert.Equal(t, 0, rep.BestEpoch)
	assert.Equal(t, rep.BestEpoch+cfg.Patience+1, rep.Epochs)
}

func TestFitWithSeparateEval(t *testing.T) {
	train := blobs(120, 4, 5)
	eval := blobs(40, 4, 6)
	m, rep, err := NewLearner(testConfig(), nil).FitWithEval(train, eval)
	require.NoError(t, err)
	assert.Equal(t, 4, m.InputDim())
	assert.NotEmpty(t, rep.History)

	_, _, err = NewLearner(testConfig(), nil).FitWithEval(train, blobs(10, 3, 7))
	require.Error(t, err)
}

func TestFitRejectsEmptyAndInvalidConfig(t *testing.T) {
	_, _, err := NewLearner(testConfig(), nil).Fit(&mat.Dense{})
	assert.True(t, errors.Is(err, ErrEmptyMatrix))

	cfg := testConfig()
	cfg.VirtualBatchSize = cfg.BatchSize + 1
	_, _, err = NewLearner(cfg, nil).Fit(blobs(10, 2, 8))
	require.Error(t, err)

	cfg = testConfig()
	cfg.MaskRatio = 1
	_, _, err = NewLearner(cfg, nil).Fit(blobs(10, 2, 8))
	require.Error(t, err)
}

func TestNewModelValidatesShapes(t *testing.T) {
	m, _, err := NewLearner(testConfig(), nil).Fit(blobs(40, 3, 9))
	require.NoError(t, err)

	p := m.Params()
	restored, err := NewModel(p)
	require.NoError(t, err)
	x := blobs(10, 3, 10)
	want, _, err := m.Transform(x)
	require.NoError(t, err)
	got, _, err := restored.Transform(x)
	require.NoError(t, err)
	assert.True(t, mat.Equal(want, got))

	p.B2 = p.B2[:1]
	_, err = NewModel(p)
	require.Error(t, err)
}
