// README: Training: encode, pretrain the embedding, select k, freeze the bundle.
package segmentation

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"hotelsegments/internal/modules/clustering"
	"hotelsegments/internal/modules/embedding"
	"hotelsegments/internal/modules/encoder"
	"hotelsegments/internal/modules/reservation"
)

// Config controls one training run. The learner is seeded with Seed and the
// cluster selector with Seed+1.
type Config struct {
	Seed              int64
	Candidates        []int
	NumericFields     []string
	CategoricalFields []string
	Learner           embedding.Config
	Restarts          int
	MaxIter           int
	Tol               float64
	SilhouetteSample  int
	// Eval, when non-empty, replaces the training rows for early stopping.
	Eval []reservation.Record
}

// DefaultConfig returns the settings of the production pipeline.
func DefaultConfig() Config {
	return Config{
		Seed:              42,
		Candidates:        []int{4, 5},
		NumericFields:     append([]string(nil), reservation.NumericFields...),
		CategoricalFields: append([]string(nil), reservation.CategoricalFields...),
		Learner:           embedding.DefaultConfig(),
		Restarts:          1,
		MaxIter:           300,
		Tol:               1e-4,
	}
}

// TrainReport describes how a bundle was produced.
type TrainReport struct {
	Learner    embedding.Report       `json:"learner"`
	Candidates []clustering.Candidate `json:"candidates"`
	Duration   time.Duration          `json:"duration"`
}

// Train fits the encoder bank, the representation learner and the partition
// on records, strictly in that order.
func Train(records []reservation.Record, cfg Config, log *zap.Logger) (*Bundle, TrainReport, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if len(records) == 0 {
		return nil, TrainReport{}, ErrEmptyTable
	}
	if len(cfg.NumericFields)+len(cfg.CategoricalFields) == 0 {
		return nil, TrainReport{}, fmt.Errorf("train: no feature fields")
	}
	started := time.Now()

	feats := make([]Features, len(records))
	for i, r := range records {
		feats[i] = FeaturesOf(r, cfg.NumericFields, cfg.CategoricalFields)
	}
	bank, err := encoder.Fit(cfg.CategoricalFields, categoryRows(feats))
	if err != nil {
		return nil, TrainReport{}, fmt.Errorf("fit encoders: %w", err)
	}
	x, err := matrix(bank, feats)
	if err != nil {
		return nil, TrainReport{}, err
	}
	log.Info("encoded training matrix", zap.Int("rows", len(records)), zap.Int("cols", len(cfg.NumericFields)+len(cfg.CategoricalFields)))

	lcfg := cfg.Learner
	lcfg.Seed = cfg.Seed
	learner := embedding.NewLearner(lcfg, log)
	var (
		model *embedding.Model
		lrep  embedding.Report
	)
	if len(cfg.Eval) > 0 {
		evalFeats := make([]Features, len(cfg.Eval))
		for i, r := range cfg.Eval {
			evalFeats[i] = FeaturesOf(r, cfg.NumericFields, cfg.CategoricalFields)
		}
		eval, err := matrix(bank, evalFeats)
		if err != nil {
			return nil, TrainReport{}, fmt.Errorf("encode eval rows: %w", err)
		}
		model, lrep, err = learner.FitWithEval(x, eval)
		if err != nil {
			return nil, TrainReport{}, fmt.Errorf("pretrain: %w", err)
		}
	} else {
		model, lrep, err = learner.Fit(x)
		if err != nil {
			return nil, TrainReport{}, fmt.Errorf("pretrain: %w", err)
		}
	}

	emb, _, err := model.Transform(x)
	if err != nil {
		return nil, TrainReport{}, fmt.Errorf("embed: %w", err)
	}
	sel, err := clustering.Selector{
		Restarts:   cfg.Restarts,
		MaxIter:    cfg.MaxIter,
		Tol:        cfg.Tol,
		SampleSize: cfg.SilhouetteSample,
		Seed:       cfg.Seed + 1,
		Log:        log,
	}.Select(emb, cfg.Candidates)
	if err != nil {
		return nil, TrainReport{}, fmt.Errorf("select k: %w", err)
	}
	log.Info("selected partition", zap.Int("best_k", sel.K), zap.Float64("silhouette", sel.Score))

	b := &Bundle{
		meta: Metadata{
			Version:           BundleVersion,
			NumericFields:     append([]string(nil), cfg.NumericFields...),
			CategoricalFields: append([]string(nil), cfg.CategoricalFields...),
			BestK:             sel.K,
			Score:             sel.Score,
			Candidates:        sel.Candidates,
			EmbeddingDim:      model.EmbeddingDim(),
			Seed:              cfg.Seed,
			Rows:              len(records),
			TrainedAt:         time.Now().UTC(),
		},
		bank:      bank,
		model:     model,
		partition: sel.Partition,
	}
	return b, TrainReport{Learner: lrep, Candidates: sel.Candidates, Duration: time.Since(started)}, nil
}

func categoryRows(feats []Features) [][]string {
	rows := make([][]string, len(feats))
	for i, f := range feats {
		row := make([]string, len(f.Categorical))
		for j, c := range f.Categorical {
			if c.Valid {
				row[j] = c.String
			} else {
				row[j] = encoder.Missing
			}
		}
		rows[i] = row
	}
	return rows
}

// matrix lays out numeric values (missing as MissingNumeric) followed by
// category codes.
func matrix(bank *encoder.Bank, feats []Features) (*mat.Dense, error) {
	codes, err := bank.Encode(categoryRows(feats))
	if err != nil {
		return nil, err
	}
	if len(feats) == 0 {
		return &mat.Dense{}, nil
	}
	nNum := len(feats[0].Numeric)
	x := mat.NewDense(len(feats), nNum+len(bank.Encoders), nil)
	for i, f := range feats {
		if len(f.Numeric) != nNum {
			return nil, fmt.Errorf("row %d has %d numeric values, want %d", i, len(f.Numeric), nNum)
		}
		for j, v := range f.Numeric {
			if v.Valid {
				x.Set(i, j, v.Float64)
			} else {
				x.Set(i, j, MissingNumeric)
			}
		}
		for j, c := range codes[i] {
			x.Set(i, nNum+j, float64(c))
		}
	}
	return x, nil
}
