// README: Trained model bundle and its versioned, snappy-compressed wire form.
package segmentation

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/golang/snappy"

	"hotelsegments/internal/modules/clustering"
	"hotelsegments/internal/modules/embedding"
	"hotelsegments/internal/modules/encoder"
)

// BundleVersion is the wire format version written by Marshal.
const BundleVersion = 1

var bundleMagic = []byte("HSEG")

// Metadata describes a bundle without its learned parameters.
type Metadata struct {
	Version           int                    `json:"version"`
	NumericFields     []string               `json:"numeric_fields"`
	CategoricalFields []string               `json:"categorical_fields"`
	BestK             int                    `json:"best_k"`
	Score             float64                `json:"score"`
	Candidates        []clustering.Candidate `json:"candidates"`
	EmbeddingDim      int                    `json:"embedding_dim"`
	Seed              int64                  `json:"seed"`
	Rows              int                    `json:"rows"`
	TrainedAt         time.Time              `json:"trained_at"`
}

// Bundle is the read-only artifact of one training run. It is safe for
// concurrent use.
type Bundle struct {
	meta      Metadata
	bank      *encoder.Bank
	model     *embedding.Model
	partition *clustering.Partition
}

type bundleFile struct {
	Metadata
	Encoders  *encoder.Bank    `json:"encoders"`
	Learner   embedding.Params `json:"learner"`
	Centroids [][]float64      `json:"centroids"`
}

// Metadata returns a copy of the bundle's descriptive fields.
func (b *Bundle) Metadata() Metadata {
	m := b.meta
	m.NumericFields = append([]string(nil), m.NumericFields...)
	m.CategoricalFields = append([]string(nil), m.CategoricalFields...)
	m.Candidates = append([]clustering.Candidate(nil), m.Candidates...)
	return m
}

func (b *Bundle) BestK() int { return b.meta.BestK }

func (b *Bundle) Score() float64 { return b.meta.Score }

// Encoders returns a copy of the bundle's encoder bank.
func (b *Bundle) Encoders() *encoder.Bank { return b.bank.Clone() }

// Marshal encodes the bundle. Unmarshal(Marshal(b)) predicts exactly like b.
func (b *Bundle) Marshal() ([]byte, error) {
	f := bundleFile{
		Metadata:  b.meta,
		Encoders:  b.bank,
		Learner:   b.model.Params(),
		Centroids: b.partition.Centroids,
	}
	raw, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}
	return append(append([]byte(nil), bundleMagic...), snappy.Encode(nil, raw)...), nil
}

// Unmarshal decodes and validates a bundle. Every failure is a
// *BundleIncompatibleError, raised before any prediction can be attempted.
func Unmarshal(data []byte) (*Bundle, error) {
	if !bytes.HasPrefix(data, bundleMagic) {
		return nil, incompatible("not a segmentation bundle")
	}
	raw, err := snappy.Decode(nil, data[len(bundleMagic):])
	if err != nil {
		return nil, incompatible("decompress: %v", err)
	}
	var f bundleFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, incompatible("decode: %v", err)
	}
	if f.Version != BundleVersion {
		return nil, incompatible("format version %d, this build reads %d", f.Version, BundleVersion)
	}
	return assemble(f)
}

func assemble(f bundleFile) (*Bundle, error) {
	m := f.Metadata
	if len(m.NumericFields)+len(m.CategoricalFields) == 0 {
		return nil, incompatible("no feature fields")
	}
	if f.Encoders == nil {
		return nil, incompatible("missing encoders")
	}
	if err := f.Encoders.Rebuild(); err != nil {
		return nil, incompatible("encoders: %v", err)
	}
	got := f.Encoders.Fields()
	if len(got) != len(m.CategoricalFields) {
		return nil, incompatible("%d encoders for %d categorical fields", len(got), len(m.CategoricalFields))
	}
	for i := range got {
		if got[i] != m.CategoricalFields[i] {
			return nil, incompatible("encoder %d is for %s, want %s", i, got[i], m.CategoricalFields[i])
		}
	}

	model, err := embedding.NewModel(f.Learner)
	if err != nil {
		return nil, incompatible("learner: %v", err)
	}
	if want := len(m.NumericFields) + len(m.CategoricalFields); model.InputDim() != want {
		return nil, incompatible("learner takes %d inputs, fields give %d", model.InputDim(), want)
	}
	if m.EmbeddingDim != model.EmbeddingDim() {
		return nil, incompatible("embedding dim %d, learner produces %d", m.EmbeddingDim, model.EmbeddingDim())
	}

	partition, err := clustering.NewPartition(f.Centroids)
	if err != nil {
		return nil, incompatible("partition: %v", err)
	}
	if partition.K != m.BestK {
		return nil, incompatible("%d centroids for best k %d", partition.K, m.BestK)
	}
	if partition.Dim() != model.EmbeddingDim() {
		return nil, incompatible("centroids have %d dims, embeddings have %d", partition.Dim(), model.EmbeddingDim())
	}
	return &Bundle{meta: m, bank: f.Encoders, model: model, partition: partition}, nil
}
