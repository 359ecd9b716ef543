// README: Assigner: inference-only labeling of clean records with a frozen bundle.
package segmentation

import (
	"fmt"

	"hotelsegments/internal/modules/reservation"
)

// PredictFeatures labels each feature row. Any unseen category fails the
// whole call with *encoder.UnknownCategoryError and no labels.
func (b *Bundle) PredictFeatures(feats []Features) ([]int, error) {
	if len(feats) == 0 {
		return []int{}, nil
	}
	for i, f := range feats {
		if len(f.Numeric) != len(b.meta.NumericFields) || len(f.Categorical) != len(b.meta.CategoricalFields) {
			return nil, fmt.Errorf("row %d has %d+%d features, bundle expects %d+%d",
				i, len(f.Numeric), len(f.Categorical), len(b.meta.NumericFields), len(b.meta.CategoricalFields))
		}
	}
	x, err := matrix(b.bank, feats)
	if err != nil {
		return nil, err
	}
	emb, _, err := b.model.Transform(x)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	return b.partition.Predict(emb)
}

// Predict labels records using the bundle's stored field order.
func (b *Bundle) Predict(records []reservation.Record) ([]int, error) {
	feats := make([]Features, len(records))
	for i, r := range records {
		feats[i] = FeaturesOf(r, b.meta.NumericFields, b.meta.CategoricalFields)
	}
	return b.PredictFeatures(feats)
}

// Assign returns records with their cluster labels, each in [0, BestK).
// The bundle is only read.
func Assign(b *Bundle, records []reservation.Record) ([]LabeledRecord, error) {
	labels, err := b.Predict(records)
	if err != nil {
		return nil, err
	}
	out := make([]LabeledRecord, len(records))
	for i, r := range records {
		out[i] = LabeledRecord{Record: r, Cluster: labels[i]}
	}
	return out, nil
}
