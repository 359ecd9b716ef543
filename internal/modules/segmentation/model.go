// README: Segmentation types: feature rows, labeled records, profiles and errors.
package segmentation

import (
	"errors"
	"fmt"

	"hotelsegments/internal/modules/reservation"
	"hotelsegments/internal/types"
)

// MissingNumeric replaces a missing numeric value before encoding.
const MissingNumeric = -1.0

// ErrEmptyTable is returned when training is requested on zero rows.
var ErrEmptyTable = errors.New("segmentation: empty training table")

// BundleIncompatibleError is returned when a stored bundle cannot be used by
// this build, either because of its format version or its internal shapes.
type BundleIncompatibleError struct {
	Reason string
}

func (e *BundleIncompatibleError) Error() string {
	return "incompatible bundle: " + e.Reason
}

func incompatible(format string, args ...any) error {
	return &BundleIncompatibleError{Reason: fmt.Sprintf(format, args...)}
}

// Features is one row of model inputs, positional in the bundle's numeric
// and categorical field order.
type Features struct {
	Numeric     []types.NullFloat64
	Categorical []types.NullString
}

// FeaturesOf extracts the named fields of r.
func FeaturesOf(r reservation.Record, numeric, categorical []string) Features {
	f := Features{
		Numeric:     make([]types.NullFloat64, len(numeric)),
		Categorical: make([]types.NullString, len(categorical)),
	}
	for i, name := range numeric {
		if v, ok := r.Numeric(name); ok {
			f.Numeric[i] = types.Float(v)
		}
	}
	for i, name := range categorical {
		f.Categorical[i] = r.Category(name)
	}
	return f
}

// LabeledRecord is a clean record with its assigned cluster.
type LabeledRecord struct {
	reservation.Record
	Cluster int `csv:"cluster"`
}

// ProfileRow summarizes one cluster. Means and Modes follow the owning
// ProfileTable's field order.
type ProfileRow struct {
	Cluster int                 `json:"cluster"`
	Size    int                 `json:"size"`
	Means   []types.NullFloat64 `json:"means"`
	Modes   []types.NullString  `json:"modes"`
}

// ProfileTable holds one row per cluster present, by ascending label.
type ProfileTable struct {
	NumericFields     []string     `json:"numeric_fields"`
	CategoricalFields []string     `json:"categorical_fields"`
	Rows              []ProfileRow `json:"rows"`
}
