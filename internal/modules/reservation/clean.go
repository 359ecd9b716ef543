// README: Cleaner: ordered hard filters that turn raw reservations into an analysis-ready table.
package reservation

import (
	"math"
	"sort"

	"go.uber.org/zap"
)

// Percentile band kept by the outlier steps, inclusive on both ends.
const (
	LowerQuantile = 0.0005
	UpperQuantile = 0.9995
)

// FilterStep is one hard filter. Each step sees only the rows the previous
// step kept, so reordering the steps changes the result.
type FilterStep struct {
	Name  string
	Apply func([]Record) []Record
}

// DefaultSteps returns the cleaning filters in the order they must run.
func DefaultSteps() []FilterStep {
	return []FilterStep{
		{Name: "non_negative_fare", Apply: keep(func(r Record) bool { return r.Fare.Valid && r.Fare.Float64 >= 0 })},
		{Name: "positive_guests", Apply: keep(func(r Record) bool { return r.Guests.Valid && r.Guests.Int64 > 0 })},
		{Name: "positive_nights", Apply: keep(func(r Record) bool { return r.Nights.Valid && r.Nights.Int64 > 0 })},
		{Name: "positive_rooms", Apply: keep(func(r Record) bool { return r.Rooms.Valid && r.Rooms.Int64 > 0 })},
		{Name: "guests_percentile_band", Apply: percentileBand(ColGuests)},
		{Name: "nights_percentile_band", Apply: percentileBand(ColNights)},
		{Name: "fare_percentile_band", Apply: percentileBand(ColFare)},
	}
}

// Cleaner projects, coerces and filters raw reservation tables.
type Cleaner struct {
	steps []FilterStep
	log   *zap.Logger
}

// NewCleaner creates a Cleaner running DefaultSteps. A nil logger discards output.
func NewCleaner(log *zap.Logger) *Cleaner {
	return NewCleanerWithSteps(log, DefaultSteps())
}

// NewCleanerWithSteps creates a Cleaner running steps in the given order.
func NewCleanerWithSteps(log *zap.Logger, steps []FilterStep) *Cleaner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Cleaner{steps: steps, log: log}
}

// Clean parses raw and applies every filter step. The returned slice is a new
// sequence indexed from 0. A missing column fails the whole batch with
// *SchemaError; bad cells only become missing values.
func (c *Cleaner) Clean(raw RawTable) ([]Record, error) {
	records, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	return c.Filter(records), nil
}

// Filter applies the filter steps to already-typed records.
func (c *Cleaner) Filter(records []Record) []Record {
	rows := append([]Record(nil), records...)
	for _, step := range c.steps {
		before := len(rows)
		rows = step.Apply(rows)
		c.log.Debug("cleaning step",
			zap.String("step", step.Name),
			zap.Int("rows_in", before),
			zap.Int("rows_out", len(rows)),
		)
	}
	c.log.Info("cleaned reservations", zap.Int("raw_rows", len(records)), zap.Int("clean_rows", len(rows)))
	return rows
}

func keep(pred func(Record) bool) func([]Record) []Record {
	return func(rows []Record) []Record {
		out := make([]Record, 0, len(rows))
		for _, r := range rows {
			if pred(r) {
				out = append(out, r)
			}
		}
		return out
	}
}

// percentileBand drops rows whose field lies outside the band computed over
// the rows it is given. Missing values are compared as NaN and therefore dropped.
func percentileBand(field string) func([]Record) []Record {
	return func(rows []Record) []Record {
		vals := make([]float64, 0, len(rows))
		for _, r := range rows {
			if v, ok := r.Numeric(field); ok {
				vals = append(vals, v)
			}
		}
		if len(vals) == 0 {
			return rows[:0:0]
		}
		sort.Float64s(vals)
		lo := Quantile(vals, LowerQuantile)
		hi := Quantile(vals, UpperQuantile)
		return keep(func(r Record) bool {
			v, ok := r.Numeric(field)
			return ok && v >= lo && v <= hi
		})(rows)
	}
}

// Quantile returns the p-quantile of sorted using linear interpolation between
// the closest ranks, position (n-1)*p.
func Quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	pos := float64(n-1) * p
	i := int(math.Floor(pos))
	if i >= n-1 {
		return sorted[n-1]
	}
	frac := pos - float64(i)
	lo, hi := sorted[i], sorted[i+1]
	if frac >= 0.5 {
		return hi - (hi-lo)*(1-frac)
	}
	return lo + (hi-lo)*frac
}
