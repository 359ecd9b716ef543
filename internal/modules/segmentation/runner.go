// README: Pipeline runner: clean, train, assign and profile as named nodes.
package segmentation

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"hotelsegments/internal/modules/reservation"
)

// NodeTiming records how long one node took.
type NodeTiming struct {
	Name     string        `json:"name"`
	Duration time.Duration `json:"duration"`
}

// Report describes one pipeline run.
type Report struct {
	RawRows   int          `json:"raw_rows"`
	CleanRows int          `json:"clean_rows"`
	Skipped   bool         `json:"skipped"`
	Train     TrainReport  `json:"train"`
	Nodes     []NodeTiming `json:"nodes"`
}

// Result carries every artifact of a run. Bundle is nil when the clean table
// was empty and training was skipped.
type Result struct {
	Bundle  *Bundle
	Clean   []reservation.Record
	Labeled []LabeledRecord
	Profile ProfileTable
	Report  Report
}

type node struct {
	name string
	run  func(ctx context.Context, res *Result) error
}

// Runner executes the batch pipeline. Each node consumes the complete output
// of the previous one.
type Runner struct {
	cleaner *reservation.Cleaner
	log     *zap.Logger
}

// NewRunner creates a Runner. A nil cleaner runs the default filter steps.
func NewRunner(cleaner *reservation.Cleaner, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	if cleaner == nil {
		cleaner = reservation.NewCleaner(log)
	}
	return &Runner{cleaner: cleaner, log: log}
}

// Run cleans raw, trains a bundle, labels the clean rows and profiles them.
// An empty clean table is not an error: training is skipped and the labeled
// table and profile come back empty.
func (r *Runner) Run(ctx context.Context, raw reservation.RawTable, cfg Config) (*Result, error) {
	res := &Result{Report: Report{RawRows: len(raw.Rows)}}
	nodes := []node{
		{"clean", func(_ context.Context, res *Result) error {
			clean, err := r.cleaner.Clean(raw)
			if err != nil {
				return err
			}
			res.Clean = clean
			res.Report.CleanRows = len(clean)
			res.Report.Skipped = len(clean) == 0
			return nil
		}},
		{"train", func(_ context.Context, res *Result) error {
			if res.Report.Skipped {
				return nil
			}
			b, rep, err := Train(res.Clean, cfg, r.log)
			if err != nil {
				return err
			}
			res.Bundle, res.Report.Train = b, rep
			return nil
		}},
		{"assign", func(_ context.Context, res *Result) error {
			if res.Report.Skipped {
				res.Labeled = []LabeledRecord{}
				return nil
			}
			labeled, err := Assign(res.Bundle, res.Clean)
			if err != nil {
				return err
			}
			res.Labeled = labeled
			return nil
		}},
		{"profile", func(_ context.Context, res *Result) error {
			res.Profile = Profile(res.Labeled, cfg.NumericFields, cfg.CategoricalFields)
			return nil
		}},
	}

	for _, n := range nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		started := time.Now()
		r.log.Info("running node", zap.String("node", n.name))
		if err := n.run(ctx, res); err != nil {
			r.log.Error("node failed", zap.String("node", n.name), zap.Error(err))
			return nil, fmt.Errorf("%s: %w", n.name, err)
		}
		res.Report.Nodes = append(res.Report.Nodes, NodeTiming{Name: n.name, Duration: time.Since(started)})
	}
	if res.Report.Skipped {
		r.log.Warn("clean table is empty; training skipped", zap.Int("raw_rows", res.Report.RawRows))
	}
	return res, nil
}
