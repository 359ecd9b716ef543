package runs

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"hotelsegments/internal/modules/segmentation"
	"hotelsegments/internal/types"
)

// Service records pipeline results in the registry.
type Service struct {
	store *Store
	log   *zap.Logger
}

// NewService creates a Service backed by the given Store.
func NewService(store *Store, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, log: log}
}

// Record stores the run that produced res under runID. Runs that skipped
// training have nothing to record.
func (s *Service) Record(ctx context.Context, runID uuid.UUID, bundleURI string, res *segmentation.Result) (Run, error) {
	if res == nil || res.Bundle == nil {
		return Run{}, fmt.Errorf("record run: no trained bundle")
	}
	meta := res.Bundle.Metadata()
	run := Run{
		ID:         runID,
		Seed:       meta.Seed,
		BestK:      meta.BestK,
		Score:      meta.Score,
		Candidates: meta.Candidates,
		RawRows:    res.Report.RawRows,
		CleanRows:  res.Report.CleanRows,
		BundleURI:  bundleURI,
		TrainedAt:  meta.TrainedAt,
	}
	if err := s.store.Save(ctx, run, ProfilesOf(res.Profile)); err != nil {
		return Run{}, err
	}
	s.log.Info("recorded training run", zap.String("run_id", runID.String()), zap.Int("best_k", run.BestK))
	return run, nil
}

// Latest returns the newest run with its profiles.
func (s *Service) Latest(ctx context.Context) (Run, []Profile, error) {
	run, err := s.store.Latest(ctx)
	if err != nil {
		return Run{}, nil, err
	}
	profiles, err := s.store.Profiles(ctx, run.ID)
	if err != nil {
		return Run{}, nil, err
	}
	return run, profiles, nil
}

// ProfilesOf keys a profile table's positional values by field name.
func ProfilesOf(t segmentation.ProfileTable) []Profile {
	out := make([]Profile, 0, len(t.Rows))
	for _, r := range t.Rows {
		p := Profile{Cluster: r.Cluster, Size: r.Size, Means: map[string]types.NullFloat64{}, Modes: map[string]types.NullString{}}
		for i, f := range t.NumericFields {
			p.Means[f] = r.Means[i]
		}
		for i, f := range t.CategoricalFields {
			p.Modes[f] = r.Modes[i]
		}
		out = append(out, p)
	}
	return out
}
