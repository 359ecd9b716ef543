// README: Postgres persistence for training runs and their cluster profiles.
package runs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store handles segment_runs and segment_profiles persistence.
type Store struct {
	db *pgxpool.Pool
}

// NewStore returns a Store backed by the given connection pool.
func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Save inserts the run and its profiles in one transaction.
func (s *Store) Save(ctx context.Context, run Run, profiles []Profile) error {
	candidates, err := json.Marshal(run.Candidates)
	if err != nil {
		return err
	}
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO segment_runs (id, seed, best_k, score, candidates, raw_rows, clean_rows, bundle_uri, trained_at)
			VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7, $8, $9)
		`, run.ID, run.Seed, run.BestK, run.Score, string(candidates), run.RawRows, run.CleanRows, run.BundleURI, run.TrainedAt); err != nil {
			return fmt.Errorf("insert run: %w", err)
		}
		for _, p := range profiles {
			means, err := json.Marshal(p.Means)
			if err != nil {
				return err
			}
			modes, err := json.Marshal(p.Modes)
			if err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, `
				INSERT INTO segment_profiles (run_id, cluster, size, means, modes)
				VALUES ($1, $2, $3, $4::jsonb, $5::jsonb)
			`, run.ID, p.Cluster, p.Size, string(means), string(modes)); err != nil {
				return fmt.Errorf("insert profile %d: %w", p.Cluster, err)
			}
		}
		return nil
	})
}

// Latest returns the most recently trained run.
func (s *Store) Latest(ctx context.Context) (Run, error) {
	return s.scanRun(s.db.QueryRow(ctx, `
		SELECT id, seed, best_k, score, candidates, raw_rows, clean_rows, bundle_uri, trained_at
		FROM segment_runs ORDER BY trained_at DESC, created_at DESC LIMIT 1
	`))
}

// Get returns the run with the given id.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (Run, error) {
	return s.scanRun(s.db.QueryRow(ctx, `
		SELECT id, seed, best_k, score, candidates, raw_rows, clean_rows, bundle_uri, trained_at
		FROM segment_runs WHERE id = $1
	`, id))
}

func (s *Store) scanRun(row pgx.Row) (Run, error) {
	var (
		r          Run
		candidates []byte
	)
	err := row.Scan(&r.ID, &r.Seed, &r.BestK, &r.Score, &candidates, &r.RawRows, &r.CleanRows, &r.BundleURI, &r.TrainedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Run{}, ErrNotFound
	}
	if err != nil {
		return Run{}, err
	}
	if err := json.Unmarshal(candidates, &r.Candidates); err != nil {
		return Run{}, fmt.Errorf("decode candidates: %w", err)
	}
	return r, nil
}

// Profiles returns the stored profiles of a run by ascending cluster.
func (s *Store) Profiles(ctx context.Context, runID uuid.UUID) ([]Profile, error) {
	rows, err := s.db.Query(ctx, `
		SELECT cluster, size, means, modes FROM segment_profiles
		WHERE run_id = $1 ORDER BY cluster
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Profile{}
	for rows.Next() {
		var (
			p            Profile
			means, modes []byte
		)
		if err := rows.Scan(&p.Cluster, &p.Size, &means, &modes); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(means, &p.Means); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(modes, &p.Modes); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
