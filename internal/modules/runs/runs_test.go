// README: Run registry tests (profile keying, DB round trip of runs and profiles).
package runs

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotelsegments/internal/modules/clustering"
	"hotelsegments/internal/modules/reservation"
	"hotelsegments/internal/modules/segmentation"
	"hotelsegments/internal/types"
)

func TestProfilesOfKeysByField(t *testing.T) {
	table := segmentation.ProfileTable{
		NumericFields:     []string{reservation.ColGuests, reservation.ColFare},
		CategoricalFields: []string{reservation.ColAgency},
		Rows: []segmentation.ProfileRow{{
			Cluster: 2, Size: 9,
			Means: []types.NullFloat64{types.Float(2.5), {}},
			Modes: []types.NullString{types.String("0520")},
		}},
	}
	got := ProfilesOf(table)
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].Cluster)
	assert.Equal(t, 9, got[0].Size)
	assert.Equal(t, types.Float(2.5), got[0].Means[reservation.ColGuests])
	assert.False(t, got[0].Means[reservation.ColFare].Valid)
	assert.Equal(t, types.String("0520"), got[0].Modes[reservation.ColAgency])
}

// TestSaveAndLatest verifies a run and its profiles survive a round trip and
// that Latest picks the newest training time.
func TestSaveAndLatest(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	older := Run{
		ID: uuid.New(), Seed: 42, BestK: 4, Score: 0.41,
		Candidates: []clustering.Candidate{{K: 4, Score: 0.41}, {K: 5, Score: 0.38}},
		RawRows:    1000, CleanRows: 990, BundleURI: "file://a.bundle",
		TrainedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	newer := older
	newer.ID = uuid.New()
	newer.BestK = 5
	newer.TrainedAt = older.TrainedAt.Add(time.Hour)

	profiles := []Profile{{
		Cluster: 0, Size: 10,
		Means: map[string]types.NullFloat64{reservation.ColGuests: types.Float(2.25), reservation.ColFare: {}},
		Modes: map[string]types.NullString{reservation.ColAgency: types.String("0031")},
	}}
	if err := store.Save(ctx, older, nil); err != nil {
		t.Fatalf("save older: %v", err)
	}
	if err := store.Save(ctx, newer, profiles); err != nil {
		t.Fatalf("save newer: %v", err)
	}

	svc := NewService(store, nil)
	run, got, err := svc.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, newer.ID, run.ID)
	assert.Equal(t, newer.Candidates, run.Candidates)
	assert.True(t, newer.TrainedAt.Equal(run.TrainedAt))
	assert.Equal(t, profiles, got)

	_, err = store.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLatestEmpty(t *testing.T) {
	store, _ := setupTestStore(t)
	_, err := store.Latest(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecordPipelineResult(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	records := make([]reservation.Record, 50)
	for i := range records {
		records[i] = reservation.Record{
			Guests: types.Int(int64(1 + i%5)), Adults: types.Int(1), Minors: types.Int(int64(i % 2)),
			Nights: types.Int(int64(1 + i%6)), Rooms: types.Int(1), Fare: types.Float(float64(100 + 13*i)),
			RoomTypeID: types.String(fmt.Sprint(i % 3)), ChannelID: types.String("1"),
			OriginID: types.String("157"), SegmentID: types.String(fmt.Sprint(i % 2)), AgencyID: types.String(fmt.Sprint(i % 4)),
		}
	}
	cfg := segmentation.DefaultConfig()
	cfg.Learner.MaxEpochs = 3
	res, err := segmentation.NewRunner(nil, nil).Run(ctx, reservation.ToRawTable(records), cfg)
	require.NoError(t, err)

	id := uuid.New()
	run, err := NewService(store, nil).Record(ctx, id, "file://x.bundle", res)
	require.NoError(t, err)
	assert.Equal(t, res.Bundle.BestK(), run.BestK)

	stored, err := store.Profiles(ctx, id)
	require.NoError(t, err)
	assert.Len(t, stored, len(res.Profile.Rows))

	_, err = NewService(store, nil).Record(ctx, uuid.New(), "file://x.bundle", &segmentation.Result{})
	assert.Error(t, err)
}

// setupTestStore creates a real postgres-backed Store for integration tests.
// It skips the test when SEGMENTS_TEST_DSN is not set.
func setupTestStore(t *testing.T) (*Store, *pgxpool.Pool) {
	t.Helper()

	dsn := os.Getenv("SEGMENTS_TEST_DSN")
	if dsn == "" {
		t.Skip("SEGMENTS_TEST_DSN not set; skipping DB-backed tests")
	}

	ctx := context.Background()
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := applyMigrations(ctx, db); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	if _, err := db.Exec(ctx, "TRUNCATE TABLE segment_runs CASCADE"); err != nil {
		t.Fatalf("truncate segment_runs: %v", err)
	}
	return NewStore(db), db
}

func applyMigrations(ctx context.Context, db *pgxpool.Pool) error {
	root, err := repoRoot()
	if err != nil {
		return err
	}
	migrations := []string{
		"0001_segments.sql",
	}
	for _, name := range migrations {
		path := filepath.Join(root, "migrations", name)
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		cleaned := stripSQLComments(string(content))
		for _, stmt := range splitSQL(cleaned) {
			if _, err := db.Exec(ctx, stmt); err != nil {
				return err
			}
		}
	}
	return nil
}

func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for i := 0; i < 6; i++ {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", os.ErrNotExist
}

func stripSQLComments(input string) string {
	var b strings.Builder
	scanner := bufio.NewScanner(strings.NewReader(input))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		b.WriteString(scanner.Text())
		b.WriteString("\n")
	}
	return b.String()
}

func splitSQL(input string) []string {
	parts := strings.Split(input, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		stmt := strings.TrimSpace(p)
		if stmt == "" {
			continue
		}
		out = append(out, stmt)
	}
	return out
}
