// README: Batch pipeline: raw reservations -> bundle, labeled table, segment profile, optional run record.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alexflint/go-arg"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"hotelsegments/internal/config"
	"hotelsegments/internal/infra"
	"hotelsegments/internal/modules/bundlestore"
	"hotelsegments/internal/modules/reservation"
	"hotelsegments/internal/modules/runs"
	"hotelsegments/internal/modules/segmentation"
)

const (
	labeledFile = "reservations_clustered.csv"
	profileFile = "segment_profile.csv"
)

type args struct {
	Input            string  `arg:"-i" help:"raw reservations CSV"`
	Table            string  `help:"read raw reservations from this Postgres table instead of --input"`
	Eval             string  `help:"optional CSV of held-out reservations used for early stopping"`
	OutDir           string  `help:"directory for the labeled table and the profile"`
	Bundle           string  `help:"bundle URI (path, file://, redis://key or s3://bucket/key)"`
	Record           bool    `help:"record the run in Postgres"`
	Seed             int64   `help:"random seed for every stochastic stage"`
	KMin             int     `help:"smallest candidate k"`
	KMax             int     `help:"largest candidate k"`
	MaxEpochs        int     `help:"representation learner epoch cap"`
	Patience         int     `help:"epochs without improvement before stopping"`
	BatchSize        int     `help:"learner batch size"`
	VirtualBatchSize int     `help:"ghost batch normalization chunk size"`
	LearningRate     float64 `help:"Adam learning rate"`
	MaskRatio        float64 `help:"fraction of inputs masked per step"`
	Restarts         int     `help:"k-means restarts per candidate"`
	MaxIter          int     `help:"k-means iteration cap"`
	Tol              float64 `help:"k-means convergence tolerance, scaled by the mean variance"`
	SilhouetteSample int     `help:"rows sampled for the silhouette, 0 for all"`
}

func (args) Description() string {
	return "segments-pipeline cleans raw reservations, trains the segmentation bundle and writes the labeled table and segment profile."
}

func fail(log *zap.Logger, msg string, err error) {
	if err != nil {
		log.Fatal(msg, zap.Error(err))
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	p := cfg.Pipeline
	a := args{
		Input:            "data/01_raw/iar_Reservaciones.csv",
		OutDir:           "data/07_model_output",
		Bundle:           cfg.Bundle.URI,
		Seed:             p.Seed,
		KMin:             p.KMin,
		KMax:             p.KMax,
		MaxEpochs:        p.MaxEpochs,
		Patience:         p.Patience,
		BatchSize:        p.BatchSize,
		VirtualBatchSize: p.VirtualBatchSize,
		LearningRate:     p.LearningRate,
		MaskRatio:        p.MaskRatio,
		Restarts:         p.Restarts,
		MaxIter:          p.MaxIter,
		Tol:              p.Tol,
		SilhouetteSample: p.SilhouetteSample,
	}
	parser := arg.MustParse(&a)
	if a.KMin < 2 || a.KMax < a.KMin {
		parser.Fail(fmt.Sprintf("invalid k range [%d, %d]", a.KMin, a.KMax))
	}

	log := infra.NewLogger(cfg.Log.Env)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	start := time.Now()

	var registry *runs.Service
	var source *reservation.Store
	if a.Table != "" || a.Record {
		if cfg.DB.DSN == "" {
			log.Fatal("SEGMENTS_DB_DSN is required for --table and --record")
		}
		pool, err := infra.NewDB(ctx, cfg.DB.DSN)
		fail(log, "db", err)
		defer pool.Close()
		source = reservation.NewStore(pool)
		registry = runs.NewService(runs.NewStore(pool), log)
	}

	var raw reservation.RawTable
	if a.Table != "" {
		raw, err = source.LoadRaw(ctx, a.Table)
	} else {
		raw, err = reservation.ReadCSVFile(a.Input)
	}
	fail(log, "read raw reservations", err)

	cleaner := reservation.NewCleaner(log)
	scfg := trainConfig(a)
	if a.Eval != "" {
		evalRaw, err := reservation.ReadCSVFile(a.Eval)
		fail(log, "read eval reservations", err)
		scfg.Eval, err = cleaner.Clean(evalRaw)
		fail(log, "clean eval reservations", err)
	}

	res, err := segmentation.NewRunner(cleaner, log).Run(ctx, raw, scfg)
	fail(log, "pipeline", err)

	fail(log, "create output dir", os.MkdirAll(a.OutDir, 0o755))
	fail(log, "write labeled table", writeFile(filepath.Join(a.OutDir, labeledFile), func(f *os.File) error {
		return segmentation.WriteLabeledCSV(f, res.Labeled)
	}))
	fail(log, "write profile", writeFile(filepath.Join(a.OutDir, profileFile), func(f *os.File) error {
		return res.Profile.WriteCSV(f)
	}))

	fmt.Printf("rows: %s raw, %s clean\n", humanize.Comma(int64(res.Report.RawRows)), humanize.Comma(int64(res.Report.CleanRows)))
	if res.Bundle == nil {
		fmt.Println("clean table is empty; no bundle trained")
		return
	}

	clients, closeClients, err := infra.NewBundleClients(a.Bundle, cfg.Redis.Addr, cfg.Bundle.AWSRegion)
	fail(log, "bundle store clients", err)
	defer closeClients()
	store, err := bundlestore.Open(a.Bundle, clients)
	fail(log, "open bundle store", err)
	data, err := res.Bundle.Marshal()
	fail(log, "marshal bundle", err)
	fail(log, "store bundle", store.Put(ctx, data))

	fmt.Printf("best k: %d (silhouette %.4f)\n", res.Bundle.BestK(), res.Bundle.Score())
	for _, c := range res.Report.Train.Candidates {
		fmt.Printf("  k=%d silhouette=%.4f\n", c.K, c.Score)
	}
	fmt.Printf("bundle: %s (%s)\n", store.URI(), humanize.Bytes(uint64(len(data))))

	if a.Record {
		runID := uuid.New()
		_, err := registry.Record(ctx, runID, store.URI(), res)
		fail(log, "record run", err)
		fmt.Printf("run: %s\n", runID)
	}
	fmt.Printf("done in %s\n", time.Since(start).Round(time.Millisecond))
}

func trainConfig(a args) segmentation.Config {
	c := segmentation.DefaultConfig()
	c.Seed = a.Seed
	c.Candidates = config.PipelineConfig{KMin: a.KMin, KMax: a.KMax}.Candidates()
	c.Learner.MaxEpochs = a.MaxEpochs
	c.Learner.Patience = a.Patience
	c.Learner.BatchSize = a.BatchSize
	c.Learner.VirtualBatchSize = a.VirtualBatchSize
	c.Learner.LearningRate = a.LearningRate
	c.Learner.MaskRatio = a.MaskRatio
	c.Restarts = a.Restarts
	c.MaxIter = a.MaxIter
	c.Tol = a.Tol
	c.SilhouetteSample = a.SilhouetteSample
	return c
}

func writeFile(path string, write func(f *os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
