// README: Entry point; loads config, wires scoring, assistant and run registry, serves HTTP.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"hotelsegments/internal/ai"
	"hotelsegments/internal/config"
	httptransport "hotelsegments/internal/http"
	"hotelsegments/internal/infra"
	"hotelsegments/internal/modules/assistant"
	"hotelsegments/internal/modules/catalog"
	"hotelsegments/internal/modules/runs"
	"hotelsegments/internal/modules/scoring"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("load config", zap.Error(err))
	}
	log := infra.NewLogger(cfg.Log.Env)
	defer func() { _ = log.Sync() }()
	if cfg.Log.Env != "dev" && cfg.Log.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clients, closeClients, err := infra.NewBundleClients(cfg.Bundle.URI, cfg.Redis.Addr, cfg.Bundle.AWSRegion)
	if err != nil {
		log.Fatal("bundle store clients", zap.Error(err))
	}
	defer closeClients()

	local, err := scoring.NewLocalScorer(cfg.Bundle.URI, clients, cfg.Bundle.CacheSize, log)
	if err != nil {
		log.Fatal("scorer", zap.Error(err))
	}
	deps := httptransport.RouterDeps{
		Scorer:      local,
		Bundles:     local,
		CORSOrigins: cfg.HTTP.CORSOrigins,
		Log:         log,
	}
	if cfg.Scoring.RemoteURL != "" {
		deps.Scorer = scoring.NewRemoteScorer(cfg.Scoring.RemoteURL)
		log.Info("scoring delegated", zap.String("url", cfg.Scoring.RemoteURL))
	} else if err := local.Preload(ctx); err != nil {
		log.Fatal("bundle", zap.String("uri", cfg.Bundle.URI), zap.Error(err))
	}

	if cfg.DB.DSN != "" {
		pool, err := infra.NewDB(ctx, cfg.DB.DSN)
		if err != nil {
			log.Fatal("db", zap.Error(err))
		}
		defer pool.Close()
		deps.Runs = runs.NewService(runs.NewStore(pool), log)
	}

	llm, closeLLM, err := ai.NewProvider(ctx, ai.ProviderConfig{
		Provider:        cfg.AI.Provider,
		GeminiKey:       cfg.AI.GeminiKey,
		DeepSeekKey:     cfg.AI.DeepSeekKey,
		DeepSeekBaseURL: cfg.AI.DeepSeekBaseURL,
		Model:           cfg.AI.Model,
	})
	defer closeLLM()
	if err != nil {
		log.Warn("assistant disabled", zap.Error(err))
	} else {
		cat, err := catalog.Load(cfg.Catalog.Dir)
		if err != nil {
			log.Warn("reference dictionaries unavailable; ids are shown as-is", zap.Error(err))
		}
		deps.Assistant = assistant.NewService(llm, deps.Scorer, cat,
			assistant.Options{OriginCountryID: cfg.Assistant.OriginCountryID}, log)
	}

	server := httptransport.NewServer(cfg.HTTP.Addr, httptransport.NewRouter(deps), log)
	if err := server.Run(ctx); err != nil {
		log.Fatal("http server", zap.Error(err))
	}
}

