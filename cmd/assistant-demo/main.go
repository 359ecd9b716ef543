package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"hotelsegments/internal/ai"
	"hotelsegments/internal/config"
	"hotelsegments/internal/infra"
	"hotelsegments/internal/modules/assistant"
	"hotelsegments/internal/modules/catalog"
	"hotelsegments/internal/modules/scoring"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	provider, closeProvider, err := ai.NewProvider(ctx, ai.ProviderConfig{
		Provider:        cfg.AI.Provider,
		GeminiKey:       cfg.AI.GeminiKey,
		DeepSeekKey:     cfg.AI.DeepSeekKey,
		DeepSeekBaseURL: cfg.AI.DeepSeekBaseURL,
		Model:           cfg.AI.Model,
	})
	if err != nil {
		log.Fatalf("Failed to initialize AI provider: %v", err)
	}
	defer closeProvider()

	var scorer scoring.Scorer
	if cfg.Scoring.RemoteURL != "" {
		scorer = scoring.NewRemoteScorer(cfg.Scoring.RemoteURL)
	} else {
		clients, closeClients, err := infra.NewBundleClients(cfg.Bundle.URI, cfg.Redis.Addr, cfg.Bundle.AWSRegion)
		if err != nil {
			log.Fatalf("bundle store: %v", err)
		}
		defer closeClients()
		local, err := scoring.NewLocalScorer(cfg.Bundle.URI, clients, 1, nil)
		if err != nil {
			log.Fatalf("scorer: %v", err)
		}
		scorer = local
	}

	cat, err := catalog.Load(cfg.Catalog.Dir)
	if err != nil {
		log.Printf("dictionaries unavailable, ids shown as-is: %v", err)
	}
	svc := assistant.NewService(provider, scorer, cat, assistant.Options{OriginCountryID: cfg.Assistant.OriginCountryID}, nil)

	userMessage := "Reserva para 2 adultos y 1 niño, 4 noches en una habitación, tarifa total 12500, desde México, por internet, segmento leisure, agencia particular"
	if len(os.Args) > 1 {
		userMessage = strings.Join(os.Args[1:], " ")
	}
	fmt.Printf("User: %s\n", userMessage)

	resp, err := svc.Process(ctx, userMessage)
	if err != nil {
		log.Fatalf("Error processing message: %v", err)
	}
	out, _ := json.MarshalIndent(resp, "", "  ")
	fmt.Println(string(out))
}
