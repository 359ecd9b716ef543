// README: Config loader with env defaults for HTTP, DB, Redis, bundle storage, AI and pipeline settings.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// PipelineConfig holds the training defaults. The pipeline CLI overrides them.
type PipelineConfig struct {
	Seed             int64
	KMin             int
	KMax             int
	MaxEpochs        int
	Patience         int
	BatchSize        int
	VirtualBatchSize int
	LearningRate     float64
	MaskRatio        float64
	Restarts         int
	MaxIter          int
	Tol              float64
	SilhouetteSample int
}

// Candidates expands the inclusive k range.
func (p PipelineConfig) Candidates() []int {
	var ks []int
	for k := p.KMin; k <= p.KMax; k++ {
		ks = append(ks, k)
	}
	return ks
}

type Config struct {
	HTTP struct {
		Addr        string
		CORSOrigins []string
	}
	DB struct {
		DSN string
	}
	Redis struct {
		Addr string
	}
	Bundle struct {
		URI       string
		AWSRegion string
		CacheSize int
	}
	Scoring struct {
		RemoteURL string
	}
	AI struct {
		Provider        string
		GeminiKey       string
		DeepSeekKey     string
		DeepSeekBaseURL string
		Model           string
	}
	Catalog struct {
		Dir string
	}
	Assistant struct {
		OriginCountryID string
	}
	Log struct {
		Env string
	}
	Pipeline PipelineConfig
}

// Load reads .env (when present) and then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	cfg.HTTP.Addr = envOrDefault("SEGMENTS_HTTP_ADDR", ":8080")
	cfg.HTTP.CORSOrigins = splitList(envOrDefault("SEGMENTS_CORS_ORIGINS", "*"))
	cfg.DB.DSN = envOrDefault("SEGMENTS_DB_DSN", "")
	cfg.Redis.Addr = envOrDefault("SEGMENTS_REDIS_ADDR", "localhost:6379")
	cfg.Bundle.URI = envOrDefault("SEGMENTS_BUNDLE_URI", "file://data/06_models/segments.bundle")
	cfg.Bundle.AWSRegion = envOrDefault("AWS_REGION", "")
	cfg.Bundle.CacheSize = envOrDefaultInt("SEGMENTS_BUNDLE_CACHE", 4)
	cfg.Scoring.RemoteURL = envOrDefault("SEGMENTS_SCORING_URL", "")
	cfg.AI.Provider = envOrDefault("SEGMENTS_AI_PROVIDER", "deepseek")
	cfg.AI.GeminiKey = envOrDefault("GEMINI_API_KEY", "")
	cfg.AI.DeepSeekKey = envOrDefault("DEEPSEEK_API_KEY", "")
	cfg.AI.DeepSeekBaseURL = envOrDefault("DEEPSEEK_BASE_URL", "https://api.deepseek.com")
	cfg.AI.Model = envOrDefault("SEGMENTS_AI_MODEL", "")
	cfg.Catalog.Dir = envOrDefault("SEGMENTS_CATALOG_DIR", "data/01_raw")
	cfg.Assistant.OriginCountryID = envOrDefault("SEGMENTS_ORIGIN_COUNTRY_ID", "157")
	cfg.Log.Env = envOrDefault("SEGMENTS_ENV", "production")

	cfg.Pipeline = PipelineConfig{
		Seed:             int64(envOrDefaultInt("SEGMENTS_SEED", 42)),
		KMin:             envOrDefaultInt("SEGMENTS_K_MIN", 4),
		KMax:             envOrDefaultInt("SEGMENTS_K_MAX", 5),
		MaxEpochs:        envOrDefaultInt("SEGMENTS_MAX_EPOCHS", 100),
		Patience:         envOrDefaultInt("SEGMENTS_PATIENCE", 10),
		BatchSize:        envOrDefaultInt("SEGMENTS_BATCH_SIZE", 256),
		VirtualBatchSize: envOrDefaultInt("SEGMENTS_VIRTUAL_BATCH_SIZE", 128),
		LearningRate:     envOrDefaultFloat("SEGMENTS_LEARNING_RATE", 1e-3),
		MaskRatio:        envOrDefaultFloat("SEGMENTS_MASK_RATIO", 0.2),
		Restarts:         envOrDefaultInt("SEGMENTS_KMEANS_RESTARTS", 1),
		MaxIter:          envOrDefaultInt("SEGMENTS_KMEANS_MAX_ITER", 300),
		Tol:              envOrDefaultFloat("SEGMENTS_KMEANS_TOL", 1e-4),
		SilhouetteSample: envOrDefaultInt("SEGMENTS_SILHOUETTE_SAMPLE", 0),
	}
	if cfg.Pipeline.KMin < 2 || cfg.Pipeline.KMax < cfg.Pipeline.KMin {
		return Config{}, fmt.Errorf("invalid k range [%d, %d]", cfg.Pipeline.KMin, cfg.Pipeline.KMax)
	}
	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			return n
		}
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
