// README: Smoke/bench runner for the segmentation API; executes HTTP/DB/Redis checks and prints results.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"hotelsegments/internal/modules/segmentation"
)

func main() {
	cfg := loadConfig()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	bench := NewRunner(cfg)
	if meta, err := servedModel(ctx, bench.httpc, cfg.BaseURL); err == nil {
		fmt.Printf("served bundle: v%d, k=%d, silhouette=%.4f, %d rows, trained %s\n",
			meta.Version, meta.BestK, meta.Score, meta.Rows, meta.TrainedAt.Format(time.RFC3339))
	} else {
		fmt.Printf("served bundle: unavailable (%v)\n", err)
	}
	results := bench.RunAll(ctx)

	fmt.Println("\n== Summary ==")
	total, byArea := summarize(results)
	areas := make([]string, 0, len(byArea))
	for a := range byArea {
		areas = append(areas, a)
	}
	sort.Strings(areas)
	for _, a := range areas {
		t := byArea[a]
		fmt.Printf("%-10s PASS=%d FAIL=%d PENDING=%d SKIP=%d\n", a, t.Pass, t.Fail, t.Pending, t.Skip)
	}
	fmt.Printf("%-10s PASS=%d FAIL=%d PENDING=%d SKIP=%d\n", "total", total.Pass, total.Fail, total.Pending, total.Skip)
	for _, r := range results {
		if area(r.Name) == "Score" || area(r.Name) == "Perf" {
			if r.Note != "" {
				fmt.Printf("  %s: %s\n", r.Name, r.Note)
			}
		}
	}

	if total.Fail > 0 || (cfg.Strict && total.Pending > 0) {
		os.Exit(1)
	}
}

// Tally counts results by status.
type Tally struct {
	Pass, Fail, Pending, Skip int
}

func (t *Tally) add(status string) {
	switch status {
	case "PASS":
		t.Pass++
	case "FAIL":
		t.Fail++
	case "PENDING":
		t.Pending++
	case "SKIP":
		t.Skip++
	}
}

// area is the case name prefix before the first colon, e.g. "Score".
func area(name string) string {
	if i := strings.Index(name, ":"); i > 0 {
		return name[:i]
	}
	return "other"
}

func summarize(results []Result) (Tally, map[string]Tally) {
	var total Tally
	byArea := map[string]Tally{}
	for _, r := range results {
		total.add(r.Status)
		t := byArea[area(r.Name)]
		t.add(r.Status)
		byArea[area(r.Name)] = t
	}
	return total, byArea
}

func servedModel(ctx context.Context, c *http.Client, base string) (segmentation.Metadata, error) {
	var meta segmentation.Metadata
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/api/v1/model", nil)
	if err != nil {
		return meta, err
	}
	resp, err := c.Do(req)
	if err != nil {
		return meta, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return meta, fmt.Errorf("status %d", resp.StatusCode)
	}
	err = json.NewDecoder(resp.Body).Decode(&meta)
	return meta, err
}

type Config struct {
	BaseURL        string
	DSN            string
	RedisAddr      string
	MigrationPath  string
	ApplyMigration bool
	Strict         bool
	Timeout        time.Duration
	Concurrency    int
	Duration       time.Duration
}

func loadConfig() Config {
	var cfg Config
	flag.StringVar(&cfg.BaseURL, "base-url", envOrDefault("SEGMENTS_BENCH_BASE_URL", "http://localhost:8080"), "API base URL")
	flag.StringVar(&cfg.DSN, "dsn", envOrDefault("SEGMENTS_DB_DSN", ""), "Postgres DSN")
	flag.StringVar(&cfg.RedisAddr, "redis", envOrDefault("SEGMENTS_REDIS_ADDR", "localhost:6379"), "Redis address")
	flag.StringVar(&cfg.MigrationPath, "migration", envOrDefault("SEGMENTS_BENCH_MIGRATION", "migrations/0001_segments.sql"), "Migration SQL path")
	flag.BoolVar(&cfg.ApplyMigration, "apply-migration", envOrDefaultBool("SEGMENTS_BENCH_APPLY_MIGRATION", false), "Apply migration SQL before tests")
	flag.BoolVar(&cfg.Strict, "strict", envOrDefaultBool("SEGMENTS_BENCH_STRICT", false), "Fail on pending tests")
	flag.DurationVar(&cfg.Timeout, "timeout", envOrDefaultDuration("SEGMENTS_BENCH_TIMEOUT", 60*time.Second), "Total timeout")
	flag.IntVar(&cfg.Concurrency, "concurrency", envOrDefaultInt("SEGMENTS_BENCH_CONCURRENCY", 20), "Concurrency for perf tests")
	flag.DurationVar(&cfg.Duration, "duration", envOrDefaultDuration("SEGMENTS_BENCH_DURATION", 10*time.Second), "Duration for perf tests")
	flag.Parse()
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return cfg
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		v = strings.ToLower(v)
		return v == "1" || v == "true" || v == "yes"
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		var n int
		_, _ = fmt.Sscanf(v, "%d", &n)
		if n > 0 {
			return n
		}
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
