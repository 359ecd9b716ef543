package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var scoreBody = map[string]any{
	"h_num_per":          2,
	"h_num_adu":          2,
	"h_num_men":          0,
	"h_num_noc":          3,
	"h_tot_hab":          1,
	"h_tfa_total":        4500.0,
	"ID_Tipo_Habitacion": 1,
	"ID_canal":           1,
	"ID_Pais_Origen":     157,
	"ID_Segmento_Comp":   1,
	"ID_Agencia":         1,
}

func TestScoreEndpoint(t *testing.T) {
	client, baseURL := apiOrSkip(t)

	status, body := call(t, client, http.MethodGet, baseURL+"/api/v1/model", nil)
	if status == http.StatusNotFound {
		t.Skipf("api has no bundle: %s", body)
	}
	require.Equal(t, http.StatusOK, status, string(body))
	var meta struct {
		BestK             int      `json:"best_k"`
		CategoricalFields []string `json:"categorical_fields"`
	}
	require.NoError(t, json.Unmarshal(body, &meta))
	require.GreaterOrEqual(t, meta.BestK, 2)

	unknown := map[string]any{}
	for k, v := range scoreBody {
		unknown[k] = v
	}
	unknown["ID_Agencia"] = "__integration_unknown__"
	status, body = call(t, client, http.MethodPost, baseURL+"/api/v1/score", unknown)
	assert.Equal(t, http.StatusUnprocessableEntity, status, string(body))

	status, body = call(t, client, http.MethodPost, baseURL+"/api/v1/score", scoreBody)
	if status == http.StatusUnprocessableEntity {
		t.Skipf("bundle does not know the sample categories: %s", body)
	}
	require.Equal(t, http.StatusOK, status, string(body))
	var res struct {
		Clusters []int `json:"clusters"`
		BestK    int   `json:"best_k"`
	}
	require.NoError(t, json.Unmarshal(body, &res))
	require.Len(t, res.Clusters, 1)
	assert.Equal(t, meta.BestK, res.BestK)
	assert.GreaterOrEqual(t, res.Clusters[0], 0)
	assert.Less(t, res.Clusters[0], res.BestK)

	// A frozen bundle gives the same label every time.
	_, again := call(t, client, http.MethodPost, baseURL+"/api/v1/score", scoreBody)
	assert.JSONEq(t, string(body), string(again))
}

func TestProcessEndpoint(t *testing.T) {
	if os.Getenv("SEGMENTS_IT_ASSISTANT") == "" {
		t.Skip("SEGMENTS_IT_ASSISTANT not set; the assistant calls a paid LLM")
	}
	client, baseURL := apiOrSkip(t)

	status, body := call(t, client, http.MethodPost, baseURL+"/api/process", map[string]string{"userMessage": "Hola, buenos días"})
	require.Equal(t, http.StatusOK, status, string(body))
	var resp struct {
		Prediction struct {
			Message  string `json:"message"`
			Clusters []int  `json:"clusters"`
			Status   string `json:"status"`
		} `json:"prediction"`
	}
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, "success", resp.Prediction.Status)
	assert.NotEmpty(t, strings.TrimSpace(resp.Prediction.Message))
	assert.Empty(t, resp.Prediction.Clusters)
	t.Logf("assistant reply: %s", resp.Prediction.Message)
}

func TestLatestRunMatchesRegistry(t *testing.T) {
	dsn := strings.TrimSpace(os.Getenv("SEGMENTS_TEST_DSN"))
	if dsn == "" {
		t.Skip("SEGMENTS_TEST_DSN not set")
	}
	client, baseURL := apiOrSkip(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	db, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	var id string
	var bestK int
	err = db.QueryRow(ctx, "SELECT id::text, best_k FROM segment_runs ORDER BY trained_at DESC, created_at DESC LIMIT 1").Scan(&id, &bestK)
	if err != nil {
		t.Skipf("no recorded run: %v", err)
	}

	status, body := call(t, client, http.MethodGet, baseURL+"/api/v1/runs/latest", nil)
	require.Equal(t, http.StatusOK, status, string(body))
	var latest struct {
		Run struct {
			ID    string `json:"id"`
			BestK int    `json:"best_k"`
		} `json:"run"`
	}
	require.NoError(t, json.Unmarshal(body, &latest))
	assert.Equal(t, id, latest.Run.ID)
	assert.Equal(t, bestK, latest.Run.BestK)
}

// apiOrSkip returns a client and the API base URL, skipping the test when the
// API does not answer /health.
func apiOrSkip(t *testing.T) (*http.Client, string) {
	t.Helper()
	loadDotEnv()
	baseURL := strings.TrimRight(envOrDefault("SEGMENTS_API_BASE_URL", "http://localhost:8080"), "/")
	client := &http.Client{Timeout: 60 * time.Second}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := client.Get(baseURL + "/health")
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return client, baseURL
			}
		}
		time.Sleep(300 * time.Millisecond)
	}
	t.Skipf("api not reachable at %s", baseURL)
	return nil, ""
}

func call(t *testing.T, client *http.Client, method, url string, payload any) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// loadDotEnv loads the nearest .env above the working directory without
// overriding variables already set.
func loadDotEnv() {
	dir, err := os.Getwd()
	if err != nil {
		return
	}
	for i := 0; i < 8; i++ {
		candidate := filepath.Join(dir, ".env")
		if _, err := os.Stat(candidate); err == nil {
			_ = godotenv.Load(candidate)
			return
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}
