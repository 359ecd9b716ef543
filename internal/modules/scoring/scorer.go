// README: Scorers: in-process over a cached bundle, or a remote scoring endpoint.
package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"

	"hotelsegments/internal/modules/bundlestore"
	"hotelsegments/internal/modules/reservation"
	"hotelsegments/internal/modules/segmentation"
)

// Scorer assigns one reservation to a segment.
type Scorer interface {
	Score(ctx context.Context, req Request) (Result, error)
}

// LocalScorer scores in process. Decoded bundles are cached by URI so a
// request only pays the load cost once per bundle.
type LocalScorer struct {
	uri     string
	clients bundlestore.Clients
	cache   *lru.Cache
	log     *zap.Logger
}

// NewLocalScorer serves the bundle at uri. cacheSize bounds the number of
// decoded bundles kept in memory.
func NewLocalScorer(uri string, clients bundlestore.Clients, cacheSize int, log *zap.Logger) (*LocalScorer, error) {
	if cacheSize <= 0 {
		cacheSize = 1
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("bundle cache: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &LocalScorer{uri: uri, clients: clients, cache: cache, log: log}, nil
}

// URI is the default bundle location.
func (s *LocalScorer) URI() string { return s.uri }

// Bundle returns the default bundle.
func (s *LocalScorer) Bundle(ctx context.Context) (*segmentation.Bundle, error) {
	return s.BundleAt(ctx, s.uri)
}

// BundleAt returns the bundle stored at uri, loading it on a cache miss.
func (s *LocalScorer) BundleAt(ctx context.Context, uri string) (*segmentation.Bundle, error) {
	if v, ok := s.cache.Get(uri); ok {
		return v.(*segmentation.Bundle), nil
	}
	store, err := bundlestore.Open(uri, s.clients)
	if err != nil {
		return nil, err
	}
	b, err := bundlestore.Load(ctx, store)
	if err != nil {
		return nil, err
	}
	s.cache.Add(uri, b)
	s.log.Info("bundle loaded", zap.String("uri", uri), zap.Int("best_k", b.BestK()))
	return b, nil
}

// Preload loads the default bundle ahead of the first request. Nothing stored
// yet is only logged, since scoring reloads on every miss. Any other failure,
// such as a *segmentation.BundleIncompatibleError, is returned.
func (s *LocalScorer) Preload(ctx context.Context) error {
	_, err := s.Bundle(ctx)
	if errors.Is(err, bundlestore.ErrNotFound) {
		s.log.Warn("bundle not stored yet; scoring will retry per request", zap.String("uri", s.uri))
		return nil
	}
	return err
}

// Invalidate drops the cached bundle for uri so the next call reloads it.
func (s *LocalScorer) Invalidate(uri string) {
	s.cache.Remove(uri)
}

// Score implements Scorer against the default bundle.
func (s *LocalScorer) Score(ctx context.Context, req Request) (Result, error) {
	b, err := s.Bundle(ctx)
	if err != nil {
		return Result{}, err
	}
	return ScoreWith(b, req)
}

// ScoreWith labels req with b.
func ScoreWith(b *segmentation.Bundle, req Request) (Result, error) {
	labels, err := b.Predict([]reservation.Record{req.Record()})
	if err != nil {
		return Result{}, err
	}
	return Result{Clusters: labels, BestK: b.BestK()}, nil
}

// RemoteError is a non-2xx reply from a remote scorer.
type RemoteError struct {
	Status int
	Body   string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote scorer: status %d: %s", e.Status, e.Body)
}

// RemoteScorer posts requests to an HTTP scoring endpoint that speaks the
// same JSON contract as POST /api/v1/score.
type RemoteScorer struct {
	url    string
	client *http.Client
}

func NewRemoteScorer(url string) *RemoteScorer {
	return &RemoteScorer{url: url, client: &http.Client{Timeout: 30 * time.Second}}
}

// Score implements Scorer.
func (s *RemoteScorer) Score(ctx context.Context, req Request) (Result, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return Result{}, fmt.Errorf("marshal score request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("build score request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("remote scorer: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("remote scorer: read body: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return Result{}, &RemoteError{Status: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	var out Result
	if err := json.Unmarshal(data, &out); err != nil {
		return Result{}, fmt.Errorf("remote scorer: decode reply: %w", err)
	}
	return out, nil
}
