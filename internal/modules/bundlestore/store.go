// README: Bundle persistence behind one URI scheme: file paths, redis:// keys and s3:// objects.
package bundlestore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/redis/go-redis/v9"

	"hotelsegments/internal/modules/segmentation"
)

// ErrNotFound is returned when nothing is stored at the location.
var ErrNotFound = errors.New("bundle not found")

// Store reads and writes one serialized bundle at a fixed location.
type Store interface {
	Put(ctx context.Context, data []byte) error
	Get(ctx context.Context) ([]byte, error)
	URI() string
}

// Clients are the backends Open may bind to. A nil client makes the matching
// scheme unavailable.
type Clients struct {
	Redis *redis.Client
	S3    s3iface.S3API
}

// Open resolves uri to a Store. Accepted forms: a plain path or file://path,
// redis://<key> and s3://bucket/key.
func Open(uri string, c Clients) (Store, error) {
	switch {
	case strings.HasPrefix(uri, "redis://"):
		key := strings.TrimPrefix(uri, "redis://")
		if key == "" {
			return nil, fmt.Errorf("bundle uri %q: empty redis key", uri)
		}
		if c.Redis == nil {
			return nil, fmt.Errorf("bundle uri %q: no redis client configured", uri)
		}
		return &RedisStore{client: c.Redis, key: key}, nil
	case strings.HasPrefix(uri, "s3://"):
		u, err := url.Parse(uri)
		if err != nil {
			return nil, fmt.Errorf("bundle uri %q: %w", uri, err)
		}
		key := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" {
			return nil, fmt.Errorf("bundle uri %q: want s3://bucket/key", uri)
		}
		if c.S3 == nil {
			return nil, fmt.Errorf("bundle uri %q: no s3 client configured", uri)
		}
		return &S3Store{client: c.S3, bucket: u.Host, key: key}, nil
	case strings.Contains(uri, "://") && !strings.HasPrefix(uri, "file://"):
		return nil, fmt.Errorf("bundle uri %q: unsupported scheme", uri)
	default:
		path := strings.TrimPrefix(uri, "file://")
		if path == "" {
			return nil, fmt.Errorf("bundle uri %q: empty path", uri)
		}
		return &FileStore{path: path}, nil
	}
}

// Save serializes b into s.
func Save(ctx context.Context, s Store, b *segmentation.Bundle) error {
	data, err := b.Marshal()
	if err != nil {
		return fmt.Errorf("marshal bundle: %w", err)
	}
	if err := s.Put(ctx, data); err != nil {
		return fmt.Errorf("store bundle at %s: %w", s.URI(), err)
	}
	return nil
}

// Load reads and validates the bundle in s.
func Load(ctx context.Context, s Store) (*segmentation.Bundle, error) {
	data, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	return segmentation.Unmarshal(data)
}
