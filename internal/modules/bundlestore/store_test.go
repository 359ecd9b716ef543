// README: Bundle store tests (URI resolution, file/s3 round trips, redis when available).
package bundlestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotelsegments/internal/modules/reservation"
	"hotelsegments/internal/modules/segmentation"
	"hotelsegments/internal/types"
)

type fakeS3 struct {
	s3iface.S3API
	objects map[string][]byte
}

func (f *fakeS3) PutObjectWithContext(_ aws.Context, in *s3.PutObjectInput, _ ...request.Option) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*in.Bucket+"/"+*in.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObjectWithContext(_ aws.Context, in *s3.GetObjectInput, _ ...request.Option) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, awserr.New(s3.ErrCodeNoSuchKey, "missing", nil)
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func trainedBundle(t *testing.T) *segmentation.Bundle {
	t.Helper()
	records := make([]reservation.Record, 60)
	for i := range records {
		records[i] = reservation.Record{
			Guests:     types.Int(int64(1 + i%6)),
			Adults:     types.Int(int64(1 + i%4)),
			Minors:     types.Int(int64(i % 3)),
			Nights:     types.Int(int64(1 + i%7)),
			Rooms:      types.Int(int64(1 + i%2)),
			Fare:       types.Float(float64(500 + 37*i)),
			RoomTypeID: types.String(fmt.Sprint(i % 3)),
			ChannelID:  types.String(fmt.Sprint(i % 2)),
			OriginID:   types.String("157"),
			SegmentID:  types.String(fmt.Sprint(i % 4)),
			AgencyID:   types.String(fmt.Sprint(i % 5)),
		}
	}
	cfg := segmentation.DefaultConfig()
	cfg.Learner.MaxEpochs = 3
	b, _, err := segmentation.Train(records, cfg, nil)
	require.NoError(t, err)
	return b
}

func TestOpenResolvesSchemes(t *testing.T) {
	clients := Clients{Redis: redis.NewClient(&redis.Options{Addr: "localhost:0"}), S3: &fakeS3{}}

	s, err := Open("data/model.bundle", clients)
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)
	assert.Equal(t, "file://data/model.bundle", s.URI())

	s, err = Open("file:///tmp/m.bundle", clients)
	require.NoError(t, err)
	assert.Equal(t, "file:///tmp/m.bundle", s.URI())

	s, err = Open("redis://segments:bundle", clients)
	require.NoError(t, err)
	assert.IsType(t, &RedisStore{}, s)

	s, err = Open("s3://models/segments/v1.bundle", clients)
	require.NoError(t, err)
	assert.Equal(t, "s3://models/segments/v1.bundle", s.URI())

	for _, bad := range []string{"", "redis://", "s3://bucket", "gs://x/y", "file://"} {
		_, err := Open(bad, clients)
		assert.Error(t, err, bad)
	}
	_, err = Open("s3://models/k", Clients{})
	assert.Error(t, err)
	_, err = Open("redis://k", Clients{})
	assert.Error(t, err)
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "segments.bundle")
	s, err := Open(path, Clients{})
	require.NoError(t, err)

	_, err = s.Get(ctx)
	assert.True(t, errors.Is(err, ErrNotFound))

	b := trainedBundle(t)
	require.NoError(t, Save(ctx, s, b))
	loaded, err := Load(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, b.BestK(), loaded.BestK())
	assert.Equal(t, b.Score(), loaded.Score())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestLoadRejectsForeignBlob(t *testing.T) {
	ctx := context.Background()
	s, err := Open(filepath.Join(t.TempDir(), "x.bundle"), Clients{})
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, []byte("{}")))

	_, err = Load(ctx, s)
	var incompatible *segmentation.BundleIncompatibleError
	assert.True(t, errors.As(err, &incompatible))
}

func TestS3StoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := Open("s3://models/segments.bundle", Clients{S3: &fakeS3{objects: map[string][]byte{}}})
	require.NoError(t, err)

	_, err = s.Get(ctx)
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, s.Put(ctx, []byte("payload")))
	got, err := s.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)
}

func TestRedisStoreRoundTrip(t *testing.T) {
	addr := os.Getenv("SEGMENTS_TEST_REDIS")
	if addr == "" {
		t.Skip("SEGMENTS_TEST_REDIS not set; skipping Redis-backed tests")
	}
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { client.Close() })
	key := "test:segments:bundle"
	t.Cleanup(func() { client.Del(context.Background(), key) })
	client.Del(ctx, key)

	s, err := Open("redis://"+key, Clients{Redis: client})
	require.NoError(t, err)
	_, err = s.Get(ctx)
	assert.True(t, errors.Is(err, ErrNotFound))

	b := trainedBundle(t)
	require.NoError(t, Save(ctx, s, b))
	loaded, err := Load(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, b.BestK(), loaded.BestK())
}
