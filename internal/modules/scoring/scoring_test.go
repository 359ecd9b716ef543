// README: Scoring tests (id coercion, local cached scorer, remote scorer).
package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"hotelsegments/internal/modules/bundlestore"
	"hotelsegments/internal/modules/encoder"
	"hotelsegments/internal/modules/reservation"
	"hotelsegments/internal/modules/segmentation"
	"hotelsegments/internal/types"
)

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

func savedBundle(t *testing.T) (string, *segmentation.Bundle) {
	t.Helper()
	b := trainedBundle(t)
	uri := "file://" + filepath.Join(t.TempDir(), "segments.bundle")
	store, err := bundlestore.Open(uri, bundlestore.Clients{})
	require.NoError(t, err)
	require.NoError(t, bundlestore.Save(context.Background(), store, b))
	return uri, b
}

const validBody = `{"h_num_per":2,"h_num_adu":2,"h_num_men":0,"h_num_noc":3,"h_tot_hab":1,
"h_tfa_total":1500.5,"ID_Tipo_Habitacion":1,"ID_canal":"0","ID_Pais_Origen":157.0,
"ID_Segmento_Comp":2,"ID_Agencia":"3"}`

func TestRequestDecodesMixedIDs(t *testing.T) {
	var req Request
	require.NoError(t, json.Unmarshal([]byte(validBody), &req))

	rec := req.Record()
	assert.Equal(t, types.String("1"), rec.RoomTypeID)
	assert.Equal(t, types.String("0"), rec.ChannelID)
	assert.Equal(t, types.String("157"), rec.OriginID)
	assert.Equal(t, types.Int(3), rec.Nights)
	assert.Equal(t, types.Float(1500.5), rec.Fare)

	var id ID
	require.NoError(t, json.Unmarshal([]byte(`1.5`), &id))
	assert.Equal(t, IDOf("1.5"), id)
	require.NoError(t, json.Unmarshal([]byte(`null`), &id))
	assert.False(t, id.Valid)
	assert.Error(t, json.Unmarshal([]byte(`true`), &id))
}

func TestLocalScorerScoresAndCaches(t *testing.T) {
	uri, b := savedBundle(t)
	s, err := NewLocalScorer(uri, bundlestore.Clients{}, 2, zap.NewNop())
	require.NoError(t, err)

	var req Request
	require.NoError(t, json.Unmarshal([]byte(validBody), &req))
	res, err := s.Score(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, res.Clusters, 1)
	assert.Equal(t, b.BestK(), res.BestK)
	assert.GreaterOrEqual(t, res.Clusters[0], 0)
	assert.Less(t, res.Clusters[0], res.BestK)

	want, err := ScoreWith(b, req)
	require.NoError(t, err)
	assert.Equal(t, want, res)

	// A cached bundle survives removal of the underlying file.
	require.NoError(t, os.Remove(uri[len("file://"):]))
	_, err = s.Score(context.Background(), req)
	require.NoError(t, err)

	s.Invalidate(uri)
	_, err = s.Score(context.Background(), req)
	assert.True(t, errors.Is(err, bundlestore.ErrNotFound))
}

func TestLocalScorerPreload(t *testing.T) {
	dir := t.TempDir()
	missing := "file://" + filepath.Join(dir, "absent.bundle")
	s, err := NewLocalScorer(missing, bundlestore.Clients{}, 1, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, s.Preload(context.Background()))

	broken := filepath.Join(dir, "broken.bundle")
	require.NoError(t, os.WriteFile(broken, []byte("not a bundle"), 0o644))
	s, err = NewLocalScorer("file://"+broken, bundlestore.Clients{}, 1, zap.NewNop())
	require.NoError(t, err)
	err = s.Preload(context.Background())
	var incompatible *segmentation.BundleIncompatibleError
	require.True(t, errors.As(err, &incompatible), "got %v", err)

	uri, _ := savedBundle(t)
	s, err = NewLocalScorer(uri, bundlestore.Clients{}, 1, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, s.Preload(context.Background()))
}

func TestLocalScorerUnknownCategory(t *testing.T) {
	uri, _ := savedBundle(t)
	s, err := NewLocalScorer(uri, bundlestore.Clients{}, 1, nil)
	require.NoError(t, err)

	var req Request
	require.NoError(t, json.Unmarshal([]byte(validBody), &req))
	req.Agency = IDOf("999")
	_, err = s.Score(context.Background(), req)
	var unknown *encoder.UnknownCategoryError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, reservation.ColAgency, unknown.Field)
	assert.Equal(t, "999", unknown.Value)
}

func TestRemoteScorer(t *testing.T) {
	var seen Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&seen))
		if seen.Agency.String == "999" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"error":"unknown category"}`))
			return
		}
		_, _ = w.Write([]byte(`{"clusters":[3],"best_k":5}`))
	}))
	defer srv.Close()

	var req Request
	require.NoError(t, json.Unmarshal([]byte(validBody), &req))
	s := NewRemoteScorer(srv.URL)
	res, err := s.Score(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, Result{Clusters: []int{3}, BestK: 5}, res)
	assert.Equal(t, "157", seen.Origin.String)

	req.Agency = IDOf("999")
	_, err = s.Score(context.Background(), req)
	var remote *RemoteError
	require.True(t, errors.As(err, &remote))
	assert.Equal(t, http.StatusUnprocessableEntity, remote.Status)
}
