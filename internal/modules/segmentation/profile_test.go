package segmentation

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"hotelsegments/internal/modules/reservation"
	"hotelsegments/internal/types"
)

func labeledRow(cluster int, guests int64, fare float64, agency string) LabeledRecord {
	r := reservation.Record{
		Guests: types.Int(guests),
		Fare:   types.Float(fare),
	}
	if agency != "" {
		r.AgencyID = types.String(agency)
	}
	return LabeledRecord{Record: r, Cluster: cluster}
}

func TestProfileOneRowPerLabelAscending(t *testing.T) {
	labeled := []LabeledRecord{
		labeledRow(3, 2, 100, "b"),
		labeledRow(1, 1, 10, "a"),
		labeledRow(3, 3, 200.56, "a"),
		labeledRow(3, 4, 300, "a"),
		labeledRow(1, 2, 20, "z"),
	}
	p := Profile(labeled, []string{reservation.ColGuests, reservation.ColFare, reservation.ColNights}, []string{reservation.ColAgency})
	require.Len(t, p.Rows, 2)

	first, second := p.Rows[0], p.Rows[1]
	assert.Equal(t, 1, first.Cluster)
	assert.Equal(t, 2, first.Size)
	assert.Equal(t, types.Float(1.5), first.Means[0])
	assert.Equal(t, types.Float(15), first.Means[1])
	assert.False(t, first.Means[2].Valid, "all missing gives no mean")
	assert.Equal(t, types.String("a"), first.Modes[0], "tie keeps first seen")

	assert.Equal(t, 3, second.Cluster)
	assert.Equal(t, types.Float(3), second.Means[0])
	assert.Equal(t, types.Float(200.19), second.Means[1])
	assert.Equal(t, types.String("a"), second.Modes[0])
}

func TestProfileMeansRoundHalfToEven(t *testing.T) {
	labeled := []LabeledRecord{
		labeledRow(0, 1, 2.0, "a"),
		labeledRow(0, 1, 2.25, "a"),
		labeledRow(1, 1, 2.25, "a"),
		labeledRow(1, 1, 2.5, "a"),
	}
	p := Profile(labeled, []string{reservation.ColFare}, nil)
	require.Len(t, p.Rows, 2)
	assert.Equal(t, types.Float(2.12), p.Rows[0].Means[0])
	assert.Equal(t, types.Float(2.38), p.Rows[1].Means[0])
}

func TestProfileSkipsMissingCategories(t *testing.T) {
	labeled := []LabeledRecord{
		labeledRow(0, 1, 1, ""),
		labeledRow(0, 1, 1, ""),
		labeledRow(0, 1, 1, "x"),
	}
	p := Profile(labeled, nil, []string{reservation.ColAgency})
	require.Len(t, p.Rows, 1)
	assert.Equal(t, types.String("x"), p.Rows[0].Modes[0])

	p = Profile(labeled[:2], nil, []string{reservation.ColAgency})
	assert.False(t, p.Rows[0].Modes[0].Valid)
}

func TestProfileEmpty(t *testing.T) {
	p := Profile(nil, reservation.NumericFields, reservation.CategoricalFields)
	assert.NotNil(t, p.Rows)
	assert.Empty(t, p.Rows)
}

func TestProfileWriteCSV(t *testing.T) {
	p := Profile([]LabeledRecord{labeledRow(2, 2, 99.999, "0520")},
		[]string{reservation.ColGuests, reservation.ColFare}, []string{reservation.ColAgency})
	var buf bytes.Buffer
	require.NoError(t, p.WriteCSV(&buf))
	assert.Equal(t, "cluster,h_num_per,h_tfa_total,ID_Agencia\n2,2,100,0520\n", buf.String())
}

func TestWriteLabeledCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteLabeledCSV(&buf, []LabeledRecord{labeledRow(4, 2, 10, "a")}))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasSuffix(lines[0], ",cluster"))
	assert.True(t, strings.HasSuffix(lines[1], ",4"))
}

func TestRunnerEndToEnd(t *testing.T) {
	raw := reservation.ToRawTable(synthetic(200, 11))
	res, err := NewRunner(nil, zap.NewNop()).Run(context.Background(), raw, fastConfig())
	require.NoError(t, err)

	require.NotNil(t, res.Bundle)
	assert.Equal(t, 200, res.Report.RawRows)
	assert.Equal(t, len(res.Clean), res.Report.CleanRows)
	assert.LessOrEqual(t, res.Report.CleanRows, 200)
	assert.Len(t, res.Labeled, len(res.Clean))

	present := map[int]bool{}
	for _, l := range res.Labeled {
		present[l.Cluster] = true
	}
	assert.Len(t, res.Profile.Rows, len(present))

	var names []string
	for _, n := range res.Report.Nodes {
		names = append(names, n.Name)
	}
	assert.Equal(t, []string{"clean", "train", "assign", "profile"}, names)
}

func TestRunnerEmptyCleanTable(t *testing.T) {
	records := synthetic(10, 12)
	for i := range records {
		records[i].Guests = types.Int(0)
	}
	res, err := NewRunner(nil, nil).Run(context.Background(), reservation.ToRawTable(records), DefaultConfig())
	require.NoError(t, err)
	assert.True(t, res.Report.Skipped)
	assert.Nil(t, res.Bundle)
	assert.Empty(t, res.Clean)
	assert.Empty(t, res.Labeled)
	assert.Empty(t, res.Profile.Rows)
}

func TestRunnerSchemaErrorAndCancel(t *testing.T) {
	raw := reservation.ToRawTable(synthetic(10, 13))
	raw.Header = raw.Header[1:]
	_, err := NewRunner(nil, nil).Run(context.Background(), raw, DefaultConfig())
	var schemaErr *reservation.SchemaError
	require.ErrorAs(t, err, &schemaErr)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewRunner(nil, nil).Run(ctx, reservation.ToRawTable(synthetic(10, 13)), DefaultConfig())
	require.ErrorIs(t, err, context.Canceled)
}
