package reservation

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSVToleratesBOMAndShortRows(t *testing.T) {
	in := "\uFEFFa,b,c\n1,2,3\n4,5\n"
	table, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, table.Header)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, []string{"4", "5"}, table.Rows[1])
}

func TestReadCSVEmptyInput(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	require.Error(t, err)
}

func TestWriteCSVThenParse(t *testing.T) {
	records, err := Parse(rawTable(rawRow(1, nil), rawRow(2, map[string]string{ColMinors: "", ColAgency: "007"})))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, records))
	assert.True(t, strings.HasPrefix(buf.String(), strings.Join(Columns, ",")+"\n"))

	table, err := ReadCSV(&buf)
	require.NoError(t, err)
	back, err := Parse(table)
	require.NoError(t, err)
	assert.Equal(t, records, back)
}

func TestWriteCSVMatchesRawTable(t *testing.T) {
	records, err := Parse(rawTable(
		rawRow(1, nil),
		rawRow(2, map[string]string{ColMinors: "", ColFare: "1234.5", ColArrival: "2019-03-01"}),
	))
	require.NoError(t, err)

	var tagged, rendered bytes.Buffer
	require.NoError(t, WriteCSV(&tagged, records))
	require.NoError(t, WriteTable(&rendered, ToRawTable(records)))
	assert.Equal(t, rendered.String(), tagged.String())
}

func TestWriteCSVEmptyWritesHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Equal(t, strings.Join(Columns, ",")+"\n", buf.String())
}
