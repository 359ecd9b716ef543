// README: Encoder Bank tests (closure, determinism, unknown rejection).
package encoder

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fields = []string{"ID_canal", "ID_Agencia"}

var rows = [][]string{
	{"2", "0520"},
	{"10", "0031"},
	{"2", Missing},
	{"1", "0520"},
}

func TestFitAssignsSortedContiguousCodes(t *testing.T) {
	bank, err := Fit(fields, rows)
	require.NoError(t, err)
	require.Len(t, bank.Encoders, 2)

	assert.Equal(t, []string{"1", "10", "2"}, bank.Encoders[0].Classes)
	assert.Equal(t, []string{Missing, "0031", "0520"}, bank.Encoders[1].Classes)
	assert.Equal(t, fields, bank.Fields())
}

func TestFitIsDeterministic(t *testing.T) {
	reordered := [][]string{rows[3], rows[1], rows[0], rows[2]}
	a, err := Fit(fields, rows)
	require.NoError(t, err)
	b, err := Fit(fields, reordered)
	require.NoError(t, err)
	assert.Equal(t, a.Encoders[0].Classes, b.Encoders[0].Classes)
	assert.Equal(t, a.Encoders[1].Classes, b.Encoders[1].Classes)
}

func TestEncodeDecodeClosure(t *testing.T) {
	bank, err := Fit(fields, rows)
	require.NoError(t, err)

	codes, err := bank.Encode(rows)
	require.NoError(t, err)
	for _, row := range codes {
		for j, c := range row {
			assert.GreaterOrEqual(t, c, 0)
			assert.Less(t, c, len(bank.Encoders[j].Classes))
		}
	}
	back, err := bank.Decode(codes)
	require.NoError(t, err)
	assert.Equal(t, rows, back)
}

func TestEncodeRejectsUnknownCategory(t *testing.T) {
	bank, err := Fit(fields, rows)
	require.NoError(t, err)

	out, err := bank.Encode([][]string{{"2", "0520"}, {"99", "0520"}})
	assert.Nil(t, out, "no partial output")
	var unknown *UnknownCategoryError
	require.True(t, errors.As(err, &unknown), "expected UnknownCategoryError, got %v", err)
	assert.Equal(t, "ID_canal", unknown.Field)
	assert.Equal(t, "99", unknown.Value)

	_, err = bank.EncodeValue("ID_Agencia", "9999")
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "ID_Agencia", unknown.Field)
}

func TestEncodeValueUnknownField(t *testing.T) {
	bank, err := Fit(fields, rows)
	require.NoError(t, err)
	_, err = bank.EncodeValue("nope", "1")
	require.Error(t, err)
}

func TestDecodeOutOfRange(t *testing.T) {
	bank, err := Fit(fields, rows)
	require.NoError(t, err)
	_, err = bank.Decode([][]int{{0, 3}})
	require.Error(t, err)
}

func TestBankSurvivesJSON(t *testing.T) {
	bank, err := Fit(fields, rows)
	require.NoError(t, err)
	data, err := json.Marshal(bank)
	require.NoError(t, err)

	var loaded Bank
	require.NoError(t, json.Unmarshal(data, &loaded))
	require.NoError(t, loaded.Rebuild())

	want, err := bank.Encode(rows)
	require.NoError(t, err)
	got, err := loaded.Encode(rows)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestNewEncoderRejectsDuplicates(t *testing.T) {
	_, err := NewEncoder("f", []string{"a", "a"})
	require.Error(t, err)
}

func TestCloneIsIndependent(t *testing.T) {
	bank, err := Fit([]string{"f"}, [][]string{{"b"}, {"a"}, {"c"}})
	require.NoError(t, err)

	c := bank.Clone()
	c.Encoders[0].Classes[0], c.Encoders[0].Classes[1] = c.Encoders[0].Classes[1], c.Encoders[0].Classes[0]
	require.NoError(t, c.Rebuild())

	code, err := bank.EncodeValue("f", "a")
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Equal(t, []string{"a", "b", "c"}, bank.Encoders[0].Classes)
}
