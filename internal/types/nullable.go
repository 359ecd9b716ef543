// README: Nullable scalar values shared by reservation tables, profiles and stores.
package types

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// NullInt64 is an integer that may be missing.
type NullInt64 struct {
	Int64 int64
	Valid bool
}

// NullFloat64 is a float that may be missing.
type NullFloat64 struct {
	Float64 float64
	Valid   bool
}

// NullString is a string that may be missing. A missing value is different
// from an empty string only in memory; both render as an empty CSV field.
type NullString struct {
	String string
	Valid  bool
}

// NullTime is a timestamp that may be missing.
type NullTime struct {
	Time  time.Time
	Valid bool
}

func Int(v int64) NullInt64       { return NullInt64{Int64: v, Valid: true} }
func Float(v float64) NullFloat64 { return NullFloat64{Float64: v, Valid: true} }
func String(v string) NullString  { return NullString{String: v, Valid: true} }
func Time(v time.Time) NullTime   { return NullTime{Time: v, Valid: true} }

// Float64 returns the value as a float, or ok=false when missing.
func (n NullInt64) Float64() (float64, bool) {
	if !n.Valid {
		return 0, false
	}
	return float64(n.Int64), true
}

func (n NullInt64) Ptr() *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func (n NullFloat64) Ptr() *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

func (n NullString) Ptr() *string {
	if !n.Valid {
		return nil
	}
	v := n.String
	return &v
}

func (n NullTime) Ptr() *time.Time {
	if !n.Valid {
		return nil
	}
	v := n.Time
	return &v
}

// MarshalCSV implements gocsv.TypeMarshaller.
func (n NullInt64) MarshalCSV() (string, error) {
	if !n.Valid {
		return "", nil
	}
	return strconv.FormatInt(n.Int64, 10), nil
}

// MarshalCSV implements gocsv.TypeMarshaller.
func (n NullFloat64) MarshalCSV() (string, error) {
	if !n.Valid {
		return "", nil
	}
	return strconv.FormatFloat(n.Float64, 'f', -1, 64), nil
}

// MarshalCSV implements gocsv.TypeMarshaller.
func (n NullString) MarshalCSV() (string, error) {
	return n.String, nil
}

// MarshalCSV implements gocsv.TypeMarshaller.
func (n NullTime) MarshalCSV() (string, error) {
	if !n.Valid {
		return "", nil
	}
	return n.Time.Format("2006-01-02 15:04:05"), nil
}

var jsonNull = []byte("null")

// MarshalJSON renders a missing value as null.
func (n NullInt64) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return jsonNull, nil
	}
	return json.Marshal(n.Int64)
}

func (n *NullInt64) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, jsonNull) {
		*n = NullInt64{}
		return nil
	}
	if err := json.Unmarshal(b, &n.Int64); err != nil {
		return err
	}
	n.Valid = true
	return nil
}

// MarshalJSON renders a missing value as null.
func (n NullFloat64) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return jsonNull, nil
	}
	return json.Marshal(n.Float64)
}

func (n *NullFloat64) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, jsonNull) {
		*n = NullFloat64{}
		return nil
	}
	if err := json.Unmarshal(b, &n.Float64); err != nil {
		return err
	}
	n.Valid = true
	return nil
}

// MarshalJSON renders a missing value as null.
func (n NullString) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return jsonNull, nil
	}
	return json.Marshal(n.String)
}

func (n *NullString) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, jsonNull) {
		*n = NullString{}
		return nil
	}
	if err := json.Unmarshal(b, &n.String); err != nil {
		return err
	}
	n.Valid = true
	return nil
}

// MarshalJSON renders a missing value as null.
func (n NullTime) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return jsonNull, nil
	}
	return json.Marshal(n.Time)
}

func (n *NullTime) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, jsonNull) {
		*n = NullTime{}
		return nil
	}
	if err := json.Unmarshal(b, &n.Time); err != nil {
		return err
	}
	n.Valid = true
	return nil
}
