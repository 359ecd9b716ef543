// README: Encoder Bank: per-field bijections between category values and dense integer codes.
package encoder

import (
	"fmt"
	"sort"
)

// Missing is the category value used for a missing cell. It sorts first.
const Missing = ""

// UnknownCategoryError is returned when a value was not seen while fitting.
type UnknownCategoryError struct {
	Field string
	Value string
}

func (e *UnknownCategoryError) Error() string {
	return fmt.Sprintf("unknown category %q for field %s", e.Value, e.Field)
}

// Encoder maps the values of one categorical field to codes [0, len(Classes)).
// Classes[i] is the value with code i.
type Encoder struct {
	Field   string   `json:"field"`
	Classes []string `json:"classes"`

	index map[string]int
}

// NewEncoder builds an encoder from an ordered class list, e.g. one loaded from a bundle.
func NewEncoder(field string, classes []string) (*Encoder, error) {
	e := &Encoder{Field: field, Classes: append([]string(nil), classes...)}
	e.index = make(map[string]int, len(classes))
	for i, c := range e.Classes {
		if _, dup := e.index[c]; dup {
			return nil, fmt.Errorf("encoder %s: duplicate class %q", field, c)
		}
		e.index[c] = i
	}
	return e, nil
}

// Encode returns the code of v.
func (e *Encoder) Encode(v string) (int, error) {
	code, ok := e.index[v]
	if !ok {
		return 0, &UnknownCategoryError{Field: e.Field, Value: v}
	}
	return code, nil
}

// Decode returns the value with the given code.
func (e *Encoder) Decode(code int) (string, error) {
	if code < 0 || code >= len(e.Classes) {
		return "", fmt.Errorf("encoder %s: code %d out of range [0, %d)", e.Field, code, len(e.Classes))
	}
	return e.Classes[code], nil
}

// Bank holds one Encoder per categorical field, in field order.
type Bank struct {
	Encoders []*Encoder `json:"encoders"`
}

// Fit learns one encoder per field. rows[i][j] is the value of fields[j] in
// row i. Codes follow byte-wise sorted order of the distinct values.
func Fit(fields []string, rows [][]string) (*Bank, error) {
	bank := &Bank{Encoders: make([]*Encoder, len(fields))}
	for j, f := range fields {
		seen := make(map[string]struct{})
		for i, row := range rows {
			if len(row) != len(fields) {
				return nil, fmt.Errorf("fit encoders: row %d has %d values, want %d", i, len(row), len(fields))
			}
			seen[row[j]] = struct{}{}
		}
		classes := make([]string, 0, len(seen))
		for v := range seen {
			classes = append(classes, v)
		}
		sort.Strings(classes)
		enc, err := NewEncoder(f, classes)
		if err != nil {
			return nil, err
		}
		bank.Encoders[j] = enc
	}
	return bank, nil
}

// Fields returns the field names in encoding order.
func (b *Bank) Fields() []string {
	out := make([]string, len(b.Encoders))
	for i, e := range b.Encoders {
		out[i] = e.Field
	}
	return out
}

// Lookup returns the encoder for field.
func (b *Bank) Lookup(field string) (*Encoder, bool) {
	for _, e := range b.Encoders {
		if e.Field == field {
			return e, true
		}
	}
	return nil, false
}

// EncodeValue encodes a single value of field.
func (b *Bank) EncodeValue(field, v string) (int, error) {
	e, ok := b.Lookup(field)
	if !ok {
		return 0, fmt.Errorf("no encoder for field %s", field)
	}
	return e.Encode(v)
}

// Encode replaces every value with its code. It fails on the first unseen
// value and returns no partial output.
func (b *Bank) Encode(rows [][]string) ([][]int, error) {
	out := make([][]int, len(rows))
	for i, row := range rows {
		if len(row) != len(b.Encoders) {
			return nil, fmt.Errorf("encode: row %d has %d values, want %d", i, len(row), len(b.Encoders))
		}
		codes := make([]int, len(row))
		for j, v := range row {
			c, err := b.Encoders[j].Encode(v)
			if err != nil {
				return nil, err
			}
			codes[j] = c
		}
		out[i] = codes
	}
	return out, nil
}

// Decode maps codes back to values.
func (b *Bank) Decode(codes [][]int) ([][]string, error) {
	out := make([][]string, len(codes))
	for i, row := range codes {
		if len(row) != len(b.Encoders) {
			return nil, fmt.Errorf("decode: row %d has %d codes, want %d", i, len(row), len(b.Encoders))
		}
		vals := make([]string, len(row))
		for j, c := range row {
			v, err := b.Encoders[j].Decode(c)
			if err != nil {
				return nil, err
			}
			vals[j] = v
		}
		out[i] = vals
	}
	return out, nil
}

// Clone returns a deep copy; changes to it never reach b.
func (b *Bank) Clone() *Bank {
	out := &Bank{Encoders: make([]*Encoder, len(b.Encoders))}
	for i, e := range b.Encoders {
		// classes were validated when e was built, so NewEncoder cannot fail here
		out.Encoders[i], _ = NewEncoder(e.Field, e.Classes)
	}
	return out
}

// Rebuild restores lookup indexes after the bank was decoded from JSON.
func (b *Bank) Rebuild() error {
	for i, e := range b.Encoders {
		if e == nil {
			return fmt.Errorf("encoder %d is missing", i)
		}
		fresh, err := NewEncoder(e.Field, e.Classes)
		if err != nil {
			return err
		}
		b.Encoders[i] = fresh
	}
	return nil
}
