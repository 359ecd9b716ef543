// README: Reference dictionaries for translating category ids into readable names.
package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Kind names one reference dictionary.
type Kind string

const (
	Agencies  Kind = "agencies"
	Channels  Kind = "channels"
	Countries Kind = "countries"
	Segments  Kind = "segments"
	RoomTypes Kind = "room_types"
)

// Files maps each kind to its file name inside the catalog directory.
var Files = map[Kind]string{
	Agencies:  "TCA_iar_Agencias.json",
	Channels:  "TCA_iar_canales.json",
	Countries: "TCA_iar_Paises_origen.json",
	Segments:  "TCA_iar_Segmentos_Comp.json",
	RoomTypes: "TCA_iar_Tipos_Habitaciones.json",
}

// Kinds lists every dictionary in prompt order.
var Kinds = []Kind{Agencies, Channels, Countries, Segments, RoomTypes}

// Dictionary is one loaded file. Its extraction strategy is fixed at load.
type Dictionary struct {
	Kind     Kind
	Strategy string
	names    map[string]string
	raw      json.RawMessage
}

// Name returns the readable name of id, or id itself when unknown.
func (d *Dictionary) Name(id string) string {
	if d == nil {
		return id
	}
	if n, ok := d.names[id]; ok && n != "" {
		return n
	}
	return id
}

// Len is the number of ids the dictionary can resolve.
func (d *Dictionary) Len() int { return len(d.names) }

// Raw returns the file contents as loaded, or nil for a missing dictionary.
func (d *Dictionary) Raw() json.RawMessage {
	if d == nil {
		return nil
	}
	return d.raw
}

// Catalog holds every dictionary.
type Catalog struct {
	dicts map[Kind]*Dictionary
}

// Load reads every dictionary in Files from dir.
func Load(dir string) (*Catalog, error) {
	c := &Catalog{dicts: make(map[Kind]*Dictionary, len(Files))}
	for _, kind := range Kinds {
		path := filepath.Join(dir, Files[kind])
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("load %s dictionary: %w", kind, err)
		}
		d, err := Parse(kind, data)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		c.dicts[kind] = d
	}
	return c, nil
}

// New builds a catalog from already parsed dictionaries.
func New(dicts ...*Dictionary) *Catalog {
	c := &Catalog{dicts: make(map[Kind]*Dictionary, len(dicts))}
	for _, d := range dicts {
		c.dicts[d.Kind] = d
	}
	return c
}

// Dictionary returns the dictionary of kind, or nil.
func (c *Catalog) Dictionary(kind Kind) *Dictionary {
	if c == nil {
		return nil
	}
	return c.dicts[kind]
}

// Describe translates id using the dictionary of kind and falls back to the
// id itself.
func (c *Catalog) Describe(kind Kind, id string) string {
	return c.Dictionary(kind).Name(id)
}

// Parse detects the schema of data and indexes it with the matching strategy.
func Parse(kind Kind, data []byte) (*Dictionary, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	s, err := detect(doc)
	if err != nil {
		return nil, err
	}
	return &Dictionary{Kind: kind, Strategy: s.name, names: s.index(doc), raw: json.RawMessage(data)}, nil
}

func scalar(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), true
	case json.Number:
		return t.String(), true
	case bool:
		return fmt.Sprint(t), true
	}
	return "", false
}
