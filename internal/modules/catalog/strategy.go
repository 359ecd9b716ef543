package catalog

import (
	"fmt"
	"sort"
)

type strategy struct {
	name  string
	index func(doc any) map[string]string
}

// listSchemas are tried in order; the first id key present in any item wins.
var listSchemas = []struct {
	name     string
	idKeys   []string
	nameKeys []string
}{
	{"room_types", []string{"ID_Tipo_Habitacion"}, []string{"Tipo_Habitacion_nombre"}},
	{"channels", []string{"ID_canal"}, []string{"CANAL"}},
	{"segments", []string{"ID_Segmento_Comp"}, []string{"SEGMENTO ALTERNO"}},
	{"agencies", []string{"ID_Agencia"}, []string{"NOMBRE"}},
	{"generic", []string{"id", "ID", "Id"}, []string{"name", "Name", "NOMBRE", "DESCRIPCION"}},
}

func detect(doc any) (strategy, error) {
	switch t := doc.(type) {
	case map[string]any:
		return strategy{name: "name_to_id", index: indexNameToID}, nil
	case []any:
		for _, schema := range listSchemas {
			for _, item := range t {
				obj, ok := item.(map[string]any)
				if !ok {
					continue
				}
				if hasAny(obj, schema.idKeys) {
					s := schema
					return strategy{name: s.name, index: func(doc any) map[string]string {
						return indexList(doc.([]any), s.idKeys, s.nameKeys)
					}}, nil
				}
			}
		}
		return strategy{}, fmt.Errorf("no known id column in list dictionary")
	}
	return strategy{}, fmt.Errorf("unsupported dictionary shape %T", doc)
}

func hasAny(obj map[string]any, keys []string) bool {
	for _, k := range keys {
		if _, ok := obj[k]; ok {
			return true
		}
	}
	return false
}

func indexList(items []any, idKeys, nameKeys []string) map[string]string {
	out := make(map[string]string, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		id, ok := firstScalar(obj, idKeys)
		if !ok {
			continue
		}
		if _, seen := out[id]; seen {
			continue
		}
		name, _ := firstScalar(obj, nameKeys)
		out[id] = name
	}
	return out
}

// indexNameToID inverts a {"name": id} object. When several names share an
// id the smallest name wins.
func indexNameToID(doc any) map[string]string {
	obj := doc.(map[string]any)
	out := make(map[string]string, len(obj))
	for _, name := range sortedKeys(obj) {
		id, ok := scalar(obj[name])
		if !ok {
			continue
		}
		if _, seen := out[id]; !seen {
			out[id] = name
		}
	}
	return out
}

func firstScalar(obj map[string]any, keys []string) (string, bool) {
	for _, k := range keys {
		if v, ok := obj[k]; ok && v != nil {
			if s, ok := scalar(v); ok && s != "" {
				return s, true
			}
		}
	}
	return "", false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
