package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"
	"time"
)

type increment struct {
	delta int64
}

// Increment returns a field value that adds delta to the stored number when
// written. A missing or non-numeric field is treated as zero.
func Increment(delta int64) any {
	return increment{delta: delta}
}

type serverTimestamp struct{}

// ServerTimestamp is replaced by the commit time of the write that carries it.
var ServerTimestamp any = serverTimestamp{}

// FromStruct converts a json tagged struct into Fields.
func FromStruct(v any) (Fields, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %T: %w", v, err)
	}
	return DecodeJSON(raw)
}

// DecodeJSON parses a JSON object into normalized Fields.
func DecodeJSON(raw []byte) (Fields, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return Fields(normalize(m).(map[string]any)), nil
}

// ApplySet resolves write sentinels in data and returns the stored form.
// Keys must be plain field names.
func ApplySet(data Fields, now time.Time) (Fields, error) {
	out := make(Fields, len(data))
	for key, value := range data {
		if key == "" || strings.Contains(key, ".") {
			return nil, fmt.Errorf("%w: set field %q", ErrInvalidPath, key)
		}
		out[key] = resolve(value, now)
	}
	return out, nil
}

// ApplyUpdate applies dotted-path updates to a copy of current.
func ApplyUpdate(current Fields, updates Fields, now time.Time) (Fields, error) {
	out := Fields(cloneMap(current))

	paths := make([]string, 0, len(updates))
	for path := range updates {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		segments := strings.Split(path, ".")
		for _, s := range segments {
			if s == "" {
				return nil, fmt.Errorf("%w: update field %q", ErrInvalidPath, path)
			}
		}

		parent := map[string]any(out)
		for _, s := range segments[:len(segments)-1] {
			child, ok := parent[s].(map[string]any)
			if !ok {
				child = map[string]any{}
				parent[s] = child
			}
			parent = child
		}

		leaf := segments[len(segments)-1]
		switch v := updates[path].(type) {
		case increment:
			parent[leaf] = addNumber(parent[leaf], v.delta)
		default:
			parent[leaf] = resolve(v, now)
		}
	}

	return out, nil
}

// Lookup returns the value at a dotted path.
func Lookup(fields Fields, path string) (any, bool) {
	var current any = map[string]any(fields)
	for _, s := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		if current, ok = m[s]; !ok {
			return nil, false
		}
	}
	return current, true
}

// Clone deep-copies fields.
func Clone(fields Fields) Fields {
	if fields == nil {
		return nil
	}
	return Fields(cloneMap(fields))
}

// Equal compares two field values, treating numbers by value.
func Equal(a, b any) bool {
	a, b = normalize(a), normalize(b)
	if _, ok := toFloat(a); ok {
		if _, ok := toFloat(b); ok {
			return Compare(a, b) == 0
		}
	}
	return reflect.DeepEqual(a, b)
}

// Compare orders values: nil < bool < number < string < time < other.
func Compare(a, b any) int {
	a, b = normalize(a), normalize(b)
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return ra - rb
	}

	switch ra {
	case 1:
		ab, bb := a.(bool), b.(bool)
		switch {
		case ab == bb:
			return 0
		case !ab:
			return -1
		default:
			return 1
		}
	case 2:
		fa, _ := toFloat(a)
		fb, _ := toFloat(b)
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	case 3:
		return strings.Compare(a.(string), b.(string))
	case 4:
		return a.(time.Time).Compare(b.(time.Time))
	}
	return 0
}

func rank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case bool:
		return 1
	case int64, float64:
		return 2
	case string:
		return 3
	case time.Time:
		return 4
	default:
		return 5
	}
}

func resolve(v any, now time.Time) any {
	switch t := v.(type) {
	case serverTimestamp:
		return now.UTC()
	case increment:
		return t.delta
	case Fields:
		return resolveMap(t, now)
	case map[string]any:
		return resolveMap(t, now)
	default:
		return normalize(v)
	}
}

func resolveMap(m map[string]any, now time.Time) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = resolve(v, now)
	}
	return out
}

func addNumber(current any, delta int64) any {
	switch n := normalize(current).(type) {
	case int64:
		return n + delta
	case float64:
		if n == math.Trunc(n) {
			return int64(n) + delta
		}
		return n + float64(delta)
	default:
		return delta
	}
}

// normalize deep-copies v into the canonical in-memory representation:
// int64, float64, string, bool, time.Time, map[string]any and []any.
func normalize(v any) any {
	switch t := v.(type) {
	case nil, string, bool, int64, float64:
		return t
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case uint32:
		return int64(t)
	case float32:
		return float64(t)
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	case time.Time:
		return t.UTC()
	case Fields:
		return cloneMap(t)
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalize(e)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = e
		}
		return out
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			out := make(map[string]any, rv.Len())
			iter := rv.MapRange()
			for iter.Next() {
				out[iter.Key().String()] = normalize(iter.Value().Interface())
			}
			return out
		}
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range rv.Len() {
			out[i] = normalize(rv.Index(i).Interface())
		}
		return out
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint())
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	}
	return v
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalize(v)
	}
	return out
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
