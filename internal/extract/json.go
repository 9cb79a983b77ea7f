package extract

import (
	"bytes"
	"encoding/json"
	"slices"
	"strconv"
	"strings"

	"github.com/markuskreitzer/hmcpl-library-cli/internal/library"
	"github.com/markuskreitzer/hmcpl-library-cli/lib/htmlutil"
)

// Object is a decoded json object of unknown shape.
type Object = map[string]any

// DecodeObject decodes `payload` as a json object. It reports false for anything else,
// including html and json arrays.
func DecodeObject(payload []byte) (Object, bool) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, false
	}
	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()
	var obj Object
	if err := decoder.Decode(&obj); err != nil {
		return nil, false
	}
	return obj, true
}

// decodeArray decodes `payload` as a top level json array.
func decodeArray(payload []byte) ([]any, bool) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, false
	}
	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()
	var arr []any
	if err := decoder.Decode(&arr); err != nil {
		return nil, false
	}
	return arr, true
}

func (k Keys) value(obj Object) (any, bool) {
	for _, key := range k {
		v, ok := obj[key]
		if ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// String returns the first key holding a non-empty string or a number.
func (k Keys) String(obj Object) string {
	for _, key := range k {
		switch v := obj[key].(type) {
		case string:
			if s := htmlutil.Clean(v); s != "" {
				return s
			}
		case json.Number:
			return v.String()
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

// Int returns the first key holding an integer, numeric strings included.
func (k Keys) Int(obj Object) (int, bool) {
	for _, key := range k {
		switch v := obj[key].(type) {
		case json.Number:
			if n, err := v.Int64(); err == nil {
				return int(n), true
			}
			if f, err := v.Float64(); err == nil {
				return int(f), true
			}
		case float64:
			return int(v), true
		case string:
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}

// Bool returns the first key holding something boolean-like.
func (k Keys) Bool(obj Object) (bool, bool) {
	for _, key := range k {
		switch v := obj[key].(type) {
		case bool:
			return v, true
		case json.Number:
			f, err := v.Float64()
			if err == nil {
				return f != 0, true
			}
		case float64:
			return v != 0, true
		case string:
			switch strings.ToLower(strings.TrimSpace(v)) {
			case "true", "yes", "1", "y":
				return true, true
			case "false", "no", "0", "n":
				return false, true
			}
		}
	}
	return false, false
}

// Amount returns the first key holding a monetary amount.
func (k Keys) Amount(obj Object) float64 {
	v, ok := k.value(obj)
	if !ok {
		return 0
	}
	switch v := v.(type) {
	case json.Number:
		return ParseAmount(v.String())
	case string:
		return ParseAmount(v)
	}
	return 0
}

// Date returns the first key holding a parseable date string or a unix timestamp.
func (k Keys) Date(obj Object) *library.Date {
	for _, key := range k {
		switch v := obj[key].(type) {
		case string:
			if d := FindDate(v); d != nil {
				return d
			}
			if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
				if d := UnixDate(n); d != nil {
					return d
				}
			}
		case json.Number:
			if n, err := v.Int64(); err == nil {
				if d := UnixDate(n); d != nil {
					return d
				}
			}
		case float64:
			if d := UnixDate(int64(v)); d != nil {
				return d
			}
		}
	}
	return nil
}

// Object returns the first key holding a json object.
func (k Keys) Object(obj Object) (Object, bool) {
	for _, key := range k {
		if v, ok := obj[key].(map[string]any); ok {
			return v, true
		}
	}
	return nil, false
}

// Array returns the first key holding a non-empty json array. An object keyed by id is also
// accepted, its values are returned in key order.
func (k Keys) Array(obj Object) ([]any, bool) {
	for _, key := range k {
		switch v := obj[key].(type) {
		case []any:
			if len(v) > 0 {
				return v, true
			}
		case map[string]any:
			if len(v) > 0 {
				return objectValues(v), true
			}
		}
	}
	return nil, false
}

func objectValues(obj map[string]any) []any {
	keys := make([]string, 0, len(obj))
	for key := range obj {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	out := make([]any, 0, len(keys))
	for _, key := range keys {
		out = append(out, obj[key])
	}
	return out
}

// extractItems extracts each json array item with fn, non-object items are skipped.
func extractItems[T any](items []any, fn func(item Object, emitted int) (T, error)) []Row[T] {
	out := make([]Row[T], 0, len(items))
	emitted := 0
	for i, raw := range items {
		r := extractRow(i, func() (T, error) {
			item, ok := raw.(map[string]any)
			if !ok {
				var zero T
				return zero, ErrNotObject
			}
			return fn(item, emitted)
		})
		if r.Err == nil {
			emitted++
		}
		out = append(out, r)
	}
	return out
}
