package formatter

import (
	"fmt"
	"maps"
	"reflect"
	"strings"
)

const (
	minimalItems   = 5
	historyLimit   = 5
	valueLimit     = 10
	errorsLimit    = 10
	previewLimit   = 10
	paginationHint = "Use pagination (a cursor or skip/top) or a narrower query to retrieve the remaining items."
)

// identityFields are the only object fields kept in minimal mode.
var identityFields = []string{"name", "id", "key", "title", "status", "type", "count", "message"}

var historyFields = []string{"executionHistory", "history"}

// TruncateLargeArrays caps the well-known large arrays of an object:
//
//   - executionHistory and history keep 5 entries and record
//     <field>Truncated and total<Field>
//   - value keeps 10 entries and records truncated and totalResults
//   - errors longer than 10 keep 10 entries and record errorsTruncated and
//     totalErrors
//
// Typed structs and maps are handled through their JSON form. Every other
// field is left untouched and non-objects are returned as is. The result
// never serializes larger than the input.
func TruncateLargeArrays(data any) any {
	obj, ok := generic(data).(map[string]any)
	if !ok {
		return data
	}

	out := maps.Clone(obj)
	changed := false
	for _, k := range historyFields {
		if arr, ok := asSlice(out[k]); ok && len(arr) > historyLimit {
			out[k] = arr[:historyLimit]
			out[k+"Truncated"] = true
			out["total"+upperFirst(k)] = len(arr)
			changed = true
		}
	}
	if arr, ok := asSlice(out["value"]); ok && len(arr) > valueLimit {
		out["value"] = arr[:valueLimit]
		out["truncated"] = true
		out["totalResults"] = len(arr)
		changed = true
	}
	if arr, ok := asSlice(out["errors"]); ok && len(arr) > errorsLimit {
		out["errors"] = arr[:errorsLimit]
		out["errorsTruncated"] = true
		out["totalErrors"] = len(arr)
		changed = true
	}

	if !changed || size(out) > size(obj) {
		return data
	}
	return out
}

// Minimal reduces data to a handful of identity-like fields. Sequences keep
// their first 5 entries and collection wrappers (objects with a value array)
// get the same cap on value. Typed values are handled through their JSON
// form. Anything else is returned unchanged.
func Minimal(data any) any {
	switch v := generic(data).(type) {
	case []any:
		items := project(v[:min(len(v), minimalItems)])
		if len(v) <= minimalItems {
			return items
		}
		return map[string]any{
			"items":      items,
			"totalCount": len(v),
			"truncated":  true,
			"note":       fmt.Sprintf("Showing first %d of %d items. Use format=full or pagination for more.", minimalItems, len(v)),
		}
	case map[string]any:
		arr, ok := asSlice(v["value"])
		if !ok {
			return v
		}
		out := maps.Clone(v)
		out["value"] = project(arr[:min(len(arr), minimalItems)])
		if len(arr) > minimalItems {
			out["totalCount"] = len(arr)
			out["truncated"] = true
		}
		return out
	default:
		return data
	}
}

func project(items []any) []any {
	out := make([]any, len(items))
	for i, it := range items {
		obj, ok := generic(it).(map[string]any)
		if !ok {
			out[i] = it
			continue
		}
		kept := make(map[string]any, len(identityFields))
		for _, f := range identityFields {
			if fv, ok := obj[f]; ok {
				kept[f] = fv
			}
		}
		out[i] = kept
	}
	return out
}

// generic returns typed maps, structs, slices and arrays in their decoded
// JSON form. Values already shaped as map[string]any or []any come back
// unchanged, as does anything that fails to serialize.
func generic(data any) any {
	switch data.(type) {
	case nil, map[string]any, []any:
		return data
	}
	switch reflect.ValueOf(data).Kind() {
	case reflect.Map, reflect.Struct, reflect.Pointer, reflect.Slice, reflect.Array:
	default:
		return data
	}
	v, err := normalize(data)
	if err != nil {
		return data
	}
	return v
}

// asSlice views any slice or array except byte slices as []any.
func asSlice(v any) ([]any, bool) {
	if arr, ok := v.([]any); ok {
		return arr, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	if rv.Type().Elem().Kind() == reflect.Uint8 || (rv.Kind() == reflect.Slice && rv.IsNil()) {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// truncateSequence builds the preview wrapper for an oversize sequence. The
// preview starts at 10 items and is halved until it fits or one item is left.
func truncateSequence(items []any, maxSize int) map[string]any {
	shown := min(len(items), previewLimit)
	for {
		w := map[string]any{
			"message":    fmt.Sprintf("Result too large: showing %d of %d items.", shown, len(items)),
			"totalItems": len(items),
			"shownItems": shown,
			"truncated":  true,
			"items":      items[:shown],
			"hint":       paginationHint,
		}
		if shown <= 1 || size(w) <= maxSize {
			return w
		}
		shown /= 2
	}
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
