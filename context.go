package xltag

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// lookup returns the value stored under key in the current data context.
// Supported contexts are map[string]any, any map keyed by a string type,
// and structs (or pointers to structs), whose exported fields match by name
// or by their `json` tag. Every other value is an empty context.
func lookup(data any, key string) (any, bool) {
	if data == nil {
		return nil, false
	}
	if m, ok := data.(map[string]any); ok {
		v, ok := m[key]
		return v, ok
	}

	v := reflect.ValueOf(data)
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil, false
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		mv := v.MapIndex(reflect.ValueOf(key).Convert(v.Type().Key()))
		if !mv.IsValid() {
			return nil, false
		}
		return mv.Interface(), true
	case reflect.Struct:
		return structField(v, key)
	}
	return nil, false
}

// structField finds an exported field by Go name, then by json tag name.
func structField(v reflect.Value, key string) (any, bool) {
	t := v.Type()
	if f, ok := t.FieldByName(key); ok && f.IsExported() {
		return v.FieldByIndex(f.Index).Interface(), true
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == key {
			return v.Field(i).Interface(), true
		}
	}
	return nil, false
}

// isList reports whether v is a slice or array (byte slices count as scalars).
func isList(v any) bool {
	if v == nil {
		return false
	}
	if _, ok := v.([]byte); ok {
		return false
	}
	k := reflect.TypeOf(v).Kind()
	return k == reflect.Slice || k == reflect.Array
}

// toSlice converts loop data to elements: nil is empty, a list yields its
// elements, anything else is a one-element list.
func toSlice(v any) []any {
	if v == nil {
		return nil
	}
	if items, ok := v.([]any); ok {
		return items
	}
	if !isList(v) {
		return []any{v}
	}
	rv := reflect.ValueOf(v)
	result := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		result[i] = rv.Index(i).Interface()
	}
	return result
}

// stringify renders a data value as cell text. Lists are joined with ",".
func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return formatFloat(x)
	case float32:
		return formatFloat(float64(x))
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case fmt.Stringer:
		return x.String()
	}
	if isList(v) {
		items := toSlice(v)
		parts := make([]string, len(items))
		for i, item := range items {
			parts[i] = stringify(item)
		}
		return strings.Join(parts, ",")
	}
	return fmt.Sprint(v)
}

// formatFloat prints integral floats without a fractional part (3, not 3.0).
func formatFloat(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// inferCellType determines the CellType from a Go value.
func inferCellType(v any) CellType {
	if v == nil {
		return CellBlank
	}
	switch v.(type) {
	case bool:
		return CellBoolean
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return CellNumber
	default:
		return CellString
	}
}
