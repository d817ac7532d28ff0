package cache

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// KeySeparator delimits the segments of a serialized cache key.
const KeySeparator = "::"

// defaultKeySerializer produces deterministic keys by walking argument values
// with reflection: basic types print directly, slices and structs recurse,
// map keys are sorted, and anything else falls back to JSON.
type defaultKeySerializer struct{}

// NewDefaultKeySerializer returns the serializer used when callers do not
// supply their own.
func NewDefaultKeySerializer() KeySerializer {
	return defaultKeySerializer{}
}

func (s defaultKeySerializer) SerializeKey(method string, args ...any) string {
	if len(args) == 0 {
		return method
	}
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, method)
	for _, arg := range args {
		parts = append(parts, s.serialize(arg))
	}
	return strings.Join(parts, KeySeparator)
}

func (s defaultKeySerializer) serialize(v any) string {
	if v == nil {
		return "nil"
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return "nil"
		}
		return s.serialize(rv.Elem().Interface())

	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return "[]"
		}
		parts := make([]string, rv.Len())
		for i := range parts {
			parts[i] = s.serialize(rv.Index(i).Interface())
		}
		return "[" + strings.Join(parts, ",") + "]"

	case reflect.Map:
		if rv.IsNil() {
			return "{}"
		}
		pairs := make([]string, 0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			pairs = append(pairs, s.serialize(iter.Key().Interface())+"="+s.serialize(iter.Value().Interface()))
		}
		sort.Strings(pairs)
		return "{" + strings.Join(pairs, ",") + "}"

	case reflect.Struct:
		rt := rv.Type()
		parts := make([]string, 0, rv.NumField())
		for i := 0; i < rv.NumField(); i++ {
			f := rt.Field(i)
			if !f.IsExported() {
				continue
			}
			parts = append(parts, f.Name+":"+s.serialize(rv.Field(i).Interface()))
		}
		return "(" + strings.Join(parts, ",") + ")"

	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.String:
		return fmt.Sprintf("%v", rv.Interface())

	default:
		if data, err := json.Marshal(v); err == nil {
			return string(data)
		}
		return fmt.Sprintf("%T", v)
	}
}
