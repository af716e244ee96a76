package codec

import (
	"encoding"
	"encoding/json"
	"reflect"
	"strconv"
	"strings"
)

var (
	marshalerType     = reflect.TypeOf((*json.Marshaler)(nil)).Elem()
	textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
)

// Normalize walks v depth-first and replaces every byte buffer with the ordered
// list of its byte values, so encoding/json emits [1,2,3] instead of base64.
//
//   - []byte, Bytes, [N]byte       → []int
//   - map[K]T (string/int keys)    → map[string]any, values normalized
//   - other slices and arrays      → []any, elements normalized
//   - structs                      → map[string]any laid out like encoding/json
//     (tag names, omitempty, "-", ",string", embedded fields promoted)
//   - pointers                     → normalized target (nil unchanged)
//   - json.Marshaler, TextMarshaler → unchanged, they encode themselves
//   - scalars                      → unchanged
//
// Normalize must not be given cyclic values.
func Normalize(v any) any {
	if v == nil {
		return nil
	}
	switch b := v.(type) {
	case json.RawMessage:
		return b
	case Bytes:
		return byteValues(b)
	case []byte:
		return byteValues(b)
	case []any:
		out := make([]any, len(b))
		for i, e := range b {
			out[i] = Normalize(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(b))
		for k, e := range b {
			out[k] = Normalize(e)
		}
		return out
	}
	return normalizeValue(reflect.ValueOf(v), v)
}

func normalizeValue(rv reflect.Value, orig any) any {
	if t := rv.Type(); t.Implements(marshalerType) || t.Implements(textMarshalerType) {
		return orig
	}

	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return orig
		}
		return Normalize(rv.Elem().Interface())
	case reflect.Struct:
		return normalizeStruct(rv)
	case reflect.Slice:
		if rv.IsNil() {
			return orig
		}
		fallthrough
	case reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			out := make([]int, rv.Len())
			for i := range out {
				out[i] = int(rv.Index(i).Uint())
			}
			return out
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = Normalize(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		if rv.IsNil() {
			return orig
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			key, ok := mapKey(iter.Key())
			if !ok {
				return orig
			}
			out[key] = Normalize(iter.Value().Interface())
		}
		return out
	}
	return orig
}

// mapKey renders a map key the way encoding/json does for the kinds it needs.
func mapKey(k reflect.Value) (string, bool) {
	switch k.Kind() {
	case reflect.String:
		return k.String(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(k.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(k.Uint(), 10), true
	}
	return "", false
}

// structField is one candidate JSON member of a struct, possibly promoted from
// an embedded struct.
type structField struct {
	name   string
	depth  int
	tagged bool
	value  any
}

func normalizeStruct(rv reflect.Value) map[string]any {
	var fields []structField
	collectFields(rv, 0, &fields)

	// Same rule as encoding/json: the shallowest field wins; at equal depth a
	// single tagged field wins; any other tie drops the name.
	byName := make(map[string][]structField)
	var order []string
	for _, f := range fields {
		if _, seen := byName[f.name]; !seen {
			order = append(order, f.name)
		}
		byName[f.name] = append(byName[f.name], f)
	}

	out := make(map[string]any, len(order))
	for _, name := range order {
		if f, ok := dominantField(byName[name]); ok {
			out[name] = f.value
		}
	}
	return out
}

func dominantField(candidates []structField) (structField, bool) {
	minDepth := candidates[0].depth
	for _, f := range candidates[1:] {
		if f.depth < minDepth {
			minDepth = f.depth
		}
	}
	var top []structField
	for _, f := range candidates {
		if f.depth == minDepth {
			top = append(top, f)
		}
	}
	if len(top) == 1 {
		return top[0], true
	}
	var tagged []structField
	for _, f := range top {
		if f.tagged {
			tagged = append(tagged, f)
		}
	}
	if len(tagged) == 1 {
		return tagged[0], true
	}
	return structField{}, false
}

func collectFields(rv reflect.Value, depth int, out *[]structField) {
	t := rv.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		tag := sf.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		fv := rv.Field(i)

		if sf.Anonymous && name == "" {
			ft := sf.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				if fv.Kind() == reflect.Pointer {
					if fv.IsNil() {
						continue
					}
					fv = fv.Elem()
				}
				// Exported fields of an unexported embedded struct stay readable.
				collectFields(fv, depth+1, out)
				continue
			}
		}
		if !sf.IsExported() || !fv.CanInterface() {
			continue
		}
		tagged := name != ""
		if !tagged {
			name = sf.Name
		}

		if hasOption(opts, "omitempty") && isEmptyValue(fv) {
			continue
		}
		value := Normalize(fv.Interface())
		if hasOption(opts, "string") && isQuotable(fv.Kind()) {
			if b, err := json.Marshal(fv.Interface()); err == nil {
				value = string(b)
			}
		}
		*out = append(*out, structField{name: name, depth: depth, tagged: tagged, value: value})
	}
}

func hasOption(opts, want string) bool {
	for opts != "" {
		var opt string
		opt, opts, _ = strings.Cut(opts, ",")
		if opt == want {
			return true
		}
	}
	return false
}

func isQuotable(k reflect.Kind) bool {
	switch k {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// isEmptyValue matches encoding/json's omitempty test.
func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Interface, reflect.Pointer:
		return v.IsNil()
	}
	return false
}

func byteValues(b []byte) []int {
	out := make([]int, len(b))
	for i, v := range b {
		out[i] = int(v)
	}
	return out
}
