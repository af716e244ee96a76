package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

var unmarshalerType = reflect.TypeOf((*json.Unmarshaler)(nil)).Elem()

// checkPresence walks raw alongside t and fails on the first required field that
// is missing or null. A field is optional when its json tag has omitempty or its
// Go type is a pointer. Types with their own UnmarshalJSON are not entered.
func checkPresence(raw json.RawMessage, t reflect.Type, path string) error {
	if isNull(raw) {
		return fmt.Errorf("schema: %s is null", path)
	}
	if reflect.PointerTo(t).Implements(unmarshalerType) {
		return nil
	}

	switch t.Kind() {
	case reflect.Struct:
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
			return fmt.Errorf("schema: %s must be an object", path)
		}
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			name, optional := fieldName(f)
			if name == "-" {
				continue
			}
			value, ok := fields[name]
			if !ok || isNull(value) {
				if optional {
					continue
				}
				return fmt.Errorf("schema: %s.%s is required", path, name)
			}
			ft := f.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if err := checkPresence(value, ft, path+"."+name); err != nil {
				return err
			}
		}
	case reflect.Slice, reflect.Array:
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return fmt.Errorf("schema: %s must be an array", path)
		}
		for i, item := range items {
			if err := checkPresence(item, t.Elem(), fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
	}
	return nil
}

func fieldName(f reflect.StructField) (name string, optional bool) {
	name = f.Name
	tag, ok := f.Tag.Lookup("json")
	if ok {
		parts := strings.Split(tag, ",")
		if parts[0] != "" {
			name = parts[0]
		}
		for _, opt := range parts[1:] {
			if opt == "omitempty" {
				optional = true
			}
		}
	}
	if f.Type.Kind() == reflect.Pointer {
		optional = true
	}
	return name, optional
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
