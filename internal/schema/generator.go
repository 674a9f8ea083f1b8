// Package schema derives JSON schemas for tool parameters from Go structs.
package schema

import (
	"fmt"
	"reflect"
	"strings"
)

// For generates a JSON schema object for a parameter struct. Fields are
// described with `json`, `description`, and `schema` tags; a field without
// omitempty is required. Supported schema tag parts: required, enum:a|b|c.
func For(params any) (map[string]any, error) {
	t := reflect.TypeOf(params)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("expected struct, got %s", t.Kind())
	}
	return object(t), nil
}

func object(t reflect.Type) map[string]any {
	properties := make(map[string]any)
	required := []string{}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		jsonTag := field.Tag.Get("json")
		if jsonTag == "-" {
			continue
		}
		name := fieldName(field, jsonTag)

		schemaTag := field.Tag.Get("schema")
		if strings.Contains(schemaTag, "required") || !strings.Contains(jsonTag, "omitempty") {
			required = append(required, name)
		}

		fs := fieldSchema(field.Type)
		if desc := field.Tag.Get("description"); desc != "" {
			fs["description"] = desc
		}
		for _, part := range strings.Split(schemaTag, ",") {
			if v, ok := strings.CutPrefix(strings.TrimSpace(part), "enum:"); ok {
				fs["enum"] = strings.Split(v, "|")
			}
		}

		properties[name] = fs
	}

	out := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		out["required"] = required
	}
	return out
}

func fieldSchema(t reflect.Type) map[string]any {
	switch t.Kind() {
	case reflect.String:
		return map[string]any{"type": "string"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return map[string]any{"type": "integer"}
	case reflect.Float32, reflect.Float64:
		return map[string]any{"type": "number"}
	case reflect.Bool:
		return map[string]any{"type": "boolean"}
	case reflect.Slice:
		return map[string]any{"type": "array", "items": fieldSchema(t.Elem())}
	case reflect.Struct:
		return object(t)
	case reflect.Ptr:
		return fieldSchema(t.Elem())
	default:
		return map[string]any{"type": "string"}
	}
}

func fieldName(field reflect.StructField, jsonTag string) string {
	name := strings.TrimSpace(strings.Split(jsonTag, ",")[0])
	if name == "" {
		return field.Name
	}
	return name
}
