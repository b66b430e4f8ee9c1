package apikit

import (
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
)

// JSONSchema represents a JSON Schema object (subset for OpenAPI 3.1).
type JSONSchema struct {
	Type        string                `json:"type,omitempty"`
	Format      string                `json:"format,omitempty"`
	Properties  map[string]JSONSchema `json:"properties,omitempty"`
	Items       *JSONSchema           `json:"items,omitempty"`
	Required    []string              `json:"required,omitempty"`
	Description string                `json:"description,omitempty"`
	Enum        []string              `json:"enum,omitempty"`
	Pattern     string                `json:"pattern,omitempty"`
	MinLength   *int                  `json:"minLength,omitempty"`
	MaxLength   *int                  `json:"maxLength,omitempty"`

	// AdditionalProperties can be true (any) or a schema.
	AdditionalProperties *JSONSchema `json:"additionalProperties,omitempty"`
}

// typeToSchema converts a reflect.Type to a JSONSchema. seen guards
// against self-referencing structs.
func typeToSchema(t reflect.Type, seen map[reflect.Type]bool) JSONSchema {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	switch t {
	case reflect.TypeFor[time.Time]():
		return JSONSchema{Type: "string", Format: "date-time"}
	case reflect.TypeFor[time.Duration]():
		return JSONSchema{Type: "string", Format: "duration"}
	case reflect.TypeFor[uuid.UUID]():
		return JSONSchema{Type: "string", Format: "uuid"}
	case reflect.TypeFor[Void]():
		return JSONSchema{}
	}

	//exhaustive:ignore
	switch t.Kind() {
	case reflect.String:
		return JSONSchema{Type: "string"}
	case reflect.Bool:
		return JSONSchema{Type: "boolean"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return JSONSchema{Type: "integer"}
	case reflect.Float32, reflect.Float64:
		return JSONSchema{Type: "number"}
	case reflect.Slice, reflect.Array:
		if t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8 {
			return JSONSchema{Type: "string", Format: "byte"}
		}
		items := typeToSchema(t.Elem(), seen)
		return JSONSchema{Type: "array", Items: &items}
	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return JSONSchema{Type: "object"}
		}
		val := typeToSchema(t.Elem(), seen)
		return JSONSchema{Type: "object", AdditionalProperties: &val}
	case reflect.Struct:
		if seen[t] {
			return JSONSchema{Type: "object"}
		}
		seen[t] = true
		defer delete(seen, t)
		return structToSchema(t, seen)
	default:
		return JSONSchema{}
	}
}

// structToSchema converts a struct type to an object schema. Parameter
// fields are skipped; embedded structs are flattened the way encoding/json
// flattens them.
func structToSchema(t reflect.Type, seen map[reflect.Type]bool) JSONSchema {
	schema := JSONSchema{
		Type:       "object",
		Properties: make(map[string]JSONSchema),
	}
	addFields(&schema, t, seen)
	return schema
}

func addFields(schema *JSONSchema, t reflect.Type, seen map[reflect.Type]bool) {
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() || isParamField(f) {
			continue
		}
		if f.Anonymous && f.Type.Kind() == reflect.Struct && f.Tag.Get("json") == "" {
			addFields(schema, f.Type, seen)
			continue
		}

		name := jsonFieldName(f)
		if name == "-" {
			continue
		}

		prop := typeToSchema(f.Type, seen)
		applyConstraints(&prop, f)
		schema.Properties[name] = prop

		if f.Tag.Get("required") == "true" {
			schema.Required = append(schema.Required, name)
		}
	}
}

// applyConstraints documents the constraint tags enforced by Validate.
func applyConstraints(s *JSONSchema, f reflect.StructField) {
	if doc := f.Tag.Get("doc"); doc != "" {
		s.Description = doc
	}
	if enum := f.Tag.Get("enum"); enum != "" {
		s.Enum = strings.Split(enum, ",")
	}
	if p := f.Tag.Get("pattern"); p != "" {
		s.Pattern = p
	}
	if n, ok := intTag(f, "minLength"); ok {
		s.MinLength = &n
	}
	if n, ok := intTag(f, "maxLength"); ok {
		s.MaxLength = &n
	}
}
