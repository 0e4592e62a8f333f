// Package toolargs reifies inbound JSON tool-call arguments into a typed,
// positional argument list ready to invoke a handler (C13).
//
// Descriptors are built once, at registration time, by parsing a tool's
// declared JSON Schema "properties"/"required" into a small decoder table
// keyed by name, instead of re-walking the schema via reflection on every
// call. Schema *validation* (reporting whether a whole argument object
// satisfies the schema) still goes through jsonschema/v5 the way
// internal/schema/validate.go wraps it; Resolve in resolver.go calls that
// first and only reifies afterward.
package toolargs

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// TypeTag names the coercion a Descriptor applies to its raw JSON value.
type TypeTag string

const (
	TypeString   TypeTag = "string"
	TypeNumber   TypeTag = "number"
	TypeInteger  TypeTag = "integer"
	TypeBoolean  TypeTag = "boolean"
	TypeDateTime TypeTag = "date-time"
	TypeEnum     TypeTag = "enum"
	TypeArray    TypeTag = "array"
	TypeObject   TypeTag = "object"
)

// Descriptor is one resolved parameter: its name, whether a missing key is
// an error, its default when optional and absent, its type tag for
// documentation, and the decoder that turns a raw JSON value into the
// typed argument a handler expects.
type Descriptor struct {
	Name     string
	Required bool
	Default  any
	Type     TypeTag
	Decode   func(raw json.RawMessage) (any, error)
}

// Table is the ordered descriptor set for one tool, built once at
// registration time and reused for every call. Order is the parameter
// name sorted lexically, so the positional argument list Resolve returns
// is deterministic across calls.
type Table struct {
	Descriptors []Descriptor
}

// rawSchema is the subset of JSON Schema BuildTable understands: an object
// type with named properties, each carrying its own type/format/enum/items.
type rawSchema struct {
	Type       string               `json:"type"`
	Properties map[string]rawSchema `json:"properties"`
	Required   []string             `json:"required"`
	Format     string               `json:"format"`
	Enum       []any                `json:"enum"`
	Items      *rawSchema           `json:"items"`
	Default    any                  `json:"default"`
}

// BuildTable parses schemaJSON and walks its top-level object properties
// into a Table. schemaJSON must describe a JSON Schema object type with
// "properties" and, optionally, "required".
func BuildTable(schemaJSON json.RawMessage) (*Table, error) {
	var root rawSchema
	if len(schemaJSON) > 0 {
		if err := json.Unmarshal(schemaJSON, &root); err != nil {
			return nil, fmt.Errorf("toolargs: parse schema: %w", err)
		}
	}

	required := make(map[string]bool, len(root.Required))
	for _, name := range root.Required {
		required[name] = true
	}

	names := make([]string, 0, len(root.Properties))
	for name := range root.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	descriptors := make([]Descriptor, 0, len(names))
	for _, name := range names {
		prop := root.Properties[name]
		tag, decode := coercionFor(prop)
		descriptors = append(descriptors, Descriptor{
			Name:     name,
			Required: required[name],
			Default:  prop.Default,
			Type:     tag,
			Decode:   decode,
		})
	}
	return &Table{Descriptors: descriptors}, nil
}

func coercionFor(schema rawSchema) (TypeTag, func(json.RawMessage) (any, error)) {
	switch schema.Type {
	case "string":
		if schema.Format == "date-time" {
			return TypeDateTime, decodeDateTime
		}
		if len(schema.Enum) > 0 {
			return TypeEnum, enumDecoder(schema.Enum)
		}
		return TypeString, decodeString
	case "number":
		return TypeNumber, decodeNumber
	case "integer":
		return TypeInteger, decodeInteger
	case "boolean":
		return TypeBoolean, decodeBool
	case "array":
		elemDecode := decodeAny
		if schema.Items != nil {
			_, elemDecode = coercionFor(*schema.Items)
		}
		return TypeArray, arrayDecoder(elemDecode)
	default:
		return TypeObject, decodeAny
	}
}

func decodeAny(raw json.RawMessage) (any, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func decodeString(raw json.RawMessage) (any, error) {
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("toolargs: expected string: %w", err)
	}
	return v, nil
}

func decodeNumber(raw json.RawMessage) (any, error) {
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("toolargs: expected number: %w", err)
	}
	return v, nil
}

func decodeInteger(raw json.RawMessage) (any, error) {
	var v int64
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("toolargs: expected integer: %w", err)
	}
	return v, nil
}

func decodeBool(raw json.RawMessage) (any, error) {
	var v bool
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("toolargs: expected boolean: %w", err)
	}
	return v, nil
}

func decodeDateTime(raw json.RawMessage) (any, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("toolargs: expected RFC 3339 string: %w", err)
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("toolargs: invalid RFC 3339 date-time %q: %w", s, err)
	}
	return t, nil
}

func enumDecoder(allowed []any) func(json.RawMessage) (any, error) {
	return func(raw json.RawMessage) (any, error) {
		v, err := decodeAny(raw)
		if err != nil {
			return nil, err
		}
		for _, a := range allowed {
			if a == v {
				return v, nil
			}
		}
		return nil, fmt.Errorf("toolargs: value %v is not one of %v", v, allowed)
	}
}

func arrayDecoder(elemDecode func(json.RawMessage) (any, error)) func(json.RawMessage) (any, error) {
	return func(raw json.RawMessage) (any, error) {
		var rawElems []json.RawMessage
		if err := json.Unmarshal(raw, &rawElems); err != nil {
			return nil, fmt.Errorf("toolargs: expected array: %w", err)
		}
		out := make([]any, len(rawElems))
		for i, elem := range rawElems {
			v, err := elemDecode(elem)
			if err != nil {
				return nil, fmt.Errorf("toolargs: array element %d: %w", i, err)
			}
			out[i] = v
		}
		return out, nil
	}
}
