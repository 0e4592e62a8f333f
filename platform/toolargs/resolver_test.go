package toolargs

import (
	"encoding/json"
	"errors"
	"testing"
)

const weatherSchema = `{
	"type": "object",
	"properties": {
		"city": {"type": "string"},
		"unit": {"type": "string", "enum": ["celsius", "fahrenheit"], "default": "celsius"},
		"tags": {"type": "array", "items": {"type": "string"}},
		"at": {"type": "string", "format": "date-time"}
	},
	"required": ["city"]
}`

func TestResolveOrdersByNameAndCoerces(t *testing.T) {
	r, err := NewResolver(json.RawMessage(weatherSchema))
	if err != nil {
		t.Fatal(err)
	}
	args, err := r.Resolve(json.RawMessage(`{"city":"Paris","tags":["a","b"],"at":"2024-01-02T15:04:05Z"}`))
	if err != nil {
		t.Fatal(err)
	}
	// Descriptor order is lexical: at, city, tags, unit.
	if len(args) != 4 {
		t.Fatalf("got %d args, want 4: %+v", len(args), args)
	}
	if _, ok := args[0].(interface{ UnixNano() int64 }); !ok {
		t.Fatalf("args[0] (at) = %T, want time.Time", args[0])
	}
	if args[1] != "Paris" {
		t.Fatalf("args[1] (city) = %v, want Paris", args[1])
	}
	tags, ok := args[2].([]any)
	if !ok || len(tags) != 2 {
		t.Fatalf("args[2] (tags) = %v", args[2])
	}
	if args[3] != "celsius" {
		t.Fatalf("args[3] (unit) = %v, want default celsius", args[3])
	}
}

func TestResolveMissingRequired(t *testing.T) {
	r, err := NewResolver(json.RawMessage(weatherSchema))
	if err != nil {
		t.Fatal(err)
	}
	_, err = r.Resolve(json.RawMessage(`{"unit":"fahrenheit"}`))
	var want *MissingRequiredArgError
	if !errors.As(err, &want) {
		t.Fatalf("got %v, want *MissingRequiredArgError", err)
	}
}

func TestResolveUnknownKeysIgnored(t *testing.T) {
	r, err := NewResolver(json.RawMessage(weatherSchema))
	if err != nil {
		t.Fatal(err)
	}
	_, err = r.Resolve(json.RawMessage(`{"city":"Rome","surprise":true}`))
	if err != nil {
		t.Fatalf("unexpected error for forward-compatible unknown key: %v", err)
	}
}

func TestResolveEnumRejectsUnknownValue(t *testing.T) {
	r, err := NewResolver(json.RawMessage(weatherSchema))
	if err != nil {
		t.Fatal(err)
	}
	_, err = r.Resolve(json.RawMessage(`{"city":"Rome","unit":"kelvin"}`))
	if err == nil {
		t.Fatal("expected validation error for out-of-enum unit")
	}
}
