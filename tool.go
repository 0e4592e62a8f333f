package ai

import (
	"context"
	"encoding/json"
)

// Schema wraps a JSON Schema document. The zero value is "no schema".
type Schema struct {
	JSON json.RawMessage
}

// JSONSchema wraps raw JSON Schema bytes as a Schema.
func JSONSchema(raw json.RawMessage) Schema {
	return Schema{JSON: raw}
}

// Tool is a callable capability exposed to a model: a name, description, a
// JSON Schema describing its input, and a handler that executes a call.
// MCP's Client.Tools adapts server-advertised tools into this shape.
type Tool struct {
	Name        string
	Description string
	InputSchema Schema

	// Handler receives the raw JSON arguments object (never a missing value;
	// an empty call serializes as "{}") and returns the tool's result or an
	// error.
	Handler func(ctx context.Context, input json.RawMessage) (any, error)
}
