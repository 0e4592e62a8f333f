package toolargs

import (
	"encoding/json"
	"fmt"

	"github.com/loopwire/aikit/internal/schema"
)

// MissingRequiredArgError reports a required parameter absent from the
// inbound arguments object (§4.13 step 1).
type MissingRequiredArgError struct {
	Name string
}

func (e *MissingRequiredArgError) Error() string {
	return fmt.Sprintf("toolargs: missing required argument %q", e.Name)
}

// Resolver validates inbound tool-call arguments against a declared schema
// and reifies them into a positional argument list via a Table.
type Resolver struct {
	schemaJSON json.RawMessage
	table      *Table
}

// NewResolver builds schemaJSON's Table for reification. Validation is
// performed per-call against the same declared schema via internal/schema.
func NewResolver(schemaJSON json.RawMessage) (*Resolver, error) {
	table, err := BuildTable(schemaJSON)
	if err != nil {
		return nil, err
	}
	return &Resolver{schemaJSON: schemaJSON, table: table}, nil
}

// Resolve validates raw against the resolver's schema, then reifies each
// declared parameter into a positional argument list in Table order:
//  1. missing + required is an error; missing + optional uses Default.
//  2. present values are coerced by the descriptor's Decode.
//  3. unknown keys in raw are ignored (forward-compat, §4.13).
//
// All-or-nothing: the first error aborts with no partial result. A failed
// validation that leaves a required parameter absent is reported as
// *MissingRequiredArgError.
func (r *Resolver) Resolve(raw json.RawMessage) ([]any, error) {
	if len(r.schemaJSON) > 0 {
		doc := raw
		if len(doc) == 0 {
			doc = json.RawMessage(`{}`)
		}
		if err := schema.Validate(r.schemaJSON, doc); err != nil {
			var fields map[string]json.RawMessage
			_ = json.Unmarshal(doc, &fields)
			for _, d := range r.table.Descriptors {
				if _, present := fields[d.Name]; d.Required && !present {
					return nil, &MissingRequiredArgError{Name: d.Name}
				}
			}
			return nil, fmt.Errorf("toolargs: validate arguments: %w", err)
		}
	}

	var fields map[string]json.RawMessage
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("toolargs: parse arguments: %w", err)
		}
	}

	args := make([]any, 0, len(r.table.Descriptors))
	for _, d := range r.table.Descriptors {
		fieldRaw, present := fields[d.Name]
		if !present {
			if d.Required {
				return nil, &MissingRequiredArgError{Name: d.Name}
			}
			args = append(args, d.Default)
			continue
		}
		v, err := d.Decode(fieldRaw)
		if err != nil {
			return nil, fmt.Errorf("toolargs: argument %q: %w", d.Name, err)
		}
		args = append(args, v)
	}
	return args, nil
}
