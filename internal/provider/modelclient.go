package provider

import (
	"context"
	"fmt"

	"github.com/loopwire/aikit"
	"github.com/loopwire/aikit/platform"
)

// ModelClient adapts the Registry's named Provider implementations into a
// platform.ModelClient: a model's Options["class"] selects which registered
// Provider actually serves the request, so one ModelClient can sit in front
// of any number of concrete providers registered under distinct names.
type ModelClient struct {
	Registry *Registry
}

// NewModelClient wraps registry as a platform.ModelClient.
func NewModelClient(registry *Registry) *ModelClient {
	return &ModelClient{Registry: registry}
}

func (c *ModelClient) providerName(model ai.Model) string {
	if model.Options != nil {
		if class, ok := model.Options["class"].(string); ok && class != "" {
			return class
		}
	}
	return model.Name
}

// Supports reports whether a Provider is registered for model's class (or
// name, absent a class) and the action is chat-shaped.
func (c *ModelClient) Supports(model ai.Model, action ai.Action) bool {
	if action != ai.ActionChat && action != ai.ActionCompleteChat {
		return false
	}
	_, ok := c.Registry.Get(c.providerName(model))
	return ok
}

// Request normalizes payload into a Request and calls the matching
// Provider's Generate, returning its Response for a ResultConverter to
// interpret.
func (c *ModelClient) Request(ctx context.Context, model ai.Model, action ai.Action, payload any) (any, error) {
	p, ok := c.Registry.Get(c.providerName(model))
	if !ok {
		return nil, fmt.Errorf("provider: no provider registered for model %q", model.Name)
	}
	req, ok := payload.(Request)
	if !ok {
		return nil, fmt.Errorf("provider: expected provider.Request payload, got %T", payload)
	}
	req.Model = model.Name
	return p.Generate(ctx, req)
}

// Normalizer turns a dispatcher's []ai.Message input into a provider.Request
// carrying provider.Message values, satisfying platform.Normalizer for the
// "messages" data class.
type Normalizer struct{}

func (Normalizer) DataClass() string { return "messages" }

func (Normalizer) Normalize(ctx context.Context, model ai.Model, input any, opts platform.InvokeOptions) (any, error) {
	msgs, ok := input.([]ai.Message)
	if !ok {
		return nil, fmt.Errorf("provider: expected []ai.Message input, got %T", input)
	}
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = Message{
			Role:       Role(m.Role),
			Content:    toProviderParts(m.Content),
			Name:       m.Name,
			ToolCallID: m.ToolCallID,
		}
	}
	return Request{Messages: out}, nil
}

func toProviderParts(parts []ai.ContentPart) []ContentPart {
	out := make([]ContentPart, 0, len(parts))
	for _, part := range parts {
		switch p := part.(type) {
		case ai.TextPart:
			out = append(out, TextPart{Text: p.Text})
		case ai.ToolCallPart:
			out = append(out, ToolCallPart{ID: p.ID, Name: p.Name, Args: p.Args})
		}
	}
	return out
}

// ResultConverter turns a provider.Response into an ai.Result, satisfying
// ai.ResultConverter for any model whose provider is registered in registry.
type ResultConverter struct {
	Registry *Registry
}

func (c ResultConverter) Supports(model ai.Model) bool {
	name := model.Name
	if model.Options != nil {
		if class, ok := model.Options["class"].(string); ok && class != "" {
			name = class
		}
	}
	_, ok := c.Registry.Get(name)
	return ok
}

func (c ResultConverter) Convert(model ai.Model, raw any) (ai.Result, error) {
	resp, ok := raw.(Response)
	if !ok {
		return ai.Result{}, fmt.Errorf("provider: expected provider.Response, got %T", raw)
	}
	if len(resp.Message.ToolCalls()) > 0 {
		return ai.Result{Kind: ai.ResultToolCalls, ToolCalls: resp.Message.ToolCalls()}, nil
	}
	return ai.Result{Kind: ai.ResultText, Text: resp.Message.Text()}, nil
}

// Text concatenates the text of every TextPart in the message.
func (m Message) Text() string {
	var out string
	for _, part := range m.Content {
		if t, ok := part.(TextPart); ok {
			out += t.Text
		}
	}
	return out
}

// ToolCalls collects every ToolCallPart in the message, converted to the
// shared ai.ToolCallPart shape.
func (m Message) ToolCalls() []ai.ToolCallPart {
	var out []ai.ToolCallPart
	for _, part := range m.Content {
		if tc, ok := part.(ToolCallPart); ok {
			out = append(out, ai.ToolCallPart{ID: tc.ID, Name: tc.Name, Args: tc.Args})
		}
	}
	return out
}
