package mcp

import (
	"context"
	"encoding/json"
	"fmt"
)

// registerBuiltins wires the minimum MCP method set (§6) into the dispatch
// table: initialize, ping, and list/call/read/get across the four
// capability kinds.
func (h *Handler) registerBuiltins() {
	h.RegisterMethod("initialize", h.handleInitialize)
	h.RegisterMethod("ping", h.handlePing)
	h.RegisterMethod("tools/list", h.handleToolsList)
	h.RegisterMethod("tools/call", h.handleToolsCall)
	h.RegisterMethod("prompts/list", h.handlePromptsList)
	h.RegisterMethod("prompts/get", h.handlePromptsGet)
	h.RegisterMethod("resources/list", h.handleResourcesList)
	h.RegisterMethod("resources/read", h.handleResourcesRead)
	h.RegisterMethod("resources/templates/list", h.handleResourceTemplatesList)
}

func (h *Handler) handleInitialize(ctx context.Context, params json.RawMessage) (any, error) {
	var req InitializeRequest
	if len(params) > 0 {
		if err := json.Unmarshal(params, &req); err != nil {
			return nil, &InvalidParamsError{Err: err}
		}
	}
	return InitializeResult{
		ProtocolVersion: h.ProtocolVersion,
		ServerInfo:      h.ServerInfo,
		Instructions:    h.Instructions,
		Capabilities: map[string]any{
			"tools":     map[string]any{"listChanged": true},
			"prompts":   map[string]any{"listChanged": true},
			"resources": map[string]any{"listChanged": true},
		},
	}, nil
}

func (h *Handler) handlePing(ctx context.Context, params json.RawMessage) (any, error) {
	return map[string]any{}, nil
}

type listParams struct {
	Cursor string `json:"cursor,omitempty"`
}

func (h *Handler) handleToolsList(ctx context.Context, params json.RawMessage) (any, error) {
	var p listParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, &InvalidParamsError{Err: err}
		}
	}
	entries, next, err := h.Registry.List(KindTool, p.Cursor)
	if err != nil {
		return nil, &InvalidParamsError{Err: err}
	}
	tools := make([]ToolInfo, 0, len(entries))
	for _, e := range entries {
		tools = append(tools, ToolInfo{Name: e.Name, Description: e.Description, InputSchema: e.InputSchema})
	}
	return struct {
		Tools      []ToolInfo `json:"tools"`
		NextCursor string     `json:"nextCursor,omitempty"`
	}{Tools: tools, NextCursor: next}, nil
}

func (h *Handler) handleToolsCall(ctx context.Context, params json.RawMessage) (any, error) {
	var p callToolParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, &InvalidParamsError{Err: err}
	}
	entry, ok := h.Registry.Get(KindTool, p.Name)
	if !ok || entry.ToolHandler == nil {
		return nil, &InvalidParamsError{Err: fmt.Errorf("unknown tool %q", p.Name)}
	}
	args, err := json.Marshal(p.Arguments)
	if err != nil {
		return nil, &InvalidParamsError{Err: err}
	}
	if len(args) == 0 || string(args) == "null" {
		args = json.RawMessage("{}")
	}
	return entry.ToolHandler(ctx, args)
}

func (h *Handler) handlePromptsList(ctx context.Context, params json.RawMessage) (any, error) {
	var p listParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, &InvalidParamsError{Err: err}
		}
	}
	entries, next, err := h.Registry.List(KindPrompt, p.Cursor)
	if err != nil {
		return nil, &InvalidParamsError{Err: err}
	}
	prompts := make([]PromptInfo, 0, len(entries))
	for _, e := range entries {
		prompts = append(prompts, PromptInfo{Name: e.Name, Description: e.Description})
	}
	return struct {
		Prompts    []PromptInfo `json:"prompts"`
		NextCursor string       `json:"nextCursor,omitempty"`
	}{Prompts: prompts, NextCursor: next}, nil
}

func (h *Handler) handlePromptsGet(ctx context.Context, params json.RawMessage) (any, error) {
	var p GetPromptParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, &InvalidParamsError{Err: err}
	}
	entry, ok := h.Registry.Get(KindPrompt, p.Name)
	if !ok || entry.PromptHandler == nil {
		return nil, &InvalidParamsError{Err: fmt.Errorf("unknown prompt %q", p.Name)}
	}
	return entry.PromptHandler(ctx, p.Arguments)
}

func (h *Handler) handleResourcesList(ctx context.Context, params json.RawMessage) (any, error) {
	var p listParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, &InvalidParamsError{Err: err}
		}
	}
	entries, next, err := h.Registry.List(KindResource, p.Cursor)
	if err != nil {
		return nil, &InvalidParamsError{Err: err}
	}
	resources := make([]ResourceInfo, 0, len(entries))
	for _, e := range entries {
		resources = append(resources, ResourceInfo{URI: e.Name, Description: e.Description, MediaType: e.MediaType})
	}
	return struct {
		Resources  []ResourceInfo `json:"resources"`
		NextCursor string         `json:"nextCursor,omitempty"`
	}{Resources: resources, NextCursor: next}, nil
}

func (h *Handler) handleResourcesRead(ctx context.Context, params json.RawMessage) (any, error) {
	var p ReadResourceParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, &InvalidParamsError{Err: err}
	}
	entry, ok := h.Registry.Get(KindResource, p.URI)
	if !ok || entry.ResourceHandler == nil {
		return nil, &ResourceNotFoundErr{URI: p.URI}
	}
	return entry.ResourceHandler(ctx, p.URI)
}

func (h *Handler) handleResourceTemplatesList(ctx context.Context, params json.RawMessage) (any, error) {
	var p listParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, &InvalidParamsError{Err: err}
		}
	}
	entries, next, err := h.Registry.List(KindResourceTemplate, p.Cursor)
	if err != nil {
		return nil, &InvalidParamsError{Err: err}
	}
	templates := make([]ResourceTemplateInfo, 0, len(entries))
	for _, e := range entries {
		templates = append(templates, ResourceTemplateInfo{URITemplate: e.Name, Description: e.Description, MediaType: e.MediaType})
	}
	return struct {
		ResourceTemplates []ResourceTemplateInfo `json:"resourceTemplates"`
		NextCursor        string                 `json:"nextCursor,omitempty"`
	}{ResourceTemplates: templates, NextCursor: next}, nil
}
