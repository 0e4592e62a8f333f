package mcp

import (
	"encoding/base64"
	"fmt"

	"github.com/loopwire/aikit"
)

// PromptMessagesToAIMessages converts MCP prompt messages into ai.Messages.
// Unknown roles are mapped to ai.RoleUser.
func PromptMessagesToAIMessages(prompt *GetPromptResult) []ai.Message {
	if prompt == nil || len(prompt.Messages) == 0 {
		return nil
	}
	out := make([]ai.Message, 0, len(prompt.Messages))
	for _, m := range prompt.Messages {
		switch m.Role {
		case "system":
			out = append(out, ai.System(m.Content))
		case "assistant":
			out = append(out, ai.Assistant(m.Content))
		case "user":
			out = append(out, ai.User(m.Content))
		default:
			out = append(out, ai.User(m.Content))
		}
	}
	return out
}

// AIMessagesToPromptResult converts ai.Messages into the shape a
// PromptHandler returns, the reverse direction of
// PromptMessagesToAIMessages: it lets a server expose a stored or generated
// conversation (e.g. a prior dispatcher turn) as an MCP prompt. Only each
// message's text is carried across; non-text content parts are dropped.
func AIMessagesToPromptResult(messages []ai.Message) GetPromptResult {
	if len(messages) == 0 {
		return GetPromptResult{}
	}
	out := make([]PromptMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, PromptMessage{Role: string(m.Role), Content: m.Text()})
	}
	return GetPromptResult{Messages: out}
}

// AIMessageToToolResult converts a single ai.Message into the CallToolResult
// shape a ToolHandler returns, the reverse direction of the client's
// text-content unwrapping in Client.callTool: a tool backed by the same
// dispatcher the MCP client talks to can return its reply unchanged.
func AIMessageToToolResult(m ai.Message) CallToolResult {
	return CallToolResult{Content: []ToolContentPart{NewTextToolContent(m.Text())}}
}

// ResourceToSystemMessages converts MCP resource contents into ai.System messages.
// Text contents are included directly; blob contents are included as base64 (and
// decoded bytes are omitted to avoid surprises in prompts).
func ResourceToSystemMessages(resource *ReadResourceResult) []ai.Message {
	if resource == nil || len(resource.Contents) == 0 {
		return nil
	}
	out := make([]ai.Message, 0, len(resource.Contents))
	for _, c := range resource.Contents {
		if c.Text != "" {
			out = append(out, ai.System(fmt.Sprintf("MCP resource %s:\n%s", c.URI, c.Text)))
			continue
		}
		if c.BlobBase64 != "" {
			// Ensure it's valid base64 to avoid injecting invalid data.
			if _, err := base64.StdEncoding.DecodeString(c.BlobBase64); err != nil {
				out = append(out, ai.System(fmt.Sprintf("MCP resource %s: (invalid base64 blob)", c.URI)))
				continue
			}
			mt := c.MediaType
			if mt == "" {
				mt = "application/octet-stream"
			}
			out = append(out, ai.System(fmt.Sprintf("MCP resource %s (%s) base64:\n%s", c.URI, mt, c.BlobBase64)))
		}
	}
	return out
}
