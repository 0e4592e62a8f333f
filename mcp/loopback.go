package mcp

import (
	"context"
	"encoding/json"
	"fmt"
)

// LoopbackTransport drives a Client directly against an in-process Handler,
// skipping wire framing entirely. It lets a single process host both halves
// of an MCP connection — a tool server embedding its own Registry and a
// Client built against it — without a subprocess or socket in between, e.g.
// for a dispatcher that wants to treat its own locally-registered tools
// through the same ai.Tool surface as a remote server's.
type LoopbackTransport struct {
	handler *Handler
}

// NewLoopbackTransport builds a LoopbackTransport that dispatches every Call
// through handler.Process.
func NewLoopbackTransport(handler *Handler) *LoopbackTransport {
	return &LoopbackTransport{handler: handler}
}

func (t *LoopbackTransport) Call(ctx context.Context, req json.RawMessage) (json.RawMessage, error) {
	if t.handler == nil {
		return nil, fmt.Errorf("mcp: loopback transport has no handler")
	}
	replies := t.handler.Process(ctx, req)
	if len(replies) == 0 {
		// Notifications and server-bound responses never produce a reply;
		// Call is only ever used for request/response RPCs, so this covers
		// the degenerate empty-object result case.
		return json.RawMessage(`{"jsonrpc":"2.0","id":0,"result":{}}`), nil
	}
	return json.RawMessage(replies[0]), nil
}

func (t *LoopbackTransport) Close() error { return nil }
