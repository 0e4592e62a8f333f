package mcp

import (
	"fmt"
	"net/http"
)

// ClientError wraps a failure from a specific Client operation, identifying
// the high-level Op (e.g. "initialize", "request") and, where applicable,
// the JSON-RPC Method that was being invoked.
type ClientError struct {
	Op     string
	Method string
	Cause  error
}

func (e *ClientError) Error() string {
	if e == nil {
		return ""
	}
	if e.Method != "" {
		return fmt.Sprintf("mcp: %s %s: %v", e.Op, e.Method, e.Cause)
	}
	return fmt.Sprintf("mcp: %s: %v", e.Op, e.Cause)
}

func (e *ClientError) Unwrap() error { return e.Cause }

// CallToolError wraps a tools/call failure, identifying which tool failed.
type CallToolError struct {
	ToolName string
	Cause    error
}

func (e *CallToolError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("mcp: call tool %q: %v", e.ToolName, e.Cause)
}

func (e *CallToolError) Unwrap() error { return e.Cause }

// HTTPStatusError reports a non-2xx HTTP response from the streamable HTTP
// transport, carrying enough of the exchange to diagnose auth and session
// failures (see IsAuthError, IsRateLimited, IsServerError).
type HTTPStatusError struct {
	Method          string
	URL             string
	StatusCode      int
	Body            []byte
	Headers         http.Header
	SessionID       string
	ProtocolVersion string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("mcp: %s %s: status %d", e.Method, e.URL, e.StatusCode)
}
