// Package mcp implements the Model Context Protocol: a bidirectional
// JSON-RPC 2.0 runtime exposing tools, prompts, and resources over stdio,
// streamable HTTP, and SSE transports.
//
// Client adapts server-advertised tools into ai.Tool values; Server and
// Registry implement the capability-hosting side of the protocol.
package mcp
