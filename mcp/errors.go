package mcp

import "fmt"

// RPCError is the client-side view of a JSON-RPC error reply (the server
// loop builds the equivalent case as a KindError Message via NewErrorReply).
type RPCError struct {
	Code    int64
	Message string
	Data    []byte
}

func (e *RPCError) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return fmt.Sprintf("mcp rpc error %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("mcp rpc error %d", e.Code)
}

// AuthConfigError reports a missing or invalid field on an AuthProvider
// configuration, caught before any network call is attempted (e.g.
// OAuthClientCredentialsProvider.fetch).
type AuthConfigError struct {
	Provider string
	Field    string
}

func (e *AuthConfigError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("mcp %s: %s is required", e.Provider, e.Field)
}
