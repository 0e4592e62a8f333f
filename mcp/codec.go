package mcp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Reserved JSON-RPC 2.0 / MCP error codes.
const (
	CodeParseError       int64 = -32700
	CodeInvalidRequest   int64 = -32600
	CodeMethodNotFound   int64 = -32601
	CodeInvalidParams    int64 = -32602
	CodeInternalError    int64 = -32603
	CodeRequestTimeout   int64 = -32001
	CodeResourceNotFound int64 = -32002
)

// MessageKind tags which JSON-RPC shape a Message carries.
type MessageKind int

const (
	KindRequest MessageKind = iota
	KindNotification
	KindResponse
	KindError
	KindParseError
)

func (k MessageKind) String() string {
	switch k {
	case KindRequest:
		return "request"
	case KindNotification:
		return "notification"
	case KindResponse:
		return "response"
	case KindError:
		return "error"
	case KindParseError:
		return "parse-error"
	default:
		return "unknown"
	}
}

// ID is a JSON-RPC request identifier, preserved as its raw JSON encoding so
// string and numeric ids round-trip without a lossy intermediate type. The
// zero value represents "no id" (a notification, or a parse error replying
// with id = null).
type ID json.RawMessage

// NewIntID wraps an integer id.
func NewIntID(v int64) ID { return ID(fmt.Appendf(nil, "%d", v)) }

// NewStringID wraps a string id.
func NewStringID(v string) ID {
	b, _ := json.Marshal(v)
	return ID(b)
}

// IsZero reports whether the id is absent.
func (id ID) IsZero() bool { return len(id) == 0 }

// Equal reports whether two ids carry the same JSON value.
func (id ID) Equal(other ID) bool {
	return bytes.Equal(bytes.TrimSpace(id), bytes.TrimSpace(other))
}

func (id ID) String() string {
	if id.IsZero() {
		return "<none>"
	}
	return string(id)
}

// Message is the parsed, transport-agnostic form of one JSON-RPC 2.0 element
// (see spec §3 "Message"). Exactly the fields relevant to Kind are
// meaningful.
type Message struct {
	Kind MessageKind

	ID     ID
	Method string
	Params json.RawMessage

	Result json.RawMessage

	Code       int64
	ErrMessage string
	ErrData    json.RawMessage
}

// IsNotificationMethod reports whether method names a fire-and-forget
// notification per invariant M2: any method under the notifications/
// namespace never receives a reply, regardless of whether an id was sent.
func IsNotificationMethod(method string) bool {
	return strings.HasPrefix(method, "notifications/")
}

type wireMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *wireError      `json:"error,omitempty"`
}

type wireError struct {
	Code    int64           `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Parse decodes raw bytes as either a single JSON-RPC document or a batch
// array, per invariant M3. Malformed JSON yields a single KindParseError
// message with code -32700; a well-formed JSON value that matches none of
// the Request/Notification/Response/Error shapes yields KindParseError with
// code -32600, one per offending batch element.
func Parse(raw []byte) []Message {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return []Message{newTransportParseError(fmt.Errorf("mcp: empty message"))}
	}
	if raw[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return []Message{newTransportParseError(err)}
		}
		if len(items) == 0 {
			return []Message{newInvalidRequest(fmt.Errorf("mcp: empty batch"))}
		}
		out := make([]Message, 0, len(items))
		for _, item := range items {
			out = append(out, parseOne(item))
		}
		return out
	}
	return []Message{parseOne(raw)}
}

func parseOne(raw json.RawMessage) Message {
	var w wireMessage
	if err := json.Unmarshal(raw, &w); err != nil {
		return newTransportParseError(err)
	}

	switch {
	case w.Method != "" && IsNotificationMethod(w.Method):
		return Message{Kind: KindNotification, Method: w.Method, Params: w.Params}
	case w.Method != "" && len(w.ID) > 0:
		return Message{Kind: KindRequest, ID: ID(w.ID), Method: w.Method, Params: w.Params}
	case w.Method != "":
		return Message{Kind: KindNotification, Method: w.Method, Params: w.Params}
	case w.Error != nil:
		return Message{
			Kind:       KindError,
			ID:         ID(w.ID),
			Code:       w.Error.Code,
			ErrMessage: w.Error.Message,
			ErrData:    w.Error.Data,
		}
	case w.Result != nil:
		return Message{Kind: KindResponse, ID: ID(w.ID), Result: w.Result}
	default:
		return newInvalidRequest(fmt.Errorf("mcp: message has neither method, result, nor error"))
	}
}

func newTransportParseError(cause error) Message {
	return Message{Kind: KindParseError, Code: CodeParseError, ErrMessage: cause.Error()}
}

func newInvalidRequest(cause error) Message {
	return Message{Kind: KindParseError, Code: CodeInvalidRequest, ErrMessage: cause.Error()}
}

// Encode serializes a Message back into a minified JSON-RPC 2.0 document.
func Encode(m Message) []byte {
	w := wireMessage{JSONRPC: "2.0"}

	switch m.Kind {
	case KindRequest:
		w.ID = idBytes(m.ID)
		w.Method = m.Method
		w.Params = nonEmptyObject(m.Params)
	case KindNotification:
		w.Method = m.Method
		w.Params = nonEmptyObject(m.Params)
	case KindResponse:
		w.ID = idBytes(m.ID)
		w.Result = nonEmptyObject(m.Result)
	case KindError, KindParseError:
		w.ID = idBytesOrNull(m.ID)
		w.Error = &wireError{Code: m.Code, Message: m.ErrMessage, Data: m.ErrData}
	}

	b, err := json.Marshal(w)
	if err != nil {
		// Marshal of a wireMessage built entirely from validated fields cannot
		// fail in practice; fall back to a bare internal error document.
		return []byte(fmt.Sprintf(`{"jsonrpc":"2.0","id":null,"error":{"code":%d,"message":"encode failure"}}`, CodeInternalError))
	}
	return b
}

func idBytes(id ID) json.RawMessage {
	if id.IsZero() {
		return nil
	}
	return json.RawMessage(id)
}

func idBytesOrNull(id ID) json.RawMessage {
	if id.IsZero() {
		return json.RawMessage("null")
	}
	return json.RawMessage(id)
}

// nonEmptyObject enforces the "empty params/result serializes as {}, never
// [] or omitted" rule from §4.1.
func nonEmptyObject(raw json.RawMessage) json.RawMessage {
	if len(bytes.TrimSpace(raw)) == 0 {
		return json.RawMessage("{}")
	}
	return raw
}

// NewRequest builds an outbound Request message.
func NewRequest(id ID, method string, params json.RawMessage) Message {
	return Message{Kind: KindRequest, ID: id, Method: method, Params: params}
}

// NewNotification builds an outbound Notification message.
func NewNotification(method string, params json.RawMessage) Message {
	return Message{Kind: KindNotification, Method: method, Params: params}
}

// NewResponse builds a Response message replying to id.
func NewResponse(id ID, result json.RawMessage) Message {
	return Message{Kind: KindResponse, ID: id, Result: result}
}

// NewErrorReply builds an Error message replying to id (id may be zero to
// represent the JSON-RPC "id: null" case for unparsable requests).
func NewErrorReply(id ID, code int64, message string, data json.RawMessage) Message {
	return Message{Kind: KindError, ID: id, Code: code, ErrMessage: message, ErrData: data}
}
