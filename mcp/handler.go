package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// RequestHandler answers one inbound JSON-RPC request, returning the value
// to be marshaled as the Response's result. Returning an *InvalidParamsError
// or *ResourceNotFoundErr maps to the matching JSON-RPC error code (§7); any
// other error maps to InternalError (-32603).
type RequestHandler func(ctx context.Context, params json.RawMessage) (any, error)

// NotificationHandler reacts to an inbound notification; it returns nothing
// because notifications never receive a reply (invariant M2).
type NotificationHandler func(ctx context.Context, params json.RawMessage)

// InvalidParamsError marks a request's params as malformed per the handler's
// own validation, mapping to JSON-RPC code -32602.
type InvalidParamsError struct{ Err error }

func (e *InvalidParamsError) Error() string { return e.Err.Error() }
func (e *InvalidParamsError) Unwrap() error { return e.Err }

// ResourceNotFoundErr marks an unknown resources/read uri, mapping to
// JSON-RPC code -32002.
type ResourceNotFoundErr struct{ URI string }

func (e *ResourceNotFoundErr) Error() string {
	return fmt.Sprintf("mcp: resource not found: %s", e.URI)
}

// Handler is the JSON-RPC dispatch table (C5): it classifies each parsed
// Message and routes it to a registered method handler, a notification
// listener, or the pending-response bag.
type Handler struct {
	Registry *Registry
	Pending  *PendingBag

	ServerInfo      ServerInfo
	ProtocolVersion string
	Instructions    string

	initialized atomic.Bool

	mu        sync.RWMutex
	methods   map[string]RequestHandler
	listeners map[string][]NotificationHandler

	OnInternalError func(method string, err error)
}

// NewHandler builds a Handler wired to registry and pending, with the
// minimum MCP method set (§6) pre-registered.
func NewHandler(registry *Registry, pending *PendingBag, serverInfo ServerInfo, protocolVersion string) *Handler {
	h := &Handler{
		Registry:        registry,
		Pending:         pending,
		ServerInfo:      serverInfo,
		ProtocolVersion: protocolVersion,
		methods:         map[string]RequestHandler{},
		listeners:       map[string][]NotificationHandler{},
	}
	h.registerBuiltins()
	h.OnNotification("notifications/initialized", func(ctx context.Context, _ json.RawMessage) {
		h.initialized.Store(true)
	})
	return h
}

// Initialized reports whether notifications/initialized has been observed.
func (h *Handler) Initialized() bool { return h.initialized.Load() }

// RegisterMethod adds (or replaces) a request handler for method, letting
// callers extend the dispatch table beyond the built-in MCP methods.
func (h *Handler) RegisterMethod(method string, fn RequestHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.methods[method] = fn
}

// OnNotification subscribes fn to inbound notifications for method.
func (h *Handler) OnNotification(method string, fn NotificationHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners[method] = append(h.listeners[method], fn)
}

func (h *Handler) methodHandler(method string) (RequestHandler, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	fn, ok := h.methods[method]
	return fn, ok
}

func (h *Handler) notificationHandlers(method string) []NotificationHandler {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]NotificationHandler{}, h.listeners[method]...)
}

// Process parses raw (a single document or a batch) and dispatches each
// element, returning the encoded reply for every Request in input order;
// notifications yield nothing (M3) and Response/Error elements are routed to
// Pending rather than replied to.
func (h *Handler) Process(ctx context.Context, raw []byte) [][]byte {
	msgs := Parse(raw)
	var replies [][]byte

	for _, msg := range msgs {
		switch msg.Kind {
		case KindRequest:
			replies = append(replies, Encode(h.handleRequest(ctx, msg)))
		case KindNotification:
			for _, fn := range h.notificationHandlers(msg.Method) {
				fn(ctx, msg.Params)
			}
		case KindResponse, KindError:
			h.Pending.Resolve(msg)
		case KindParseError:
			replies = append(replies, Encode(NewErrorReply(msg.ID, msg.Code, msg.ErrMessage, nil)))
		}
	}
	return replies
}

func (h *Handler) handleRequest(ctx context.Context, msg Message) Message {
	fn, ok := h.methodHandler(msg.Method)
	if !ok {
		return NewErrorReply(msg.ID, CodeMethodNotFound, fmt.Sprintf("method not found: %s", msg.Method), nil)
	}

	result, err := fn(ctx, msg.Params)
	if err == nil {
		b, merr := json.Marshal(result)
		if merr != nil {
			return NewErrorReply(msg.ID, CodeInternalError, merr.Error(), nil)
		}
		return NewResponse(msg.ID, b)
	}

	var invalid *InvalidParamsError
	if errors.As(err, &invalid) {
		return NewErrorReply(msg.ID, CodeInvalidParams, invalid.Error(), nil)
	}
	var notFound *ResourceNotFoundErr
	if errors.As(err, &notFound) {
		return NewErrorReply(msg.ID, CodeResourceNotFound, notFound.Error(), nil)
	}

	if h.OnInternalError != nil {
		h.OnInternalError(msg.Method, err)
	}
	return NewErrorReply(msg.ID, CodeInternalError, err.Error(), nil)
}
