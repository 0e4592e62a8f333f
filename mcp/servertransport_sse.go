package mcp

import (
	"io"
	"net/http"
	"sync/atomic"
	"time"
)

// SSEServerTransport implements the legacy two-endpoint SSE transport
// (§4.2 "SSE"): a GET endpoint opens the long-lived `data:` stream, and
// inbound JSON-RPC documents arrive on a separate POST endpoint correlated
// by session id. Unlike HTTPServerTransport's streamable-HTTP POST, the
// POST here never carries the reply in its own body — the reply is written
// to the session's open SSE stream, so POST returns 202 Accepted as soon as
// the frame is queued.
type SSEServerTransport struct {
	Sessions *SessionStore

	connected atomic.Bool
	frames    chan *Frame
}

// NewSSEServerTransport builds an SSEServerTransport backed by store (a new
// in-memory SessionStore if nil).
func NewSSEServerTransport(store *SessionStore) *SSEServerTransport {
	if store == nil {
		store = NewSessionStore(0)
	}
	return &SSEServerTransport{Sessions: store, frames: make(chan *Frame, 256)}
}

func (t *SSEServerTransport) Connect() error {
	t.connected.Store(true)
	return nil
}

func (t *SSEServerTransport) IsConnected() bool { return t.connected.Load() }

func (t *SSEServerTransport) Receive() (*Frame, error) {
	select {
	case f := <-t.frames:
		return f, nil
	default:
		return nil, nil
	}
}

func (t *SSEServerTransport) DefaultSink() FrameSink { return broadcastSink{t.Sessions} }

func (t *SSEServerTransport) Close() error {
	t.connected.Store(false)
	return nil
}

// sessionReplySink routes a reply to the session's SSE stream rather than
// back through the POST that delivered the request.
type sessionReplySink struct {
	store *SessionStore
	id    string
}

func (s sessionReplySink) Send(data []byte) error {
	if !s.store.Send(s.id, data) {
		return &TransportError{Kind: "sse", Cause: errUnknownSession(s.id)}
	}
	return nil
}

type errUnknownSession string

func (e errUnknownSession) Error() string { return "mcp: unknown session " + string(e) }

// ServeEvents opens the long-lived SSE stream for a session (GET).
func (t *SSEServerTransport) ServeEvents(w http.ResponseWriter, r *http.Request) {
	sid := r.URL.Query().Get("session_id")
	if sid == "" {
		sid = t.Sessions.Create(time.Now())
	} else {
		t.Sessions.Touch(sid, time.Now())
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	setCORSHeaders(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set(sessionHeader, sid)
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sink := sseWriterSink{w: w, flusher: flusher}
	t.Sessions.AttachSSE(sid, sink)
	defer t.Sessions.DetachSSE(sid)

	<-r.Context().Done()
}

// ServeMessages accepts an inbound JSON-RPC document (POST) and queues it
// for the server loop, replying 202 Accepted once queued.
func (t *SSEServerTransport) ServeMessages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		setCORSHeaders(w)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sid := r.Header.Get(sessionHeader)
	if sid == "" {
		sid = r.URL.Query().Get("session_id")
	}
	if sid == "" || !t.Sessions.Touch(sid, time.Now()) {
		setCORSHeaders(w)
		http.Error(w, "unknown or missing session id", http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 16<<20))
	if err != nil {
		setCORSHeaders(w)
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}

	select {
	case t.frames <- &Frame{Data: body, Sink: sessionReplySink{store: t.Sessions, id: sid}}:
	case <-r.Context().Done():
		return
	}

	setCORSHeaders(w)
	w.WriteHeader(http.StatusAccepted)
}
