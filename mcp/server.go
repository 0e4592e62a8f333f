package mcp

import (
	"bytes"
	"context"
	"sync/atomic"
	"time"
)

// ServerOptions configures NewServer; all fields are optional and default
// to the values spec.md names explicitly (protocol handshake aside, which
// callers must set).
type ServerOptions struct {
	ProtocolVersion string
	ServerInfo      ServerInfo
	Instructions    string

	PageLimit         int
	PendingTTL        time.Duration
	KeepAliveInterval time.Duration
	StrictKeepAlive   bool

	OnTransportError func(err error)
	OnPingError      func(err error)
	OnPendingTimeout func(entry PendingEntry)

	// LoopIdleSleep overrides the server loop's per-iteration sleep
	// (§4.7 "sleep(1 ms)"); zero uses 1ms.
	LoopIdleSleep time.Duration
}

// Server wires C2 (ServerTransport) through C6 (Registry) via C5 (Handler),
// running the receive-dispatch-send-gc-tick loop described in §4.7.
type Server struct {
	Registry  *Registry
	Handler   *Handler
	Pending   *PendingBag
	KeepAlive *KeepAlive
	Transport ServerTransport

	idleSleep    time.Duration
	onTransport  func(err error)
	onPendingTO  func(entry PendingEntry)
	nextOutgoing atomic.Int64
}

// NewServer builds a Server over transport with the given options.
func NewServer(transport ServerTransport, opts ServerOptions) *Server {
	pageLimit := opts.PageLimit
	if pageLimit <= 0 {
		pageLimit = DefaultPageLimit
	}
	ttl := opts.PendingTTL
	if ttl <= 0 {
		ttl = DefaultPendingTTL
	}

	registry := NewRegistry()
	registry.PageLimit = pageLimit
	pending := NewPendingBag(ttl)
	handler := NewHandler(registry, pending, opts.ServerInfo, opts.ProtocolVersion)
	handler.Instructions = opts.Instructions

	ka := NewKeepAlive(opts.KeepAliveInterval, opts.StrictKeepAlive)
	ka.OnPingError = opts.OnPingError

	idleSleep := opts.LoopIdleSleep
	if idleSleep <= 0 {
		idleSleep = time.Millisecond
	}

	s := &Server{
		Registry:    registry,
		Handler:     handler,
		Pending:     pending,
		KeepAlive:   ka,
		Transport:   transport,
		idleSleep:   idleSleep,
		onTransport: opts.OnTransportError,
		onPendingTO: opts.OnPendingTimeout,
	}

	registry.OnChange(func(ev ChangeEvent) {
		s.broadcast(NewNotification(ev.notificationMethod(), nil))
	})

	return s
}

// Run drives the server loop until the transport disconnects, ctx is
// canceled, or a transport error occurs; it always closes the transport and
// stops the keep-alive ticker before returning (§4.7).
func (s *Server) Run(ctx context.Context) error {
	if err := s.Transport.Connect(); err != nil {
		return err
	}
	s.KeepAlive.Start(time.Now())

	var loopErr error
loop:
	for s.Transport.IsConnected() {
		select {
		case <-ctx.Done():
			loopErr = ctx.Err()
			break loop
		default:
		}

		for {
			frame, err := s.Transport.Receive()
			if err != nil {
				loopErr = err
				s.reportTransportError(err)
				break loop
			}
			if frame == nil {
				break
			}
			replies := s.Handler.Process(ctx, frame.Data)
			// A batch frame gets its replies back as one batch document (M3).
			if trimmed := bytes.TrimSpace(frame.Data); len(replies) > 0 && len(trimmed) > 0 && trimmed[0] == '[' {
				replies = [][]byte{append(append([]byte{'['}, bytes.Join(replies, []byte{','})...), ']')}
			}
			for _, reply := range replies {
				_ = frame.Sink.Send(reply)
			}
		}

		s.Pending.GC(time.Now(), func(e PendingEntry, _ Message) {
			if s.onPendingTO != nil {
				s.onPendingTO(e)
			}
		})

		if err := s.KeepAlive.Tick(time.Now(), s.sendPing); err != nil {
			loopErr = err
			s.reportTransportError(err)
			break loop
		}

		time.Sleep(s.idleSleep)
	}

	s.KeepAlive.Stop()
	if err := s.Transport.Close(); err != nil && loopErr == nil {
		loopErr = err
	}
	return loopErr
}

func (s *Server) reportTransportError(err error) {
	if s.onTransport != nil {
		s.onTransport(err)
	}
}

// sendPing writes an outbound ping request; it reports an error only when
// the transport write itself fails, not when the client never replies (a
// missed pong times out through the pending bag like any other request).
func (s *Server) sendPing() error {
	id := s.nextOutgoing.Add(1)
	req := NewRequest(NewIntID(id), "ping", nil)
	s.Pending.Add(PendingEntry{ID: req.ID, SentAt: time.Now()})
	return s.Transport.DefaultSink().Send(Encode(req))
}

// broadcast sends msg to every connected peer via the transport's default
// sink (used for keep-alive pings' sibling traffic: capability-change
// notifications). It is a no-op while no transport is set.
func (s *Server) broadcast(msg Message) {
	if s.Transport == nil {
		return
	}
	_ = s.Transport.DefaultSink().Send(Encode(msg))
}
