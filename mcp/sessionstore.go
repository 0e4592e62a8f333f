package mcp

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultSessionTTL is how long a session may go unseen before the store
// evicts it (§4.2 "a session that has not been seen for TTL is evicted").
const DefaultSessionTTL = 5 * time.Minute

// session is the HTTP/SSE transport's per-client state: when it was last
// seen, and frames queued for delivery over its SSE stream.
type session struct {
	id              string
	lastSeen        time.Time
	pendingOutbound [][]byte
	sseSink         FrameSink
}

// persistedSession is the on-disk JSON shape for file-backed session stores
// (§6 "Persisted state"): { lastSeen: unix-seconds, pending: [...] }.
type persistedSession struct {
	LastSeen int64             `json:"lastSeen"`
	Pending  []json.RawMessage `json:"pending"`
}

// SessionStore maps opaque session ids to session state with TTL eviction.
// It is safe for concurrent use across HTTP connections (§5 "concurrent
// readers/writers ... last-writer-wins with monotonic lastSeen").
//
// When Dir is non-empty, a session's queued outbound frames and lastSeen are
// written to one JSON file per session under Dir each time Send queues a
// frame, and the file is removed when the session is evicted. The store never
// reads these files back: a new SessionStore starts empty, and eviction keys
// off the in-memory lastSeen only.
type SessionStore struct {
	TTL time.Duration
	Dir string

	mu       sync.Mutex
	sessions map[string]*session
}

// NewSessionStore constructs a SessionStore with the given TTL (0 uses
// DefaultSessionTTL).
func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionStore{TTL: ttl, sessions: map[string]*session{}}
}

// Create mints a new session id and stores it.
func (s *SessionStore) Create(now time.Time) string {
	id := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = &session{id: id, lastSeen: now}
	return id
}

// Touch records that id was seen at now, returning false if the session is
// unknown or has already been evicted.
func (s *SessionStore) Touch(id string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return false
	}
	sess.lastSeen = now
	return true
}

// AttachSSE registers the sink a session's outbound frames (pings, change
// notifications) should be written to, and flushes anything queued while no
// SSE stream was attached.
func (s *SessionStore) AttachSSE(id string, sink FrameSink) bool {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return false
	}
	sess.sseSink = sink
	queued := sess.pendingOutbound
	sess.pendingOutbound = nil
	s.mu.Unlock()

	for _, frame := range queued {
		_ = sink.Send(frame)
	}
	return true
}

// DetachSSE clears the sink when the SSE stream disconnects; subsequent
// sends for the session are queued again.
func (s *SessionStore) DetachSSE(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		sess.sseSink = nil
	}
}

// Send delivers frame to a session's SSE stream if attached, otherwise
// queues it for delivery once a stream attaches.
func (s *SessionStore) Send(id string, frame []byte) bool {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return false
	}
	sink := sess.sseSink
	if sink == nil {
		sess.pendingOutbound = append(sess.pendingOutbound, frame)
		s.mu.Unlock()
		s.persist(sess)
		return true
	}
	s.mu.Unlock()
	_ = sink.Send(frame)
	return true
}

// Evict removes sessions unseen for longer than TTL, returning their ids.
func (s *SessionStore) Evict(now time.Time) []string {
	var evicted []string
	s.mu.Lock()
	for id, sess := range s.sessions {
		if now.Sub(sess.lastSeen) >= s.TTL {
			evicted = append(evicted, id)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	if s.Dir != "" {
		for _, id := range evicted {
			_ = os.Remove(s.sessionFile(id))
		}
	}
	return evicted
}

func (s *SessionStore) sessionFile(id string) string {
	return filepath.Join(s.Dir, id+".json")
}

func (s *SessionStore) persist(sess *session) {
	if s.Dir == "" {
		return
	}
	doc := persistedSession{LastSeen: sess.lastSeen.Unix()}
	for _, p := range sess.pendingOutbound {
		doc.Pending = append(doc.Pending, json.RawMessage(p))
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return
	}
	_ = os.WriteFile(s.sessionFile(sess.id), b, 0o600)
}
