package mcp

import (
	"sync"
	"time"
)

// DefaultPendingTTL is the time a PendingBag entry waits for a reply before
// gc synthesizes a RequestTimeout.
const DefaultPendingTTL = 30 * time.Second

// PendingEntry is a tracked outbound request awaiting a terminal reply.
type PendingEntry struct {
	ID        ID
	SentAt    time.Time
	OnResolve func(Message)
}

// PendingBag correlates outbound requests with inbound replies and expires
// entries that outlive their TTL (C3). The zero value is not usable; use
// NewPendingBag.
//
// resolve and gc race over the same entry when a reply arrives just as gc
// scans past its deadline: both take the mutex and delete-before-act, so
// whichever gets there first wins and the loser finds nothing left to do.
type PendingBag struct {
	ttl time.Duration

	mu      sync.Mutex
	entries map[string]PendingEntry
}

// NewPendingBag constructs a PendingBag with the given TTL. A zero ttl means
// every entry expires on the very next gc call (§8 boundary behavior).
func NewPendingBag(ttl time.Duration) *PendingBag {
	return &PendingBag{ttl: ttl, entries: map[string]PendingEntry{}}
}

// Add registers a PendingEntry, keyed by its ID.
func (b *PendingBag) Add(e PendingEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[e.ID.String()] = e
}

// Resolve delivers msg (a Response or Error) to the entry whose ID matches,
// removing it. It reports whether a match was found.
func (b *PendingBag) Resolve(msg Message) bool {
	key := msg.ID.String()

	b.mu.Lock()
	e, ok := b.entries[key]
	if ok {
		delete(b.entries, key)
	}
	b.mu.Unlock()

	if !ok {
		return false
	}
	if e.OnResolve != nil {
		e.OnResolve(msg)
	}
	return true
}

// Len reports the number of live pending entries.
func (b *PendingBag) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// GC removes entries whose deadline has elapsed and then, for each removed
// entry, invokes onTimeout and the entry's OnResolve with a synthetic
// RequestTimeout Error. An entry
// resolved concurrently by Resolve is skipped: it is no longer in the map by
// the time GC tries to delete it.
func (b *PendingBag) GC(now time.Time, onTimeout func(PendingEntry, Message)) {
	var expired []PendingEntry

	b.mu.Lock()
	for key, e := range b.entries {
		if now.Sub(e.SentAt) >= b.ttl {
			expired = append(expired, e)
			delete(b.entries, key)
		}
	}
	b.mu.Unlock()

	for _, e := range expired {
		timeoutMsg := NewErrorReply(e.ID, CodeRequestTimeout, "request timed out", nil)
		if onTimeout != nil {
			onTimeout(e, timeoutMsg)
		}
		if e.OnResolve != nil {
			e.OnResolve(timeoutMsg)
		}
	}
}
