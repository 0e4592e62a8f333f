package mcp

import (
	"testing"
	"time"
)

func TestPendingBagResolve(t *testing.T) {
	bag := NewPendingBag(DefaultPendingTTL)
	var got Message
	bag.Add(PendingEntry{ID: NewIntID(1), SentAt: time.Now(), OnResolve: func(m Message) { got = m }})

	if !bag.Resolve(NewResponse(NewIntID(1), nil)) {
		t.Fatal("expected id 1 to resolve")
	}
	if got.Kind != KindResponse {
		t.Fatalf("callback got %+v", got)
	}
	if bag.Len() != 0 {
		t.Fatalf("len = %d, want 0", bag.Len())
	}
}

func TestPendingBagResolveUnknownID(t *testing.T) {
	bag := NewPendingBag(DefaultPendingTTL)
	bag.Add(PendingEntry{ID: NewIntID(1), SentAt: time.Now()})
	if bag.Resolve(NewResponse(NewIntID(99), nil)) {
		t.Fatal("resolve should not match an unknown id")
	}
	if bag.Len() != 1 {
		t.Fatalf("len = %d, want 1", bag.Len())
	}
}

func TestPendingBagGCTimesOutExactlyOnce(t *testing.T) {
	bag := NewPendingBag(0) // TTL=0: everything times out on the very next GC
	var calls int
	bag.Add(PendingEntry{ID: NewIntID(42), SentAt: time.Now(), OnResolve: func(m Message) {
		calls++
		if m.Kind != KindError || m.Code != CodeRequestTimeout {
			t.Fatalf("timeout message = %+v", m)
		}
	}})

	bag.GC(time.Now(), nil)
	if calls != 1 {
		t.Fatalf("onResolve called %d times, want 1", calls)
	}
	if bag.Len() != 0 {
		t.Fatalf("len = %d, want 0 after gc", bag.Len())
	}

	// Subsequent GC calls are no-ops for the now-removed id.
	bag.GC(time.Now(), func(PendingEntry, Message) {
		t.Fatal("gc should not revisit an already-removed entry")
	})
}

func TestPendingBagResolveWinsOverGC(t *testing.T) {
	bag := NewPendingBag(time.Hour)
	resolved := false
	timedOut := false
	bag.Add(PendingEntry{ID: NewIntID(1), SentAt: time.Now(), OnResolve: func(m Message) {
		if m.Kind == KindResponse {
			resolved = true
		} else {
			timedOut = true
		}
	}})

	if !bag.Resolve(NewResponse(NewIntID(1), nil)) {
		t.Fatal("expected resolve to find the entry")
	}
	// GC well past any reasonable TTL must not double-signal the same entry.
	bag.GC(time.Now().Add(24*time.Hour), nil)

	if !resolved || timedOut {
		t.Fatalf("resolved=%v timedOut=%v, want resolved only", resolved, timedOut)
	}
}
