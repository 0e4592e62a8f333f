package mcp

import (
	"sync"
	"time"
)

// keepAliveState is the ticker's {idle, running} state machine (C4).
type keepAliveState int32

const (
	keepAliveIdle keepAliveState = iota
	keepAliveRunning
)

// DefaultKeepAliveInterval is the ping cadence used when ServerOptions
// leaves Interval unset.
const DefaultKeepAliveInterval = 30 * time.Second

// KeepAlive is a cooperative ticker: the server loop calls Tick once per
// iteration, and a ping fires only once Interval has elapsed since the last
// one. Strict mode turns a ping failure into a fatal TransportError for the
// caller to act on; lenient mode (the default) only logs it, per the
// Open Question in spec §9 ("MCP calls for termination; the observed source
// only logs").
type KeepAlive struct {
	Interval time.Duration
	Strict   bool

	mu       sync.Mutex
	state    keepAliveState
	lastTick time.Time

	OnPingError func(err error)
}

// NewKeepAlive constructs a KeepAlive with the given interval (0 uses
// DefaultKeepAliveInterval).
func NewKeepAlive(interval time.Duration, strict bool) *KeepAlive {
	if interval <= 0 {
		interval = DefaultKeepAliveInterval
	}
	return &KeepAlive{Interval: interval, Strict: strict}
}

// Start transitions idle -> running.
func (k *KeepAlive) Start(now time.Time) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.state = keepAliveRunning
	k.lastTick = now
}

// Stop transitions running -> idle. Subsequent Tick calls are no-ops until
// Start is called again.
func (k *KeepAlive) Stop() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.state = keepAliveIdle
}

// Running reports whether the ticker is in the running state.
func (k *KeepAlive) Running() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.state == keepAliveRunning
}

// Tick invokes ping() at most once if Interval has elapsed since the last
// invocation (or since Start). Returns a TransportError-wrapping ping
// failure only in Strict mode; in lenient mode the error is routed to
// OnPingError and Tick returns nil so the server loop keeps running.
func (k *KeepAlive) Tick(now time.Time, ping func() error) error {
	k.mu.Lock()
	if k.state != keepAliveRunning {
		k.mu.Unlock()
		return nil
	}
	due := now.Sub(k.lastTick) >= k.Interval
	if due {
		k.lastTick = now
	}
	k.mu.Unlock()

	if !due || ping == nil {
		return nil
	}

	if err := ping(); err != nil {
		if k.OnPingError != nil {
			k.OnPingError(err)
		}
		if k.Strict {
			return &TransportError{Kind: "keepalive", Cause: err}
		}
	}
	return nil
}
