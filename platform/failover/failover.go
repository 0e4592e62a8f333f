// Package failover wraps a sequence of platform.Platform instances into a
// single platform.Platform that rotates past failing entries and, once every
// entry is in cooldown, gates a full re-traversal behind a rate limiter
// instead of retrying forever.
//
// The rate limiter is golang.org/x/time/rate, already present in go.mod;
// "acquire one token, fail fast if unavailable" uses Allow() rather than
// Wait(), since a blocked failover call must fail rather than hang. The
// retry-budget shape (bounded attempts, no unbounded backoff loop) is
// grounded on internal/httpx/retry.go's RetryPolicy-driven loop, generalized
// from "retry the same endpoint" to "cool down and re-traverse the list".
package failover

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/loopwire/aikit"
	"github.com/loopwire/aikit/platform"
	"golang.org/x/time/rate"
)

// Entry is one platform in the rotation.
type Entry struct {
	Name     string
	Platform platform.Platform
}

// AllPlatformsFailedError is returned when every entry is in cooldown and
// the shared rate limiter has no token for a re-traversal, or when a full
// re-traversal still fails every entry.
type AllPlatformsFailedError struct {
	Attempts []AttemptError
}

// AttemptError records one entry's outcome within a failed rotation.
type AttemptError struct {
	Platform string
	Err      error
}

func (e *AllPlatformsFailedError) Error() string {
	return fmt.Sprintf("failover: all platforms failed (%d attempts)", len(e.Attempts))
}

type entryState struct {
	entry    Entry
	mu       sync.Mutex
	failedAt time.Time
}

// FailoverPlatform rotates across Entries on every Invoke call: entries
// still within RetryPeriod of their last failure are skipped; a success
// clears that entry's cooldown. If every entry is in cooldown, Invoke
// acquires one token from Limiter — a token lets it reset every cooldown
// and try the whole list once more; no token fails immediately (C11).
type FailoverPlatform struct {
	RetryPeriod time.Duration
	Limiter     *rate.Limiter

	states []*entryState
	now    func() time.Time
}

// New builds a FailoverPlatform over the given entries, tried in order.
// Construction with zero entries fails, per §4.11.
func New(retryPeriod time.Duration, limiter *rate.Limiter, entries ...Entry) (*FailoverPlatform, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("failover: at least one platform entry is required")
	}
	states := make([]*entryState, len(entries))
	for i, e := range entries {
		states[i] = &entryState{entry: e}
	}
	return &FailoverPlatform{RetryPeriod: retryPeriod, Limiter: limiter, states: states, now: time.Now}, nil
}

func (f *FailoverPlatform) eligible(s *entryState, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failedAt.IsZero() || now.Sub(s.failedAt) >= f.RetryPeriod
}

func (f *FailoverPlatform) resetAll() {
	for _, s := range f.states {
		s.mu.Lock()
		s.failedAt = time.Time{}
		s.mu.Unlock()
	}
}

func (f *FailoverPlatform) markFailed(s *entryState, now time.Time) {
	s.mu.Lock()
	s.failedAt = now
	s.mu.Unlock()
}

func (f *FailoverPlatform) clear(s *entryState) {
	s.mu.Lock()
	s.failedAt = time.Time{}
	s.mu.Unlock()
}

// try attempts one traversal of the list, calling fn on the first eligible
// entry that succeeds. It returns (result, true, nil) on success, or
// (zero, false, attempts) if every eligible entry failed and none were
// skippable into a success.
func (f *FailoverPlatform) try(now time.Time, fn func(platform.Platform) (any, error)) (any, bool, []AttemptError) {
	var attempts []AttemptError
	for _, s := range f.states {
		if !f.eligible(s, now) {
			continue
		}
		result, err := fn(s.entry.Platform)
		if err == nil {
			f.clear(s)
			return result, true, nil
		}
		f.markFailed(s, now)
		attempts = append(attempts, AttemptError{Platform: s.entry.Name, Err: err})
	}
	return nil, false, attempts
}

// dispatch traverses eligible entries in order, taking the first success.
// If no eligible entry remains — either none were eligible to start with, or
// every eligible entry just failed — one re-traversal is allowed, gated by
// Limiter: a token resets every cooldown and retries from the top once;
// no token fails immediately with whatever attempts were made.
func (f *FailoverPlatform) dispatch(now func() time.Time, fn func(platform.Platform) (any, error)) (any, error) {
	result, ok, attempts := f.try(now(), fn)
	if ok {
		return result, nil
	}

	if f.Limiter != nil && !f.Limiter.Allow() {
		return nil, &AllPlatformsFailedError{Attempts: attempts}
	}
	f.resetAll()
	result, ok, retryAttempts := f.try(now(), fn)
	if !ok {
		return nil, &AllPlatformsFailedError{Attempts: append(attempts, retryAttempts...)}
	}
	return result, nil
}

// Invoke implements platform.Platform.
func (f *FailoverPlatform) Invoke(ctx context.Context, model string, input any, opts platform.InvokeOptions) (*ai.DeferredResult, error) {
	result, err := f.dispatch(f.now, func(p platform.Platform) (any, error) {
		return p.Invoke(ctx, model, input, opts)
	})
	if err != nil {
		return nil, err
	}
	return result.(*ai.DeferredResult), nil
}

// GetModelCatalog returns a platform.PermissiveCatalog, since the caller
// cannot know in advance which downstream platform a given model name will
// end up dispatching to.
func (f *FailoverPlatform) GetModelCatalog(ctx context.Context) (platform.Catalog, error) {
	return platform.PermissiveCatalog{}, nil
}
