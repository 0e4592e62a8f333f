package failover

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/loopwire/aikit"
	"github.com/loopwire/aikit/platform"
	"golang.org/x/time/rate"
)

type fakePlatform struct {
	name string
	fail bool
}

func (f *fakePlatform) Invoke(ctx context.Context, model string, input any, opts platform.InvokeOptions) (*ai.DeferredResult, error) {
	if f.fail {
		return nil, errors.New(f.name + " failed")
	}
	return ai.NewDeferredResult(ai.Model{Name: model}, f.name, nameConverter{}), nil
}

func (f *fakePlatform) GetModelCatalog(ctx context.Context) (platform.Catalog, error) {
	return platform.PermissiveCatalog{}, nil
}

type nameConverter struct{}

func (nameConverter) Supports(ai.Model) bool { return true }
func (nameConverter) Convert(model ai.Model, raw any) (ai.Result, error) {
	return ai.Result{Kind: ai.ResultText, Text: raw.(string)}, nil
}

func invokeName(t *testing.T, fp *FailoverPlatform) (string, error) {
	t.Helper()
	d, err := fp.Invoke(context.Background(), "m", nil, platform.InvokeOptions{})
	if err != nil {
		return "", err
	}
	r, err := d.Await()
	if err != nil {
		return "", err
	}
	return r.Text, nil
}

// TestFailoverRotation mirrors spec.md's scenario 4: platforms [A,B,C],
// retryPeriod=3s, limit=3/60s.
func TestFailoverRotation(t *testing.T) {
	a := &fakePlatform{name: "A"}
	b := &fakePlatform{name: "B"}
	c := &fakePlatform{name: "C"}

	limiter := rate.NewLimiter(rate.Every(time.Minute/3), 3)
	fp, err := New(3*time.Second, limiter,
		Entry{Name: "A", Platform: a},
		Entry{Name: "B", Platform: b},
		Entry{Name: "C", Platform: c},
	)
	if err != nil {
		t.Fatal(err)
	}

	now := time.Now()
	fp.now = func() time.Time { return now }

	a.fail = true
	got, err := invokeName(t, fp)
	if err != nil || got != "B" {
		t.Fatalf("step1: got %q err=%v, want B", got, err)
	}

	now = now.Add(time.Second)
	b.fail = true
	got, err = invokeName(t, fp)
	if err != nil || got != "C" {
		t.Fatalf("step2: got %q err=%v, want C", got, err)
	}

	now = now.Add(time.Second)
	c.fail = true
	_, err = invokeName(t, fp)
	var allFailed *AllPlatformsFailedError
	if !errors.As(err, &allFailed) {
		t.Fatalf("step3: got %v, want AllPlatformsFailedError", err)
	}

	now = now.Add(4 * time.Second)
	a.fail, b.fail, c.fail = false, true, true
	got, err = invokeName(t, fp)
	if err != nil || got != "A" {
		t.Fatalf("step4: got %q err=%v, want A", got, err)
	}
}

func TestFailoverConstructionRequiresEntries(t *testing.T) {
	if _, err := New(time.Second, nil); err == nil {
		t.Fatal("expected error constructing failover with zero entries")
	}
}

func TestFailoverRateLimitExhaustedFailsImmediately(t *testing.T) {
	a := &fakePlatform{name: "A", fail: true}
	limiter := rate.NewLimiter(rate.Every(time.Hour), 0)
	fp, err := New(time.Minute, limiter, Entry{Name: "A", Platform: a})
	if err != nil {
		t.Fatal(err)
	}
	_, err = invokeName(t, fp)
	var allFailed *AllPlatformsFailedError
	if !errors.As(err, &allFailed) {
		t.Fatalf("got %v, want AllPlatformsFailedError", err)
	}
}
