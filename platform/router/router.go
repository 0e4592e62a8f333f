// Package router provides composable platform.Router rules: a chain that
// tries each rule in order and takes the first non-nil routing decision,
// plus constructors for the common rules (capability-gated, fallback,
// explicit rewrite).
//
// Grounded on 08e1df4b_LizzyG-llmrouter's router.selectModel: a
// deterministic, ordered scan over candidate models that skips any
// candidate failing a requirement (SupportsTools, SupportsWebSearch) and
// returns the first match, with a sorted key order so auto-selection is
// reproducible.
package router

import (
	"context"
	"sort"

	"github.com/loopwire/aikit"
	"github.com/loopwire/aikit/platform"
)

// Chain tries each Router in order and returns the first decision that
// redirects the call (TargetModel != ""). A rule returning a nil result
// defers to the next rule; an empty chain or a chain where every rule
// defers leaves the call on its original model.
func Chain(rules ...platform.Router) platform.Router {
	return func(ctx context.Context, rc platform.RouterContext, input platform.RouterInput) (*platform.RoutingResult, error) {
		for _, rule := range rules {
			decision, err := rule(ctx, rc, input)
			if err != nil {
				return nil, err
			}
			if decision != nil && decision.TargetModel != "" {
				return decision, nil
			}
		}
		return nil, nil
	}
}

// ContentType inspects the message bag for the content kind named by
// required (e.g. ai.CapInputImage) and, if present and the current model
// lacks that capability, redirects to the first catalog model that has it
// (§4.10 "content-type detection").
func ContentType(required ai.CapabilitySet, has func(ai.Message) bool, reason string) platform.Router {
	return func(ctx context.Context, rc platform.RouterContext, input platform.RouterInput) (*platform.RoutingResult, error) {
		found := false
		for _, m := range input.Messages {
			if has(m) {
				found = true
				break
			}
		}
		if !found {
			return nil, nil
		}
		return ByCapability(required, reason)(ctx, rc, input)
	}
}

// ByCapability redirects to the first catalog model (in a deterministic,
// sorted-name order) that is a superset of required, but only when the
// currently-targeted model does not already satisfy required. Used for
// rules like "route to a vision-capable model when the input has an image".
func ByCapability(required ai.CapabilitySet, reason string) platform.Router {
	return func(ctx context.Context, rc platform.RouterContext, input platform.RouterInput) (*platform.RoutingResult, error) {
		current, err := rc.Catalog.GetModel(ctx, input.Model)
		if err == nil && current.Capabilities.IsSupersetOf(required) {
			return nil, nil
		}

		candidates, err := rc.FindModelsWithCapability(ctx, required)
		if err != nil {
			return nil, err
		}
		if len(candidates) == 0 {
			return nil, nil
		}
		sort.Slice(candidates, func(i, j int) bool { return candidates[i].Name < candidates[j].Name })
		return &platform.RoutingResult{TargetModel: candidates[0].Name, Reason: reason}, nil
	}
}

// ExplicitOverride redirects unconditionally to target whenever input.Model
// equals from, e.g. mapping a deprecated alias to its replacement.
func ExplicitOverride(from, target, reason string) platform.Router {
	return func(ctx context.Context, rc platform.RouterContext, input platform.RouterInput) (*platform.RoutingResult, error) {
		if input.Model != from {
			return nil, nil
		}
		return &platform.RoutingResult{TargetModel: target, Reason: reason}, nil
	}
}

// Fallback redirects to target whenever the currently-targeted model is
// absent from the catalog, so a dispatcher call never fails outright on an
// unknown model name as long as a fallback is configured.
func Fallback(target, reason string) platform.Router {
	return func(ctx context.Context, rc platform.RouterContext, input platform.RouterInput) (*platform.RoutingResult, error) {
		if _, err := rc.Catalog.GetModel(ctx, input.Model); err == nil {
			return nil, nil
		}
		return &platform.RoutingResult{TargetModel: target, Reason: reason}, nil
	}
}

// Tier is one band of a TokenBudget ladder: inputs estimated at strictly
// fewer than MaxTokens route to Model. Tiers must be supplied in ascending
// MaxTokens order; the last tier's Model is also the overflow target for
// any estimate at or above every tier's ceiling.
type Tier struct {
	MaxTokens int
	Model     string
}

// TokenBudget estimates the input's size in tokens as total message text
// length / 4 (§4.10 "token-budget detection": "estimate ≈ bytes/4") and
// redirects to the first Tier whose MaxTokens exceeds the estimate, or the
// last tier's Model if the estimate exceeds every ceiling.
func TokenBudget(tiers []Tier, reason string) platform.Router {
	return func(ctx context.Context, rc platform.RouterContext, input platform.RouterInput) (*platform.RoutingResult, error) {
		if len(tiers) == 0 {
			return nil, nil
		}
		var chars int
		for _, m := range input.Messages {
			chars += len(m.Text())
		}
		estTokens := chars / 4

		target := tiers[len(tiers)-1].Model
		for _, tier := range tiers {
			if estTokens < tier.MaxTokens {
				target = tier.Model
				break
			}
		}
		if target == input.Model {
			return nil, nil
		}
		return &platform.RoutingResult{TargetModel: target, Reason: reason}, nil
	}
}
