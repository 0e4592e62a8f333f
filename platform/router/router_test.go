package router

import (
	"context"
	"strings"
	"testing"

	"github.com/loopwire/aikit"
	"github.com/loopwire/aikit/platform"
)

func testRouterContext(catalog platform.Catalog) platform.RouterContext {
	return platform.RouterContext{
		DefaultModel: "tinytext",
		Catalog:      catalog,
		FindModelsWithCapability: func(ctx context.Context, caps ai.CapabilitySet) ([]ai.Model, error) {
			return catalog.FindModelsWithCapabilities(ctx, caps)
		},
	}
}

func visionCatalog() *platform.StaticCatalog {
	return platform.NewStaticCatalog(map[string]platform.StaticEntry{
		"tinytext": {Capabilities: ai.NewCapabilitySet(ai.CapInputText, ai.CapOutputText)},
		"visionmax": {Capabilities: ai.NewCapabilitySet(ai.CapInputText, ai.CapInputImage, ai.CapOutputText)},
	}, nil)
}

func TestVisionRouting(t *testing.T) {
	catalog := visionCatalog()
	rule := ContentType(ai.NewCapabilitySet(ai.CapInputImage), ai.Message.HasImage, "image part present")

	msg := ai.Message{Role: ai.RoleUser, Content: []ai.ContentPart{ai.ImagePart{DataBase64: "xx", MediaType: "image/png"}}}
	input := platform.RouterInput{Model: "tinytext", Messages: []ai.Message{msg}}

	decision, err := rule(context.Background(), testRouterContext(catalog), input)
	if err != nil {
		t.Fatal(err)
	}
	if decision == nil {
		t.Fatal("expected a routing decision")
	}
	if decision.TargetModel == "tinytext" {
		t.Fatalf("expected redirect away from tinytext, got %q", decision.TargetModel)
	}
	if decision.TargetModel != "visionmax" {
		t.Fatalf("got %q, want visionmax", decision.TargetModel)
	}
}

func TestVisionRoutingNoImageNoRedirect(t *testing.T) {
	catalog := visionCatalog()
	rule := ContentType(ai.NewCapabilitySet(ai.CapInputImage), ai.Message.HasImage, "image part present")

	input := platform.RouterInput{Model: "tinytext", Messages: []ai.Message{ai.User("just text")}}
	decision, err := rule(context.Background(), testRouterContext(catalog), input)
	if err != nil {
		t.Fatal(err)
	}
	if decision != nil {
		t.Fatalf("expected no redirect, got %+v", decision)
	}
}

func costCatalog() *platform.StaticCatalog {
	return platform.NewStaticCatalog(map[string]platform.StaticEntry{
		"small": {Capabilities: ai.NewCapabilitySet(ai.CapInputText, ai.CapOutputText)},
		"large": {Capabilities: ai.NewCapabilitySet(ai.CapInputText, ai.CapOutputText)},
	}, nil)
}

func TestCostRouting(t *testing.T) {
	catalog := costCatalog()
	tiers := []Tier{
		{MaxTokens: 100, Model: "small"},
		{MaxTokens: 500, Model: "small"},
		{MaxTokens: 1 << 30, Model: "large"},
	}
	rule := TokenBudget(tiers, "token budget")

	cases := []struct {
		chars int
		want  string
	}{
		{300, "small"},
		{1600, "small"},
		{2400, "large"},
	}
	for _, c := range cases {
		input := platform.RouterInput{Model: "start", Messages: []ai.Message{ai.User(strings.Repeat("a", c.chars))}}
		decision, err := rule(context.Background(), testRouterContext(catalog), input)
		if err != nil {
			t.Fatal(err)
		}
		if decision == nil {
			t.Fatalf("chars=%d: expected a decision", c.chars)
		}
		if decision.TargetModel != c.want {
			t.Fatalf("chars=%d: got %q, want %q", c.chars, decision.TargetModel, c.want)
		}
	}
}

func TestChainStopsAtFirstDecision(t *testing.T) {
	calledSecond := false
	first := func(ctx context.Context, rc platform.RouterContext, input platform.RouterInput) (*platform.RoutingResult, error) {
		return &platform.RoutingResult{TargetModel: "winner"}, nil
	}
	second := func(ctx context.Context, rc platform.RouterContext, input platform.RouterInput) (*platform.RoutingResult, error) {
		calledSecond = true
		return &platform.RoutingResult{TargetModel: "loser"}, nil
	}
	chain := Chain(first, second)
	decision, err := chain(context.Background(), testRouterContext(costCatalog()), platform.RouterInput{Model: "start"})
	if err != nil {
		t.Fatal(err)
	}
	if decision.TargetModel != "winner" || calledSecond {
		t.Fatalf("chain did not stop at first decision: target=%q calledSecond=%v", decision.TargetModel, calledSecond)
	}
}
