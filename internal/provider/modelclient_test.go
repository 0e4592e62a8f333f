package provider

import (
	"context"
	"testing"

	"github.com/loopwire/aikit"
	"github.com/loopwire/aikit/platform"
)

type echoProvider struct{}

func (echoProvider) Generate(ctx context.Context, req Request) (Response, error) {
	var in string
	for _, m := range req.Messages {
		in += m.Text()
	}
	return Response{Message: Message{Role: RoleAssistant, Content: []ContentPart{TextPart{Text: "echo: " + in}}}}, nil
}

func (echoProvider) Stream(ctx context.Context, req Request) (Stream, error) {
	return nil, &Error{Provider: "echo", Message: "streaming not supported"}
}

// TestProviderModelClientThroughDispatcher exercises the full chain: an
// ai.Message input normalized into a provider.Request, dispatched to a
// registered Provider, and converted back into an ai.Result.
func TestProviderModelClientThroughDispatcher(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Register("echo-model", echoProvider{}); err != nil {
		t.Fatal(err)
	}

	catalog := platform.NewStaticCatalog(map[string]platform.StaticEntry{
		"echo-model": {Capabilities: ai.NewCapabilitySet(ai.CapInputMessages, ai.CapOutputText)},
	}, nil)

	clients := platform.NewModelClientRegistry()
	clients.Register(NewModelClient(registry))

	converters := platform.NewResultConverterRegistry()
	converters.Register(ResultConverter{Registry: registry})

	chain := platform.NewNormalizerChain(platform.NormalizerStage{DataClass: "messages", Required: true, Normalizer: Normalizer{}})

	d := platform.NewDispatcher(catalog, chain, clients, converters, platform.DispatcherOptions{})

	deferred, err := d.Invoke(context.Background(), "echo-model", []ai.Message{ai.User("hi there")}, platform.InvokeOptions{Action: ai.ActionChat})
	if err != nil {
		t.Fatal(err)
	}
	result, err := deferred.Await()
	if err != nil {
		t.Fatal(err)
	}
	if result.Text != "echo: hi there" {
		t.Fatalf("got %q, want %q", result.Text, "echo: hi there")
	}
}
