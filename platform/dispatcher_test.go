package platform

import (
	"context"
	"errors"
	"testing"

	"github.com/loopwire/aikit"
)

type fakeClient struct {
	action   ai.Action
	response any
	err      error
	calls    int
}

func (f *fakeClient) Supports(model ai.Model, action ai.Action) bool { return action == f.action }

func (f *fakeClient) Request(ctx context.Context, model ai.Model, action ai.Action, payload any) (any, error) {
	f.calls++
	return f.response, f.err
}

type fakeConverter struct {
	modelName string
}

func (f *fakeConverter) Supports(model ai.Model) bool { return model.Name == f.modelName }

func (f *fakeConverter) Convert(model ai.Model, raw any) (ai.Result, error) {
	return ai.Result{Kind: ai.ResultText, Text: raw.(string)}, nil
}

type fakeNormalizer struct {
	dataClass string
	applied   bool
}

func (n *fakeNormalizer) DataClass() string { return n.dataClass }

func (n *fakeNormalizer) Normalize(ctx context.Context, model ai.Model, input any, opts InvokeOptions) (any, error) {
	n.applied = true
	return input, nil
}

func testCatalog() *StaticCatalog {
	return NewStaticCatalog(map[string]StaticEntry{
		"chat-small": {Capabilities: ai.NewCapabilitySet(ai.CapInputText, ai.CapOutputText)},
	}, nil)
}

func TestDispatcherInvokeHappyPath(t *testing.T) {
	client := &fakeClient{action: ai.ActionChat, response: "hello"}
	clients := NewModelClientRegistry()
	clients.Register(client)

	converters := NewResultConverterRegistry()
	converters.Register(&fakeConverter{modelName: "chat-small"})

	norm := &fakeNormalizer{dataClass: "messages"}
	chain := NewNormalizerChain(NormalizerStage{DataClass: "messages", Required: true, Normalizer: norm})

	d := NewDispatcher(testCatalog(), chain, clients, converters, DispatcherOptions{})

	deferred, err := d.Invoke(context.Background(), "chat-small", []ai.Message{ai.User("hi")}, InvokeOptions{Action: ai.ActionChat})
	if err != nil {
		t.Fatal(err)
	}
	if !norm.applied {
		t.Fatal("normalizer was not applied")
	}
	if client.calls != 1 {
		t.Fatalf("client called %d times, want 1", client.calls)
	}
	result, err := deferred.Await()
	if err != nil {
		t.Fatal(err)
	}
	if result.Text != "hello" {
		t.Fatalf("got %q, want %q", result.Text, "hello")
	}
}

func TestDispatcherUnknownModel(t *testing.T) {
	d := NewDispatcher(testCatalog(), NewNormalizerChain(), NewModelClientRegistry(), NewResultConverterRegistry(), DispatcherOptions{})
	_, err := d.Invoke(context.Background(), "does-not-exist", nil, InvokeOptions{})
	var unknown *UnknownModelError
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.As(err, &unknown) {
		t.Fatalf("got %T, want *UnknownModelError", err)
	}
}

func TestDispatcherNoModelClient(t *testing.T) {
	d := NewDispatcher(testCatalog(), NewNormalizerChain(), NewModelClientRegistry(), NewResultConverterRegistry(), DispatcherOptions{})
	_, err := d.Invoke(context.Background(), "chat-small", nil, InvokeOptions{Action: ai.ActionChat})
	var want *NoModelClientError
	if !errors.As(err, &want) {
		t.Fatalf("got %T, want *NoModelClientError", err)
	}
}

func TestDispatcherRequiredNormalizerMissing(t *testing.T) {
	clients := NewModelClientRegistry()
	clients.Register(&fakeClient{action: ai.ActionChat, response: "x"})
	chain := NewNormalizerChain(NormalizerStage{DataClass: "messages", Required: true})

	d := NewDispatcher(testCatalog(), chain, clients, NewResultConverterRegistry(), DispatcherOptions{})
	_, err := d.Invoke(context.Background(), "chat-small", nil, InvokeOptions{Action: ai.ActionChat})
	var want *NormalizerConfigError
	if !errors.As(err, &want) {
		t.Fatalf("got %T, want *NormalizerConfigError", err)
	}
}
