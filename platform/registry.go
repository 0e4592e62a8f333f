package platform

import (
	"context"
	"sync"

	"github.com/loopwire/aikit"
)

// NormalizerStage is one link of a NormalizerChain: a data class the
// dispatcher must normalize before handing the payload to a ModelClient, and
// whether a missing match is fatal.
type NormalizerStage struct {
	DataClass  string
	Required   bool
	Normalizer Normalizer
}

// NormalizerChain applies an ordered sequence of normalization stages to a
// request payload, feeding each stage's output to the next (§4.9 step 3).
//
// Grounded on internal/provider/provider.go's Registry: a mutex-guarded
// collection with Register/Get semantics, generalized from a flat
// name->value map to an ordered chain since normalizer lookup here is
// positional rather than by name.
type NormalizerChain struct {
	mu     sync.RWMutex
	stages []NormalizerStage
}

// NewNormalizerChain builds a chain from the given stages, applied in order.
func NewNormalizerChain(stages ...NormalizerStage) *NormalizerChain {
	c := &NormalizerChain{}
	c.stages = append(c.stages, stages...)
	return c
}

// Append adds a stage to the end of the chain.
func (c *NormalizerChain) Append(stage NormalizerStage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stages = append(c.stages, stage)
}

// Apply runs every stage in order, threading the output of one into the
// input of the next. A Required stage whose DataClass has no Normalizer
// registered yields a *NormalizerConfigError.
func (c *NormalizerChain) Apply(ctx context.Context, model ai.Model, input any, opts InvokeOptions) (any, error) {
	c.mu.RLock()
	stages := append([]NormalizerStage(nil), c.stages...)
	c.mu.RUnlock()

	current := input
	for _, stage := range stages {
		if stage.Normalizer == nil {
			if stage.Required {
				return nil, &NormalizerConfigError{DataClass: stage.DataClass}
			}
			continue
		}
		out, err := stage.Normalizer.Normalize(ctx, model, current, opts)
		if err != nil {
			return nil, err
		}
		current = out
	}
	return current, nil
}

// ModelClientRegistry holds the ModelClients a Dispatcher consults in
// registration order to find the first one supporting a (model, action)
// pair (§4.9 step 4).
//
// Grounded on internal/provider/provider.go's Registry/Register/Get pattern,
// generalized from name-keyed lookup to a Supports(model, action) predicate
// scan since a ModelClient isn't registered under a single fixed key.
type ModelClientRegistry struct {
	mu      sync.RWMutex
	clients []ModelClient
}

// NewModelClientRegistry builds an empty registry.
func NewModelClientRegistry() *ModelClientRegistry {
	return &ModelClientRegistry{}
}

// Register appends a ModelClient to the registry.
func (r *ModelClientRegistry) Register(c ModelClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients = append(r.clients, c)
}

// Find returns the first registered ModelClient supporting (model, action).
func (r *ModelClientRegistry) Find(model ai.Model, action ai.Action) (ModelClient, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.clients {
		if c.Supports(model, action) {
			return c, true
		}
	}
	return nil, false
}

// ResultConverterRegistry holds the ai.ResultConverters a Dispatcher
// consults to turn a ModelClient's raw response into an ai.Result
// (§4.9 step 6).
type ResultConverterRegistry struct {
	mu         sync.RWMutex
	converters []ai.ResultConverter
}

// NewResultConverterRegistry builds an empty registry.
func NewResultConverterRegistry() *ResultConverterRegistry {
	return &ResultConverterRegistry{}
}

// Register appends a ResultConverter to the registry.
func (r *ResultConverterRegistry) Register(c ai.ResultConverter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.converters = append(r.converters, c)
}

// Find returns the first registered ResultConverter supporting model.
func (r *ResultConverterRegistry) Find(model ai.Model) (ai.ResultConverter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.converters {
		if c.Supports(model) {
			return c, true
		}
	}
	return nil, false
}
