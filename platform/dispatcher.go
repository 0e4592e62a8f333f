package platform

import (
	"context"

	"github.com/loopwire/aikit"
)

// DispatcherOptions configures a Dispatcher's optional stages.
type DispatcherOptions struct {
	// Router, if set, runs before normalization and may redirect the call
	// to a different model (C10).
	Router Router
}

// Dispatcher is the provider-agnostic inference core (C9): given a model
// name and a payload, it optionally routes the call to another model name,
// resolves the model from the catalog, normalizes the payload through its NormalizerChain, invokes
// the first ModelClient that supports the resolved (model, action) pair,
// and converts the raw response into an ai.DeferredResult via the first
// matching ResultConverter.
type Dispatcher struct {
	Catalog          Catalog
	Normalizers      *NormalizerChain
	ModelClients     *ModelClientRegistry
	ResultConverters *ResultConverterRegistry
	Router           Router
}

// NewDispatcher builds a Dispatcher over the given catalog and registries.
func NewDispatcher(catalog Catalog, normalizers *NormalizerChain, clients *ModelClientRegistry, converters *ResultConverterRegistry, opts DispatcherOptions) *Dispatcher {
	return &Dispatcher{
		Catalog:          catalog,
		Normalizers:      normalizers,
		ModelClients:     clients,
		ResultConverters: converters,
		Router:           opts.Router,
	}
}

// Invoke implements the six-step dispatch contract:
//  1. run the router (if any) on the requested model name, then resolve the
//     resulting model from the catalog
//  2. determine the action
//  3. normalize the payload through the normalizer chain
//  4. find a ModelClient supporting (model, action)
//  5. issue the request
//  6. find a ResultConverter supporting the model and wrap the raw response
//     in a deferred, memoizing ai.DeferredResult
func (d *Dispatcher) Invoke(ctx context.Context, modelName string, input any, opts InvokeOptions) (*ai.DeferredResult, error) {
	if d.Router != nil {
		rc := RouterContext{
			DefaultModel: modelName,
			Catalog:      d.Catalog,
			FindModelsWithCapability: func(ctx context.Context, caps ai.CapabilitySet) ([]ai.Model, error) {
				return d.Catalog.FindModelsWithCapabilities(ctx, caps)
			},
		}
		routerInput := RouterInput{Model: modelName, Options: opts.Options, Platform: opts.Platform}
		if msgs, ok := input.([]ai.Message); ok {
			routerInput.Messages = msgs
		}
		decision, err := d.Router(ctx, rc, routerInput)
		if err != nil {
			return nil, err
		}
		if decision != nil && decision.TargetModel != "" && decision.TargetModel != modelName {
			modelName = decision.TargetModel
			if decision.Transform != nil {
				decision.Transform(&routerInput)
				if routerInput.Messages != nil {
					input = routerInput.Messages
				}
			}
		}
	}

	model, err := d.Catalog.GetModel(ctx, modelName)
	if err != nil {
		return nil, err
	}

	action := opts.Action
	if action == "" {
		action = ai.ActionChat
	}

	payload, err := d.Normalizers.Apply(ctx, model, input, opts)
	if err != nil {
		return nil, err
	}

	client, ok := d.ModelClients.Find(model, action)
	if !ok {
		return nil, &NoModelClientError{Model: model.Name, Action: string(action)}
	}

	raw, err := client.Request(ctx, model, action, payload)
	if err != nil {
		return nil, err
	}

	converter, ok := d.ResultConverters.Find(model)
	if !ok {
		return nil, &NoResultConverterError{Model: model.Name}
	}

	return ai.NewDeferredResult(model, raw, converter), nil
}

// GetModelCatalog returns the dispatcher's catalog, satisfying Platform.
func (d *Dispatcher) GetModelCatalog(ctx context.Context) (Catalog, error) {
	return d.Catalog, nil
}
