package platform

import (
	"context"

	"github.com/loopwire/aikit"
)

// InvokeOptions carries call-scoped overrides into Invoke: extra provider
// options, a target platform hint for a router, and arbitrary metadata a
// normalizer or model client may consult.
type InvokeOptions struct {
	Action   ai.Action
	Platform string
	Options  map[string]any
}

// Platform is the common surface implemented by Dispatcher and, one layer
// up, failover.FailoverPlatform, so a failover wrapper can rotate across
// heterogeneous platforms without knowing their concrete type (§4.11).
type Platform interface {
	Invoke(ctx context.Context, model string, input any, opts InvokeOptions) (*ai.DeferredResult, error)
	GetModelCatalog(ctx context.Context) (Catalog, error)
}

// Normalizer reshapes a request payload into the form a ModelClient expects,
// e.g. flattening ai.Message content parts into a provider's wire shape.
// DataClass identifies which normalization stage this normalizer fills
// ("messages", "embeddings-input", ...).
type Normalizer interface {
	DataClass() string
	Normalize(ctx context.Context, model ai.Model, input any, opts InvokeOptions) (any, error)
}

// ModelClient performs the actual network call for a (model, action) pair
// once the payload has been normalized.
type ModelClient interface {
	Supports(model ai.Model, action ai.Action) bool
	Request(ctx context.Context, model ai.Model, action ai.Action, payload any) (any, error)
}

// RouterInput is the view of an in-flight call a Router inspects and may
// rewrite before dispatch.
type RouterInput struct {
	Model    string
	Messages []ai.Message
	Options  map[string]any
	Platform string
}

// RoutingResult is what a Router decides: the model to actually dispatch to,
// why, and an optional payload Transform applied before normalization.
type RoutingResult struct {
	TargetModel string
	Reason      string
	Transform   func(*RouterInput)
}

// RouterContext gives a Router read access to the catalog and a capability
// search helper, so rules like "route to the first model with vision" don't
// need to re-implement catalog traversal.
type RouterContext struct {
	DefaultModel             string
	Catalog                  Catalog
	FindModelsWithCapability func(ctx context.Context, caps ai.CapabilitySet) ([]ai.Model, error)
}

// Router inspects a RouterInput and optionally redirects it to a different
// model before the dispatcher resolves normalizers and clients (C10).
type Router func(ctx context.Context, rc RouterContext, input RouterInput) (*RoutingResult, error)
