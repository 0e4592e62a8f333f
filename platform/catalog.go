package platform

import (
	"context"
	"sync"

	"github.com/loopwire/aikit"
)

// Catalog maps a model name to its Model (class/label/capability set), with
// static and remote-discovered entries merged together (C12).
type Catalog interface {
	GetModel(ctx context.Context, name string) (ai.Model, error)
	FindModelsWithCapabilities(ctx context.Context, caps ai.CapabilitySet) ([]ai.Model, error)
}

// StaticEntry is a statically-declared catalog row.
type StaticEntry struct {
	Class        string
	Label        string
	Capabilities ai.CapabilitySet
}

// StaticCatalog holds a fixed name -> entry mapping, optionally merged with
// entries fetched from a RemoteSource on first lookup.
//
// Grounded on internal/provider/provider.go's Registry: a mutex-guarded map
// with lazily-populated state, generalized here to memoize a fetch instead
// of refusing duplicate registration.
type StaticCatalog struct {
	mu      sync.RWMutex
	entries map[string]StaticEntry

	remote        RemoteSource
	remoteFetched bool
	remoteErr     error
}

// RemoteSource fetches additional catalog entries from a remote discovery
// endpoint. The fetch is memoized for the catalog's lifetime (§4.12).
type RemoteSource interface {
	FetchModels(ctx context.Context) (map[string]StaticEntry, error)
}

// NewStaticCatalog builds a catalog from static entries, optionally merging
// in a RemoteSource's entries on first lookup.
func NewStaticCatalog(entries map[string]StaticEntry, remote RemoteSource) *StaticCatalog {
	cp := make(map[string]StaticEntry, len(entries))
	for k, v := range entries {
		cp[k] = v
	}
	return &StaticCatalog{entries: cp, remote: remote}
}

func (c *StaticCatalog) ensureRemote(ctx context.Context) error {
	if c.remote == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.remoteFetched {
		return c.remoteErr
	}
	c.remoteFetched = true
	fetched, err := c.remote.FetchModels(ctx)
	if err != nil {
		c.remoteErr = err
		return err
	}
	for name, entry := range fetched {
		if _, exists := c.entries[name]; !exists {
			c.entries[name] = entry
		}
	}
	return nil
}

// GetModel returns the named model, merging in remote entries on first call.
func (c *StaticCatalog) GetModel(ctx context.Context, name string) (ai.Model, error) {
	if err := c.ensureRemote(ctx); err != nil {
		return ai.Model{}, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[name]
	if !ok {
		return ai.Model{}, &UnknownModelError{Name: name}
	}
	return ai.Model{Name: name, Capabilities: entry.Capabilities, Options: map[string]any{
		"class": entry.Class,
		"label": entry.Label,
	}}, nil
}

// FindModelsWithCapabilities returns every model whose capability set is a
// superset of caps.
func (c *StaticCatalog) FindModelsWithCapabilities(ctx context.Context, caps ai.CapabilitySet) ([]ai.Model, error) {
	if err := c.ensureRemote(ctx); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []ai.Model
	for name, entry := range c.entries {
		if entry.Capabilities.IsSupersetOf(caps) {
			out = append(out, ai.Model{Name: name, Capabilities: entry.Capabilities, Options: map[string]any{
				"class": entry.Class,
				"label": entry.Label,
			}})
		}
	}
	return out, nil
}

// PermissiveCatalog is the fallback catalog a failover platform returns from
// GetModelCatalog: it accepts any model name and reports every capability,
// since the failover wrapper cannot know which downstream catalog the next
// call will actually dispatch to (§4.11).
type PermissiveCatalog struct{}

func (PermissiveCatalog) GetModel(ctx context.Context, name string) (ai.Model, error) {
	return ai.Model{Name: name, Capabilities: allCapabilities()}, nil
}

func (PermissiveCatalog) FindModelsWithCapabilities(ctx context.Context, caps ai.CapabilitySet) ([]ai.Model, error) {
	return []ai.Model{{Name: "*", Capabilities: allCapabilities()}}, nil
}

func allCapabilities() ai.CapabilitySet {
	return ai.NewCapabilitySet(
		ai.CapInputMessages, ai.CapInputText, ai.CapInputImage, ai.CapInputAudio,
		ai.CapInputPDF, ai.CapInputVideo, ai.CapInputMultiple, ai.CapOutputText,
		ai.CapOutputStream, ai.CapOutputStruct, ai.CapOutputAudio, ai.CapOutputImage,
		ai.CapToolCalling, ai.CapEmbeddings, ai.CapThinking, ai.CapTextToSpeech,
	)
}
