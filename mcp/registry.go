package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// CapabilityKind tags which of the four capability lists an entry belongs
// to (§3 "Capability entry").
type CapabilityKind int

const (
	KindTool CapabilityKind = iota
	KindPrompt
	KindResource
	KindResourceTemplate
)

// ChangeEvent is a marker event fired whenever a capability list is mutated
// (§4.6 "Change events"). It carries no payload; listeners re-list to learn
// what changed.
type ChangeEvent int

const (
	ToolListChanged ChangeEvent = iota
	PromptListChanged
	ResourceListChanged
	ResourceTemplateListChanged
)

func (e ChangeEvent) notificationMethod() string {
	switch e {
	case ToolListChanged:
		return "notifications/tools/list_changed"
	case PromptListChanged:
		return "notifications/prompts/list_changed"
	case ResourceListChanged, ResourceTemplateListChanged:
		return "notifications/resources/list_changed"
	default:
		return ""
	}
}

// ToolHandler executes a registered tool call.
type ToolHandler func(ctx context.Context, args json.RawMessage) (CallToolResult, error)

// ResourceHandler reads a registered resource (or resolves one matching a
// resource template).
type ResourceHandler func(ctx context.Context, uri string) (ReadResourceResult, error)

// PromptHandler resolves a registered prompt into its message list.
type PromptHandler func(ctx context.Context, args map[string]string) (GetPromptResult, error)

// CapabilityEntry is a tagged variant: Tool | Prompt | Resource |
// ResourceTemplate. Only the handler matching Kind is meaningful.
type CapabilityEntry struct {
	Kind        CapabilityKind
	Name        string // tool/prompt name, resource uri, or resource uriTemplate
	Description string
	InputSchema json.RawMessage
	MediaType   string

	ToolHandler     ToolHandler
	ResourceHandler ResourceHandler
	PromptHandler   PromptHandler
}

// DefaultPageLimit is the page size list() uses when Registry.PageLimit is
// left at zero (§4.6).
const DefaultPageLimit = 50

// Registry holds the four ordered capability lists a server exposes,
// supporting opaque-cursor pagination and change notifications (C6).
//
// Per connection it has a single writer (the server loop's handler calls);
// list() may be called concurrently with register()/unregister() from
// outside that loop (e.g. an admin endpoint), so each kind is independently
// mutex-guarded.
type Registry struct {
	PageLimit int

	tools             kindList
	prompts           kindList
	resources         kindList
	resourceTemplates kindList

	mu        sync.Mutex
	listeners []func(ChangeEvent)
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{PageLimit: DefaultPageLimit}
}

// kindList is an append-only, tombstone-in-place ordered list: unregister
// never removes or shifts an entry, it only marks it dead, so an index
// captured in a previously-issued cursor always refers to the same logical
// slot (§4.6 pagination invariant).
type kindList struct {
	mu         sync.RWMutex
	entries    []CapabilityEntry
	tombstoned []bool
	byName     map[string]int
	generation int
}

func (k *kindList) register(e CapabilityEntry) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.byName == nil {
		k.byName = map[string]int{}
	}
	if idx, ok := k.byName[e.Name]; ok && !k.tombstoned[idx] {
		return fmt.Errorf("mcp: %q is already registered", e.Name)
	}
	idx := len(k.entries)
	k.entries = append(k.entries, e)
	k.tombstoned = append(k.tombstoned, false)
	k.byName[e.Name] = idx
	return nil
}

func (k *kindList) unregister(name string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	idx, ok := k.byName[name]
	if !ok || k.tombstoned[idx] {
		return false
	}
	k.tombstoned[idx] = true
	k.generation++
	delete(k.byName, name)
	return true
}

func (k *kindList) get(name string) (CapabilityEntry, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	idx, ok := k.byName[name]
	if !ok || k.tombstoned[idx] {
		return CapabilityEntry{}, false
	}
	return k.entries[idx], true
}

func (k *kindList) list(cursor string, limit int) ([]CapabilityEntry, string, error) {
	start, err := decodeCursor(cursor)
	if err != nil {
		return nil, "", err
	}

	k.mu.RLock()
	defer k.mu.RUnlock()

	if limit <= 0 {
		limit = DefaultPageLimit
	}

	var page []CapabilityEntry
	i := start
	for ; i < len(k.entries) && len(page) < limit; i++ {
		if k.tombstoned[i] {
			continue
		}
		page = append(page, k.entries[i])
	}

	if i >= len(k.entries) {
		return page, "", nil
	}
	return page, encodeCursor(i, k.generation), nil
}

func encodeCursor(index, generation int) string {
	raw := strconv.Itoa(index) + ":" + strconv.Itoa(generation)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decodeCursor(cursor string) (int, error) {
	if cursor == "" {
		return 0, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, fmt.Errorf("mcp: invalid cursor: %w", err)
	}
	parts := strings.SplitN(string(raw), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("mcp: invalid cursor")
	}
	index, err := strconv.Atoi(parts[0])
	if err != nil || index < 0 {
		return 0, fmt.Errorf("mcp: invalid cursor")
	}
	return index, nil
}

func (r *Registry) listFor(k CapabilityKind) *kindList {
	switch k {
	case KindTool:
		return &r.tools
	case KindPrompt:
		return &r.prompts
	case KindResource:
		return &r.resources
	case KindResourceTemplate:
		return &r.resourceTemplates
	default:
		return nil
	}
}

func (r *Registry) changeEventFor(k CapabilityKind) ChangeEvent {
	switch k {
	case KindTool:
		return ToolListChanged
	case KindPrompt:
		return PromptListChanged
	case KindResource:
		return ResourceListChanged
	default:
		return ResourceTemplateListChanged
	}
}

// Register adds entry to its kind's list and fires the matching change
// event synchronously, before returning (§5).
func (r *Registry) Register(entry CapabilityEntry) error {
	list := r.listFor(entry.Kind)
	if list == nil {
		return fmt.Errorf("mcp: unknown capability kind %d", entry.Kind)
	}
	if err := list.register(entry); err != nil {
		return err
	}
	r.emit(r.changeEventFor(entry.Kind))
	return nil
}

// Unregister removes name from kind's list, firing a change event if it was
// present.
func (r *Registry) Unregister(kind CapabilityKind, name string) bool {
	list := r.listFor(kind)
	if list == nil {
		return false
	}
	if !list.unregister(name) {
		return false
	}
	r.emit(r.changeEventFor(kind))
	return true
}

// Get looks up a live (non-tombstoned) entry by kind and name.
func (r *Registry) Get(kind CapabilityKind, name string) (CapabilityEntry, bool) {
	list := r.listFor(kind)
	if list == nil {
		return CapabilityEntry{}, false
	}
	return list.get(name)
}

// List returns one page of entries for kind starting at cursor.
func (r *Registry) List(kind CapabilityKind, cursor string) (page []CapabilityEntry, nextCursor string, err error) {
	list := r.listFor(kind)
	if list == nil {
		return nil, "", fmt.Errorf("mcp: unknown capability kind %d", kind)
	}
	return list.list(cursor, r.PageLimit)
}

// OnChange subscribes a listener invoked synchronously on every
// register/unregister, in subscription order.
func (r *Registry) OnChange(fn func(ChangeEvent)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

func (r *Registry) emit(ev ChangeEvent) {
	r.mu.Lock()
	listeners := append([]func(ChangeEvent){}, r.listeners...)
	r.mu.Unlock()
	for _, fn := range listeners {
		fn(ev)
	}
}
