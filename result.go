package ai

import "fmt"

// ResultKind tags the variant held by a Result.
type ResultKind string

const (
	ResultText      ResultKind = "text"
	ResultToolCalls ResultKind = "tool-calls"
	ResultVectors   ResultKind = "vectors"
	ResultStream    ResultKind = "stream"
)

// Chunk is one element of a streamed Result.
type Chunk struct {
	Text      string
	ToolCalls []ToolCallPart
	Done      bool
}

// Result is the terminal value a DeferredResult produces: exactly one of its
// fields is meaningful, selected by Kind.
type Result struct {
	Kind ResultKind

	Text      string
	ToolCalls []ToolCallPart
	Vectors   [][]float32
	Stream    <-chan Chunk
}

// ResultConverter turns a raw, client-specific result into a Result. The
// dispatcher picks the first converter whose Supports(model) returns true.
type ResultConverter interface {
	Supports(model Model) bool
	Convert(model Model, raw any) (Result, error)
}

// DeferredResult holds a raw client result alongside the converter that will
// interpret it; Await is idempotent and safe to call from a single goroutine.
type DeferredResult struct {
	model     Model
	raw       any
	converter ResultConverter
	resolved  bool
	result    Result
	err       error
}

// NewDeferredResult pairs a raw result with the converter that will interpret
// it once Await is called.
func NewDeferredResult(model Model, raw any, converter ResultConverter) *DeferredResult {
	return &DeferredResult{model: model, raw: raw, converter: converter}
}

// Await converts the held raw result into a Result, memoizing the outcome.
func (d *DeferredResult) Await() (Result, error) {
	if d == nil {
		return Result{}, fmt.Errorf("ai: await on nil DeferredResult")
	}
	if d.resolved {
		return d.result, d.err
	}
	if d.converter == nil {
		d.err = fmt.Errorf("ai: no result converter bound")
		d.resolved = true
		return d.result, d.err
	}
	d.result, d.err = d.converter.Convert(d.model, d.raw)
	d.resolved = true
	return d.result, d.err
}
