// Package llm defines the text-generation capability shared by local backends
// and the remote client, along with the result types they exchange.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	errorskg "github.com/sweetpotato0/remote-llm/errors"
)

// Generation is a single continuation produced for a prompt.
// Info carries backend-specific metadata as an opaque string, conventionally
// a JSON object. An empty Info means no metadata.
type Generation struct {
	Text string `json:"text" yaml:"text" bson:"text"`
	Info string `json:"generation_info,omitempty" yaml:"generation_info,omitempty" bson:"generation_info,omitempty"`
}

// NewGeneration builds a Generation whose Info is the JSON encoding of info.
// A nil or empty map leaves Info empty.
func NewGeneration(text string, info map[string]any) (Generation, error) {
	g := Generation{Text: text}
	if len(info) == 0 {
		return g, nil
	}
	raw, err := json.Marshal(info)
	if err != nil {
		return Generation{}, fmt.Errorf("encode generation info: %w", err)
	}
	g.Info = string(raw)
	return g, nil
}

// InfoMap decodes Info as a JSON object. It returns nil for empty metadata.
func (g Generation) InfoMap() (map[string]any, error) {
	if strings.TrimSpace(g.Info) == "" {
		return nil, nil
	}
	var info map[string]any
	if err := json.Unmarshal([]byte(g.Info), &info); err != nil {
		return nil, fmt.Errorf("decode generation info: %w", err)
	}
	return info, nil
}

// Batch holds the ranked alternatives generated for one prompt.
type Batch []Generation

// Result holds one Batch per input prompt, index-aligned with the prompts.
type Result struct {
	Generations []Batch `json:"generations" yaml:"generations" bson:"generations"`
}

// Len returns the number of batches in the result.
func (r *Result) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Generations)
}

// Validate checks that the result has exactly one batch per prompt.
func (r *Result) Validate(prompts int) error {
	if got := r.Len(); got != prompts {
		return &errorskg.ProtocolError{Want: prompts, Got: got}
	}
	return nil
}

// LLM is a text-generation capability. Implementations must be safe for
// concurrent use; wrap a non-reentrant backend with Serialize.
type LLM interface {
	// Generate runs the prompts to completion on the calling goroutine.
	// The same stop sequences apply to every prompt.
	Generate(ctx context.Context, prompts []string, stop []string) (*Result, error)

	// Type identifies the backend, e.g. "openai-chat".
	Type() string

	// Save persists the backend parameters to path.
	Save(path string) error
}

// AsyncLLM is an LLM that also offers a non-blocking generation path.
// GenerateAsync may resolve to ErrNotImplemented, in which case callers
// should use Generate instead.
type AsyncLLM interface {
	LLM
	GenerateAsync(ctx context.Context, prompts []string, stop []string) *Future
}

// AsyncCapable lets a backend override async detection, for example a
// decorator that embeds an AsyncLLM but wraps a blocking-only backend.
type AsyncCapable interface {
	SupportsAsync() bool
}

// Descriptor records which generation paths a backend supports.
type Descriptor struct {
	Async bool
}

// Describe inspects l once and reports its capabilities.
func Describe(l LLM) Descriptor {
	var d Descriptor
	if _, ok := l.(AsyncLLM); ok {
		d.Async = true
	}
	if c, ok := l.(AsyncCapable); ok {
		d.Async = d.Async && c.SupportsAsync()
	}
	return d
}

// EnforceStop cuts text at the earliest occurrence of any stop sequence.
func EnforceStop(text string, stop []string) string {
	cut := len(text)
	for _, s := range stop {
		if s == "" {
			continue
		}
		if i := strings.Index(text, s); i >= 0 && i < cut {
			cut = i
		}
	}
	return text[:cut]
}
