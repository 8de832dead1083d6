// Package fake provides a scripted LLM for tests and demos.
package fake

import (
	"context"
	"sync"

	errorskg "github.com/sweetpotato0/remote-llm/errors"
	"github.com/sweetpotato0/remote-llm/llm"
)

// EchoPrefix starts every generation made under WithEcho.
const EchoPrefix = "echo:"

// Mode selects which generation paths the fake backend offers.
type Mode int

const (
	// ModeSync offers only the blocking path.
	ModeSync Mode = iota
	// ModeAsync offers both paths.
	ModeAsync
	// ModeAsyncNotImplemented advertises the async path but resolves it to
	// ErrNotImplemented, forcing callers onto the blocking path at call time.
	ModeAsyncNotImplemented
)

// Call records the arguments of one generation.
type Call struct {
	Prompts []string
	Stop    []string
	Async   bool
}

// LLM returns scripted responses in order, cycling when they run out.
// Each prompt receives a single generation.
type LLM struct {
	mu        sync.Mutex
	responses []string
	next      int
	mode      Mode
	llmType   string
	info      string
	err       error
	echo      bool
	calls     []Call
}

var (
	_ llm.AsyncLLM     = (*LLM)(nil)
	_ llm.AsyncCapable = (*LLM)(nil)
)

// Option configures the fake backend.
type Option func(*LLM)

// WithMode sets the supported generation paths. Default is ModeSync.
func WithMode(mode Mode) Option {
	return func(f *LLM) {
		f.mode = mode
	}
}

// WithType overrides the reported backend type. Default is "fake-list".
func WithType(t string) Option {
	return func(f *LLM) {
		f.llmType = t
	}
}

// WithInfo attaches the same metadata string to every generation.
func WithInfo(info string) Option {
	return func(f *LLM) {
		f.info = info
	}
}

// WithError makes every generation fail with err.
func WithError(err error) Option {
	return func(f *LLM) {
		f.err = err
	}
}

// WithEcho replies to every prompt with EchoPrefix followed by the prompt
// instead of the scripted responses.
func WithEcho() Option {
	return func(f *LLM) {
		f.echo = true
	}
}

// New creates a fake backend that replies with responses.
func New(responses []string, opts ...Option) *LLM {
	f := &LLM{
		responses: append([]string(nil), responses...),
		llmType:   "fake-list",
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// Generate implements llm.LLM.
func (f *LLM) Generate(ctx context.Context, prompts []string, stop []string) (*llm.Result, error) {
	return f.generate(ctx, prompts, stop, false)
}

// GenerateAsync implements llm.AsyncLLM.
func (f *LLM) GenerateAsync(ctx context.Context, prompts []string, stop []string) *llm.Future {
	if f.mode != ModeAsync {
		return llm.Resolved(nil, errorskg.ErrNotImplemented)
	}
	return llm.Go(ctx, func(ctx context.Context) (*llm.Result, error) {
		return f.generate(ctx, prompts, stop, true)
	})
}

// SupportsAsync implements llm.AsyncCapable.
func (f *LLM) SupportsAsync() bool {
	return f.mode != ModeSync
}

// Type implements llm.LLM.
func (f *LLM) Type() string {
	return f.llmType
}

// Save implements llm.LLM.
func (f *LLM) Save(path string) error {
	f.mu.Lock()
	responses := append([]string(nil), f.responses...)
	f.mu.Unlock()
	return llm.Save(path, map[string]any{
		"_type":     f.llmType,
		"responses": responses,
	})
}

// Calls returns the generations issued so far.
func (f *LLM) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

func (f *LLM) generate(ctx context.Context, prompts []string, stop []string, async bool) (*llm.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, Call{
		Prompts: append([]string(nil), prompts...),
		Stop:    append([]string(nil), stop...),
		Async:   async,
	})
	if f.err != nil {
		return nil, f.err
	}

	result := &llm.Result{Generations: make([]llm.Batch, 0, len(prompts))}
	for _, prompt := range prompts {
		text := ""
		if f.echo {
			text = EchoPrefix + prompt
		} else if len(f.responses) > 0 {
			text = f.responses[f.next%len(f.responses)]
			f.next++
		}
		result.Generations = append(result.Generations, llm.Batch{{
			Text: llm.EnforceStop(text, stop),
			Info: f.info,
		}})
	}
	return result, nil
}
