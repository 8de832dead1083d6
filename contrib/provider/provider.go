// Package provider holds what the hosted LLM backends share: their
// configuration and the per-prompt fan-out used by both generation paths.
package provider

import (
	"context"
	"fmt"

	errorskg "github.com/sweetpotato0/remote-llm/errors"
	"github.com/sweetpotato0/remote-llm/llm"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency caps in-flight API requests on the async path.
const DefaultConcurrency = 4

// Config holds the settings common to every hosted backend.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int64
	Temperature float64
	// Candidates is the number of generations requested per prompt.
	Candidates int
	// Concurrency caps in-flight requests on the async path.
	Concurrency int
}

// Normalize fills zero values with defaults and returns the copy.
func (c Config) Normalize(defaultModel string) Config {
	if c.Model == "" {
		c.Model = defaultModel
	}
	if c.Candidates <= 0 {
		c.Candidates = 1
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	return c
}

// Params returns the parameters persisted by Save. The API key is left out.
func (c Config) Params(llmType string) map[string]any {
	params := map[string]any{
		"_type":       llmType,
		"model":       c.Model,
		"temperature": c.Temperature,
		"max_tokens":  c.MaxTokens,
		"candidates":  c.Candidates,
	}
	if c.BaseURL != "" {
		params["base_url"] = c.BaseURL
	}
	return params
}

// CompleteFunc produces the batch for a single prompt.
type CompleteFunc func(ctx context.Context, prompt string, stop []string) (llm.Batch, error)

// Sequential runs complete for each prompt in order on the calling goroutine.
func Sequential(ctx context.Context, prompts, stop []string, complete CompleteFunc) (*llm.Result, error) {
	result := &llm.Result{Generations: make([]llm.Batch, 0, len(prompts))}
	for i, p := range prompts {
		batch, err := complete(ctx, p, stop)
		if err != nil {
			return nil, fmt.Errorf("prompt %d: %w", i, err)
		}
		result.Generations = append(result.Generations, batch)
	}
	return result, nil
}

// Concurrent runs complete for every prompt with at most limit requests in
// flight. The first failure cancels the remaining prompts. Batches keep the
// prompt order.
func Concurrent(ctx context.Context, prompts, stop []string, limit int, complete CompleteFunc) *llm.Future {
	return llm.Go(ctx, func(ctx context.Context) (*llm.Result, error) {
		batches := make([]llm.Batch, len(prompts))
		g, ctx := errgroup.WithContext(ctx)
		g.SetLimit(limit)
		for i, p := range prompts {
			g.Go(func() error {
				batch, err := complete(ctx, p, stop)
				if err != nil {
					return fmt.Errorf("prompt %d: %w", i, err)
				}
				batches[i] = batch
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return &llm.Result{Generations: batches}, nil
	})
}

// Text builds a generation from provider output, cutting it at the first stop
// sequence the provider did not already honor.
func Text(text string, stop []string, info map[string]any) (llm.Generation, error) {
	g, err := llm.NewGeneration(llm.EnforceStop(text, stop), info)
	if err != nil {
		return llm.Generation{}, fmt.Errorf("%w: %v", errorskg.ErrInternal, err)
	}
	return g, nil
}
