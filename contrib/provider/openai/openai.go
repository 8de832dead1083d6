// Package openai serves OpenAI chat completions as an llm.LLM.
package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/sweetpotato0/remote-llm/contrib/provider"
	"github.com/sweetpotato0/remote-llm/llm"
)

// LLMType is reported by Type.
const LLMType = "openai-chat"

// DefaultModel is used when the config names none.
const DefaultModel = string(openai.ChatModelGPT4oMini)

// DefaultConfig returns default OpenAI configuration
func DefaultConfig() provider.Config {
	return provider.Config{
		Model:       DefaultModel,
		MaxTokens:   2000,
		Temperature: 0.7,
		Candidates:  1,
	}
}

// Provider sends each prompt as a single user message.
type Provider struct {
	config provider.Config
	client openai.Client
}

var _ llm.AsyncLLM = (*Provider)(nil)

// New creates a new OpenAI provider using official SDK
func New(config provider.Config, opts ...option.RequestOption) *Provider {
	config = config.Normalize(DefaultModel)

	options := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		options = append(options, option.WithBaseURL(config.BaseURL))
	}
	options = append(options, opts...)

	return &Provider{
		config: config,
		client: openai.NewClient(options...),
	}
}

// Generate completes the prompts one after another.
func (p *Provider) Generate(ctx context.Context, prompts []string, stop []string) (*llm.Result, error) {
	return provider.Sequential(ctx, prompts, stop, p.complete)
}

// GenerateAsync completes the prompts concurrently.
func (p *Provider) GenerateAsync(ctx context.Context, prompts []string, stop []string) *llm.Future {
	return provider.Concurrent(ctx, prompts, stop, p.config.Concurrency, p.complete)
}

// Type implements llm.LLM.
func (p *Provider) Type() string {
	return LLMType
}

// Save writes the provider parameters to path.
func (p *Provider) Save(path string) error {
	return llm.Save(path, p.config.Params(LLMType))
}

func (p *Provider) params(prompt string, stop []string) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
		Model:    openai.ChatModel(p.config.Model),
	}
	if p.config.Temperature > 0 {
		params.Temperature = openai.Float(p.config.Temperature)
	}
	if p.config.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(p.config.MaxTokens)
	}
	if p.config.Candidates > 1 {
		params.N = openai.Int(int64(p.config.Candidates))
	}
	if len(stop) > 0 {
		params.Stop = openai.ChatCompletionNewParamsStopUnion{OfStringArray: stop}
	}
	return params
}

func (p *Provider) complete(ctx context.Context, prompt string, stop []string) (llm.Batch, error) {
	completion, err := p.client.Chat.Completions.New(ctx, p.params(prompt, stop))
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("no choices returned from OpenAI")
	}

	batch := make(llm.Batch, 0, len(completion.Choices))
	for _, choice := range completion.Choices {
		g, err := provider.Text(choice.Message.Content, stop, map[string]any{
			"finish_reason": choice.FinishReason,
			"index":         choice.Index,
			"model":         completion.Model,
		})
		if err != nil {
			return nil, err
		}
		batch = append(batch, g)
	}
	return batch, nil
}
